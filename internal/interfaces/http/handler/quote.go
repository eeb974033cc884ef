package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	salesapp "github.com/ribotflow/backend/internal/application/sales"
	"github.com/ribotflow/backend/internal/domain/shared"
)

// QuoteService is the quote use case consumed by QuoteHandler
type QuoteService interface {
	Create(ctx context.Context, tenantID, userID uuid.UUID, req salesapp.CreateQuoteRequest) (*salesapp.QuoteResponse, error)
	GetByID(ctx context.Context, tenantID, quoteID uuid.UUID) (*salesapp.QuoteResponse, error)
	List(ctx context.Context, tenantID uuid.UUID, filter salesapp.QuoteListFilter) (shared.Page[salesapp.QuoteResponse], error)
	Update(ctx context.Context, tenantID, quoteID uuid.UUID, req salesapp.UpdateQuoteRequest) (*salesapp.QuoteResponse, error)
	Delete(ctx context.Context, tenantID, quoteID uuid.UUID) error
	Send(ctx context.Context, tenantID, quoteID uuid.UUID, req salesapp.SendDocumentRequest) (*salesapp.SendDocumentResponse, error)
	PDF(ctx context.Context, tenantID, quoteID uuid.UUID) ([]byte, string, error)
	Accept(ctx context.Context, tenantID, quoteID uuid.UUID) (*salesapp.QuoteResponse, error)
	Decline(ctx context.Context, tenantID, quoteID uuid.UUID) (*salesapp.QuoteResponse, error)
	Reopen(ctx context.Context, tenantID, quoteID uuid.UUID) (*salesapp.QuoteResponse, error)
	ConvertToInvoice(ctx context.Context, tenantID, userID, quoteID uuid.UUID, req salesapp.ConvertQuoteRequest) (*salesapp.InvoiceResponse, error)
}

// QuoteHandler handles quote endpoints
type QuoteHandler struct {
	BaseHandler
	quoteService QuoteService
}

// NewQuoteHandler creates a new QuoteHandler
func NewQuoteHandler(quoteService QuoteService) *QuoteHandler {
	return &QuoteHandler{quoteService: quoteService}
}

// Create godoc
// @Summary      Create a quote
// @Description  Creates a draft quote. Totals are computed from the items.
// @Tags         quotes
// @Accept       json
// @Produce      json
// @Param        Idempotency-Key header string false "Replays the first response for a repeated key"
// @Param        request body salesapp.CreateQuoteRequest true "Quote"
// @Success      201 {object} APIResponse[salesapp.QuoteResponse]
// @Failure      400 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /quotes [post]
func (h *QuoteHandler) Create(c *gin.Context) {
	tenantID, userID, ok := h.caller(c)
	if !ok {
		return
	}
	var req salesapp.CreateQuoteRequest
	if !h.bindJSON(c, &req) {
		return
	}
	resp, err := h.quoteService.Create(c.Request.Context(), tenantID, userID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// GetByID godoc
// @Summary      Get a quote
// @Tags         quotes
// @Produce      json
// @Param        id path string true "Quote ID"
// @Success      200 {object} APIResponse[salesapp.QuoteResponse]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /quotes/{id} [get]
func (h *QuoteHandler) GetByID(c *gin.Context) {
	h.byID(c, h.quoteService.GetByID)
}

// List godoc
// @Summary      List quotes
// @Tags         quotes
// @Produce      json
// @Param        search query string false "Search number or contact"
// @Param        status query string false "Quote status"
// @Param        contact_id query string false "Contact ID"
// @Param        date_from query string false "Issued on or after (YYYY-MM-DD)"
// @Param        date_to query string false "Issued on or before (YYYY-MM-DD)"
// @Param        page query int false "Page" default(1)
// @Param        page_size query int false "Page size" default(20)
// @Param        offset query int false "Offset, wins over page"
// @Success      200 {object} APIResponse[[]salesapp.QuoteResponse]
// @Security     BearerAuth
// @Router       /quotes [get]
func (h *QuoteHandler) List(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	var filter salesapp.QuoteListFilter
	if !h.bindQuery(c, &filter) {
		return
	}
	page, err := h.quoteService.List(c.Request.Context(), tenantID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	respondPage(c, page)
}

// Update godoc
// @Summary      Update a draft quote
// @Tags         quotes
// @Accept       json
// @Produce      json
// @Param        id path string true "Quote ID"
// @Param        request body salesapp.UpdateQuoteRequest true "Quote"
// @Success      200 {object} APIResponse[salesapp.QuoteResponse]
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /quotes/{id} [put]
func (h *QuoteHandler) Update(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req salesapp.UpdateQuoteRequest
	if !h.bindJSON(c, &req) {
		return
	}
	resp, err := h.quoteService.Update(c.Request.Context(), tenantID, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Delete godoc
// @Summary      Delete a quote
// @Tags         quotes
// @Param        id path string true "Quote ID"
// @Success      204
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /quotes/{id} [delete]
func (h *QuoteHandler) Delete(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	if err := h.quoteService.Delete(c.Request.Context(), tenantID, id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// Send godoc
// @Summary      Email a quote
// @Description  Renders the quote as PDF and emails it. The status changes to sent only on delivery.
// @Tags         quotes
// @Accept       json
// @Produce      json
// @Param        id path string true "Quote ID"
// @Param        request body salesapp.SendDocumentRequest false "Recipient override and message"
// @Success      200 {object} APIResponse[salesapp.SendDocumentResponse]
// @Failure      422 {object} ErrorResponse
// @Failure      502 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /quotes/{id}/send [post]
func (h *QuoteHandler) Send(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req salesapp.SendDocumentRequest
	if c.Request.ContentLength > 0 && !h.bindJSON(c, &req) {
		return
	}
	resp, err := h.quoteService.Send(c.Request.Context(), tenantID, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// PDF godoc
// @Summary      Download a quote as PDF
// @Tags         quotes
// @Produce      application/pdf
// @Param        id path string true "Quote ID"
// @Success      200 {file} binary
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /quotes/{id}/pdf [get]
func (h *QuoteHandler) PDF(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	data, filename, err := h.quoteService.PDF(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	respondPDF(c, data, filename)
}

// Accept godoc
// @Summary      Mark a quote as accepted
// @Tags         quotes
// @Produce      json
// @Param        id path string true "Quote ID"
// @Success      200 {object} APIResponse[salesapp.QuoteResponse]
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /quotes/{id}/accept [post]
func (h *QuoteHandler) Accept(c *gin.Context) {
	h.byID(c, h.quoteService.Accept)
}

// Decline godoc
// @Summary      Mark a quote as declined
// @Tags         quotes
// @Produce      json
// @Param        id path string true "Quote ID"
// @Success      200 {object} APIResponse[salesapp.QuoteResponse]
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /quotes/{id}/decline [post]
func (h *QuoteHandler) Decline(c *gin.Context) {
	h.byID(c, h.quoteService.Decline)
}

// Reopen godoc
// @Summary      Return a sent, declined or expired quote to draft
// @Tags         quotes
// @Produce      json
// @Param        id path string true "Quote ID"
// @Success      200 {object} APIResponse[salesapp.QuoteResponse]
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /quotes/{id}/reopen [post]
func (h *QuoteHandler) Reopen(c *gin.Context) {
	h.byID(c, h.quoteService.Reopen)
}

// Convert godoc
// @Summary      Convert an accepted quote into an invoice
// @Tags         quotes
// @Accept       json
// @Produce      json
// @Param        id path string true "Quote ID"
// @Param        request body salesapp.ConvertQuoteRequest false "Invoice dates"
// @Success      201 {object} APIResponse[salesapp.InvoiceResponse]
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /quotes/{id}/convert [post]
func (h *QuoteHandler) Convert(c *gin.Context) {
	tenantID, userID, ok := h.caller(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req salesapp.ConvertQuoteRequest
	if c.Request.ContentLength > 0 && !h.bindJSON(c, &req) {
		return
	}
	resp, err := h.quoteService.ConvertToInvoice(c.Request.Context(), tenantID, userID, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

func (h *QuoteHandler) byID(c *gin.Context, fn func(context.Context, uuid.UUID, uuid.UUID) (*salesapp.QuoteResponse, error)) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	resp, err := fn(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}
