package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	salesapp "github.com/ribotflow/backend/internal/application/sales"
	"github.com/ribotflow/backend/internal/domain/shared"
)

// InvoiceService is the invoice use case consumed by InvoiceHandler
type InvoiceService interface {
	Create(ctx context.Context, tenantID, userID uuid.UUID, req salesapp.CreateInvoiceRequest) (*salesapp.InvoiceResponse, error)
	GetByID(ctx context.Context, tenantID, invoiceID uuid.UUID) (*salesapp.InvoiceResponse, error)
	List(ctx context.Context, tenantID uuid.UUID, filter salesapp.InvoiceListFilter) (shared.Page[salesapp.InvoiceResponse], error)
	Update(ctx context.Context, tenantID, invoiceID uuid.UUID, req salesapp.UpdateInvoiceRequest) (*salesapp.InvoiceResponse, error)
	Delete(ctx context.Context, tenantID, invoiceID uuid.UUID) error
	Issue(ctx context.Context, tenantID, invoiceID uuid.UUID) (*salesapp.InvoiceResponse, error)
	MarkPaid(ctx context.Context, tenantID, invoiceID uuid.UUID, req salesapp.MarkInvoicePaidRequest) (*salesapp.InvoiceResponse, error)
	Cancel(ctx context.Context, tenantID, invoiceID uuid.UUID, req salesapp.CancelInvoiceRequest) (*salesapp.InvoiceResponse, error)
	Send(ctx context.Context, tenantID, invoiceID uuid.UUID, req salesapp.SendDocumentRequest) (*salesapp.SendDocumentResponse, error)
	PDF(ctx context.Context, tenantID, invoiceID uuid.UUID) ([]byte, string, error)
}

// InvoiceHandler handles invoice endpoints
type InvoiceHandler struct {
	BaseHandler
	invoiceService InvoiceService
}

// NewInvoiceHandler creates a new InvoiceHandler
func NewInvoiceHandler(invoiceService InvoiceService) *InvoiceHandler {
	return &InvoiceHandler{invoiceService: invoiceService}
}

// Create godoc
// @Summary      Create an invoice
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Param        Idempotency-Key header string false "Replays the first response for a repeated key"
// @Param        request body salesapp.CreateInvoiceRequest true "Invoice"
// @Success      201 {object} APIResponse[salesapp.InvoiceResponse]
// @Failure      400 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /invoices [post]
func (h *InvoiceHandler) Create(c *gin.Context) {
	tenantID, userID, ok := h.caller(c)
	if !ok {
		return
	}
	var req salesapp.CreateInvoiceRequest
	if !h.bindJSON(c, &req) {
		return
	}
	resp, err := h.invoiceService.Create(c.Request.Context(), tenantID, userID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// GetByID godoc
// @Summary      Get an invoice
// @Tags         invoices
// @Produce      json
// @Param        id path string true "Invoice ID"
// @Success      200 {object} APIResponse[salesapp.InvoiceResponse]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /invoices/{id} [get]
func (h *InvoiceHandler) GetByID(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	resp, err := h.invoiceService.GetByID(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// List godoc
// @Summary      List invoices
// @Tags         invoices
// @Produce      json
// @Param        search query string false "Search number or contact"
// @Param        status query string false "Invoice status"
// @Param        contact_id query string false "Contact ID"
// @Param        quote_id query string false "Source quote ID"
// @Param        date_from query string false "Issued on or after (YYYY-MM-DD)"
// @Param        date_to query string false "Issued on or before (YYYY-MM-DD)"
// @Param        page query int false "Page" default(1)
// @Param        page_size query int false "Page size" default(20)
// @Success      200 {object} APIResponse[[]salesapp.InvoiceResponse]
// @Security     BearerAuth
// @Router       /invoices [get]
func (h *InvoiceHandler) List(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	var filter salesapp.InvoiceListFilter
	if !h.bindQuery(c, &filter) {
		return
	}
	page, err := h.invoiceService.List(c.Request.Context(), tenantID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	respondPage(c, page)
}

// Update godoc
// @Summary      Update a draft invoice
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Param        id path string true "Invoice ID"
// @Param        request body salesapp.UpdateInvoiceRequest true "Invoice"
// @Success      200 {object} APIResponse[salesapp.InvoiceResponse]
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /invoices/{id} [put]
func (h *InvoiceHandler) Update(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req salesapp.UpdateInvoiceRequest
	if !h.bindJSON(c, &req) {
		return
	}
	resp, err := h.invoiceService.Update(c.Request.Context(), tenantID, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Delete godoc
// @Summary      Delete a draft invoice
// @Tags         invoices
// @Param        id path string true "Invoice ID"
// @Success      204
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /invoices/{id} [delete]
func (h *InvoiceHandler) Delete(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	if err := h.invoiceService.Delete(c.Request.Context(), tenantID, id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// Issue godoc
// @Summary      Issue a draft invoice
// @Description  Assigns the next number of the tenant's series and freezes the content
// @Tags         invoices
// @Produce      json
// @Param        id path string true "Invoice ID"
// @Success      200 {object} APIResponse[salesapp.InvoiceResponse]
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /invoices/{id}/issue [post]
func (h *InvoiceHandler) Issue(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	resp, err := h.invoiceService.Issue(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// MarkPaid godoc
// @Summary      Record the payment of an invoice
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Param        id path string true "Invoice ID"
// @Param        request body salesapp.MarkInvoicePaidRequest false "Payment date"
// @Success      200 {object} APIResponse[salesapp.InvoiceResponse]
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /invoices/{id}/mark-paid [post]
func (h *InvoiceHandler) MarkPaid(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req salesapp.MarkInvoicePaidRequest
	if c.Request.ContentLength > 0 && !h.bindJSON(c, &req) {
		return
	}
	resp, err := h.invoiceService.MarkPaid(c.Request.Context(), tenantID, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Cancel godoc
// @Summary      Cancel an invoice
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Param        id path string true "Invoice ID"
// @Param        request body salesapp.CancelInvoiceRequest false "Reason"
// @Success      200 {object} APIResponse[salesapp.InvoiceResponse]
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /invoices/{id}/cancel [post]
func (h *InvoiceHandler) Cancel(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req salesapp.CancelInvoiceRequest
	if c.Request.ContentLength > 0 && !h.bindJSON(c, &req) {
		return
	}
	resp, err := h.invoiceService.Cancel(c.Request.Context(), tenantID, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Send godoc
// @Summary      Email an invoice
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Param        id path string true "Invoice ID"
// @Param        request body salesapp.SendDocumentRequest false "Recipient override and message"
// @Success      200 {object} APIResponse[salesapp.SendDocumentResponse]
// @Failure      422 {object} ErrorResponse
// @Failure      502 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /invoices/{id}/send [post]
func (h *InvoiceHandler) Send(c *gin.Context) {
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
	resp, err := h.invoiceService.Send(c.Request.Context(), tenantID, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// PDF godoc
// @Summary      Download an invoice as PDF
// @Tags         invoices
// @Produce      application/pdf
// @Param        id path string true "Invoice ID"
// @Success      200 {file} binary
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /invoices/{id}/pdf [get]
func (h *InvoiceHandler) PDF(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	data, filename, err := h.invoiceService.PDF(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	respondPDF(c, data, filename)
}
