package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	partnerapp "github.com/ribotflow/backend/internal/application/partner"
	"github.com/ribotflow/backend/internal/domain/shared"
)

// ContactService is the CRM contact use case consumed by ContactHandler
type ContactService interface {
	Create(ctx context.Context, tenantID, userID uuid.UUID, req partnerapp.CreateContactRequest) (*partnerapp.ContactResponse, error)
	GetByID(ctx context.Context, tenantID, contactID uuid.UUID) (*partnerapp.ContactResponse, error)
	List(ctx context.Context, tenantID uuid.UUID, filter partnerapp.ContactListFilter) (shared.Page[partnerapp.ContactResponse], error)
	Update(ctx context.Context, tenantID, contactID uuid.UUID, req partnerapp.UpdateContactRequest) (*partnerapp.ContactResponse, error)
	Delete(ctx context.Context, tenantID, contactID uuid.UUID) error
}

// ContactHandler handles CRM contact endpoints
type ContactHandler struct {
	BaseHandler
	contactService ContactService
}

// NewContactHandler creates a new ContactHandler
func NewContactHandler(contactService ContactService) *ContactHandler {
	return &ContactHandler{contactService: contactService}
}

// Create godoc
// @Summary      Create a contact
// @Tags         contacts
// @Accept       json
// @Produce      json
// @Param        Idempotency-Key header string false "Replays the first response for a repeated key"
// @Param        request body partnerapp.CreateContactRequest true "Contact"
// @Success      201 {object} APIResponse[partnerapp.ContactResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /contacts [post]
func (h *ContactHandler) Create(c *gin.Context) {
	tenantID, userID, ok := h.caller(c)
	if !ok {
		return
	}
	var req partnerapp.CreateContactRequest
	if !h.bindJSON(c, &req) {
		return
	}
	resp, err := h.contactService.Create(c.Request.Context(), tenantID, userID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// GetByID godoc
// @Summary      Get a contact
// @Tags         contacts
// @Produce      json
// @Param        id path string true "Contact ID"
// @Success      200 {object} APIResponse[partnerapp.ContactResponse]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /contacts/{id} [get]
func (h *ContactHandler) GetByID(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	resp, err := h.contactService.GetByID(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// List godoc
// @Summary      List contacts
// @Description  Search matches name, company and email
// @Tags         contacts
// @Produce      json
// @Param        search query string false "Search term"
// @Param        stage query string false "lead, prospect, customer or inactive"
// @Param        supplier_id query string false "Supplier ID"
// @Param        page query int false "Page" default(1)
// @Param        page_size query int false "Page size" default(20)
// @Param        offset query int false "Offset, wins over page"
// @Success      200 {object} APIResponse[[]partnerapp.ContactResponse]
// @Security     BearerAuth
// @Router       /contacts [get]
func (h *ContactHandler) List(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	var filter partnerapp.ContactListFilter
	if !h.bindQuery(c, &filter) {
		return
	}
	page, err := h.contactService.List(c.Request.Context(), tenantID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	respondPage(c, page)
}

// Update godoc
// @Summary      Update a contact
// @Tags         contacts
// @Accept       json
// @Produce      json
// @Param        id path string true "Contact ID"
// @Param        request body partnerapp.UpdateContactRequest true "Contact"
// @Success      200 {object} APIResponse[partnerapp.ContactResponse]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /contacts/{id} [put]
func (h *ContactHandler) Update(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req partnerapp.UpdateContactRequest
	if !h.bindJSON(c, &req) {
		return
	}
	resp, err := h.contactService.Update(c.Request.Context(), tenantID, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Delete godoc
// @Summary      Delete a contact
// @Description  Contacts referenced by quotes or invoices cannot be deleted
// @Tags         contacts
// @Param        id path string true "Contact ID"
// @Success      204
// @Failure      404 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /contacts/{id} [delete]
func (h *ContactHandler) Delete(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	if err := h.contactService.Delete(c.Request.Context(), tenantID, id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}
