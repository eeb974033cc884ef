package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/ribotflow/backend/internal/application/listing"
	partnerapp "github.com/ribotflow/backend/internal/application/partner"
	"github.com/ribotflow/backend/internal/domain/shared"
)

// SupplierService is the supplier use case consumed by SupplierHandler
type SupplierService interface {
	Create(ctx context.Context, tenantID, userID uuid.UUID, req partnerapp.CreateSupplierRequest) (*partnerapp.SupplierResponse, error)
	GetByID(ctx context.Context, tenantID, supplierID uuid.UUID) (*partnerapp.SupplierResponse, error)
	List(ctx context.Context, tenantID uuid.UUID, filter partnerapp.SupplierListFilter) (shared.Page[partnerapp.SupplierResponse], error)
	Update(ctx context.Context, tenantID, supplierID uuid.UUID, req partnerapp.UpdateSupplierRequest) (*partnerapp.SupplierResponse, error)
	Delete(ctx context.Context, tenantID, supplierID uuid.UUID) error
	Contacts(ctx context.Context, tenantID, supplierID uuid.UUID, params listing.Params) (shared.Page[partnerapp.ContactResponse], error)
	Expenses(ctx context.Context, tenantID, supplierID uuid.UUID, params listing.Params) (shared.Page[partnerapp.SupplierExpenseResponse], error)
}

// SupplierHandler handles supplier-related API endpoints
type SupplierHandler struct {
	BaseHandler
	supplierService SupplierService
}

// NewSupplierHandler creates a new SupplierHandler
func NewSupplierHandler(supplierService SupplierService) *SupplierHandler {
	return &SupplierHandler{supplierService: supplierService}
}

// Create godoc
// @Summary      Create a supplier
// @Tags         suppliers
// @Accept       json
// @Produce      json
// @Param        Idempotency-Key header string false "Replays the first response for a repeated key"
// @Param        request body partnerapp.CreateSupplierRequest true "Supplier"
// @Success      201 {object} APIResponse[partnerapp.SupplierResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /suppliers [post]
func (h *SupplierHandler) Create(c *gin.Context) {
	tenantID, userID, ok := h.caller(c)
	if !ok {
		return
	}
	var req partnerapp.CreateSupplierRequest
	if !h.bindJSON(c, &req) {
		return
	}
	resp, err := h.supplierService.Create(c.Request.Context(), tenantID, userID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// GetByID godoc
// @Summary      Get a supplier
// @Tags         suppliers
// @Produce      json
// @Param        id path string true "Supplier ID"
// @Success      200 {object} APIResponse[partnerapp.SupplierResponse]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /suppliers/{id} [get]
func (h *SupplierHandler) GetByID(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	resp, err := h.supplierService.GetByID(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// List godoc
// @Summary      List suppliers
// @Description  Search matches name, tax id and email
// @Tags         suppliers
// @Produce      json
// @Param        search query string false "Search term"
// @Param        city query string false "City"
// @Param        country query string false "Country"
// @Param        page query int false "Page" default(1)
// @Param        page_size query int false "Page size" default(20)
// @Param        offset query int false "Offset, wins over page"
// @Param        sort_by query string false "Sort field"
// @Param        sort_dir query string false "asc or desc"
// @Success      200 {object} APIResponse[[]partnerapp.SupplierResponse]
// @Security     BearerAuth
// @Router       /suppliers [get]
func (h *SupplierHandler) List(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	var filter partnerapp.SupplierListFilter
	if !h.bindQuery(c, &filter) {
		return
	}
	page, err := h.supplierService.List(c.Request.Context(), tenantID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	respondPage(c, page)
}

// Update godoc
// @Summary      Update a supplier
// @Tags         suppliers
// @Accept       json
// @Produce      json
// @Param        id path string true "Supplier ID"
// @Param        request body partnerapp.UpdateSupplierRequest true "Supplier"
// @Success      200 {object} APIResponse[partnerapp.SupplierResponse]
// @Failure      404 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /suppliers/{id} [put]
func (h *SupplierHandler) Update(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req partnerapp.UpdateSupplierRequest
	if !h.bindJSON(c, &req) {
		return
	}
	resp, err := h.supplierService.Update(c.Request.Context(), tenantID, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Delete godoc
// @Summary      Delete a supplier
// @Description  Suppliers with expenses cannot be deleted
// @Tags         suppliers
// @Param        id path string true "Supplier ID"
// @Success      204
// @Failure      404 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /suppliers/{id} [delete]
func (h *SupplierHandler) Delete(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	if err := h.supplierService.Delete(c.Request.Context(), tenantID, id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// Contacts godoc
// @Summary      Contacts of a supplier
// @Tags         suppliers
// @Produce      json
// @Param        id path string true "Supplier ID"
// @Param        page query int false "Page" default(1)
// @Param        page_size query int false "Page size" default(20)
// @Success      200 {object} APIResponse[[]partnerapp.ContactResponse]
// @Security     BearerAuth
// @Router       /suppliers/{id}/contacts [get]
func (h *SupplierHandler) Contacts(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var params listing.Params
	if !h.bindQuery(c, &params) {
		return
	}
	page, err := h.supplierService.Contacts(c.Request.Context(), tenantID, id, params)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	respondPage(c, page)
}

// Expenses godoc
// @Summary      Expenses of a supplier
// @Tags         suppliers
// @Produce      json
// @Param        id path string true "Supplier ID"
// @Param        page query int false "Page" default(1)
// @Param        page_size query int false "Page size" default(20)
// @Success      200 {object} APIResponse[[]partnerapp.SupplierExpenseResponse]
// @Security     BearerAuth
// @Router       /suppliers/{id}/expenses [get]
func (h *SupplierHandler) Expenses(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var params listing.Params
	if !h.bindQuery(c, &params) {
		return
	}
	page, err := h.supplierService.Expenses(c.Request.Context(), tenantID, id, params)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	respondPage(c, page)
}
