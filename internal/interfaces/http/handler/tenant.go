package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	identityapp "github.com/ribotflow/backend/internal/application/identity"
)

// TenantService is the tenant settings use case consumed by TenantHandler
type TenantService interface {
	Get(ctx context.Context, tenantID uuid.UUID) (*identityapp.TenantResponse, error)
	UpdateSettings(ctx context.Context, tenantID uuid.UUID, req identityapp.UpdateTenantSettingsRequest) (*identityapp.TenantResponse, error)
}

// TenantHandler serves the caller's organisation settings
type TenantHandler struct {
	BaseHandler
	tenantService TenantService
}

// NewTenantHandler creates a new TenantHandler
func NewTenantHandler(tenantService TenantService) *TenantHandler {
	return &TenantHandler{tenantService: tenantService}
}

// Get godoc
// @Summary      Get organisation settings
// @Tags         settings
// @Produce      json
// @Success      200 {object} APIResponse[identityapp.TenantResponse]
// @Failure      401 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /settings [get]
func (h *TenantHandler) Get(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	resp, err := h.tenantService.Get(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Update godoc
// @Summary      Update organisation settings
// @Description  Name, billing details, locale and currency used on documents and emails
// @Tags         settings
// @Accept       json
// @Produce      json
// @Param        request body identityapp.UpdateTenantSettingsRequest true "Settings"
// @Success      200 {object} APIResponse[identityapp.TenantResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /settings [put]
func (h *TenantHandler) Update(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	var req identityapp.UpdateTenantSettingsRequest
	if !h.bindJSON(c, &req) {
		return
	}
	resp, err := h.tenantService.UpdateSettings(c.Request.Context(), tenantID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}
