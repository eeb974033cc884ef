package handler

import (
	"context"
	"io"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	salesapp "github.com/ribotflow/backend/internal/application/sales"
)

// TaxRateService is the tax catalog use case consumed by TaxRateHandler
type TaxRateService interface {
	List(ctx context.Context, tenantID uuid.UUID) ([]salesapp.TaxRateResponse, error)
	Create(ctx context.Context, tenantID uuid.UUID, req salesapp.CreateTaxRateRequest) (*salesapp.TaxRateResponse, error)
	Update(ctx context.Context, tenantID, rateID uuid.UUID, req salesapp.UpdateTaxRateRequest) (*salesapp.TaxRateResponse, error)
	Delete(ctx context.Context, tenantID, rateID uuid.UUID) error
	Import(ctx context.Context, tenantID uuid.UUID, r io.Reader) (*salesapp.TaxImportResult, error)
}

// TotalsService computes document totals without storing anything
type TotalsService interface {
	Preview(ctx context.Context, tenantID uuid.UUID, req salesapp.TotalsPreviewRequest) (*salesapp.TotalsPreviewResponse, error)
}

// TaxRateHandler handles the tax catalog and the totals preview
type TaxRateHandler struct {
	BaseHandler
	taxRateService TaxRateService
	totalsService  TotalsService
}

// NewTaxRateHandler creates a new TaxRateHandler
func NewTaxRateHandler(taxRateService TaxRateService, totalsService TotalsService) *TaxRateHandler {
	return &TaxRateHandler{taxRateService: taxRateService, totalsService: totalsService}
}

// List godoc
// @Summary      List the tax catalog
// @Tags         taxes
// @Produce      json
// @Success      200 {object} APIResponse[[]salesapp.TaxRateResponse]
// @Security     BearerAuth
// @Router       /tax-rates [get]
func (h *TaxRateHandler) List(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	rates, err := h.taxRateService.List(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, rates)
}

// Create godoc
// @Summary      Add a tax rate
// @Description  Marking a rate as default clears the previous default of the same type
// @Tags         taxes
// @Accept       json
// @Produce      json
// @Param        request body salesapp.CreateTaxRateRequest true "Tax rate"
// @Success      201 {object} APIResponse[salesapp.TaxRateResponse]
// @Failure      409 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /tax-rates [post]
func (h *TaxRateHandler) Create(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	var req salesapp.CreateTaxRateRequest
	if !h.bindJSON(c, &req) {
		return
	}
	resp, err := h.taxRateService.Create(c.Request.Context(), tenantID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// Update godoc
// @Summary      Update a tax rate
// @Tags         taxes
// @Accept       json
// @Produce      json
// @Param        id path string true "Tax rate ID"
// @Param        request body salesapp.UpdateTaxRateRequest true "Tax rate"
// @Success      200 {object} APIResponse[salesapp.TaxRateResponse]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /tax-rates/{id} [put]
func (h *TaxRateHandler) Update(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req salesapp.UpdateTaxRateRequest
	if !h.bindJSON(c, &req) {
		return
	}
	resp, err := h.taxRateService.Update(c.Request.Context(), tenantID, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Delete godoc
// @Summary      Delete a tax rate
// @Tags         taxes
// @Param        id path string true "Tax rate ID"
// @Success      204
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /tax-rates/{id} [delete]
func (h *TaxRateHandler) Delete(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	if err := h.taxRateService.Delete(c.Request.Context(), tenantID, id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// Import godoc
// @Summary      Import tax rates from YAML
// @Description  Accepts the YAML document as the raw body or as a multipart "file" field. Rates are matched by name.
// @Tags         taxes
// @Accept       application/x-yaml
// @Accept       multipart/form-data
// @Produce      json
// @Param        file formData file false "YAML file"
// @Success      200 {object} APIResponse[salesapp.TaxImportResult]
// @Failure      400 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /tax-rates/import [post]
func (h *TaxRateHandler) Import(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	body := io.Reader(c.Request.Body)
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		file, _, ok := h.formFile(c, "file")
		if !ok {
			return
		}
		defer file.Close()
		body = file
	}
	result, err := h.taxRateService.Import(c.Request.Context(), tenantID, body)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// PreviewTotals godoc
// @Summary      Compute document totals
// @Description  Applies discounts, taxes and retentions to the items without storing anything
// @Tags         taxes
// @Accept       json
// @Produce      json
// @Param        request body salesapp.TotalsPreviewRequest true "Items"
// @Success      200 {object} APIResponse[salesapp.TotalsPreviewResponse]
// @Failure      400 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /totals/preview [post]
func (h *TaxRateHandler) PreviewTotals(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	var req salesapp.TotalsPreviewRequest
	if !h.bindJSON(c, &req) {
		return
	}
	resp, err := h.totalsService.Preview(c.Request.Context(), tenantID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}
