package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	purchasingapp "github.com/ribotflow/backend/internal/application/purchasing"
	"github.com/ribotflow/backend/internal/domain/shared"
)

// ExpenseService is the expense use case consumed by ExpenseHandler
type ExpenseService interface {
	Create(ctx context.Context, tenantID, userID uuid.UUID, req purchasingapp.CreateExpenseRequest) (*purchasingapp.ExpenseResponse, error)
	GetByID(ctx context.Context, tenantID, expenseID uuid.UUID) (*purchasingapp.ExpenseResponse, error)
	List(ctx context.Context, tenantID uuid.UUID, filter purchasingapp.ExpenseListFilter) (shared.Page[purchasingapp.ExpenseResponse], error)
	Update(ctx context.Context, tenantID, expenseID uuid.UUID, req purchasingapp.UpdateExpenseRequest) (*purchasingapp.ExpenseResponse, error)
	Delete(ctx context.Context, tenantID, expenseID uuid.UUID) error
	MarkPaid(ctx context.Context, tenantID, expenseID uuid.UUID, req purchasingapp.MarkExpensePaidRequest) (*purchasingapp.ExpenseResponse, error)
	MarkPending(ctx context.Context, tenantID, expenseID uuid.UUID) (*purchasingapp.ExpenseResponse, error)
	AddAttachment(ctx context.Context, tenantID, expenseID uuid.UUID, file purchasingapp.FileUpload) (*purchasingapp.AttachmentResponse, error)
	ListAttachments(ctx context.Context, tenantID, expenseID uuid.UUID) ([]purchasingapp.AttachmentResponse, error)
	AttachmentURL(ctx context.Context, tenantID, expenseID, attachmentID uuid.UUID) (*purchasingapp.AttachmentURLResponse, error)
	DeleteAttachment(ctx context.Context, tenantID, expenseID, attachmentID uuid.UUID) error
}

// ExtractionService reads a draft expense out of a receipt or invoice
type ExtractionService interface {
	Extract(ctx context.Context, tenantID uuid.UUID, file purchasingapp.FileUpload) (*purchasingapp.ExtractionResponse, error)
}

// ExpenseHandler handles expense endpoints
type ExpenseHandler struct {
	BaseHandler
	expenseService    ExpenseService
	extractionService ExtractionService
}

// NewExpenseHandler creates a new ExpenseHandler
func NewExpenseHandler(expenseService ExpenseService, extractionService ExtractionService) *ExpenseHandler {
	return &ExpenseHandler{expenseService: expenseService, extractionService: extractionService}
}

// Create godoc
// @Summary      Record an expense
// @Tags         expenses
// @Accept       json
// @Produce      json
// @Param        Idempotency-Key header string false "Replays the first response for a repeated key"
// @Param        request body purchasingapp.CreateExpenseRequest true "Expense"
// @Success      201 {object} APIResponse[purchasingapp.ExpenseResponse]
// @Failure      400 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /expenses [post]
func (h *ExpenseHandler) Create(c *gin.Context) {
	tenantID, userID, ok := h.caller(c)
	if !ok {
		return
	}
	var req purchasingapp.CreateExpenseRequest
	if !h.bindJSON(c, &req) {
		return
	}
	resp, err := h.expenseService.Create(c.Request.Context(), tenantID, userID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// GetByID godoc
// @Summary      Get an expense
// @Tags         expenses
// @Produce      json
// @Param        id path string true "Expense ID"
// @Success      200 {object} APIResponse[purchasingapp.ExpenseResponse]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /expenses/{id} [get]
func (h *ExpenseHandler) GetByID(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	resp, err := h.expenseService.GetByID(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// List godoc
// @Summary      List expenses
// @Tags         expenses
// @Produce      json
// @Param        search query string false "Search supplier, number or category"
// @Param        supplier_id query string false "Supplier ID"
// @Param        category query string false "Category"
// @Param        status query string false "pending or paid"
// @Param        payment_method query string false "Payment method"
// @Param        date_from query string false "Dated on or after (YYYY-MM-DD)"
// @Param        date_to query string false "Dated on or before (YYYY-MM-DD)"
// @Param        page query int false "Page" default(1)
// @Param        page_size query int false "Page size" default(20)
// @Success      200 {object} APIResponse[[]purchasingapp.ExpenseResponse]
// @Security     BearerAuth
// @Router       /expenses [get]
func (h *ExpenseHandler) List(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	var filter purchasingapp.ExpenseListFilter
	if !h.bindQuery(c, &filter) {
		return
	}
	page, err := h.expenseService.List(c.Request.Context(), tenantID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	respondPage(c, page)
}

// Update godoc
// @Summary      Update an expense
// @Tags         expenses
// @Accept       json
// @Produce      json
// @Param        id path string true "Expense ID"
// @Param        request body purchasingapp.UpdateExpenseRequest true "Expense"
// @Success      200 {object} APIResponse[purchasingapp.ExpenseResponse]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /expenses/{id} [put]
func (h *ExpenseHandler) Update(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req purchasingapp.UpdateExpenseRequest
	if !h.bindJSON(c, &req) {
		return
	}
	resp, err := h.expenseService.Update(c.Request.Context(), tenantID, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Delete godoc
// @Summary      Delete an expense and its attachments
// @Tags         expenses
// @Param        id path string true "Expense ID"
// @Success      204
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /expenses/{id} [delete]
func (h *ExpenseHandler) Delete(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	if err := h.expenseService.Delete(c.Request.Context(), tenantID, id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// MarkPaid godoc
// @Summary      Mark an expense as paid
// @Tags         expenses
// @Accept       json
// @Produce      json
// @Param        id path string true "Expense ID"
// @Param        request body purchasingapp.MarkExpensePaidRequest false "Payment"
// @Success      200 {object} APIResponse[purchasingapp.ExpenseResponse]
// @Security     BearerAuth
// @Router       /expenses/{id}/mark-paid [post]
func (h *ExpenseHandler) MarkPaid(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req purchasingapp.MarkExpensePaidRequest
	if c.Request.ContentLength > 0 && !h.bindJSON(c, &req) {
		return
	}
	resp, err := h.expenseService.MarkPaid(c.Request.Context(), tenantID, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// MarkPending godoc
// @Summary      Mark an expense as pending
// @Tags         expenses
// @Produce      json
// @Param        id path string true "Expense ID"
// @Success      200 {object} APIResponse[purchasingapp.ExpenseResponse]
// @Security     BearerAuth
// @Router       /expenses/{id}/mark-pending [post]
func (h *ExpenseHandler) MarkPending(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	resp, err := h.expenseService.MarkPending(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// AddAttachment godoc
// @Summary      Attach a receipt to an expense
// @Description  Images and PDF documents only
// @Tags         expenses
// @Accept       multipart/form-data
// @Produce      json
// @Param        id path string true "Expense ID"
// @Param        file formData file true "Receipt"
// @Success      201 {object} APIResponse[purchasingapp.AttachmentResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      413 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /expenses/{id}/attachments [post]
func (h *ExpenseHandler) AddAttachment(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	upload, closeFn, ok := h.upload(c)
	if !ok {
		return
	}
	defer closeFn()
	resp, err := h.expenseService.AddAttachment(c.Request.Context(), tenantID, id, upload)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// ListAttachments godoc
// @Summary      List the attachments of an expense
// @Tags         expenses
// @Produce      json
// @Param        id path string true "Expense ID"
// @Success      200 {object} APIResponse[[]purchasingapp.AttachmentResponse]
// @Security     BearerAuth
// @Router       /expenses/{id}/attachments [get]
func (h *ExpenseHandler) ListAttachments(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	resp, err := h.expenseService.ListAttachments(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// AttachmentURL godoc
// @Summary      Get a temporary download URL for an attachment
// @Tags         expenses
// @Produce      json
// @Param        id path string true "Expense ID"
// @Param        attachmentId path string true "Attachment ID"
// @Success      200 {object} APIResponse[purchasingapp.AttachmentURLResponse]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /expenses/{id}/attachments/{attachmentId}/url [get]
func (h *ExpenseHandler) AttachmentURL(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	attachmentID, ok := h.pathID(c, "attachmentId")
	if !ok {
		return
	}
	resp, err := h.expenseService.AttachmentURL(c.Request.Context(), tenantID, id, attachmentID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// DeleteAttachment godoc
// @Summary      Remove an attachment
// @Tags         expenses
// @Param        id path string true "Expense ID"
// @Param        attachmentId path string true "Attachment ID"
// @Success      204
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /expenses/{id}/attachments/{attachmentId} [delete]
func (h *ExpenseHandler) DeleteAttachment(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	attachmentID, ok := h.pathID(c, "attachmentId")
	if !ok {
		return
	}
	if err := h.expenseService.DeleteAttachment(c.Request.Context(), tenantID, id, attachmentID); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// Extract godoc
// @Summary      Read a draft expense from a document
// @Description  Runs OCR and AI extraction over a receipt or invoice. Nothing is stored.
// @Tags         expenses
// @Accept       multipart/form-data
// @Produce      json
// @Param        file formData file true "Receipt or invoice"
// @Success      200 {object} APIResponse[purchasingapp.ExtractionResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      502 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /expenses/extract [post]
func (h *ExpenseHandler) Extract(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	upload, closeFn, ok := h.upload(c)
	if !ok {
		return
	}
	defer closeFn()
	resp, err := h.extractionService.Extract(c.Request.Context(), tenantID, upload)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

func (h *ExpenseHandler) upload(c *gin.Context) (purchasingapp.FileUpload, func(), bool) {
	file, header, ok := h.formFile(c, "file")
	if !ok {
		return purchasingapp.FileUpload{}, nil, false
	}
	return purchasingapp.FileUpload{
		FileName:    header.Filename,
		ContentType: contentType(header, file),
		Size:        header.Size,
		Body:        file,
	}, func() { _ = file.Close() }, true
}
