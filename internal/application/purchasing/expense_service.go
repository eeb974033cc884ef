package purchasing

import (
	"context"
	"errors"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ribotflow/backend/internal/application/listing"
	"github.com/ribotflow/backend/internal/domain/partner"
	"github.com/ribotflow/backend/internal/domain/purchasing"
	"github.com/ribotflow/backend/internal/domain/shared"
	"github.com/ribotflow/backend/internal/domain/shared/service"
	"github.com/ribotflow/backend/internal/infrastructure/ai"
	"github.com/ribotflow/backend/internal/infrastructure/storage"
	"github.com/ribotflow/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// Default limits used when the service is built without explicit values
const (
	DefaultMaxUploadBytes = 50 << 20
	DefaultURLExpiration  = 15 * time.Minute
)

// FileLimits bounds uploaded files and download links
type FileLimits struct {
	MaxUploadBytes int64
	URLExpiration  time.Duration
}

func (l FileLimits) withDefaults() FileLimits {
	if l.MaxUploadBytes <= 0 {
		l.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if l.URLExpiration <= 0 {
		l.URLExpiration = DefaultURLExpiration
	}
	return l
}

// ExpenseService handles expense operations and their attachments
type ExpenseService struct {
	expenseRepo  purchasing.ExpenseRepository
	supplierRepo partner.SupplierRepository
	store        storage.ObjectStore
	limits       FileLimits
	events       shared.EventPublisher
	lists        *listing.Lists
	logger       *zap.Logger
}

// NewExpenseService creates a new ExpenseService
func NewExpenseService(
	expenseRepo purchasing.ExpenseRepository,
	supplierRepo partner.SupplierRepository,
	store storage.ObjectStore,
	limits FileLimits,
	events shared.EventPublisher,
	lists *listing.Lists,
	logger *zap.Logger,
) *ExpenseService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExpenseService{
		expenseRepo:  expenseRepo,
		supplierRepo: supplierRepo,
		store:        store,
		limits:       limits.withDefaults(),
		events:       events,
		lists:        lists,
		logger:       logger,
	}
}

// Create creates a pending expense
func (s *ExpenseService) Create(ctx context.Context, tenantID, userID uuid.UUID, req CreateExpenseRequest) (*ExpenseResponse, error) {
	if err := s.ensureSupplier(ctx, tenantID, req.SupplierID); err != nil {
		return nil, err
	}

	expense, err := purchasing.NewExpense(tenantID, userID, req.details())
	if err != nil {
		return nil, err
	}
	if err := expense.SetItems(req.items(), service.DecimalFromFloatPtr(req.DiscountPercent)); err != nil {
		return nil, err
	}

	if err := s.expenseRepo.Save(ctx, expense); err != nil {
		return nil, err
	}
	s.lists.Changed(ctx, s.events, expense, tenantID, listing.ResourceExpenses)

	response := ToExpenseResponse(expense)
	return &response, nil
}

// GetByID retrieves an expense with its items and attachments
func (s *ExpenseService) GetByID(ctx context.Context, tenantID, expenseID uuid.UUID) (*ExpenseResponse, error) {
	expense, err := s.expenseRepo.FindByIDForTenant(ctx, tenantID, expenseID)
	if err != nil {
		return nil, err
	}
	response := ToExpenseResponse(expense)
	return &response, nil
}

// List retrieves a page of expenses
func (s *ExpenseService) List(ctx context.Context, tenantID uuid.UUID, filter ExpenseListFilter) (shared.Page[ExpenseResponse], error) {
	q := filter.Query()
	return listing.Cached(ctx, s.lists, tenantID, listing.ResourceExpenses, q, func(ctx context.Context) (shared.Page[ExpenseResponse], error) {
		page, err := listing.Fetch(ctx, q,
			func(ctx context.Context, q shared.ListQuery) ([]purchasing.Expense, error) {
				return s.expenseRepo.FindAllForTenant(ctx, tenantID, q)
			},
			func(ctx context.Context, q shared.ListQuery) (int64, error) {
				return s.expenseRepo.CountForTenant(ctx, tenantID, q)
			},
		)
		if err != nil {
			return shared.Page[ExpenseResponse]{}, err
		}
		return shared.MapPage(page, func(e purchasing.Expense) ExpenseResponse {
			return ToExpenseResponse(&e)
		}), nil
	})
}

// Update replaces the header fields and items of an expense
func (s *ExpenseService) Update(ctx context.Context, tenantID, expenseID uuid.UUID, req UpdateExpenseRequest) (*ExpenseResponse, error) {
	expense, err := s.expenseRepo.FindByIDForTenant(ctx, tenantID, expenseID)
	if err != nil {
		return nil, err
	}
	if req.SupplierID != nil && (expense.SupplierID == nil || *expense.SupplierID != *req.SupplierID) {
		if err := s.ensureSupplier(ctx, tenantID, req.SupplierID); err != nil {
			return nil, err
		}
	}

	details := req.details()
	if details.ExpenseDate.IsZero() {
		details.ExpenseDate = expense.ExpenseDate
	}
	if err := expense.Update(details); err != nil {
		return nil, err
	}
	if err := expense.SetItems(req.items(), service.DecimalFromFloatPtr(req.DiscountPercent)); err != nil {
		return nil, err
	}

	if err := s.expenseRepo.Save(ctx, expense); err != nil {
		return nil, err
	}
	s.lists.Changed(ctx, s.events, expense, tenantID, listing.ResourceExpenses)

	response := ToExpenseResponse(expense)
	return &response, nil
}

// Delete removes an expense and its stored files
func (s *ExpenseService) Delete(ctx context.Context, tenantID, expenseID uuid.UUID) error {
	expense, err := s.expenseRepo.FindByIDForTenant(ctx, tenantID, expenseID)
	if err != nil {
		return err
	}
	if err := s.expenseRepo.DeleteForTenant(ctx, tenantID, expenseID); err != nil {
		return err
	}
	for _, a := range expense.Attachments {
		s.deleteObject(ctx, a)
	}

	expense.MarkDeleted()
	s.lists.Changed(ctx, s.events, expense, tenantID, listing.ResourceExpenses)
	return nil
}

// MarkPaid records the payment date. A nil date means now.
func (s *ExpenseService) MarkPaid(ctx context.Context, tenantID, expenseID uuid.UUID, req MarkExpensePaidRequest) (*ExpenseResponse, error) {
	paidAt := time.Now()
	if req.PaidAt != nil {
		paidAt = *req.PaidAt
	}
	return s.mutate(ctx, tenantID, expenseID, func(e *purchasing.Expense) error {
		return e.MarkPaid(paidAt)
	})
}

// MarkPending reverts an expense to pending
func (s *ExpenseService) MarkPending(ctx context.Context, tenantID, expenseID uuid.UUID) (*ExpenseResponse, error) {
	return s.mutate(ctx, tenantID, expenseID, func(e *purchasing.Expense) error {
		e.MarkPending()
		return nil
	})
}

func (s *ExpenseService) mutate(ctx context.Context, tenantID, expenseID uuid.UUID, apply func(*purchasing.Expense) error) (*ExpenseResponse, error) {
	expense, err := s.expenseRepo.FindByIDForTenant(ctx, tenantID, expenseID)
	if err != nil {
		return nil, err
	}
	if err := apply(expense); err != nil {
		return nil, err
	}
	if err := s.expenseRepo.Save(ctx, expense); err != nil {
		return nil, err
	}
	s.lists.Changed(ctx, s.events, expense, tenantID, listing.ResourceExpenses)

	response := ToExpenseResponse(expense)
	return &response, nil
}

// =============================================================================
// Attachments
// =============================================================================

// AddAttachment stores a file and links it to the expense
func (s *ExpenseService) AddAttachment(ctx context.Context, tenantID, expenseID uuid.UUID, file FileUpload) (*AttachmentResponse, error) {
	if err := s.checkFile(file); err != nil {
		return nil, err
	}
	expense, err := s.expenseRepo.FindByIDForTenant(ctx, tenantID, expenseID)
	if err != nil {
		return nil, err
	}
	if len(expense.Attachments) >= purchasing.MaxAttachments {
		return nil, shared.NewDomainError("TOO_MANY_ATTACHMENTS", "An expense cannot have more than 10 attachments")
	}

	ctx, span := telemetry.StartServiceSpan(ctx, "expense", "add_attachment",
		telemetry.SpanAttrTenantID, tenantID.String(),
		telemetry.SpanAttrDocumentID, expenseID.String(),
		telemetry.SpanAttrContentType, file.ContentType,
		telemetry.SpanAttrSizeBytes, file.Size)
	defer span.End()

	name := path.Base(strings.ReplaceAll(file.FileName, "\\", "/"))
	key := storage.ObjectKey(tenantID, "expenses", expenseID.String(), uuid.NewString()+"-"+name)
	if err := s.store.Put(ctx, storage.BucketExpenseAttachments, key, file.Body, file.Size, file.ContentType); err != nil {
		telemetry.RecordError(span, err)
		return nil, shared.NewUnexpectedError("UPLOAD_FAILED", "Failed to store the file")
	}

	attachment, err := expense.AddAttachment(key, file.FileName, file.ContentType, file.Size)
	if err == nil {
		err = s.expenseRepo.Save(ctx, expense)
	}
	if err != nil {
		telemetry.RecordError(span, err)
		if delErr := s.store.Delete(ctx, storage.BucketExpenseAttachments, key); delErr != nil {
			s.logger.Warn("Failed to remove orphaned attachment", zap.String("key", key), zap.Error(delErr))
		}
		return nil, err
	}
	s.lists.Changed(ctx, s.events, expense, tenantID, listing.ResourceExpenses)

	s.logger.Info("Expense attachment stored",
		zap.String("tenant_id", tenantID.String()),
		zap.String("expense_id", expenseID.String()),
		zap.Int64("size", file.Size))
	response := ToAttachmentResponse(attachment)
	return &response, nil
}

// ListAttachments returns the files of an expense
func (s *ExpenseService) ListAttachments(ctx context.Context, tenantID, expenseID uuid.UUID) ([]AttachmentResponse, error) {
	expense, err := s.expenseRepo.FindByIDForTenant(ctx, tenantID, expenseID)
	if err != nil {
		return nil, err
	}
	out := make([]AttachmentResponse, len(expense.Attachments))
	for i, a := range expense.Attachments {
		out[i] = ToAttachmentResponse(a)
	}
	return out, nil
}

// AttachmentURL returns a time-limited download link for an attachment
func (s *ExpenseService) AttachmentURL(ctx context.Context, tenantID, expenseID, attachmentID uuid.UUID) (*AttachmentURLResponse, error) {
	expense, err := s.expenseRepo.FindByIDForTenant(ctx, tenantID, expenseID)
	if err != nil {
		return nil, err
	}
	attachment, ok := expense.FindAttachment(attachmentID)
	if !ok || !storage.BelongsTo(attachment.StorageKey, tenantID) {
		return nil, shared.ErrNotFound.WithMessage("Attachment not found")
	}

	url, expiresAt, err := s.store.PresignGet(ctx, storage.BucketExpenseAttachments, attachment.StorageKey, s.limits.URLExpiration)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, shared.ErrNotFound.WithMessage("Attachment file not found")
		}
		return nil, err
	}
	return &AttachmentURLResponse{URL: url, ExpiresAt: expiresAt}, nil
}

// DeleteAttachment unlinks an attachment and removes the stored file
func (s *ExpenseService) DeleteAttachment(ctx context.Context, tenantID, expenseID, attachmentID uuid.UUID) error {
	expense, err := s.expenseRepo.FindByIDForTenant(ctx, tenantID, expenseID)
	if err != nil {
		return err
	}
	attachment, err := expense.RemoveAttachment(attachmentID)
	if err != nil {
		return err
	}
	if err := s.expenseRepo.Save(ctx, expense); err != nil {
		return err
	}
	s.deleteObject(ctx, attachment)
	s.lists.Changed(ctx, s.events, expense, tenantID, listing.ResourceExpenses)
	return nil
}

func (s *ExpenseService) deleteObject(ctx context.Context, a purchasing.Attachment) {
	err := s.store.Delete(ctx, storage.BucketExpenseAttachments, a.StorageKey)
	if err != nil && !errors.Is(err, storage.ErrObjectNotFound) {
		s.logger.Warn("Failed to delete attachment object",
			zap.String("key", a.StorageKey),
			zap.Error(err))
	}
}

func (s *ExpenseService) checkFile(file FileUpload) error {
	return checkUpload(file, s.limits.MaxUploadBytes)
}

// checkUpload validates the name, size and type of an uploaded document
func checkUpload(file FileUpload, maxBytes int64) error {
	if strings.TrimSpace(file.FileName) == "" {
		return shared.NewDomainError("INVALID_FILE", "File name is required")
	}
	if file.Size <= 0 {
		return shared.NewDomainError("EMPTY_FILE", "File is empty")
	}
	if file.Size > maxBytes {
		return shared.NewDomainError("FILE_TOO_LARGE", "File exceeds the maximum upload size")
	}
	if !IsSupportedDocument(file.ContentType) {
		return shared.NewDomainError("UNSUPPORTED_FILE_TYPE", "Only images and PDF files are accepted")
	}
	return nil
}

// IsSupportedDocument reports whether contentType can be attached or extracted
func IsSupportedDocument(contentType string) bool {
	return ai.IsImage(contentType) || contentType == "application/pdf"
}

func (s *ExpenseService) ensureSupplier(ctx context.Context, tenantID uuid.UUID, supplierID *uuid.UUID) error {
	if supplierID == nil || *supplierID == uuid.Nil {
		return nil
	}
	if _, err := s.supplierRepo.FindByIDForTenant(ctx, tenantID, *supplierID); err != nil {
		if shared.IsNotFound(err) {
			return shared.NewDomainError("INVALID_SUPPLIER", "Supplier not found")
		}
		return err
	}
	return nil
}
