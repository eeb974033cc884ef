package purchasing

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ribotflow/backend/internal/domain/partner"
	"github.com/ribotflow/backend/internal/domain/purchasing"
	"github.com/ribotflow/backend/internal/domain/shared"
	"github.com/ribotflow/backend/internal/infrastructure/ai"
	"github.com/ribotflow/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// DocumentExtractor reads structured data from a receipt or supplier invoice
type DocumentExtractor interface {
	Extract(ctx context.Context, data []byte, contentType string) (*purchasing.ExtractedDocument, error)
}

// ExtractionService turns an uploaded document into a draft expense
type ExtractionService struct {
	extractor    DocumentExtractor
	supplierRepo partner.SupplierRepository
	maxBytes     int64
	metrics      *telemetry.Metrics
	logger       *zap.Logger
}

// NewExtractionService creates a new ExtractionService
func NewExtractionService(
	extractor DocumentExtractor,
	supplierRepo partner.SupplierRepository,
	maxBytes int64,
	metrics *telemetry.Metrics,
	logger *zap.Logger,
) *ExtractionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}
	return &ExtractionService{
		extractor:    extractor,
		supplierRepo: supplierRepo,
		maxBytes:     maxBytes,
		metrics:      metrics,
		logger:       logger,
	}
}

// Extract reads the document and suggests an expense. Nothing is stored.
func (s *ExtractionService) Extract(ctx context.Context, tenantID uuid.UUID, file FileUpload) (*ExtractionResponse, error) {
	if err := checkUpload(file, s.maxBytes); err != nil {
		return nil, err
	}
	data, err := io.ReadAll(io.LimitReader(file.Body, s.maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > s.maxBytes {
		return nil, shared.NewDomainError("FILE_TOO_LARGE", "File exceeds the maximum upload size")
	}

	ctx, span := telemetry.StartServiceSpan(ctx, "expense", "extract",
		telemetry.SpanAttrTenantID, tenantID.String(),
		telemetry.SpanAttrContentType, file.ContentType,
		telemetry.SpanAttrSizeBytes, len(data))
	defer span.End()

	start := time.Now()
	doc, err := s.extractor.Extract(ctx, bytes.Clone(data), file.ContentType)
	s.metrics.RecordAI("extract", time.Since(start), err)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, extractionError(err)
	}

	supplierID := s.matchSupplier(ctx, tenantID, doc)
	telemetry.AddEvent(span, "extracted", "items", len(doc.Items), "supplier_matched", supplierID != nil)
	s.logger.Info("Expense document extracted",
		zap.String("tenant_id", tenantID.String()),
		zap.Int("items", len(doc.Items)),
		zap.Bool("supplier_matched", supplierID != nil))

	response := ToExtractionResponse(doc, supplierID)
	return &response, nil
}

// matchSupplier looks the supplier up by tax id first and by name second.
// Lookup failures are not fatal; the draft simply has no supplier.
func (s *ExtractionService) matchSupplier(ctx context.Context, tenantID uuid.UUID, doc *purchasing.ExtractedDocument) *uuid.UUID {
	if taxID := partner.NormalizeTaxID(doc.SupplierTaxID); taxID != "" {
		supplier, err := s.supplierRepo.FindByTaxID(ctx, tenantID, taxID)
		if err == nil {
			return &supplier.ID
		}
		if !shared.IsNotFound(err) {
			s.logger.Warn("Supplier lookup by tax id failed", zap.Error(err))
		}
	}
	if name := strings.TrimSpace(doc.SupplierName); name != "" {
		supplier, err := s.supplierRepo.FindByName(ctx, tenantID, name)
		if err == nil {
			return &supplier.ID
		}
		if !shared.IsNotFound(err) {
			s.logger.Warn("Supplier lookup by name failed", zap.Error(err))
		}
	}
	return nil
}

func extractionError(err error) error {
	switch {
	case errors.Is(err, ai.ErrDisabled):
		return shared.NewUnexpectedError("EXTRACTION_UNAVAILABLE", "Document extraction is not configured")
	case errors.Is(err, ai.ErrEmptyResponse), errors.Is(err, ai.ErrInvalidJSON):
		return shared.NewUnexpectedError("EXTRACTION_FAILED", "The document could not be read")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	}
	return shared.NewUnexpectedError("EXTRACTION_FAILED", "The document could not be read")
}
