package ai

import (
	"context"
	"fmt"

	"github.com/ribotflow/backend/internal/domain/purchasing"
	"github.com/ribotflow/backend/internal/infrastructure/config"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

const extractionPrompt = `You read receipts and supplier invoices for a Spanish small business.
Answer with a single JSON object and nothing else:
{
  "supplier": {"name": string, "tax_id": string},
  "invoice_number": string,
  "date": "YYYY-MM-DD",
  "currency": ISO 4217 code,
  "items": [{"description": string, "quantity": number, "unit_price": number, "tax_percent": number}],
  "subtotal": number,
  "tax_amount": number,
  "total": number,
  "confidence": number between 0 and 1
}
Unit prices exclude tax. Use null for anything you cannot read.`

// DocumentExtractor reads expense data from an image or PDF
type DocumentExtractor struct {
	gen     generator
	model   string
	maxSide int
	ocr     TextRecognizer
	logger  *zap.Logger
}

// NewDocumentExtractor creates an extractor. ocr may be nil.
func NewDocumentExtractor(gen *GenAIGenerator, cfg config.AIConfig, ocr TextRecognizer, logger *zap.Logger) *DocumentExtractor {
	if gen == nil {
		return newDocumentExtractor(nil, cfg, ocr, logger)
	}
	return newDocumentExtractor(gen, cfg, ocr, logger)
}

func newDocumentExtractor(gen generator, cfg config.AIConfig, ocr TextRecognizer, logger *zap.Logger) *DocumentExtractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DocumentExtractor{gen: gen, model: cfg.Model, maxSide: cfg.MaxImageSide, ocr: ocr, logger: logger}
}

// Extract returns the structured content of the document. Nothing is stored.
func (e *DocumentExtractor) Extract(ctx context.Context, data []byte, contentType string) (*purchasing.ExtractedDocument, error) {
	if e.gen == nil {
		return nil, ErrDisabled
	}
	parts := []*genai.Part{genai.NewPartFromText("Extract the document data.")}

	switch {
	case IsImage(contentType):
		normalized, err := NormalizeImage(data, e.maxSide)
		if err != nil {
			return nil, err
		}
		if hint := e.recognize(ctx, normalized); hint != "" {
			parts = append(parts, genai.NewPartFromText("OCR text, may contain errors:\n"+hint))
		}
		parts = append(parts, genai.NewPartFromBytes(normalized, "image/jpeg"))
	case contentType == "application/pdf":
		parts = append(parts, genai.NewPartFromBytes(data, contentType))
	default:
		return nil, fmt.Errorf("ai: unsupported document type %q", contentType)
	}

	raw, err := e.gen.GenerateJSON(ctx, e.model, extractionPrompt, parts)
	if err != nil {
		return nil, err
	}
	doc, err := ParseExtraction(raw)
	if err != nil {
		e.logger.Warn("Unparseable extraction response", zap.Int("length", len(raw)), zap.Error(err))
		return nil, err
	}
	e.logger.Debug("Document extracted",
		zap.String("supplier", doc.SupplierName),
		zap.Int("items", len(doc.Items)),
		zap.String("total", doc.Total.String()))
	return doc, nil
}

func (e *DocumentExtractor) recognize(ctx context.Context, image []byte) string {
	if e.ocr == nil {
		return ""
	}
	text, err := e.ocr.Recognize(ctx, image)
	if err != nil {
		e.logger.Debug("OCR pass failed", zap.Error(err))
		return ""
	}
	return text
}
