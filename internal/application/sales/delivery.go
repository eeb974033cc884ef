package sales

import (
	"bytes"
	"context"
	"fmt"
	netmail "net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ribotflow/backend/internal/domain/identity"
	"github.com/ribotflow/backend/internal/domain/partner"
	"github.com/ribotflow/backend/internal/domain/sales"
	"github.com/ribotflow/backend/internal/domain/shared"
	"github.com/ribotflow/backend/internal/infrastructure/mail"
	"github.com/ribotflow/backend/internal/infrastructure/printing"
	"github.com/ribotflow/backend/internal/infrastructure/storage"
	"github.com/ribotflow/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// Printer renders documents to PDF
type Printer interface {
	PDF(ctx context.Context, doc *printing.Document) ([]byte, error)
}

// DocumentDelivery renders quotes and invoices, archives the PDF in the
// documents bucket and emails it
type DocumentDelivery struct {
	printer     Printer
	mailer      mail.Sender
	store       storage.ObjectStore
	tenantRepo  identity.TenantRepository
	contactRepo partner.ContactRepository
	metrics     *telemetry.Metrics
	logger      *zap.Logger
}

// NewDocumentDelivery creates a new DocumentDelivery
func NewDocumentDelivery(
	printer Printer,
	mailer mail.Sender,
	store storage.ObjectStore,
	tenantRepo identity.TenantRepository,
	contactRepo partner.ContactRepository,
	metrics *telemetry.Metrics,
	logger *zap.Logger,
) *DocumentDelivery {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DocumentDelivery{
		printer:     printer,
		mailer:      mailer,
		store:       store,
		tenantRepo:  tenantRepo,
		contactRepo: contactRepo,
		metrics:     metrics,
		logger:      logger,
	}
}

// QuoteDocument builds the printable view of a quote
func (d *DocumentDelivery) QuoteDocument(ctx context.Context, q *sales.Quote) (*printing.Document, *partner.Contact, error) {
	tenant, contact, err := d.parties(ctx, q.TenantID, q.ContactID)
	if err != nil {
		return nil, nil, err
	}
	return printing.NewQuoteDocument(q, tenant, contact), contact, nil
}

// InvoiceDocument builds the printable view of an invoice
func (d *DocumentDelivery) InvoiceDocument(ctx context.Context, inv *sales.Invoice) (*printing.Document, *partner.Contact, error) {
	tenant, contact, err := d.parties(ctx, inv.TenantID, inv.ContactID)
	if err != nil {
		return nil, nil, err
	}
	return printing.NewInvoiceDocument(inv, tenant, contact), contact, nil
}

// Render returns the PDF bytes of doc
func (d *DocumentDelivery) Render(ctx context.Context, doc *printing.Document) ([]byte, error) {
	pdf, err := d.printer.PDF(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("render %s %s: %w", doc.Kind, doc.Number, err)
	}
	return pdf, nil
}

// Deliver renders doc, stores the PDF and emails it. The recipient is
// req.To, or the contact's email when req.To is empty.
func (d *DocumentDelivery) Deliver(ctx context.Context, tenantID, documentID uuid.UUID, doc *printing.Document, contact *partner.Contact, req SendDocumentRequest) (resp *SendDocumentResponse, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, string(doc.Kind), "send",
		telemetry.SpanAttrTenantID, tenantID.String(),
		telemetry.SpanAttrDocumentID, documentID.String(),
		telemetry.SpanAttrDocumentType, string(doc.Kind))
	defer span.End()
	defer func() {
		telemetry.RecordError(span, err)
		d.metrics.RecordDocumentSent(string(doc.Kind), err)
	}()

	to, err := recipient(req, contact)
	if err != nil {
		return nil, err
	}

	pdf, err := d.Render(ctx, doc)
	if err != nil {
		return nil, err
	}
	telemetry.AddEvent(span, "rendered", telemetry.SpanAttrSizeBytes, len(pdf))

	key := storage.ObjectKey(tenantID, string(doc.Kind)+"s", documentID.String(), doc.FileName())
	if d.store != nil {
		if err := d.store.Put(ctx, storage.BucketDocuments, key, bytes.NewReader(pdf), int64(len(pdf)), "application/pdf"); err != nil {
			return nil, fmt.Errorf("store %s %s: %w", doc.Kind, doc.Number, err)
		}
	}

	msg, err := mail.DocumentMessage(doc, to, pdf, strings.TrimSpace(req.Message))
	if err != nil {
		return nil, err
	}
	err = d.mailer.Send(ctx, msg)
	d.metrics.RecordEmail(err)
	if err != nil {
		d.logger.Warn("Failed to email document",
			zap.String("tenant_id", tenantID.String()),
			zap.String("kind", string(doc.Kind)),
			zap.String("number", doc.Number),
			zap.Error(err))
		return nil, shared.NewUnexpectedError("EMAIL_FAILED", "The document could not be emailed")
	}

	d.logger.Info("Document sent",
		zap.String("tenant_id", tenantID.String()),
		zap.String("kind", string(doc.Kind)),
		zap.String("number", doc.Number))
	return &SendDocumentResponse{
		SentTo:     to.Address,
		FileName:   doc.FileName(),
		StorageKey: key,
		SentAt:     time.Now(),
	}, nil
}

func (d *DocumentDelivery) parties(ctx context.Context, tenantID, contactID uuid.UUID) (*identity.Tenant, *partner.Contact, error) {
	tenant, err := d.tenantRepo.FindByID(ctx, tenantID)
	if err != nil {
		return nil, nil, err
	}
	contact, err := d.contactRepo.FindByIDForTenant(ctx, tenantID, contactID)
	if err != nil {
		if !shared.IsNotFound(err) {
			return nil, nil, err
		}
		contact = nil
	}
	return tenant, contact, nil
}

func recipient(req SendDocumentRequest, contact *partner.Contact) (netmail.Address, error) {
	to := netmail.Address{Address: strings.TrimSpace(req.To), Name: strings.TrimSpace(req.Name)}
	if to.Address == "" && contact != nil {
		to.Address = contact.Email
		if to.Name == "" {
			to.Name = contact.Name
		}
	}
	if to.Address == "" {
		return netmail.Address{}, shared.NewDomainError("MISSING_RECIPIENT", "The contact has no email address")
	}
	return to, nil
}
