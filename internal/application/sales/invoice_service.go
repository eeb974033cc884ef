package sales

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/ribotflow/backend/internal/application/listing"
	"github.com/ribotflow/backend/internal/domain/partner"
	"github.com/ribotflow/backend/internal/domain/sales"
	"github.com/ribotflow/backend/internal/domain/shared"
	"github.com/ribotflow/backend/internal/domain/shared/service"
	"go.uber.org/zap"
)

// InvoiceService handles invoice operations
type InvoiceService struct {
	invoiceRepo sales.InvoiceRepository
	contactRepo partner.ContactRepository
	numbers     sales.NumberSequence
	lines       lineResolver
	delivery    *DocumentDelivery
	events      shared.EventPublisher
	lists       *listing.Lists
	logger      *zap.Logger
}

// NewInvoiceService creates a new InvoiceService
func NewInvoiceService(
	invoiceRepo sales.InvoiceRepository,
	contactRepo partner.ContactRepository,
	taxRepo sales.TaxRateRepository,
	numbers sales.NumberSequence,
	delivery *DocumentDelivery,
	events shared.EventPublisher,
	lists *listing.Lists,
	logger *zap.Logger,
) *InvoiceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InvoiceService{
		invoiceRepo: invoiceRepo,
		contactRepo: contactRepo,
		numbers:     numbers,
		lines:       lineResolver{taxRepo: taxRepo},
		delivery:    delivery,
		events:      events,
		lists:       lists,
		logger:      logger,
	}
}

// Create creates a draft invoice with the next number of the tenant
func (s *InvoiceService) Create(ctx context.Context, tenantID, userID uuid.UUID, req CreateInvoiceRequest) (*InvoiceResponse, error) {
	if err := ensureContact(ctx, s.contactRepo, tenantID, req.ContactID); err != nil {
		return nil, err
	}
	inputs, err := s.lines.resolve(ctx, tenantID, req.Items)
	if err != nil {
		return nil, err
	}

	issueDate := dateOr(req.IssueDate, today())
	dueDate := req.DueDate
	if dueDate == nil {
		dueDate = termFrom(issueDate)
	}

	number, err := nextNumber(ctx, s.numbers, tenantID, sales.SeriesInvoice, issueDate)
	if err != nil {
		return nil, err
	}
	invoice, err := sales.NewInvoice(tenantID, userID, number, req.ContactID, issueDate)
	if err != nil {
		return nil, err
	}
	if err := invoice.Update(req.ContactID, issueDate, dueDate, req.Notes); err != nil {
		return nil, err
	}
	if err := invoice.SetItems(inputs, service.DecimalFromFloatPtr(req.DiscountPercent)); err != nil {
		return nil, err
	}

	if err := s.invoiceRepo.Save(ctx, invoice); err != nil {
		return nil, err
	}
	s.lists.Changed(ctx, s.events, invoice, tenantID, listing.ResourceInvoices)

	response := ToInvoiceResponse(invoice)
	return &response, nil
}

// GetByID retrieves an invoice with its items
func (s *InvoiceService) GetByID(ctx context.Context, tenantID, invoiceID uuid.UUID) (*InvoiceResponse, error) {
	invoice, err := s.invoiceRepo.FindByIDForTenant(ctx, tenantID, invoiceID)
	if err != nil {
		return nil, err
	}
	response := ToInvoiceResponse(invoice)
	return &response, nil
}

// List retrieves a page of invoices
func (s *InvoiceService) List(ctx context.Context, tenantID uuid.UUID, filter InvoiceListFilter) (shared.Page[InvoiceResponse], error) {
	q := filter.Query()
	return listing.Cached(ctx, s.lists, tenantID, listing.ResourceInvoices, q, func(ctx context.Context) (shared.Page[InvoiceResponse], error) {
		page, err := listing.Fetch(ctx, q,
			func(ctx context.Context, q shared.ListQuery) ([]sales.Invoice, error) {
				return s.invoiceRepo.FindAllForTenant(ctx, tenantID, q)
			},
			func(ctx context.Context, q shared.ListQuery) (int64, error) {
				return s.invoiceRepo.CountForTenant(ctx, tenantID, q)
			},
		)
		if err != nil {
			return shared.Page[InvoiceResponse]{}, err
		}
		return shared.MapPage(page, func(inv sales.Invoice) InvoiceResponse {
			return ToInvoiceResponse(&inv)
		}), nil
	})
}

// Update replaces the header fields and items of a draft invoice.
// A nil due date keeps the current one.
func (s *InvoiceService) Update(ctx context.Context, tenantID, invoiceID uuid.UUID, req UpdateInvoiceRequest) (*InvoiceResponse, error) {
	invoice, err := s.invoiceRepo.FindByIDForTenant(ctx, tenantID, invoiceID)
	if err != nil {
		return nil, err
	}
	if invoice.Status != sales.InvoiceStatusDraft {
		return nil, shared.ErrInvalidState.WithMessage("Only draft invoices can be edited")
	}
	if req.ContactID != invoice.ContactID {
		if err := ensureContact(ctx, s.contactRepo, tenantID, req.ContactID); err != nil {
			return nil, err
		}
	}
	inputs, err := s.lines.resolve(ctx, tenantID, req.Items)
	if err != nil {
		return nil, err
	}

	dueDate := invoice.DueDate
	if req.DueDate != nil {
		dueDate = req.DueDate
	}
	if err := invoice.Update(req.ContactID, dateOr(req.IssueDate, invoice.IssueDate), dueDate, req.Notes); err != nil {
		return nil, err
	}
	if err := invoice.SetItems(inputs, service.DecimalFromFloatPtr(req.DiscountPercent)); err != nil {
		return nil, err
	}

	if err := s.invoiceRepo.Save(ctx, invoice); err != nil {
		return nil, err
	}
	s.lists.Changed(ctx, s.events, invoice, tenantID, listing.ResourceInvoices)

	response := ToInvoiceResponse(invoice)
	return &response, nil
}

// Delete deletes a draft invoice
func (s *InvoiceService) Delete(ctx context.Context, tenantID, invoiceID uuid.UUID) error {
	invoice, err := s.invoiceRepo.FindByIDForTenant(ctx, tenantID, invoiceID)
	if err != nil {
		return err
	}
	if err := invoice.MarkDeleted(); err != nil {
		return err
	}
	if err := s.invoiceRepo.DeleteForTenant(ctx, tenantID, invoiceID); err != nil {
		return err
	}
	s.lists.Changed(ctx, s.events, invoice, tenantID, listing.ResourceInvoices, listing.ResourceQuotes)
	return nil
}

// Issue finalises a draft invoice
func (s *InvoiceService) Issue(ctx context.Context, tenantID, invoiceID uuid.UUID) (*InvoiceResponse, error) {
	return s.transition(ctx, tenantID, invoiceID, (*sales.Invoice).Issue)
}

// MarkPaid records the payment of an issued or overdue invoice
func (s *InvoiceService) MarkPaid(ctx context.Context, tenantID, invoiceID uuid.UUID, req MarkInvoicePaidRequest) (*InvoiceResponse, error) {
	return s.transition(ctx, tenantID, invoiceID, func(inv *sales.Invoice) error {
		return inv.MarkPaid(dateOr(req.PaidAt, time.Now()))
	})
}

// Cancel voids an invoice that is not paid
func (s *InvoiceService) Cancel(ctx context.Context, tenantID, invoiceID uuid.UUID, req CancelInvoiceRequest) (*InvoiceResponse, error) {
	return s.transition(ctx, tenantID, invoiceID, func(inv *sales.Invoice) error {
		return inv.Cancel(req.Reason)
	})
}

func (s *InvoiceService) transition(ctx context.Context, tenantID, invoiceID uuid.UUID, apply func(*sales.Invoice) error) (*InvoiceResponse, error) {
	invoice, err := s.invoiceRepo.FindByIDForTenant(ctx, tenantID, invoiceID)
	if err != nil {
		return nil, err
	}
	if err := apply(invoice); err != nil {
		return nil, err
	}
	if err := s.invoiceRepo.Save(ctx, invoice); err != nil {
		return nil, err
	}
	s.lists.Changed(ctx, s.events, invoice, tenantID, listing.ResourceInvoices)

	response := ToInvoiceResponse(invoice)
	return &response, nil
}

// Send emails the invoice PDF. Only issued, overdue or paid invoices can be
// sent; nothing is saved when the delivery fails.
func (s *InvoiceService) Send(ctx context.Context, tenantID, invoiceID uuid.UUID, req SendDocumentRequest) (*SendDocumentResponse, error) {
	invoice, err := s.invoiceRepo.FindByIDForTenant(ctx, tenantID, invoiceID)
	if err != nil {
		return nil, err
	}
	if err := invoice.MarkSent(); err != nil {
		return nil, err
	}

	doc, contact, err := s.delivery.InvoiceDocument(ctx, invoice)
	if err != nil {
		return nil, err
	}
	result, err := s.delivery.Deliver(ctx, tenantID, invoice.ID, doc, contact, req)
	if err != nil {
		return nil, err
	}

	if err := s.invoiceRepo.Save(ctx, invoice); err != nil {
		return nil, err
	}
	s.lists.Changed(ctx, s.events, invoice, tenantID, listing.ResourceInvoices)
	return result, nil
}

// PDF renders the invoice without sending it
func (s *InvoiceService) PDF(ctx context.Context, tenantID, invoiceID uuid.UUID) ([]byte, string, error) {
	invoice, err := s.invoiceRepo.FindByIDForTenant(ctx, tenantID, invoiceID)
	if err != nil {
		return nil, "", err
	}
	doc, _, err := s.delivery.InvoiceDocument(ctx, invoice)
	if err != nil {
		return nil, "", err
	}
	pdf, err := s.delivery.Render(ctx, doc)
	if err != nil {
		return nil, "", err
	}
	return pdf, doc.FileName(), nil
}

// MarkOverdue flags issued invoices of all tenants whose due date has passed.
// It processes at most limit invoices and returns how many were flagged.
func (s *InvoiceService) MarkOverdue(ctx context.Context, now time.Time, limit int) (int, error) {
	due, err := s.invoiceRepo.FindOverdue(ctx, now, limit)
	if err != nil {
		return 0, err
	}

	flagged := 0
	for _, header := range due {
		if err := s.markOverdue(ctx, header.TenantID, header.ID, now); err != nil {
			s.logger.Warn("Failed to mark invoice overdue",
				zap.String("tenant_id", header.TenantID.String()),
				zap.String("invoice_id", header.ID.String()),
				zap.Error(err))
			continue
		}
		flagged++
	}
	return flagged, nil
}

func (s *InvoiceService) markOverdue(ctx context.Context, tenantID, invoiceID uuid.UUID, now time.Time) error {
	invoice, err := s.invoiceRepo.FindByIDForTenant(ctx, tenantID, invoiceID)
	if err != nil {
		return err
	}
	if err := invoice.MarkOverdue(now); err != nil {
		return err
	}
	if err := s.invoiceRepo.Save(ctx, invoice); err != nil {
		return err
	}
	s.lists.Changed(ctx, s.events, invoice, tenantID, listing.ResourceInvoices)
	return nil
}
