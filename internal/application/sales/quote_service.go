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

// QuoteService handles quote operations
type QuoteService struct {
	quoteRepo   sales.QuoteRepository
	invoiceRepo sales.InvoiceRepository
	contactRepo partner.ContactRepository
	numbers     sales.NumberSequence
	lines       lineResolver
	delivery    *DocumentDelivery
	events      shared.EventPublisher
	lists       *listing.Lists
	logger      *zap.Logger
}

// NewQuoteService creates a new QuoteService
func NewQuoteService(
	quoteRepo sales.QuoteRepository,
	invoiceRepo sales.InvoiceRepository,
	contactRepo partner.ContactRepository,
	taxRepo sales.TaxRateRepository,
	numbers sales.NumberSequence,
	delivery *DocumentDelivery,
	events shared.EventPublisher,
	lists *listing.Lists,
	logger *zap.Logger,
) *QuoteService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QuoteService{
		quoteRepo:   quoteRepo,
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

// Create creates a draft quote with the next number of the tenant
func (s *QuoteService) Create(ctx context.Context, tenantID, userID uuid.UUID, req CreateQuoteRequest) (*QuoteResponse, error) {
	if err := ensureContact(ctx, s.contactRepo, tenantID, req.ContactID); err != nil {
		return nil, err
	}
	inputs, err := s.lines.resolve(ctx, tenantID, req.Items)
	if err != nil {
		return nil, err
	}

	issueDate := dateOr(req.IssueDate, today())
	expiryDate := req.ExpiryDate
	if expiryDate == nil {
		expiryDate = termFrom(issueDate)
	}

	number, err := nextNumber(ctx, s.numbers, tenantID, sales.SeriesQuote, issueDate)
	if err != nil {
		return nil, err
	}
	quote, err := sales.NewQuote(tenantID, userID, number, req.ContactID, issueDate)
	if err != nil {
		return nil, err
	}
	if err := quote.Update(req.ContactID, issueDate, expiryDate, req.Notes); err != nil {
		return nil, err
	}
	if err := quote.SetItems(inputs, service.DecimalFromFloatPtr(req.DiscountPercent)); err != nil {
		return nil, err
	}

	if err := s.quoteRepo.Save(ctx, quote); err != nil {
		return nil, err
	}
	s.lists.Changed(ctx, s.events, quote, tenantID, listing.ResourceQuotes)

	response := ToQuoteResponse(quote)
	return &response, nil
}

// GetByID retrieves a quote with its items
func (s *QuoteService) GetByID(ctx context.Context, tenantID, quoteID uuid.UUID) (*QuoteResponse, error) {
	quote, err := s.quoteRepo.FindByIDForTenant(ctx, tenantID, quoteID)
	if err != nil {
		return nil, err
	}
	response := ToQuoteResponse(quote)
	return &response, nil
}

// List retrieves a page of quotes. Items are not loaded.
func (s *QuoteService) List(ctx context.Context, tenantID uuid.UUID, filter QuoteListFilter) (shared.Page[QuoteResponse], error) {
	q := filter.Query()
	return listing.Cached(ctx, s.lists, tenantID, listing.ResourceQuotes, q, func(ctx context.Context) (shared.Page[QuoteResponse], error) {
		page, err := listing.Fetch(ctx, q,
			func(ctx context.Context, q shared.ListQuery) ([]sales.Quote, error) {
				return s.quoteRepo.FindAllForTenant(ctx, tenantID, q)
			},
			func(ctx context.Context, q shared.ListQuery) (int64, error) {
				return s.quoteRepo.CountForTenant(ctx, tenantID, q)
			},
		)
		if err != nil {
			return shared.Page[QuoteResponse]{}, err
		}
		return shared.MapPage(page, func(quote sales.Quote) QuoteResponse {
			return ToQuoteResponse(&quote)
		}), nil
	})
}

// Update replaces the header fields and items of a draft or sent quote.
// A nil expiry date keeps the current one.
func (s *QuoteService) Update(ctx context.Context, tenantID, quoteID uuid.UUID, req UpdateQuoteRequest) (*QuoteResponse, error) {
	quote, err := s.quoteRepo.FindByIDForTenant(ctx, tenantID, quoteID)
	if err != nil {
		return nil, err
	}
	if req.ContactID != quote.ContactID {
		if err := ensureContact(ctx, s.contactRepo, tenantID, req.ContactID); err != nil {
			return nil, err
		}
	}
	inputs, err := s.lines.resolve(ctx, tenantID, req.Items)
	if err != nil {
		return nil, err
	}

	expiryDate := quote.ExpiryDate
	if req.ExpiryDate != nil {
		expiryDate = req.ExpiryDate
	}
	if err := quote.Update(req.ContactID, dateOr(req.IssueDate, quote.IssueDate), expiryDate, req.Notes); err != nil {
		return nil, err
	}
	if err := quote.SetItems(inputs, service.DecimalFromFloatPtr(req.DiscountPercent)); err != nil {
		return nil, err
	}

	if err := s.quoteRepo.Save(ctx, quote); err != nil {
		return nil, err
	}
	s.lists.Changed(ctx, s.events, quote, tenantID, listing.ResourceQuotes)

	response := ToQuoteResponse(quote)
	return &response, nil
}

// Delete deletes a draft, declined or expired quote
func (s *QuoteService) Delete(ctx context.Context, tenantID, quoteID uuid.UUID) error {
	quote, err := s.quoteRepo.FindByIDForTenant(ctx, tenantID, quoteID)
	if err != nil {
		return err
	}
	if err := quote.MarkDeleted(); err != nil {
		return err
	}
	if err := s.quoteRepo.DeleteForTenant(ctx, tenantID, quoteID); err != nil {
		return err
	}
	s.lists.Changed(ctx, s.events, quote, tenantID, listing.ResourceQuotes)
	return nil
}

// Send emails the quote PDF and marks the quote as sent. Nothing is saved
// when the delivery fails.
func (s *QuoteService) Send(ctx context.Context, tenantID, quoteID uuid.UUID, req SendDocumentRequest) (*SendDocumentResponse, error) {
	quote, err := s.quoteRepo.FindByIDForTenant(ctx, tenantID, quoteID)
	if err != nil {
		return nil, err
	}
	if err := quote.MarkSent(); err != nil {
		return nil, err
	}

	doc, contact, err := s.delivery.QuoteDocument(ctx, quote)
	if err != nil {
		return nil, err
	}
	result, err := s.delivery.Deliver(ctx, tenantID, quote.ID, doc, contact, req)
	if err != nil {
		return nil, err
	}

	if err := s.quoteRepo.Save(ctx, quote); err != nil {
		return nil, err
	}
	s.lists.Changed(ctx, s.events, quote, tenantID, listing.ResourceQuotes)
	return result, nil
}

// PDF renders the quote without sending it
func (s *QuoteService) PDF(ctx context.Context, tenantID, quoteID uuid.UUID) ([]byte, string, error) {
	quote, err := s.quoteRepo.FindByIDForTenant(ctx, tenantID, quoteID)
	if err != nil {
		return nil, "", err
	}
	doc, _, err := s.delivery.QuoteDocument(ctx, quote)
	if err != nil {
		return nil, "", err
	}
	pdf, err := s.delivery.Render(ctx, doc)
	if err != nil {
		return nil, "", err
	}
	return pdf, doc.FileName(), nil
}

// Accept marks the quote as accepted
func (s *QuoteService) Accept(ctx context.Context, tenantID, quoteID uuid.UUID) (*QuoteResponse, error) {
	return s.transition(ctx, tenantID, quoteID, (*sales.Quote).Accept)
}

// Decline marks the quote as declined
func (s *QuoteService) Decline(ctx context.Context, tenantID, quoteID uuid.UUID) (*QuoteResponse, error) {
	return s.transition(ctx, tenantID, quoteID, (*sales.Quote).Decline)
}

// Reopen moves a declined or expired quote back to draft
func (s *QuoteService) Reopen(ctx context.Context, tenantID, quoteID uuid.UUID) (*QuoteResponse, error) {
	return s.transition(ctx, tenantID, quoteID, (*sales.Quote).Reopen)
}

func (s *QuoteService) transition(ctx context.Context, tenantID, quoteID uuid.UUID, apply func(*sales.Quote) error) (*QuoteResponse, error) {
	quote, err := s.quoteRepo.FindByIDForTenant(ctx, tenantID, quoteID)
	if err != nil {
		return nil, err
	}
	if err := apply(quote); err != nil {
		return nil, err
	}
	if err := s.quoteRepo.Save(ctx, quote); err != nil {
		return nil, err
	}
	s.lists.Changed(ctx, s.events, quote, tenantID, listing.ResourceQuotes)

	response := ToQuoteResponse(quote)
	return &response, nil
}

// ConvertToInvoice creates a draft invoice from an accepted quote and marks
// the quote as invoiced. The invoice is removed again if the quote cannot be
// updated.
func (s *QuoteService) ConvertToInvoice(ctx context.Context, tenantID, userID, quoteID uuid.UUID, req ConvertQuoteRequest) (*InvoiceResponse, error) {
	quote, err := s.quoteRepo.FindByIDForTenant(ctx, tenantID, quoteID)
	if err != nil {
		return nil, err
	}
	if quote.Status != sales.QuoteStatusAccepted {
		return nil, shared.ErrInvalidState.WithMessage("Only accepted quotes can be converted to an invoice")
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
	invoice, err := sales.NewInvoiceFromQuote(quote, userID, number, issueDate, dueDate)
	if err != nil {
		return nil, err
	}
	if err := s.invoiceRepo.Save(ctx, invoice); err != nil {
		return nil, err
	}

	if err := quote.MarkInvoiced(invoice.ID); err != nil {
		s.discardInvoice(ctx, invoice)
		return nil, err
	}
	if err := s.quoteRepo.Save(ctx, quote); err != nil {
		s.discardInvoice(ctx, invoice)
		return nil, err
	}

	s.lists.Changed(ctx, s.events, invoice, tenantID, listing.ResourceInvoices)
	s.lists.Changed(ctx, s.events, quote, tenantID, listing.ResourceQuotes)

	response := ToInvoiceResponse(invoice)
	return &response, nil
}

func (s *QuoteService) discardInvoice(ctx context.Context, invoice *sales.Invoice) {
	if err := s.invoiceRepo.DeleteForTenant(ctx, invoice.TenantID, invoice.ID); err != nil {
		s.logger.Error("Failed to remove invoice of a failed quote conversion",
			zap.String("tenant_id", invoice.TenantID.String()),
			zap.String("invoice_id", invoice.ID.String()),
			zap.Error(err))
	}
}

// ExpireDue expires sent quotes whose expiry date has passed. It processes at
// most limit quotes across all tenants and returns how many were expired.
func (s *QuoteService) ExpireDue(ctx context.Context, now time.Time, limit int) (int, error) {
	due, err := s.quoteRepo.FindExpirable(ctx, now, limit)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, header := range due {
		if err := s.expire(ctx, header.TenantID, header.ID, now); err != nil {
			s.logger.Warn("Failed to expire quote",
				zap.String("tenant_id", header.TenantID.String()),
				zap.String("quote_id", header.ID.String()),
				zap.Error(err))
			continue
		}
		expired++
	}
	return expired, nil
}

// expire reloads the quote with its items since Save replaces them
func (s *QuoteService) expire(ctx context.Context, tenantID, quoteID uuid.UUID, now time.Time) error {
	quote, err := s.quoteRepo.FindByIDForTenant(ctx, tenantID, quoteID)
	if err != nil {
		return err
	}
	if err := quote.Expire(now); err != nil {
		return err
	}
	if err := s.quoteRepo.Save(ctx, quote); err != nil {
		return err
	}
	s.lists.Changed(ctx, s.events, quote, tenantID, listing.ResourceQuotes)
	return nil
}
