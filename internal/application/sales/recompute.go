package sales

import (
	"context"

	"github.com/google/uuid"
	"github.com/ribotflow/backend/internal/domain/sales"
	"github.com/ribotflow/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// RecomputeResult counts the drafts whose stored totals were corrected
type RecomputeResult struct {
	QuotesChecked   int `json:"quotes_checked"`
	QuotesFixed     int `json:"quotes_fixed"`
	InvoicesChecked int `json:"invoices_checked"`
	InvoicesFixed   int `json:"invoices_fixed"`
}

// Recomputer refreshes the stored totals of draft documents from their items.
// Issued invoices and sent quotes keep the totals the customer saw.
type Recomputer struct {
	quoteRepo   sales.QuoteRepository
	invoiceRepo sales.InvoiceRepository
	logger      *zap.Logger
}

// NewRecomputer creates a recomputer
func NewRecomputer(quoteRepo sales.QuoteRepository, invoiceRepo sales.InvoiceRepository, logger *zap.Logger) *Recomputer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recomputer{quoteRepo: quoteRepo, invoiceRepo: invoiceRepo, logger: logger}
}

// Tenant recomputes every draft quote and invoice of the tenant. With dryRun
// nothing is saved.
func (r *Recomputer) Tenant(ctx context.Context, tenantID uuid.UUID, dryRun bool) (*RecomputeResult, error) {
	res := &RecomputeResult{}

	err := eachDraft(func(q shared.ListQuery) ([]uuid.UUID, error) {
		quotes, err := r.quoteRepo.FindAllForTenant(ctx, tenantID, q)
		ids := make([]uuid.UUID, len(quotes))
		for i := range quotes {
			ids[i] = quotes[i].ID
		}
		return ids, err
	}, string(sales.QuoteStatusDraft), func(id uuid.UUID) error {
		quote, err := r.quoteRepo.FindByIDForTenant(ctx, tenantID, id)
		if err != nil {
			return err
		}
		res.QuotesChecked++
		before := quote.DocumentTotals
		quote.Recalculate()
		if sameTotals(before, quote.DocumentTotals) {
			return nil
		}
		res.QuotesFixed++
		r.logger.Info("Quote totals corrected",
			zap.String("number", quote.Number),
			zap.String("old_total", before.Total.String()),
			zap.String("new_total", quote.Total.String()))
		if dryRun {
			return nil
		}
		return r.quoteRepo.Save(ctx, quote)
	})
	if err != nil {
		return nil, err
	}

	err = eachDraft(func(q shared.ListQuery) ([]uuid.UUID, error) {
		invoices, err := r.invoiceRepo.FindAllForTenant(ctx, tenantID, q)
		ids := make([]uuid.UUID, len(invoices))
		for i := range invoices {
			ids[i] = invoices[i].ID
		}
		return ids, err
	}, string(sales.InvoiceStatusDraft), func(id uuid.UUID) error {
		invoice, err := r.invoiceRepo.FindByIDForTenant(ctx, tenantID, id)
		if err != nil {
			return err
		}
		res.InvoicesChecked++
		before := invoice.DocumentTotals
		invoice.Recalculate()
		if sameTotals(before, invoice.DocumentTotals) {
			return nil
		}
		res.InvoicesFixed++
		r.logger.Info("Invoice totals corrected",
			zap.String("number", invoice.Number),
			zap.String("old_total", before.Total.String()),
			zap.String("new_total", invoice.Total.String()))
		if dryRun {
			return nil
		}
		return r.invoiceRepo.Save(ctx, invoice)
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// eachDraft pages through the ids returned by find, oldest first
func eachDraft(find func(shared.ListQuery) ([]uuid.UUID, error), status string, fn func(uuid.UUID) error) error {
	q := shared.NewListQuery()
	q.PageSize = shared.MaxPageSize
	q.SortDir = "asc"
	q.Filters["status"] = status
	for {
		ids, err := find(q)
		if err != nil {
			return err
		}
		for _, id := range ids {
			if err := fn(id); err != nil {
				return err
			}
		}
		if len(ids) < q.PageSize {
			return nil
		}
		q.Page++
	}
}

func sameTotals(a, b sales.DocumentTotals) bool {
	return a.Subtotal.Equal(b.Subtotal) &&
		a.DiscountAmount.Equal(b.DiscountAmount) &&
		a.TaxAmount.Equal(b.TaxAmount) &&
		a.RetentionAmount.Equal(b.RetentionAmount) &&
		a.Total.Equal(b.Total)
}
