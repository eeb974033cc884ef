package sales

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/ribotflow/backend/internal/domain/shared"
)

// QuoteRepository defines persistence operations for quotes
type QuoteRepository interface {
	// FindByIDForTenant loads a quote with its items
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*Quote, error)
	// FindAllForTenant lists quotes without items
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, query shared.ListQuery) ([]Quote, error)
	CountForTenant(ctx context.Context, tenantID uuid.UUID, query shared.ListQuery) (int64, error)
	// FindExpirable returns sent quotes of all tenants whose expiry date is before the given time
	FindExpirable(ctx context.Context, before time.Time, limit int) ([]Quote, error)
	ExistsForContact(ctx context.Context, tenantID, contactID uuid.UUID) (bool, error)
	// Save inserts or updates the quote and replaces its items
	Save(ctx context.Context, quote *Quote) error
	DeleteForTenant(ctx context.Context, tenantID, id uuid.UUID) error
}

// InvoiceRepository defines persistence operations for invoices
type InvoiceRepository interface {
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*Invoice, error)
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, query shared.ListQuery) ([]Invoice, error)
	CountForTenant(ctx context.Context, tenantID uuid.UUID, query shared.ListQuery) (int64, error)
	// FindOverdue returns issued invoices of all tenants due before the given time
	FindOverdue(ctx context.Context, before time.Time, limit int) ([]Invoice, error)
	ExistsForContact(ctx context.Context, tenantID, contactID uuid.UUID) (bool, error)
	Save(ctx context.Context, invoice *Invoice) error
	DeleteForTenant(ctx context.Context, tenantID, id uuid.UUID) error
}

// TaxRateRepository defines persistence operations for the tax catalog
type TaxRateRepository interface {
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*TaxRate, error)
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID) ([]TaxRate, error)
	ExistsByName(ctx context.Context, tenantID uuid.UUID, name string) (bool, error)
	Save(ctx context.Context, rate *TaxRate) error
	DeleteForTenant(ctx context.Context, tenantID, id uuid.UUID) error
}
