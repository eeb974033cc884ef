package partner

import (
	"context"

	"github.com/google/uuid"
	"github.com/ribotflow/backend/internal/domain/shared"
)

// SupplierRepository defines the interface for supplier persistence
type SupplierRepository interface {
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*Supplier, error)
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, query shared.ListQuery) ([]Supplier, error)
	CountForTenant(ctx context.Context, tenantID uuid.UUID, query shared.ListQuery) (int64, error)
	// FindByName returns the supplier whose name matches case-insensitively
	FindByName(ctx context.Context, tenantID uuid.UUID, name string) (*Supplier, error)
	ExistsByTaxID(ctx context.Context, tenantID uuid.UUID, taxID string) (bool, error)
	// FindByTaxID returns the supplier with the normalized tax id
	FindByTaxID(ctx context.Context, tenantID uuid.UUID, taxID string) (*Supplier, error)
	Save(ctx context.Context, supplier *Supplier) error
	DeleteForTenant(ctx context.Context, tenantID, id uuid.UUID) error
}

// ContactRepository defines the interface for contact persistence
type ContactRepository interface {
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*Contact, error)
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, query shared.ListQuery) ([]Contact, error)
	CountForTenant(ctx context.Context, tenantID uuid.UUID, query shared.ListQuery) (int64, error)
	ExistsByEmail(ctx context.Context, tenantID uuid.UUID, email string) (bool, error)
	Save(ctx context.Context, contact *Contact) error
	DeleteForTenant(ctx context.Context, tenantID, id uuid.UUID) error
}
