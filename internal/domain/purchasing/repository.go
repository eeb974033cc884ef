package purchasing

import (
	"context"

	"github.com/google/uuid"
	"github.com/ribotflow/backend/internal/domain/shared"
)

// ExpenseRepository defines persistence operations for expenses
type ExpenseRepository interface {
	// FindByIDForTenant loads an expense with its items and attachments
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*Expense, error)
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, query shared.ListQuery) ([]Expense, error)
	CountForTenant(ctx context.Context, tenantID uuid.UUID, query shared.ListQuery) (int64, error)
	ExistsForSupplier(ctx context.Context, tenantID, supplierID uuid.UUID) (bool, error)
	// Save inserts or updates the expense and replaces its items and attachments
	Save(ctx context.Context, expense *Expense) error
	DeleteForTenant(ctx context.Context, tenantID, id uuid.UUID) error
}
