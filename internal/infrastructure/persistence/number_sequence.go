package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/ribotflow/backend/internal/domain/sales"
	"github.com/ribotflow/backend/internal/infrastructure/persistence/tenant"
	"gorm.io/gorm"
)

const nextNumberSQL = `INSERT INTO number_sequences (tenant_id, series, year, value)
VALUES (?, ?, ?, 1)
ON CONFLICT (tenant_id, series, year) DO UPDATE SET value = number_sequences.value + 1
RETURNING value`

// GormNumberSequence implements sales.NumberSequence with a single upsert, so
// concurrent callers serialise on the sequence row.
type GormNumberSequence struct {
	db *gorm.DB
}

// NewGormNumberSequence creates a new GormNumberSequence
func NewGormNumberSequence(db *gorm.DB) *GormNumberSequence {
	return &GormNumberSequence{db: db}
}

// Next reserves the next number of the series for the tenant and year
func (s *GormNumberSequence) Next(ctx context.Context, tenantID uuid.UUID, series string, year int) (int64, error) {
	var value int64
	err := tenant.Session(ctx, s.db, tenantID, func(tx *gorm.DB) error {
		return tx.Raw(nextNumberSQL, tenantID, series, year).Scan(&value).Error
	})
	return value, translate(err)
}

// Ensure GormNumberSequence implements sales.NumberSequence
var _ sales.NumberSequence = (*GormNumberSequence)(nil)
