package persistence

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/ribotflow/backend/internal/domain/sales"
	"github.com/ribotflow/backend/internal/infrastructure/persistence/models"
	"github.com/ribotflow/backend/internal/infrastructure/persistence/tenant"
	"gorm.io/gorm"
)

// GormTaxRateRepository implements sales.TaxRateRepository using GORM
type GormTaxRateRepository struct {
	db *gorm.DB
}

// NewGormTaxRateRepository creates a new GormTaxRateRepository
func NewGormTaxRateRepository(db *gorm.DB) *GormTaxRateRepository {
	return &GormTaxRateRepository{db: db}
}

// FindByIDForTenant finds a tax rate by ID
func (r *GormTaxRateRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*sales.TaxRate, error) {
	var model models.TaxRateModel
	err := tenant.Session(ctx, r.db, tenantID, func(tx *gorm.DB) error {
		return tx.Where("tenant_id = ? AND id = ?", tenantID, id).First(&model).Error
	})
	if err != nil {
		return nil, translate(err)
	}
	return model.ToDomain(), nil
}

// FindAllForTenant returns the whole catalog, defaults first
func (r *GormTaxRateRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID) ([]sales.TaxRate, error) {
	var rows []models.TaxRateModel
	err := tenant.Session(ctx, r.db, tenantID, func(tx *gorm.DB) error {
		return tx.Where("tenant_id = ?", tenantID).
			Order("is_default DESC, name ASC").
			Find(&rows).Error
	})
	if err != nil {
		return nil, translate(err)
	}
	out := make([]sales.TaxRate, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out, nil
}

// ExistsByName checks the catalog for a name, ignoring case
func (r *GormTaxRateRepository) ExistsByName(ctx context.Context, tenantID uuid.UUID, name string) (bool, error) {
	var count int64
	err := tenant.Session(ctx, r.db, tenantID, func(tx *gorm.DB) error {
		return tx.Model(&models.TaxRateModel{}).
			Where("tenant_id = ? AND LOWER(name) = ?", tenantID, strings.ToLower(strings.TrimSpace(name))).
			Count(&count).Error
	})
	return count > 0, translate(err)
}

// Save creates or updates a tax rate
func (r *GormTaxRateRepository) Save(ctx context.Context, rate *sales.TaxRate) error {
	model := models.TaxRateModelFromDomain(rate)
	err := tenant.Session(ctx, r.db, rate.TenantID, func(tx *gorm.DB) error {
		return tx.Save(model).Error
	})
	return translate(err)
}

// DeleteForTenant deletes a tax rate
func (r *GormTaxRateRepository) DeleteForTenant(ctx context.Context, tenantID, id uuid.UUID) error {
	err := tenant.Session(ctx, r.db, tenantID, func(tx *gorm.DB) error {
		result := tx.Where("tenant_id = ? AND id = ?", tenantID, id).Delete(&models.TaxRateModel{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	return translate(err)
}

// Ensure GormTaxRateRepository implements sales.TaxRateRepository
var _ sales.TaxRateRepository = (*GormTaxRateRepository)(nil)
