package persistence

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ribotflow/backend/internal/domain/partner"
	"github.com/ribotflow/backend/internal/domain/shared"
	"github.com/ribotflow/backend/internal/infrastructure/persistence/models"
	"github.com/ribotflow/backend/internal/infrastructure/persistence/tenant"
	"gorm.io/gorm"
)

var supplierList = listSpec{
	searchColumns: []string{"name", "tax_id", "email"},
	filters: []filterColumn{
		{key: "city", column: "city"},
		{key: "country", column: "country"},
	},
	sorts:       supplierSorts,
	defaultSort: "name",
}

// GormSupplierRepository implements partner.SupplierRepository using GORM
type GormSupplierRepository struct {
	db *gorm.DB
}

// NewGormSupplierRepository creates a new GormSupplierRepository
func NewGormSupplierRepository(db *gorm.DB) *GormSupplierRepository {
	return &GormSupplierRepository{db: db}
}

// FindByIDForTenant finds a supplier by ID within a tenant
func (r *GormSupplierRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*partner.Supplier, error) {
	return r.findOne(ctx, tenantID, "tenant_id = ? AND id = ?", tenantID, id)
}

// FindAllForTenant lists suppliers
func (r *GormSupplierRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, query shared.ListQuery) ([]partner.Supplier, error) {
	var rows []models.SupplierModel
	err := tenant.Session(ctx, r.db, tenantID, func(tx *gorm.DB) error {
		db := supplierList.applyFilters(tx.Model(&models.SupplierModel{}).Where("tenant_id = ?", tenantID), query)
		return supplierList.applyPaging(db, query).Find(&rows).Error
	})
	if err != nil {
		return nil, translate(err)
	}
	out := make([]partner.Supplier, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out, nil
}

// CountForTenant counts suppliers matching the query filters
func (r *GormSupplierRepository) CountForTenant(ctx context.Context, tenantID uuid.UUID, query shared.ListQuery) (int64, error) {
	var count int64
	err := tenant.Session(ctx, r.db, tenantID, func(tx *gorm.DB) error {
		db := supplierList.applyFilters(tx.Model(&models.SupplierModel{}).Where("tenant_id = ?", tenantID), query)
		return db.Count(&count).Error
	})
	return count, translate(err)
}

// FindByName finds a supplier by name, ignoring case
func (r *GormSupplierRepository) FindByName(ctx context.Context, tenantID uuid.UUID, name string) (*partner.Supplier, error) {
	return r.findOne(ctx, tenantID, "tenant_id = ? AND LOWER(name) = ?", tenantID, strings.ToLower(strings.TrimSpace(name)))
}

// ExistsByTaxID checks if a supplier with the given tax id exists
func (r *GormSupplierRepository) ExistsByTaxID(ctx context.Context, tenantID uuid.UUID, taxID string) (bool, error) {
	var count int64
	err := tenant.Session(ctx, r.db, tenantID, func(tx *gorm.DB) error {
		return tx.Model(&models.SupplierModel{}).
			Where("tenant_id = ? AND tax_id = ?", tenantID, partner.NormalizeTaxID(taxID)).
			Count(&count).Error
	})
	return count > 0, translate(err)
}

// FindByTaxID finds a supplier by its normalized tax id
func (r *GormSupplierRepository) FindByTaxID(ctx context.Context, tenantID uuid.UUID, taxID string) (*partner.Supplier, error) {
	return r.findOne(ctx, tenantID, "tenant_id = ? AND tax_id = ?", tenantID, partner.NormalizeTaxID(taxID))
}

// Save creates or updates a supplier
func (r *GormSupplierRepository) Save(ctx context.Context, supplier *partner.Supplier) error {
	model := models.SupplierModelFromDomain(supplier)
	err := tenant.Session(ctx, r.db, supplier.TenantID, func(tx *gorm.DB) error {
		return tx.Save(model).Error
	})
	return translate(err)
}

// DeleteForTenant deletes a supplier
func (r *GormSupplierRepository) DeleteForTenant(ctx context.Context, tenantID, id uuid.UUID) error {
	err := tenant.Session(ctx, r.db, tenantID, func(tx *gorm.DB) error {
		if err := tx.Model(&models.ContactModel{}).
			Where("tenant_id = ? AND supplier_id = ?", tenantID, id).
			Updates(map[string]any{"supplier_id": nil, "updated_at": time.Now().UTC()}).Error; err != nil {
			return err
		}
		result := tx.Where("tenant_id = ? AND id = ?", tenantID, id).Delete(&models.SupplierModel{})
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

func (r *GormSupplierRepository) findOne(ctx context.Context, tenantID uuid.UUID, cond string, args ...any) (*partner.Supplier, error) {
	var model models.SupplierModel
	err := tenant.Session(ctx, r.db, tenantID, func(tx *gorm.DB) error {
		return tx.Where(cond, args...).First(&model).Error
	})
	if err != nil {
		return nil, translate(err)
	}
	return model.ToDomain(), nil
}

// Ensure GormSupplierRepository implements partner.SupplierRepository
var _ partner.SupplierRepository = (*GormSupplierRepository)(nil)
