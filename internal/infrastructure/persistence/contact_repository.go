package persistence

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/ribotflow/backend/internal/domain/partner"
	"github.com/ribotflow/backend/internal/domain/shared"
	"github.com/ribotflow/backend/internal/infrastructure/persistence/models"
	"github.com/ribotflow/backend/internal/infrastructure/persistence/tenant"
	"gorm.io/gorm"
)

var contactList = listSpec{
	searchColumns: []string{"name", "company", "email", "phone"},
	filters: []filterColumn{
		{key: "stage", column: "stage"},
		{key: "supplier_id", column: "supplier_id"},
	},
	sorts:       contactSorts,
	defaultSort: "created_at",
}

// GormContactRepository implements partner.ContactRepository using GORM
type GormContactRepository struct {
	db *gorm.DB
}

// NewGormContactRepository creates a new GormContactRepository
func NewGormContactRepository(db *gorm.DB) *GormContactRepository {
	return &GormContactRepository{db: db}
}

// FindByIDForTenant finds a contact by ID within a tenant
func (r *GormContactRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*partner.Contact, error) {
	var model models.ContactModel
	err := tenant.Session(ctx, r.db, tenantID, func(tx *gorm.DB) error {
		return tx.Where("tenant_id = ? AND id = ?", tenantID, id).First(&model).Error
	})
	if err != nil {
		return nil, translate(err)
	}
	return model.ToDomain(), nil
}

// FindAllForTenant lists contacts
func (r *GormContactRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, query shared.ListQuery) ([]partner.Contact, error) {
	var rows []models.ContactModel
	err := tenant.Session(ctx, r.db, tenantID, func(tx *gorm.DB) error {
		db := contactList.applyFilters(tx.Model(&models.ContactModel{}).Where("tenant_id = ?", tenantID), query)
		return contactList.applyPaging(db, query).Find(&rows).Error
	})
	if err != nil {
		return nil, translate(err)
	}
	out := make([]partner.Contact, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out, nil
}

// CountForTenant counts contacts matching the query filters
func (r *GormContactRepository) CountForTenant(ctx context.Context, tenantID uuid.UUID, query shared.ListQuery) (int64, error) {
	var count int64
	err := tenant.Session(ctx, r.db, tenantID, func(tx *gorm.DB) error {
		db := contactList.applyFilters(tx.Model(&models.ContactModel{}).Where("tenant_id = ?", tenantID), query)
		return db.Count(&count).Error
	})
	return count, translate(err)
}

// ExistsByEmail checks if a contact with the given email exists, ignoring case
func (r *GormContactRepository) ExistsByEmail(ctx context.Context, tenantID uuid.UUID, email string) (bool, error) {
	var count int64
	err := tenant.Session(ctx, r.db, tenantID, func(tx *gorm.DB) error {
		return tx.Model(&models.ContactModel{}).
			Where("tenant_id = ? AND LOWER(email) = ?", tenantID, strings.ToLower(strings.TrimSpace(email))).
			Count(&count).Error
	})
	return count > 0, translate(err)
}

// Save creates or updates a contact
func (r *GormContactRepository) Save(ctx context.Context, contact *partner.Contact) error {
	model := models.ContactModelFromDomain(contact)
	err := tenant.Session(ctx, r.db, contact.TenantID, func(tx *gorm.DB) error {
		return tx.Save(model).Error
	})
	return translate(err)
}

// DeleteForTenant deletes a contact
func (r *GormContactRepository) DeleteForTenant(ctx context.Context, tenantID, id uuid.UUID) error {
	err := tenant.Session(ctx, r.db, tenantID, func(tx *gorm.DB) error {
		result := tx.Where("tenant_id = ? AND id = ?", tenantID, id).Delete(&models.ContactModel{})
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

// Ensure GormContactRepository implements partner.ContactRepository
var _ partner.ContactRepository = (*GormContactRepository)(nil)
