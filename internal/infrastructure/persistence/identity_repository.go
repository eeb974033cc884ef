package persistence

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/ribotflow/backend/internal/domain/identity"
	"github.com/ribotflow/backend/internal/infrastructure/persistence/models"
	"github.com/ribotflow/backend/internal/infrastructure/persistence/tenant"
	"gorm.io/gorm"
)

// GormTenantRepository implements identity.TenantRepository using GORM.
// The tenants table is not tenant-scoped.
type GormTenantRepository struct {
	db *gorm.DB
}

// NewGormTenantRepository creates a new GormTenantRepository
func NewGormTenantRepository(db *gorm.DB) *GormTenantRepository {
	return &GormTenantRepository{db: db}
}

// FindByID finds a tenant by ID
func (r *GormTenantRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.Tenant, error) {
	var model models.TenantRecord
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		return nil, translate(err)
	}
	return model.ToDomain(), nil
}

// FindBySlug finds a tenant by slug
func (r *GormTenantRepository) FindBySlug(ctx context.Context, slug string) (*identity.Tenant, error) {
	var model models.TenantRecord
	if err := r.db.WithContext(ctx).Where("slug = ?", strings.ToLower(slug)).First(&model).Error; err != nil {
		return nil, translate(err)
	}
	return model.ToDomain(), nil
}

// ExistsBySlug checks if a tenant with the given slug exists
func (r *GormTenantRepository) ExistsBySlug(ctx context.Context, slug string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.TenantRecord{}).
		Where("slug = ?", strings.ToLower(slug)).
		Count(&count).Error
	return count > 0, translate(err)
}

// Save creates or updates a tenant
func (r *GormTenantRepository) Save(ctx context.Context, t *identity.Tenant) error {
	return translate(r.db.WithContext(ctx).Save(models.TenantRecordFromDomain(t)).Error)
}

// GormUserRepository implements identity.UserRepository using GORM
type GormUserRepository struct {
	db *gorm.DB
}

// NewGormUserRepository creates a new GormUserRepository
func NewGormUserRepository(db *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: db}
}

// FindByID finds a user of a tenant
func (r *GormUserRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*identity.User, error) {
	var model models.UserModel
	err := tenant.Session(ctx, r.db, tenantID, func(tx *gorm.DB) error {
		return tx.Where("tenant_id = ? AND id = ?", tenantID, id).First(&model).Error
	})
	if err != nil {
		return nil, translate(err)
	}
	return model.ToDomain(), nil
}

// FindByEmail finds a user by email across tenants. Used by login, before any
// tenant is known.
func (r *GormUserRepository) FindByEmail(ctx context.Context, email string) (*identity.User, error) {
	var model models.UserModel
	err := tenant.System(ctx, r.db, func(tx *gorm.DB) error {
		return tx.Where("email = ?", normalizeEmail(email)).First(&model).Error
	})
	if err != nil {
		return nil, translate(err)
	}
	return model.ToDomain(), nil
}

// ExistsByEmail checks whether any tenant already has a user with the email
func (r *GormUserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var count int64
	err := tenant.System(ctx, r.db, func(tx *gorm.DB) error {
		return tx.Model(&models.UserModel{}).Where("email = ?", normalizeEmail(email)).Count(&count).Error
	})
	return count > 0, translate(err)
}

// Save creates or updates a user
func (r *GormUserRepository) Save(ctx context.Context, user *identity.User) error {
	model := models.UserModelFromDomain(user)
	err := tenant.Session(ctx, r.db, user.TenantID, func(tx *gorm.DB) error {
		return tx.Save(model).Error
	})
	return translate(err)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

var (
	_ identity.TenantRepository = (*GormTenantRepository)(nil)
	_ identity.UserRepository   = (*GormUserRepository)(nil)
)
