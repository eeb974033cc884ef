package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/ribotflow/backend/internal/domain/sales"
	"github.com/ribotflow/backend/internal/domain/shared"
	"github.com/ribotflow/backend/internal/infrastructure/persistence/models"
	"github.com/ribotflow/backend/internal/infrastructure/persistence/tenant"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var quoteList = listSpec{
	searchColumns: []string{"number", "notes"},
	filters: []filterColumn{
		{key: "status", column: "status"},
		{key: "contact_id", column: "contact_id"},
	},
	dateColumn:  "issue_date",
	sorts:       quoteSorts,
	defaultSort: "created_at",
}

// GormQuoteRepository implements sales.QuoteRepository using GORM
type GormQuoteRepository struct {
	db *gorm.DB
}

// NewGormQuoteRepository creates a new GormQuoteRepository
func NewGormQuoteRepository(db *gorm.DB) *GormQuoteRepository {
	return &GormQuoteRepository{db: db}
}

// FindByIDForTenant loads a quote with its items ordered by position
func (r *GormQuoteRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*sales.Quote, error) {
	var model models.QuoteModel
	err := tenant.Session(ctx, r.db, tenantID, func(tx *gorm.DB) error {
		return tx.Preload("Items", orderByPosition).
			Where("tenant_id = ? AND id = ?", tenantID, id).
			First(&model).Error
	})
	if err != nil {
		return nil, translate(err)
	}
	return model.ToDomain(), nil
}

// FindAllForTenant lists quotes without their items
func (r *GormQuoteRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, query shared.ListQuery) ([]sales.Quote, error) {
	var rows []models.QuoteModel
	err := tenant.Session(ctx, r.db, tenantID, func(tx *gorm.DB) error {
		db := quoteList.applyFilters(tx.Model(&models.QuoteModel{}).Where("tenant_id = ?", tenantID), query)
		return quoteList.applyPaging(db, query).Find(&rows).Error
	})
	if err != nil {
		return nil, translate(err)
	}
	out := make([]sales.Quote, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out, nil
}

// CountForTenant counts quotes matching the query filters
func (r *GormQuoteRepository) CountForTenant(ctx context.Context, tenantID uuid.UUID, query shared.ListQuery) (int64, error) {
	var count int64
	err := tenant.Session(ctx, r.db, tenantID, func(tx *gorm.DB) error {
		db := quoteList.applyFilters(tx.Model(&models.QuoteModel{}).Where("tenant_id = ?", tenantID), query)
		return db.Count(&count).Error
	})
	return count, translate(err)
}

// FindExpirable returns sent quotes of every tenant whose expiry date is before the given time
func (r *GormQuoteRepository) FindExpirable(ctx context.Context, before time.Time, limit int) ([]sales.Quote, error) {
	var rows []models.QuoteModel
	err := tenant.System(ctx, r.db, func(tx *gorm.DB) error {
		return tx.Where("status = ? AND expiry_date < ?", sales.QuoteStatusSent, before).
			Order("expiry_date ASC").
			Limit(limit).
			Find(&rows).Error
	})
	if err != nil {
		return nil, translate(err)
	}
	out := make([]sales.Quote, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out, nil
}

// ExistsForContact reports whether any quote references the contact
func (r *GormQuoteRepository) ExistsForContact(ctx context.Context, tenantID, contactID uuid.UUID) (bool, error) {
	var count int64
	err := tenant.Session(ctx, r.db, tenantID, func(tx *gorm.DB) error {
		return tx.Model(&models.QuoteModel{}).
			Where("tenant_id = ? AND contact_id = ?", tenantID, contactID).
			Count(&count).Error
	})
	return count > 0, translate(err)
}

// Save upserts the quote and replaces its items
func (r *GormQuoteRepository) Save(ctx context.Context, quote *sales.Quote) error {
	model := models.QuoteModelFromDomain(quote)
	err := tenant.Session(ctx, r.db, quote.TenantID, func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Save(model).Error; err != nil {
			return err
		}
		if err := tx.Where("tenant_id = ? AND quote_id = ?", quote.TenantID, quote.ID).
			Delete(&models.QuoteItemModel{}).Error; err != nil {
			return err
		}
		if len(model.Items) == 0 {
			return nil
		}
		return tx.Create(&model.Items).Error
	})
	return translate(err)
}

// DeleteForTenant removes the quote and its items
func (r *GormQuoteRepository) DeleteForTenant(ctx context.Context, tenantID, id uuid.UUID) error {
	err := tenant.Session(ctx, r.db, tenantID, func(tx *gorm.DB) error {
		if err := tx.Where("tenant_id = ? AND quote_id = ?", tenantID, id).
			Delete(&models.QuoteItemModel{}).Error; err != nil {
			return err
		}
		result := tx.Where("tenant_id = ? AND id = ?", tenantID, id).Delete(&models.QuoteModel{})
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

func orderByPosition(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC")
}

// Ensure GormQuoteRepository implements sales.QuoteRepository
var _ sales.QuoteRepository = (*GormQuoteRepository)(nil)
