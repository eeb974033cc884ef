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

var invoiceList = listSpec{
	searchColumns: []string{"number", "notes"},
	filters: []filterColumn{
		{key: "status", column: "status"},
		{key: "contact_id", column: "contact_id"},
		{key: "quote_id", column: "quote_id"},
	},
	dateColumn:  "issue_date",
	sorts:       invoiceSorts,
	defaultSort: "created_at",
}

// GormInvoiceRepository implements sales.InvoiceRepository using GORM
type GormInvoiceRepository struct {
	db *gorm.DB
}

// NewGormInvoiceRepository creates a new GormInvoiceRepository
func NewGormInvoiceRepository(db *gorm.DB) *GormInvoiceRepository {
	return &GormInvoiceRepository{db: db}
}

// FindByIDForTenant loads an invoice with its items ordered by position
func (r *GormInvoiceRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*sales.Invoice, error) {
	var model models.InvoiceModel
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

// FindAllForTenant lists invoices without their items
func (r *GormInvoiceRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, query shared.ListQuery) ([]sales.Invoice, error) {
	var rows []models.InvoiceModel
	err := tenant.Session(ctx, r.db, tenantID, func(tx *gorm.DB) error {
		db := invoiceList.applyFilters(tx.Model(&models.InvoiceModel{}).Where("tenant_id = ?", tenantID), query)
		return invoiceList.applyPaging(db, query).Find(&rows).Error
	})
	if err != nil {
		return nil, translate(err)
	}
	out := make([]sales.Invoice, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out, nil
}

// CountForTenant counts invoices matching the query filters
func (r *GormInvoiceRepository) CountForTenant(ctx context.Context, tenantID uuid.UUID, query shared.ListQuery) (int64, error) {
	var count int64
	err := tenant.Session(ctx, r.db, tenantID, func(tx *gorm.DB) error {
		db := invoiceList.applyFilters(tx.Model(&models.InvoiceModel{}).Where("tenant_id = ?", tenantID), query)
		return db.Count(&count).Error
	})
	return count, translate(err)
}

// FindOverdue returns issued invoices of every tenant whose due date is before the given time
func (r *GormInvoiceRepository) FindOverdue(ctx context.Context, before time.Time, limit int) ([]sales.Invoice, error) {
	var rows []models.InvoiceModel
	err := tenant.System(ctx, r.db, func(tx *gorm.DB) error {
		return tx.Where("status = ? AND due_date < ?", sales.InvoiceStatusIssued, before).
			Order("due_date ASC").
			Limit(limit).
			Find(&rows).Error
	})
	if err != nil {
		return nil, translate(err)
	}
	out := make([]sales.Invoice, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out, nil
}

// ExistsForContact reports whether any invoice references the contact
func (r *GormInvoiceRepository) ExistsForContact(ctx context.Context, tenantID, contactID uuid.UUID) (bool, error) {
	var count int64
	err := tenant.Session(ctx, r.db, tenantID, func(tx *gorm.DB) error {
		return tx.Model(&models.InvoiceModel{}).
			Where("tenant_id = ? AND contact_id = ?", tenantID, contactID).
			Count(&count).Error
	})
	return count > 0, translate(err)
}

// Save upserts the invoice and replaces its items
func (r *GormInvoiceRepository) Save(ctx context.Context, invoice *sales.Invoice) error {
	model := models.InvoiceModelFromDomain(invoice)
	err := tenant.Session(ctx, r.db, invoice.TenantID, func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Save(model).Error; err != nil {
			return err
		}
		if err := tx.Where("tenant_id = ? AND invoice_id = ?", invoice.TenantID, invoice.ID).
			Delete(&models.InvoiceItemModel{}).Error; err != nil {
			return err
		}
		if len(model.Items) == 0 {
			return nil
		}
		return tx.Create(&model.Items).Error
	})
	return translate(err)
}

// DeleteForTenant removes the invoice and its items
func (r *GormInvoiceRepository) DeleteForTenant(ctx context.Context, tenantID, id uuid.UUID) error {
	err := tenant.Session(ctx, r.db, tenantID, func(tx *gorm.DB) error {
		if err := tx.Where("tenant_id = ? AND invoice_id = ?", tenantID, id).
			Delete(&models.InvoiceItemModel{}).Error; err != nil {
			return err
		}
		result := tx.Where("tenant_id = ? AND id = ?", tenantID, id).Delete(&models.InvoiceModel{})
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

// Ensure GormInvoiceRepository implements sales.InvoiceRepository
var _ sales.InvoiceRepository = (*GormInvoiceRepository)(nil)
