package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/ribotflow/backend/internal/domain/purchasing"
	"github.com/ribotflow/backend/internal/domain/shared"
	"github.com/ribotflow/backend/internal/infrastructure/persistence/models"
	"github.com/ribotflow/backend/internal/infrastructure/persistence/tenant"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var expenseList = listSpec{
	searchColumns: []string{"description", "invoice_number"},
	filters: []filterColumn{
		{key: "supplier_id", column: "supplier_id"},
		{key: "category", column: "category"},
		{key: "status", column: "status"},
		{key: "payment_method", column: "payment_method"},
	},
	dateColumn:  "expense_date",
	sorts:       expenseSorts,
	defaultSort: "expense_date",
}

// GormExpenseRepository implements purchasing.ExpenseRepository using GORM
type GormExpenseRepository struct {
	db *gorm.DB
}

// NewGormExpenseRepository creates a new GormExpenseRepository
func NewGormExpenseRepository(db *gorm.DB) *GormExpenseRepository {
	return &GormExpenseRepository{db: db}
}

// FindByIDForTenant loads an expense with its items and attachments
func (r *GormExpenseRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*purchasing.Expense, error) {
	var model models.ExpenseModel
	err := tenant.Session(ctx, r.db, tenantID, func(tx *gorm.DB) error {
		return tx.Preload("Items", orderByPosition).
			Preload("Attachments", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
			Where("tenant_id = ? AND id = ?", tenantID, id).
			First(&model).Error
	})
	if err != nil {
		return nil, translate(err)
	}
	return model.ToDomain(), nil
}

// FindAllForTenant lists expenses without items or attachments
func (r *GormExpenseRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, query shared.ListQuery) ([]purchasing.Expense, error) {
	var rows []models.ExpenseModel
	err := tenant.Session(ctx, r.db, tenantID, func(tx *gorm.DB) error {
		db := expenseList.applyFilters(tx.Model(&models.ExpenseModel{}).Where("tenant_id = ?", tenantID), query)
		return expenseList.applyPaging(db, query).Find(&rows).Error
	})
	if err != nil {
		return nil, translate(err)
	}
	out := make([]purchasing.Expense, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out, nil
}

// CountForTenant counts expenses matching the query filters
func (r *GormExpenseRepository) CountForTenant(ctx context.Context, tenantID uuid.UUID, query shared.ListQuery) (int64, error) {
	var count int64
	err := tenant.Session(ctx, r.db, tenantID, func(tx *gorm.DB) error {
		db := expenseList.applyFilters(tx.Model(&models.ExpenseModel{}).Where("tenant_id = ?", tenantID), query)
		return db.Count(&count).Error
	})
	return count, translate(err)
}

// ExistsForSupplier reports whether any expense references the supplier
func (r *GormExpenseRepository) ExistsForSupplier(ctx context.Context, tenantID, supplierID uuid.UUID) (bool, error) {
	var count int64
	err := tenant.Session(ctx, r.db, tenantID, func(tx *gorm.DB) error {
		return tx.Model(&models.ExpenseModel{}).
			Where("tenant_id = ? AND supplier_id = ?", tenantID, supplierID).
			Count(&count).Error
	})
	return count > 0, translate(err)
}

// Save upserts the expense and replaces its items and attachment rows
func (r *GormExpenseRepository) Save(ctx context.Context, expense *purchasing.Expense) error {
	model := models.ExpenseModelFromDomain(expense)
	err := tenant.Session(ctx, r.db, expense.TenantID, func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Save(model).Error; err != nil {
			return err
		}
		if err := tx.Where("tenant_id = ? AND expense_id = ?", expense.TenantID, expense.ID).
			Delete(&models.ExpenseItemModel{}).Error; err != nil {
			return err
		}
		if err := tx.Where("tenant_id = ? AND expense_id = ?", expense.TenantID, expense.ID).
			Delete(&models.ExpenseAttachmentModel{}).Error; err != nil {
			return err
		}
		if len(model.Items) > 0 {
			if err := tx.Create(&model.Items).Error; err != nil {
				return err
			}
		}
		if len(model.Attachments) > 0 {
			return tx.Create(&model.Attachments).Error
		}
		return nil
	})
	return translate(err)
}

// DeleteForTenant removes the expense with its items and attachment rows.
// Stored files are removed by the caller.
func (r *GormExpenseRepository) DeleteForTenant(ctx context.Context, tenantID, id uuid.UUID) error {
	err := tenant.Session(ctx, r.db, tenantID, func(tx *gorm.DB) error {
		if err := tx.Where("tenant_id = ? AND expense_id = ?", tenantID, id).
			Delete(&models.ExpenseItemModel{}).Error; err != nil {
			return err
		}
		if err := tx.Where("tenant_id = ? AND expense_id = ?", tenantID, id).
			Delete(&models.ExpenseAttachmentModel{}).Error; err != nil {
			return err
		}
		result := tx.Where("tenant_id = ? AND id = ?", tenantID, id).Delete(&models.ExpenseModel{})
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

// Ensure GormExpenseRepository implements purchasing.ExpenseRepository
var _ purchasing.ExpenseRepository = (*GormExpenseRepository)(nil)
