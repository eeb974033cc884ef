package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/ribotflow/backend/internal/domain/purchasing"
)

// ExpenseModel is the persistence model for the Expense aggregate
type ExpenseModel struct {
	TenantModel
	SupplierID    *uuid.UUID               `gorm:"type:uuid;index"`
	InvoiceNumber string                   `gorm:"type:varchar(100)"`
	ExpenseDate   time.Time                `gorm:"type:date;not null;index"`
	Category      string                   `gorm:"type:varchar(100);index"`
	Description   string                   `gorm:"type:text"`
	PaymentMethod purchasing.PaymentMethod `gorm:"type:varchar(20);not null"`
	Status        purchasing.ExpenseStatus `gorm:"type:varchar(20);not null;default:'pending';index"`
	TotalsColumns
	PaidAt      *time.Time
	Items       []ExpenseItemModel       `gorm:"foreignKey:ExpenseID;references:ID"`
	Attachments []ExpenseAttachmentModel `gorm:"foreignKey:ExpenseID;references:ID"`
}

// TableName returns the table name for GORM
func (ExpenseModel) TableName() string {
	return "expenses"
}

// ExpenseItemModel is the persistence model for an expense line
type ExpenseItemModel struct {
	LineItemColumns
	ExpenseID uuid.UUID `gorm:"type:uuid;not null;index"`
}

// TableName returns the table name for GORM
func (ExpenseItemModel) TableName() string {
	return "expense_items"
}

// ExpenseAttachmentModel is the persistence model for a stored expense file
type ExpenseAttachmentModel struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	TenantID    uuid.UUID `gorm:"type:uuid;not null;index"`
	ExpenseID   uuid.UUID `gorm:"type:uuid;not null;index"`
	StorageKey  string    `gorm:"type:varchar(500);not null"`
	FileName    string    `gorm:"type:varchar(255);not null"`
	ContentType string    `gorm:"type:varchar(100);not null"`
	Size        int64     `gorm:"not null"`
	CreatedAt   time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ExpenseAttachmentModel) TableName() string {
	return "expense_attachments"
}

// ExpenseModelFromDomain creates a persistence model from a domain Expense
func ExpenseModelFromDomain(e *purchasing.Expense) *ExpenseModel {
	m := &ExpenseModel{
		SupplierID:    e.SupplierID,
		InvoiceNumber: e.InvoiceNumber,
		ExpenseDate:   e.ExpenseDate,
		Category:      e.Category,
		Description:   e.Description,
		PaymentMethod: e.PaymentMethod,
		Status:        e.Status,
		TotalsColumns: TotalsColumns{
			DiscountPercent: e.DiscountPercent,
			Subtotal:        e.Subtotal,
			DiscountAmount:  e.DiscountAmount,
			TaxAmount:       e.TaxAmount,
			RetentionAmount: e.RetentionAmount,
			Total:           e.Total,
		},
		PaidAt: e.PaidAt,
	}
	m.FromRoot(e.TenantAggregateRoot)
	m.Items = make([]ExpenseItemModel, len(e.Items))
	for i, item := range e.Items {
		m.Items[i] = ExpenseItemModel{
			LineItemColumns: LineItemColumns{
				ID:          item.ID,
				TenantID:    e.TenantID,
				Position:    item.Position,
				Description: item.Description,
				Quantity:    item.Quantity,
				UnitPrice:   item.UnitPrice,
				Amount:      item.Amount,
				Taxes:       taxRecordsFrom(item.Taxes),
				CreatedAt:   e.UpdatedAt,
			},
			ExpenseID: e.ID,
		}
	}
	m.Attachments = make([]ExpenseAttachmentModel, len(e.Attachments))
	for i, a := range e.Attachments {
		m.Attachments[i] = ExpenseAttachmentModel{
			ID:          a.ID,
			TenantID:    e.TenantID,
			ExpenseID:   e.ID,
			StorageKey:  a.StorageKey,
			FileName:    a.FileName,
			ContentType: a.ContentType,
			Size:        a.Size,
			CreatedAt:   a.CreatedAt,
		}
	}
	return m
}

// ToDomain converts the model to a domain Expense
func (m *ExpenseModel) ToDomain() *purchasing.Expense {
	e := &purchasing.Expense{
		TenantAggregateRoot: m.ToRoot(),
		SupplierID:          m.SupplierID,
		InvoiceNumber:       m.InvoiceNumber,
		ExpenseDate:         m.ExpenseDate,
		Category:            m.Category,
		Description:         m.Description,
		PaymentMethod:       m.PaymentMethod,
		Status:              m.Status,
		DiscountPercent:     m.DiscountPercent,
		Subtotal:            m.Subtotal,
		DiscountAmount:      m.DiscountAmount,
		TaxAmount:           m.TaxAmount,
		RetentionAmount:     m.RetentionAmount,
		Total:               m.Total,
		PaidAt:              m.PaidAt,
		Items:               make([]purchasing.ExpenseItem, len(m.Items)),
		Attachments:         make([]purchasing.Attachment, len(m.Attachments)),
	}
	for i, item := range m.Items {
		e.Items[i] = purchasing.ExpenseItem{
			ID:          item.ID,
			ExpenseID:   m.ID,
			Position:    item.Position,
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			Amount:      item.Amount,
			Taxes:       taxLinesFrom(item.Taxes),
		}
	}
	for i, a := range m.Attachments {
		e.Attachments[i] = purchasing.Attachment{
			ID:          a.ID,
			ExpenseID:   m.ID,
			StorageKey:  a.StorageKey,
			FileName:    a.FileName,
			ContentType: a.ContentType,
			Size:        a.Size,
			CreatedAt:   a.CreatedAt,
		}
	}
	return e
}
