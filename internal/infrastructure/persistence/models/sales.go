package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/ribotflow/backend/internal/domain/sales"
	"github.com/ribotflow/backend/internal/domain/shared/service"
	"github.com/shopspring/decimal"
)

// QuoteModel is the persistence model for the Quote aggregate
type QuoteModel struct {
	TenantModel
	Number     string            `gorm:"type:varchar(50);not null;uniqueIndex:idx_quotes_tenant_number,priority:2"`
	ContactID  uuid.UUID         `gorm:"type:uuid;not null;index"`
	IssueDate  time.Time         `gorm:"type:date;not null"`
	ExpiryDate *time.Time        `gorm:"type:date"`
	Status     sales.QuoteStatus `gorm:"type:varchar(20);not null;default:'draft';index"`
	Notes      string            `gorm:"type:text"`
	TotalsColumns
	SentAt     *time.Time
	AcceptedAt *time.Time
	DeclinedAt *time.Time
	InvoiceID  *uuid.UUID       `gorm:"type:uuid"`
	Items      []QuoteItemModel `gorm:"foreignKey:QuoteID;references:ID"`
}

// TableName returns the table name for GORM
func (QuoteModel) TableName() string {
	return "quotes"
}

// QuoteItemModel is the persistence model for a quote line
type QuoteItemModel struct {
	LineItemColumns
	QuoteID uuid.UUID `gorm:"type:uuid;not null;index"`
}

// TableName returns the table name for GORM
func (QuoteItemModel) TableName() string {
	return "quote_items"
}

// QuoteModelFromDomain creates a persistence model from a domain Quote
func QuoteModelFromDomain(q *sales.Quote) *QuoteModel {
	m := &QuoteModel{
		Number:        q.Number,
		ContactID:     q.ContactID,
		IssueDate:     q.IssueDate,
		ExpiryDate:    q.ExpiryDate,
		Status:        q.Status,
		Notes:         q.Notes,
		TotalsColumns: totalsColumnsFrom(q.DiscountPercent, q.DocumentTotals),
		SentAt:        q.SentAt,
		AcceptedAt:    q.AcceptedAt,
		DeclinedAt:    q.DeclinedAt,
		InvoiceID:     q.InvoiceID,
	}
	m.FromRoot(q.TenantAggregateRoot)
	m.Items = make([]QuoteItemModel, len(q.Items))
	for i, item := range q.Items {
		m.Items[i] = QuoteItemModel{LineItemColumns: lineColumnsFrom(q.TenantID, item.LineItem), QuoteID: q.ID}
	}
	return m
}

// ToDomain converts the model to a domain Quote. Items are only present if preloaded.
func (m *QuoteModel) ToDomain() *sales.Quote {
	q := &sales.Quote{
		TenantAggregateRoot: m.ToRoot(),
		Number:              m.Number,
		ContactID:           m.ContactID,
		IssueDate:           m.IssueDate,
		ExpiryDate:          m.ExpiryDate,
		Status:              m.Status,
		DiscountPercent:     m.DiscountPercent,
		Notes:               m.Notes,
		DocumentTotals:      m.TotalsColumns.toDocumentTotals(),
		SentAt:              m.SentAt,
		AcceptedAt:          m.AcceptedAt,
		DeclinedAt:          m.DeclinedAt,
		InvoiceID:           m.InvoiceID,
		Items:               make([]sales.QuoteItem, len(m.Items)),
	}
	for i, item := range m.Items {
		q.Items[i] = sales.QuoteItem{LineItem: item.LineItemColumns.toLineItem(), QuoteID: m.ID}
	}
	return q
}

// InvoiceModel is the persistence model for the Invoice aggregate
type InvoiceModel struct {
	TenantModel
	Number    string              `gorm:"type:varchar(50);not null;uniqueIndex:idx_invoices_tenant_number,priority:2"`
	ContactID uuid.UUID           `gorm:"type:uuid;not null;index"`
	QuoteID   *uuid.UUID          `gorm:"type:uuid"`
	IssueDate time.Time           `gorm:"type:date;not null"`
	DueDate   *time.Time          `gorm:"type:date"`
	Status    sales.InvoiceStatus `gorm:"type:varchar(20);not null;default:'draft';index"`
	Notes     string              `gorm:"type:text"`
	TotalsColumns
	IssuedAt     *time.Time
	PaidAt       *time.Time
	CancelledAt  *time.Time
	SentAt       *time.Time
	CancelReason string             `gorm:"type:varchar(500)"`
	Items        []InvoiceItemModel `gorm:"foreignKey:InvoiceID;references:ID"`
}

// TableName returns the table name for GORM
func (InvoiceModel) TableName() string {
	return "invoices"
}

// InvoiceItemModel is the persistence model for an invoice line
type InvoiceItemModel struct {
	LineItemColumns
	InvoiceID uuid.UUID `gorm:"type:uuid;not null;index"`
}

// TableName returns the table name for GORM
func (InvoiceItemModel) TableName() string {
	return "invoice_items"
}

// InvoiceModelFromDomain creates a persistence model from a domain Invoice
func InvoiceModelFromDomain(inv *sales.Invoice) *InvoiceModel {
	m := &InvoiceModel{
		Number:        inv.Number,
		ContactID:     inv.ContactID,
		QuoteID:       inv.QuoteID,
		IssueDate:     inv.IssueDate,
		DueDate:       inv.DueDate,
		Status:        inv.Status,
		Notes:         inv.Notes,
		TotalsColumns: totalsColumnsFrom(inv.DiscountPercent, inv.DocumentTotals),
		IssuedAt:      inv.IssuedAt,
		PaidAt:        inv.PaidAt,
		CancelledAt:   inv.CancelledAt,
		SentAt:        inv.SentAt,
		CancelReason:  inv.CancelReason,
	}
	m.FromRoot(inv.TenantAggregateRoot)
	m.Items = make([]InvoiceItemModel, len(inv.Items))
	for i, item := range inv.Items {
		m.Items[i] = InvoiceItemModel{LineItemColumns: lineColumnsFrom(inv.TenantID, item.LineItem), InvoiceID: inv.ID}
	}
	return m
}

// ToDomain converts the model to a domain Invoice
func (m *InvoiceModel) ToDomain() *sales.Invoice {
	inv := &sales.Invoice{
		TenantAggregateRoot: m.ToRoot(),
		Number:              m.Number,
		ContactID:           m.ContactID,
		QuoteID:             m.QuoteID,
		IssueDate:           m.IssueDate,
		DueDate:             m.DueDate,
		Status:              m.Status,
		DiscountPercent:     m.DiscountPercent,
		Notes:               m.Notes,
		DocumentTotals:      m.TotalsColumns.toDocumentTotals(),
		IssuedAt:            m.IssuedAt,
		PaidAt:              m.PaidAt,
		CancelledAt:         m.CancelledAt,
		SentAt:              m.SentAt,
		CancelReason:        m.CancelReason,
		Items:               make([]sales.InvoiceItem, len(m.Items)),
	}
	for i, item := range m.Items {
		inv.Items[i] = sales.InvoiceItem{LineItem: item.LineItemColumns.toLineItem(), InvoiceID: m.ID}
	}
	return inv
}

// TaxRateModel is the persistence model for a tax catalog entry
type TaxRateModel struct {
	TenantModel
	Name      string          `gorm:"type:varchar(50);not null;uniqueIndex:idx_tax_rates_tenant_name,priority:2"`
	Percent   decimal.Decimal `gorm:"type:decimal(5,2);not null"`
	Type      string          `gorm:"type:varchar(20);not null;default:'vat'"`
	IsDefault bool            `gorm:"not null;default:false"`
}

// TableName returns the table name for GORM
func (TaxRateModel) TableName() string {
	return "tax_rates"
}

// TaxRateModelFromDomain creates a persistence model from a domain TaxRate
func TaxRateModelFromDomain(r *sales.TaxRate) *TaxRateModel {
	m := &TaxRateModel{Name: r.Name, Percent: r.Percent, Type: string(r.Type), IsDefault: r.IsDefault}
	m.FromRoot(r.TenantAggregateRoot)
	return m
}

// ToDomain converts the model to a domain TaxRate
func (m *TaxRateModel) ToDomain() *sales.TaxRate {
	return &sales.TaxRate{
		TenantAggregateRoot: m.ToRoot(),
		Name:                m.Name,
		Percent:             m.Percent,
		Type:                service.TaxType(m.Type),
		IsDefault:           m.IsDefault,
	}
}

// NumberSequenceModel stores the last number handed out per tenant, series and year
type NumberSequenceModel struct {
	TenantID uuid.UUID `gorm:"type:uuid;primaryKey"`
	Series   string    `gorm:"type:varchar(10);primaryKey"`
	Year     int       `gorm:"primaryKey"`
	Value    int64     `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (NumberSequenceModel) TableName() string {
	return "number_sequences"
}

func totalsColumnsFrom(discount decimal.Decimal, t sales.DocumentTotals) TotalsColumns {
	return TotalsColumns{
		DiscountPercent: discount,
		Subtotal:        t.Subtotal,
		DiscountAmount:  t.DiscountAmount,
		TaxAmount:       t.TaxAmount,
		RetentionAmount: t.RetentionAmount,
		Total:           t.Total,
	}
}

func (c TotalsColumns) toDocumentTotals() sales.DocumentTotals {
	return sales.DocumentTotals{
		Subtotal:        c.Subtotal,
		DiscountAmount:  c.DiscountAmount,
		TaxAmount:       c.TaxAmount,
		RetentionAmount: c.RetentionAmount,
		Total:           c.Total,
	}
}

func lineColumnsFrom(tenantID uuid.UUID, item sales.LineItem) LineItemColumns {
	return LineItemColumns{
		ID:          item.ID,
		TenantID:    tenantID,
		Position:    item.Position,
		Description: item.Description,
		Quantity:    item.Quantity,
		UnitPrice:   item.UnitPrice,
		Amount:      item.Amount,
		Taxes:       taxRecordsFrom(item.Taxes),
		CreatedAt:   item.CreatedAt,
	}
}

func (c LineItemColumns) toLineItem() sales.LineItem {
	return sales.LineItem{
		ID:          c.ID,
		Position:    c.Position,
		Description: c.Description,
		Quantity:    c.Quantity,
		UnitPrice:   c.UnitPrice,
		Amount:      c.Amount,
		Taxes:       taxLinesFrom(c.Taxes),
		CreatedAt:   c.CreatedAt,
	}
}
