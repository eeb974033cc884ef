package sales

import (
	"time"

	"github.com/google/uuid"
	"github.com/ribotflow/backend/internal/application/listing"
	"github.com/ribotflow/backend/internal/domain/sales"
	"github.com/ribotflow/backend/internal/domain/shared"
	"github.com/ribotflow/backend/internal/domain/shared/service"
	"github.com/shopspring/decimal"
)

// =============================================================================
// Line item DTOs
// =============================================================================

// TaxLineRequest is a tax applied to a line item
type TaxLineRequest struct {
	Name    string   `json:"name" binding:"required,max=50"`
	Percent *float64 `json:"percent"`
	Type    string   `json:"type" binding:"omitempty,oneof=vat retention"`
}

// LineItemRequest is a line of a quote, an invoice or a totals preview.
// Missing numbers count as zero. TaxRateIDs pull rates from the tenant catalog
// and are applied after the explicit Taxes.
type LineItemRequest struct {
	Description string           `json:"description" binding:"max=500"`
	Quantity    *float64         `json:"quantity"`
	UnitPrice   *float64         `json:"unit_price"`
	Taxes       []TaxLineRequest `json:"taxes" binding:"omitempty,dive"`
	TaxRateIDs  []uuid.UUID      `json:"tax_rate_ids"`
}

func (r TaxLineRequest) toDomain() service.TaxLine {
	return service.TaxLine{
		Name:    r.Name,
		Percent: service.DecimalFromFloatPtr(r.Percent),
		Type:    service.TaxType(r.Type),
	}
}

// TaxLineResponse is a tax applied to a line item
type TaxLineResponse struct {
	Name    string          `json:"name"`
	Percent decimal.Decimal `json:"percent"`
	Type    string          `json:"type"`
}

// LineItemResponse represents a quote or invoice line in API responses
type LineItemResponse struct {
	ID          uuid.UUID         `json:"id"`
	Position    int               `json:"position"`
	Description string            `json:"description"`
	Quantity    decimal.Decimal   `json:"quantity"`
	UnitPrice   decimal.Decimal   `json:"unit_price"`
	Amount      decimal.Decimal   `json:"amount"`
	Taxes       []TaxLineResponse `json:"taxes"`
}

// TotalsResponse is the totals block of a document
type TotalsResponse struct {
	Subtotal        decimal.Decimal `json:"subtotal"`
	DiscountAmount  decimal.Decimal `json:"discount_amount"`
	TaxAmount       decimal.Decimal `json:"tax_amount"`
	RetentionAmount decimal.Decimal `json:"retention_amount"`
	Total           decimal.Decimal `json:"total"`
}

// TaxBreakdownResponse is one row of the per-tax summary
type TaxBreakdownResponse struct {
	Name    string          `json:"name"`
	Type    string          `json:"type"`
	Percent decimal.Decimal `json:"percent"`
	Base    decimal.Decimal `json:"base"`
	Amount  decimal.Decimal `json:"amount"`
}

// TotalsPreviewRequest computes totals for unsaved items
type TotalsPreviewRequest struct {
	Items           []LineItemRequest `json:"items" binding:"omitempty,dive"`
	DiscountPercent *float64          `json:"discount_percent"`
}

// TotalsPreviewResponse is the full calculation of a preview
type TotalsPreviewResponse struct {
	Subtotal        decimal.Decimal        `json:"subtotal"`
	DiscountPercent decimal.Decimal        `json:"discount_percent"`
	DiscountAmount  decimal.Decimal        `json:"discount_amount"`
	TaxableBase     decimal.Decimal        `json:"taxable_base"`
	TaxAmount       decimal.Decimal        `json:"tax_amount"`
	RetentionAmount decimal.Decimal        `json:"retention_amount"`
	Total           decimal.Decimal        `json:"total"`
	Breakdown       []TaxBreakdownResponse `json:"breakdown"`
}

// =============================================================================
// Quote DTOs
// =============================================================================

// CreateQuoteRequest represents a request to create a quote. The number is
// assigned by the server.
type CreateQuoteRequest struct {
	ContactID       uuid.UUID         `json:"contact_id" binding:"required"`
	IssueDate       *time.Time        `json:"issue_date"`
	ExpiryDate      *time.Time        `json:"expiry_date"`
	DiscountPercent *float64          `json:"discount_percent"`
	Notes           string            `json:"notes" binding:"max=2000"`
	Items           []LineItemRequest `json:"items" binding:"omitempty,dive"`
}

// UpdateQuoteRequest represents a request to update a quote. Items replace
// the current items.
type UpdateQuoteRequest = CreateQuoteRequest

// QuoteListFilter represents filter options for the quote list
type QuoteListFilter struct {
	listing.Params
	listing.DateRange
	Status    string `form:"status" binding:"omitempty,oneof=draft sent accepted declined expired invoiced"`
	ContactID string `form:"contact_id" binding:"omitempty,uuid"`
}

// Query builds the repository query
func (f QuoteListFilter) Query() shared.ListQuery {
	q := f.Params.Query()
	if f.Status != "" {
		q.Filters["status"] = f.Status
	}
	if id, err := uuid.Parse(f.ContactID); err == nil {
		q.Filters["contact_id"] = id
	}
	f.DateRange.Apply(q)
	return q
}

// QuoteResponse represents a quote in API responses
type QuoteResponse struct {
	ID              uuid.UUID          `json:"id"`
	TenantID        uuid.UUID          `json:"tenant_id"`
	Number          string             `json:"number"`
	ContactID       uuid.UUID          `json:"contact_id"`
	IssueDate       time.Time          `json:"issue_date"`
	ExpiryDate      *time.Time         `json:"expiry_date,omitempty"`
	Status          string             `json:"status"`
	DiscountPercent decimal.Decimal    `json:"discount_percent"`
	Notes           string             `json:"notes"`
	Items           []LineItemResponse `json:"items"`
	TotalsResponse
	SentAt     *time.Time `json:"sent_at,omitempty"`
	AcceptedAt *time.Time `json:"accepted_at,omitempty"`
	DeclinedAt *time.Time `json:"declined_at,omitempty"`
	InvoiceID  *uuid.UUID `json:"invoice_id,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// ConvertQuoteRequest sets the dates of the invoice created from a quote
type ConvertQuoteRequest struct {
	IssueDate *time.Time `json:"issue_date"`
	DueDate   *time.Time `json:"due_date"`
}

// =============================================================================
// Invoice DTOs
// =============================================================================

// CreateInvoiceRequest represents a request to create an invoice
type CreateInvoiceRequest struct {
	ContactID       uuid.UUID         `json:"contact_id" binding:"required"`
	IssueDate       *time.Time        `json:"issue_date"`
	DueDate         *time.Time        `json:"due_date"`
	DiscountPercent *float64          `json:"discount_percent"`
	Notes           string            `json:"notes" binding:"max=2000"`
	Items           []LineItemRequest `json:"items" binding:"omitempty,dive"`
}

// UpdateInvoiceRequest represents a request to update a draft invoice
type UpdateInvoiceRequest = CreateInvoiceRequest

// MarkInvoicePaidRequest records a payment
type MarkInvoicePaidRequest struct {
	PaidAt *time.Time `json:"paid_at"`
}

// CancelInvoiceRequest represents a request to cancel an invoice
type CancelInvoiceRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

// InvoiceListFilter represents filter options for the invoice list
type InvoiceListFilter struct {
	listing.Params
	listing.DateRange
	Status    string `form:"status" binding:"omitempty,oneof=draft issued paid overdue cancelled"`
	ContactID string `form:"contact_id" binding:"omitempty,uuid"`
	QuoteID   string `form:"quote_id" binding:"omitempty,uuid"`
}

// Query builds the repository query
func (f InvoiceListFilter) Query() shared.ListQuery {
	q := f.Params.Query()
	if f.Status != "" {
		q.Filters["status"] = f.Status
	}
	if id, err := uuid.Parse(f.ContactID); err == nil {
		q.Filters["contact_id"] = id
	}
	if id, err := uuid.Parse(f.QuoteID); err == nil {
		q.Filters["quote_id"] = id
	}
	f.DateRange.Apply(q)
	return q
}

// InvoiceResponse represents an invoice in API responses
type InvoiceResponse struct {
	ID              uuid.UUID          `json:"id"`
	TenantID        uuid.UUID          `json:"tenant_id"`
	Number          string             `json:"number"`
	ContactID       uuid.UUID          `json:"contact_id"`
	QuoteID         *uuid.UUID         `json:"quote_id,omitempty"`
	IssueDate       time.Time          `json:"issue_date"`
	DueDate         *time.Time         `json:"due_date,omitempty"`
	Status          string             `json:"status"`
	DiscountPercent decimal.Decimal    `json:"discount_percent"`
	Notes           string             `json:"notes"`
	Items           []LineItemResponse `json:"items"`
	TotalsResponse
	IssuedAt     *time.Time `json:"issued_at,omitempty"`
	PaidAt       *time.Time `json:"paid_at,omitempty"`
	CancelledAt  *time.Time `json:"cancelled_at,omitempty"`
	CancelReason string     `json:"cancel_reason,omitempty"`
	SentAt       *time.Time `json:"sent_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// =============================================================================
// Delivery DTOs
// =============================================================================

// SendDocumentRequest represents a request to email a quote or invoice.
// An empty To sends to the contact's email.
type SendDocumentRequest struct {
	To      string `json:"to" binding:"omitempty,email,max=200"`
	Name    string `json:"name" binding:"max=200"`
	Message string `json:"message" binding:"max=2000"`
}

// SendDocumentResponse reports a delivered document
type SendDocumentResponse struct {
	SentTo     string    `json:"sent_to"`
	FileName   string    `json:"file_name"`
	StorageKey string    `json:"storage_key"`
	SentAt     time.Time `json:"sent_at"`
}

// =============================================================================
// Tax rate DTOs
// =============================================================================

// CreateTaxRateRequest represents a request to add a catalog tax rate
type CreateTaxRateRequest struct {
	Name      string  `json:"name" binding:"required,min=1,max=50"`
	Percent   float64 `json:"percent" binding:"min=0,max=100"`
	Type      string  `json:"type" binding:"omitempty,oneof=vat retention"`
	IsDefault bool    `json:"is_default"`
}

// UpdateTaxRateRequest represents a request to update a catalog tax rate
type UpdateTaxRateRequest = CreateTaxRateRequest

// TaxRateResponse represents a catalog tax rate in API responses
type TaxRateResponse struct {
	ID        uuid.UUID       `json:"id"`
	Name      string          `json:"name"`
	Percent   decimal.Decimal `json:"percent"`
	Type      string          `json:"type"`
	IsDefault bool            `json:"is_default"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// TaxImportResult reports a catalog import
type TaxImportResult struct {
	Created int      `json:"created"`
	Updated int      `json:"updated"`
	Skipped []string `json:"skipped,omitempty"`
}

// =============================================================================
// Converters
// =============================================================================

func toLineItemResponse(item sales.LineItem) LineItemResponse {
	taxes := make([]TaxLineResponse, len(item.Taxes))
	for i, t := range item.Taxes {
		taxes[i] = TaxLineResponse{Name: t.Name, Percent: t.Percent, Type: string(t.Type)}
	}
	return LineItemResponse{
		ID:          item.ID,
		Position:    item.Position,
		Description: item.Description,
		Quantity:    item.Quantity,
		UnitPrice:   item.UnitPrice,
		Amount:      item.Amount,
		Taxes:       taxes,
	}
}

func toTotalsResponse(t sales.DocumentTotals) TotalsResponse {
	return TotalsResponse{
		Subtotal:        t.Subtotal,
		DiscountAmount:  t.DiscountAmount,
		TaxAmount:       t.TaxAmount,
		RetentionAmount: t.RetentionAmount,
		Total:           t.Total,
	}
}

// ToQuoteResponse converts a domain Quote to QuoteResponse
func ToQuoteResponse(q *sales.Quote) QuoteResponse {
	items := make([]LineItemResponse, len(q.Items))
	for i, item := range q.Items {
		items[i] = toLineItemResponse(item.LineItem)
	}
	return QuoteResponse{
		ID:              q.ID,
		TenantID:        q.TenantID,
		Number:          q.Number,
		ContactID:       q.ContactID,
		IssueDate:       q.IssueDate,
		ExpiryDate:      q.ExpiryDate,
		Status:          q.Status.String(),
		DiscountPercent: q.DiscountPercent,
		Notes:           q.Notes,
		Items:           items,
		TotalsResponse:  toTotalsResponse(q.DocumentTotals),
		SentAt:          q.SentAt,
		AcceptedAt:      q.AcceptedAt,
		DeclinedAt:      q.DeclinedAt,
		InvoiceID:       q.InvoiceID,
		CreatedAt:       q.CreatedAt,
		UpdatedAt:       q.UpdatedAt,
	}
}

// ToInvoiceResponse converts a domain Invoice to InvoiceResponse
func ToInvoiceResponse(inv *sales.Invoice) InvoiceResponse {
	items := make([]LineItemResponse, len(inv.Items))
	for i, item := range inv.Items {
		items[i] = toLineItemResponse(item.LineItem)
	}
	return InvoiceResponse{
		ID:              inv.ID,
		TenantID:        inv.TenantID,
		Number:          inv.Number,
		ContactID:       inv.ContactID,
		QuoteID:         inv.QuoteID,
		IssueDate:       inv.IssueDate,
		DueDate:         inv.DueDate,
		Status:          inv.Status.String(),
		DiscountPercent: inv.DiscountPercent,
		Notes:           inv.Notes,
		Items:           items,
		TotalsResponse:  toTotalsResponse(inv.DocumentTotals),
		IssuedAt:        inv.IssuedAt,
		PaidAt:          inv.PaidAt,
		CancelledAt:     inv.CancelledAt,
		CancelReason:    inv.CancelReason,
		SentAt:          inv.SentAt,
		CreatedAt:       inv.CreatedAt,
		UpdatedAt:       inv.UpdatedAt,
	}
}

// ToTaxRateResponse converts a domain TaxRate to TaxRateResponse
func ToTaxRateResponse(r *sales.TaxRate) TaxRateResponse {
	return TaxRateResponse{
		ID:        r.ID,
		Name:      r.Name,
		Percent:   r.Percent,
		Type:      string(r.Type),
		IsDefault: r.IsDefault,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

// ToTotalsPreviewResponse converts a calculation result
func ToTotalsPreviewResponse(t service.Totals) TotalsPreviewResponse {
	breakdown := make([]TaxBreakdownResponse, len(t.Breakdown))
	for i, b := range t.Breakdown {
		breakdown[i] = TaxBreakdownResponse{
			Name:    b.Name,
			Type:    string(b.Type),
			Percent: b.Percent,
			Base:    b.Base,
			Amount:  b.Amount,
		}
	}
	return TotalsPreviewResponse{
		Subtotal:        t.Subtotal,
		DiscountPercent: t.DiscountPercent,
		DiscountAmount:  t.DiscountAmount,
		TaxableBase:     t.TaxableBase,
		TaxAmount:       t.TaxAmount,
		RetentionAmount: t.RetentionAmount,
		Total:           t.Total,
		Breakdown:       breakdown,
	}
}
