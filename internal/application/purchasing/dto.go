package purchasing

import (
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/ribotflow/backend/internal/application/listing"
	"github.com/ribotflow/backend/internal/domain/purchasing"
	"github.com/ribotflow/backend/internal/domain/shared"
	"github.com/ribotflow/backend/internal/domain/shared/service"
	"github.com/shopspring/decimal"
)

// =============================================================================
// Expense DTOs
// =============================================================================

// ExpenseTaxRequest is a tax applied to an expense line
type ExpenseTaxRequest struct {
	Name    string   `json:"name" binding:"required,max=50"`
	Percent *float64 `json:"percent"`
	Type    string   `json:"type" binding:"omitempty,oneof=vat retention"`
}

// ExpenseItemRequest is a line of an expense. Missing numbers count as zero.
type ExpenseItemRequest struct {
	Description string              `json:"description" binding:"required,max=500"`
	Quantity    *float64            `json:"quantity"`
	UnitPrice   *float64            `json:"unit_price"`
	Taxes       []ExpenseTaxRequest `json:"taxes" binding:"omitempty,dive"`
}

// CreateExpenseRequest represents a request to create an expense
type CreateExpenseRequest struct {
	SupplierID      *uuid.UUID           `json:"supplier_id"`
	InvoiceNumber   string               `json:"invoice_number" binding:"max=100"`
	ExpenseDate     *time.Time           `json:"expense_date"`
	Category        string               `json:"category" binding:"max=100"`
	Description     string               `json:"description" binding:"max=1000"`
	PaymentMethod   string               `json:"payment_method" binding:"omitempty,oneof=cash card transfer direct_debit other"`
	DiscountPercent *float64             `json:"discount_percent"`
	Items           []ExpenseItemRequest `json:"items" binding:"omitempty,dive"`
}

// UpdateExpenseRequest represents a request to update an expense
type UpdateExpenseRequest = CreateExpenseRequest

// MarkExpensePaidRequest records the payment of an expense
type MarkExpensePaidRequest struct {
	PaidAt *time.Time `json:"paid_at"`
}

// ExpenseListFilter represents filter options for the expense list
type ExpenseListFilter struct {
	listing.Params
	listing.DateRange
	SupplierID    string `form:"supplier_id" binding:"omitempty,uuid"`
	Category      string `form:"category" binding:"max=100"`
	Status        string `form:"status" binding:"omitempty,oneof=pending paid"`
	PaymentMethod string `form:"payment_method" binding:"omitempty,oneof=cash card transfer direct_debit other"`
}

// Query builds the repository query
func (f ExpenseListFilter) Query() shared.ListQuery {
	q := f.Params.Query()
	if id, err := uuid.Parse(f.SupplierID); err == nil {
		q.Filters["supplier_id"] = id
	}
	if f.Category != "" {
		q.Filters["category"] = f.Category
	}
	if f.Status != "" {
		q.Filters["status"] = f.Status
	}
	if f.PaymentMethod != "" {
		q.Filters["payment_method"] = f.PaymentMethod
	}
	f.DateRange.Apply(q)
	return q
}

// ExpenseTaxResponse is a tax applied to an expense line
type ExpenseTaxResponse struct {
	Name    string          `json:"name"`
	Percent decimal.Decimal `json:"percent"`
	Type    string          `json:"type"`
}

// ExpenseItemResponse represents an expense line in API responses
type ExpenseItemResponse struct {
	ID          uuid.UUID            `json:"id"`
	Position    int                  `json:"position"`
	Description string               `json:"description"`
	Quantity    decimal.Decimal      `json:"quantity"`
	UnitPrice   decimal.Decimal      `json:"unit_price"`
	Amount      decimal.Decimal      `json:"amount"`
	Taxes       []ExpenseTaxResponse `json:"taxes"`
}

// AttachmentResponse represents a stored expense file
type AttachmentResponse struct {
	ID          uuid.UUID `json:"id"`
	FileName    string    `json:"file_name"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	CreatedAt   time.Time `json:"created_at"`
}

// AttachmentURLResponse is a time-limited download link
type AttachmentURLResponse struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ExpenseResponse represents an expense in API responses
type ExpenseResponse struct {
	ID              uuid.UUID             `json:"id"`
	TenantID        uuid.UUID             `json:"tenant_id"`
	SupplierID      *uuid.UUID            `json:"supplier_id,omitempty"`
	InvoiceNumber   string                `json:"invoice_number"`
	ExpenseDate     time.Time             `json:"expense_date"`
	Category        string                `json:"category"`
	Description     string                `json:"description"`
	PaymentMethod   string                `json:"payment_method"`
	Status          string                `json:"status"`
	DiscountPercent decimal.Decimal       `json:"discount_percent"`
	Items           []ExpenseItemResponse `json:"items"`
	Attachments     []AttachmentResponse  `json:"attachments"`
	Subtotal        decimal.Decimal       `json:"subtotal"`
	DiscountAmount  decimal.Decimal       `json:"discount_amount"`
	TaxAmount       decimal.Decimal       `json:"tax_amount"`
	RetentionAmount decimal.Decimal       `json:"retention_amount"`
	Total           decimal.Decimal       `json:"total"`
	PaidAt          *time.Time            `json:"paid_at,omitempty"`
	CreatedAt       time.Time             `json:"created_at"`
	UpdatedAt       time.Time             `json:"updated_at"`
}

// =============================================================================
// Upload and extraction DTOs
// =============================================================================

// FileUpload is a file received from a multipart request
type FileUpload struct {
	FileName    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// ExtractedItemResponse is a line read from a document
type ExtractedItemResponse struct {
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	TaxPercent  decimal.Decimal `json:"tax_percent"`
}

// ExtractionResponse is the draft expense read from a document. It is not
// stored; the client reviews it and submits a regular create request.
type ExtractionResponse struct {
	SupplierName  string                  `json:"supplier_name"`
	SupplierTaxID string                  `json:"supplier_tax_id"`
	SupplierID    *uuid.UUID              `json:"supplier_id,omitempty"` // existing supplier matched by tax id or name
	InvoiceNumber string                  `json:"invoice_number"`
	IssueDate     *time.Time              `json:"issue_date,omitempty"`
	Currency      string                  `json:"currency"`
	Items         []ExtractedItemResponse `json:"items"`
	Subtotal      decimal.Decimal         `json:"subtotal"`
	TaxAmount     decimal.Decimal         `json:"tax_amount"`
	Total         decimal.Decimal         `json:"total"`
	Confidence    float64                 `json:"confidence"`
	Draft         CreateExpenseRequest    `json:"draft"`
}

// =============================================================================
// Converters
// =============================================================================

func (r ExpenseItemRequest) toDomain() purchasing.ExpenseItemInput {
	taxes := make([]service.TaxLine, len(r.Taxes))
	for i, t := range r.Taxes {
		taxes[i] = service.TaxLine{
			Name:    t.Name,
			Percent: service.DecimalFromFloatPtr(t.Percent),
			Type:    service.TaxType(t.Type),
		}
	}
	return purchasing.ExpenseItemInput{
		Description: r.Description,
		Quantity:    service.DecimalFromFloatPtr(r.Quantity),
		UnitPrice:   service.DecimalFromFloatPtr(r.UnitPrice),
		Taxes:       taxes,
	}
}

func (r CreateExpenseRequest) details() purchasing.ExpenseDetails {
	d := purchasing.ExpenseDetails{
		SupplierID:    r.SupplierID,
		InvoiceNumber: r.InvoiceNumber,
		Category:      r.Category,
		Description:   r.Description,
		PaymentMethod: purchasing.PaymentMethod(r.PaymentMethod),
	}
	if r.ExpenseDate != nil {
		d.ExpenseDate = *r.ExpenseDate
	}
	return d
}

func (r CreateExpenseRequest) items() []purchasing.ExpenseItemInput {
	inputs := make([]purchasing.ExpenseItemInput, len(r.Items))
	for i, item := range r.Items {
		inputs[i] = item.toDomain()
	}
	return inputs
}

// ToAttachmentResponse converts a domain Attachment
func ToAttachmentResponse(a purchasing.Attachment) AttachmentResponse {
	return AttachmentResponse{
		ID:          a.ID,
		FileName:    a.FileName,
		ContentType: a.ContentType,
		Size:        a.Size,
		CreatedAt:   a.CreatedAt,
	}
}

// ToExpenseResponse converts a domain Expense to ExpenseResponse
func ToExpenseResponse(e *purchasing.Expense) ExpenseResponse {
	items := make([]ExpenseItemResponse, len(e.Items))
	for i, item := range e.Items {
		taxes := make([]ExpenseTaxResponse, len(item.Taxes))
		for j, t := range item.Taxes {
			taxes[j] = ExpenseTaxResponse{Name: t.Name, Percent: t.Percent, Type: string(t.Type)}
		}
		items[i] = ExpenseItemResponse{
			ID:          item.ID,
			Position:    item.Position,
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			Amount:      item.Amount,
			Taxes:       taxes,
		}
	}
	attachments := make([]AttachmentResponse, len(e.Attachments))
	for i, a := range e.Attachments {
		attachments[i] = ToAttachmentResponse(a)
	}
	return ExpenseResponse{
		ID:              e.ID,
		TenantID:        e.TenantID,
		SupplierID:      e.SupplierID,
		InvoiceNumber:   e.InvoiceNumber,
		ExpenseDate:     e.ExpenseDate,
		Category:        e.Category,
		Description:     e.Description,
		PaymentMethod:   string(e.PaymentMethod),
		Status:          string(e.Status),
		DiscountPercent: e.DiscountPercent,
		Items:           items,
		Attachments:     attachments,
		Subtotal:        e.Subtotal,
		DiscountAmount:  e.DiscountAmount,
		TaxAmount:       e.TaxAmount,
		RetentionAmount: e.RetentionAmount,
		Total:           e.Total,
		PaidAt:          e.PaidAt,
		CreatedAt:       e.CreatedAt,
		UpdatedAt:       e.UpdatedAt,
	}
}

// ToExtractionResponse converts an extracted document and builds the draft
// create request from it
func ToExtractionResponse(doc *purchasing.ExtractedDocument, supplierID *uuid.UUID) ExtractionResponse {
	items := make([]ExtractedItemResponse, len(doc.Items))
	for i, item := range doc.Items {
		items[i] = ExtractedItemResponse{
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			TaxPercent:  item.TaxPercent,
		}
	}

	inputs := doc.ToItemInputs("IVA")
	draftItems := make([]ExpenseItemRequest, len(inputs))
	for i, in := range inputs {
		taxes := make([]ExpenseTaxRequest, len(in.Taxes))
		for j, t := range in.Taxes {
			percent := t.Percent.InexactFloat64()
			taxes[j] = ExpenseTaxRequest{Name: t.Name, Percent: &percent, Type: string(t.Type)}
		}
		qty := in.Quantity.InexactFloat64()
		price := in.UnitPrice.InexactFloat64()
		draftItems[i] = ExpenseItemRequest{
			Description: in.Description,
			Quantity:    &qty,
			UnitPrice:   &price,
			Taxes:       taxes,
		}
	}

	return ExtractionResponse{
		SupplierName:  doc.SupplierName,
		SupplierTaxID: doc.SupplierTaxID,
		SupplierID:    supplierID,
		InvoiceNumber: doc.InvoiceNumber,
		IssueDate:     doc.IssueDate,
		Currency:      doc.Currency,
		Items:         items,
		Subtotal:      doc.Subtotal,
		TaxAmount:     doc.TaxAmount,
		Total:         doc.Total,
		Confidence:    doc.Confidence,
		Draft: CreateExpenseRequest{
			SupplierID:    supplierID,
			InvoiceNumber: doc.InvoiceNumber,
			ExpenseDate:   doc.IssueDate,
			Items:         draftItems,
		},
	}
}
