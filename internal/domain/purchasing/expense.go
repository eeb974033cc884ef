package purchasing

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ribotflow/backend/internal/domain/shared"
	"github.com/ribotflow/backend/internal/domain/shared/service"
	"github.com/shopspring/decimal"
)

// AggregateTypeExpense is the aggregate type name for expenses
const AggregateTypeExpense = "expense"

// ExpenseStatus represents the payment status of an expense
type ExpenseStatus string

const (
	ExpenseStatusPending ExpenseStatus = "pending"
	ExpenseStatusPaid    ExpenseStatus = "paid"
)

// IsValid checks if the status is a valid ExpenseStatus
func (s ExpenseStatus) IsValid() bool {
	return s == ExpenseStatusPending || s == ExpenseStatusPaid
}

// PaymentMethod is how an expense was or will be paid
type PaymentMethod string

const (
	PaymentMethodCash     PaymentMethod = "cash"
	PaymentMethodCard     PaymentMethod = "card"
	PaymentMethodTransfer PaymentMethod = "transfer"
	PaymentMethodDirect   PaymentMethod = "direct_debit"
	PaymentMethodOther    PaymentMethod = "other"
)

// IsValid checks if the payment method is known
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodCard, PaymentMethodTransfer, PaymentMethodDirect, PaymentMethodOther:
		return true
	}
	return false
}

// ExpenseItem is a line of a supplier invoice or receipt
type ExpenseItem struct {
	ID          uuid.UUID
	ExpenseID   uuid.UUID
	Position    int
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	Amount      decimal.Decimal
	Taxes       []service.TaxLine
}

// ExpenseItemInput carries the raw values of an expense line
type ExpenseItemInput struct {
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	Taxes       []service.TaxLine
}

// Attachment is a file stored for an expense (receipt scan, supplier PDF)
type Attachment struct {
	ID          uuid.UUID
	ExpenseID   uuid.UUID
	StorageKey  string
	FileName    string
	ContentType string
	Size        int64
	CreatedAt   time.Time
}

// Expense is the aggregate root for money spent with a supplier
type Expense struct {
	shared.TenantAggregateRoot
	SupplierID      *uuid.UUID
	InvoiceNumber   string
	ExpenseDate     time.Time
	Category        string
	Description     string
	PaymentMethod   PaymentMethod
	Status          ExpenseStatus
	DiscountPercent decimal.Decimal
	Items           []ExpenseItem
	Attachments     []Attachment
	Subtotal        decimal.Decimal
	DiscountAmount  decimal.Decimal
	TaxAmount       decimal.Decimal
	RetentionAmount decimal.Decimal
	Total           decimal.Decimal
	PaidAt          *time.Time
}

// ExpenseDetails are the header fields of an expense
type ExpenseDetails struct {
	SupplierID    *uuid.UUID
	InvoiceNumber string
	ExpenseDate   time.Time
	Category      string
	Description   string
	PaymentMethod PaymentMethod
}

// NewExpense creates a pending expense
func NewExpense(tenantID, createdBy uuid.UUID, details ExpenseDetails) (*Expense, error) {
	e := &Expense{
		TenantAggregateRoot: shared.NewTenantAggregateRootWithCreator(tenantID, createdBy),
		Status:              ExpenseStatusPending,
		DiscountPercent:     decimal.Zero,
		Items:               make([]ExpenseItem, 0),
		Attachments:         make([]Attachment, 0),
	}
	if err := e.applyDetails(details); err != nil {
		return nil, err
	}
	e.applyTotals(service.ZeroTotals())
	e.AddDomainEvent(shared.NewRowChangedEvent(AggregateTypeExpense, shared.ChangeInsert, e.ID, tenantID))
	return e, nil
}

// Update replaces the header fields
func (e *Expense) Update(details ExpenseDetails) error {
	if err := e.applyDetails(details); err != nil {
		return err
	}
	e.Touch()
	e.addChange()
	return nil
}

func (e *Expense) applyDetails(d ExpenseDetails) error {
	description := strings.TrimSpace(d.Description)
	if len(description) > 1000 {
		return shared.NewDomainError("INVALID_DESCRIPTION", "Description cannot exceed 1000 characters")
	}
	category := strings.TrimSpace(d.Category)
	if len(category) > 100 {
		return shared.NewDomainError("INVALID_CATEGORY", "Category cannot exceed 100 characters")
	}
	invoiceNumber := strings.TrimSpace(d.InvoiceNumber)
	if len(invoiceNumber) > 100 {
		return shared.NewDomainError("INVALID_INVOICE_NUMBER", "Invoice number cannot exceed 100 characters")
	}
	method := d.PaymentMethod
	if method == "" {
		method = PaymentMethodTransfer
	}
	if !method.IsValid() {
		return shared.NewDomainError("INVALID_PAYMENT_METHOD", "Unknown payment method")
	}
	if d.SupplierID != nil && *d.SupplierID == uuid.Nil {
		d.SupplierID = nil
	}
	date := d.ExpenseDate
	if date.IsZero() {
		date = time.Now()
	}

	e.SupplierID = d.SupplierID
	e.InvoiceNumber = invoiceNumber
	e.ExpenseDate = date
	e.Category = category
	e.Description = description
	e.PaymentMethod = method
	return nil
}

// SetItems replaces all lines and recalculates the totals
func (e *Expense) SetItems(inputs []ExpenseItemInput, discountPercent decimal.Decimal) error {
	items := make([]ExpenseItem, 0, len(inputs))
	for i, in := range inputs {
		description := strings.TrimSpace(in.Description)
		if description == "" {
			return shared.NewDomainError("INVALID_ITEM_DESCRIPTION", "Item description cannot be empty")
		}
		if in.Quantity.IsNegative() {
			return shared.NewDomainError("INVALID_QUANTITY", "Quantity cannot be negative")
		}
		if in.UnitPrice.IsNegative() {
			return shared.NewDomainError("INVALID_PRICE", "Unit price cannot be negative")
		}
		taxes := make([]service.TaxLine, 0, len(in.Taxes))
		for _, tax := range in.Taxes {
			if tax.Type == "" {
				tax.Type = service.TaxTypeVAT
			}
			if !tax.Type.IsValid() {
				return shared.NewDomainError("INVALID_TAX_TYPE", "Tax type must be vat or retention")
			}
			taxes = append(taxes, tax)
		}
		items = append(items, ExpenseItem{
			ID:          uuid.New(),
			ExpenseID:   e.ID,
			Position:    i + 1,
			Description: description,
			Quantity:    in.Quantity,
			UnitPrice:   in.UnitPrice,
			Amount:      in.Quantity.Mul(in.UnitPrice).Round(service.MoneyPlaces),
			Taxes:       taxes,
		})
	}
	e.Items = items
	e.DiscountPercent = service.ClampPercent(discountPercent)
	e.Recalculate()
	e.Touch()
	e.addChange()
	return nil
}

// Recalculate refreshes the stored totals from the items
func (e *Expense) Recalculate() service.Totals {
	lines := make([]service.LineInput, len(e.Items))
	for i, item := range e.Items {
		lines[i] = service.LineInput{Quantity: item.Quantity, UnitPrice: item.UnitPrice, Taxes: item.Taxes}
	}
	totals := service.NewTotalsCalculator().Calculate(lines, e.DiscountPercent)
	e.applyTotals(totals)
	return totals
}

func (e *Expense) applyTotals(t service.Totals) {
	e.Subtotal = t.Subtotal
	e.DiscountAmount = t.DiscountAmount
	e.TaxAmount = t.TaxAmount
	e.RetentionAmount = t.RetentionAmount
	e.Total = t.Total
}

// MarkPaid records the payment of the expense
func (e *Expense) MarkPaid(paidAt time.Time) error {
	if e.Status == ExpenseStatusPaid {
		return shared.ErrInvalidState.WithMessage("Expense is already paid")
	}
	if paidAt.IsZero() {
		paidAt = time.Now()
	}
	e.Status = ExpenseStatusPaid
	e.PaidAt = &paidAt
	e.Touch()
	e.addChange()
	return nil
}

// MarkPending reverts a paid expense to pending
func (e *Expense) MarkPending() {
	e.Status = ExpenseStatusPending
	e.PaidAt = nil
	e.Touch()
	e.addChange()
}

// AddAttachment records a stored file on the expense
func (e *Expense) AddAttachment(storageKey, fileName, contentType string, size int64) (Attachment, error) {
	if strings.TrimSpace(storageKey) == "" {
		return Attachment{}, shared.NewDomainError("INVALID_ATTACHMENT", "Storage key cannot be empty")
	}
	if len(e.Attachments) >= MaxAttachments {
		return Attachment{}, shared.NewDomainError("TOO_MANY_ATTACHMENTS", "An expense cannot have more than 10 attachments")
	}
	a := Attachment{
		ID:          uuid.New(),
		ExpenseID:   e.ID,
		StorageKey:  storageKey,
		FileName:    strings.TrimSpace(fileName),
		ContentType: contentType,
		Size:        size,
		CreatedAt:   time.Now(),
	}
	e.Attachments = append(e.Attachments, a)
	e.Touch()
	e.addChange()
	return a, nil
}

// RemoveAttachment drops an attachment and returns it so the caller can delete the object
func (e *Expense) RemoveAttachment(id uuid.UUID) (Attachment, error) {
	for i, a := range e.Attachments {
		if a.ID == id {
			e.Attachments = append(e.Attachments[:i], e.Attachments[i+1:]...)
			e.Touch()
			e.addChange()
			return a, nil
		}
	}
	return Attachment{}, shared.ErrNotFound.WithMessage("Attachment not found")
}

// FindAttachment returns the attachment with id
func (e *Expense) FindAttachment(id uuid.UUID) (Attachment, bool) {
	for _, a := range e.Attachments {
		if a.ID == id {
			return a, true
		}
	}
	return Attachment{}, false
}

// MarkDeleted records the delete event for the expense
func (e *Expense) MarkDeleted() {
	e.AddDomainEvent(shared.NewRowChangedEvent(AggregateTypeExpense, shared.ChangeDelete, e.ID, e.TenantID))
}

func (e *Expense) addChange() {
	e.AddDomainEvent(shared.NewRowChangedEvent(AggregateTypeExpense, shared.ChangeUpdate, e.ID, e.TenantID))
}

// MaxAttachments bounds the files kept per expense
const MaxAttachments = 10
