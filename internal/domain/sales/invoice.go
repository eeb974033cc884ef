package sales

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ribotflow/backend/internal/domain/shared"
	"github.com/ribotflow/backend/internal/domain/shared/service"
	"github.com/shopspring/decimal"
)

// AggregateTypeInvoice is the aggregate type name for invoices
const AggregateTypeInvoice = "invoice"

// InvoiceStatus represents the status of an invoice
type InvoiceStatus string

const (
	InvoiceStatusDraft     InvoiceStatus = "draft"
	InvoiceStatusIssued    InvoiceStatus = "issued"
	InvoiceStatusPaid      InvoiceStatus = "paid"
	InvoiceStatusOverdue   InvoiceStatus = "overdue"
	InvoiceStatusCancelled InvoiceStatus = "cancelled"
)

// IsValid checks if the status is a valid InvoiceStatus
func (s InvoiceStatus) IsValid() bool {
	switch s {
	case InvoiceStatusDraft, InvoiceStatusIssued, InvoiceStatusPaid, InvoiceStatusOverdue, InvoiceStatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of InvoiceStatus
func (s InvoiceStatus) String() string {
	return string(s)
}

// CanTransitionTo checks if the status can transition to the target status
func (s InvoiceStatus) CanTransitionTo(target InvoiceStatus) bool {
	switch s {
	case InvoiceStatusDraft:
		return target == InvoiceStatusIssued || target == InvoiceStatusCancelled
	case InvoiceStatusIssued:
		return target == InvoiceStatusPaid || target == InvoiceStatusOverdue || target == InvoiceStatusCancelled
	case InvoiceStatusOverdue:
		return target == InvoiceStatusPaid || target == InvoiceStatusCancelled
	case InvoiceStatusPaid, InvoiceStatusCancelled:
		return false // Terminal states
	}
	return false
}

// InvoiceItem is a line of an invoice
type InvoiceItem struct {
	LineItem
	InvoiceID uuid.UUID
}

// Invoice is the aggregate root for a bill issued to a contact
type Invoice struct {
	shared.TenantAggregateRoot
	Number          string
	ContactID       uuid.UUID
	QuoteID         *uuid.UUID
	IssueDate       time.Time
	DueDate         *time.Time
	Status          InvoiceStatus
	DiscountPercent decimal.Decimal
	Notes           string
	Items           []InvoiceItem
	DocumentTotals
	IssuedAt     *time.Time
	PaidAt       *time.Time
	CancelledAt  *time.Time
	SentAt       *time.Time
	CancelReason string
}

// NewInvoice creates a new draft invoice
func NewInvoice(tenantID, createdBy uuid.UUID, number string, contactID uuid.UUID, issueDate time.Time) (*Invoice, error) {
	number = strings.TrimSpace(number)
	if number == "" {
		return nil, shared.NewDomainError("INVALID_INVOICE_NUMBER", "Invoice number cannot be empty")
	}
	if len(number) > 50 {
		return nil, shared.NewDomainError("INVALID_INVOICE_NUMBER", "Invoice number cannot exceed 50 characters")
	}
	if contactID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_CONTACT", "Contact is required")
	}
	if issueDate.IsZero() {
		issueDate = time.Now()
	}

	inv := &Invoice{
		TenantAggregateRoot: shared.NewTenantAggregateRootWithCreator(tenantID, createdBy),
		Number:              number,
		ContactID:           contactID,
		IssueDate:           issueDate,
		Status:              InvoiceStatusDraft,
		DiscountPercent:     decimal.Zero,
		Items:               make([]InvoiceItem, 0),
	}
	inv.DocumentTotals = totalsFrom(service.ZeroTotals())
	inv.AddDomainEvent(shared.NewRowChangedEvent(AggregateTypeInvoice, shared.ChangeInsert, inv.ID, tenantID))
	return inv, nil
}

// NewInvoiceFromQuote creates a draft invoice copying the items and terms of an accepted quote
func NewInvoiceFromQuote(q *Quote, createdBy uuid.UUID, number string, issueDate time.Time, dueDate *time.Time) (*Invoice, error) {
	if q.Status != QuoteStatusAccepted {
		return nil, shared.ErrInvalidState.WithMessage("Only accepted quotes can be converted to an invoice")
	}
	inv, err := NewInvoice(q.TenantID, createdBy, number, q.ContactID, issueDate)
	if err != nil {
		return nil, err
	}
	quoteID := q.ID
	inv.QuoteID = &quoteID
	inv.DueDate = dueDate
	inv.Notes = q.Notes

	inputs := make([]LineInput, len(q.Items))
	for i, item := range q.Items {
		inputs[i] = LineInput{
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			Taxes:       item.Taxes,
		}
	}
	if err := inv.SetItems(inputs, q.DiscountPercent); err != nil {
		return nil, err
	}
	inv.ClearDomainEvents()
	inv.AddDomainEvent(shared.NewRowChangedEvent(AggregateTypeInvoice, shared.ChangeInsert, inv.ID, inv.TenantID))
	return inv, nil
}

// Update changes the header fields of a draft invoice
func (inv *Invoice) Update(contactID uuid.UUID, issueDate time.Time, dueDate *time.Time, notes string) error {
	if inv.Status != InvoiceStatusDraft {
		return shared.ErrInvalidState.WithMessage("Only draft invoices can be edited")
	}
	if contactID == uuid.Nil {
		return shared.NewDomainError("INVALID_CONTACT", "Contact is required")
	}
	if !issueDate.IsZero() {
		inv.IssueDate = issueDate
	}
	if dueDate != nil && dueDate.Before(inv.IssueDate) {
		return shared.NewDomainError("INVALID_DUE_DATE", "Due date cannot be before the issue date")
	}
	inv.ContactID = contactID
	inv.DueDate = dueDate
	inv.Notes = strings.TrimSpace(notes)
	inv.Touch()
	inv.addChange()
	return nil
}

// SetItems replaces all items of a draft invoice and recalculates the totals
func (inv *Invoice) SetItems(inputs []LineInput, discountPercent decimal.Decimal) error {
	if inv.Status != InvoiceStatusDraft {
		return shared.ErrInvalidState.WithMessage("Only draft invoices can be edited")
	}
	lines, err := buildLineItems(inputs)
	if err != nil {
		return err
	}
	items := make([]InvoiceItem, len(lines))
	for i, line := range lines {
		items[i] = InvoiceItem{LineItem: line, InvoiceID: inv.ID}
	}
	inv.Items = items
	inv.DiscountPercent = service.ClampPercent(discountPercent)
	inv.Recalculate()
	inv.Touch()
	inv.addChange()
	return nil
}

// Recalculate refreshes the stored totals from the items
func (inv *Invoice) Recalculate() service.Totals {
	totals := calculateTotals(inv.lineItems(), inv.DiscountPercent)
	inv.DocumentTotals = totalsFrom(totals)
	return totals
}

// Totals returns the full calculation including the tax breakdown
func (inv *Invoice) Totals() service.Totals {
	return calculateTotals(inv.lineItems(), inv.DiscountPercent)
}

func (inv *Invoice) lineItems() []LineItem {
	lines := make([]LineItem, len(inv.Items))
	for i, item := range inv.Items {
		lines[i] = item.LineItem
	}
	return lines
}

// Issue finalises the invoice. Items can no longer change afterwards.
func (inv *Invoice) Issue() error {
	if len(inv.Items) == 0 {
		return shared.NewDomainError("EMPTY_INVOICE", "Cannot issue an invoice without items")
	}
	if err := inv.transition(InvoiceStatusIssued); err != nil {
		return err
	}
	now := time.Now()
	inv.IssuedAt = &now
	return nil
}

// MarkPaid records the payment of an issued or overdue invoice
func (inv *Invoice) MarkPaid(paidAt time.Time) error {
	if err := inv.transition(InvoiceStatusPaid); err != nil {
		return err
	}
	if paidAt.IsZero() {
		paidAt = time.Now()
	}
	inv.PaidAt = &paidAt
	return nil
}

// IsOverdueAt reports whether an issued invoice is past its due date at now
func (inv *Invoice) IsOverdueAt(now time.Time) bool {
	if inv.Status != InvoiceStatusIssued || inv.DueDate == nil {
		return false
	}
	return now.After(*inv.DueDate)
}

// MarkOverdue flags an issued invoice past its due date
func (inv *Invoice) MarkOverdue(now time.Time) error {
	if !inv.IsOverdueAt(now) {
		return shared.ErrInvalidState.WithMessage("Invoice is not past its due date")
	}
	return inv.transition(InvoiceStatusOverdue)
}

// Cancel voids the invoice
func (inv *Invoice) Cancel(reason string) error {
	if err := inv.transition(InvoiceStatusCancelled); err != nil {
		return err
	}
	now := time.Now()
	inv.CancelledAt = &now
	inv.CancelReason = strings.TrimSpace(reason)
	return nil
}

// MarkSent records that the invoice was emailed to the contact
func (inv *Invoice) MarkSent() error {
	if inv.Status == InvoiceStatusDraft || inv.Status == InvoiceStatusCancelled {
		return shared.ErrInvalidState.WithMessage("Only issued invoices can be sent")
	}
	now := time.Now()
	inv.SentAt = &now
	inv.Touch()
	inv.addChange()
	return nil
}

// MarkDeleted records the delete event for a draft invoice
func (inv *Invoice) MarkDeleted() error {
	if inv.Status != InvoiceStatusDraft {
		return shared.ErrInvalidState.WithMessage("Only draft invoices can be deleted")
	}
	inv.AddDomainEvent(shared.NewRowChangedEvent(AggregateTypeInvoice, shared.ChangeDelete, inv.ID, inv.TenantID))
	return nil
}

func (inv *Invoice) transition(target InvoiceStatus) error {
	if !inv.Status.CanTransitionTo(target) {
		return shared.ErrInvalidState.WithMessage(
			"Cannot change invoice status from " + inv.Status.String() + " to " + target.String())
	}
	from := inv.Status
	inv.Status = target
	inv.Touch()
	inv.AddDomainEvent(NewInvoiceStatusChangedEvent(inv, from, target))
	return nil
}

func (inv *Invoice) addChange() {
	inv.AddDomainEvent(shared.NewRowChangedEvent(AggregateTypeInvoice, shared.ChangeUpdate, inv.ID, inv.TenantID))
}

// EventTypeInvoiceStatusChanged is the event type for invoice status changes
const EventTypeInvoiceStatusChanged = "invoice.status_changed"

// InvoiceStatusChangedEvent is raised when an invoice moves between statuses
type InvoiceStatusChangedEvent struct {
	shared.BaseDomainEvent
	Number string          `json:"number"`
	From   InvoiceStatus   `json:"from"`
	To     InvoiceStatus   `json:"to"`
	Total  decimal.Decimal `json:"total"`
}

// NewInvoiceStatusChangedEvent creates a status change event for the invoice
func NewInvoiceStatusChangedEvent(inv *Invoice, from, to InvoiceStatus) *InvoiceStatusChangedEvent {
	return &InvoiceStatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoiceStatusChanged, AggregateTypeInvoice, shared.ChangeUpdate, inv.ID, inv.TenantID),
		Number:          inv.Number,
		From:            from,
		To:              to,
		Total:           inv.Total,
	}
}
