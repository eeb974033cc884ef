package sales

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ribotflow/backend/internal/domain/shared"
	"github.com/ribotflow/backend/internal/domain/shared/service"
	"github.com/shopspring/decimal"
)

// AggregateTypeQuote is the aggregate type name for quotes
const AggregateTypeQuote = "quote"

// QuoteStatus represents the status of a quote
type QuoteStatus string

const (
	QuoteStatusDraft    QuoteStatus = "draft"
	QuoteStatusSent     QuoteStatus = "sent"
	QuoteStatusAccepted QuoteStatus = "accepted"
	QuoteStatusDeclined QuoteStatus = "declined"
	QuoteStatusExpired  QuoteStatus = "expired"
	QuoteStatusInvoiced QuoteStatus = "invoiced"
)

// IsValid checks if the status is a valid QuoteStatus
func (s QuoteStatus) IsValid() bool {
	switch s {
	case QuoteStatusDraft, QuoteStatusSent, QuoteStatusAccepted,
		QuoteStatusDeclined, QuoteStatusExpired, QuoteStatusInvoiced:
		return true
	}
	return false
}

// String returns the string representation of QuoteStatus
func (s QuoteStatus) String() string {
	return string(s)
}

// CanTransitionTo checks if the status can transition to the target status
func (s QuoteStatus) CanTransitionTo(target QuoteStatus) bool {
	switch s {
	case QuoteStatusDraft:
		return target == QuoteStatusSent || target == QuoteStatusAccepted || target == QuoteStatusDeclined
	case QuoteStatusSent:
		return target == QuoteStatusSent || target == QuoteStatusAccepted ||
			target == QuoteStatusDeclined || target == QuoteStatusExpired
	case QuoteStatusAccepted:
		return target == QuoteStatusInvoiced
	case QuoteStatusDeclined, QuoteStatusExpired:
		return target == QuoteStatusDraft
	}
	return false
}

// IsEditable reports whether items and terms can still change
func (s QuoteStatus) IsEditable() bool {
	return s == QuoteStatusDraft || s == QuoteStatusSent
}

// QuoteItem is a line of a quote
type QuoteItem struct {
	LineItem
	QuoteID uuid.UUID
}

// Quote is the aggregate root for a price proposal sent to a contact
type Quote struct {
	shared.TenantAggregateRoot
	Number          string
	ContactID       uuid.UUID
	IssueDate       time.Time
	ExpiryDate      *time.Time
	Status          QuoteStatus
	DiscountPercent decimal.Decimal
	Notes           string
	Items           []QuoteItem
	DocumentTotals
	SentAt     *time.Time
	AcceptedAt *time.Time
	DeclinedAt *time.Time
	InvoiceID  *uuid.UUID
}

// NewQuote creates a new draft quote
func NewQuote(tenantID, createdBy uuid.UUID, number string, contactID uuid.UUID, issueDate time.Time) (*Quote, error) {
	number = strings.TrimSpace(number)
	if number == "" {
		return nil, shared.NewDomainError("INVALID_QUOTE_NUMBER", "Quote number cannot be empty")
	}
	if len(number) > 50 {
		return nil, shared.NewDomainError("INVALID_QUOTE_NUMBER", "Quote number cannot exceed 50 characters")
	}
	if contactID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_CONTACT", "Contact is required")
	}
	if issueDate.IsZero() {
		issueDate = time.Now()
	}

	q := &Quote{
		TenantAggregateRoot: shared.NewTenantAggregateRootWithCreator(tenantID, createdBy),
		Number:              number,
		ContactID:           contactID,
		IssueDate:           issueDate,
		Status:              QuoteStatusDraft,
		DiscountPercent:     decimal.Zero,
		Items:               make([]QuoteItem, 0),
	}
	q.DocumentTotals = totalsFrom(service.ZeroTotals())
	q.AddDomainEvent(shared.NewRowChangedEvent(AggregateTypeQuote, shared.ChangeInsert, q.ID, tenantID))
	return q, nil
}

// Update changes the editable header fields of the quote
func (q *Quote) Update(contactID uuid.UUID, issueDate time.Time, expiryDate *time.Time, notes string) error {
	if !q.Status.IsEditable() {
		return shared.ErrInvalidState.WithMessage("Quote can only be edited while draft or sent")
	}
	if contactID == uuid.Nil {
		return shared.NewDomainError("INVALID_CONTACT", "Contact is required")
	}
	if !issueDate.IsZero() {
		q.IssueDate = issueDate
	}
	if expiryDate != nil && expiryDate.Before(q.IssueDate) {
		return shared.NewDomainError("INVALID_EXPIRY_DATE", "Expiry date cannot be before the issue date")
	}
	q.ContactID = contactID
	q.ExpiryDate = expiryDate
	q.Notes = strings.TrimSpace(notes)
	q.Touch()
	q.addChange()
	return nil
}

// SetItems replaces all items and recalculates the totals
func (q *Quote) SetItems(inputs []LineInput, discountPercent decimal.Decimal) error {
	if !q.Status.IsEditable() {
		return shared.ErrInvalidState.WithMessage("Quote can only be edited while draft or sent")
	}
	lines, err := buildLineItems(inputs)
	if err != nil {
		return err
	}
	items := make([]QuoteItem, len(lines))
	for i, line := range lines {
		items[i] = QuoteItem{LineItem: line, QuoteID: q.ID}
	}
	q.Items = items
	q.DiscountPercent = service.ClampPercent(discountPercent)
	q.Recalculate()
	q.Touch()
	q.addChange()
	return nil
}

// Recalculate refreshes the stored totals from the items
func (q *Quote) Recalculate() service.Totals {
	totals := calculateTotals(q.lineItems(), q.DiscountPercent)
	q.DocumentTotals = totalsFrom(totals)
	return totals
}

// Totals returns the full calculation including the tax breakdown
func (q *Quote) Totals() service.Totals {
	return calculateTotals(q.lineItems(), q.DiscountPercent)
}

func (q *Quote) lineItems() []LineItem {
	lines := make([]LineItem, len(q.Items))
	for i, item := range q.Items {
		lines[i] = item.LineItem
	}
	return lines
}

// MarkSent records that the quote was sent to the contact
func (q *Quote) MarkSent() error {
	if len(q.Items) == 0 {
		return shared.NewDomainError("EMPTY_QUOTE", "Cannot send a quote without items")
	}
	if err := q.transition(QuoteStatusSent); err != nil {
		return err
	}
	now := time.Now()
	q.SentAt = &now
	return nil
}

// Accept marks the quote as accepted by the contact
func (q *Quote) Accept() error {
	if err := q.transition(QuoteStatusAccepted); err != nil {
		return err
	}
	now := time.Now()
	q.AcceptedAt = &now
	return nil
}

// Decline marks the quote as declined by the contact
func (q *Quote) Decline() error {
	if err := q.transition(QuoteStatusDeclined); err != nil {
		return err
	}
	now := time.Now()
	q.DeclinedAt = &now
	return nil
}

// Reopen moves a declined or expired quote back to draft
func (q *Quote) Reopen() error {
	return q.transition(QuoteStatusDraft)
}

// IsExpiredAt reports whether a sent quote is past its expiry date at now
func (q *Quote) IsExpiredAt(now time.Time) bool {
	if q.Status != QuoteStatusSent || q.ExpiryDate == nil {
		return false
	}
	return now.After(*q.ExpiryDate)
}

// Expire marks a sent quote past its expiry date as expired
func (q *Quote) Expire(now time.Time) error {
	if !q.IsExpiredAt(now) {
		return shared.ErrInvalidState.WithMessage("Quote has not expired")
	}
	return q.transition(QuoteStatusExpired)
}

// MarkInvoiced links the accepted quote to the invoice created from it
func (q *Quote) MarkInvoiced(invoiceID uuid.UUID) error {
	if invoiceID == uuid.Nil {
		return shared.NewDomainError("INVALID_INVOICE", "Invoice ID cannot be empty")
	}
	if err := q.transition(QuoteStatusInvoiced); err != nil {
		return err
	}
	q.InvoiceID = &invoiceID
	return nil
}

// CanDelete reports whether the quote may be removed
func (q *Quote) CanDelete() bool {
	switch q.Status {
	case QuoteStatusDraft, QuoteStatusDeclined, QuoteStatusExpired:
		return true
	}
	return false
}

// MarkDeleted records the delete event for the quote
func (q *Quote) MarkDeleted() error {
	if !q.CanDelete() {
		return shared.ErrInvalidState.WithMessage("Only draft, declined or expired quotes can be deleted")
	}
	q.AddDomainEvent(shared.NewRowChangedEvent(AggregateTypeQuote, shared.ChangeDelete, q.ID, q.TenantID))
	return nil
}

func (q *Quote) transition(target QuoteStatus) error {
	if !q.Status.CanTransitionTo(target) {
		return shared.ErrInvalidState.WithMessage(
			"Cannot change quote status from " + q.Status.String() + " to " + target.String())
	}
	from := q.Status
	q.Status = target
	q.Touch()
	q.AddDomainEvent(NewQuoteStatusChangedEvent(q, from, target))
	return nil
}

func (q *Quote) addChange() {
	q.AddDomainEvent(shared.NewRowChangedEvent(AggregateTypeQuote, shared.ChangeUpdate, q.ID, q.TenantID))
}

// QuoteStatusChangedEvent is raised when a quote moves between statuses
type QuoteStatusChangedEvent struct {
	shared.BaseDomainEvent
	Number string      `json:"number"`
	From   QuoteStatus `json:"from"`
	To     QuoteStatus `json:"to"`
}

// EventTypeQuoteStatusChanged is the event type for quote status changes
const EventTypeQuoteStatusChanged = "quote.status_changed"

// NewQuoteStatusChangedEvent creates a status change event for the quote
func NewQuoteStatusChangedEvent(q *Quote, from, to QuoteStatus) *QuoteStatusChangedEvent {
	return &QuoteStatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeQuoteStatusChanged, AggregateTypeQuote, shared.ChangeUpdate, q.ID, q.TenantID),
		Number:          q.Number,
		From:            from,
		To:              to,
	}
}
