package sales

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ribotflow/backend/internal/domain/shared"
	"github.com/ribotflow/backend/internal/domain/shared/service"
	"github.com/shopspring/decimal"
)

// LineItem is a product or service charge on a quote or invoice
type LineItem struct {
	ID          uuid.UUID
	Position    int
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	Amount      decimal.Decimal // Quantity * UnitPrice
	Taxes       []service.TaxLine
	CreatedAt   time.Time
}

// LineInput carries the raw values used to build a line item
type LineInput struct {
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	Taxes       []service.TaxLine
}

// NewLineItem validates the input and creates a line item at position
func NewLineItem(position int, in LineInput) (LineItem, error) {
	description := strings.TrimSpace(in.Description)
	if description == "" {
		return LineItem{}, shared.NewDomainError("INVALID_ITEM_DESCRIPTION", "Item description cannot be empty")
	}
	if len(description) > 500 {
		return LineItem{}, shared.NewDomainError("INVALID_ITEM_DESCRIPTION", "Item description cannot exceed 500 characters")
	}
	if in.Quantity.IsNegative() {
		return LineItem{}, shared.NewDomainError("INVALID_QUANTITY", "Quantity cannot be negative")
	}
	if in.UnitPrice.IsNegative() {
		return LineItem{}, shared.NewDomainError("INVALID_PRICE", "Unit price cannot be negative")
	}
	taxes := make([]service.TaxLine, 0, len(in.Taxes))
	for _, tax := range in.Taxes {
		if tax.Type == "" {
			tax.Type = service.TaxTypeVAT
		}
		if !tax.Type.IsValid() {
			return LineItem{}, shared.NewDomainError("INVALID_TAX_TYPE", "Tax type must be vat or retention")
		}
		if tax.Percent.Abs().GreaterThan(decimal.NewFromInt(100)) {
			return LineItem{}, shared.NewDomainError("INVALID_TAX_PERCENT", "Tax percent must be between -100 and 100")
		}
		taxes = append(taxes, tax)
	}

	return LineItem{
		ID:          uuid.New(),
		Position:    position,
		Description: description,
		Quantity:    in.Quantity,
		UnitPrice:   in.UnitPrice,
		Amount:      in.Quantity.Mul(in.UnitPrice).Round(service.MoneyPlaces),
		Taxes:       taxes,
		CreatedAt:   time.Now(),
	}, nil
}

// ToLineInput returns the arithmetic view of the item
func (i LineItem) ToLineInput() service.LineInput {
	return service.LineInput{
		Quantity:  i.Quantity,
		UnitPrice: i.UnitPrice,
		Taxes:     i.Taxes,
	}
}

// buildLineItems creates items for every input, positions starting at 1
func buildLineItems(inputs []LineInput) ([]LineItem, error) {
	items := make([]LineItem, 0, len(inputs))
	for i, in := range inputs {
		item, err := NewLineItem(i+1, in)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

// DocumentTotals holds the stored totals of a sales document
type DocumentTotals struct {
	Subtotal        decimal.Decimal
	DiscountAmount  decimal.Decimal
	TaxAmount       decimal.Decimal
	RetentionAmount decimal.Decimal
	Total           decimal.Decimal
}

func totalsFrom(t service.Totals) DocumentTotals {
	return DocumentTotals{
		Subtotal:        t.Subtotal,
		DiscountAmount:  t.DiscountAmount,
		TaxAmount:       t.TaxAmount,
		RetentionAmount: t.RetentionAmount,
		Total:           t.Total,
	}
}

// calculateTotals runs the calculator over the items
func calculateTotals(items []LineItem, discountPercent decimal.Decimal) service.Totals {
	lines := make([]service.LineInput, len(items))
	for i, item := range items {
		lines[i] = item.ToLineInput()
	}
	return service.NewTotalsCalculator().Calculate(lines, discountPercent)
}
