package service

import (
	"math"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// TaxType distinguishes taxes added to a document from retentions withheld from it
type TaxType string

const (
	TaxTypeVAT       TaxType = "vat"
	TaxTypeRetention TaxType = "retention"
)

// IsValid checks if the tax type is known
func (t TaxType) IsValid() bool {
	return t == TaxTypeVAT || t == TaxTypeRetention
}

var (
	hundred = decimal.NewFromInt(100)
	// MoneyPlaces is the number of decimals document amounts are stored with
	MoneyPlaces int32 = 2
)

// TaxLine is a named tax percentage applied to one line
type TaxLine struct {
	Name    string
	Percent decimal.Decimal
	Type    TaxType
}

// IsRetention reports whether the tax is withheld rather than added.
// A negative percent is treated as a retention of its absolute value.
func (t TaxLine) IsRetention() bool {
	return t.Type == TaxTypeRetention || t.Percent.IsNegative()
}

// LineInput is the arithmetic view of a quote, invoice or expense line
type LineInput struct {
	Quantity  decimal.Decimal
	UnitPrice decimal.Decimal
	Taxes     []TaxLine
}

// Base returns quantity × unit price
func (l LineInput) Base() decimal.Decimal {
	return l.Quantity.Mul(l.UnitPrice)
}

// TaxBreakdown is the aggregated amount of one tax across all lines
type TaxBreakdown struct {
	Name    string
	Type    TaxType
	Percent decimal.Decimal
	Base    decimal.Decimal
	Amount  decimal.Decimal
}

// Totals is the result of a document total calculation.
// Total always equals Subtotal - DiscountAmount + TaxAmount - RetentionAmount.
type Totals struct {
	Subtotal        decimal.Decimal
	DiscountPercent decimal.Decimal
	DiscountAmount  decimal.Decimal
	TaxableBase     decimal.Decimal
	TaxAmount       decimal.Decimal
	RetentionAmount decimal.Decimal
	NetTax          decimal.Decimal
	Total           decimal.Decimal
	Breakdown       []TaxBreakdown
}

// ZeroTotals returns totals for an empty document
func ZeroTotals() Totals {
	return Totals{
		Subtotal:        decimal.Zero,
		DiscountPercent: decimal.Zero,
		DiscountAmount:  decimal.Zero,
		TaxableBase:     decimal.Zero,
		TaxAmount:       decimal.Zero,
		RetentionAmount: decimal.Zero,
		NetTax:          decimal.Zero,
		Total:           decimal.Zero,
		Breakdown:       []TaxBreakdown{},
	}
}

// TotalsCalculator computes subtotal, discount, taxes and total for a list of lines.
// It is stateless and shared by sales and purchasing documents.
type TotalsCalculator struct{}

// NewTotalsCalculator creates a new totals calculator
func NewTotalsCalculator() *TotalsCalculator {
	return &TotalsCalculator{}
}

// Calculate computes the totals for lines with a document-level discount percent.
//
// The discount reduces the subtotal and every tax amount proportionally.
// VAT-type taxes are added and retentions are subtracted. Each component is
// rounded to two decimals before the total is derived from the rounded values.
func (c *TotalsCalculator) Calculate(lines []LineInput, discountPercent decimal.Decimal) Totals {
	discountPercent = ClampPercent(discountPercent)
	if len(lines) == 0 {
		t := ZeroTotals()
		t.DiscountPercent = discountPercent
		return t
	}

	factor := hundred.Sub(discountPercent).Div(hundred)

	subtotal := decimal.Zero
	taxAmount := decimal.Zero
	retentionAmount := decimal.Zero
	breakdown := make(map[string]*TaxBreakdown)

	for _, line := range lines {
		base := line.Base()
		subtotal = subtotal.Add(base)

		for _, tax := range line.Taxes {
			percent := tax.Percent.Abs()
			if percent.IsZero() {
				continue
			}
			amount := base.Mul(percent).Div(hundred).Mul(factor)

			taxType := TaxTypeVAT
			if tax.IsRetention() {
				taxType = TaxTypeRetention
				retentionAmount = retentionAmount.Add(amount)
			} else {
				taxAmount = taxAmount.Add(amount)
			}

			key := breakdownKey(tax.Name, taxType, percent)
			entry, ok := breakdown[key]
			if !ok {
				entry = &TaxBreakdown{
					Name:    strings.TrimSpace(tax.Name),
					Type:    taxType,
					Percent: percent,
					Base:    decimal.Zero,
					Amount:  decimal.Zero,
				}
				breakdown[key] = entry
			}
			entry.Base = entry.Base.Add(base.Mul(factor))
			entry.Amount = entry.Amount.Add(amount)
		}
	}

	subtotal = subtotal.Round(MoneyPlaces)
	discountAmount := subtotal.Mul(discountPercent).Div(hundred).Round(MoneyPlaces)
	taxAmount = taxAmount.Round(MoneyPlaces)
	retentionAmount = retentionAmount.Round(MoneyPlaces)
	netTax := taxAmount.Sub(retentionAmount)
	taxableBase := subtotal.Sub(discountAmount)

	return Totals{
		Subtotal:        subtotal,
		DiscountPercent: discountPercent,
		DiscountAmount:  discountAmount,
		TaxableBase:     taxableBase,
		TaxAmount:       taxAmount,
		RetentionAmount: retentionAmount,
		NetTax:          netTax,
		Total:           taxableBase.Add(netTax),
		Breakdown:       sortedBreakdown(breakdown),
	}
}

func breakdownKey(name string, t TaxType, percent decimal.Decimal) string {
	return strings.ToLower(strings.TrimSpace(name)) + "|" + string(t) + "|" + percent.String()
}

func sortedBreakdown(m map[string]*TaxBreakdown) []TaxBreakdown {
	out := make([]TaxBreakdown, 0, len(m))
	for _, b := range m {
		b.Base = b.Base.Round(MoneyPlaces)
		b.Amount = b.Amount.Round(MoneyPlaces)
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Type != out[j].Type {
			return out[i].Type == TaxTypeVAT
		}
		if !out[i].Percent.Equal(out[j].Percent) {
			return out[i].Percent.GreaterThan(out[j].Percent)
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// ClampPercent bounds a discount percent into [0, 100]
func ClampPercent(p decimal.Decimal) decimal.Decimal {
	if p.IsNegative() {
		return decimal.Zero
	}
	if p.GreaterThan(hundred) {
		return hundred
	}
	return p
}

// DecimalFromFloat converts a float, mapping NaN and infinities to zero
func DecimalFromFloat(f float64) decimal.Decimal {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(f)
}

// DecimalFromFloatPtr converts an optional float; nil is zero
func DecimalFromFloatPtr(f *float64) decimal.Decimal {
	if f == nil {
		return decimal.Zero
	}
	return DecimalFromFloat(*f)
}
