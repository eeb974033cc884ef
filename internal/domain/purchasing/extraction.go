package purchasing

import (
	"time"

	"github.com/ribotflow/backend/internal/domain/shared/service"
	"github.com/shopspring/decimal"
)

// ExtractedDocument is the structured content read from a receipt or supplier invoice.
// It is a suggestion for the user to review; nothing is persisted from it directly.
type ExtractedDocument struct {
	SupplierName  string
	SupplierTaxID string
	InvoiceNumber string
	IssueDate     *time.Time
	Currency      string
	Items         []ExtractedItem
	Subtotal      decimal.Decimal
	TaxAmount     decimal.Decimal
	Total         decimal.Decimal
	Confidence    float64
	RawText       string
}

// ExtractedItem is a line read from a document
type ExtractedItem struct {
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	TaxPercent  decimal.Decimal
}

// ToItemInputs converts the extracted lines to expense item inputs
func (d ExtractedDocument) ToItemInputs(taxName string) []ExpenseItemInput {
	inputs := make([]ExpenseItemInput, 0, len(d.Items))
	for _, item := range d.Items {
		in := ExpenseItemInput{
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
		}
		if in.Quantity.IsZero() {
			in.Quantity = decimal.NewFromInt(1)
		}
		if item.TaxPercent.IsPositive() {
			in.Taxes = append(in.Taxes, newVATLine(taxName, item.TaxPercent))
		}
		inputs = append(inputs, in)
	}
	return inputs
}

func newVATLine(name string, percent decimal.Decimal) service.TaxLine {
	if name == "" {
		name = "VAT"
	}
	return service.TaxLine{Name: name, Percent: percent, Type: service.TaxTypeVAT}
}
