package printing

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// symbols for the currencies tenants use; others print their ISO code
var currencySymbols = map[string]string{
	"EUR": "€",
	"USD": "$",
	"GBP": "£",
	"CHF": "CHF",
	"MXN": "$",
}

// languages that write the currency symbol after the amount
var symbolAfter = map[string]bool{
	"es": true, "fr": true, "de": true, "it": true, "pt": true, "ca": true,
}

// Formatter formats numbers, money and dates for one locale and currency
type Formatter struct {
	tag      language.Tag
	printer  *message.Printer
	currency currency.Unit
	symbol   string
	after    bool
	title    cases.Caser
}

// NewFormatter parses locale (BCP 47, e.g. es-ES) and an ISO 4217 currency code.
// Unknown values fall back to es-ES and EUR.
func NewFormatter(locale, currencyCode string) *Formatter {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.MustParse("es-ES")
	}
	unit, err := currency.ParseISO(strings.ToUpper(strings.TrimSpace(currencyCode)))
	if err != nil {
		unit = currency.EUR
	}
	base, _ := tag.Base()
	symbol, ok := currencySymbols[unit.String()]
	if !ok {
		symbol = unit.String()
	}
	return &Formatter{
		tag:      tag,
		printer:  message.NewPrinter(tag),
		currency: unit,
		symbol:   symbol,
		after:    symbolAfter[base.String()],
		title:    cases.Title(tag),
	}
}

// Tag returns the locale of the formatter
func (f *Formatter) Tag() language.Tag {
	return f.tag
}

// Currency returns the ISO code of the currency
func (f *Formatter) Currency() string {
	return f.currency.String()
}

// Number formats d with grouping and the given number of decimals
func (f *Formatter) Number(d decimal.Decimal, places int) string {
	v, _ := d.Round(int32(places)).Float64()
	return f.printer.Sprint(number.Decimal(v, number.Scale(places)))
}

// Money formats d with two decimals and the currency symbol
func (f *Formatter) Money(d decimal.Decimal) string {
	amount := f.Number(d, 2)
	if f.after {
		return amount + " " + f.symbol
	}
	return f.symbol + amount
}

// Quantity prints up to three decimals without trailing zeros
func (f *Formatter) Quantity(d decimal.Decimal) string {
	places := 0
	for places < 3 && !d.Equal(d.Round(int32(places))) {
		places++
	}
	return f.Number(d, places)
}

// Percent prints d as a percentage, 21 gives "21%"
func (f *Formatter) Percent(d decimal.Decimal) string {
	return f.Quantity(d) + "%"
}

// Date formats t as dd/mm/yyyy, or mm/dd/yyyy for the United States
func (f *Formatter) Date(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	if region, _ := f.tag.Region(); region.String() == "US" {
		return t.Format("01/02/2006")
	}
	return t.Format("02/01/2006")
}

// DatePtr formats an optional date
func (f *Formatter) DatePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return f.Date(*t)
}

// Label translates a document label through the message catalog
func (f *Formatter) Label(key string) string {
	return f.printer.Sprintf(key)
}

// Title capitalises each word, e.g. a status code
func (f *Formatter) Title(s string) string {
	return f.title.String(strings.ReplaceAll(s, "_", " "))
}
