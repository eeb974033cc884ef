package printing

import (
	"strings"
	"time"

	"github.com/ribotflow/backend/internal/domain/identity"
	"github.com/ribotflow/backend/internal/domain/partner"
	"github.com/ribotflow/backend/internal/domain/sales"
	"github.com/ribotflow/backend/internal/domain/shared/service"
	"github.com/shopspring/decimal"
)

// DocumentKind selects the title and date labels of a document
type DocumentKind string

const (
	KindQuote   DocumentKind = "quote"
	KindInvoice DocumentKind = "invoice"
)

// Party is the issuer or the recipient of a document
type Party struct {
	Name    string
	Company string
	TaxID   string
	Email   string
	Phone   string
	Address []string
}

// DocumentLine is one printed item
type DocumentLine struct {
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	Amount      decimal.Decimal
	Taxes       []service.TaxLine
}

// Document is the view model bound to the document template
type Document struct {
	Kind       DocumentKind
	Number     string
	Status     string
	IssueDate  time.Time
	SecondDate *time.Time // expiry for quotes, due date for invoices
	Issuer     Party
	Recipient  Party
	Lines      []DocumentLine
	Totals     service.Totals
	Notes      string
	Locale     string
	Currency   string
}

// Title returns the untranslated document title
func (d *Document) Title() string {
	if d.Kind == KindInvoice {
		return "Invoice"
	}
	return "Quote"
}

// SecondDateLabel returns the untranslated label of SecondDate
func (d *Document) SecondDateLabel() string {
	if d.Kind == KindInvoice {
		return "Due date"
	}
	return "Valid until"
}

// FileName is the attachment name of the rendered PDF
func (d *Document) FileName() string {
	return strings.ToLower(d.Title()) + "-" + sanitizeFileName(d.Number) + ".pdf"
}

// NewQuoteDocument builds the printable view of a quote
func NewQuoteDocument(q *sales.Quote, t *identity.Tenant, c *partner.Contact) *Document {
	lines := make([]DocumentLine, len(q.Items))
	for i, item := range q.Items {
		lines[i] = lineFrom(item.LineItem)
	}
	return &Document{
		Kind:       KindQuote,
		Number:     q.Number,
		Status:     q.Status.String(),
		IssueDate:  q.IssueDate,
		SecondDate: q.ExpiryDate,
		Issuer:     issuerFrom(t),
		Recipient:  recipientFrom(c),
		Lines:      lines,
		Totals:     q.Totals(),
		Notes:      q.Notes,
		Locale:     t.Locale,
		Currency:   t.Currency,
	}
}

// NewInvoiceDocument builds the printable view of an invoice
func NewInvoiceDocument(inv *sales.Invoice, t *identity.Tenant, c *partner.Contact) *Document {
	lines := make([]DocumentLine, len(inv.Items))
	for i, item := range inv.Items {
		lines[i] = lineFrom(item.LineItem)
	}
	return &Document{
		Kind:       KindInvoice,
		Number:     inv.Number,
		Status:     inv.Status.String(),
		IssueDate:  inv.IssueDate,
		SecondDate: inv.DueDate,
		Issuer:     issuerFrom(t),
		Recipient:  recipientFrom(c),
		Lines:      lines,
		Totals:     inv.Totals(),
		Notes:      inv.Notes,
		Locale:     t.Locale,
		Currency:   t.Currency,
	}
}

func lineFrom(item sales.LineItem) DocumentLine {
	return DocumentLine{
		Description: item.Description,
		Quantity:    item.Quantity,
		UnitPrice:   item.UnitPrice,
		Amount:      item.Amount,
		Taxes:       item.Taxes,
	}
}

func issuerFrom(t *identity.Tenant) Party {
	p := Party{Name: t.Name, TaxID: t.TaxID, Email: t.SenderEmail}
	if t.Address != "" {
		p.Address = strings.Split(t.Address, "\n")
	}
	return p
}

func recipientFrom(c *partner.Contact) Party {
	if c == nil {
		return Party{}
	}
	p := Party{
		Name:    c.Name,
		Company: c.Company,
		TaxID:   c.TaxID,
		Email:   c.Email,
		Phone:   c.Phone,
	}
	if c.Address != "" {
		p.Address = append(p.Address, c.Address)
	}
	if city := strings.TrimSpace(c.Postal + " " + c.City); city != "" {
		p.Address = append(p.Address, city)
	}
	if c.Country != "" {
		p.Address = append(p.Address, c.Country)
	}
	return p
}

func sanitizeFileName(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	return b.String()
}
