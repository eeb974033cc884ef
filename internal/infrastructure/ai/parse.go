package ai

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/ribotflow/backend/internal/domain/purchasing"
	"github.com/ribotflow/backend/internal/domain/transcription"
	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
)

var fencePattern = regexp.MustCompile("(?s)^```[a-zA-Z]*\\s*(.*?)\\s*```$")

// cleanJSON strips markdown fences and any prose around the outermost object
func cleanJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if m := fencePattern.FindStringSubmatch(raw); m != nil {
		raw = m[1]
	}
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		raw = raw[start : end+1]
	}
	return raw
}

// first returns the first of paths that exists
func first(doc gjson.Result, paths ...string) gjson.Result {
	for _, p := range paths {
		if r := doc.Get(p); r.Exists() && r.Type != gjson.Null {
			return r
		}
	}
	return gjson.Result{}
}

// ParseExtraction reads the model's answer for a receipt or supplier invoice.
// Amounts may come as numbers or as locale-formatted strings.
func ParseExtraction(raw string) (*purchasing.ExtractedDocument, error) {
	body := cleanJSON(raw)
	if !gjson.Valid(body) {
		return nil, ErrInvalidJSON
	}
	doc := gjson.Parse(body)

	out := &purchasing.ExtractedDocument{
		SupplierName:  strings.TrimSpace(first(doc, "supplier.name", "supplier_name", "vendor").String()),
		SupplierTaxID: strings.TrimSpace(first(doc, "supplier.tax_id", "supplier_tax_id", "tax_id", "nif").String()),
		InvoiceNumber: strings.TrimSpace(first(doc, "invoice_number", "number").String()),
		Currency:      strings.ToUpper(strings.TrimSpace(first(doc, "currency").String())),
		Subtotal:      amount(first(doc, "subtotal", "base")),
		TaxAmount:     amount(first(doc, "tax_amount", "taxes", "vat")),
		Total:         amount(first(doc, "total", "total_amount")),
		Confidence:    first(doc, "confidence").Float(),
		RawText:       body,
	}
	if d, ok := parseDate(first(doc, "date", "issue_date").String()); ok {
		out.IssueDate = &d
	}

	first(doc, "items", "lines").ForEach(func(_, item gjson.Result) bool {
		desc := strings.TrimSpace(first(item, "description", "concept", "name").String())
		if desc == "" {
			return true
		}
		out.Items = append(out.Items, purchasing.ExtractedItem{
			Description: desc,
			Quantity:    amount(first(item, "quantity", "qty")),
			UnitPrice:   amount(first(item, "unit_price", "price")),
			TaxPercent:  amount(first(item, "tax_percent", "vat_percent", "tax_rate")),
		})
		return true
	})

	// a receipt with only a total becomes one line
	if len(out.Items) == 0 && out.Total.IsPositive() {
		price := out.Subtotal
		if price.IsZero() {
			price = out.Total
		}
		item := purchasing.ExtractedItem{Description: "Total", Quantity: decimal.NewFromInt(1), UnitPrice: price}
		if out.Subtotal.IsPositive() && out.TaxAmount.IsPositive() {
			item.TaxPercent = out.TaxAmount.Div(out.Subtotal).Mul(decimal.NewFromInt(100)).Round(0)
		}
		out.Items = append(out.Items, item)
	}
	return out, nil
}

// ParseAnalysis reads the model's transcription answer
func ParseAnalysis(raw string) (transcription.Analysis, error) {
	body := cleanJSON(raw)
	if !gjson.Valid(body) {
		return transcription.Analysis{}, ErrInvalidJSON
	}
	doc := gjson.Parse(body)

	a := transcription.Analysis{
		Transcript: strings.TrimSpace(first(doc, "transcript", "transcription").String()),
		Summary:    strings.TrimSpace(first(doc, "summary").String()),
	}
	for _, p := range first(doc, "participants", "speakers").Array() {
		if name := strings.TrimSpace(p.String()); name != "" {
			a.Participants = append(a.Participants, name)
		}
	}
	first(doc, "key_moments", "keyMoments").ForEach(func(_, m gjson.Result) bool {
		a.KeyMoments = append(a.KeyMoments, transcription.KeyMoment{
			Timestamp:   strings.TrimSpace(m.Get("timestamp").String()),
			Description: strings.TrimSpace(m.Get("description").String()),
		})
		return true
	})
	first(doc, "dialogue", "turns").ForEach(func(_, d gjson.Result) bool {
		a.Dialogue = append(a.Dialogue, transcription.DialogueTurn{
			Speaker:      strings.TrimSpace(d.Get("speaker").String()),
			Text:         strings.TrimSpace(d.Get("text").String()),
			StartSeconds: seconds(first(d, "start_seconds", "start")),
		})
		return true
	})
	if a.Transcript == "" && len(a.Dialogue) > 0 {
		lines := make([]string, len(a.Dialogue))
		for i, d := range a.Dialogue {
			lines[i] = d.Speaker + ": " + d.Text
		}
		a.Transcript = strings.Join(lines, "\n")
	}
	if a.Transcript == "" {
		return a, ErrEmptyResponse
	}
	return a, nil
}

// amount reads a number or a string like "1.234,56 €"
func amount(r gjson.Result) decimal.Decimal {
	switch r.Type {
	case gjson.Number:
		d, err := decimal.NewFromString(r.Raw)
		if err != nil {
			return decimal.NewFromFloat(r.Float())
		}
		return d
	case gjson.String:
		return ParseAmount(r.String())
	}
	return decimal.Zero
}

// ParseAmount parses amounts written with either decimal convention.
// The last separator followed by one or two digits is the decimal point.
func ParseAmount(s string) decimal.Decimal {
	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' || r == ',' || r == '-' {
			b.WriteRune(r)
		}
	}
	clean := b.String()
	if clean == "" {
		return decimal.Zero
	}

	lastSep := strings.LastIndexAny(clean, ".,")
	if lastSep >= 0 {
		decimals := len(clean) - lastSep - 1
		intPart := strings.NewReplacer(".", "", ",", "").Replace(clean[:lastSep])
		if decimals == 1 || decimals == 2 {
			clean = intPart + "." + clean[lastSep+1:]
		} else {
			clean = intPart + clean[lastSep+1:]
		}
	}
	d, err := decimal.NewFromString(clean)
	if err != nil {
		return decimal.Zero
	}
	return d
}

var dateLayouts = []string{"2006-01-02", "02/01/2006", "02-01-2006", "2006/01/02", "02.01.2006", "2/1/2006", time.RFC3339}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// seconds reads 83, "83.5" or "01:23"
func seconds(r gjson.Result) float64 {
	if r.Type == gjson.Number {
		return r.Float()
	}
	s := strings.TrimSpace(r.String())
	if s == "" {
		return 0
	}
	if !strings.Contains(s, ":") {
		f, _ := strconv.ParseFloat(s, 64)
		return f
	}
	total := 0.0
	for _, part := range strings.Split(s, ":") {
		v, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return 0
		}
		total = total*60 + v
	}
	return total
}
