package sales

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Document number series
const (
	SeriesQuote   = "Q"
	SeriesInvoice = "F"
)

// NumberSequence hands out consecutive document numbers per tenant, series and year
type NumberSequence interface {
	// Next reserves and returns the next value, starting at 1
	Next(ctx context.Context, tenantID uuid.UUID, series string, year int) (int64, error)
}

// FormatNumber renders a document number such as "F-2026-0042"
func FormatNumber(series string, year int, n int64) string {
	return fmt.Sprintf("%s-%d-%04d", series, year, n)
}
