package persistence

import (
	"fmt"
	"strings"

	"github.com/ribotflow/backend/internal/domain/shared"
)

// sortColumns whitelists the columns a list endpoint may be ordered by.
// User input never reaches ORDER BY unless it names one of them.
type sortColumns map[string]struct{}

// sortable builds a whitelist of cols plus id and the timestamps every table has
func sortable(cols ...string) sortColumns {
	s := sortColumns{"id": {}, "created_at": {}, "updated_at": {}}
	for _, c := range cols {
		s[c] = struct{}{}
	}
	return s
}

// column returns requested when whitelisted, otherwise fallback
func (s sortColumns) column(requested, fallback string) string {
	requested = strings.ToLower(strings.TrimSpace(requested))
	if _, ok := s[requested]; ok {
		return requested
	}
	return fallback
}

// orderBy renders the ORDER BY clause for q. Rows tied on the sort column are
// ordered by id so pages never overlap.
func (s sortColumns) orderBy(q shared.ListQuery, fallback string) string {
	col := s.column(q.SortBy, fallback)
	dir := "DESC"
	if strings.EqualFold(strings.TrimSpace(q.SortDir), "asc") {
		dir = "ASC"
	}
	if col == "id" {
		return "id " + dir
	}
	return fmt.Sprintf("%s %s, id %s", col, dir, dir)
}

var (
	quoteSorts    = sortable("number", "issue_date", "expiry_date", "status", "total")
	invoiceSorts  = sortable("number", "issue_date", "due_date", "status", "total", "paid_at")
	expenseSorts  = sortable("expense_date", "invoice_number", "category", "status", "total")
	supplierSorts = sortable("name", "tax_id", "email", "city")
	contactSorts  = sortable("name", "company", "email", "stage")
	audioSorts    = sortable("title", "status", "completed_at")
)
