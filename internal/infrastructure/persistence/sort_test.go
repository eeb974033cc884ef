package persistence

import (
	"testing"

	"github.com/ribotflow/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
)

func TestSortColumns_OrderBy(t *testing.T) {
	cols := sortable("number", "total")

	tests := []struct {
		name    string
		sortBy  string
		sortDir string
		want    string
	}{
		{"whitelisted column", "number", "asc", "number ASC, id ASC"},
		{"case and spaces", "  TOTAL ", " ASC ", "total ASC, id ASC"},
		{"common column", "updated_at", "desc", "updated_at DESC, id DESC"},
		{"unknown column falls back", "password_hash", "asc", "created_at ASC, id ASC"},
		{"empty falls back", "", "", "created_at DESC, id DESC"},
		{"injection in column", "number; DROP TABLE quotes", "asc", "created_at ASC, id ASC"},
		{"injection in direction", "number", "ASC; DROP TABLE quotes", "number DESC, id DESC"},
		{"id needs no tie-breaker", "id", "asc", "id ASC"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := shared.ListQuery{SortBy: tt.sortBy, SortDir: tt.sortDir}
			assert.Equal(t, tt.want, cols.orderBy(q, "created_at"))
		})
	}
}

func TestSortColumns_Whitelists(t *testing.T) {
	for name, cols := range map[string]sortColumns{
		"quotes": quoteSorts, "invoices": invoiceSorts, "expenses": expenseSorts,
		"suppliers": supplierSorts, "contacts": contactSorts, "audio_jobs": audioSorts,
	} {
		for _, c := range []string{"id", "created_at", "updated_at"} {
			assert.Equal(t, c, cols.column(c, "fallback"), "%s.%s", name, c)
		}
	}
	assert.Equal(t, "paid_at", invoiceSorts.column("paid_at", "created_at"))
	assert.Equal(t, "created_at", quoteSorts.column("paid_at", "created_at"))
}
