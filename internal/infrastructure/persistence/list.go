package persistence

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ribotflow/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// listSpec describes how a ListQuery maps onto one table
type listSpec struct {
	// searchColumns are matched with ILIKE against the search term
	searchColumns []string
	// filters lists the accepted filter keys in the order they are applied
	filters []filterColumn
	// dateColumn receives the date_from / date_to filters
	dateColumn  string
	sorts       sortColumns
	defaultSort string
}

type filterColumn struct {
	key    string
	column string
}

// Filter keys understood by every list with a date column
const (
	FilterDateFrom = "date_from"
	FilterDateTo   = "date_to"
)

// applyFilters adds the search, filter and date range conditions of q.
// The result is shared by the data query and the count query.
func (s listSpec) applyFilters(db *gorm.DB, q shared.ListQuery) *gorm.DB {
	q = q.Normalize()
	if q.Search != "" && len(s.searchColumns) > 0 {
		pattern := "%" + escapeLike(q.Search) + "%"
		conds := make([]string, len(s.searchColumns))
		args := make([]any, len(s.searchColumns))
		for i, col := range s.searchColumns {
			conds[i] = col + " ILIKE ?"
			args[i] = pattern
		}
		db = db.Where("("+strings.Join(conds, " OR ")+")", args...)
	}
	for _, f := range s.filters {
		v, ok := q.Filter(f.key)
		if !ok {
			continue
		}
		db = db.Where(f.column+" = ?", filterValue(v))
	}
	if s.dateColumn != "" {
		if from, ok := dateFilter(q, FilterDateFrom); ok {
			db = db.Where(s.dateColumn+" >= ?", from)
		}
		if to, ok := dateFilter(q, FilterDateTo); ok {
			db = db.Where(s.dateColumn+" <= ?", to)
		}
	}
	return db
}

// applyPaging adds the whitelisted ordering and the offset/limit of q
func (s listSpec) applyPaging(db *gorm.DB, q shared.ListQuery) *gorm.DB {
	q = q.Normalize()
	return db.Order(s.sorts.orderBy(q, s.defaultSort)).Offset(q.Offset).Limit(q.PageSize)
}

func filterValue(v any) any {
	switch val := v.(type) {
	case uuid.UUID:
		return val
	case fmt.Stringer:
		return val.String()
	}
	return v
}

func dateFilter(q shared.ListQuery, key string) (time.Time, bool) {
	v, ok := q.Filter(key)
	if !ok {
		return time.Time{}, false
	}
	switch val := v.(type) {
	case time.Time:
		return val, !val.IsZero()
	case *time.Time:
		if val == nil {
			return time.Time{}, false
		}
		return *val, true
	case string:
		t, err := time.Parse("2006-01-02", strings.TrimSpace(val))
		if err != nil {
			return time.Time{}, false
		}
		return t, true
	}
	return time.Time{}, false
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
