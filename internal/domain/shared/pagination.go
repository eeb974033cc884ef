package shared

import (
	"strings"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// ListQuery describes a paginated, searchable and sortable list request.
// Offset takes precedence over Page when both are set.
type ListQuery struct {
	Search   string
	Filters  map[string]any
	SortBy   string
	SortDir  string
	PageSize int
	Offset   int
	Page     int
}

// NewListQuery returns a query with default paging and sorting
func NewListQuery() ListQuery {
	return ListQuery{
		Page:     1,
		PageSize: DefaultPageSize,
		SortBy:   "created_at",
		SortDir:  "desc",
		Filters:  make(map[string]any),
	}
}

// Normalize fills defaults and bounds the page size
func (q ListQuery) Normalize() ListQuery {
	if q.PageSize <= 0 {
		q.PageSize = DefaultPageSize
	}
	if q.PageSize > MaxPageSize {
		q.PageSize = MaxPageSize
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Offset > 0 {
		q.Page = q.Offset/q.PageSize + 1
	} else {
		q.Offset = (q.Page - 1) * q.PageSize
	}
	q.SortDir = strings.ToLower(strings.TrimSpace(q.SortDir))
	if q.SortDir != "asc" {
		q.SortDir = "desc"
	}
	q.Search = strings.TrimSpace(q.Search)
	if q.Filters == nil {
		q.Filters = make(map[string]any)
	}
	return q
}

// Filter returns the filter value for key and whether it is set to a non-empty value
func (q ListQuery) Filter(key string) (any, bool) {
	v, ok := q.Filters[key]
	if !ok || v == nil {
		return nil, false
	}
	if s, isString := v.(string); isString && strings.TrimSpace(s) == "" {
		return nil, false
	}
	return v, true
}

// Page is one page of a list result
type Page[T any] struct {
	Data       []T   `json:"data"`
	TotalCount int64 `json:"total_count"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalPages int   `json:"total_pages"`
}

// TotalPages returns ceil(count/pageSize). A non-positive page size yields 0.
func TotalPages(count int64, pageSize int) int {
	if pageSize <= 0 || count <= 0 {
		return 0
	}
	pages := count / int64(pageSize)
	if count%int64(pageSize) > 0 {
		pages++
	}
	return int(pages)
}

// ClampPage bounds page into [1, totalPages]. With no pages at all the result is 1.
func ClampPage(page, totalPages int) int {
	if totalPages < 1 {
		totalPages = 1
	}
	if page < 1 {
		return 1
	}
	if page > totalPages {
		return totalPages
	}
	return page
}

// NewPage builds a page for the given query and total count
func NewPage[T any](data []T, total int64, q ListQuery) Page[T] {
	q = q.Normalize()
	if data == nil {
		data = make([]T, 0)
	}
	totalPages := TotalPages(total, q.PageSize)
	return Page[T]{
		Data:       data,
		TotalCount: total,
		Page:       ClampPage(q.Page, totalPages),
		PageSize:   q.PageSize,
		TotalPages: totalPages,
	}
}

// MapPage converts the items of a page, keeping the paging metadata
func MapPage[T, R any](p Page[T], fn func(T) R) Page[R] {
	out := make([]R, len(p.Data))
	for i, item := range p.Data {
		out[i] = fn(item)
	}
	return Page[R]{
		Data:       out,
		TotalCount: p.TotalCount,
		Page:       p.Page,
		PageSize:   p.PageSize,
		TotalPages: p.TotalPages,
	}
}
