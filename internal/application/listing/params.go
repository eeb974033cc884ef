package listing

import (
	"time"

	"github.com/ribotflow/backend/internal/domain/shared"
)

// Params are the paging, search and sorting query parameters accepted by every
// list endpoint. Embed it in a resource filter to add its own filters.
type Params struct {
	Search   string `form:"search" binding:"max=200"`
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	Offset   int    `form:"offset" binding:"omitempty,min=0"`
	SortBy   string `form:"sort_by" binding:"max=50"`
	SortDir  string `form:"sort_dir" binding:"omitempty,oneof=asc desc"`
}

// Query converts the parameters into a normalized ListQuery
func (p Params) Query() shared.ListQuery {
	q := shared.NewListQuery()
	q.Search = p.Search
	if p.Page > 0 {
		q.Page = p.Page
	}
	if p.PageSize > 0 {
		q.PageSize = p.PageSize
	}
	q.Offset = p.Offset
	if p.SortBy != "" {
		q.SortBy = p.SortBy
	}
	if p.SortDir != "" {
		q.SortDir = p.SortDir
	}
	return q.Normalize()
}

// DateRange is the inclusive date_from / date_to filter pair
type DateRange struct {
	DateFrom *time.Time `form:"date_from" time_format:"2006-01-02"`
	DateTo   *time.Time `form:"date_to" time_format:"2006-01-02"`
}

// Apply sets the date filters understood by the repositories
func (r DateRange) Apply(q shared.ListQuery) {
	if r.DateFrom != nil {
		q.Filters["date_from"] = *r.DateFrom
	}
	if r.DateTo != nil {
		q.Filters["date_to"] = *r.DateTo
	}
}
