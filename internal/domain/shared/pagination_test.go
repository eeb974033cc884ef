package shared

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTotalPages(t *testing.T) {
	tests := []struct {
		name     string
		count    int64
		pageSize int
		want     int
	}{
		{"no rows", 0, 20, 0},
		{"exact fit", 40, 20, 2},
		{"partial last page", 41, 20, 3},
		{"single row", 1, 20, 1},
		{"zero page size", 10, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TotalPages(tt.count, tt.pageSize))
		})
	}
}

func TestClampPage(t *testing.T) {
	t.Run("below range", func(t *testing.T) {
		assert.Equal(t, 1, ClampPage(0, 5))
		assert.Equal(t, 1, ClampPage(-3, 5))
	})
	t.Run("above range", func(t *testing.T) {
		assert.Equal(t, 5, ClampPage(9, 5))
	})
	t.Run("inside range", func(t *testing.T) {
		assert.Equal(t, 3, ClampPage(3, 5))
	})
	t.Run("empty result", func(t *testing.T) {
		assert.Equal(t, 1, ClampPage(4, 0))
	})
}

func TestListQuery_Normalize(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		q := ListQuery{}.Normalize()
		assert.Equal(t, DefaultPageSize, q.PageSize)
		assert.Equal(t, 1, q.Page)
		assert.Equal(t, 0, q.Offset)
		assert.Equal(t, "desc", q.SortDir)
		assert.NotNil(t, q.Filters)
	})

	t.Run("page size is capped", func(t *testing.T) {
		q := ListQuery{PageSize: 1000}.Normalize()
		assert.Equal(t, MaxPageSize, q.PageSize)
	})

	t.Run("offset wins over page", func(t *testing.T) {
		q := ListQuery{PageSize: 10, Offset: 25, Page: 7}.Normalize()
		assert.Equal(t, 25, q.Offset)
		assert.Equal(t, 3, q.Page)
	})

	t.Run("page derives offset", func(t *testing.T) {
		q := ListQuery{PageSize: 10, Page: 4}.Normalize()
		assert.Equal(t, 30, q.Offset)
	})

	t.Run("sort direction", func(t *testing.T) {
		assert.Equal(t, "asc", ListQuery{SortDir: " ASC "}.Normalize().SortDir)
		assert.Equal(t, "desc", ListQuery{SortDir: "sideways"}.Normalize().SortDir)
	})
}

func TestListQuery_Filter(t *testing.T) {
	q := ListQuery{Filters: map[string]any{"status": "draft", "empty": "  ", "nil": nil}}

	v, ok := q.Filter("status")
	assert.True(t, ok)
	assert.Equal(t, "draft", v)

	_, ok = q.Filter("empty")
	assert.False(t, ok)
	_, ok = q.Filter("nil")
	assert.False(t, ok)
	_, ok = q.Filter("missing")
	assert.False(t, ok)
}

func TestNewPage(t *testing.T) {
	t.Run("clamps requested page", func(t *testing.T) {
		p := NewPage([]string{"a"}, 21, ListQuery{PageSize: 10, Page: 9})
		assert.Equal(t, 3, p.TotalPages)
		assert.Equal(t, 3, p.Page)
		assert.Equal(t, int64(21), p.TotalCount)
	})

	t.Run("nil data becomes empty slice", func(t *testing.T) {
		p := NewPage[string](nil, 0, ListQuery{})
		assert.NotNil(t, p.Data)
		assert.Empty(t, p.Data)
		assert.Equal(t, 0, p.TotalPages)
		assert.Equal(t, 1, p.Page)
	})
}

func TestMapPage(t *testing.T) {
	p := NewPage([]int{1, 2, 3}, 3, ListQuery{PageSize: 3})
	out := MapPage(p, func(i int) int { return i * 10 })
	assert.Equal(t, []int{10, 20, 30}, out.Data)
	assert.Equal(t, p.TotalPages, out.TotalPages)
}
