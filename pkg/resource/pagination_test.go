package resource

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewPagination(t *testing.T) {
	tests := []struct {
		name      string
		paginator *Paginator
		count     int
		expected  Pagination
	}{
		{
			name:      "middle page",
			paginator: &Paginator{Total: 45, PerPage: 10, CurrentPage: 2},
			count:     10,
			expected:  Pagination{Count: 10, Total: 45, PerPage: 10, CurrentPage: 2, TotalPages: 5},
		},
		{
			name:      "empty result still has one page",
			paginator: &Paginator{Total: 0, PerPage: 10, CurrentPage: 1},
			count:     0,
			expected:  Pagination{Count: 0, Total: 0, PerPage: 10, CurrentPage: 1, TotalPages: 1},
		},
		{
			name:      "missing per page uses count",
			paginator: &Paginator{Total: 6, CurrentPage: 0},
			count:     3,
			expected:  Pagination{Count: 3, Total: 6, PerPage: 3, CurrentPage: 1, TotalPages: 2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, *NewPagination(tt.paginator, tt.count))
		})
	}
}

func TestNewPagination_Links(t *testing.T) {
	p := &Paginator{
		Total:       30,
		PerPage:     10,
		CurrentPage: 2,
		BaseURL:     "http://api.test/products?sort=name",
	}

	meta := NewPagination(p, 10)

	assert.Equal(t, "http://api.test/products?page=2&sort=name", meta.Links.Self)
	assert.Equal(t, "http://api.test/products?page=1&sort=name", meta.Links.First)
	assert.Equal(t, "http://api.test/products?page=3&sort=name", meta.Links.Last)
	assert.Equal(t, "http://api.test/products?page=1&sort=name", meta.Links.Prev)
	assert.Equal(t, "http://api.test/products?page=3&sort=name", meta.Links.Next)
}

func TestBuildLinks_Boundaries(t *testing.T) {
	first := BuildLinks("/items", "page[number]", 1, 3)
	assert.Empty(t, first.Prev)
	assert.Equal(t, "/items?page%5Bnumber%5D=2", first.Next)

	last := BuildLinks("/items", "page[number]", 3, 3)
	assert.Equal(t, "/items?page%5Bnumber%5D=2", last.Prev)
	assert.Empty(t, last.Next)

	only := BuildLinks("/items", "p", 1, 1)
	assert.Empty(t, only.Prev)
	assert.Empty(t, only.Next)
	assert.Equal(t, "/items?p=1", only.Self)
}
