package resource

import (
	"fmt"
	"net/url"
	"strconv"
)

// DefaultPageParam is the query parameter used for page numbers in links.
const DefaultPageParam = "page"

// Paginator is a page of a larger result set.
type Paginator struct {
	Items       any
	Total       int
	PerPage     int
	CurrentPage int

	// BaseURL is used to build navigation links. Links are omitted when empty.
	BaseURL string
	// PageParam overrides the query parameter carrying the page number.
	PageParam string
}

// CursorPaginator is a cursor-addressed slice of a result set.
type CursorPaginator struct {
	Items    any
	Current  any
	Previous any
	Next     any
}

// Links holds pagination navigation links.
type Links struct {
	Self  string
	First string
	Last  string
	Prev  string
	Next  string
}

// Pagination is the metadata extracted from a Paginator.
type Pagination struct {
	Count       int
	Total       int
	PerPage     int
	CurrentPage int
	TotalPages  int
	Links       Links
}

// Cursor is the metadata extracted from a CursorPaginator.
type Cursor struct {
	Current  any
	Previous any
	Next     any
	Count    int
}

// NewPagination computes pagination metadata for a page holding count items.
func NewPagination(p *Paginator, count int) *Pagination {
	perPage := p.PerPage
	if perPage < 1 {
		perPage = count
	}
	totalPages := 1
	if perPage > 0 {
		totalPages = (p.Total + perPage - 1) / perPage
	}
	if totalPages < 1 {
		totalPages = 1
	}
	current := p.CurrentPage
	if current < 1 {
		current = 1
	}

	meta := &Pagination{
		Count:       count,
		Total:       p.Total,
		PerPage:     perPage,
		CurrentPage: current,
		TotalPages:  totalPages,
	}
	if p.BaseURL != "" {
		param := p.PageParam
		if param == "" {
			param = DefaultPageParam
		}
		meta.Links = BuildLinks(p.BaseURL, param, current, totalPages)
	}
	return meta
}

// BuildLinks creates navigation links for the given page.
func BuildLinks(baseURL, param string, page, totalPages int) Links {
	links := Links{
		Self:  buildPageURL(baseURL, param, page),
		First: buildPageURL(baseURL, param, 1),
		Last:  buildPageURL(baseURL, param, totalPages),
	}

	if page > 1 {
		links.Prev = buildPageURL(baseURL, param, page-1)
	}

	if page < totalPages {
		links.Next = buildPageURL(baseURL, param, page+1)
	}

	return links
}

func buildPageURL(baseURL, param string, page int) string {
	u, err := url.Parse(baseURL)
	if err != nil {
		return fmt.Sprintf("%s?%s=%d", baseURL, param, page)
	}

	q := u.Query()
	q.Set(param, strconv.Itoa(page))
	u.RawQuery = q.Encode()

	return u.String()
}
