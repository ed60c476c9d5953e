// Package query parses the inclusion, fieldset and paging parameters of a
// request.
package query

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
)

// fieldsPattern matches query parameters like fields[typename].
var fieldsPattern = regexp.MustCompile(`^fields\[([^\]]+)\]$`)

// ErrInvalidPage is returned for malformed page parameters.
var ErrInvalidPage = errors.New("invalid page parameter")

// Page is the requested page of a collection.
type Page struct {
	Number int
	Size   int
}

// Params holds every parameter the responder understands.
type Params struct {
	Include []string
	Exclude []string
	Fields  map[string][]string
	Page    Page
	Cursor  string

	// UseCursor is set when the cursor parameter is present, even empty.
	UseCursor bool
}

// Parse reads all parameters from r. defaultSize and maxSize bound page[size].
func Parse(r *http.Request, defaultSize, maxSize int) (*Params, error) {
	page, err := ParsePage(r, defaultSize, maxSize)
	if err != nil {
		return nil, err
	}
	return &Params{
		Include:   ParseInclude(r),
		Exclude:   ParseExclude(r),
		Fields:    ParseFields(r),
		Page:      page,
		Cursor:    ParseCursor(r),
		UseCursor: r.URL.Query().Has("cursor"),
	}, nil
}

// ParseInclude parses the include query parameter into a slice of relationship names.
// Example: ?include=author,comments returns ["author", "comments"]
// Returns an empty slice if the include parameter is not present.
func ParseInclude(r *http.Request) []string {
	return splitList(r.URL.Query().Get("include"))
}

// ParseExclude parses the exclude query parameter. Excluded paths win over
// both requested and default relations.
// Example: ?exclude=profile,orders.products returns ["profile", "orders.products"]
func ParseExclude(r *http.Request) []string {
	return splitList(r.URL.Query().Get("exclude"))
}

// ParseFields parses the fields query parameters into a map of resource types to field names.
// Example: ?fields[users]=name,email&fields[posts]=title
// Returns: {"users": ["name", "email"], "posts": ["title"]}
// Returns an empty map if no fields parameters are present.
func ParseFields(r *http.Request) map[string][]string {
	result := make(map[string][]string)

	for key, values := range r.URL.Query() {
		matches := fieldsPattern.FindStringSubmatch(key)
		if len(matches) != 2 {
			continue
		}

		typeName := matches[1]
		if len(values) == 0 {
			result[typeName] = []string{}
			continue
		}
		result[typeName] = splitList(values[0])
	}

	return result
}

// ParsePage parses page[number] and page[size]. Missing values fall back to
// page 1 and defaultSize; sizes above maxSize are clamped.
func ParsePage(r *http.Request, defaultSize, maxSize int) (Page, error) {
	q := r.URL.Query()
	page := Page{Number: 1, Size: defaultSize}

	if raw := q.Get("page[number]"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return Page{}, fmt.Errorf("%w: page[number] must be a positive integer, got %q", ErrInvalidPage, raw)
		}
		page.Number = n
	}

	if raw := q.Get("page[size]"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return Page{}, fmt.Errorf("%w: page[size] must be a positive integer, got %q", ErrInvalidPage, raw)
		}
		page.Size = n
	}

	if maxSize > 0 && page.Size > maxSize {
		page.Size = maxSize
	}
	return page, nil
}

// ParseCursor returns the opaque cursor token, if any.
func ParseCursor(r *http.Request) string {
	return strings.TrimSpace(r.URL.Query().Get("cursor"))
}

// Offset returns the index of the first item on the page.
func (p Page) Offset() int {
	return (p.Number - 1) * p.Size
}

func splitList(raw string) []string {
	if raw == "" {
		return []string{}
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
