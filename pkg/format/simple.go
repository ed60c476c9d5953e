package format

import (
	"github.com/conduit-lang/responder/pkg/resource"
)

// DefaultKey wraps data when the node declares no key.
const DefaultKey = "data"

// Simple renders data under its resource key with relations inlined.
type Simple struct{}

// NewSimple creates the simple serializer.
func NewSimple() *Simple {
	return &Simple{}
}

// MediaType implements Serializer.
func (s *Simple) MediaType() string {
	return JSONMediaType
}

// Success implements Serializer.
func (s *Simple) Success(node *resource.Node, opts Options) (map[string]any, error) {
	out := copyMeta(opts.Meta)

	key := DefaultKey
	if node != nil && node.Key != "" {
		key = node.Key
	}
	out[key] = s.render(node, opts.Fieldsets)

	if node != nil {
		if node.Pagination != nil {
			out["pagination"] = s.pagination(node.Pagination)
		} else if node.Cursor != nil {
			out["cursor"] = cursorMap(node.Cursor)
		}
	}
	return out, nil
}

func (s *Simple) render(n *resource.Node, fieldsets map[string][]string) any {
	switch {
	case n.IsNull():
		return nil
	case n.IsCollection():
		items := make([]any, 0, len(n.Items))
		for _, item := range n.Items {
			items = append(items, s.render(item, fieldsets))
		}
		return items
	}

	data := ApplyFieldset(n.Data, fieldsFor(n, fieldsets))
	for _, name := range n.RelationNames() {
		data[name] = s.render(n.Relations[name], fieldsets)
	}
	return data
}

func (s *Simple) pagination(p *resource.Pagination) map[string]any {
	return map[string]any{
		"count":       p.Count,
		"total":       p.Total,
		"perPage":     p.PerPage,
		"currentPage": p.CurrentPage,
		"totalPages":  p.TotalPages,
		"links":       linksMap(p.Links),
	}
}

// Error implements Serializer. The payload is
// {"error": {"code", "message", "fields"}} with meta merged top-level.
func (s *Simple) Error(e ErrorData) map[string]any {
	body := map[string]any{"code": e.Code}
	if e.Message != "" {
		body["message"] = e.Message
	}
	if e.Validation.HasErrors() {
		fields := make(map[string]any)
		for _, field := range e.Validation.Fields() {
			fields[field] = e.Validation.Failures(field)
		}
		body["fields"] = fields
	}

	out := copyMeta(e.Meta)
	out["error"] = body
	return out
}
