package format

import (
	"fmt"
	"math"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/DataDog/jsonapi"

	"github.com/conduit-lang/responder/pkg/resource"
)

// JSONAPI renders resource objects with relationships and a flattened,
// deduplicated "included" section.
type JSONAPI struct{}

// NewJSONAPI creates the JSON:API serializer.
func NewJSONAPI() *JSONAPI {
	return &JSONAPI{}
}

// MediaType implements Serializer.
func (s *JSONAPI) MediaType() string {
	return JSONAPIMediaType
}

// Success implements Serializer.
func (s *JSONAPI) Success(node *resource.Node, opts Options) (map[string]any, error) {
	doc := make(map[string]any)
	inc := newIncludedSet()
	primary := make(map[string]bool)

	switch {
	case node.IsNull():
		doc["data"] = nil
	case node.IsCollection():
		data := make([]any, 0, len(node.Items))
		for _, item := range node.Items {
			obj, err := s.resourceObject(item, opts.Fieldsets, inc)
			if err != nil {
				return nil, err
			}
			if id, ok := identifier(item); ok {
				primary[identityKey(item.Key, id)] = true
			}
			data = append(data, obj)
		}
		doc["data"] = data
	default:
		obj, err := s.resourceObject(node, opts.Fieldsets, inc)
		if err != nil {
			return nil, err
		}
		if id, ok := identifier(node); ok {
			primary[identityKey(node.Key, id)] = true
		}
		doc["data"] = obj
	}

	if included := inc.sorted(primary); len(included) > 0 {
		doc["included"] = included
	}

	meta := copyMeta(opts.Meta)
	if node != nil {
		if node.Pagination != nil {
			meta["pagination"] = s.pagination(node.Pagination)
		} else if node.Cursor != nil {
			meta["cursor"] = cursorMap(node.Cursor)
		}
	}
	if len(meta) > 0 {
		doc["meta"] = meta
	}
	return doc, nil
}

// resourceObject builds {type, id, attributes, relationships} for an item
// and registers its related resources in inc.
func (s *JSONAPI) resourceObject(n *resource.Node, fieldsets map[string][]string, inc *includedSet) (map[string]any, error) {
	attrs := ApplyFieldset(n.Data, fieldsFor(n, fieldsets))
	delete(attrs, "id")

	obj := map[string]any{
		"type":       n.Key,
		"attributes": attrs,
	}
	if id, ok := identifier(n); ok {
		obj["id"] = id
	}

	rels := make(map[string]any)
	for _, name := range n.RelationNames() {
		rel, err := s.relationship(n.Relations[name], fieldsets, inc)
		if err != nil {
			return nil, fmt.Errorf("relationship %s: %w", name, err)
		}
		rels[name] = rel
	}
	if len(rels) > 0 {
		obj["relationships"] = rels
	}
	return obj, nil
}

func (s *JSONAPI) relationship(child *resource.Node, fieldsets map[string][]string, inc *includedSet) (map[string]any, error) {
	switch {
	case child.IsNull():
		return map[string]any{"data": nil}, nil
	case child.IsCollection():
		data := make([]any, 0, len(child.Items))
		for _, item := range child.Items {
			ref, err := s.include(item, fieldsets, inc)
			if err != nil {
				return nil, err
			}
			data = append(data, ref)
		}
		return map[string]any{"data": data}, nil
	default:
		ref, err := s.include(child, fieldsets, inc)
		if err != nil {
			return nil, err
		}
		return map[string]any{"data": ref}, nil
	}
}

// include adds a related item to inc and returns its resource identifier.
func (s *JSONAPI) include(n *resource.Node, fieldsets map[string][]string, inc *includedSet) (map[string]any, error) {
	id, ok := identifier(n)
	if !ok {
		return nil, fmt.Errorf("%w: included resource of type %q", ErrMissingIdentifier, n.Key)
	}
	obj, err := s.resourceObject(n, fieldsets, inc)
	if err != nil {
		return nil, err
	}
	inc.add(n.Key, id, obj)
	return map[string]any{"type": n.Key, "id": id}, nil
}

func (s *JSONAPI) pagination(p *resource.Pagination) map[string]any {
	return map[string]any{
		"count":        p.Count,
		"total":        p.Total,
		"per_page":     p.PerPage,
		"current_page": p.CurrentPage,
		"total_pages":  p.TotalPages,
		"links":        linksMap(p.Links),
	}
}

// Error implements Serializer. The general error comes first, followed by
// one error per failed validation rule.
func (s *JSONAPI) Error(e ErrorData) map[string]any {
	var status *int
	if e.Status != 0 {
		st := e.Status
		status = &st
	}

	general := &jsonapi.Error{
		Status: status,
		Code:   e.Code,
		Detail: e.Message,
	}
	if status != nil {
		general.Title = http.StatusText(*status)
	}
	errs := []*jsonapi.Error{general}

	for _, field := range e.Validation.Fields() {
		for _, f := range e.Validation.Failures(field) {
			errs = append(errs, &jsonapi.Error{
				Status: status,
				Code:   f.Rule,
				Detail: f.Message,
				Source: &jsonapi.ErrorSource{
					Pointer: fmt.Sprintf("/data/attributes/%s", escapeJSONPointer(field)),
				},
			})
		}
	}

	doc := map[string]any{"errors": errs}
	if len(e.Meta) > 0 {
		doc["meta"] = copyMeta(e.Meta)
	}
	return doc
}

// escapeJSONPointer escapes a token for use in a JSON Pointer (RFC 6901).
func escapeJSONPointer(token string) string {
	// Order matters: escape ~ before /
	token = strings.ReplaceAll(token, "~", "~0")
	token = strings.ReplaceAll(token, "/", "~1")
	return token
}

// identifier returns the node's id attribute.
func identifier(n *resource.Node) (any, bool) {
	id, ok := n.Data["id"]
	if !ok || id == nil {
		return nil, false
	}
	return id, true
}

func identityKey(typ string, id any) string {
	return typ + "\x00" + fmt.Sprint(id)
}

// includedSet deduplicates included resources by (type, id).
type includedSet struct {
	entries map[string]*includedEntry
}

type includedEntry struct {
	typ string
	id  any
	obj map[string]any
}

func newIncludedSet() *includedSet {
	return &includedSet{entries: make(map[string]*includedEntry)}
}

// add stores obj, merging attributes and relationships into an existing
// entry for the same resource.
func (s *includedSet) add(typ string, id any, obj map[string]any) {
	key := identityKey(typ, id)
	existing, ok := s.entries[key]
	if !ok {
		s.entries[key] = &includedEntry{typ: typ, id: id, obj: obj}
		return
	}
	mergeMember(existing.obj, obj, "attributes")
	mergeMember(existing.obj, obj, "relationships")
}

func mergeMember(dst, src map[string]any, member string) {
	from, ok := src[member].(map[string]any)
	if !ok || len(from) == 0 {
		return
	}
	into, ok := dst[member].(map[string]any)
	if !ok {
		into = make(map[string]any, len(from))
		dst[member] = into
	}
	for k, v := range from {
		if _, exists := into[k]; !exists {
			into[k] = v
		}
	}
}

// sorted returns the included objects ordered by type, then id, leaving out
// the primary resources.
func (s *includedSet) sorted(primary map[string]bool) []any {
	keys := make([]string, 0, len(s.entries))
	for key := range s.entries {
		if !primary[key] {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	entries := make([]*includedEntry, 0, len(keys))
	for _, key := range keys {
		entries = append(entries, s.entries[key])
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].typ != entries[j].typ {
			return entries[i].typ < entries[j].typ
		}
		return lessID(entries[i].id, entries[j].id)
	})

	out := make([]any, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.obj)
	}
	return out
}

// lessID orders numeric ids before the others. Numeric ids compare by value,
// the rest lexically; equal values fall back to their text.
func lessID(a, b any) bool {
	na, okA := numeric(a)
	nb, okB := numeric(b)
	switch {
	case okA != okB:
		return okA
	case okA && na != nb:
		return na < nb
	}
	return fmt.Sprint(a) < fmt.Sprint(b)
}

func numeric(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), !math.IsNaN(float64(n))
	case float64:
		return n, !math.IsNaN(n)
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil && !math.IsNaN(f)
	default:
		return 0, false
	}
}
