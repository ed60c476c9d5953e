// Package relations decides which relations of an entity are included in a
// response, combining whitelists declared by transformers with the with and
// without paths requested by the caller.
package relations

import (
	"fmt"
	"sort"
	"strings"

	"github.com/conduit-lang/responder/pkg/resource"
)

// Constraint narrows or reorders the entities of a relation before they are
// built (a filter or a sort, for example).
type Constraint func(entities []resource.Entity) []resource.Entity

// Include is one requested relation path.
type Include struct {
	// Path is a dotted relation path, e.g. "orders.customer".
	Path string
	// Fields is a field filter for the last segment of Path.
	Fields []string
	// Constraint applies to the last segment of Path.
	Constraint Constraint

	// fromDefault marks paths that come from a whitelist's defaults; they
	// bypass the allowed check one level down
	fromDefault bool
}

// Request is the set of relation paths to include and to suppress at one
// nesting level. Use NewRequest; a nil *Request behaves as an empty request.
type Request struct {
	with    []Include
	without []string

	// ancestors are the relation names leading to this level
	ancestors []string
}

// NewRequest creates an empty inclusion request.
func NewRequest() *Request {
	return &Request{}
}

// With adds relation paths. Each argument may be a string (comma separated
// unless it carries a ":field,field" filter), a []string, a []any of strings
// or a map[string]Constraint.
func (r *Request) With(relations ...any) *Request {
	for _, rel := range relations {
		if constraints, ok := rel.(map[string]Constraint); ok {
			names := make([]string, 0, len(constraints))
			for name := range constraints {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				r.WithConstraint(name, constraints[name])
			}
			continue
		}
		for _, path := range ParsePaths(rel) {
			r.add(ParseInclude(path))
		}
	}
	return r
}

// WithConstraint adds a relation path with a constraint.
func (r *Request) WithConstraint(path string, c Constraint) *Request {
	inc := ParseInclude(path)
	inc.Constraint = c
	r.add(inc)
	return r
}

// Without adds relation paths to suppress. Arguments follow the same rules
// as With; field filters are ignored.
func (r *Request) Without(relations ...any) *Request {
	for _, rel := range relations {
		for _, path := range ParsePaths(rel) {
			path = ParseInclude(path).Path
			if path == "" || containsString(r.without, path) {
				continue
			}
			r.without = append(r.without, path)
		}
	}
	return r
}

// Includes returns the requested paths in insertion order.
func (r *Request) Includes() []Include {
	if r == nil {
		return nil
	}
	return append([]Include{}, r.with...)
}

// Excludes returns the suppressed paths in insertion order.
func (r *Request) Excludes() []string {
	if r == nil {
		return nil
	}
	return append([]string{}, r.without...)
}

// Level is the nesting depth of the request; zero for the root.
func (r *Request) Level() int {
	if r == nil {
		return 0
	}
	return len(r.ancestors)
}

// Ancestors returns the relation names leading to this level.
func (r *Request) Ancestors() []string {
	if r == nil {
		return nil
	}
	return append([]string{}, r.ancestors...)
}

// Empty reports whether nothing was requested or suppressed.
func (r *Request) Empty() bool {
	return r == nil || (len(r.with) == 0 && len(r.without) == 0)
}

// Clone returns a copy of the request.
func (r *Request) Clone() *Request {
	if r == nil {
		return NewRequest()
	}
	return &Request{
		with:      append([]Include{}, r.with...),
		without:   append([]string{}, r.without...),
		ancestors: append([]string{}, r.ancestors...),
	}
}

// add merges an include into the request. A repeated path keeps its first
// position; a non-nil field list or constraint on the repeat replaces the
// stored one.
func (r *Request) add(inc Include) {
	if inc.Path == "" {
		return
	}
	for i := range r.with {
		if r.with[i].Path != inc.Path {
			continue
		}
		if inc.Fields != nil {
			r.with[i].Fields = inc.Fields
		}
		if inc.Constraint != nil {
			r.with[i].Constraint = inc.Constraint
		}
		r.with[i].fromDefault = r.with[i].fromDefault || inc.fromDefault
		return
	}
	r.with = append(r.with, inc)
}

// ParsePaths flattens a relation argument into individual path strings.
// Strings are split on commas unless they contain ':', which introduces a
// field list.
func ParsePaths(v any) []string {
	var raw []string
	switch val := v.(type) {
	case nil:
		return nil
	case string:
		raw = splitPaths(val)
	case []string:
		for _, s := range val {
			raw = append(raw, splitPaths(s)...)
		}
	case []any:
		for _, el := range val {
			raw = append(raw, ParsePaths(el)...)
		}
	case fmt.Stringer:
		raw = splitPaths(val.String())
	}
	return raw
}

func splitPaths(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if strings.Contains(s, ":") {
		return []string{s}
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// ParseInclude parses "orders.items:id,name" into its path and field list.
func ParseInclude(s string) Include {
	s = strings.TrimSpace(s)
	path, fieldList, hasFields := strings.Cut(s, ":")
	inc := Include{Path: cleanPath(path)}
	if hasFields {
		inc.Fields = []string{}
		for _, f := range strings.Split(fieldList, ",") {
			if f = strings.TrimSpace(f); f != "" {
				inc.Fields = append(inc.Fields, f)
			}
		}
	}
	return inc
}

// cleanPath trims whitespace around segments and drops empty ones.
func cleanPath(path string) string {
	segments := strings.Split(path, ".")
	out := segments[:0]
	for _, seg := range segments {
		if seg = strings.TrimSpace(seg); seg != "" {
			out = append(out, seg)
		}
	}
	return strings.Join(out, ".")
}

// splitFirst splits "a.b.c" into ("a", "b.c").
func splitFirst(path string) (string, string) {
	head, rest, _ := strings.Cut(path, ".")
	return head, rest
}

func containsString(list []string, s string) bool {
	for _, el := range list {
		if el == s {
			return true
		}
	}
	return false
}
