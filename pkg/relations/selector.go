package relations

import "strings"

// DefaultMaxDepth is the deepest nesting level default relations expand to.
const DefaultMaxDepth = 10

// Selection is a relation chosen for inclusion at one level, together with
// the request to apply one level down.
type Selection struct {
	Name       string
	Constraint Constraint
	Fields     []string
	Nested     *Request
}

// Selector computes relation selections. It keeps no per-request state and
// is safe for concurrent use.
type Selector struct {
	maxDepth int
}

// NewSelector creates a selector that stops expanding defaults at maxDepth.
// Values below one use DefaultMaxDepth.
func NewSelector(maxDepth int) *Selector {
	if maxDepth < 1 {
		maxDepth = DefaultMaxDepth
	}
	return &Selector{maxDepth: maxDepth}
}

// MaxDepth returns the configured depth limit.
func (s *Selector) MaxDepth() int {
	return s.maxDepth
}

// Select returns the relation identifiers requested at this level that the
// whitelist allows, minus suppressed ones. Unknown identifiers are dropped.
func (s *Selector) Select(w *Whitelist, req *Request) []string {
	var incs []Include
	for _, inc := range req.Includes() {
		head, _ := splitFirst(inc.Path)
		if inc.fromDefault || w.Allows(head) {
			incs = mergeInclude(incs, inc)
		}
	}
	incs = subtract(closure(incs), req.Excludes())
	return firstSegments(incs)
}

// SelectDefaults returns the dotted paths included automatically: the
// whitelist's defaults and, recursively, the defaults of each default
// relation prefixed with "<parent>.". Suppressed paths are removed.
func (s *Selector) SelectDefaults(w *Whitelist, req *Request, children ChildLookup) []string {
	var out []string
	s.expandDefaults(w, children, "", req.Ancestors(), req.Level(), &out)

	incs := make([]Include, 0, len(out))
	for _, path := range out {
		incs = append(incs, Include{Path: path})
	}
	incs = subtract(incs, req.Excludes())

	paths := make([]string, 0, len(incs))
	for _, inc := range incs {
		paths = append(paths, inc.Path)
	}
	return paths
}

func (s *Selector) expandDefaults(w *Whitelist, children ChildLookup, prefix string, ancestors []string, depth int, out *[]string) {
	if w == nil || depth >= s.maxDepth {
		return
	}
	for _, d := range w.Defaults {
		d = cleanPath(d)
		if d == "" {
			continue
		}
		head, _ := splitFirst(d)
		if containsString(ancestors, head) {
			continue
		}
		full := joinPath(prefix, d)
		if containsString(*out, full) {
			continue
		}
		*out = append(*out, full)

		if children == nil {
			continue
		}
		childWhitelist, childLookup := children(head)
		nested := append(append([]string{}, ancestors...), head)
		s.expandDefaults(childWhitelist, childLookup, joinPath(prefix, head), nested, depth+1, out)
	}
}

// Resolve returns the relations to materialize at this level. Requested
// paths are filtered through the whitelist, defaults are added, and
// suppressed paths are subtracted from the union. Each selection carries the
// sub-request for the related entity.
func (s *Selector) Resolve(w *Whitelist, req *Request, children ChildLookup) []Selection {
	var incs []Include
	for _, inc := range req.Includes() {
		head, _ := splitFirst(inc.Path)
		if inc.fromDefault || w.Allows(head) {
			incs = mergeInclude(incs, inc)
		}
	}

	ancestors := req.Ancestors()
	if w != nil && req.Level() < s.maxDepth {
		for _, d := range w.Defaults {
			d = cleanPath(d)
			head, _ := splitFirst(d)
			if d == "" || containsString(ancestors, head) {
				continue
			}
			incs = mergeInclude(incs, Include{Path: d, fromDefault: true})
		}
	}

	incs = subtract(closure(incs), req.Excludes())

	var out []Selection
	index := make(map[string]int)
	for _, inc := range incs {
		head, rest := splitFirst(inc.Path)
		i, ok := index[head]
		if !ok {
			i = len(out)
			index[head] = i
			out = append(out, Selection{
				Name: head,
				Nested: &Request{
					ancestors: append(append([]string{}, ancestors...), head),
				},
			})
		}
		sel := &out[i]
		if rest == "" {
			if inc.Fields != nil {
				sel.Fields = inc.Fields
			}
			if inc.Constraint != nil {
				sel.Constraint = inc.Constraint
			}
			continue
		}
		sel.Nested.add(Include{
			Path:        rest,
			Fields:      inc.Fields,
			Constraint:  inc.Constraint,
			fromDefault: inc.fromDefault,
		})
	}

	for i := range out {
		sel := &out[i]
		if sel.Constraint == nil {
			sel.Constraint = w.Constraint(sel.Name)
		}
		for _, x := range req.Excludes() {
			head, rest := splitFirst(x)
			if head == sel.Name && rest != "" && !containsString(sel.Nested.without, rest) {
				sel.Nested.without = append(sel.Nested.without, rest)
			}
		}
	}
	return out
}

// mergeInclude appends inc or merges it into an existing entry for its path.
func mergeInclude(incs []Include, inc Include) []Include {
	r := Request{with: incs}
	r.add(inc)
	return r.with
}

// closure adds the implied prefixes of every dotted path ("a.b" implies "a").
func closure(incs []Include) []Include {
	out := append([]Include{}, incs...)
	for _, inc := range incs {
		segments := strings.Split(inc.Path, ".")
		for i := 1; i < len(segments); i++ {
			prefix := strings.Join(segments[:i], ".")
			out = mergeInclude(out, Include{Path: prefix, fromDefault: inc.fromDefault})
		}
	}
	return out
}

// subtract drops every path equal to, or nested under, a suppressed path.
func subtract(incs []Include, without []string) []Include {
	if len(without) == 0 {
		return incs
	}
	out := incs[:0:0]
	for _, inc := range incs {
		excluded := false
		for _, x := range without {
			if inc.Path == x || strings.HasPrefix(inc.Path, x+".") {
				excluded = true
				break
			}
		}
		if !excluded {
			out = append(out, inc)
		}
	}
	return out
}

func firstSegments(incs []Include) []string {
	var out []string
	for _, inc := range incs {
		head, _ := splitFirst(inc.Path)
		if !containsString(out, head) {
			out = append(out, head)
		}
	}
	return out
}

func joinPath(prefix, path string) string {
	if prefix == "" {
		return path
	}
	return prefix + "." + path
}
