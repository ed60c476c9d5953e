package transform

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	strs "github.com/conduit-lang/responder/internal/util/strings"
	"github.com/conduit-lang/responder/pkg/normalize"
	"github.com/conduit-lang/responder/pkg/relations"
	"github.com/conduit-lang/responder/pkg/resource"
)

// DefaultKey is the resource key used when nothing else declares one.
const DefaultKey = "data"

// ErrMaxDepthExceeded is returned when relations nest deeper than the
// builder's limit.
var ErrMaxDepthExceeded = errors.New("maximum relation depth exceeded")

// Builder turns raw data into resource trees. It holds read-only
// collaborators only, so one Builder can serve concurrent requests; all
// per-request state travels in the relations.Request argument.
type Builder struct {
	normalizer *normalize.Normalizer
	selector   *relations.Selector
	maxDepth   int
	logger     *zap.Logger
}

// Option configures a Builder.
type Option func(*Builder)

// WithNormalizer sets the normalizer, e.g. one carrying custom adapters.
func WithNormalizer(n *normalize.Normalizer) Option {
	return func(b *Builder) {
		if n != nil {
			b.normalizer = n
		}
	}
}

// WithMaxDepth limits relation nesting.
func WithMaxDepth(depth int) Option {
	return func(b *Builder) {
		if depth > 0 {
			b.maxDepth = depth
		}
	}
}

// WithLogger sets the logger used for debug output.
func WithLogger(logger *zap.Logger) Option {
	return func(b *Builder) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// NewBuilder creates a builder.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{
		normalizer: normalize.New(),
		maxDepth:   relations.DefaultMaxDepth,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.selector = relations.NewSelector(b.maxDepth)
	return b
}

// Selector returns the relation selector used by the builder.
func (b *Builder) Selector() *relations.Selector {
	return b.selector
}

// Build normalizes data and builds its resource tree. t and key are
// optional; req may be nil.
func (b *Builder) Build(data any, t *Transformer, key string, req *relations.Request) (*resource.Node, error) {
	if req == nil {
		req = relations.NewRequest()
	}
	return b.build(data, t, key, "", req, 0)
}

func (b *Builder) build(data any, t *Transformer, key, relation string, req *relations.Request, depth int) (*resource.Node, error) {
	if depth > b.maxDepth {
		return nil, fmt.Errorf("%w: %d levels", ErrMaxDepthExceeded, b.maxDepth)
	}

	n, err := b.normalizer.Normalize(data)
	if err != nil {
		return nil, err
	}

	if n.IsNull() {
		if key == "" && t != nil {
			key = t.Key
		}
		if key == "" {
			key = relation
		}
		node := resource.Null(key)
		node.Pagination = n.Pagination
		node.Cursor = n.Cursor
		return node, nil
	}

	entities := n.Entities()
	if t == nil {
		t = provided(entities[0])
	}
	key = resolveKey(key, t, n, entities[0], relation)

	selections := b.selector.Resolve(t.whitelist(), req, t.lookup)
	b.logDropped(key, req, selections)

	items := make([]*resource.Node, 0, len(entities))
	for _, e := range entities {
		item, err := b.buildItem(e, t, key, selections, depth)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	var node *resource.Node
	if n.Shape == normalize.ShapeSequence {
		node = resource.NewCollection(key, items)
	} else {
		node = items[0]
	}

	if n.Pagination != nil {
		node.Pagination = n.Pagination
	} else if n.Cursor != nil {
		node.Cursor = n.Cursor
	}
	return node, nil
}

func (b *Builder) buildItem(e resource.Entity, t *Transformer, key string, selections []relations.Selection, depth int) (*resource.Node, error) {
	data := make(map[string]any)
	for k, v := range transformEntity(e, t) {
		data[k] = v
	}
	node := resource.NewItem(key, data)

	for _, sel := range selections {
		raw, err := resolveRelation(e, t, sel.Name)
		if err != nil {
			if errors.Is(err, resource.ErrRelationNotFound) {
				b.logger.Debug("relation not resolvable, skipped",
					zap.String("resource", key),
					zap.String("relation", sel.Name),
				)
				continue
			}
			return nil, fmt.Errorf("failed to resolve relation %s: %w", sel.Name, err)
		}

		if sel.Constraint != nil {
			raw, err = b.constrain(raw, sel.Constraint)
			if err != nil {
				return nil, fmt.Errorf("failed to load relation %s: %w", sel.Name, err)
			}
		}

		child, err := b.build(raw, t.child(sel.Name), "", sel.Name, sel.Nested, depth+1)
		if err != nil {
			return nil, fmt.Errorf("relation %s: %w", sel.Name, err)
		}
		if sel.Fields != nil {
			child.Fields = sel.Fields
			for _, item := range child.Items {
				item.Fields = sel.Fields
			}
		}

		delete(node.Data, sel.Name)
		node.Attach(sel.Name, child)
	}

	return node, nil
}

// constrain normalizes relation data and passes its entities through c.
func (b *Builder) constrain(raw any, c relations.Constraint) (normalize.Normalized, error) {
	n, err := b.normalizer.Normalize(raw)
	if err != nil {
		return normalize.Normalized{}, err
	}
	if n.IsNull() {
		return n, nil
	}

	result := c(n.Entities())
	switch {
	case len(result) == 0:
		return normalize.Normalized{Shape: normalize.ShapeNull}, nil
	case n.Shape == normalize.ShapeEntity:
		n.Entity = result[0]
	default:
		n.Sequence = result
	}
	return n, nil
}

// logDropped reports requested relations the whitelist did not select.
func (b *Builder) logDropped(key string, req *relations.Request, selections []relations.Selection) {
	if ce := b.logger.Check(zap.DebugLevel, "relation not whitelisted, dropped"); ce == nil {
		return
	}
	selected := make(map[string]bool, len(selections))
	for _, sel := range selections {
		selected[sel.Name] = true
	}
	for _, inc := range req.Includes() {
		name, _, _ := strings.Cut(inc.Path, ".")
		if !selected[name] {
			b.logger.Debug("relation not whitelisted, dropped",
				zap.String("resource", key),
				zap.String("relation", name),
				zap.Strings("ancestors", req.Ancestors()),
			)
		}
	}
}

// resolveKey picks the node key: explicit, then transformer-declared, then
// self-declared by the data, then derived from the Go type (collections and
// relations), then the relation name, then DefaultKey.
func resolveKey(explicit string, t *Transformer, n normalize.Normalized, first resource.Entity, relation string) string {
	if explicit != "" {
		return explicit
	}
	if t != nil && t.Key != "" {
		return t.Key
	}
	if n.Key != "" {
		return n.Key
	}
	if kp, ok := first.(resource.KeyProvider); ok {
		if key := kp.ResourceKey(); key != "" {
			return key
		}
	}
	if n.TypeName != "" && (n.Shape == normalize.ShapeSequence || relation != "") {
		return strs.ResourceKey(n.TypeName)
	}
	if relation != "" {
		return relation
	}
	return DefaultKey
}

// provided returns the transformer an entity declares for itself.
func provided(e resource.Entity) *Transformer {
	if p, ok := e.(Provider); ok {
		return p.Transformer()
	}
	if u, ok := e.(Unwrapper); ok {
		if p, ok := u.Unwrap().(Provider); ok {
			return p.Transformer()
		}
	}
	return nil
}

func transformEntity(e resource.Entity, t *Transformer) map[string]any {
	if t != nil && t.Transform != nil {
		return t.Transform(e)
	}
	return e.Attributes()
}

func resolveRelation(e resource.Entity, t *Transformer, name string) (any, error) {
	if t != nil && t.Resolvers != nil {
		if fn, ok := t.Resolvers[name]; ok {
			return fn(e)
		}
	}
	if rs, ok := e.(resource.RelationSource); ok {
		return rs.Relation(name)
	}
	if u, ok := e.(Unwrapper); ok {
		if rs, ok := u.Unwrap().(resource.RelationSource); ok {
			return rs.Relation(name)
		}
	}
	return nil, fmt.Errorf("%w: %s", resource.ErrRelationNotFound, name)
}
