// Package transform builds resource trees from raw data using transformer
// definitions.
package transform

import (
	"github.com/conduit-lang/responder/pkg/relations"
	"github.com/conduit-lang/responder/pkg/resource"
)

// Func maps an entity to the attribute data of its node.
type Func func(e resource.Entity) map[string]any

// RelationFunc resolves a named relation of an entity. It replaces
// convention-based method lookup with an explicit registration.
type RelationFunc func(e resource.Entity) (any, error)

// Transformer describes how one entity type is rendered.
type Transformer struct {
	// Key is the resource key declared by the transformer.
	Key string

	// Transform produces node data. Nil uses the entity's attributes.
	Transform Func

	// Whitelist governs relation inclusion.
	Whitelist relations.Whitelist

	// Includes registers relation-specific transformers.
	Includes map[string]*Transformer

	// Resolvers registers explicit relation resolvers. Relations without a
	// resolver are resolved through resource.RelationSource.
	Resolvers map[string]RelationFunc
}

// Provider is implemented by entities that declare their own transformer.
type Provider interface {
	Transformer() *Transformer
}

// Unwrapper is implemented by entity wrappers around user values.
type Unwrapper interface {
	Unwrap() any
}

// New creates a transformer with the given transform function.
func New(fn Func) *Transformer {
	return &Transformer{Transform: fn}
}

// WithKey sets the resource key.
func (t *Transformer) WithKey(key string) *Transformer {
	t.Key = key
	return t
}

// Allow permits relations for manual inclusion.
func (t *Transformer) Allow(names ...string) *Transformer {
	t.Whitelist.Allowed = append(t.Whitelist.Allowed, names...)
	return t
}

// AllowAll permits every relation the entity can resolve.
func (t *Transformer) AllowAll() *Transformer {
	t.Whitelist.All = true
	return t
}

// Default includes relations without an explicit request.
func (t *Transformer) Default(names ...string) *Transformer {
	t.Whitelist.Defaults = append(t.Whitelist.Defaults, names...)
	return t
}

// Constrain registers a constraint applied whenever the relation is loaded.
func (t *Transformer) Constrain(name string, c relations.Constraint) *Transformer {
	if t.Whitelist.Constraints == nil {
		t.Whitelist.Constraints = make(map[string]relations.Constraint)
	}
	t.Whitelist.Constraints[name] = c
	return t
}

// Include registers the transformer used for a relation.
func (t *Transformer) Include(name string, child *Transformer) *Transformer {
	if t.Includes == nil {
		t.Includes = make(map[string]*Transformer)
	}
	t.Includes[name] = child
	return t
}

// Resolve registers an explicit resolver for a relation.
func (t *Transformer) Resolve(name string, fn RelationFunc) *Transformer {
	if t.Resolvers == nil {
		t.Resolvers = make(map[string]RelationFunc)
	}
	t.Resolvers[name] = fn
	return t
}

// whitelist returns the whitelist, nil-safe.
func (t *Transformer) whitelist() *relations.Whitelist {
	if t == nil {
		return nil
	}
	return &t.Whitelist
}

// child returns the transformer registered for a relation.
func (t *Transformer) child(name string) *Transformer {
	if t == nil || t.Includes == nil {
		return nil
	}
	return t.Includes[name]
}

// lookup exposes the registered relation transformers to the selector.
func (t *Transformer) lookup(name string) (*relations.Whitelist, relations.ChildLookup) {
	child := t.child(name)
	if child == nil {
		return nil, nil
	}
	return child.whitelist(), child.lookup
}
