// Package normalize converts arbitrary build input into one of three
// canonical shapes: null, a single entity, or an ordered sequence of
// entities. Pagination and cursor metadata are extracted on the way.
package normalize

import (
	"fmt"
	"reflect"

	"github.com/conduit-lang/responder/pkg/resource"
)

// maxAdapterHops bounds how many times adapters may rewrite one input.
const maxAdapterHops = 8

// Shape is the canonical shape of normalized data.
type Shape int

const (
	// ShapeNull means there is nothing to render.
	ShapeNull Shape = iota
	// ShapeEntity is a single entity
	ShapeEntity
	// ShapeSequence is an ordered sequence of entities
	ShapeSequence
)

// Normalized is the result of normalization.
type Normalized struct {
	Shape    Shape
	Entity   resource.Entity
	Sequence []resource.Entity

	// Key is a key declared by the input itself (a collection implementing
	// resource.KeyProvider). Empty when none was declared.
	Key string

	// TypeName is the Go type name for struct-derived entities.
	TypeName string

	Pagination *resource.Pagination
	Cursor     *resource.Cursor
}

// IsNull reports whether the result is the null shape.
func (n Normalized) IsNull() bool {
	return n.Shape == ShapeNull
}

// Entities returns the normalized entities as a slice regardless of shape.
func (n Normalized) Entities() []resource.Entity {
	switch n.Shape {
	case ShapeEntity:
		return []resource.Entity{n.Entity}
	case ShapeSequence:
		return n.Sequence
	default:
		return nil
	}
}

// Adapter recognizes a foreign type and rewrites it into something the
// normalizer understands (an entity, a slice, a resource.Paginator, ...).
type Adapter interface {
	CanHandle(v any) bool
	Adapt(v any) (any, error)
}

// AdapterFunc pairs a predicate with a conversion.
type AdapterFunc struct {
	Match   func(v any) bool
	Convert func(v any) (any, error)
}

// CanHandle implements Adapter.
func (a AdapterFunc) CanHandle(v any) bool {
	return a.Match != nil && a.Match(v)
}

// Adapt implements Adapter.
func (a AdapterFunc) Adapt(v any) (any, error) {
	return a.Convert(v)
}

// Normalizer converts input into Normalized values. It holds only its
// adapter list and is safe for concurrent use.
type Normalizer struct {
	adapters []Adapter
}

// New creates a normalizer. Adapters are consulted in order, before the
// built-in rules.
func New(adapters ...Adapter) *Normalizer {
	return &Normalizer{adapters: adapters}
}

// Normalize converts v into its canonical shape.
func (n *Normalizer) Normalize(v any) (Normalized, error) {
	return n.normalize(v, 0)
}

func (n *Normalizer) normalize(v any, hops int) (Normalized, error) {
	switch val := v.(type) {
	case nil:
		return Normalized{Shape: ShapeNull}, nil
	case Normalized:
		return val, nil
	case *Normalized:
		if val == nil {
			return Normalized{Shape: ShapeNull}, nil
		}
		return *val, nil
	}

	if n != nil {
		for _, adapter := range n.adapters {
			if !adapter.CanHandle(v) {
				continue
			}
			if hops >= maxAdapterHops {
				return Normalized{}, fmt.Errorf("%w: adapter chain too long for %T", resource.ErrUnsupportedDataType, v)
			}
			adapted, err := adapter.Adapt(v)
			if err != nil {
				return Normalized{}, err
			}
			return n.normalize(adapted, hops+1)
		}
	}

	switch val := v.(type) {
	case *resource.Paginator:
		if val == nil {
			return Normalized{Shape: ShapeNull}, nil
		}
		out, err := n.normalize(val.Items, hops)
		if err != nil {
			return Normalized{}, err
		}
		out = asSequence(out)
		out.Pagination = resource.NewPagination(val, len(out.Sequence))
		return out, nil
	case *resource.CursorPaginator:
		if val == nil {
			return Normalized{Shape: ShapeNull}, nil
		}
		out, err := n.normalize(val.Items, hops)
		if err != nil {
			return Normalized{}, err
		}
		out = asSequence(out)
		out.Cursor = &resource.Cursor{
			Current:  val.Current,
			Previous: val.Previous,
			Next:     val.Next,
			Count:    len(out.Sequence),
		}
		return out, nil
	case resource.ToOne:
		return n.normalizeOne(val.Entity, hops)
	case *resource.ToOne:
		if val == nil {
			return Normalized{Shape: ShapeNull}, nil
		}
		return n.normalizeOne(val.Entity, hops)
	case resource.ToMany:
		return n.normalizeSlice(reflect.ValueOf(val.Entities), v, hops)
	case *resource.ToMany:
		if val == nil {
			return Normalized{Shape: ShapeNull}, nil
		}
		return n.normalizeSlice(reflect.ValueOf(val.Entities), v, hops)
	case resource.Entity:
		if isNilPointer(val) {
			return Normalized{Shape: ShapeNull}, nil
		}
		return Normalized{Shape: ShapeEntity, Entity: val, TypeName: typeName(val)}, nil
	case map[string]any:
		return Normalized{Shape: ShapeEntity, Entity: resource.Map(val)}, nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		return n.normalizeSlice(rv, v, hops)
	case reflect.Ptr:
		if rv.IsNil() {
			return Normalized{Shape: ShapeNull}, nil
		}
		if rv.Elem().Kind() == reflect.Struct {
			return Normalized{Shape: ShapeEntity, Entity: newStructEntity(rv), TypeName: rv.Elem().Type().Name()}, nil
		}
	case reflect.Struct:
		return Normalized{Shape: ShapeEntity, Entity: newStructEntity(rv), TypeName: rv.Type().Name()}, nil
	case reflect.Map:
		if rv.Type().Key().Kind() == reflect.String {
			m := make(resource.Map, rv.Len())
			iter := rv.MapRange()
			for iter.Next() {
				m[iter.Key().String()] = iter.Value().Interface()
			}
			return Normalized{Shape: ShapeEntity, Entity: m}, nil
		}
	}

	return Normalized{}, fmt.Errorf("%w: %T", resource.ErrUnsupportedDataType, v)
}

// normalizeOne resolves a to-one reference; sequences are rejected.
func (n *Normalizer) normalizeOne(v any, hops int) (Normalized, error) {
	out, err := n.normalize(v, hops)
	if err != nil {
		return Normalized{}, err
	}
	if out.Shape == ShapeSequence {
		return Normalized{}, fmt.Errorf("%w: to-one reference resolved to a sequence", resource.ErrUnsupportedDataType)
	}
	return out, nil
}

// normalizeSlice turns a slice into a sequence of entities. Nil elements
// are skipped; every other element must normalize to a single entity.
func (n *Normalizer) normalizeSlice(rv reflect.Value, original any, hops int) (Normalized, error) {
	if !rv.IsValid() || rv.Len() == 0 {
		return Normalized{Shape: ShapeNull}, nil
	}

	seq := make([]resource.Entity, 0, rv.Len())
	var elemType string
	for i := 0; i < rv.Len(); i++ {
		el := rv.Index(i).Interface()
		out, err := n.normalize(el, hops)
		if err != nil {
			return Normalized{}, fmt.Errorf("element %d: %w", i, err)
		}
		switch out.Shape {
		case ShapeNull:
			continue
		case ShapeSequence:
			return Normalized{}, fmt.Errorf("%w: nested sequence at element %d", resource.ErrUnsupportedDataType, i)
		}
		if elemType == "" {
			elemType = out.TypeName
		}
		seq = append(seq, out.Entity)
	}
	if len(seq) == 0 {
		return Normalized{Shape: ShapeNull}, nil
	}

	out := Normalized{Shape: ShapeSequence, Sequence: seq, TypeName: elemType}
	if kp, ok := original.(resource.KeyProvider); ok {
		out.Key = kp.ResourceKey()
	}
	return out, nil
}

// asSequence keeps pagination results in sequence form even for a single
// item; null stays null.
func asSequence(n Normalized) Normalized {
	if n.Shape == ShapeEntity {
		n.Shape = ShapeSequence
		n.Sequence = []resource.Entity{n.Entity}
		n.Entity = nil
	}
	return n
}

func isNilPointer(v any) bool {
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Ptr && rv.IsNil()
}

func typeName(v any) string {
	if s, ok := v.(*structEntity); ok {
		return s.value.Type().Name()
	}
	t := reflect.TypeOf(v)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() == reflect.Struct {
		return t.Name()
	}
	return ""
}
