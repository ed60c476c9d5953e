package resource

import (
	"fmt"
	"sort"
)

// Entity is anything that can expose its own attribute mapping.
type Entity interface {
	Attributes() map[string]any
}

// RelationSource resolves a named relation to an entity, a sequence of
// entities, or nil. Unknown relations return ErrRelationNotFound.
type RelationSource interface {
	Relation(name string) (any, error)
}

// KeyProvider is implemented by entities and collections that declare their
// own resource key.
type KeyProvider interface {
	ResourceKey() string
}

// Map is an already-materialized associative entity. Nested maps and lists
// stay attributes; they also resolve as relations when one is selected.
type Map map[string]any

// Attributes returns a copy of the map. ToOne and ToMany references are left
// out since they only make sense as relations.
func (m Map) Attributes() map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if isReference(v) {
			continue
		}
		out[k] = v
	}
	return out
}

// Relation returns the value stored under name. Scalar attributes are not
// relations.
func (m Map) Relation(name string) (any, error) {
	v, ok := m[name]
	if !ok || isScalar(v) {
		return nil, fmt.Errorf("%w: %s", ErrRelationNotFound, name)
	}
	return v, nil
}

// Relations returns the keys holding entity-shaped values, sorted.
func (m Map) Relations() []string {
	var names []string
	for k, v := range m {
		if isRelationValue(v) {
			names = append(names, k)
		}
	}
	sort.Strings(names)
	return names
}

func isRelationValue(v any) bool {
	switch val := v.(type) {
	case map[string]any, Map, Entity:
		return true
	case []map[string]any:
		return len(val) > 0
	case []Entity:
		return len(val) > 0
	case []any:
		if len(val) == 0 {
			return false
		}
		for _, el := range val {
			switch el.(type) {
			case map[string]any, Map, Entity:
			default:
				return false
			}
		}
		return true
	case ToOne, ToMany, *ToOne, *ToMany:
		return true
	default:
		return false
	}
}

func isReference(v any) bool {
	switch v.(type) {
	case ToOne, ToMany, *ToOne, *ToMany:
		return true
	default:
		return false
	}
}

func isScalar(v any) bool {
	switch v.(type) {
	case string, bool, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return true
	default:
		return false
	}
}

// ToOne is a resolved to-one relation reference. A nil Entity means the
// relation is absent.
type ToOne struct {
	Entity any
}

// ToMany is a resolved to-many relation reference.
type ToMany struct {
	Entities []any
}
