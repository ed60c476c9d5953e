package normalize

import (
	"database/sql/driver"
	"encoding"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"time"

	strs "github.com/conduit-lang/responder/internal/util/strings"
	"github.com/conduit-lang/responder/pkg/resource"
)

var (
	timeType          = reflect.TypeOf(time.Time{})
	valuerType        = reflect.TypeOf((*driver.Valuer)(nil)).Elem()
	jsonMarshalerType = reflect.TypeOf((*json.Marshaler)(nil)).Elem()
	textMarshalerType = reflect.TypeOf((*encoding.TextMarshaler)(nil)).Elem()
	entityType        = reflect.TypeOf((*resource.Entity)(nil)).Elem()
)

// maxNesting bounds how deep nested struct attributes are converted. Deeper
// values are passed to the encoder as they are.
const maxNesting = 16

// structEntity exposes a Go struct as an entity. Exported fields become
// attributes. Fields holding nested structs (or slices of them) are rendered
// as nested attribute maps and can also be selected as relations.
type structEntity struct {
	original any
	value    reflect.Value
}

func newStructEntity(rv reflect.Value) *structEntity {
	original := rv.Interface()
	if rv.Kind() == reflect.Ptr {
		rv = rv.Elem()
	}
	return &structEntity{original: original, value: rv}
}

// Attributes implements resource.Entity.
func (s *structEntity) Attributes() map[string]any {
	return s.attributes(0)
}

func (s *structEntity) attributes(depth int) map[string]any {
	out := make(map[string]any)
	s.walk(s.value, func(name string, field reflect.Value) {
		if _, exists := out[name]; exists {
			return
		}
		out[name] = nestedValue(field, depth)
	})
	return out
}

// Relation implements resource.RelationSource. Only relation-typed fields
// resolve.
func (s *structEntity) Relation(name string) (any, error) {
	var (
		found any
		ok    bool
	)
	s.walk(s.value, func(fieldName string, field reflect.Value) {
		if ok || fieldName != name || !isRelationType(field.Type()) {
			return
		}
		found, ok = field.Interface(), true
	})
	if !ok {
		return nil, fmt.Errorf("%w: %s", resource.ErrRelationNotFound, name)
	}
	return found, nil
}

// ResourceKey forwards to the wrapped value when it declares a key.
func (s *structEntity) ResourceKey() string {
	if kp, ok := s.original.(resource.KeyProvider); ok {
		return kp.ResourceKey()
	}
	return ""
}

// Unwrap returns the wrapped struct value.
func (s *structEntity) Unwrap() any {
	return s.original
}

// walk visits exported fields, flattening embedded structs. Fields declared
// on the outer struct are visited first so they win over embedded ones.
func (s *structEntity) walk(v reflect.Value, visit func(name string, field reflect.Value)) {
	t := v.Type()
	var embedded []reflect.Value
	for i := 0; i < t.NumField(); i++ {
		ft := t.Field(i)
		fv := v.Field(i)
		if ft.Anonymous {
			if fv.Kind() == reflect.Ptr {
				if fv.IsNil() {
					continue
				}
				fv = fv.Elem()
			}
			if fv.Kind() == reflect.Struct {
				embedded = append(embedded, fv)
				continue
			}
		}
		if !ft.IsExported() {
			continue
		}
		name := FieldName(ft)
		if name == "-" {
			continue
		}
		visit(name, fv)
	}
	for _, ev := range embedded {
		s.walk(ev, visit)
	}
}

// FieldName returns the serialized name of a struct field: the "response"
// tag, then the "json" tag name, then the snake_cased field name. A value of
// "-" means the field is skipped.
func FieldName(field reflect.StructField) string {
	if name := field.Tag.Get("response"); name != "" {
		return name
	}
	if tag := field.Tag.Get("json"); tag != "" {
		name, _, _ := strings.Cut(tag, ",")
		if name != "" {
			return name
		}
	}
	return strs.ToSnakeCase(field.Name)
}

// isRelationType reports whether a field type holds nested entities.
func isRelationType(t reflect.Type) bool {
	if t.Implements(entityType) {
		return true
	}
	switch t.Kind() {
	case reflect.Ptr:
		return isEntityStruct(t.Elem())
	case reflect.Struct:
		return isEntityStruct(t)
	case reflect.Slice, reflect.Array:
		el := t.Elem()
		if el.Implements(entityType) {
			return true
		}
		if el.Kind() == reflect.Ptr {
			el = el.Elem()
		}
		return isEntityStruct(el)
	}
	return false
}

func isEntityStruct(t reflect.Type) bool {
	if t.Kind() != reflect.Struct || t == timeType {
		return false
	}
	pt := reflect.PointerTo(t)
	for _, iface := range []reflect.Type{valuerType, jsonMarshalerType, textMarshalerType} {
		if t.Implements(iface) || pt.Implements(iface) {
			return false
		}
	}
	return true
}

// nestedValue converts nested structs, entities and slices of them into
// attribute maps named the same way as top-level fields.
func nestedValue(field reflect.Value, depth int) any {
	if depth >= maxNesting || !isRelationType(field.Type()) {
		return attributeValue(field)
	}

	switch field.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Slice, reflect.Map:
		if field.IsNil() {
			return nil
		}
	}
	if e, ok := field.Interface().(resource.Entity); ok {
		return e.Attributes()
	}

	switch field.Kind() {
	case reflect.Ptr, reflect.Struct:
		return newStructEntity(field).attributes(depth + 1)
	case reflect.Slice, reflect.Array:
		items := make([]any, field.Len())
		for i := range items {
			items[i] = nestedValue(field.Index(i), depth+1)
		}
		return items
	}
	return attributeValue(field)
}

// attributeValue unwraps database/sql style nullable values.
func attributeValue(field reflect.Value) any {
	if field.Type().Implements(valuerType) {
		if field.Kind() == reflect.Ptr && field.IsNil() {
			return nil
		}
		if v, err := field.Interface().(driver.Valuer).Value(); err == nil {
			return v
		}
	}
	return field.Interface()
}
