package resource

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMap_AttributesKeepNestedData(t *testing.T) {
	m := Map{
		"id":       1,
		"name":     "Widget",
		"tags":     []any{"a", "b"},
		"empty":    []any{},
		"owner":    map[string]any{"id": 3},
		"parts":    []map[string]any{{"id": 4}},
		"variants": []any{map[string]any{"id": 5}},
		"supplier": ToOne{Entity: nil},
	}

	assert.Equal(t, map[string]any{
		"id":       1,
		"name":     "Widget",
		"tags":     []any{"a", "b"},
		"empty":    []any{},
		"owner":    map[string]any{"id": 3},
		"parts":    []map[string]any{{"id": 4}},
		"variants": []any{map[string]any{"id": 5}},
	}, m.Attributes(), "only relation references are left out")

	assert.Equal(t, []string{"owner", "parts", "supplier", "variants"}, m.Relations())
}

func TestMap_Relation(t *testing.T) {
	m := Map{
		"id":    1,
		"owner": map[string]any{"id": 3},
		"none":  nil,
	}

	owner, err := m.Relation("owner")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"id": 3}, owner)

	none, err := m.Relation("none")
	require.NoError(t, err)
	assert.Nil(t, none)

	_, err = m.Relation("missing")
	assert.ErrorIs(t, err, ErrRelationNotFound)

	_, err = m.Relation("id")
	assert.ErrorIs(t, err, ErrRelationNotFound)
}

func TestMap_AttributesIsACopy(t *testing.T) {
	m := Map{"id": 1, "owner": map[string]any{"id": 3}}

	attrs := m.Attributes()
	delete(attrs, "owner")

	assert.Contains(t, m, "owner")
}
