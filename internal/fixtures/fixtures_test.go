package fixtures

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conduit-lang/responder/pkg/format"
	"github.com/conduit-lang/responder/pkg/relations"
	"github.com/conduit-lang/responder/pkg/resource"
	"github.com/conduit-lang/responder/pkg/transform"
)

func loadShop(t *testing.T) *Dataset {
	t.Helper()
	ds, err := Load(filepath.Join("testdata", "shop.yml"))
	require.NoError(t, err)
	return ds
}

func TestLoad(t *testing.T) {
	ds := loadShop(t)

	assert.Equal(t, []string{"orders", "products", "profiles", "users"}, ds.Names())

	users, err := ds.Collection("users")
	require.NoError(t, err)
	assert.Equal(t, 2, users.Len())
	assert.Equal(t, "users", users.Key)

	products, err := ds.Collection("products")
	require.NoError(t, err)
	assert.Equal(t, "items", products.Key)

	_, err = ds.Collection("invoices")
	assert.ErrorIs(t, err, ErrUnknownCollection)

	_, err = Load(filepath.Join("testdata", "missing.yml"))
	assert.Error(t, err)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"empty", "collections: {}"},
		{"missing id", "collections:\n  users:\n    records:\n      - name: a\n"},
		{"duplicate id", "collections:\n  users:\n    records:\n      - id: 1\n      - id: 1\n"},
		{"unknown target", "collections:\n  users:\n    relations:\n      orders: {collection: orders}\n    records:\n      - id: 1\n"},
		{"dangling reference", "collections:\n  users:\n    relations:\n      friend: {collection: users}\n    records:\n      - id: 1\n        friend: 9\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.ErrorIs(t, err, ErrInvalidDataset)
		})
	}

	_, err := Parse([]byte("collections: [not, a, map"))
	assert.Error(t, err)
}

func TestRecord(t *testing.T) {
	ds := loadShop(t)
	users, err := ds.Collection("users")
	require.NoError(t, err)

	alice, err := users.Find("1")
	require.NoError(t, err)
	assert.Equal(t, 1, alice.ID())
	assert.Equal(t, "users", alice.ResourceKey())
	assert.Equal(t, map[string]any{
		"id":    1,
		"name":  "Alice",
		"email": "alice@example.com",
	}, alice.Attributes())

	profile, err := alice.Relation("profile")
	require.NoError(t, err)
	one, ok := profile.(resource.ToOne)
	require.True(t, ok)
	assert.Equal(t, 10, one.Entity.(*Record).ID())

	orders, err := alice.Relation("orders")
	require.NoError(t, err)
	many, ok := orders.(resource.ToMany)
	require.True(t, ok)
	assert.Len(t, many.Entities, 2)

	_, err = alice.Relation("email")
	assert.ErrorIs(t, err, resource.ErrRelationNotFound)

	bob, err := users.Find("2")
	require.NoError(t, err)
	missing, err := bob.Relation("profile")
	require.NoError(t, err)
	assert.Nil(t, missing.(resource.ToOne).Entity)

	_, err = users.Find("3")
	assert.ErrorIs(t, err, ErrRecordNotFound)
}

func TestSlice(t *testing.T) {
	ds := loadShop(t)
	users, err := ds.Collection("users")
	require.NoError(t, err)

	assert.Len(t, users.Slice(0, 1), 1)
	assert.Len(t, users.Slice(1, 10), 1)
	assert.Empty(t, users.Slice(5, 1))
	assert.Len(t, users.Slice(0, -1), 2)
}

func TestTransformerBuildsTree(t *testing.T) {
	ds := loadShop(t)
	users, err := ds.Collection("users")
	require.NoError(t, err)
	tr, err := ds.Transformer("users")
	require.NoError(t, err)

	alice, err := users.Find("1")
	require.NoError(t, err)

	req := relations.NewRequest().With("orders.products")
	node, err := transform.NewBuilder().Build(alice, tr, "", req)
	require.NoError(t, err)

	out, err := format.NewSimple().Success(node, format.Options{})
	require.NoError(t, err)

	user := out["users"].(map[string]any)
	assert.Equal(t, "Alice", user["name"])
	assert.Equal(t, map[string]any{"id": 10, "bio": "Likes tea."}, user["profile"], "default relation")

	orders := user["orders"].([]any)
	require.Len(t, orders, 2)
	first := orders[0].(map[string]any)
	assert.Equal(t, 100, first["id"])
	products := first["products"].([]any)
	assert.Len(t, products, 2)
	assert.Equal(t, "Kettle", products[0].(map[string]any)["name"])
}

func TestTransformerJSONAPI(t *testing.T) {
	ds := loadShop(t)
	orders, err := ds.Collection("orders")
	require.NoError(t, err)
	tr, err := ds.Transformer("orders")
	require.NoError(t, err)

	req := relations.NewRequest().With("products")
	node, err := transform.NewBuilder().Build(orders.All(), tr, "", req)
	require.NoError(t, err)

	out, err := format.NewJSONAPI().Success(node, format.Options{})
	require.NoError(t, err)

	data := out["data"].([]any)
	require.Len(t, data, 2)
	assert.Equal(t, "orders", data[0].(map[string]any)["type"])

	included := out["included"].([]any)
	require.Len(t, included, 2, "teapot is shared by both orders")
	assert.Equal(t, "items", included[0].(map[string]any)["type"])
	assert.Equal(t, 1000, included[0].(map[string]any)["id"])
	assert.Equal(t, 1001, included[1].(map[string]any)["id"])

	_, err = ds.Transformer("invoices")
	assert.ErrorIs(t, err, ErrUnknownCollection)
}
