package commands

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCommand()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func render(t *testing.T, args ...string) map[string]any {
	t.Helper()
	out, err := execute(t, append([]string{"render", "testdata/shop.yml"}, args...)...)
	require.NoError(t, err)

	var body map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &body), out)
	return body
}

func TestRenderRecord(t *testing.T) {
	body := render(t, "-C", "users", "--id", "1", "--compact")

	assert.Equal(t, map[string]any{
		"users": map[string]any{
			"id":      float64(1),
			"name":    "Alice",
			"email":   "alice@example.com",
			"profile": map[string]any{"id": float64(10), "bio": "Likes tea."},
		},
	}, body)
}

func TestRenderCollectionJSONAPI(t *testing.T) {
	body := render(t, "-C", "users", "--id", "1", "--serializer", "jsonapi", "--include", "orders.products")

	data := body["data"].(map[string]any)
	assert.Equal(t, "users", data["type"])

	included := body["included"].([]any)
	types := make([]string, 0, len(included))
	for _, inc := range included {
		types = append(types, inc.(map[string]any)["type"].(string))
	}
	assert.Equal(t, []string{"items", "items", "orders", "orders", "profiles"}, types)
}

func TestRenderExcludeAndFields(t *testing.T) {
	body := render(t, "-C", "users", "--exclude", "profile", "--fields", "users=name")

	assert.Equal(t, []any{
		map[string]any{"name": "Alice"},
		map[string]any{"name": "Bob"},
	}, body["users"])
}

func TestRenderPage(t *testing.T) {
	body := render(t, "-C", "orders", "--page", "2", "--page-size", "1")

	orders := body["orders"].([]any)
	require.Len(t, orders, 1)
	assert.Equal(t, float64(101), orders[0].(map[string]any)["id"])

	pagination := body["pagination"].(map[string]any)
	assert.Equal(t, float64(2), pagination["currentPage"])
	assert.Equal(t, float64(2), pagination["totalPages"])
}

func TestRenderSelect(t *testing.T) {
	out, err := execute(t, "render", "testdata/shop.yml", "-C", "users", "--select", "$.users[*].name", "--compact")
	require.NoError(t, err)
	assert.JSONEq(t, `["Alice","Bob"]`, out)

	out, err = execute(t, "render", "testdata/shop.yml", "-C", "users", "--id", "2", "--select", "$.users.name")
	require.NoError(t, err)
	assert.JSONEq(t, `"Bob"`, out)

	_, err = execute(t, "render", "testdata/shop.yml", "-C", "users", "--select", "$[")
	assert.Error(t, err)
}

func TestRenderConfigFixtures(t *testing.T) {
	out, err := execute(t, "render", "--config", "testdata/responder.yml", "-C", "products", "--compact")
	require.NoError(t, err)

	var body map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &body))
	data := body["data"].([]any)
	assert.Len(t, data, 2, "serializer and fixtures come from the config file")
}

func TestRenderErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"missing collection flag", []string{"render", "testdata/shop.yml"}},
		{"unknown collection", []string{"render", "testdata/shop.yml", "-C", "invoices"}},
		{"unknown record", []string{"render", "testdata/shop.yml", "-C", "users", "--id", "9"}},
		{"bad fieldset", []string{"render", "testdata/shop.yml", "-C", "users", "--fields", "name"}},
		{"unknown serializer", []string{"render", "testdata/shop.yml", "-C", "users", "-s", "xml"}},
		{"missing file", []string{"render", "testdata/none.yml", "-C", "users"}},
		{"no fixtures", []string{"render", "-C", "users"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			assert.Error(t, err)
		})
	}
}

func TestParseFieldsets(t *testing.T) {
	got, err := parseFieldsets([]string{"users=name, email", "items="})
	require.NoError(t, err)
	assert.Equal(t, map[string][]string{
		"users": {"name", "email"},
		"items": {},
	}, got)

	_, err = parseFieldsets([]string{"=name"})
	assert.Error(t, err)
}
