package transform

import (
	"errors"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/conduit-lang/responder/pkg/normalize"
	"github.com/conduit-lang/responder/pkg/relations"
	"github.com/conduit-lang/responder/pkg/resource"
)

type Author struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type Post struct {
	ID     int       `json:"id"`
	Title  string    `json:"title"`
	Author *Author   `json:"author"`
	Tags   []Tag     `json:"tags"`
	Liked  []*Author `json:"liked_by"`
}

type Tag struct {
	ID    int    `json:"id"`
	Label string `json:"label"`
}

type Widget struct {
	ID int `json:"id"`
}

func (Widget) ResourceKey() string { return "gadgets" }

type Article struct {
	ID    int    `json:"id"`
	Title string `json:"title"`
}

func (Article) Transformer() *Transformer {
	return New(func(e resource.Entity) map[string]any {
		attrs := e.Attributes()
		return map[string]any{"id": attrs["id"], "headline": strings.ToUpper(attrs["title"].(string))}
	}).WithKey("articles")
}

func TestBuild_NullInput(t *testing.T) {
	node, err := NewBuilder().Build(nil, nil, "", nil)
	require.NoError(t, err)

	assert.True(t, node.IsNull())
	assert.False(t, node.IsCollection())
	assert.Nil(t, node.Pagination)
	assert.Nil(t, node.Cursor)
}

func TestBuild_ItemWithExplicitKey(t *testing.T) {
	node, err := NewBuilder().Build(map[string]any{"name": "foo"}, nil, "widget", nil)
	require.NoError(t, err)

	assert.Equal(t, resource.KindItem, node.Kind)
	assert.Equal(t, "widget", node.Key)
	assert.Equal(t, map[string]any{"name": "foo"}, node.Data)
}

func TestBuild_KeyResolution(t *testing.T) {
	tests := []struct {
		name     string
		data     any
		t        *Transformer
		key      string
		expected string
	}{
		{"explicit wins", []Author{{ID: 1}}, New(nil).WithKey("writers"), "people", "people"},
		{"transformer key", []Author{{ID: 1}}, New(nil).WithKey("writers"), "", "writers"},
		{"self-declared", Widget{ID: 1}, nil, "", "gadgets"},
		{"self-declared collection", []Widget{{ID: 1}}, nil, "", "gadgets"},
		{"type-derived collection", []Author{{ID: 1}}, nil, "", "authors"},
		{"item default", Author{ID: 1}, nil, "", DefaultKey},
		{"map item default", map[string]any{"id": 1}, nil, "", DefaultKey},
		{"entity transformer key", Article{ID: 1, Title: "x"}, nil, "", "articles"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			node, err := NewBuilder().Build(tt.data, tt.t, tt.key, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, node.Key)
		})
	}
}

func TestBuild_DefaultAttributes(t *testing.T) {
	post := &Post{ID: 1, Title: "Hello", Author: &Author{ID: 2}}

	node, err := NewBuilder().Build(post, nil, "posts", nil)
	require.NoError(t, err)

	assert.Equal(t, map[string]any{
		"id":       1,
		"title":    "Hello",
		"author":   map[string]any{"id": 2, "name": ""},
		"tags":     nil,
		"liked_by": nil,
	}, node.Data)
	assert.Empty(t, node.Relations)
}

func TestBuild_NestedMapsPassThrough(t *testing.T) {
	data := map[string]any{
		"name":    "foo",
		"address": map[string]any{"city": "Oslo"},
		"tags":    []any{map[string]any{"x": 1}},
	}

	node, err := NewBuilder().Build(data, nil, "widget", nil)
	require.NoError(t, err)

	assert.Equal(t, data, node.Data)
	assert.Empty(t, node.Relations)
}

func TestBuild_EntityProvidedTransformer(t *testing.T) {
	node, err := NewBuilder().Build([]Article{{ID: 1, Title: "go"}}, nil, "", nil)
	require.NoError(t, err)

	require.Len(t, node.Items, 1)
	assert.Equal(t, "articles", node.Key)
	assert.Equal(t, map[string]any{"id": 1, "headline": "GO"}, node.Items[0].Data)
}

func TestBuild_RelationInclusion(t *testing.T) {
	parent := map[string]any{
		"id":       1,
		"children": []any{map[string]any{"id": 1}, map[string]any{"id": 2}},
	}
	tr := New(nil).Allow("children")

	node, err := NewBuilder().Build(parent, tr, "", relations.NewRequest().With("children"))
	require.NoError(t, err)

	assert.Equal(t, map[string]any{"id": 1}, node.Data)
	children := node.Relations["children"]
	require.NotNil(t, children)
	assert.True(t, children.IsCollection())
	assert.Equal(t, "children", children.Key)
	assert.Equal(t, []map[string]any{{"id": 1}, {"id": 2}}, children.Attributes())
}

func TestBuild_NonWhitelistedRelationDropped(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	b := NewBuilder(WithLogger(zap.New(core)))

	parent := map[string]any{"id": 1, "secrets": map[string]any{"id": 9}}
	node, err := b.Build(parent, New(nil), "", relations.NewRequest().With("secrets"))
	require.NoError(t, err)

	assert.Empty(t, node.Relations)
	assert.Equal(t, map[string]any{"id": 9}, node.Data["secrets"], "unselected nested data stays an attribute")
	entries := logs.FilterMessage("relation not whitelisted, dropped").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "secrets", entries[0].ContextMap()["relation"])
}

func TestBuild_DroppedNestedPathLogsFirstSegment(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	b := NewBuilder(WithLogger(zap.New(core)))

	parent := map[string]any{"id": 1, "secrets": map[string]any{"id": 9}}
	_, err := b.Build(parent, New(nil), "", relations.NewRequest().With("secrets.keys"))
	require.NoError(t, err)

	entries := logs.FilterMessage("relation not whitelisted, dropped").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "secrets", entries[0].ContextMap()["relation"])
}

func TestBuild_StructRelations(t *testing.T) {
	post := Post{
		ID:     1,
		Title:  "Hello",
		Author: &Author{ID: 2, Name: "Ada"},
		Tags:   []Tag{{ID: 3, Label: "go"}},
	}
	tr := New(nil).Allow("author", "tags", "liked_by")
	req := relations.NewRequest().With("author", "tags", "liked_by")

	node, err := NewBuilder().Build(post, tr, "posts", req)
	require.NoError(t, err)

	author := node.Relations["author"]
	require.NotNil(t, author)
	assert.Equal(t, "authors", author.Key)
	assert.Equal(t, map[string]any{"id": 2, "name": "Ada"}, author.Data)

	tags := node.Relations["tags"]
	require.NotNil(t, tags)
	assert.Equal(t, "tags", tags.Key)
	assert.Len(t, tags.Items, 1)

	likedBy := node.Relations["liked_by"]
	require.NotNil(t, likedBy)
	assert.True(t, likedBy.IsNull())
	assert.Equal(t, "liked_by", likedBy.Key)
}

func TestBuild_RelationTransformerAndFields(t *testing.T) {
	author := New(func(e resource.Entity) map[string]any {
		return map[string]any{"id": e.Attributes()["id"], "display": "@" + e.Attributes()["name"].(string)}
	}).WithKey("people")
	tr := New(nil).Allow("author").Include("author", author)

	post := Post{ID: 1, Author: &Author{ID: 2, Name: "ada"}}
	node, err := NewBuilder().Build(post, tr, "posts", relations.NewRequest().With("author:display"))
	require.NoError(t, err)

	child := node.Relations["author"]
	require.NotNil(t, child)
	assert.Equal(t, "people", child.Key)
	assert.Equal(t, map[string]any{"id": 2, "display": "@ada"}, child.Data)
	assert.Equal(t, []string{"display"}, child.Fields)
}

func TestBuild_RelationDataRemovedFromParent(t *testing.T) {
	tr := New(func(e resource.Entity) map[string]any {
		return map[string]any{"id": 1, "owner": "inline"}
	}).Allow("owner").Resolve("owner", func(e resource.Entity) (any, error) {
		return map[string]any{"id": 5}, nil
	})

	node, err := NewBuilder().Build(map[string]any{"id": 1}, tr, "things", relations.NewRequest().With("owner"))
	require.NoError(t, err)

	assert.Equal(t, map[string]any{"id": 1}, node.Data)
	assert.Equal(t, map[string]any{"id": 5}, node.Relations["owner"].Data)
}

func TestBuild_ResolverError(t *testing.T) {
	boom := errors.New("boom")
	tr := New(nil).Allow("owner").Resolve("owner", func(e resource.Entity) (any, error) {
		return nil, boom
	})

	_, err := NewBuilder().Build(map[string]any{"id": 1}, tr, "", relations.NewRequest().With("owner"))
	assert.ErrorIs(t, err, boom)
}

func TestBuild_UnknownRelationIsSoft(t *testing.T) {
	tr := New(nil).AllowAll()

	node, err := NewBuilder().Build(map[string]any{"id": 1, "name": "x"}, tr, "", relations.NewRequest().With("missing", "name"))
	require.NoError(t, err)

	assert.Empty(t, node.Relations)
	assert.Equal(t, map[string]any{"id": 1, "name": "x"}, node.Data)
}

func TestBuild_Constraints(t *testing.T) {
	byIDDesc := func(es []resource.Entity) []resource.Entity {
		out := append([]resource.Entity{}, es...)
		sort.Slice(out, func(i, j int) bool {
			return out[i].Attributes()["id"].(int) > out[j].Attributes()["id"].(int)
		})
		return out
	}
	onlyFirst := func(es []resource.Entity) []resource.Entity { return es[:1] }
	none := func(es []resource.Entity) []resource.Entity { return nil }

	parent := map[string]any{
		"id":    1,
		"items": []any{map[string]any{"id": 1}, map[string]any{"id": 3}, map[string]any{"id": 2}},
	}

	t.Run("whitelist constraint", func(t *testing.T) {
		tr := New(nil).Allow("items").Constrain("items", byIDDesc)
		node, err := NewBuilder().Build(parent, tr, "", relations.NewRequest().With("items"))
		require.NoError(t, err)
		assert.Equal(t, []map[string]any{{"id": 3}, {"id": 2}, {"id": 1}}, node.Relations["items"].Attributes())
	})

	t.Run("request constraint wins", func(t *testing.T) {
		tr := New(nil).Allow("items").Constrain("items", byIDDesc)
		req := relations.NewRequest().WithConstraint("items", onlyFirst)
		node, err := NewBuilder().Build(parent, tr, "", req)
		require.NoError(t, err)
		assert.Equal(t, []map[string]any{{"id": 1}}, node.Relations["items"].Attributes())
	})

	t.Run("empty result is null", func(t *testing.T) {
		tr := New(nil).Allow("items").Constrain("items", none)
		node, err := NewBuilder().Build(parent, tr, "", relations.NewRequest().With("items"))
		require.NoError(t, err)
		assert.True(t, node.Relations["items"].IsNull())
	})
}

func TestBuild_DefaultsAndWithout(t *testing.T) {
	data := map[string]any{
		"id":       1,
		"owner":    map[string]any{"id": 2},
		"comments": []any{map[string]any{"id": 3}},
	}
	tr := New(nil).Default("owner", "comments")

	node, err := NewBuilder().Build(data, tr, "", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"comments", "owner"}, node.RelationNames())

	node, err = NewBuilder().Build(data, tr, "", relations.NewRequest().Without("comments"))
	require.NoError(t, err)
	assert.Equal(t, []string{"owner"}, node.RelationNames())
}

func selfReferencing() *Transformer {
	tr := New(nil).AllowAll()
	tr.Include("children", tr)
	return tr
}

func nested(levels int) map[string]any {
	node := map[string]any{"id": levels}
	if levels > 0 {
		node["children"] = []any{nested(levels - 1)}
	}
	return node
}

func TestBuild_SelfReferencingDefaultsTerminate(t *testing.T) {
	tr := selfReferencing().Default("children")

	node, err := NewBuilder().Build(nested(5), tr, "nodes", nil)
	require.NoError(t, err)

	children := node.Relations["children"]
	require.NotNil(t, children)
	require.Len(t, children.Items, 1)
	assert.Empty(t, children.Items[0].Relations)
}

func TestBuild_MaxDepthExceeded(t *testing.T) {
	b := NewBuilder(WithMaxDepth(2))
	req := relations.NewRequest().With("children.children.children")

	_, err := b.Build(nested(5), selfReferencing(), "nodes", req)
	assert.ErrorIs(t, err, ErrMaxDepthExceeded)

	node, err := b.Build(nested(5), selfReferencing(), "nodes", relations.NewRequest().With("children.children"))
	require.NoError(t, err)
	grandchildren := node.Relations["children"].Items[0].Relations["children"]
	require.NotNil(t, grandchildren)
	require.Len(t, grandchildren.Items, 1)
	assert.Equal(t, 3, grandchildren.Items[0].Data["id"])
	assert.Empty(t, grandchildren.Items[0].Relations)
}

func TestBuild_UnsupportedDataTypeBeforeTransform(t *testing.T) {
	called := false
	tr := New(func(e resource.Entity) map[string]any {
		called = true
		return nil
	})

	_, err := NewBuilder().Build("just a string", tr, "", nil)
	assert.ErrorIs(t, err, resource.ErrUnsupportedDataType)
	assert.False(t, called)

	_, err = NewBuilder().Build([]any{map[string]any{"id": 1}, 42}, tr, "", nil)
	assert.ErrorIs(t, err, resource.ErrUnsupportedDataType)
	assert.False(t, called)
}

func TestBuild_Pagination(t *testing.T) {
	p := &resource.Paginator{
		Items:       []Author{{ID: 1}, {ID: 2}},
		Total:       12,
		PerPage:     2,
		CurrentPage: 1,
	}

	node, err := NewBuilder().Build(p, nil, "", nil)
	require.NoError(t, err)

	assert.Equal(t, "authors", node.Key)
	require.NotNil(t, node.Pagination)
	assert.Nil(t, node.Cursor)
	assert.Equal(t, 6, node.Pagination.TotalPages)
	assert.Equal(t, 2, node.Pagination.Count)
}

func TestBuild_CursorOnEmptyPage(t *testing.T) {
	c := &resource.CursorPaginator{Items: []Author{}, Current: 10}

	node, err := NewBuilder().Build(c, nil, "authors", nil)
	require.NoError(t, err)

	assert.True(t, node.IsNull())
	require.NotNil(t, node.Cursor)
	assert.Equal(t, 10, node.Cursor.Current)
}

func TestBuild_CustomNormalizer(t *testing.T) {
	type row []string
	n := normalize.New(normalize.AdapterFunc{
		Match: func(v any) bool { _, ok := v.(row); return ok },
		Convert: func(v any) (any, error) {
			r := v.(row)
			return map[string]any{"id": r[0], "name": r[1]}, nil
		},
	})

	node, err := NewBuilder(WithNormalizer(n)).Build([]row{{"1", "a"}}, nil, "rows", nil)
	require.NoError(t, err)
	assert.Equal(t, []map[string]any{{"id": "1", "name": "a"}}, node.Attributes())
}

func TestBuild_DoesNotMutateSource(t *testing.T) {
	attrs := map[string]any{"id": 1, "owner": "inline"}
	src := staticEntity{attrs: attrs}
	tr := New(nil).Allow("owner").Resolve("owner", func(e resource.Entity) (any, error) {
		return map[string]any{"id": 2}, nil
	})

	_, err := NewBuilder().Build(src, tr, "", relations.NewRequest().With("owner"))
	require.NoError(t, err)
	assert.Contains(t, attrs, "owner")
}

type staticEntity struct {
	attrs map[string]any
}

func (s staticEntity) Attributes() map[string]any { return s.attrs }
