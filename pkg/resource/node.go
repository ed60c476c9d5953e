// Package resource defines the resource tree produced by the builder and
// consumed by the serializers, along with the contracts entity sources
// implement.
package resource

import "sort"

// Kind distinguishes the three shapes a node can take.
type Kind int

const (
	// KindNull is the "absence" sentinel.
	KindNull Kind = iota
	// KindItem is a single entity
	KindItem
	// KindCollection is an ordered sequence of items sharing one key
	KindCollection
)

// String returns the string representation of Kind.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindItem:
		return "item"
	case KindCollection:
		return "collection"
	default:
		return "unknown"
	}
}

// Node is one item, collection or null value in a resource tree.
//
// Item nodes carry a flat attribute map in Data and their included
// relations in Relations. Collection nodes carry their items in Items;
// every item shares the collection's Key.
type Node struct {
	Kind Kind
	Key  string

	// Data holds the item's own attributes. Relations are never stored here.
	Data map[string]any

	// Items holds the ordered items of a collection.
	Items []*Node

	// Relations maps a relation name to the node built for it.
	Relations map[string]*Node

	// Fields is a field filter requested together with the relation that
	// produced this node (e.g. "orders:id,name"). Nil means no filter.
	Fields []string

	Pagination *Pagination
	Cursor     *Cursor
}

// Null returns the null sentinel node.
func Null(key string) *Node {
	return &Node{Kind: KindNull, Key: key}
}

// NewItem creates an item node.
func NewItem(key string, data map[string]any) *Node {
	if data == nil {
		data = make(map[string]any)
	}
	return &Node{
		Kind:      KindItem,
		Key:       key,
		Data:      data,
		Relations: make(map[string]*Node),
	}
}

// NewCollection creates a collection node. Items inherit the collection key.
func NewCollection(key string, items []*Node) *Node {
	if items == nil {
		items = []*Node{}
	}
	for _, item := range items {
		item.Key = key
	}
	return &Node{
		Kind:  KindCollection,
		Key:   key,
		Items: items,
	}
}

// IsNull reports whether the node is the null sentinel.
func (n *Node) IsNull() bool {
	return n == nil || n.Kind == KindNull
}

// IsCollection reports whether the node is a collection.
func (n *Node) IsCollection() bool {
	return n != nil && n.Kind == KindCollection
}

// Attributes returns the node's attribute data: a map for items, an ordered
// slice of maps for collections and nil for the null sentinel.
func (n *Node) Attributes() any {
	switch {
	case n.IsNull():
		return nil
	case n.IsCollection():
		out := make([]map[string]any, 0, len(n.Items))
		for _, item := range n.Items {
			out = append(out, item.Data)
		}
		return out
	default:
		return n.Data
	}
}

// Attach adds a relation to an item node. Attaching to a node that is not an
// item, or attaching the node to itself, is ignored.
func (n *Node) Attach(name string, child *Node) {
	if n == nil || n.Kind != KindItem || child == n {
		return
	}
	if n.Relations == nil {
		n.Relations = make(map[string]*Node)
	}
	n.Relations[name] = child
}

// RelationNames returns the names of the attached relations in sorted order.
func (n *Node) RelationNames() []string {
	if n == nil || len(n.Relations) == 0 {
		return nil
	}
	names := make([]string, 0, len(n.Relations))
	for name := range n.Relations {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clone returns a deep copy of the node tree. Attribute values are copied
// shallowly.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	out := &Node{
		Kind:       n.Kind,
		Key:        n.Key,
		Pagination: n.Pagination,
		Cursor:     n.Cursor,
	}
	if n.Fields != nil {
		out.Fields = append([]string{}, n.Fields...)
	}
	if n.Data != nil {
		out.Data = make(map[string]any, len(n.Data))
		for k, v := range n.Data {
			out.Data[k] = v
		}
	}
	if n.Items != nil {
		out.Items = make([]*Node, len(n.Items))
		for i, item := range n.Items {
			out.Items[i] = item.Clone()
		}
	}
	if n.Relations != nil {
		out.Relations = make(map[string]*Node, len(n.Relations))
		for name, child := range n.Relations {
			out.Relations[name] = child.Clone()
		}
	}
	return out
}
