// Package fixtures loads in-memory YAML datasets used by the CLI and the demo
// server. Records reference each other by id through declared relations.
package fixtures

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/conduit-lang/responder/pkg/relations"
	"github.com/conduit-lang/responder/pkg/resource"
	"github.com/conduit-lang/responder/pkg/transform"
)

var (
	// ErrUnknownCollection is returned when a collection is not declared.
	ErrUnknownCollection = errors.New("unknown collection")

	// ErrRecordNotFound is returned when no record has the requested id.
	ErrRecordNotFound = errors.New("record not found")

	// ErrInvalidDataset is returned for datasets with broken references.
	ErrInvalidDataset = errors.New("invalid dataset")
)

// Relation declares a reference from one collection to another.
type Relation struct {
	Collection string `yaml:"collection"`
	Many       bool   `yaml:"many"`
}

// Collection is a named set of records.
type Collection struct {
	Name      string              `yaml:"-"`
	Key       string              `yaml:"key"`
	Allowed   []string            `yaml:"allowed"`
	Defaults  []string            `yaml:"defaults"`
	Relations map[string]Relation `yaml:"relations"`
	Records   []map[string]any    `yaml:"records"`

	dataset *Dataset
	byID    map[string]*Record
	records []*Record
}

// Dataset is a parsed fixture file.
type Dataset struct {
	Collections map[string]*Collection `yaml:"collections"`

	transformers map[string]*transform.Transformer
}

// Load reads a dataset from a YAML file.
func Load(path string) (*Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixtures: %w", err)
	}
	return Parse(data)
}

// Parse decodes a dataset and checks every reference.
func Parse(data []byte) (*Dataset, error) {
	var ds Dataset
	if err := yaml.Unmarshal(data, &ds); err != nil {
		return nil, fmt.Errorf("failed to parse fixtures: %w", err)
	}
	if len(ds.Collections) == 0 {
		return nil, fmt.Errorf("%w: no collections", ErrInvalidDataset)
	}

	for name, c := range ds.Collections {
		if c == nil {
			return nil, fmt.Errorf("%w: collection %s is empty", ErrInvalidDataset, name)
		}
		c.Name = name
		c.dataset = &ds
		if c.Key == "" {
			c.Key = name
		}
		c.byID = make(map[string]*Record, len(c.Records))
		c.records = make([]*Record, 0, len(c.Records))
		for i, fields := range c.Records {
			id, ok := fields["id"]
			if !ok {
				return nil, fmt.Errorf("%w: %s record %d has no id", ErrInvalidDataset, name, i)
			}
			rec := &Record{collection: c, fields: fields}
			key := fmt.Sprint(id)
			if _, dup := c.byID[key]; dup {
				return nil, fmt.Errorf("%w: duplicate id %s in %s", ErrInvalidDataset, key, name)
			}
			c.byID[key] = rec
			c.records = append(c.records, rec)
		}
	}

	if err := ds.validate(); err != nil {
		return nil, err
	}
	ds.buildTransformers()
	return &ds, nil
}

func (ds *Dataset) validate() error {
	for _, c := range ds.Collections {
		for name, rel := range c.Relations {
			target, ok := ds.Collections[rel.Collection]
			if !ok {
				return fmt.Errorf("%w: relation %s.%s targets %s", ErrInvalidDataset, c.Name, name, rel.Collection)
			}
			for _, rec := range c.records {
				for _, id := range rec.refs(name) {
					if _, ok := target.byID[fmt.Sprint(id)]; !ok {
						return fmt.Errorf("%w: %s %v references missing %s %v",
							ErrInvalidDataset, c.Name, rec.ID(), rel.Collection, id)
					}
				}
			}
		}
	}
	return nil
}

// buildTransformers creates one transformer per collection. Relation
// transformers point at the target collection's transformer, so the graph
// may contain cycles; the builder's depth guard bounds traversal.
func (ds *Dataset) buildTransformers() {
	ds.transformers = make(map[string]*transform.Transformer, len(ds.Collections))
	for name, c := range ds.Collections {
		t := &transform.Transformer{
			Key: c.Key,
			Whitelist: relations.Whitelist{
				Allowed:  append([]string(nil), c.Allowed...),
				Defaults: append([]string(nil), c.Defaults...),
			},
		}
		ds.transformers[name] = t
	}
	for name, c := range ds.Collections {
		t := ds.transformers[name]
		for rel, def := range c.Relations {
			t.Include(rel, ds.transformers[def.Collection])
		}
	}
}

// Names returns the collection names, sorted.
func (ds *Dataset) Names() []string {
	names := make([]string, 0, len(ds.Collections))
	for name := range ds.Collections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Collection returns the named collection.
func (ds *Dataset) Collection(name string) (*Collection, error) {
	c, ok := ds.Collections[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCollection, name)
	}
	return c, nil
}

// Transformer returns the transformer rendering the named collection.
func (ds *Dataset) Transformer(name string) (*transform.Transformer, error) {
	t, ok := ds.transformers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCollection, name)
	}
	return t, nil
}

// All returns every record in declaration order.
func (c *Collection) All() []*Record {
	return c.records
}

// Len returns the number of records.
func (c *Collection) Len() int {
	return len(c.records)
}

// Slice returns up to limit records starting at offset.
func (c *Collection) Slice(offset, limit int) []*Record {
	if offset >= len(c.records) || offset < 0 {
		return []*Record{}
	}
	end := offset + limit
	if limit < 0 || end > len(c.records) {
		end = len(c.records)
	}
	return c.records[offset:end]
}

// Find returns the record with the given id.
func (c *Collection) Find(id string) (*Record, error) {
	rec, ok := c.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s %s", ErrRecordNotFound, c.Name, id)
	}
	return rec, nil
}

// Record is a single fixture row.
type Record struct {
	collection *Collection
	fields     map[string]any
}

// ID returns the record id as written in the fixture.
func (r *Record) ID() any {
	return r.fields["id"]
}

// Attributes returns the record fields, relation references excluded.
func (r *Record) Attributes() map[string]any {
	out := make(map[string]any, len(r.fields))
	for k, v := range r.fields {
		if _, isRelation := r.collection.Relations[k]; isRelation {
			continue
		}
		out[k] = v
	}
	return out
}

// ResourceKey returns the owning collection's key.
func (r *Record) ResourceKey() string {
	return r.collection.Key
}

// Relation resolves a declared relation to the referenced records.
func (r *Record) Relation(name string) (any, error) {
	def, ok := r.collection.Relations[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", resource.ErrRelationNotFound, name)
	}
	target := r.collection.dataset.Collections[def.Collection]

	ids := r.refs(name)
	if !def.Many {
		if len(ids) == 0 {
			return resource.ToOne{}, nil
		}
		rec, err := target.Find(fmt.Sprint(ids[0]))
		if err != nil {
			return nil, err
		}
		return resource.ToOne{Entity: rec}, nil
	}

	entities := make([]any, 0, len(ids))
	for _, id := range ids {
		rec, err := target.Find(fmt.Sprint(id))
		if err != nil {
			return nil, err
		}
		entities = append(entities, rec)
	}
	return resource.ToMany{Entities: entities}, nil
}

// refs returns the ids stored under a relation field.
func (r *Record) refs(name string) []any {
	switch v := r.fields[name].(type) {
	case nil:
		return nil
	case []any:
		return v
	default:
		return []any{v}
	}
}
