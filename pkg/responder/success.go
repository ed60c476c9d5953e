package responder

import (
	"net/http"

	"github.com/conduit-lang/responder/pkg/format"
	"github.com/conduit-lang/responder/pkg/relations"
	"github.com/conduit-lang/responder/pkg/transform"
)

// SuccessBuilder collects the options of one success response. It is not
// safe for concurrent use.
type SuccessBuilder struct {
	r           *Responder
	data        any
	transformer *transform.Transformer
	key         string
	req         *relations.Request
	fieldsets   map[string][]string
	meta        map[string]any
	serializer  format.Serializer
}

func newSuccessBuilder(r *Responder, data any) *SuccessBuilder {
	return &SuccessBuilder{
		r:          r,
		data:       data,
		req:        relations.NewRequest(),
		serializer: r.serializer,
	}
}

// Transform sets the transformer for the data.
func (b *SuccessBuilder) Transform(t *transform.Transformer) *SuccessBuilder {
	b.transformer = t
	return b
}

// Key sets the resource key.
func (b *SuccessBuilder) Key(key string) *SuccessBuilder {
	b.key = key
	return b
}

// With includes relations. Accepts names, lists, comma separated strings
// and map[string]relations.Constraint.
func (b *SuccessBuilder) With(rels ...any) *SuccessBuilder {
	b.req.With(rels...)
	return b
}

// WithConstraint includes a relation with a constraint.
func (b *SuccessBuilder) WithConstraint(path string, c relations.Constraint) *SuccessBuilder {
	b.req.WithConstraint(path, c)
	return b
}

// Without suppresses relations, including defaults.
func (b *SuccessBuilder) Without(rels ...any) *SuccessBuilder {
	b.req.Without(rels...)
	return b
}

// Only restricts the fields rendered for a resource key.
func (b *SuccessBuilder) Only(key string, fields ...string) *SuccessBuilder {
	if b.fieldsets == nil {
		b.fieldsets = make(map[string][]string)
	}
	b.fieldsets[key] = append(b.fieldsets[key], fields...)
	return b
}

// Fieldsets adds several field restrictions at once.
func (b *SuccessBuilder) Fieldsets(fieldsets map[string][]string) *SuccessBuilder {
	for key, fields := range fieldsets {
		b.Only(key, fields...)
	}
	return b
}

// Meta replaces the response metadata.
func (b *SuccessBuilder) Meta(meta map[string]any) *SuccessBuilder {
	b.meta = make(map[string]any, len(meta))
	for k, v := range meta {
		b.meta[k] = v
	}
	return b
}

// AddMeta adds one metadata entry.
func (b *SuccessBuilder) AddMeta(key string, value any) *SuccessBuilder {
	if b.meta == nil {
		b.meta = make(map[string]any)
	}
	b.meta[key] = value
	return b
}

// Serializer overrides the serializer for this response.
func (b *SuccessBuilder) Serializer(s format.Serializer) *SuccessBuilder {
	if s != nil {
		b.serializer = s
	}
	return b
}

// ToMap builds and formats the response payload.
func (b *SuccessBuilder) ToMap() (map[string]any, error) {
	node, err := b.r.builder.Build(b.data, b.transformer, b.key, b.req)
	if err != nil {
		return nil, err
	}
	return b.serializer.Success(node, format.Options{
		Meta:      b.meta,
		Fieldsets: b.fieldsets,
	})
}

// ToJSON builds the payload and encodes it.
func (b *SuccessBuilder) ToJSON() ([]byte, error) {
	payload, err := b.ToMap()
	if err != nil {
		return nil, err
	}
	return b.r.encode(payload)
}

// Respond validates the status, builds the payload and returns the
// response. Status 0 means 200. The status is checked before any build work.
func (b *SuccessBuilder) Respond(status int, header http.Header) (*Response, error) {
	if status == 0 {
		status = DefaultSuccessStatus
	}
	if err := validateStatus(status, 100, 400, "success"); err != nil {
		return nil, err
	}

	body, err := b.ToJSON()
	if err != nil {
		return nil, err
	}
	return newResponse(status, header, b.serializer.MediaType(), body), nil
}
