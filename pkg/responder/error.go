package responder

import (
	"net/http"

	"github.com/conduit-lang/responder/pkg/format"
)

// ErrorBuilder collects the options of one error response.
type ErrorBuilder struct {
	r          *Responder
	code       string
	message    string
	validation *format.ValidationErrors
	meta       map[string]any
	serializer format.Serializer
}

func newErrorBuilder(r *Responder, code string) *ErrorBuilder {
	return &ErrorBuilder{
		r:          r,
		code:       code,
		serializer: r.errorSerializer,
	}
}

// Message sets the message explicitly instead of resolving it from the code.
func (b *ErrorBuilder) Message(message string) *ErrorBuilder {
	b.message = message
	return b
}

// Validation attaches failed validation rules.
func (b *ErrorBuilder) Validation(v *format.ValidationErrors) *ErrorBuilder {
	b.validation = v
	return b
}

// Meta replaces the response metadata.
func (b *ErrorBuilder) Meta(meta map[string]any) *ErrorBuilder {
	b.meta = make(map[string]any, len(meta))
	for k, v := range meta {
		b.meta[k] = v
	}
	return b
}

// AddMeta adds one metadata entry.
func (b *ErrorBuilder) AddMeta(key string, value any) *ErrorBuilder {
	if b.meta == nil {
		b.meta = make(map[string]any)
	}
	b.meta[key] = value
	return b
}

// Serializer overrides the serializer for this response.
func (b *ErrorBuilder) Serializer(s format.Serializer) *ErrorBuilder {
	if s != nil {
		b.serializer = s
	}
	return b
}

// ToMap formats the error payload without a status.
func (b *ErrorBuilder) ToMap() map[string]any {
	return b.serializer.Error(b.data(0))
}

// ToJSON formats and encodes the error payload.
func (b *ErrorBuilder) ToJSON() ([]byte, error) {
	return b.r.encode(b.ToMap())
}

// Respond validates the status and returns the response. Status 0 means 500.
func (b *ErrorBuilder) Respond(status int, header http.Header) (*Response, error) {
	if status == 0 {
		status = DefaultErrorStatus
	}
	if err := validateStatus(status, 400, 600, "error"); err != nil {
		return nil, err
	}

	body, err := b.r.encode(b.serializer.Error(b.data(status)))
	if err != nil {
		return nil, err
	}
	return newResponse(status, header, b.serializer.MediaType(), body), nil
}

func (b *ErrorBuilder) data(status int) format.ErrorData {
	message := b.message
	if message == "" {
		message = b.resolve(b.code)
	}

	var validation *format.ValidationErrors
	if b.validation.HasErrors() {
		validation = b.validation.Clone()
		validation.Resolve(func(rule string) (string, bool) {
			msg := b.resolve(rule)
			return msg, msg != ""
		})
	}

	return format.ErrorData{
		Status:     status,
		Code:       b.code,
		Message:    message,
		Validation: validation,
		Meta:       b.meta,
	}
}

func (b *ErrorBuilder) resolve(code string) string {
	if b.r.messages == nil || code == "" {
		return ""
	}
	msg, ok := b.r.messages.Resolve(code)
	if !ok {
		return ""
	}
	return msg
}
