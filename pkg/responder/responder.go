// Package responder is the request-facing API: it builds success and error
// responses with a fluent builder and validates status codes before any
// work is done.
package responder

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/conduit-lang/responder/pkg/format"
	"github.com/conduit-lang/responder/pkg/messages"
	"github.com/conduit-lang/responder/pkg/transform"
)

// ErrInvalidStatusCode is returned when a status code is outside the range
// allowed for the response kind.
var ErrInvalidStatusCode = errors.New("invalid status code")

const (
	// DefaultSuccessStatus is used when Respond is called with status 0.
	DefaultSuccessStatus = http.StatusOK
	// DefaultErrorStatus is used when an error Respond is called with status 0.
	DefaultErrorStatus = http.StatusInternalServerError
)

// Responder creates response builders. It only holds read-only
// configuration and is safe for concurrent use; every Success and Error call
// returns a fresh builder.
type Responder struct {
	builder         *transform.Builder
	serializer      format.Serializer
	errorSerializer format.Serializer
	messages        messages.Resolver
	prettyPrint     bool
	logger          *zap.Logger
}

// Option configures a Responder.
type Option func(*Responder)

// WithBuilder sets the resource builder.
func WithBuilder(b *transform.Builder) Option {
	return func(r *Responder) {
		if b != nil {
			r.builder = b
		}
	}
}

// WithSerializer sets the default serializer for success responses. Unless
// WithErrorSerializer is also given, errors use the same format.
func WithSerializer(s format.Serializer) Option {
	return func(r *Responder) {
		if s != nil {
			r.serializer = s
		}
	}
}

// WithErrorSerializer sets the default serializer for error responses.
func WithErrorSerializer(s format.Serializer) Option {
	return func(r *Responder) {
		if s != nil {
			r.errorSerializer = s
		}
	}
}

// WithMessages sets the resolver used for error messages.
func WithMessages(m messages.Resolver) Option {
	return func(r *Responder) {
		r.messages = m
	}
}

// WithPrettyPrint indents JSON output.
func WithPrettyPrint(pretty bool) Option {
	return func(r *Responder) {
		r.prettyPrint = pretty
	}
}

// WithLogger sets the logger of the default builder. It has no effect when
// WithBuilder supplies a builder.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Responder) {
		r.logger = logger
	}
}

// New creates a responder. Defaults: the simple serializer, a builder with
// default depth limit and the built-in messages.
func New(opts ...Option) *Responder {
	r := &Responder{
		serializer: format.NewSimple(),
		messages:   messages.NewMapResolver(messages.Defaults),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.builder == nil {
		r.builder = transform.NewBuilder(transform.WithLogger(r.logger))
	}
	if r.errorSerializer == nil {
		r.errorSerializer = r.serializer
	}
	return r
}

// Success starts a success response for data.
func (r *Responder) Success(data any) *SuccessBuilder {
	return newSuccessBuilder(r, data)
}

// Error starts an error response. An optional message overrides the one
// resolved from code.
func (r *Responder) Error(code string, message ...string) *ErrorBuilder {
	b := newErrorBuilder(r, code)
	if len(message) > 0 {
		b.Message(message[0])
	}
	return b
}

// ErrorFromStatus starts an error response whose code is derived from status.
func (r *Responder) ErrorFromStatus(status int, message ...string) *ErrorBuilder {
	return r.Error(CodeFromStatus(status), message...)
}

func (r *Responder) encode(v any) ([]byte, error) {
	if r.prettyPrint {
		return json.MarshalIndent(v, "", "  ")
	}
	return json.Marshal(v)
}

// Response is a fully formatted response ready to be written.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// Write sends the response.
func (resp *Response) Write(w http.ResponseWriter) error {
	for k, values := range resp.Header {
		for _, v := range values {
			w.Header().Add(k, v)
		}
	}
	w.WriteHeader(resp.Status)
	_, err := w.Write(resp.Body)
	return err
}

func newResponse(status int, header http.Header, mediaType string, body []byte) *Response {
	h := make(http.Header)
	for k, values := range header {
		h[k] = append([]string{}, values...)
	}
	if h.Get("Content-Type") == "" {
		h.Set("Content-Type", mediaType)
	}
	return &Response{Status: status, Header: h, Body: body}
}

func validateStatus(status, low, high int, kind string) error {
	if status < low || status >= high {
		return fmt.Errorf("%w: %d is not a valid %s status, expected [%d,%d)", ErrInvalidStatusCode, status, kind, low, high)
	}
	return nil
}

// CodeFromStatus maps HTTP status codes to error codes.
func CodeFromStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusPaymentRequired:
		return "payment_required"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusMethodNotAllowed:
		return "method_not_allowed"
	case http.StatusNotAcceptable:
		return "not_acceptable"
	case http.StatusRequestTimeout:
		return "request_timeout"
	case http.StatusConflict:
		return "conflict"
	case http.StatusGone:
		return "gone"
	case http.StatusUnsupportedMediaType:
		return "unsupported_media_type"
	case http.StatusUnprocessableEntity:
		return "unprocessable_entity"
	case http.StatusTooManyRequests:
		return "too_many_requests"
	case http.StatusInternalServerError:
		return "internal_error"
	case http.StatusNotImplemented:
		return "not_implemented"
	case http.StatusBadGateway:
		return "bad_gateway"
	case http.StatusServiceUnavailable:
		return "service_unavailable"
	case http.StatusGatewayTimeout:
		return "gateway_timeout"
	default:
		return "error"
	}
}
