// Package messages resolves human-readable messages for error codes.
package messages

import "sync"

// Resolver looks up the message for an error code. A false result means no
// message is known and the message is omitted from the response.
type Resolver interface {
	Resolve(code string) (string, bool)
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(code string) (string, bool)

// Resolve implements Resolver.
func (f ResolverFunc) Resolve(code string) (string, bool) {
	return f(code)
}

// MapResolver is a Resolver backed by a code to message map. It is safe for
// concurrent use.
type MapResolver struct {
	mu       sync.RWMutex
	messages map[string]string
}

// NewMapResolver creates a resolver with a copy of the given messages.
func NewMapResolver(messages map[string]string) *MapResolver {
	r := &MapResolver{messages: make(map[string]string, len(messages))}
	for code, msg := range messages {
		r.messages[code] = msg
	}
	return r
}

// Resolve implements Resolver.
func (r *MapResolver) Resolve(code string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	msg, ok := r.messages[code]
	if !ok || msg == "" {
		return "", false
	}
	return msg, true
}

// Set registers or replaces a message.
func (r *MapResolver) Set(code, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages[code] = message
}

// Chain consults resolvers in order and returns the first hit.
type Chain []Resolver

// Resolve implements Resolver.
func (c Chain) Resolve(code string) (string, bool) {
	for _, r := range c {
		if r == nil {
			continue
		}
		if msg, ok := r.Resolve(code); ok {
			return msg, true
		}
	}
	return "", false
}

// Defaults are the built-in messages for the codes the responder produces
// from HTTP status codes.
var Defaults = map[string]string{
	"bad_request":          "The request could not be understood.",
	"unauthorized":         "Authentication is required.",
	"forbidden":            "You are not allowed to access this resource.",
	"not_found":            "The requested resource was not found.",
	"method_not_allowed":   "The request method is not supported for this resource.",
	"conflict":             "The request conflicts with the current state of the resource.",
	"unprocessable_entity": "The given data was invalid.",
	"validation_failed":    "The given data was invalid.",
	"too_many_requests":    "Too many requests.",
	"internal_error":       "An internal error occurred.",
	"service_unavailable":  "The service is temporarily unavailable.",
}
