// Package format serializes resource trees and errors into response
// payloads.
package format

import (
	"errors"

	"github.com/conduit-lang/responder/pkg/resource"
)

const (
	// JSONMediaType is the media type of the simple serializer.
	JSONMediaType = "application/json"

	// JSONAPIMediaType is the official JSON:API media type.
	JSONAPIMediaType = "application/vnd.api+json"
)

// ErrMissingIdentifier is returned by the JSON:API serializer when an
// included resource has no id.
var ErrMissingIdentifier = errors.New("resource has no identifier")

// Serializer formats success and error payloads.
type Serializer interface {
	// Success formats a resource tree.
	Success(node *resource.Node, opts Options) (map[string]any, error)
	// Error formats an error payload.
	Error(data ErrorData) map[string]any
	// MediaType is the Content-Type of the produced payloads.
	MediaType() string
}

// Options carries per-response formatting input.
type Options struct {
	// Meta is merged into the payload.
	Meta map[string]any
	// Fieldsets restricts the attributes rendered per resource key.
	Fieldsets map[string][]string
}

// ErrorData describes an error response. Message is already resolved;
// an empty Message is omitted.
type ErrorData struct {
	Status     int
	Code       string
	Message    string
	Validation *ValidationErrors
	Meta       map[string]any
}

// fieldsFor returns the field filter for a node: its own field list first,
// then the fieldset registered for its key. Nil means everything passes.
func fieldsFor(n *resource.Node, fieldsets map[string][]string) []string {
	if n.Fields != nil {
		return n.Fields
	}
	if fields, ok := fieldsets[n.Key]; ok {
		return fields
	}
	return nil
}

// ApplyFieldset returns a copy of data holding only the listed fields. A nil
// field list returns every field. Keys in keep always pass.
func ApplyFieldset(data map[string]any, fields []string, keep ...string) map[string]any {
	out := make(map[string]any, len(data))
	if fields == nil {
		for k, v := range data {
			out[k] = v
		}
		return out
	}

	allowed := make(map[string]bool, len(fields)+len(keep))
	for _, f := range fields {
		allowed[f] = true
	}
	for _, k := range keep {
		allowed[k] = true
	}

	// Requested fields that don't exist are ignored
	for k, v := range data {
		if allowed[k] {
			out[k] = v
		}
	}
	return out
}

func copyMeta(meta map[string]any) map[string]any {
	out := make(map[string]any, len(meta))
	for k, v := range meta {
		out[k] = v
	}
	return out
}

func linksMap(links resource.Links) map[string]any {
	out := make(map[string]any)
	for k, v := range map[string]string{
		"self":  links.Self,
		"first": links.First,
		"last":  links.Last,
		"prev":  links.Prev,
		"next":  links.Next,
	} {
		if v != "" {
			out[k] = v
		}
	}
	return out
}

func cursorMap(c *resource.Cursor) map[string]any {
	return map[string]any{
		"current":  c.Current,
		"previous": c.Previous,
		"next":     c.Next,
		"count":    c.Count,
	}
}
