// Package context carries per-request values shared by middleware and
// handlers.
package context

import "context"

// contextKey is a custom type for context keys to avoid collisions.
type contextKey int

const (
	requestIDKey contextKey = iota
	mediaTypeKey
)

// GetRequestID extracts the request ID from the context.
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

// SetRequestID adds the request ID to the context.
func SetRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// GetMediaType returns the negotiated response media type.
func GetMediaType(ctx context.Context) string {
	if mt, ok := ctx.Value(mediaTypeKey).(string); ok {
		return mt
	}
	return ""
}

// SetMediaType records the negotiated response media type.
func SetMediaType(ctx context.Context, mediaType string) context.Context {
	return context.WithValue(ctx, mediaTypeKey, mediaType)
}
