package middleware

import (
	"mime"
	"net/http"
	"strings"

	webcontext "github.com/conduit-lang/responder/internal/web/context"
	"github.com/conduit-lang/responder/pkg/format"
)

// Negotiate records the response media type chosen from the Accept header.
// JSON:API is used only when the client asks for it explicitly.
func Negotiate(fallback string) Middleware {
	if fallback == "" {
		fallback = format.JSONMediaType
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			mediaType := fallback
			if accepts(r.Header.Get("Accept"), format.JSONAPIMediaType) {
				mediaType = format.JSONAPIMediaType
			} else if accepts(r.Header.Get("Accept"), format.JSONMediaType) {
				mediaType = format.JSONMediaType
			}
			r = r.WithContext(webcontext.SetMediaType(r.Context(), mediaType))
			next.ServeHTTP(w, r)
		})
	}
}

func accepts(header, mediaType string) bool {
	for _, part := range strings.Split(header, ",") {
		mt, _, err := mime.ParseMediaType(strings.TrimSpace(part))
		if err == nil && mt == mediaType {
			return true
		}
	}
	return false
}
