package middleware

import (
	"net/http"

	"github.com/google/uuid"

	webcontext "github.com/conduit-lang/responder/internal/web/context"
)

// RequestIDHeader is the header carrying the request ID.
const RequestIDHeader = "X-Request-ID"

// RequestID tags each request with an ID, reusing the one supplied by the
// client when present. gen may be nil to use UUID v4.
func RequestID(gen func() string) Middleware {
	if gen == nil {
		gen = func() string { return uuid.New().String() }
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get(RequestIDHeader)
			if requestID == "" {
				requestID = gen()
			}

			r = r.WithContext(webcontext.SetRequestID(r.Context(), requestID))
			w.Header().Set(RequestIDHeader, requestID)

			next.ServeHTTP(w, r)
		})
	}
}
