package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"go.uber.org/zap"

	webcontext "github.com/conduit-lang/responder/internal/web/context"
)

// ErrorRenderer writes an error response for status.
type ErrorRenderer func(w http.ResponseWriter, r *http.Request, status int)

// Recovery turns panics into 500 responses written by render.
func Recovery(logger *zap.Logger, render ErrorRenderer) Middleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				v := recover()
				if v == nil {
					return
				}
				if v == http.ErrAbortHandler {
					panic(v)
				}

				logger.Error("panic recovered",
					zap.String("request_id", webcontext.GetRequestID(r.Context())),
					zap.Error(panicError(v)),
					zap.ByteString("stack", debug.Stack()),
				)

				if render == nil {
					http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
					return
				}
				render(w, r, http.StatusInternalServerError)
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// panicError wraps a panic value as an error.
func panicError(v any) error {
	if err, ok := v.(error); ok {
		return err
	}
	return fmt.Errorf("panic: %v", v)
}
