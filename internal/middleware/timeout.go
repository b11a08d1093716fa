package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"
)

// Timeout puts a deadline of d on the request context, so store and
// upstream calls made with r.Context() give up when it passes.
//
// It answers 504 only when the handler returned WITHOUT writing anything.
// A handler that already reported its own error keeps its response; the
// status line can only be sent once.
func Timeout(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()

			wrapped := wrap(w)
			next.ServeHTTP(wrapped, r.WithContext(ctx))

			if wrapped.wroteHeader || !errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusGatewayTimeout)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"message": "Request timed out",
				"error":   "timeout",
			})
		})
	}
}
