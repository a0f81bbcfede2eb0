// Package requesttime pins one "now" per request so a case's UpdatedAt, its
// history record and the emitted audit event all carry the same timestamp.
package requesttime

import (
	"net/http"
	"time"

	"watchdesk/pkg/requestcontext"
)

// Middleware captures the current time at the start of the request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithTime(r.Context(), time.Now().UTC())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
