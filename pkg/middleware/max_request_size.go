package middleware

import (
	"net/http"
)

// MaxRequestSize caps request bodies at maxBytes. Oversized bodies surface
// as a decode error in the handler, which reports 400 to the client.
func MaxRequestSize(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			}
			next.ServeHTTP(w, r)
		})
	}
}
