package middleware

import (
	"net/http"
)

// DefaultMaxBodyBytes bounds request bodies; a full signal chain with catalog
// data fits comfortably.
const DefaultMaxBodyBytes int64 = 4 << 20

// BodySizeLimit rejects bodies larger than maxBytes. A declared
// Content-Length is checked up front; chunked bodies are capped while read.
func BodySizeLimit(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxBytes {
				http.Error(w, "Request body too large", http.StatusRequestEntityTooLarge)
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}
