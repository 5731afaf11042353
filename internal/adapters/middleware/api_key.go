package middleware

import (
	"crypto/subtle"
	"net/http"
)

const (
	APIKeyHeader   = "X-API-Key"
	ClientIDHeader = "X-Client-ID"
)

// APIKeyMiddleware requires the project's browser API key in X-API-Key or the
// key query parameter. exempt paths (health checks, metrics) pass through.
func APIKeyMiddleware(apiKey string, exempt ...string) func(http.Handler) http.Handler {
	skip := make(map[string]bool, len(exempt))
	for _, p := range exempt {
		skip[p] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if skip[r.URL.Path] || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}
			key := r.Header.Get(APIKeyHeader)
			if key == "" {
				key = r.URL.Query().Get("key")
			}
			if subtle.ConstantTimeCompare([]byte(key), []byte(apiKey)) != 1 {
				http.Error(w, "invalid api key", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
