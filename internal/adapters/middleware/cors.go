package middleware

import (
	"net/http"
	"strings"

	"github.com/samber/lo"
)

var (
	corsMethods = strings.Join([]string{
		http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions,
	}, ", ")
	corsHeaders = strings.Join([]string{
		"Content-Type", "Authorization", ClientIDHeader, APIKeyHeader,
	}, ", ")
)

// CORSMiddleware answers preflights and lets the listed origins call the API.
// A "*" entry allows any origin; the caller's origin is echoed so credentials
// still work.
func CORSMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	wildcard := lo.Contains(allowedOrigins, "*")
	allowed := lo.SliceToMap(allowedOrigins, func(o string) (string, struct{}) {
		return strings.TrimSpace(o), struct{}{}
	})

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			_, listed := allowed[origin]

			if wildcard || listed {
				h := w.Header()
				switch {
				case origin != "":
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				case wildcard:
					h.Set("Access-Control-Allow-Origin", "*")
				}
				h.Set("Access-Control-Allow-Methods", corsMethods)
				h.Set("Access-Control-Allow-Headers", corsHeaders)
				h.Set("Access-Control-Expose-Headers", ClientIDHeader)
				h.Set("Access-Control-Allow-Credentials", "true")
				h.Set("Access-Control-Max-Age", "86400")
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
