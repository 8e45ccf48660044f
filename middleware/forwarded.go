package middleware

import (
	"net/http"
)

// ForwardedOrigin applies X-Forwarded-Proto and X-Forwarded-Host to the
// request. Mount it only behind a proxy that overwrites both headers.
func ForwardedOrigin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if proto := r.Header.Get("X-Forwarded-Proto"); proto == "http" || proto == "https" {
			r.URL.Scheme = proto
		}
		if host := r.Header.Get("X-Forwarded-Host"); host != "" {
			r.Host = host
		}
		next.ServeHTTP(w, r)
	})
}
