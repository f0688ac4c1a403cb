package server

import (
	"net/http"
	"strings"
)

const hstsHeader = "max-age=63072000; includeSubDomains"

// securityHeadersMiddleware sets the headers for an API that only serves
// JSON, LP text and metrics. HSTS is only sent when the request reached us
// over https, directly or through a proxy.
func (s *Server) securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		h.Set("Referrer-Policy", "no-referrer")
		if isHTTPS(r) {
			h.Set("Strict-Transport-Security", hstsHeader)
		}
		// results and snapshots change with every solve
		if strings.HasPrefix(r.URL.Path, "/api/") {
			h.Set("Cache-Control", "no-store")
		}
		next.ServeHTTP(w, r)
	})
}

func isHTTPS(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	return strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}
