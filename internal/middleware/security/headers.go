package security

import (
	"fmt"
	"net/http"
)

type HeadersConfig struct {
	CSP               string
	HSTSMaxAge        int
	XFrameOptions     string
	ReferrerPolicy    string
	PermissionsPolicy string
}

// DefaultHeadersConfig allows only same-origin resources; the UI ships no scripts.
func DefaultHeadersConfig() HeadersConfig {
	return HeadersConfig{
		CSP: "default-src 'self'; " +
			"script-src 'none'; " +
			"style-src 'self'; " +
			"img-src 'self' data:; " +
			"object-src 'none'; " +
			"frame-ancestors 'none'; " +
			"base-uri 'self'; " +
			"form-action 'self'",
		HSTSMaxAge:        31536000,
		XFrameOptions:     "DENY",
		ReferrerPolicy:    "strict-origin-when-cross-origin",
		PermissionsPolicy: "geolocation=(), microphone=(), camera=(), payment=()",
	}
}

// Headers returns middleware that sets the configured security headers.
// HSTS is only sent over TLS.
func Headers(config HeadersConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", config.XFrameOptions)
			h.Set("Referrer-Policy", config.ReferrerPolicy)
			h.Set("Permissions-Policy", config.PermissionsPolicy)
			if config.CSP != "" {
				h.Set("Content-Security-Policy", config.CSP)
			}
			if r.TLS != nil && config.HSTSMaxAge > 0 {
				h.Set("Strict-Transport-Security", fmt.Sprintf("max-age=%d; includeSubDomains", config.HSTSMaxAge))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// StaticAssets adds long-lived caching headers for embedded assets.
func StaticAssets(maxAge int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if maxAge > 0 {
				w.Header().Set("Cache-Control", fmt.Sprintf("public, max-age=%d", maxAge))
			}
			next.ServeHTTP(w, r)
		})
	}
}
