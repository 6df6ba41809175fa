// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import "net/http"

// contentSecurityPolicy allows same-origin scripts and styles only. Post
// content may embed images from any host.
const contentSecurityPolicy = "default-src 'self'; img-src * data:; style-src 'self' 'unsafe-inline'; " +
	"form-action 'self'; frame-ancestors 'self'; base-uri 'self'"

// baseHeaders are set on every response.
var baseHeaders = map[string]string{
	"X-Content-Type-Options":  "nosniff",
	"X-Frame-Options":         "SAMEORIGIN",
	"X-XSS-Protection":        "0",
	"Referrer-Policy":         "strict-origin-when-cross-origin",
	"Permissions-Policy":      "camera=(), microphone=(), geolocation=(), interest-cohort=()",
	"Content-Security-Policy": contentSecurityPolicy,
}

// SecureHeaders sets browser hardening headers. When tls is true the site
// is assumed to be served over HTTPS only and HSTS is added as well.
func SecureHeaders(tls bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			for k, v := range baseHeaders {
				h.Set(k, v)
			}
			if tls {
				h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
			}
			// Signed-in pages carry per-user content.
			if SessionFromCtx(r.Context()) != nil {
				h.Set("Cache-Control", "private, no-store")
			}
			next.ServeHTTP(w, r)
		})
	}
}
