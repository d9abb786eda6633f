package middleware

import (
	"net/http"
	"strings"
)

// contentSecurityPolicy allows covers from Open Library / archive.org and
// the bootstrap CDN, nothing else.
var contentSecurityPolicy = strings.Join([]string{
	"default-src 'self'",
	"img-src 'self' data: https://covers.openlibrary.org https://archive.org https://*.archive.org",
	"script-src 'self' https://cdn.jsdelivr.net",
	"script-src-elem 'self' https://cdn.jsdelivr.net",
	"style-src 'self' https://cdn.jsdelivr.net 'unsafe-inline'",
	"style-src-elem 'self' https://cdn.jsdelivr.net 'unsafe-inline'",
	"font-src 'self' https://cdn.jsdelivr.net data:",
	"connect-src 'self' https://openlibrary.org https://cdn.jsdelivr.net",
	"base-uri 'self'",
	"form-action 'self'",
	"frame-ancestors 'self'",
	"object-src 'none'",
}, "; ")

func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Content-Security-Policy", contentSecurityPolicy)
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "SAMEORIGIN")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Cross-Origin-Opener-Policy", "same-origin")
		next.ServeHTTP(w, r)
	})
}
