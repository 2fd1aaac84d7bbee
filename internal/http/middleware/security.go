// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file sets response headers for the voting API. SecurityHeaders runs
// on every route. CallerScoped goes on routes whose answer depends on who
// is asking (admin policy, account registration, vote submission,
// deactivation and ranking resets) so shared caches neither store nor
// cross-serve them.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

const defaultHSTSMaxAge = 180 * 24 * time.Hour

// SecurityOptions configures SecurityHeaders.
type SecurityOptions struct {
	// EnableHSTS emits Strict-Transport-Security on HTTPS requests only.
	EnableHSTS bool
	// HSTSMaxAge defaults to 180 days.
	HSTSMaxAge time.Duration
	// EnablePolicy adds Permissions-Policy and
	// X-Permitted-Cross-Domain-Policies for browser clients.
	EnablePolicy bool
}

// SecurityHeaders returns a middleware that sets nosniff, frame denial and
// no-referrer on every response, plus the optional policy and HSTS headers.
// X-Request-ID is added to Access-Control-Expose-Headers when present.
func SecurityHeaders(opt SecurityOptions) gin.HandlerFunc {
	maxAge := opt.HSTSMaxAge
	if maxAge <= 0 {
		maxAge = defaultHSTSMaxAge
	}
	hsts := "max-age=" + strconv.FormatInt(int64(maxAge/time.Second), 10) + "; includeSubDomains; preload"

	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")

		if opt.EnablePolicy {
			h.Set("Permissions-Policy", "geolocation=(), microphone=(), camera=(), payment=()")
			h.Set("X-Permitted-Cross-Domain-Policies", "none")
		}
		if opt.EnableHSTS && isHTTPS(c.Request) {
			h.Set("Strict-Transport-Security", hsts)
		}
		if h.Get(requestIDHeader) != "" {
			addHeaderToken(h, "Access-Control-Expose-Headers", requestIDHeader)
		}

		c.Next()
	}
}

// CallerScoped returns a middleware for caller-specific routes. The response
// is marked private and uncacheable and varies on both identity headers.
func CallerScoped() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Cache-Control", "private, no-store")
		h.Set("Pragma", "no-cache")
		addHeaderToken(h, "Vary", "Authorization")
		addHeaderToken(h, "Vary", HeaderUserID)
		c.Next()
	}
}

// addHeaderToken appends token to a comma-separated header unless it is
// already listed (case-insensitively). Repeated header lines are merged.
func addHeaderToken(h http.Header, name, token string) {
	cur := strings.Join(h.Values(name), ", ")
	if cur == "" {
		h.Set(name, token)
		return
	}
	for _, t := range strings.Split(cur, ",") {
		if strings.EqualFold(strings.TrimSpace(t), token) {
			return
		}
	}
	h.Set(name, cur+", "+token)
}

// isHTTPS reports whether the request arrived over TLS directly or through
// a proxy that set X-Forwarded-Proto: https.
func isHTTPS(r *http.Request) bool {
	return r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}
