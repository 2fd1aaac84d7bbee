// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file resolves the caller identity of a request. With a token verifier
// configured, callers present "Authorization: Bearer <JWT>" and the subject
// claim becomes their identity. Without one, the X-User-ID header is trusted
// as-is, which is only suitable for local development and tests.
//
// The identity is stored both in the Gin context (key "userID", read by the
// logger, rate limiter and idempotency validator) and in the request context
// via auth.WithCaller, where the service layer looks for it.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-product-voting/internal/auth"
	"github.com/tbourn/go-product-voting/internal/domain"
)

// HeaderUserID is the development identity header.
const HeaderUserID = "X-User-ID"

// ctxKeyUserID is the Gin context key holding the caller identity.
const ctxKeyUserID = "userID"

// TokenVerifier turns a raw Authorization header value into an identity.
type TokenVerifier interface {
	Verify(raw string) (domain.Identity, error)
}

// Authenticate attaches the caller identity to the request.
//
// Behavior:
//   - verifier != nil: a missing Authorization header leaves the request
//     anonymous; an invalid token is rejected with 401.
//   - verifier == nil: the trimmed X-User-ID header, when present, is used.
//
// Anonymous requests continue; operations that need a caller reject them in
// the service layer.
func Authenticate(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		var id domain.Identity
		if verifier != nil {
			if raw := strings.TrimSpace(c.GetHeader("Authorization")); raw != "" {
				v, err := verifier.Verify(raw)
				if err != nil {
					c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
						"request_id": c.Writer.Header().Get(requestIDHeader),
						"code":       "unauthorized",
						"message":    "invalid bearer token",
					})
					return
				}
				id = v
			}
		} else {
			id = domain.Identity(strings.TrimSpace(c.GetHeader(HeaderUserID)))
		}

		if id != "" {
			c.Set(ctxKeyUserID, string(id))
			c.Request = c.Request.WithContext(auth.WithCaller(c.Request.Context(), id))
		}
		c.Next()
	}
}

// UserID returns the caller identity attached by Authenticate, or "" for
// anonymous requests.
func UserID(c *gin.Context) string {
	if v, ok := c.Get(ctxKeyUserID); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
