// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements idempotent vote submission. On the routes it applies
// to, it validates an Idempotency-Key request header and asks a lookup
// whether the same caller already completed a submission with that key for
// the product in the route. A stored receipt is replayed only when the
// request fingerprint matches the one recorded with it. Downstream handlers
// can:
//   - read the normalized key (GetIdempotencyKey)
//   - detect replayed requests (IsReplay)
//
// Served replays also skip the rate limiter.
package middleware

import (
	"context"
	"net/http"
	"regexp"

	"github.com/gin-gonic/gin"
)

// HeaderIdempotencyKey is the request header carrying the idempotency key.
const HeaderIdempotencyKey = "Idempotency-Key"

// HeaderIdempotencyReplayed is set on responses served from a prior result.
const HeaderIdempotencyReplayed = "Idempotency-Replayed"

// errCodeKeyReused is returned when a key is sent again with a different
// payload than the submission it first completed.
const errCodeKeyReused = "idempotency_key_reused"

const (
	ctxKeyIdemKey    = "idem.key"
	ctxKeyIdemReplay = "idem.replay" // bool: a completed submission exists
	ctxKeyRateBypass = "rate.bypass" // bool: skip rate limiting
)

// GetIdempotencyKey returns the validated idempotency key stored by
// IdempotencyValidator. The second return value indicates presence.
func GetIdempotencyKey(c *gin.Context) (string, bool) {
	v, ok := c.Get(ctxKeyIdemKey)
	if !ok {
		return "", false
	}
	s, _ := v.(string)
	return s, s != ""
}

// IsReplay reports whether this request repeats a completed submission.
func IsReplay(c *gin.Context) bool {
	v, ok := c.Get(ctxKeyIdemReplay)
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// IdempotencyOptions configures IdempotencyValidator.
type IdempotencyOptions struct {
	// MaxLen caps the accepted key length. Values <= 0 default to 200.
	MaxLen int
	// Pattern restricts allowed characters. Defaults to ^[A-Za-z0-9._~\-:]+$.
	Pattern *regexp.Regexp
	// Applies selects the requests that take part in idempotency. Requests it
	// rejects pass through untouched, header or not. Nil applies to all.
	Applies func(c *gin.Context) bool
	// Fingerprint digests the request payload. It runs only when a receipt
	// exists. Nil treats every payload as matching.
	Fingerprint func(c *gin.Context) (string, error)
}

// IdempotencyLookup returns the fingerprint recorded when userID completed a
// submission for productID under key. found is false when there is none.
// Expiry is the lookup's concern.
type IdempotencyLookup func(ctx context.Context, userID, productID, key string) (fingerprint string, found bool, err error)

// IdempotencyValidator validates the Idempotency-Key header (if present),
// stashes it, and marks the request as a replay when lookup finds a prior
// completed submission for (caller, :id, key) with the same fingerprint.
//
// Behavior:
//   - Request outside Applies, or header absent: no-op.
//   - Header invalid: 400 with code "bad_idempotency_key".
//   - Anonymous caller: the key is stashed but no lookup runs.
//   - Lookup or fingerprint errors: the request is processed normally.
//   - Receipt with a different fingerprint: 422 with code
//     "idempotency_key_reused".
func IdempotencyValidator(opts IdempotencyOptions, lookup IdempotencyLookup) gin.HandlerFunc {
	maxLen := opts.MaxLen
	if maxLen <= 0 {
		maxLen = 200
	}
	pat := opts.Pattern
	if pat == nil {
		pat = regexp.MustCompile(`^[A-Za-z0-9._~\-:]+$`)
	}

	return func(c *gin.Context) {
		if opts.Applies != nil && !opts.Applies(c) {
			c.Next()
			return
		}
		key := c.GetHeader(HeaderIdempotencyKey)
		if key == "" {
			c.Next()
			return
		}
		if len(key) > maxLen || !pat.MatchString(key) {
			abortJSON(c, http.StatusBadRequest, "bad_idempotency_key", "invalid Idempotency-Key")
			return
		}

		c.Set(ctxKeyIdemKey, key)

		uid := UserID(c)
		productID := c.Param("id")
		if lookup == nil || uid == "" || productID == "" {
			c.Next()
			return
		}

		stored, found, err := lookup(c.Request.Context(), uid, productID, key)
		if err != nil {
			LoggerFrom(c).Warn().Err(err).Msg("idempotency lookup")
		}
		if err != nil || !found {
			c.Next()
			return
		}

		if opts.Fingerprint != nil {
			fp, err := opts.Fingerprint(c)
			if err != nil {
				// Let the handler report the malformed payload.
				c.Next()
				return
			}
			if fp != stored {
				idemOutcomes.WithLabelValues("key_reused").Inc()
				abortJSON(c, http.StatusUnprocessableEntity, errCodeKeyReused,
					"Idempotency-Key was already used for a different request")
				return
			}
		}

		idemOutcomes.WithLabelValues("replayed").Inc()
		c.Set(ctxKeyIdemReplay, true)
		c.Set(ctxKeyRateBypass, true)
		c.Next()
	}
}

// abortJSON stops the chain with the API error envelope.
func abortJSON(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, gin.H{
		"request_id": c.Writer.Header().Get(requestIDHeader),
		"code":       code,
		"message":    msg,
	})
}
