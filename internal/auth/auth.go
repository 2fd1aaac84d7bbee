// Package auth resolves the identity behind a request and answers the single
// authorization question the voting engine asks: "was the current call made
// by this identity?".
//
// The caller identity travels in the request context. HTTP middleware puts it
// there after verifying a bearer token (when a signing secret is configured)
// or reading the demo X-User-ID header.
package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/tbourn/go-product-voting/internal/domain"
)

// ErrUnauthorized is returned when the current call was not made by the
// identity an operation requires.
var ErrUnauthorized = errors.New("unauthorized")

type callerKey struct{}

// WithCaller returns a copy of ctx carrying id as the authenticated caller.
// Blank identities are ignored.
func WithCaller(ctx context.Context, id domain.Identity) context.Context {
	if strings.TrimSpace(string(id)) == "" {
		return ctx
	}
	return context.WithValue(ctx, callerKey{}, id)
}

// CallerFrom returns the authenticated caller stored in ctx.
func CallerFrom(ctx context.Context) (domain.Identity, bool) {
	id, ok := ctx.Value(callerKey{}).(domain.Identity)
	return id, ok && id != ""
}

// Authorizer decides whether the current call was authorized by id.
type Authorizer interface {
	Require(ctx context.Context, id domain.Identity) error
}

// ContextAuthorizer authorizes id when it equals the caller stored in the
// context.
type ContextAuthorizer struct{}

// Require implements Authorizer.
func (ContextAuthorizer) Require(ctx context.Context, id domain.Identity) error {
	caller, ok := CallerFrom(ctx)
	if !ok || id == "" || caller != id {
		return ErrUnauthorized
	}
	return nil
}
