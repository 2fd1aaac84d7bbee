package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbourn/go-product-voting/internal/domain"
)

func TestContextAuthorizer(t *testing.T) {
	var a ContextAuthorizer
	ctx := context.Background()

	assert.ErrorIs(t, a.Require(ctx, "alice"), ErrUnauthorized)

	ctx = WithCaller(ctx, "alice")
	assert.NoError(t, a.Require(ctx, "alice"))
	assert.ErrorIs(t, a.Require(ctx, "bob"), ErrUnauthorized)
	assert.ErrorIs(t, a.Require(ctx, ""), ErrUnauthorized)

	// Blank identities never replace the stored caller.
	ctx = WithCaller(ctx, "  ")
	id, ok := CallerFrom(ctx)
	assert.True(t, ok)
	assert.Equal(t, domain.Identity("alice"), id)
}

func TestVerifier_RoundTrip(t *testing.T) {
	v := NewVerifier("s3cret", "voting")
	now := time.Now()

	tok, err := v.Sign("alice", time.Hour, now)
	require.NoError(t, err)

	id, err := v.Verify("Bearer " + tok)
	require.NoError(t, err)
	assert.Equal(t, domain.Identity("alice"), id)

	id, err = v.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, domain.Identity("alice"), id)
}

func TestVerifier_Rejects(t *testing.T) {
	v := NewVerifier("s3cret", "voting")
	now := time.Now()

	_, err := v.Verify("")
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired, err := v.Sign("alice", time.Minute, now.Add(-2*time.Hour))
	require.NoError(t, err)
	_, err = v.Verify(expired)
	assert.ErrorIs(t, err, ErrInvalidToken)

	other, err := NewVerifier("different", "voting").Sign("alice", time.Hour, now)
	require.NoError(t, err)
	_, err = v.Verify(other)
	assert.ErrorIs(t, err, ErrInvalidToken)

	wrongIssuer, err := NewVerifier("s3cret", "elsewhere").Sign("alice", time.Hour, now)
	require.NoError(t, err)
	_, err = v.Verify(wrongIssuer)
	assert.ErrorIs(t, err, ErrInvalidToken)

	noSub := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:    "voting",
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	})
	raw, err := noSub.SignedString([]byte("s3cret"))
	require.NoError(t, err)
	_, err = v.Verify(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
