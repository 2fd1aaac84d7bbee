package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbourn/go-product-voting/internal/domain"
)

func TestAdminInit_RequiresCallerToBeAdmin(t *testing.T) {
	f := newFixture(t)

	_, err := f.admin.Init(context.Background(), "root", 5, 30, 24)
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = f.admin.Init(as("mallory"), "root", 5, 30, 24)
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = f.admin.Config(context.Background())
	assert.ErrorIs(t, err, ErrNotInitialized)
}

func TestAdminInit_BlankAdminIsInvalid(t *testing.T) {
	f := newFixture(t)

	for _, admin := range []string{"", "   "} {
		_, err := f.admin.Init(as(domain.Identity(admin)), domain.Identity(admin), 5, 30, 24)
		assert.ErrorIs(t, err, ErrInvalidAdmin, "admin %q", admin)
	}
	_, err := f.admin.Init(context.Background(), "", 5, 30, 24)
	assert.ErrorIs(t, err, ErrInvalidAdmin, "checked before the caller is authorized")

	_, err = f.admin.Config(context.Background())
	assert.ErrorIs(t, err, ErrNotInitialized)
}

func TestAdminInit_OnceOnly(t *testing.T) {
	f := newFixture(t)

	cfg, err := f.admin.Init(as("root"), "root", 5, 30, 24)
	require.NoError(t, err)
	assert.Equal(t, uint32(5), cfg.MaxProductsPerUser)
	assert.Equal(t, epoch, cfg.CreatedAt)

	_, err = f.admin.Init(as("root"), "root", 1, 1, 1)
	assert.ErrorIs(t, err, ErrAlreadyInitialized)

	// Another identity that authorizes itself still cannot take over.
	_, err = f.admin.Init(as("other"), "other", 1, 1, 1)
	assert.ErrorIs(t, err, ErrAlreadyInitialized)

	got, err := f.admin.Config(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "root", string(got.Admin))
	assert.Equal(t, uint32(30), got.VotingPeriodDays)
	assert.Equal(t, uint32(24), got.ReversalWindowHours)

	// Config is returned by value.
	got.Admin = "mallory"
	again, err := f.admin.Config(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "root", string(again.Admin))
}

func TestRequireAdmin_Order(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.admin.RequireAdmin(as("root"), f.db, "root")
	assert.ErrorIs(t, err, ErrNotInitialized)

	f.initPolicy(t, 5, 30, 24)

	_, err = f.admin.RequireAdmin(ctx, f.db, "root")
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = f.admin.RequireAdmin(as("bob"), f.db, "bob")
	assert.ErrorIs(t, err, ErrAdminOnly)

	cfg, err := f.admin.RequireAdmin(as("root"), f.db, "root")
	require.NoError(t, err)
	assert.Equal(t, "root", string(cfg.Admin))
}
