// Package services – VoteLimiter
//
// VoteLimiter applies the abuse controls that gate every vote: a minimum
// account age and a cap on votes per identity over a trailing window.
// Check is a pure read; Record charges the quota and must only run after a
// vote was accepted, inside the same transaction.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"gorm.io/gorm"

	"github.com/tbourn/go-product-voting/internal/auth"
	"github.com/tbourn/go-product-voting/internal/domain"
	"github.com/tbourn/go-product-voting/internal/repo"
)

const (
	DefaultDailyVoteLimit = 10
	DefaultRateWindow     = 24 * time.Hour
	DefaultMinAccountAge  = 7 * 24 * time.Hour
)

// AccountAgeProvider reports when an identity was first seen. Providers
// backed by the database read through db, which may be a transaction;
// others may ignore it. ok is false when the age cannot be established.
type AccountAgeProvider interface {
	FirstSeen(ctx context.Context, db *gorm.DB, id domain.Identity) (firstSeen time.Time, ok bool, err error)
}

// AccountRegistry is the default AccountAgeProvider: identities register
// once and their age counts from that moment.
type AccountRegistry struct {
	DB    *gorm.DB
	Auth  auth.Authorizer
	Clock clockwork.Clock
}

// NewAccountRegistry constructs an AccountRegistry.
func NewAccountRegistry(db *gorm.DB, a auth.Authorizer, clock clockwork.Clock) *AccountRegistry {
	return &AccountRegistry{DB: db, Auth: a, Clock: clock}
}

// Register records id as first seen now. Registering again keeps the
// original timestamp. Only id itself may register.
func (r *AccountRegistry) Register(ctx context.Context, id domain.Identity) (a *domain.Account, err error) {
	ctx, span := startSpan(ctx, "AccountRegistry", "Register")
	defer func() { endSpan(span, err) }()

	if err := requireCaller(ctx, r.Auth, id); err != nil {
		return nil, err
	}
	a, err = repo.EnsureAccount(ctx, r.DB, id, nowFrom(r.Clock))
	if err != nil {
		return nil, fmt.Errorf("register account: %w", err)
	}
	return a, nil
}

// FirstSeen implements AccountAgeProvider.
func (r *AccountRegistry) FirstSeen(ctx context.Context, db *gorm.DB, id domain.Identity) (time.Time, bool, error) {
	if db == nil {
		db = r.DB
	}
	a, err := repo.GetAccount(ctx, db, id)
	if errors.Is(err, repo.ErrNotFound) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	return a.FirstSeen, true, nil
}

// VoteLimiter enforces the account-age gate and the trailing-window vote cap.
type VoteLimiter struct {
	Accounts AccountAgeProvider
	Clock    clockwork.Clock

	DailyLimit    int
	Window        time.Duration
	MinAccountAge time.Duration
}

// NewVoteLimiter constructs a VoteLimiter with the default cap (10 per 24h)
// and minimum account age (7 days).
func NewVoteLimiter(accounts AccountAgeProvider, clock clockwork.Clock) *VoteLimiter {
	return &VoteLimiter{
		Accounts:      accounts,
		Clock:         clock,
		DailyLimit:    DefaultDailyVoteLimit,
		Window:        DefaultRateWindow,
		MinAccountAge: DefaultMinAccountAge,
	}
}

// Check fails with ErrAccountTooNew when id's age is unknown or below the
// minimum, and with ErrDailyLimitReached when id already has DailyLimit
// votes inside the window. It never writes.
func (l *VoteLimiter) Check(ctx context.Context, db *gorm.DB, id domain.Identity) error {
	now := nowFrom(l.Clock)

	if l.Accounts == nil {
		return ErrAccountTooNew
	}
	firstSeen, ok, err := l.Accounts.FirstSeen(ctx, db, id)
	if err != nil {
		return fmt.Errorf("account age: %w", err)
	}
	if !ok || now.Before(firstSeen.Add(l.MinAccountAge)) {
		return ErrAccountTooNew
	}

	rec, err := repo.GetRateLimitRecord(ctx, db, id)
	if err != nil {
		return fmt.Errorf("load rate limit: %w", err)
	}
	if countSince(rec.Timestamps, now.Add(-l.Window)) >= l.DailyLimit {
		return ErrDailyLimitReached
	}
	return nil
}

// Record prunes id's timestamps to the window and appends now.
func (l *VoteLimiter) Record(ctx context.Context, db *gorm.DB, id domain.Identity) error {
	now := nowFrom(l.Clock)

	rec, err := repo.GetRateLimitRecord(ctx, db, id)
	if err != nil {
		return fmt.Errorf("load rate limit: %w", err)
	}
	rec.Timestamps = append(pruneBefore(rec.Timestamps, now.Add(-l.Window)), now)
	if err := repo.SaveRateLimitRecord(ctx, db, rec, now); err != nil {
		return fmt.Errorf("store rate limit: %w", err)
	}
	return nil
}

// Remaining reports how many more votes id may cast right now.
func (l *VoteLimiter) Remaining(ctx context.Context, db *gorm.DB, id domain.Identity) (int, error) {
	now := nowFrom(l.Clock)
	rec, err := repo.GetRateLimitRecord(ctx, db, id)
	if err != nil {
		return 0, fmt.Errorf("load rate limit: %w", err)
	}
	left := l.DailyLimit - countSince(rec.Timestamps, now.Add(-l.Window))
	if left < 0 {
		left = 0
	}
	return left, nil
}

// countSince counts timestamps strictly after cutoff.
func countSince(ts []time.Time, cutoff time.Time) int {
	n := 0
	for _, t := range ts {
		if t.After(cutoff) {
			n++
		}
	}
	return n
}

// pruneBefore keeps timestamps strictly after cutoff, preserving order.
func pruneBefore(ts []time.Time, cutoff time.Time) []time.Time {
	out := make([]time.Time, 0, len(ts)+1)
	for _, t := range ts {
		if t.After(cutoff) {
			out = append(out, t)
		}
	}
	return out
}
