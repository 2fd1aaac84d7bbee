package services

import (
	"context"
	"errors"
	"time"

	"github.com/jonboulle/clockwork"
	"gorm.io/gorm"

	"github.com/tbourn/go-product-voting/internal/repo"
)

// DefaultReceiptTTL is how long a completed vote submission can be replayed.
const DefaultReceiptTTL = 24 * time.Hour

// Receipts remembers completed vote submissions by idempotency key so a
// retried request is answered without casting the vote again.
type Receipts struct {
	DB    *gorm.DB
	Clock clockwork.Clock
	TTL   time.Duration
}

// NewReceipts constructs Receipts with DefaultReceiptTTL.
func NewReceipts(db *gorm.DB, clock clockwork.Clock) *Receipts {
	return &Receipts{DB: db, Clock: clock, TTL: DefaultReceiptTTL}
}

// Lookup returns the fingerprint stored when userID completed a submission
// for productID under key. found is false when no unexpired receipt exists.
func (r *Receipts) Lookup(ctx context.Context, userID, productID, key string) (fingerprint string, found bool, err error) {
	rec, err := repo.GetIdempotency(ctx, r.DB, userID, productID, key, nowFrom(r.Clock))
	if errors.Is(err, repo.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return rec.Fingerprint, true, nil
}

// Remember stores key and the request fingerprint for (userID, productID).
// The first receipt for a key wins; storing it again is not an error.
func (r *Receipts) Remember(ctx context.Context, userID, productID, key, fingerprint string, status int) error {
	ttl := r.TTL
	if ttl <= 0 {
		ttl = DefaultReceiptTTL
	}
	_, err := repo.CreateIdempotency(ctx, r.DB, userID, productID, key, fingerprint, status, nowFrom(r.Clock), ttl)
	if errors.Is(err, repo.ErrDuplicate) {
		return nil
	}
	return err
}

// Purge deletes expired receipts and returns how many were removed.
func (r *Receipts) Purge(ctx context.Context) (int64, error) {
	return repo.PurgeExpiredIdempotency(ctx, r.DB, nowFrom(r.Clock))
}
