package repo

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-product-voting/internal/domain"
)

// GetAccount returns the registration record of identity, or ErrNotFound.
func GetAccount(ctx context.Context, db *gorm.DB, identity domain.Identity) (*domain.Account, error) {
	var a domain.Account
	if err := db.WithContext(ctx).First(&a, "identity = ?", identity).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

// EnsureAccount records identity as first seen at now unless it is already
// registered, and returns the stored record.
func EnsureAccount(ctx context.Context, db *gorm.DB, identity domain.Identity, now time.Time) (*domain.Account, error) {
	err := db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&domain.Account{Identity: identity, FirstSeen: now}).Error
	if err != nil {
		return nil, err
	}
	return GetAccount(ctx, db, identity)
}
