// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for live votes and
// the append-only vote history.
//
// History rows are only ever inserted; nothing here updates or deletes them.
package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/tbourn/go-product-voting/internal/domain"
)

// GetVote returns the live vote of voter on productID, or ErrNotFound.
func GetVote(ctx context.Context, db *gorm.DB, productID string, voter domain.Identity) (*domain.Vote, error) {
	var v domain.Vote
	err := db.WithContext(ctx).
		Where("product_id = ? AND voter = ?", productID, voter).
		First(&v).Error
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// SaveVote inserts v, or overwrites the existing row when v.ID is set.
func SaveVote(ctx context.Context, db *gorm.DB, v *domain.Vote) error {
	if v.ID == 0 {
		err := db.WithContext(ctx).Create(v).Error
		if err != nil && isUniqueViolation(err) {
			return ErrConflict
		}
		return err
	}
	return db.WithContext(ctx).Save(v).Error
}

// ScanVotes returns up to limit live votes of a product in insertion order.
func ScanVotes(ctx context.Context, db *gorm.DB, productID string, limit int) ([]domain.Vote, error) {
	var out []domain.Vote
	q := db.WithContext(ctx).Where("product_id = ?", productID).Order("id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&out).Error
	return out, err
}

// AppendHistory inserts one audit entry.
func AppendHistory(ctx context.Context, db *gorm.DB, e *domain.VoteHistoryEntry) error {
	return db.WithContext(ctx).Create(e).Error
}

// ListHistory returns the audit trail of a product ordered by Seq. A limit
// <= 0 returns the full trail.
func ListHistory(ctx context.Context, db *gorm.DB, productID string, offset, limit int) ([]domain.VoteHistoryEntry, error) {
	out := []domain.VoteHistoryEntry{}
	q := db.WithContext(ctx).Where("product_id = ?", productID).Order("seq ASC")
	if limit > 0 {
		q = q.Offset(offset).Limit(limit)
	}
	err := q.Find(&out).Error
	return out, err
}
