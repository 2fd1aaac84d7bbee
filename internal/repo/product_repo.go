// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for products and
// per-creator product counters.
//
// Products are versioned: every mutation goes through a compare-and-swap on
// the version column and returns ErrConflict when the row moved underneath
// the caller.
package repo

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-product-voting/internal/domain"
)

// GetProduct fetches a product by id without its votes.
func GetProduct(ctx context.Context, db *gorm.DB, id string) (*domain.Product, error) {
	var p domain.Product
	if err := db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// GetProductWithVotes fetches a product and up to limit of its live votes
// in insertion order. A limit <= 0 loads every vote.
func GetProductWithVotes(ctx context.Context, db *gorm.DB, id string, limit int) (*domain.Product, error) {
	var p domain.Product
	err := db.WithContext(ctx).
		Preload("Votes", func(q *gorm.DB) *gorm.DB {
			q = q.Order("id ASC")
			if limit > 0 {
				q = q.Limit(limit)
			}
			return q
		}).
		First(&p, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// CreateProduct inserts a product at version 1. Returns ErrDuplicate if the
// id is taken.
func CreateProduct(ctx context.Context, db *gorm.DB, p *domain.Product) error {
	p.Version = 1
	if err := db.WithContext(ctx).Omit(clause.Associations).Create(p).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// BumpProductVersion advances the product version from expected to
// expected+1, claiming the row for the current transaction.
func BumpProductVersion(ctx context.Context, db *gorm.DB, id string, expected int64) error {
	return casProduct(ctx, db, id, expected, map[string]any{})
}

// DeactivateProduct clears is_active if the row is still at version expected.
func DeactivateProduct(ctx context.Context, db *gorm.DB, id string, expected int64) error {
	return casProduct(ctx, db, id, expected, map[string]any{"is_active": false})
}

func casProduct(ctx context.Context, db *gorm.DB, id string, expected int64, fields map[string]any) error {
	fields["version"] = expected + 1
	res := db.WithContext(ctx).
		Model(&domain.Product{}).
		Where("id = ? AND version = ?", id, expected).
		Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrConflict
	}
	return nil
}

// ClaimCreatorProductSlot increments the creator's product counter if it is
// below limit and returns ErrLimitReached otherwise. The check and the
// increment are one conditional UPDATE, so concurrent claims from several
// nodes sharing the database cannot push the counter past limit.
func ClaimCreatorProductSlot(ctx context.Context, db *gorm.DB, creator domain.Identity, limit uint32) error {
	err := db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&domain.CreatorProductCount{Creator: creator}).Error
	if err != nil {
		return err
	}
	res := db.WithContext(ctx).
		Model(&domain.CreatorProductCount{}).
		Where("creator = ? AND count < ?", creator, limit).
		Update("count", gorm.Expr("count + 1"))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrLimitReached
	}
	return nil
}

// CountProducts returns the total number of products.
func CountProducts(ctx context.Context, db *gorm.DB) (int64, error) {
	var n int64
	err := db.WithContext(ctx).Model(&domain.Product{}).Count(&n).Error
	return n, err
}
