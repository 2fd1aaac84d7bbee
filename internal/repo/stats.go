// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides small aggregate queries: ranking table
// statistics and the change markers used for ETag generation in the HTTP
// layer.
package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/tbourn/go-product-voting/internal/domain"
)

// RankingStats returns the number of ranked products and the lowest and
// highest stored scores. An empty table yields (0, 0, 0).
func RankingStats(ctx context.Context, db *gorm.DB) (count int64, minScore, maxScore int32, err error) {
	var row struct {
		N  int64
		Lo int64
		Hi int64
	}
	err = db.WithContext(ctx).
		Model(&domain.Ranking{}).
		Select("COUNT(*) AS n, COALESCE(MIN(score), 0) AS lo, COALESCE(MAX(score), 0) AS hi").
		Scan(&row).Error
	if err != nil {
		return 0, 0, 0, err
	}
	return row.N, int32(row.Lo), int32(row.Hi), nil
}

// HistoryStats returns the number of audit entries of a product and the
// highest Seq among them (0 when empty). Because history is append-only the
// pair changes exactly when the trail grows.
func HistoryStats(ctx context.Context, db *gorm.DB, productID string) (count int64, lastSeq uint64, err error) {
	if err = db.WithContext(ctx).
		Model(&domain.VoteHistoryEntry{}).
		Where("product_id = ?", productID).
		Count(&count).Error; err != nil {
		return 0, 0, err
	}
	if count == 0 {
		return 0, 0, nil
	}
	var row struct{ Seq uint64 }
	if err = db.WithContext(ctx).
		Model(&domain.VoteHistoryEntry{}).
		Select("seq").
		Where("product_id = ?", productID).
		Order("seq DESC").
		Limit(1).
		Scan(&row).Error; err != nil {
		return 0, 0, err
	}
	return count, row.Seq, nil
}
