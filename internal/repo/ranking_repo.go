package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-product-voting/internal/domain"
)

// UpsertRanking stores score for productID. A product entering the table
// for the first time gets a new Seq; later updates keep it.
func UpsertRanking(ctx context.Context, db *gorm.DB, productID string, score int32, now time.Time) error {
	var r domain.Ranking
	err := db.WithContext(ctx).First(&r, "product_id = ?", productID).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return db.WithContext(ctx).Create(&domain.Ranking{ProductID: productID, Score: score, UpdatedAt: now}).Error
	case err != nil:
		return err
	}
	return db.WithContext(ctx).
		Model(&domain.Ranking{}).
		Where("seq = ?", r.Seq).
		Updates(map[string]any{"score": score, "updated_at": now}).Error
}

// GetRanking returns the stored score of productID, or ErrNotFound.
func GetRanking(ctx context.Context, db *gorm.DB, productID string) (*domain.Ranking, error) {
	var r domain.Ranking
	if err := db.WithContext(ctx).First(&r, "product_id = ?", productID).Error; err != nil {
		return nil, err
	}
	return &r, nil
}

// ListRankings returns up to limit ranking rows in table insertion order.
func ListRankings(ctx context.Context, db *gorm.DB, limit int) ([]domain.Ranking, error) {
	var out []domain.Ranking
	q := db.WithContext(ctx).Order("seq ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&out).Error
	return out, err
}

// ClearRankings removes every ranking row.
func ClearRankings(ctx context.Context, db *gorm.DB) error {
	return db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&domain.Ranking{}).Error
}
