package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-product-voting/internal/domain"
)

// GetRateLimitRecord loads the record of identity. A missing record is
// returned as an empty record at version 0.
func GetRateLimitRecord(ctx context.Context, db *gorm.DB, identity domain.Identity) (*domain.RateLimitRecord, error) {
	var r domain.RateLimitRecord
	err := db.WithContext(ctx).First(&r, "identity = ?", identity).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &domain.RateLimitRecord{Identity: identity}, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// SaveRateLimitRecord writes timestamps for r.Identity if the stored version
// still equals r.Version, then advances r.Version. Version 0 means the
// record must not exist yet.
func SaveRateLimitRecord(ctx context.Context, db *gorm.DB, r *domain.RateLimitRecord, now time.Time) error {
	if r.Version == 0 {
		rec := &domain.RateLimitRecord{Identity: r.Identity, Timestamps: r.Timestamps, Version: 1, UpdatedAt: now}
		if err := db.WithContext(ctx).Create(rec).Error; err != nil {
			if isUniqueViolation(err) {
				return ErrConflict
			}
			return err
		}
		r.Version = 1
		return nil
	}

	res := db.WithContext(ctx).
		Model(&domain.RateLimitRecord{}).
		Where("identity = ? AND version = ?", r.Identity, r.Version).
		Select("timestamps", "version", "updated_at").
		Updates(&domain.RateLimitRecord{Timestamps: r.Timestamps, Version: r.Version + 1, UpdatedAt: now})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrConflict
	}
	r.Version++
	return nil
}
