package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/tbourn/go-product-voting/internal/domain"
)

const adminConfigID = 1

// GetAdminConfig loads the singleton policy row or returns ErrNotFound.
func GetAdminConfig(ctx context.Context, db *gorm.DB) (*domain.AdminConfig, error) {
	var c domain.AdminConfig
	if err := db.WithContext(ctx).First(&c, "id = ?", adminConfigID).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// CreateAdminConfig inserts the singleton policy row. A second insert fails
// with ErrDuplicate because the primary key is fixed.
func CreateAdminConfig(ctx context.Context, db *gorm.DB, c *domain.AdminConfig) error {
	c.ID = adminConfigID
	if err := db.WithContext(ctx).Create(c).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}
