package domain

import "time"

// Idempotency remembers that a vote submission identified by
// (user_id, product_id, key) already completed, so a retried request can be
// answered without casting the vote a second time. Fingerprint identifies the
// request body that completed, so a key reused with a different body is
// detected instead of replayed.
type Idempotency struct {
	ID          string    `gorm:"type:TEXT NOT NULL;primaryKey"`
	UserID      string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_user_product_key,priority:1"`
	ProductID   string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_user_product_key,priority:2"`
	Key         string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_user_product_key,priority:3"`
	Fingerprint string    `gorm:"type:TEXT NOT NULL;default:''"`
	Status      int       `gorm:"type:INTEGER NOT NULL"`
	CreatedAt   time.Time `gorm:"type:DATETIME NOT NULL;autoCreateTime"`
	ExpiresAt   time.Time `gorm:"type:DATETIME NOT NULL;index"`
}

// TableName implements the GORM tabler interface.
func (Idempotency) TableName() string { return "idempotency" }
