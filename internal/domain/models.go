// Package domain defines the persistence models for the product voting
// engine: the singleton admin policy, products with their live votes and
// append-only vote history, the ranking table, and the per-identity records
// used by abuse controls. These types are mapped with GORM and shared across
// the repository and service layers.
package domain

import "time"

// Identity is an opaque account reference. Two identities are the same
// account if and only if their string forms are equal.
type Identity string

// AdminConfig is the singleton policy record created by the first successful
// admin initialization. It is never updated afterwards.
//
// Fields:
//   - ID: always 1; the primary key doubles as the "exists" marker.
//   - Admin: identity allowed to run admin-only operations.
//   - MaxProductsPerUser: per-creator product quota.
//   - VotingPeriodDays: days after product creation during which voting is open.
//   - ReversalWindowHours: hours after a vote during which it may be changed.
type AdminConfig struct {
	ID                  uint      `json:"-"                     gorm:"primaryKey;autoIncrement:false"`
	Admin               Identity  `json:"admin"                 gorm:"type:varchar(128);not null"`
	MaxProductsPerUser  uint32    `json:"max_products_per_user" gorm:"not null"`
	VotingPeriodDays    uint32    `json:"voting_period_days"    gorm:"not null"`
	ReversalWindowHours uint32    `json:"reversal_window_hours" gorm:"not null"`
	CreatedAt           time.Time `json:"created_at"`
}

// TableName returns the database table name for AdminConfig.
func (AdminConfig) TableName() string { return "admin_config" }

// VotingPeriod is the configured voting period as a duration.
func (c AdminConfig) VotingPeriod() time.Duration {
	return time.Duration(c.VotingPeriodDays) * 24 * time.Hour
}

// ReversalWindow is the configured reversal window as a duration.
func (c AdminConfig) ReversalWindow() time.Duration {
	return time.Duration(c.ReversalWindowHours) * time.Hour
}

// Product is a votable catalog entry. IsActive only ever goes from true to
// false. Version is bumped on every mutation and used for compare-and-swap
// writes so concurrent writers on the same product cannot interleave.
type Product struct {
	ID        string    `json:"id"         gorm:"type:varchar(64);primaryKey"`
	Name      string    `json:"name"       gorm:"type:varchar(255);not null"`
	Creator   Identity  `json:"creator"    gorm:"type:varchar(128);not null;index"`
	CreatedAt time.Time `json:"created_at" gorm:"not null"`
	IsActive  bool      `json:"is_active"  gorm:"not null"`
	Version   int64     `json:"-"          gorm:"not null"`

	// Votes holds the live vote of every voter, loaded on demand.
	Votes []Vote `json:"votes,omitempty" gorm:"foreignKey:ProductID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
}

// TableName returns the database table name for Product.
func (Product) TableName() string { return "products" }

// Vote is the current vote of one voter on one product. The unique index
// guarantees at most one live vote per (product, voter).
type Vote struct {
	ID           uint      `json:"-"             gorm:"primaryKey"`
	ProductID    string    `json:"product_id"    gorm:"type:varchar(64);not null;uniqueIndex:ux_votes_product_voter,priority:1"`
	Voter        Identity  `json:"voter"         gorm:"type:varchar(128);not null;uniqueIndex:ux_votes_product_voter,priority:2"`
	VoteType     VoteType  `json:"vote_type"     gorm:"not null;check:vote_type IN (1,2)"`
	Timestamp    time.Time `json:"timestamp"     gorm:"not null"`
	LastModified time.Time `json:"last_modified" gorm:"not null"`
}

// TableName returns the database table name for Vote.
func (Vote) TableName() string { return "votes" }

// VoteHistoryEntry is one immutable audit record. Rows are only ever
// inserted; Seq orders them per product.
type VoteHistoryEntry struct {
	Seq          uint64     `json:"seq"                     gorm:"primaryKey"`
	ProductID    string     `json:"product_id"              gorm:"type:varchar(64);not null;index:idx_history_product_seq,priority:1"`
	Voter        Identity   `json:"voter"                   gorm:"type:varchar(128);not null"`
	VoteType     VoteType   `json:"vote_type"               gorm:"not null"`
	Timestamp    time.Time  `json:"timestamp"               gorm:"not null"`
	Action       VoteAction `json:"action"                  gorm:"not null"`
	PreviousVote *VoteType  `json:"previous_vote,omitempty"`
}

// TableName returns the database table name for VoteHistoryEntry.
func (VoteHistoryEntry) TableName() string { return "vote_history" }

// Ranking is the stored trending score of a product. Seq records the order
// in which products first entered the table and breaks ties in listings.
type Ranking struct {
	Seq       uint64    `json:"-"          gorm:"primaryKey"`
	ProductID string    `json:"product_id" gorm:"type:varchar(64);not null;uniqueIndex"`
	Score     int32     `json:"score"      gorm:"not null"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for Ranking.
func (Ranking) TableName() string { return "rankings" }

// RateLimitRecord holds the recent vote timestamps of one identity, oldest
// first. It is pruned to the trailing rate window on every write.
type RateLimitRecord struct {
	Identity   Identity    `gorm:"type:varchar(128);primaryKey"`
	Timestamps []time.Time `gorm:"type:text;serializer:json;not null"`
	Version    int64       `gorm:"not null"`
	UpdatedAt  time.Time
}

// TableName returns the database table name for RateLimitRecord.
func (RateLimitRecord) TableName() string { return "rate_limit_records" }

// CreatorProductCount tracks how many products a creator has registered.
type CreatorProductCount struct {
	Creator Identity `gorm:"type:varchar(128);primaryKey"`
	Count   uint32   `gorm:"not null"`
}

// TableName returns the database table name for CreatorProductCount.
func (CreatorProductCount) TableName() string { return "creator_product_counts" }

// Account records when an identity was first registered with the service.
// It backs the default account-age provider.
type Account struct {
	Identity  Identity  `json:"identity"   gorm:"type:varchar(128);primaryKey"`
	FirstSeen time.Time `json:"first_seen" gorm:"not null"`
}

// TableName returns the database table name for Account.
func (Account) TableName() string { return "accounts" }
