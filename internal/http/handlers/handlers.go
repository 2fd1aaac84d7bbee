// Package handlers provides HTTP handler implementations for the public API.
//
// Handlers are transport-thin: they bind and validate input, take the caller
// identity from the request context, delegate to the voting services, and
// translate service errors into the JSON error envelope.
package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-product-voting/internal/auth"
	"github.com/tbourn/go-product-voting/internal/domain"
	"github.com/tbourn/go-product-voting/internal/services"
)

//
// Service contracts (context-aware)
//

// AdminService manages the singleton admin policy.
type AdminService interface {
	Init(ctx context.Context, admin domain.Identity, maxProductsPerUser, votingPeriodDays, reversalWindowHours uint32) (domain.AdminConfig, error)
	Config(ctx context.Context) (domain.AdminConfig, error)
}

// AccountService registers callers with the account-age oracle.
type AccountService interface {
	Register(ctx context.Context, id domain.Identity) (*domain.Account, error)
}

// ProductService manages the product catalog.
type ProductService interface {
	Create(ctx context.Context, id, name string, creator domain.Identity) (*domain.Product, error)
	Deactivate(ctx context.Context, caller domain.Identity, id string) error
	Get(ctx context.Context, id string) (*domain.Product, error)
}

// VotingService casts votes atomically across limiter, ledger and rankings.
type VotingService interface {
	CastVote(ctx context.Context, productID string, voteType domain.VoteType, voter domain.Identity) (*domain.VoteHistoryEntry, error)
	RemainingVotes(ctx context.Context, voter domain.Identity) (int, error)
}

// HistoryService reads the per-product audit trail.
type HistoryService interface {
	History(ctx context.Context, productID string, page, pageSize int) ([]domain.VoteHistoryEntry, int64, error)
	HistoryVersion(ctx context.Context, productID string) (count int64, lastSeq uint64, err error)
}

// RankingService reads and resets the ranking table.
type RankingService interface {
	Score(ctx context.Context, productID string) (int32, error)
	Trending(ctx context.Context) ([]string, error)
	TrendingScores(ctx context.Context) ([]services.ScoredProduct, error)
	Stats(ctx context.Context) (services.RankingStats, error)
	Reset(ctx context.Context, caller domain.Identity) error
}

// ReceiptStore remembers completed vote submissions by idempotency key,
// together with the fingerprint of the request that completed them.
type ReceiptStore interface {
	Remember(ctx context.Context, userID, productID, key, fingerprint string, status int) error
}

//
// Handler wiring
//

// Services bundles the dependencies of Handlers. Receipts may be nil, in
// which case Idempotency-Key headers are validated but not remembered.
type Services struct {
	Admin    AdminService
	Accounts AccountService
	Products ProductService
	Voting   VotingService
	History  HistoryService
	Rankings RankingService
	Receipts ReceiptStore
}

// Handlers groups the HTTP endpoints of the voting API.
type Handlers struct {
	svc Services
}

// New constructs Handlers bound to the given services.
func New(svc Services) *Handlers {
	return &Handlers{svc: svc}
}

// caller returns the identity attached by the authentication middleware, or
// "" for anonymous requests. Services reject "" with Unauthorized.
func caller(c *gin.Context) domain.Identity {
	id, _ := auth.CallerFrom(c.Request.Context())
	return id
}
