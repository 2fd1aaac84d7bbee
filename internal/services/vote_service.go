// Package services – VoteService
//
// VoteService is the per-(product, voter) state machine. A voter moves from
// no vote to Voted(type), and may switch to the other type while the product
// is active, its voting period is open, and the reversal window of the
// existing vote has not elapsed. Every transition appends one immutable
// history entry.
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-product-voting/internal/domain"
	"github.com/tbourn/go-product-voting/internal/repo"
)

// VoteService records votes and serves the audit trail.
type VoteService struct {
	DB    *gorm.DB
	Clock clockwork.Clock
}

// NewVoteService constructs a VoteService.
func NewVoteService(db *gorm.DB, clock clockwork.Clock) *VoteService {
	return &VoteService{DB: db, Clock: clock}
}

// Cast applies voteType from voter to productID through db, which should be
// the caller's transaction. Authorization is the caller's job. It returns
// the appended history entry.
func (s *VoteService) Cast(ctx context.Context, db *gorm.DB, productID string, voteType domain.VoteType, voter domain.Identity) (*domain.VoteHistoryEntry, error) {
	if !voteType.Valid() {
		return nil, invalidInput("vote type must be upvote or downvote")
	}

	cfg, err := loadConfig(ctx, db)
	if err != nil {
		return nil, err
	}

	p, err := repo.GetProduct(ctx, db, productID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load product: %w", err)
	}

	now := nowFrom(s.Clock)
	if !p.IsActive || now.After(p.CreatedAt.Add(cfg.VotingPeriod())) {
		return nil, ErrVotingPeriodEnded
	}

	entry := &domain.VoteHistoryEntry{
		ProductID: productID,
		Voter:     voter,
		VoteType:  voteType,
		Timestamp: now,
		Action:    domain.NewVote,
	}

	vote, err := repo.GetVote(ctx, db, productID, voter)
	switch {
	case errors.Is(err, repo.ErrNotFound):
		vote = &domain.Vote{ProductID: productID, Voter: voter}
	case err != nil:
		return nil, fmt.Errorf("load vote: %w", err)
	default:
		if now.After(vote.Timestamp.Add(cfg.ReversalWindow())) {
			return nil, ErrReversalWindowExpired
		}
		if vote.VoteType == voteType {
			return nil, ErrAlreadyVoted
		}
		prev := vote.VoteType
		entry.Action = domain.ChangeVote
		entry.PreviousVote = &prev
	}

	// Claim the product row so concurrent writers on other nodes conflict.
	if err := repo.BumpProductVersion(ctx, db, productID, p.Version); err != nil {
		return nil, fmt.Errorf("claim product: %w", err)
	}

	vote.VoteType = voteType
	vote.Timestamp = now
	vote.LastModified = now
	if err := repo.SaveVote(ctx, db, vote); err != nil {
		return nil, fmt.Errorf("store vote: %w", err)
	}
	if err := repo.AppendHistory(ctx, db, entry); err != nil {
		return nil, fmt.Errorf("append history: %w", err)
	}
	return entry, nil
}

// History returns a page of the audit trail of productID in append order,
// with the total number of entries. pageSize <= 0 returns the whole trail.
func (s *VoteService) History(ctx context.Context, productID string, page, pageSize int) (items []domain.VoteHistoryEntry, total int64, err error) {
	ctx, span := startSpan(ctx, "VoteService", "History",
		trace.WithAttributes(
			attribute.String("product.id", productID),
			attribute.Int("page", page),
			attribute.Int("page_size", pageSize),
		),
	)
	defer func() { endSpan(span, err) }()

	if _, err := repo.GetProduct(ctx, s.DB, productID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, 0, ErrProductNotFound
		}
		return nil, 0, fmt.Errorf("load product: %w", err)
	}

	total, _, err = repo.HistoryStats(ctx, s.DB, productID)
	if err != nil {
		return nil, 0, fmt.Errorf("count history: %w", err)
	}

	offset := 0
	if pageSize > 0 {
		if page < 1 {
			page = 1
		}
		offset = (page - 1) * pageSize
	}
	items, err = repo.ListHistory(ctx, s.DB, productID, offset, pageSize)
	if err != nil {
		return nil, 0, fmt.Errorf("list history: %w", err)
	}
	return items, total, nil
}

// HistoryVersion returns a marker that changes exactly when productID's
// audit trail grows. The HTTP layer turns it into an ETag.
func (s *VoteService) HistoryVersion(ctx context.Context, productID string) (count int64, lastSeq uint64, err error) {
	return repo.HistoryStats(ctx, s.DB, productID)
}
