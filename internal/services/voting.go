// Package services – Voting
//
// Voting is the entry point for casting a vote. It authorizes the voter,
// serializes work per voter and per product, and runs the limiter check, the
// ledger write, the quota charge and the ranking refresh in one database
// transaction. A rejection at any step rolls everything back, so a refused
// vote never consumes quota and never touches product, history or ranking
// state.
package services

import (
	"context"
	"fmt"

	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-product-voting/internal/auth"
	"github.com/tbourn/go-product-voting/internal/domain"
	"github.com/tbourn/go-product-voting/internal/events"
)

// Voting orchestrates vote casting across the limiter, ledger and ranking
// engine.
type Voting struct {
	DB       *gorm.DB
	Auth     auth.Authorizer
	Limiter  *VoteLimiter
	Votes    *VoteService
	Rankings *RankingService
	Events   events.Sink
	Clock    clockwork.Clock

	// SingleWriter serializes every cast behind one lock. Set it for
	// embedded databases that allow a single writer at a time.
	SingleWriter bool

	locks keyLock
}

// NewVoting wires a Voting orchestrator.
func NewVoting(db *gorm.DB, a auth.Authorizer, limiter *VoteLimiter, votes *VoteService, rankings *RankingService, sink events.Sink, clock clockwork.Clock) *Voting {
	return &Voting{
		DB:       db,
		Auth:     a,
		Limiter:  limiter,
		Votes:    votes,
		Rankings: rankings,
		Events:   sink,
		Clock:    clock,
	}
}

// CastVote records voteType from voter on productID and refreshes the
// product's score. It returns the appended history entry.
func (v *Voting) CastVote(ctx context.Context, productID string, voteType domain.VoteType, voter domain.Identity) (entry *domain.VoteHistoryEntry, err error) {
	ctx, span := startSpan(ctx, "Voting", "CastVote",
		trace.WithAttributes(
			attribute.String("product.id", productID),
			attribute.String("voter", string(voter)),
			attribute.String("vote.type", voteType.String()),
		),
	)
	defer func() {
		if err != nil {
			observeRejection(err)
		}
		endSpan(span, err)
	}()

	if err := requireCaller(ctx, v.Auth, voter); err != nil {
		return nil, err
	}

	keys := []string{"voter:" + string(voter), "product:" + productID}
	if v.SingleWriter {
		keys = []string{"db"}
	}
	unlock := v.locks.Lock(keys...)
	defer unlock()

	err = v.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := v.Limiter.Check(ctx, tx, voter); err != nil {
			return err
		}
		e, err := v.Votes.Cast(ctx, tx, productID, voteType, voter)
		if err != nil {
			return err
		}
		if err := v.Limiter.Record(ctx, tx, voter); err != nil {
			return err
		}
		if err := v.Rankings.Update(ctx, tx, productID); err != nil {
			return err
		}
		entry = e
		return nil
	})
	if err != nil {
		if _, ok := CodeOf(err); ok {
			return nil, err
		}
		return nil, fmt.Errorf("cast vote: %w", err)
	}

	votesCast.WithLabelValues(entry.Action.String()).Inc()
	v.Rankings.InvalidateTrending(ctx)
	sinkOrNop(v.Events).Publish(ctx, events.TopicVoteCast, events.VoteCast{
		ProductID:    productID,
		Voter:        voter,
		VoteType:     entry.VoteType,
		Action:       entry.Action,
		PreviousVote: entry.PreviousVote,
		Timestamp:    entry.Timestamp,
	})
	return entry, nil
}

// RemainingVotes reports how many more votes voter may cast inside the
// current rate window.
func (v *Voting) RemainingVotes(ctx context.Context, voter domain.Identity) (int, error) {
	return v.Limiter.Remaining(ctx, v.DB.WithContext(ctx), voter)
}
