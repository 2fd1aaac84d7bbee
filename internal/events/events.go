// Package events publishes fire-and-forget domain notifications. The core
// never waits on delivery and never fails because a sink is unavailable;
// sinks log their own errors.
package events

import (
	"context"
	"time"

	"github.com/tbourn/go-product-voting/internal/domain"
)

// Topics emitted by the voting engine.
const (
	TopicProductCreated     = "product_created"
	TopicVoteCast           = "vote_cast"
	TopicProductDeactivated = "product_deactivated"
	TopicRankingsReset      = "rankings_reset"
)

// Sink receives (topic, payload) pairs. Implementations must not block the
// caller for long and must not panic.
type Sink interface {
	Publish(ctx context.Context, topic string, payload any)
}

// ProductCreated is published after a product is stored.
type ProductCreated struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	Creator   domain.Identity `json:"creator"`
	Timestamp time.Time       `json:"timestamp"`
}

// VoteCast is published after a vote is committed.
type VoteCast struct {
	ProductID    string            `json:"product_id"`
	Voter        domain.Identity   `json:"voter"`
	VoteType     domain.VoteType   `json:"vote_type"`
	Action       domain.VoteAction `json:"action"`
	PreviousVote *domain.VoteType  `json:"previous_vote,omitempty"`
	Timestamp    time.Time         `json:"timestamp"`
}

// ProductDeactivated is published after an admin deactivates a product.
type ProductDeactivated struct {
	ProductID string          `json:"product_id"`
	Admin     domain.Identity `json:"admin"`
	Timestamp time.Time       `json:"timestamp"`
}

// RankingsReset is published after the ranking table is cleared.
type RankingsReset struct {
	Admin     domain.Identity `json:"admin"`
	Removed   int64           `json:"removed"`
	Timestamp time.Time       `json:"timestamp"`
}

// Nop discards every event.
type Nop struct{}

// Publish implements Sink.
func (Nop) Publish(context.Context, string, any) {}

// Multi fans an event out to every sink in order.
type Multi []Sink

// Publish implements Sink.
func (m Multi) Publish(ctx context.Context, topic string, payload any) {
	for _, s := range m {
		if s != nil {
			s.Publish(ctx, topic, payload)
		}
	}
}
