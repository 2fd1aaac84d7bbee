// Package services – RankingService
//
// RankingService derives a bounded, signed trending score per product and
// serves the ranked listing. Scores are computed from a bounded scan of the
// product's live votes with a time decay and a recent-activity bonus; all
// arithmetic saturates and the result is clamped to [MinScore, MaxScore].
package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"

	"github.com/tbourn/go-product-voting/internal/domain"
	"github.com/tbourn/go-product-voting/internal/events"
	"github.com/tbourn/go-product-voting/internal/repo"
)

const (
	MaxScore int32 = 1_000_000
	MinScore int32 = -1_000_000

	DefaultTrendingWindow  = 48 * time.Hour
	DefaultMaxTrending     = 100
	DefaultMaxVotesScanned = 10_000
)

// TrendingCache stores the computed trending list between ranking changes.
// Invalidate starts a new generation; Set only lands for readers when gen
// is still the current generation, so a list computed before a vote
// committed is never served after it.
type TrendingCache interface {
	Generation(ctx context.Context) (uint64, error)
	Get(ctx context.Context) ([]string, bool, error)
	Set(ctx context.Context, gen uint64, ids []string) error
	Invalidate(ctx context.Context) error
}

// RankingStats summarizes the ranking table. Count, Min and Max are zero
// when the table is empty. Products counts every registered product, ranked
// or not, so Count/Products is the share of the catalog with a score.
type RankingStats struct {
	Count    int64 `json:"count"`
	Min      int32 `json:"min_score"`
	Max      int32 `json:"max_score"`
	Products int64 `json:"products"`
}

// ScoredProduct pairs a product id with its stored score.
type ScoredProduct struct {
	ProductID string `json:"product_id"`
	Score     int32  `json:"score"`
}

// RankingService maintains the ranking table.
type RankingService struct {
	DB     *gorm.DB
	Admin  *AdminService
	Events events.Sink
	Clock  clockwork.Clock
	Cache  TrendingCache

	TrendingWindow  time.Duration
	MaxTrending     int
	MaxVotesScanned int

	group singleflight.Group
}

// NewRankingService constructs a RankingService with default bounds.
func NewRankingService(db *gorm.DB, admin *AdminService, sink events.Sink, clock clockwork.Clock, cache TrendingCache) *RankingService {
	return &RankingService{
		DB:              db,
		Admin:           admin,
		Events:          sink,
		Clock:           clock,
		Cache:           cache,
		TrendingWindow:  DefaultTrendingWindow,
		MaxTrending:     DefaultMaxTrending,
		MaxVotesScanned: DefaultMaxVotesScanned,
	}
}

// Update recomputes and stores the score of productID through db. A missing
// product is a silent no-op.
func (s *RankingService) Update(ctx context.Context, db *gorm.DB, productID string) error {
	start := time.Now()
	defer func() { rankingRecompute.Observe(time.Since(start).Seconds()) }()

	p, err := repo.GetProduct(ctx, db, productID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load product: %w", err)
	}
	votes, err := repo.ScanVotes(ctx, db, productID, s.MaxVotesScanned)
	if err != nil {
		return fmt.Errorf("scan votes: %w", err)
	}

	now := nowFrom(s.Clock)
	score := CalculateScore(p.CreatedAt, votes, now, s.TrendingWindow)
	if err := repo.UpsertRanking(ctx, db, productID, score, now); err != nil {
		return fmt.Errorf("store ranking: %w", err)
	}
	return nil
}

// Score returns the stored score of productID, or 0 if none was computed.
func (s *RankingService) Score(ctx context.Context, productID string) (score int32, err error) {
	ctx, span := startSpan(ctx, "RankingService", "Score",
		trace.WithAttributes(attribute.String("product.id", productID)))
	defer func() { endSpan(span, err) }()

	r, err := repo.GetRanking(ctx, s.DB, productID)
	if errors.Is(err, repo.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("load ranking: %w", err)
	}
	return r.Score, nil
}

// Trending returns up to MaxTrending product ids ordered by descending
// score. Only the first MaxTrending ranking rows (in table insertion order)
// are considered. Equal scores keep that order.
func (s *RankingService) Trending(ctx context.Context) (ids []string, err error) {
	ctx, span := startSpan(ctx, "RankingService", "Trending")
	defer func() { endSpan(span, err) }()

	var (
		gen    uint64
		cached = s.Cache != nil
	)
	if cached {
		ids, ok, cerr := s.Cache.Get(ctx)
		if cerr != nil {
			log.Warn().Err(cerr).Msg("trending cache read failed")
		} else if ok {
			return ids, nil
		}
		if gen, cerr = s.Cache.Generation(ctx); cerr != nil {
			log.Warn().Err(cerr).Msg("trending cache generation read failed")
			cached = false
		}
	}

	// Callers share one computation per generation. It runs detached from
	// the first caller so a cancelled request does not fail the others.
	shared := context.WithoutCancel(ctx)
	v, err, _ := s.group.Do("trending:"+strconv.FormatUint(gen, 10), func() (any, error) {
		scored, err := s.TrendingScores(shared)
		if err != nil {
			return nil, err
		}
		out := make([]string, len(scored))
		for i, sp := range scored {
			out[i] = sp.ProductID
		}
		if cached {
			if cerr := s.Cache.Set(shared, gen, out); cerr != nil {
				log.Warn().Err(cerr).Msg("trending cache write failed")
			}
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]string), nil
}

// TrendingScores is Trending with the scores attached.
func (s *RankingService) TrendingScores(ctx context.Context) ([]ScoredProduct, error) {
	rows, err := repo.ListRankings(ctx, s.DB, s.maxTrending())
	if err != nil {
		return nil, fmt.Errorf("list rankings: %w", err)
	}
	scored := make([]ScoredProduct, len(rows))
	for i, r := range rows {
		scored[i] = ScoredProduct{ProductID: r.ProductID, Score: r.Score}
	}
	sortByScoreDesc(scored)
	return scored, nil
}

// Reset clears the ranking table. Only the configured admin may call it.
func (s *RankingService) Reset(ctx context.Context, caller domain.Identity) (err error) {
	ctx, span := startSpan(ctx, "RankingService", "Reset")
	defer func() { endSpan(span, err) }()

	if _, err := s.Admin.RequireAdmin(ctx, s.DB, caller); err != nil {
		return err
	}

	var removed int64
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		n, _, _, err := repo.RankingStats(ctx, tx)
		if err != nil {
			return fmt.Errorf("count rankings: %w", err)
		}
		removed = n
		if err := repo.ClearRankings(ctx, tx); err != nil {
			return fmt.Errorf("clear rankings: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.InvalidateTrending(ctx)
	sinkOrNop(s.Events).Publish(ctx, events.TopicRankingsReset, events.RankingsReset{
		Admin:     caller,
		Removed:   removed,
		Timestamp: nowFrom(s.Clock),
	})
	return nil
}

// Stats returns count, minimum and maximum over stored scores.
func (s *RankingService) Stats(ctx context.Context) (st RankingStats, err error) {
	ctx, span := startSpan(ctx, "RankingService", "Stats")
	defer func() { endSpan(span, err) }()

	n, lo, hi, err := repo.RankingStats(ctx, s.DB)
	if err != nil {
		return RankingStats{}, fmt.Errorf("ranking stats: %w", err)
	}
	products, err := repo.CountProducts(ctx, s.DB)
	if err != nil {
		return RankingStats{}, fmt.Errorf("count products: %w", err)
	}
	return RankingStats{Count: n, Min: lo, Max: hi, Products: products}, nil
}

// InvalidateTrending moves the trending cache to a new generation so lists
// computed before the change are no longer served. Failures are logged.
func (s *RankingService) InvalidateTrending(ctx context.Context) {
	if s.Cache == nil {
		return
	}
	if err := s.Cache.Invalidate(ctx); err != nil {
		log.Warn().Err(err).Msg("trending cache invalidation failed")
	}
}

func (s *RankingService) maxTrending() int {
	if s.MaxTrending <= 0 {
		return DefaultMaxTrending
	}
	return s.MaxTrending
}

// CalculateScore computes the trending score of a product created at
// createdAt from its votes, evaluated at now:
//
//	ageHours = max(0, now-createdAt) in whole hours
//	decay    = 1 + ageHours/24
//	base     = upvotes - downvotes
//	recent   = votes with 0 <= now-timestamp <= window
//	score    = clamp(base/decay + recent/2, MinScore, MaxScore)
func CalculateScore(createdAt time.Time, votes []domain.Vote, now time.Time, window time.Duration) int32 {
	var ageHours int64
	if now.After(createdAt) {
		ageHours = int64(now.Sub(createdAt) / time.Hour)
	}

	var base, recent int32
	for _, v := range votes {
		base = satAdd32(base, v.VoteType.Delta())
		if !now.Before(v.Timestamp) && now.Sub(v.Timestamp) <= window {
			recent = satAdd32(recent, 1)
		}
	}

	decay := int32(1)
	if days := ageHours / 24; days > 0 {
		if days >= math.MaxInt32-1 {
			decay = math.MaxInt32
		} else {
			decay = int32(days) + 1
		}
	}

	score := satAdd32(base/decay, recent/2)
	return clamp32(score, MinScore, MaxScore)
}

// sortByScoreDesc is a stable insertion sort by descending score. It is
// linear on input that is already ordered, which is the common case after a
// single score change.
func sortByScoreDesc(a []ScoredProduct) {
	for i := 1; i < len(a); i++ {
		key := a[i]
		j := i
		for j > 0 && a[j-1].Score < key.Score {
			a[j] = a[j-1]
			j--
		}
		a[j] = key
	}
}

func satAdd32(a, b int32) int32 {
	s := int64(a) + int64(b)
	if s > math.MaxInt32 {
		return math.MaxInt32
	}
	if s < math.MinInt32 {
		return math.MinInt32
	}
	return int32(s)
}

func clamp32(v, lo, hi int32) int32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
