package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-product-voting/internal/auth"
	"github.com/tbourn/go-product-voting/internal/domain"
	"github.com/tbourn/go-product-voting/internal/repo"
)

var epoch = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

type published struct {
	topic   string
	payload any
}

type recordingSink struct {
	mu     sync.Mutex
	events []published
}

func (r *recordingSink) Publish(_ context.Context, topic string, payload any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, published{topic, payload})
}

func (r *recordingSink) topics() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.topic
	}
	return out
}

type memTrendingCache struct {
	mu          sync.Mutex
	gen         uint64
	lists       map[uint64][]string
	sets        int
	invalidates int
}

func (c *memTrendingCache) Generation(context.Context) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen, nil
}

func (c *memTrendingCache) Get(context.Context) ([]string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids, ok := c.lists[c.gen]
	return ids, ok, nil
}

func (c *memTrendingCache) Set(_ context.Context, gen uint64, ids []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lists == nil {
		c.lists = make(map[uint64][]string)
	}
	c.lists[gen] = ids
	c.sets++
	return nil
}

func (c *memTrendingCache) Invalidate(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.invalidates++
	return nil
}

// cached reports whether a list is served for the current generation.
func (c *memTrendingCache) cached() bool {
	_, ok, _ := c.Get(context.Background())
	return ok
}

type fixture struct {
	db    *gorm.DB
	clock *clockwork.FakeClock
	sink  *recordingSink
	cache *memTrendingCache

	admin    *AdminService
	products *ProductService
	accounts *AccountRegistry
	limiter  *VoteLimiter
	votes    *VoteService
	rankings *RankingService
	voting   *Voting
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// One connection: transactions serialize on the pool.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, repo.AutoMigrate(db))
	return db
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := newTestDB(t)
	clock := clockwork.NewFakeClockAt(epoch)
	sink := &recordingSink{}
	cache := &memTrendingCache{}
	authz := auth.ContextAuthorizer{}

	admin := NewAdminService(db, authz, clock)
	accounts := NewAccountRegistry(db, authz, clock)
	limiter := NewVoteLimiter(accounts, clock)
	votes := NewVoteService(db, clock)
	rankings := NewRankingService(db, admin, sink, clock, cache)

	return &fixture{
		db:       db,
		clock:    clock,
		sink:     sink,
		cache:    cache,
		admin:    admin,
		products: NewProductService(db, authz, admin, sink, clock),
		accounts: accounts,
		limiter:  limiter,
		votes:    votes,
		rankings: rankings,
		voting:   NewVoting(db, authz, limiter, votes, rankings, sink, clock),
	}
}

// as returns a context authenticated as id.
func as(id domain.Identity) context.Context {
	return auth.WithCaller(context.Background(), id)
}

// initPolicy initializes the admin config with admin "root".
func (f *fixture) initPolicy(t *testing.T, maxProducts, votingDays, reversalHours uint32) {
	t.Helper()
	_, err := f.admin.Init(as("root"), "root", maxProducts, votingDays, reversalHours)
	require.NoError(t, err)
}

// matureAccount registers id as first seen eight days ago.
func (f *fixture) matureAccount(t *testing.T, id domain.Identity) {
	t.Helper()
	_, err := repo.EnsureAccount(context.Background(), f.db, id, f.clock.Now().Add(-8*24*time.Hour))
	require.NoError(t, err)
}

func (f *fixture) createProduct(t *testing.T, id string, creator domain.Identity) {
	t.Helper()
	_, err := f.products.Create(as(creator), id, "Product "+id, creator)
	require.NoError(t, err)
}

// snapshot captures every table the voting path writes to.
type snapshot struct {
	Products   []domain.Product
	Votes      []domain.Vote
	History    []domain.VoteHistoryEntry
	Rankings   []domain.Ranking
	RateLimits []domain.RateLimitRecord
	Counts     []domain.CreatorProductCount
	Admin      []domain.AdminConfig
}

func (f *fixture) snapshot(t *testing.T) snapshot {
	t.Helper()
	var s snapshot
	require.NoError(t, f.db.Order("id").Find(&s.Products).Error)
	require.NoError(t, f.db.Order("id").Find(&s.Votes).Error)
	require.NoError(t, f.db.Order("seq").Find(&s.History).Error)
	require.NoError(t, f.db.Order("seq").Find(&s.Rankings).Error)
	require.NoError(t, f.db.Order("identity").Find(&s.RateLimits).Error)
	require.NoError(t, f.db.Order("creator").Find(&s.Counts).Error)
	require.NoError(t, f.db.Order("id").Find(&s.Admin).Error)
	return s
}
