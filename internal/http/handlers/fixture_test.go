package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	sqlite "github.com/glebarez/sqlite"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-product-voting/internal/auth"
	"github.com/tbourn/go-product-voting/internal/events"
	"github.com/tbourn/go-product-voting/internal/http/middleware"
	"github.com/tbourn/go-product-voting/internal/repo"
	"github.com/tbourn/go-product-voting/internal/services"
)

var epoch = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

type apiFixture struct {
	t     *testing.T
	db    *gorm.DB
	clock *clockwork.FakeClock
	r     *gin.Engine
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:handlers_%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, repo.AutoMigrate(db))
	return db
}

// newAPI wires the real services over an in-memory database behind the same
// middleware the router installs for caller identity and idempotency.
func newAPI(t *testing.T) *apiFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := newTestDB(t)
	clock := clockwork.NewFakeClockAt(epoch)
	authz := auth.ContextAuthorizer{}
	sink := events.Nop{}

	admin := services.NewAdminService(db, authz, clock)
	accounts := services.NewAccountRegistry(db, authz, clock)
	limiter := services.NewVoteLimiter(accounts, clock)
	votes := services.NewVoteService(db, clock)
	rankings := services.NewRankingService(db, admin, sink, clock, nil)
	receipts := services.NewReceipts(db, clock)

	h := New(Services{
		Admin:    admin,
		Accounts: accounts,
		Products: services.NewProductService(db, authz, admin, sink, clock),
		Voting:   services.NewVoting(db, authz, limiter, votes, rankings, sink, clock),
		History:  votes,
		Rankings: rankings,
		Receipts: receipts,
	})

	r := gin.New()
	r.Use(middleware.RequestID(), middleware.Authenticate(nil))
	r.Use(middleware.IdempotencyValidator(middleware.IdempotencyOptions{
		Applies: func(c *gin.Context) bool {
			return c.Request.Method == http.MethodPost && c.FullPath() == "/products/:id/votes"
		},
		Fingerprint: VoteFingerprint,
	}, receipts.Lookup))
	r.POST("/admin/init", h.InitAdmin)
	r.GET("/admin/config", h.GetAdminConfig)
	r.POST("/accounts", h.RegisterAccount)
	r.POST("/products", h.CreateProduct)
	r.GET("/products/:id", h.GetProduct)
	r.POST("/products/:id/deactivate", h.DeactivateProduct)
	r.POST("/products/:id/votes", h.CastVote)
	r.GET("/products/:id/votes/history", h.VoteHistory)
	r.GET("/products/:id/score", h.ProductScore)
	r.GET("/rankings/trending", h.Trending)
	r.GET("/rankings/stats", h.RankingStats)
	r.DELETE("/rankings", h.ResetRankings)

	return &apiFixture{t: t, db: db, clock: clock, r: r}
}

// do issues a request as user ("" for anonymous) with an optional JSON body
// and extra headers given as name/value pairs.
func (f *apiFixture) do(method, path, user string, body any, headers ...string) *httptest.ResponseRecorder {
	f.t.Helper()
	var rd *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(f.t, err)
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if user != "" {
		req.Header.Set(middleware.HeaderUserID, user)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	f.r.ServeHTTP(w, req)
	return w
}

func (f *apiFixture) initPolicy(maxProducts, votingDays, reversalHours uint32) {
	f.t.Helper()
	w := f.do(http.MethodPost, "/admin/init", "root", InitAdminRequest{
		Admin:               "root",
		MaxProductsPerUser:  maxProducts,
		VotingPeriodDays:    votingDays,
		ReversalWindowHours: reversalHours,
	})
	require.Equal(f.t, http.StatusCreated, w.Code, w.Body.String())
}

// matureVoters registers ids and advances the clock past the minimum
// account age.
func (f *apiFixture) matureVoters(ids ...string) {
	f.t.Helper()
	for _, id := range ids {
		w := f.do(http.MethodPost, "/accounts", id, nil)
		require.Equal(f.t, http.StatusOK, w.Code, w.Body.String())
	}
	f.clock.Advance(services.DefaultMinAccountAge + time.Hour)
}

func (f *apiFixture) createProduct(id, creator string) {
	f.t.Helper()
	w := f.do(http.MethodPost, "/products", creator, CreateProductRequest{ID: id, Name: "Product " + id})
	require.Equal(f.t, http.StatusCreated, w.Code, w.Body.String())
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var er ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &er), w.Body.String())
	return er
}
