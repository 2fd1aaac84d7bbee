// Command server runs the product voting API.
//
// @title          Product Voting API
// @version        1.0
// @description    Product registration, voting with abuse controls, and trending rankings.
// @BasePath       /api/v1
package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tbourn/go-product-voting/internal/auth"
	"github.com/tbourn/go-product-voting/internal/cache"
	"github.com/tbourn/go-product-voting/internal/config"
	"github.com/tbourn/go-product-voting/internal/events"
	httpapi "github.com/tbourn/go-product-voting/internal/http"
	"github.com/tbourn/go-product-voting/internal/http/handlers"
	"github.com/tbourn/go-product-voting/internal/http/middleware"
	"github.com/tbourn/go-product-voting/internal/observability"
	"github.com/tbourn/go-product-voting/internal/repo"
	"github.com/tbourn/go-product-voting/internal/services"
	"github.com/tbourn/go-product-voting/internal/sysutil"
)

// version is stamped at build time with -ldflags "-X main.version=...".
var version = "dev"

// receiptPurgeInterval is how often expired idempotency receipts are removed.
const receiptPurgeInterval = time.Hour

func setupLogging(cfg config.Config) {
	lvl := sysutil.ConfigureLogging(sysutil.LogOptions{
		Level:   cfg.LogLevel,
		Pretty:  cfg.LogPretty,
		Service: cfg.OTEL.ServiceName,
		Version: version,
	})
	log.Debug().Str("level", lvl.String()).Msg("logging configured")
}

func setupDB(cfg config.Config) *gorm.DB {
	dsn := cfg.DB.Path
	if cfg.DB.Driver == "postgres" {
		dsn = cfg.DB.DSN
	}
	db, err := repo.Open(cfg.DB.Driver, dsn)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.DB.Driver).Msg("open database")
	}
	if cfg.OTEL.Enabled {
		if err := repo.UseTracing(db); err != nil {
			log.Fatal().Err(err).Msg("gorm tracing plugin")
		}
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("migrate")
	}
	return db
}

func setupRedis(ctx context.Context, cfg config.Config) *goredis.Client {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	rdb, err := cache.NewRedisClient(ctx, cfg.Redis.URL)
	if err != nil {
		log.Fatal().Err(err).Msg("connect redis")
	}
	if rdb == nil {
		log.Info().Msg("redis disabled; trending cache and event channel off")
	}
	return rdb
}

// buildDeps wires the services over db and the optional Redis client.
func buildDeps(cfg config.Config, db *gorm.DB, rdb *goredis.Client, clock clockwork.Clock) (httpapi.Deps, *services.Receipts) {
	authz := auth.ContextAuthorizer{}

	sinks := events.Multi{events.NewLogSink(log.Logger)}
	var trending services.TrendingCache
	if rdb != nil {
		trending = cache.NewTrending(rdb, cfg.Redis.TrendingTTL)
		if cfg.Redis.PublishEvents {
			sinks = append(sinks, events.NewRedisSink(rdb, log.Logger))
		}
	}

	admin := services.NewAdminService(db, authz, clock)
	accounts := services.NewAccountRegistry(db, authz, clock)

	limiter := services.NewVoteLimiter(accounts, clock)
	limiter.DailyLimit = cfg.Voting.DailyLimit
	limiter.Window = cfg.Voting.RateWindow
	limiter.MinAccountAge = cfg.Voting.MinAccountAge

	rankings := services.NewRankingService(db, admin, sinks, clock, trending)
	rankings.TrendingWindow = cfg.Voting.TrendingWindow
	rankings.MaxTrending = cfg.Voting.MaxTrending
	rankings.MaxVotesScanned = cfg.Voting.MaxVotesScanned

	votes := services.NewVoteService(db, clock)
	voting := services.NewVoting(db, authz, limiter, votes, rankings, sinks, clock)
	// SQLite allows one writer at a time.
	voting.SingleWriter = cfg.DB.Driver == "sqlite"

	products := services.NewProductService(db, authz, admin, sinks, clock)
	products.MaxVotesLoaded = cfg.Voting.MaxVotesScanned

	receipts := services.NewReceipts(db, clock)
	receipts.TTL = cfg.IdempotencyTTL

	deps := httpapi.Deps{
		Services: handlers.Services{
			Admin:    admin,
			Accounts: accounts,
			Products: products,
			Voting:   voting,
			History:  votes,
			Rankings: rankings,
			Receipts: receipts,
		},
		Idempotency: receipts.Lookup,
		Ping: func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}
	if cfg.Auth.JWTSecret != "" {
		deps.Verifier = auth.NewVerifier(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer)
	} else {
		log.Warn().Msg("JWT_SECRET unset; trusting the " + middleware.HeaderUserID + " header")
	}
	return deps, receipts
}

// purgeReceipts drops expired idempotency receipts until ctx ends.
func purgeReceipts(ctx context.Context, receipts *services.Receipts, clock clockwork.Clock) {
	ticker := clock.NewTicker(receiptPurgeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			n, err := receipts.Purge(ctx)
			if err != nil {
				log.Warn().Err(err).Msg("purge idempotency receipts")
				continue
			}
			if n > 0 {
				log.Debug().Int64("purged", n).Msg("idempotency receipts purged")
			}
		}
	}
}

func main() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	setupLogging(cfg)
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("setup tracing")
	}

	clock := clockwork.NewRealClock()

	db := setupDB(cfg)
	rdb := setupRedis(ctx, cfg)

	deps, receipts := buildDeps(cfg, db, rdb, clock)
	go purgeReceipts(ctx, receipts, clock)

	r := gin.New()
	httpapi.RegisterRoutes(r, deps, cfg)

	srv := &http.Server{
		Addr:              net.JoinHostPort("", cfg.Port),
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Str("version", version).Str("db", cfg.DB.Driver).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown")
	}
	if err := shutdownOTel(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("tracing shutdown")
	}
	if rdb != nil {
		_ = rdb.Close()
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	log.Info().Msg("stopped")
}
