// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, caller
// authentication, compression, metrics, CORS, security headers, idempotency,
// and rate limiting.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
//   - Production-ready CORS and security header posture
package httpapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/tbourn/go-product-voting/docs"
	"github.com/tbourn/go-product-voting/internal/config"
	"github.com/tbourn/go-product-voting/internal/http/handlers"
	"github.com/tbourn/go-product-voting/internal/http/middleware"
)

// Deps groups what the router needs from the composition root.
type Deps struct {
	// Services backs the route handlers.
	Services handlers.Services
	// Idempotency answers whether a caller already completed a submission
	// with a given key. Nil disables replay detection.
	Idempotency middleware.IdempotencyLookup
	// Verifier validates bearer tokens. Nil trusts the X-User-ID header.
	Verifier middleware.TokenVerifier
	// Ping reports storage health for /health. Nil always reports ok.
	Ping func(ctx context.Context) error
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine. It configures observability (tracing, metrics), caller identity,
// idempotency and rate limiting, CORS and security headers, health and
// metrics endpoints, and then mounts the versioned public API under
// cfg.APIBasePath.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. Logger: structured logs with PII scrubbing
//  4. Recovery: capture panics after logger
//  5. Authenticate: resolve the caller (token or X-User-ID)
//  6. Body size limiter and gzip
//  7. Metrics
//  8. Idempotency validator on vote submission only (before the rate limiter
//     so a served replay skips it)
//  9. Rate limiter (per user/IP, separate read and write buckets)
//  10. CORS and Security headers
func RegisterRoutes(r *gin.Engine, deps Deps, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging with redaction
	r.Use(middleware.Logger(middleware.LogOptions{
		MaskHeaders: []string{
			"X-API-Key",
		},
	}))

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Caller identity
	r.Use(middleware.Authenticate(deps.Verifier))

	// 6) Global body size limit (1 MiB) and response compression
	r.Use(limitBody(1 << 20))
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))

	// 7) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 8) Idempotency validation (before rate limiting)
	if deps.Idempotency != nil {
		r.Use(middleware.IdempotencyValidator(middleware.IdempotencyOptions{
			MaxLen:      200,
			Applies:     isVoteSubmission(cfg.APIBasePath),
			Fingerprint: handlers.VoteFingerprint,
		}, deps.Idempotency))
	}

	// 9) Token-bucket rate limiter per user/IP
	rl := middleware.NewRateLimiter(middleware.RateLimitOptions{
		RPS:        cfg.RateRPS,
		Burst:      cfg.RateBurst,
		WriteRPS:   cfg.RateWriteRPS,
		WriteBurst: cfg.RateWriteBurst,
		Key:        middleware.KeyByUserOrIP(),
	})
	r.Use(rl.Handler())

	// 10) CORS posture (safe defaults: allow all if none configured)
	allowHeaders := []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.HeaderUserID, middleware.HeaderIdempotencyKey, "If-None-Match"}
	exposeHeaders := []string{"X-Request-ID", "Content-Length", "ETag", "Location", "Retry-After", middleware.HeaderIdempotencyReplayed, handlers.HeaderVotesRemaining}
	if len(cfg.CORS.AllowedOrigins) == 0 {
		// Force ACAO: * even for requests without an Origin header.
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowHeaders:     allowHeaders,
			ExposeHeaders:    exposeHeaders,
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		// Echo ACAO with the request Origin when it is in the allowlist.
		allowed := make(map[string]struct{}, len(cfg.CORS.AllowedOrigins))
		for _, o := range cfg.CORS.AllowedOrigins {
			allowed[o] = struct{}{}
		}
		r.Use(func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowHeaders:     allowHeaders,
			ExposeHeaders:    exposeHeaders,
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Security headers (HSTS only when enabled and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		EnablePolicy: true,
	}))
	// Admin and vote responses are caller specific.
	noStore := middleware.CallerScoped()

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) {
		if deps.Ping != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := deps.Ping(ctx); err != nil {
				middleware.LoggerFrom(c).Error().Err(err).Msg("health check failed")
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// API docs
	if cfg.SwaggerEnabled {
		docs.SwaggerInfo.BasePath = cfg.APIBasePath
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	h := handlers.New(deps.Services)

	// Public API
	api := groupWithPrefix(r, cfg.APIBasePath) // e.g. "/api/v1"
	{
		// Admin policy and accounts
		admin := api.Group("/admin", noStore)
		admin.POST("/init", h.InitAdmin)
		admin.GET("/config", h.GetAdminConfig)
		api.POST("/accounts", noStore, h.RegisterAccount)

		// Products
		api.POST("/products", h.CreateProduct)
		api.GET("/products/:id", h.GetProduct)
		api.POST("/products/:id/deactivate", noStore, h.DeactivateProduct)

		// Votes
		api.POST("/products/:id/votes", noStore, h.CastVote)
		api.GET("/products/:id/votes/history", h.VoteHistory)

		// Rankings
		api.GET("/products/:id/score", h.ProductScore)
		api.GET("/rankings/trending", h.Trending)
		api.GET("/rankings/stats", h.RankingStats)
		api.DELETE("/rankings", noStore, h.ResetRankings)
	}
}

// isVoteSubmission matches POST /products/:id/votes under base.
func isVoteSubmission(base string) func(*gin.Context) bool {
	route := "/products/:id/votes"
	if base != "" && base != "/" {
		route = strings.TrimRight(base, "/") + route
	}
	return func(c *gin.Context) bool {
		return c.Request.Method == http.MethodPost && c.FullPath() == route
	}
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// will cause downstream body reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
