// Package services – AdminService
//
// AdminService owns the singleton policy record: the admin identity, the
// per-creator product quota, the voting period and the reversal window. The
// record is written once by Init and only read afterwards.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-product-voting/internal/auth"
	"github.com/tbourn/go-product-voting/internal/domain"
	"github.com/tbourn/go-product-voting/internal/repo"
)

// AdminService creates and serves the admin policy.
type AdminService struct {
	DB    *gorm.DB
	Auth  auth.Authorizer
	Clock clockwork.Clock
}

// NewAdminService constructs an AdminService.
func NewAdminService(db *gorm.DB, a auth.Authorizer, clock clockwork.Clock) *AdminService {
	return &AdminService{DB: db, Auth: a, Clock: clock}
}

// Init stores the policy. A blank admin is rejected with ErrInvalidAdmin
// before authorization; otherwise the caller must be admin. A second call
// always fails with ErrAlreadyInitialized.
func (s *AdminService) Init(ctx context.Context, admin domain.Identity, maxProductsPerUser, votingPeriodDays, reversalWindowHours uint32) (cfg domain.AdminConfig, err error) {
	ctx, span := startSpan(ctx, "AdminService", "Init",
		trace.WithAttributes(attribute.String("admin", string(admin))))
	defer func() { endSpan(span, err) }()

	if strings.TrimSpace(string(admin)) == "" {
		return domain.AdminConfig{}, ErrInvalidAdmin
	}
	if err := requireCaller(ctx, s.Auth, admin); err != nil {
		return domain.AdminConfig{}, err
	}

	cfg = domain.AdminConfig{
		Admin:               admin,
		MaxProductsPerUser:  maxProductsPerUser,
		VotingPeriodDays:    votingPeriodDays,
		ReversalWindowHours: reversalWindowHours,
		CreatedAt:           nowFrom(s.Clock),
	}
	if err := repo.CreateAdminConfig(ctx, s.DB, &cfg); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return domain.AdminConfig{}, ErrAlreadyInitialized
		}
		return domain.AdminConfig{}, fmt.Errorf("store admin config: %w", err)
	}
	return cfg, nil
}

// Config returns a copy of the stored policy or ErrNotInitialized.
func (s *AdminService) Config(ctx context.Context) (cfg domain.AdminConfig, err error) {
	ctx, span := startSpan(ctx, "AdminService", "Config")
	defer func() { endSpan(span, err) }()
	return loadConfig(ctx, s.DB)
}

// RequireAdmin authorizes caller and checks that caller is the configured
// admin. It runs against db so it can take part in a caller's transaction.
func (s *AdminService) RequireAdmin(ctx context.Context, db *gorm.DB, caller domain.Identity) (domain.AdminConfig, error) {
	if err := requireCaller(ctx, s.Auth, caller); err != nil {
		return domain.AdminConfig{}, err
	}
	cfg, err := loadConfig(ctx, db)
	if err != nil {
		return domain.AdminConfig{}, err
	}
	if cfg.Admin != caller {
		return domain.AdminConfig{}, ErrAdminOnly
	}
	return cfg, nil
}

func loadConfig(ctx context.Context, db *gorm.DB) (domain.AdminConfig, error) {
	c, err := repo.GetAdminConfig(ctx, db)
	if errors.Is(err, repo.ErrNotFound) {
		return domain.AdminConfig{}, ErrNotInitialized
	}
	if err != nil {
		return domain.AdminConfig{}, fmt.Errorf("load admin config: %w", err)
	}
	return *c, nil
}
