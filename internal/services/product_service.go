// Package services – ProductService
//
// ProductService creates and deactivates products and enforces the
// per-creator product quota. Names are normalized (NFC, trimmed, inner
// whitespace collapsed) before validation so visually identical names are
// stored identically.
package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/text/unicode/norm"
	"gorm.io/gorm"

	"github.com/tbourn/go-product-voting/internal/auth"
	"github.com/tbourn/go-product-voting/internal/domain"
	"github.com/tbourn/go-product-voting/internal/events"
	"github.com/tbourn/go-product-voting/internal/repo"
)

const (
	defaultMaxIDLen   = 64
	defaultMaxNameLen = 255
)

// ProductService manages the product catalog.
type ProductService struct {
	DB     *gorm.DB
	Auth   auth.Authorizer
	Admin  *AdminService
	Events events.Sink
	Clock  clockwork.Clock

	// MaxIDLen and MaxNameLen cap identifiers and names by rune count.
	MaxIDLen   int
	MaxNameLen int
	// MaxVotesLoaded caps the votes Get returns with a product.
	MaxVotesLoaded int

	locks keyLock
}

// NewProductService constructs a ProductService with default length limits.
func NewProductService(db *gorm.DB, a auth.Authorizer, admin *AdminService, sink events.Sink, clock clockwork.Clock) *ProductService {
	return &ProductService{
		DB:             db,
		Auth:           a,
		Admin:          admin,
		Events:         sink,
		Clock:          clock,
		MaxIDLen:       defaultMaxIDLen,
		MaxNameLen:     defaultMaxNameLen,
		MaxVotesLoaded: DefaultMaxVotesScanned,
	}
}

// Create registers a product owned by creator. Checks run in this order:
// caller authorization, input validation, duplicate id, admin config
// presence, creator quota.
func (s *ProductService) Create(ctx context.Context, id, name string, creator domain.Identity) (p *domain.Product, err error) {
	ctx, span := startSpan(ctx, "ProductService", "Create",
		trace.WithAttributes(
			attribute.String("product.id", id),
			attribute.String("creator", string(creator)),
		),
	)
	defer func() { endSpan(span, err) }()

	if err := requireCaller(ctx, s.Auth, creator); err != nil {
		return nil, err
	}

	id = strings.TrimSpace(id)
	name = normalizeName(name)
	switch {
	case id == "":
		return nil, invalidInput("product id is empty")
	case name == "":
		return nil, invalidInput("product name is empty")
	case s.MaxIDLen > 0 && utf8.RuneCountInString(id) > s.MaxIDLen:
		return nil, invalidInput("product id too long")
	case !productIDRE.MatchString(id):
		return nil, invalidInput("product id may only contain letters, digits and . _ ~ - :")
	case s.MaxNameLen > 0 && utf8.RuneCountInString(name) > s.MaxNameLen:
		return nil, invalidInput("product name too long")
	}

	unlock := s.locks.Lock("creator:" + string(creator))
	defer unlock()

	now := nowFrom(s.Clock)
	p = &domain.Product{ID: id, Name: name, Creator: creator, CreatedAt: now, IsActive: true}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := repo.GetProduct(ctx, tx, id); err == nil {
			return ErrProductExists
		} else if !errors.Is(err, repo.ErrNotFound) {
			return fmt.Errorf("load product: %w", err)
		}

		cfg, err := loadConfig(ctx, tx)
		if err != nil {
			return err
		}

		if err := repo.ClaimCreatorProductSlot(ctx, tx, creator, cfg.MaxProductsPerUser); err != nil {
			if errors.Is(err, repo.ErrLimitReached) {
				return ErrProductQuotaReached
			}
			return fmt.Errorf("claim creator quota: %w", err)
		}

		if err := repo.CreateProduct(ctx, tx, p); err != nil {
			if errors.Is(err, repo.ErrDuplicate) {
				return ErrProductExists
			}
			return fmt.Errorf("create product: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sinkOrNop(s.Events).Publish(ctx, events.TopicProductCreated, events.ProductCreated{
		ProductID: p.ID,
		Name:      p.Name,
		Creator:   p.Creator,
		Timestamp: now,
	})
	return p, nil
}

// Deactivate clears is_active on a product. Only the configured admin may
// call it. Deactivating an inactive product succeeds without changes.
func (s *ProductService) Deactivate(ctx context.Context, caller domain.Identity, id string) (err error) {
	ctx, span := startSpan(ctx, "ProductService", "Deactivate",
		trace.WithAttributes(attribute.String("product.id", id)))
	defer func() { endSpan(span, err) }()

	if _, err := s.Admin.RequireAdmin(ctx, s.DB, caller); err != nil {
		return err
	}

	changed := false
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := repo.GetProduct(ctx, tx, id)
		if errors.Is(err, repo.ErrNotFound) {
			return ErrProductNotFound
		}
		if err != nil {
			return fmt.Errorf("load product: %w", err)
		}
		if !p.IsActive {
			return nil
		}
		if err := repo.DeactivateProduct(ctx, tx, id, p.Version); err != nil {
			return fmt.Errorf("deactivate product: %w", err)
		}
		changed = true
		return nil
	})
	if err != nil {
		return err
	}

	if changed {
		sinkOrNop(s.Events).Publish(ctx, events.TopicProductDeactivated, events.ProductDeactivated{
			ProductID: id,
			Admin:     caller,
			Timestamp: nowFrom(s.Clock),
		})
	}
	return nil
}

// Get returns a product with up to MaxVotesLoaded of its live votes in
// insertion order, or ErrProductNotFound.
func (s *ProductService) Get(ctx context.Context, id string) (p *domain.Product, err error) {
	ctx, span := startSpan(ctx, "ProductService", "Get",
		trace.WithAttributes(attribute.String("product.id", id)))
	defer func() { endSpan(span, err) }()

	p, err = repo.GetProductWithVotes(ctx, s.DB, id, s.MaxVotesLoaded)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load product: %w", err)
	}
	return p, nil
}

// normalizeName applies NFC, trims, and collapses inner whitespace.
func normalizeName(s string) string {
	s = norm.NFC.String(s)
	return whitespaceRE.ReplaceAllString(strings.TrimSpace(s), " ")
}

// productIDRE is the character set of ids that can be addressed as a single
// path segment under /products/:id.
var productIDRE = regexp.MustCompile(`^[A-Za-z0-9._~\-:]+$`)

// whitespaceRE collapses consecutive whitespace to a single space.
var whitespaceRE = regexp.MustCompile(`\s+`)
