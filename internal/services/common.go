package services

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-product-voting/internal/auth"
	"github.com/tbourn/go-product-voting/internal/domain"
	"github.com/tbourn/go-product-voting/internal/events"
)

// startSpan opens a span named "<service>.<op>". The tracing sampler keys on
// these names to keep every state-changing operation.
func startSpan(ctx context.Context, service, op string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return otel.Tracer("services/"+service).Start(ctx, service+"."+op, opts...)
}

// endSpan records err on span (if any) and ends it.
func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		if _, ok := CodeOf(err); !ok {
			span.SetStatus(codes.Error, err.Error())
		}
	}
	span.End()
}

func nowFrom(c clockwork.Clock) time.Time {
	if c == nil {
		return time.Now().UTC()
	}
	return c.Now().UTC()
}

func sinkOrNop(s events.Sink) events.Sink {
	if s == nil {
		return events.Nop{}
	}
	return s
}

func authorizerOrDefault(a auth.Authorizer) auth.Authorizer {
	if a == nil {
		return auth.ContextAuthorizer{}
	}
	return a
}

// requireCaller maps any authorization failure to ErrUnauthorized.
func requireCaller(ctx context.Context, a auth.Authorizer, id domain.Identity) error {
	if err := authorizerOrDefault(a).Require(ctx, id); err != nil {
		if errors.Is(err, ErrUnauthorized) {
			return err
		}
		return ErrUnauthorized
	}
	return nil
}

// keyLock serializes work per string key. Entries are reference counted and
// removed once no goroutine holds or waits on them. The zero value is ready
// to use.
type keyLock struct {
	mu sync.Mutex
	m  map[string]*keyLockEntry
}

type keyLockEntry struct {
	mu   sync.Mutex
	refs int
}

// Lock acquires every key in a canonical order and returns the matching
// unlock function. Duplicate keys are acquired once.
func (l *keyLock) Lock(keys ...string) (unlock func()) {
	ks := append([]string(nil), keys...)
	sort.Strings(ks)
	uniq := ks[:0]
	for i, k := range ks {
		if i == 0 || k != ks[i-1] {
			uniq = append(uniq, k)
		}
	}

	entries := make([]*keyLockEntry, 0, len(uniq))
	for _, k := range uniq {
		l.mu.Lock()
		if l.m == nil {
			l.m = make(map[string]*keyLockEntry)
		}
		e, ok := l.m[k]
		if !ok {
			e = &keyLockEntry{}
			l.m[k] = e
		}
		e.refs++
		l.mu.Unlock()

		e.mu.Lock()
		entries = append(entries, e)
	}

	return func() {
		for i := len(entries) - 1; i >= 0; i-- {
			e := entries[i]
			e.mu.Unlock()
			l.mu.Lock()
			e.refs--
			if e.refs == 0 {
				delete(l.m, uniq[i])
			}
			l.mu.Unlock()
		}
	}
}
