package services

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/tbourn/go-product-voting/internal/domain"
	"github.com/tbourn/go-product-voting/internal/observability"
)

func TestKeyLock_SerializesAndCleansUp(t *testing.T) {
	var l keyLock
	var (
		wg      sync.WaitGroup
		counter int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := l.Lock("b", "a", "a")
			counter++
			unlock()
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, counter)
	assert.Empty(t, l.m)
}

func TestKeyLock_IndependentKeys(t *testing.T) {
	var l keyLock
	unlockA := l.Lock("a")
	done := make(chan struct{})
	go func() {
		unlockB := l.Lock("b")
		unlockB()
		close(done)
	}()
	<-done
	unlockA()
	assert.Empty(t, l.m)
}

func TestStateChangingOperationsUseSampledSpanNames(t *testing.T) {
	prev := otel.GetTracerProvider()
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(observability.NewSampler(0)),
		sdktrace.WithSpanProcessor(rec),
	)
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})

	f := newFixture(t)
	f.initPolicy(t, 5, 30, 24)
	f.createProduct(t, "p1", "creator")
	f.matureAccount(t, "voterA")
	_, err := f.voting.CastVote(as("voterA"), "p1", domain.Upvote, "voterA")
	require.NoError(t, err)

	var names []string
	for _, s := range rec.Ended() {
		names = append(names, s.Name())
	}
	for _, want := range []string{"AdminService.Init", "ProductService.Create", "Voting.CastVote"} {
		assert.Contains(t, names, want)
		assert.Contains(t, observability.StateChangingSpans, want)
	}
}
