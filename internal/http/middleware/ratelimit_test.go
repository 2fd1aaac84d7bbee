package middleware

import (
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

// votingEdge mounts the limiter in front of a few voting routes. Callers are
// taken from X-User-ID so buckets are per user.
func votingEdge(rl *RateLimiter, pre ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if u := c.GetHeader(HeaderUserID); u != "" {
			c.Set(ctxKeyUserID, u)
		}
		c.Next()
	})
	r.Use(pre...)
	r.Use(rl.Handler())
	r.GET("/products/:id/score", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"score": 1}) })
	r.POST("/products/:id/votes", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func hit(r *gin.Engine, method, path, user string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	req.RemoteAddr = net.JoinHostPort("203.0.113.9", "4242")
	if user != "" {
		req.Header.Set(HeaderUserID, user)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestKeyByUserOrIP(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/products/p1/score", nil)
	c.Request.RemoteAddr = net.JoinHostPort("203.0.113.9", "12345")

	if got := KeyByUserOrIP()(c); got != "ip:203.0.113.9" {
		t.Fatalf("anonymous key = %q", got)
	}
	c.Set(ctxKeyUserID, "alice")
	if got := KeyByUserOrIP()(c); got != "user:alice" {
		t.Fatalf("caller key = %q", got)
	}
}

func TestRateLimiter_VoteWritesHaveTheirOwnBucket(t *testing.T) {
	clock := clockwork.NewFakeClock()
	rl := NewRateLimiter(RateLimitOptions{RPS: 10, Burst: 3, WriteRPS: 0.5, WriteBurst: 1, Clock: clock})
	r := votingEdge(rl)

	before := testutil.ToFloat64(rateLimited.WithLabelValues(classWrite))

	if w := hit(r, http.MethodPost, "/products/p1/votes", "alice"); w.Code != http.StatusOK {
		t.Fatalf("first vote = %d", w.Code)
	}
	w := hit(r, http.MethodPost, "/products/p2/votes", "alice")
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("second vote = %d, want 429", w.Code)
	}
	// One token every two seconds.
	if got := w.Header().Get("Retry-After"); got != "2" {
		t.Fatalf("Retry-After = %q, want 2", got)
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON body: %v", err)
	}
	if body["code"] != "rate_limited" {
		t.Fatalf("unexpected body: %v", body)
	}
	if got := testutil.ToFloat64(rateLimited.WithLabelValues(classWrite)); got != before+1 {
		t.Fatalf("rate_limited{write} = %v, want %v", got, before+1)
	}

	// Reads are unaffected by the drained write bucket.
	for i := 0; i < 3; i++ {
		if w := hit(r, http.MethodGet, "/products/p1/score", "alice"); w.Code != http.StatusOK {
			t.Fatalf("read %d = %d", i, w.Code)
		}
	}
	// Another caller has a fresh write bucket.
	if w := hit(r, http.MethodPost, "/products/p1/votes", "bob"); w.Code != http.StatusOK {
		t.Fatalf("bob's vote = %d", w.Code)
	}

	clock.Advance(2 * time.Second)
	if w := hit(r, http.MethodPost, "/products/p2/votes", "alice"); w.Code != http.StatusOK {
		t.Fatalf("vote after refill = %d", w.Code)
	}
}

func TestRateLimiter_RejectedRequestsDoNotConsumeTokens(t *testing.T) {
	clock := clockwork.NewFakeClock()
	rl := NewRateLimiter(RateLimitOptions{RPS: 1, Burst: 1, Clock: clock})
	r := votingEdge(rl)

	if w := hit(r, http.MethodGet, "/products/p1/score", "alice"); w.Code != http.StatusOK {
		t.Fatalf("first read = %d", w.Code)
	}
	for i := 0; i < 5; i++ {
		if w := hit(r, http.MethodGet, "/products/p1/score", "alice"); w.Code != http.StatusTooManyRequests {
			t.Fatalf("burst read %d = %d", i, w.Code)
		}
	}
	clock.Advance(time.Second)
	if w := hit(r, http.MethodGet, "/products/p1/score", "alice"); w.Code != http.StatusOK {
		t.Fatalf("read after one second = %d", w.Code)
	}
}

func TestRateLimiter_SharedBucketWithoutWriteRate(t *testing.T) {
	rl := NewRateLimiter(RateLimitOptions{RPS: 1, Burst: 0, Clock: clockwork.NewFakeClock()})
	r := votingEdge(rl)

	if w := hit(r, http.MethodGet, "/products/p1/score", ""); w.Code != http.StatusOK {
		t.Fatalf("read = %d", w.Code)
	}
	// Burst coerced to 1 and writes share the read bucket.
	if w := hit(r, http.MethodPost, "/products/p1/votes", ""); w.Code != http.StatusTooManyRequests {
		t.Fatalf("write = %d, want 429", w.Code)
	}
}

func TestRateLimiter_ZeroRateNeverRefills(t *testing.T) {
	rl := NewRateLimiter(RateLimitOptions{RPS: 0, Burst: 1, Clock: clockwork.NewFakeClock()})
	r := votingEdge(rl)

	hit(r, http.MethodGet, "/products/p1/score", "alice")
	w := hit(r, http.MethodGet, "/products/p1/score", "alice")
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("code = %d, want 429", w.Code)
	}
	if got := w.Header().Get("Retry-After"); got != "3600" {
		t.Fatalf("Retry-After = %q", got)
	}
}

func TestRateLimiter_ServedReplaySkipsLimiter(t *testing.T) {
	rl := NewRateLimiter(RateLimitOptions{RPS: 1, Burst: 1, Clock: clockwork.NewFakeClock()})
	replay := func(c *gin.Context) {
		if c.GetHeader("X-Test-Replay") == "1" {
			c.Set(ctxKeyRateBypass, true)
		}
		c.Next()
	}
	r := votingEdge(rl, replay)

	hit(r, http.MethodPost, "/products/p1/votes", "alice")
	if w := hit(r, http.MethodPost, "/products/p1/votes", "alice"); w.Code != http.StatusTooManyRequests {
		t.Fatalf("fresh submission = %d, want 429", w.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/products/p1/votes", nil)
	req.Header.Set(HeaderUserID, "alice")
	req.Header.Set("X-Test-Replay", "1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("replay = %d, want 200", w.Code)
	}
}

func TestRateLimiter_IdleBucketsAreSwept(t *testing.T) {
	clock := clockwork.NewFakeClock()
	rl := NewRateLimiter(RateLimitOptions{RPS: 1, Burst: 1, Clock: clock, IdleTTL: time.Minute})

	rl.limiterFor(classRead, "user:alice", clock.Now())
	clock.Advance(time.Minute)
	rl.lookups = sweepEvery - 1
	rl.limiterFor(classRead, "user:bob", clock.Now())

	rl.mu.Lock()
	defer rl.mu.Unlock()
	if _, ok := rl.buckets[classRead+"|user:alice"]; ok {
		t.Fatalf("idle bucket not evicted")
	}
	if _, ok := rl.buckets[classRead+"|user:bob"]; !ok {
		t.Fatalf("new bucket missing")
	}
}

func TestIsRateBypass(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	if IsRateBypass(c) {
		t.Fatalf("expected false by default")
	}
	c.Set(ctxKeyRateBypass, true)
	if !IsRateBypass(c) {
		t.Fatalf("expected true when set")
	}
	c.Set(ctxKeyRateBypass, "yes")
	if IsRateBypass(c) {
		t.Fatalf("expected false for non-bool value")
	}
}

func TestRetryAfter(t *testing.T) {
	cases := map[time.Duration]int{
		0:                       1,
		300 * time.Millisecond:  1,
		1500 * time.Millisecond: 2,
		10 * time.Hour:          maxRetryAfter,
	}
	for d, want := range cases {
		if got := retryAfter(d); got != want {
			t.Fatalf("retryAfter(%v) = %d, want %d", d, got, want)
		}
	}
}
