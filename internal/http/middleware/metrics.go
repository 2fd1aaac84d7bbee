// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file holds the Prometheus collectors of the HTTP edge. Besides the
// usual request count, latency and concurrency, handlers tag each request
// with an outcome (a vote action such as "new_vote", a replay, or the
// business error code that rejected it) so dashboards can split vote
// traffic by result instead of only by status.
//
// Labels stay bounded: route is the registered Gin pattern ("unmatched" when
// no route matched) and outcome comes from a closed set of codes.
package middleware

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

const ctxKeyOutcome = "api.outcome"

// unmatchedRoute labels requests that hit no registered route.
const unmatchedRoute = "unmatched"

var (
	httpReqs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)

	// Status is left out to keep the histogram small.
	httpLat = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds.",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"method", "route"},
	)

	httpInflight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_inflight",
			Help: "Current number of in-flight HTTP requests.",
		},
	)

	// apiOutcomes counts requests whose handler reported an outcome.
	apiOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_outcomes_total",
			Help: "Requests by route and domain outcome.",
		},
		[]string{"route", "outcome"},
	)

	// idemOutcomes counts vote submissions that carried a known key.
	idemOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "idempotency_outcomes_total",
			Help: "Vote submissions matching a stored receipt, by result.",
		},
		[]string{"result"},
	)

	rateLimited = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_rate_limited_total",
			Help: "Requests rejected by the edge rate limiter, by bucket class.",
		},
		[]string{"class"},
	)
)

func init() {
	prometheus.MustRegister(httpReqs, httpLat, httpInflight, apiOutcomes, idemOutcomes, rateLimited)
}

// SetOutcome records the domain outcome of the request for Metrics.
// The last call wins.
func SetOutcome(c *gin.Context, outcome string) {
	c.Set(ctxKeyOutcome, outcome)
}

// Outcome returns the value stored by SetOutcome, or "".
func Outcome(c *gin.Context) string {
	v, _ := c.Get(ctxKeyOutcome)
	s, _ := v.(string)
	return s
}

// routeLabel is the registered route pattern of the request.
func routeLabel(c *gin.Context) string {
	if p := c.FullPath(); p != "" {
		return p
	}
	return unmatchedRoute
}

// Metrics returns a Gin middleware that instruments requests with Prometheus.
//
//	r := gin.New()
//	r.Use(middleware.Metrics())
//	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
//
// Raw URL paths never become label values, so probing random ids cannot
// grow the series count.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		timer := prometheus.NewTimer(prometheus.ObserverFunc(func(v float64) {
			httpLat.WithLabelValues(c.Request.Method, routeLabel(c)).Observe(v)
		}))
		httpInflight.Inc()
		defer httpInflight.Dec()

		c.Next()

		timer.ObserveDuration()
		route := routeLabel(c)
		httpReqs.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		if o := Outcome(c); o != "" {
			apiOutcomes.WithLabelValues(route, o).Inc()
		}
	}
}
