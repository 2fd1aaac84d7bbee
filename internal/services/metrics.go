package services

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// votesCast counts committed votes by action (new_vote, change_vote).
	votesCast = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "votes_cast_total",
			Help: "Total number of committed votes.",
		},
		[]string{"action"},
	)

	// votesRejected counts rejected vote attempts by error code name.
	votesRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "votes_rejected_total",
			Help: "Total number of rejected vote attempts.",
		},
		[]string{"code"},
	)

	rankingRecompute = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ranking_recompute_seconds",
			Help:    "Time spent recomputing one product score.",
			Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
		},
	)
)

func init() {
	prometheus.MustRegister(votesCast, votesRejected, rankingRecompute)
}

func observeRejection(err error) {
	if code, ok := CodeOf(err); ok {
		votesRejected.WithLabelValues(code.String()).Inc()
		return
	}
	votesRejected.WithLabelValues("internal").Inc()
}
