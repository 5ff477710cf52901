// Package metrics holds the Prometheus collectors of the app.
// They are registered on the default registry, served by the debug server on /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Roster parse outcomes.
const (
	ParseOK        = "ok"
	ParseWarnings  = "warnings"
	ParseMalformed = "malformed"
	ParseFailed    = "failed"
)

var (
	ReviewsSubmitted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "peereval_reviews_submitted_total",
			Help: "Total number of reviews submitted",
		},
	)

	ReviewsReset = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "peereval_reviews_reset_total",
			Help: "Total number of reviews deleted by session resets",
		},
	)

	RosterParses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "peereval_roster_parses_total",
			Help: "Total number of roster texts parsed, by outcome",
		},
		[]string{"outcome"},
	)

	RosterWarnings = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "peereval_roster_warnings_total",
			Help: "Total number of warnings raised on parsed rosters",
		},
	)

	LLMDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "peereval_llm_request_duration_seconds",
			Help:    "Duration of language model requests in seconds",
			Buckets: []float64{.25, .5, 1, 2, 4, 8, 16, 32},
		},
		[]string{"model", "status"},
	)

	StreamSubscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "peereval_progress_stream_subscribers",
			Help: "Number of open progress streams",
		},
	)
)

// ObserveLLM records the duration of a language model request started at start.
func ObserveLLM(model string, start time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	LLMDuration.WithLabelValues(model, status).Observe(time.Since(start).Seconds())
}

// ObserveParse counts a roster parse by outcome.
func ObserveParse(outcome string, warnings int) {
	RosterParses.WithLabelValues(outcome).Inc()
	RosterWarnings.Add(float64(warnings))
}
