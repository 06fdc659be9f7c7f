package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TurnsTotal counts processed conversation turns by context and outcome.
	TurnsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_turns_total",
			Help: "The total number of conversation turns, labeled by context and outcome",
		},
		[]string{"context", "outcome"},
	)

	// UpstreamRequestDuration tracks the latency of upstream completion calls.
	UpstreamRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chat_upstream_request_duration_seconds",
			Help:    "Duration of upstream chat completion requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"model"},
	)

	// UpstreamTokens counts tokens reported by the upstream provider.
	UpstreamTokens = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_upstream_tokens_total",
			Help: "The total number of tokens reported by the upstream provider, labeled by kind",
		},
		[]string{"model", "kind"},
	)

	// HistoryEvictions counts messages dropped by the sliding history window.
	HistoryEvictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_history_evictions_total",
			Help: "The total number of messages evicted from session histories",
		},
	)
)

// RecordTurn records the outcome of one conversation turn.
func RecordTurn(contextTag, outcome string) {
	TurnsTotal.WithLabelValues(contextTag, outcome).Inc()
}

// ObserveUpstreamRequest records the duration of one upstream call.
func ObserveUpstreamRequest(model string, elapsed time.Duration) {
	UpstreamRequestDuration.WithLabelValues(model).Observe(elapsed.Seconds())
}

// RecordUpstreamTokens records prompt and completion token counts.
func RecordUpstreamTokens(model string, promptTokens, completionTokens int64) {
	UpstreamTokens.WithLabelValues(model, "prompt").Add(float64(promptTokens))
	UpstreamTokens.WithLabelValues(model, "completion").Add(float64(completionTokens))
}

// RecordHistoryEvictions records dropped history messages.
func RecordHistoryEvictions(count int) {
	if count > 0 {
		HistoryEvictions.Add(float64(count))
	}
}
