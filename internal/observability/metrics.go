// Package observability provides Prometheus metrics and OpenTelemetry tracing
// for the API.
//
// Metrics are registered on an explicit registry so that tests and multiple
// servers in one process do not collide on the default one.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "tiermaster"

// Vote ledger operations, used as the "op" label.
const (
	OpCast    = "cast"
	OpRetract = "retract"
	OpMove    = "move"
)

// Metrics holds the application's collectors.
type Metrics struct {
	Registry *prometheus.Registry

	// VoteOpsTotal counts ledger mutations by op and result code
	// ("ok", "already_voted", "no_such_vote", ...).
	VoteOpsTotal *prometheus.CounterVec

	// SuggestionsTotal counts suggestion lifecycle events by action
	// (submitted, approved, rejected, quota_exceeded).
	SuggestionsTotal *prometheus.CounterVec

	// RequestDuration measures handler latency by route and status.
	RequestDuration *prometheus.HistogramVec
}

// NewMetrics creates the collectors on a fresh registry, along with the
// standard Go and process collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		VoteOpsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "votes",
				Name:      "operations_total",
				Help:      "Vote ledger operations by op and result",
			},
			[]string{"op", "result"},
		),
		SuggestionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "suggestions",
				Name:      "events_total",
				Help:      "Item suggestion events by action",
			},
			[]string{"action"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP handler latency by route and status",
				Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
			},
			[]string{"route", "method", "status"},
		),
	}
}

// RecordVote increments the vote counter. A nil receiver is a no-op so
// services can run without metrics in tests.
func (m *Metrics) RecordVote(op, result string) {
	if m == nil {
		return
	}
	m.VoteOpsTotal.WithLabelValues(op, result).Inc()
}

// RecordSuggestion increments the suggestion counter; nil-safe.
func (m *Metrics) RecordSuggestion(action string) {
	if m == nil {
		return
	}
	m.SuggestionsTotal.WithLabelValues(action).Inc()
}
