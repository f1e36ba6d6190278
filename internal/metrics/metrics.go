// Package metrics exposes Prometheus instrumentation for the activity feed
// and the RPC layer.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "splitactivity"

// Metrics holds the collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	statements   *prometheus.CounterVec
	feedFailures *prometheus.CounterVec
	rpcDuration  *prometheus.HistogramVec
}

// New registers the collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		statements: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "statements_total",
			Help:      "Statements evaluated for activity feeds, by direction.",
		}, []string{"direction"}),
		feedFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feed_failures_total",
			Help:      "Participation records skipped because they could not be evaluated.",
		}, []string{"reason"}),
		rpcDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rpc_duration_seconds",
			Help:      "RPC latency by procedure and result code.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"procedure", "code"}),
	}
}

func (m *Metrics) ObserveStatement(direction string) {
	if m == nil {
		return
	}
	m.statements.WithLabelValues(direction).Inc()
}

func (m *Metrics) ObserveFeedFailure(reason string) {
	if m == nil {
		return
	}
	m.feedFailures.WithLabelValues(reason).Inc()
}

func (m *Metrics) ObserveRPC(procedure, code string, d time.Duration) {
	if m == nil {
		return
	}
	m.rpcDuration.WithLabelValues(procedure, code).Observe(d.Seconds())
}

// Handler serves the metrics gathered by g in the Prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
