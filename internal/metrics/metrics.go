// Package metrics registers the Prometheus instruments for the ledger.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds every instrument the service exports. A nil *Metrics is
// safe to use everywhere; recording on nil is a no-op, which keeps tests
// free of registry collisions.
type Metrics struct {
	transferTransitions *prometheus.CounterVec
	syncAttempts        *prometheus.CounterVec
	sweepRunsTotal      *prometheus.CounterVec
	sweepLastRunUnix    prometheus.Gauge
	pendingSyncBacklog  prometheus.Gauge
	httpRequestsTotal   *prometheus.CounterVec
	httpDuration        *prometheus.HistogramVec
}

// New registers all instruments on the default registry.
func New() *Metrics {
	return &Metrics{
		transferTransitions: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "roomledger",
				Subsystem: "transfers",
				Name:      "transitions_total",
				Help:      "Transfer state transitions partitioned by operation and result.",
			},
			[]string{"op", "result"},
		),
		syncAttempts: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "roomledger",
				Subsystem: "offline_payments",
				Name:      "sync_attempts_total",
				Help:      "Offline payment sync attempts partitioned by operation and result.",
			},
			[]string{"op", "result"},
		),
		sweepRunsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "roomledger",
				Subsystem: "sync_sweep",
				Name:      "runs_total",
				Help:      "Total reconciliation sweep runs partitioned by result.",
			},
			[]string{"result"},
		),
		sweepLastRunUnix: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "roomledger",
				Subsystem: "sync_sweep",
				Name:      "last_run_unix",
				Help:      "Unix time of the most recent sweep run.",
			},
		),
		pendingSyncBacklog: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "roomledger",
				Subsystem: "offline_payments",
				Name:      "pending_sync_backlog",
				Help:      "Offline payments awaiting sync as of the last sweep.",
			},
		),
		httpRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "roomledger",
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "HTTP requests partitioned by route, method and status code.",
			},
			[]string{"route", "method", "code"},
		),
		httpDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "roomledger",
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request latency partitioned by route.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"route"},
		),
	}
}

// TransferTransition records the outcome of a create/confirm/cancel call.
func (m *Metrics) TransferTransition(op, result string) {
	if m == nil {
		return
	}
	m.transferTransitions.WithLabelValues(op, result).Inc()
}

// SyncAttempt records the outcome of a capture/sync/fail/retry call.
func (m *Metrics) SyncAttempt(op, result string) {
	if m == nil {
		return
	}
	m.syncAttempts.WithLabelValues(op, result).Inc()
}

// SweepRun records a completed reconciliation sweep.
func (m *Metrics) SweepRun(result string, backlog int, whenUnix int64) {
	if m == nil {
		return
	}
	m.sweepRunsTotal.WithLabelValues(result).Inc()
	m.pendingSyncBacklog.Set(float64(backlog))
	m.sweepLastRunUnix.Set(float64(whenUnix))
}

// HTTPRequest records one served request.
func (m *Metrics) HTTPRequest(route, method, code string, seconds float64) {
	if m == nil {
		return
	}
	m.httpRequestsTotal.WithLabelValues(route, method, code).Inc()
	m.httpDuration.WithLabelValues(route).Observe(seconds)
}
