// Package metrics exposes Prometheus collectors for the back-office engine.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "backoffice",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "backoffice",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "backoffice",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		},
		[]string{"method", "path"},
	)

	publications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "backoffice",
			Subsystem: "ledger",
			Name:      "publications_total",
			Help:      "Total publish/renew attempts by outcome.",
		},
		[]string{"kind", "outcome"},
	)

	transferReconciliations = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "backoffice",
			Subsystem: "ledger",
			Name:      "transfer_reconciliations_total",
			Help:      "Transfers left requiring manual reconciliation.",
		},
	)

	commissionCharged = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "backoffice",
			Subsystem: "ledger",
			Name:      "commission_charged_total",
			Help:      "Sum of commission amounts successfully transferred.",
		},
	)

	stockSyncOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "backoffice",
			Subsystem: "stock",
			Name:      "sync_operations_total",
			Help:      "Stock counter synchronization operations by type.",
		},
		[]string{"op"},
	)

	stockResyncRuns = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "backoffice",
			Subsystem: "stock",
			Name:      "resync_runs_total",
			Help:      "Completed stock resynchronization repair passes.",
		},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		publications,
		transferReconciliations,
		commissionCharged,
		stockSyncOps,
		stockResyncRuns,
	)
}

// Handler serves the metrics endpoint for the application registry.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// ObservePublication counts a publish/renew attempt outcome.
func ObservePublication(kind, outcome string) {
	publications.WithLabelValues(kind, outcome).Inc()
}

// ObserveCommission accumulates a successfully transferred commission amount.
func ObserveCommission(amount float64) {
	commissionCharged.Add(amount)
}

// ObserveReconciliationRequired counts a transfer left for manual repair.
func ObserveReconciliationRequired() {
	transferReconciliations.Inc()
}

// ObserveStockSync counts a stock synchronization operation.
func ObserveStockSync(op string) {
	stockSyncOps.WithLabelValues(op).Inc()
}

// ObserveResyncRun counts a completed repair pass.
func ObserveResyncRun() {
	stockResyncRuns.Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Instrument wraps an HTTP handler with request counting and latency
// observation.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httpInFlight.Inc()
		defer httpInFlight.Dec()

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)

		httpRequests.WithLabelValues(r.Method, r.URL.Path, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(r.Method, r.URL.Path).Observe(time.Since(start).Seconds())
	})
}
