package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Prometheus implements Metrics on a private registry
type Prometheus struct {
	accessChecks        *prometheus.CounterVec
	accessDenied        *prometheus.CounterVec
	accessCheckDuration prometheus.Histogram

	approvalDecisions *prometheus.CounterVec
	approvalConflicts prometheus.Counter

	expensesSubmitted *prometheus.CounterVec
	policyViolations  *prometheus.CounterVec

	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
	activeRequests   prometheus.Gauge
	scopeCacheHits   prometheus.Counter
	scopeCacheMisses prometheus.Counter

	registry *prometheus.Registry
}

// NewPrometheus creates a Prometheus metrics instance
func NewPrometheus(namespace string) *Prometheus {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	p := &Prometheus{
		accessChecks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "access_checks_total",
				Help:      "Total number of access checks by decision",
			},
			[]string{"decision"},
		),
		accessDenied: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "access_denied_total",
				Help:      "Total number of denied access checks by reason",
			},
			[]string{"reason"},
		),
		accessCheckDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "access_check_duration_microseconds",
				Help:      "Access check latency in microseconds",
				Buckets:   []float64{10, 25, 50, 100, 250, 500, 1000, 5000, 10000, 50000},
			},
		),
		approvalDecisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "approval",
				Name:      "decisions_total",
				Help:      "Total number of committed approval decisions by action",
			},
			[]string{"action"},
		),
		approvalConflicts: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "approval",
				Name:      "conflicts_total",
				Help:      "Total number of approval attempts lost to a concurrent decider",
			},
		),
		expensesSubmitted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "expenses",
				Name:      "submitted_total",
				Help:      "Total number of submitted expenses by category",
			},
			[]string{"category"},
		),
		policyViolations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "expenses",
				Name:      "policy_violations_total",
				Help:      "Total number of submissions flagged as policy violations",
			},
			[]string{"category"},
		),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_milliseconds",
				Help:      "HTTP request latency in milliseconds",
				Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 5000},
			},
			[]string{"method", "route"},
		),
		activeRequests: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "active_requests",
				Help:      "Number of in-flight HTTP requests",
			},
		),
		scopeCacheHits: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "scope_cache",
				Name:      "hits_total",
				Help:      "Total number of scope cache hits",
			},
		),
		scopeCacheMisses: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "scope_cache",
				Name:      "misses_total",
				Help:      "Total number of scope cache misses",
			},
		),
		registry: registry,
	}

	registry.MustRegister(
		p.accessChecks,
		p.accessDenied,
		p.accessCheckDuration,
		p.approvalDecisions,
		p.approvalConflicts,
		p.expensesSubmitted,
		p.policyViolations,
		p.httpRequests,
		p.httpDuration,
		p.activeRequests,
		p.scopeCacheHits,
		p.scopeCacheMisses,
	)
	return p
}

func (p *Prometheus) RecordAccessCheck(decision string, duration time.Duration) {
	p.accessChecks.WithLabelValues(decision).Inc()
	p.accessCheckDuration.Observe(float64(duration.Microseconds()))
}

func (p *Prometheus) RecordAccessDenied(reason string) {
	p.accessDenied.WithLabelValues(reason).Inc()
}

func (p *Prometheus) RecordApprovalDecision(action string) {
	p.approvalDecisions.WithLabelValues(action).Inc()
}

func (p *Prometheus) RecordApprovalConflict() {
	p.approvalConflicts.Inc()
}

func (p *Prometheus) RecordExpenseSubmitted(category string) {
	p.expensesSubmitted.WithLabelValues(category).Inc()
}

func (p *Prometheus) RecordPolicyViolation(category string) {
	p.policyViolations.WithLabelValues(category).Inc()
}

func (p *Prometheus) RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	p.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	p.httpDuration.WithLabelValues(method, route).Observe(float64(duration.Milliseconds()))
}

func (p *Prometheus) IncActiveRequests() {
	p.activeRequests.Inc()
}

func (p *Prometheus) DecActiveRequests() {
	p.activeRequests.Dec()
}

func (p *Prometheus) RecordScopeCacheHit() {
	p.scopeCacheHits.Inc()
}

func (p *Prometheus) RecordScopeCacheMiss() {
	p.scopeCacheMisses.Inc()
}

// HTTPHandler returns the Prometheus handler for the /metrics endpoint
func (p *Prometheus) HTTPHandler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}
