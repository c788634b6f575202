// Package metrics exposes Prometheus instrumentation for the tracker.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Status labels for the quote request counter.
const (
	StatusSuccess = "success"
	StatusError   = "error"
	StatusCached  = "cached"
	StatusSkipped = "skipped"
)

// Metrics holds the Prometheus collectors for the tracker. A nil *Metrics is
// valid; every method is a no-op on it, which is how metrics are disabled.
type Metrics struct {
	quoteRequests *prometheus.CounterVec
	fetchDuration *prometheus.HistogramVec
	comparisons   prometheus.Counter
	cacheHits     prometheus.Counter
	cacheMisses   prometheus.Counter
	breakerState  *prometheus.GaugeVec
	lastTotalFee  *prometheus.GaugeVec
}

// New registers the tracker metrics on the default Prometheus registry.
func New() *Metrics {
	return NewOn(prometheus.DefaultRegisterer)
}

// NewOn registers the tracker metrics on the given registry.
func NewOn(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		quoteRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bridge_quote_requests_total",
				Help: "Total number of quote requests by protocol and outcome",
			},
			[]string{"protocol", "status"},
		),
		fetchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bridge_quote_fetch_duration_seconds",
				Help:    "Quote fetch duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"protocol"},
		),
		comparisons: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "bridge_comparisons_total",
				Help: "Total number of fee comparisons built",
			},
		),
		cacheHits: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "bridge_quote_cache_hits_total",
				Help: "Total number of quote cache hits",
			},
		),
		cacheMisses: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "bridge_quote_cache_misses_total",
				Help: "Total number of quote cache misses",
			},
		),
		breakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "bridge_circuit_breaker_state",
				Help: "Circuit breaker state per protocol (0=closed, 1=open, 2=half-open)",
			},
			[]string{"protocol"},
		),
		lastTotalFee: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "bridge_last_total_fee",
				Help: "Most recently observed total fee per protocol and token",
			},
			[]string{"protocol", "token"},
		),
	}

	reg.MustRegister(
		m.quoteRequests,
		m.fetchDuration,
		m.comparisons,
		m.cacheHits,
		m.cacheMisses,
		m.breakerState,
		m.lastTotalFee,
	)

	return m
}

// Handler returns the HTTP handler serving the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// CountQuote increments the quote request counter for a protocol.
func (m *Metrics) CountQuote(protocol, status string) {
	if m == nil {
		return
	}
	m.quoteRequests.WithLabelValues(protocol, status).Inc()
}

// ObserveFetch records the duration of a single quote fetch.
func (m *Metrics) ObserveFetch(protocol string, d time.Duration) {
	if m == nil {
		return
	}
	m.fetchDuration.WithLabelValues(protocol).Observe(d.Seconds())
}

// CountComparison increments the comparison counter.
func (m *Metrics) CountComparison() {
	if m == nil {
		return
	}
	m.comparisons.Inc()
}

// CountCacheHit increments the cache hit counter.
func (m *Metrics) CountCacheHit() {
	if m == nil {
		return
	}
	m.cacheHits.Inc()
}

// CountCacheMiss increments the cache miss counter.
func (m *Metrics) CountCacheMiss() {
	if m == nil {
		return
	}
	m.cacheMisses.Inc()
}

// SetBreakerState records the circuit breaker state for a protocol.
func (m *Metrics) SetBreakerState(protocol string, state int) {
	if m == nil {
		return
	}
	m.breakerState.WithLabelValues(protocol).Set(float64(state))
}

// SetLastTotalFee records the most recent total fee for a protocol and token.
func (m *Metrics) SetLastTotalFee(protocol, token string, fee float64) {
	if m == nil {
		return
	}
	m.lastTotalFee.WithLabelValues(protocol, token).Set(fee)
}
