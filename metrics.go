package resolver

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the resolver's Prometheus collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	resolutions   *prometheus.CounterVec
	failures      prometheus.Counter
	tierDuration  *prometheus.HistogramVec
	rdapOutcomes  *prometheus.CounterVec
	cacheLookups  *prometheus.CounterVec
	bootstrapRuns *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg when reg is non-nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "resolver_resolutions_total",
			Help: "Resolved domains by winning tier and availability",
		}, []string{"source", "availability"}),
		failures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "resolver_failures_total",
			Help: "Resolutions where every tier failed",
		}),
		tierDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "resolver_tier_duration_seconds",
			Help:    "Time spent in each tier",
			Buckets: []float64{.05, .1, .25, .5, 1, 2, 5, 10, 20},
		}, []string{"tier", "outcome"}),
		rdapOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "resolver_rdap_candidates_total",
			Help: "RDAP candidate answers by outcome",
		}, []string{"outcome"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "resolver_cache_lookups_total",
			Help: "Result cache lookups",
		}, []string{"result"}),
		bootstrapRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "resolver_bootstrap_refresh_total",
			Help: "Bootstrap document refresh attempts",
		}, []string{"result"}),
	}
	if reg != nil {
		reg.MustRegister(m.resolutions, m.failures, m.tierDuration, m.rdapOutcomes, m.cacheLookups, m.bootstrapRuns)
	}
	return m
}

func (m *Metrics) resolved(rec *Record) {
	if m == nil {
		return
	}
	m.resolutions.WithLabelValues(string(rec.Source), string(rec.Availability)).Inc()
}

func (m *Metrics) failed() {
	if m == nil {
		return
	}
	m.failures.Inc()
}

func (m *Metrics) tier(src Source, err error, d time.Duration) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = string(KindOf(err))
	}
	m.tierDuration.WithLabelValues(string(src), outcome).Observe(d.Seconds())
}

func (m *Metrics) rdapCandidate(o outcome) {
	if m == nil {
		return
	}
	m.rdapOutcomes.WithLabelValues(o.String()).Inc()
}

func (m *Metrics) cache(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

func (m *Metrics) bootstrapRefresh(err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.bootstrapRuns.WithLabelValues(result).Inc()
}
