// Package metrics exposes Prometheus collectors for the scheduler cycles,
// episode probes and notification deliveries.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "animetrack"

// Registry owns the collectors. A nil *Registry accepts every observation and
// records nothing.
type Registry struct {
	reg           *prometheus.Registry
	cycles        *prometheus.CounterVec
	cycleDuration *prometheus.HistogramVec
	skipped       *prometheus.CounterVec
	lastSuccess   *prometheus.GaugeVec
	works         *prometheus.CounterVec
	probes        *prometheus.CounterVec
	deliveries    *prometheus.CounterVec
}

// New registers every collector on a fresh registry.
func New() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),
		cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycles_total",
			Help:      "Scheduler task runs by outcome.",
		}, []string{"task", "outcome"}),
		cycleDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cycle_duration_seconds",
			Help:      "Scheduler task run duration.",
			Buckets:   []float64{0.5, 1, 5, 15, 30, 60, 120, 300, 900},
		}, []string{"task"}),
		skipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycles_skipped_total",
			Help:      "Scheduler ticks skipped because the previous run was still active.",
		}, []string{"task"}),
		lastSuccess: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful task run.",
		}, []string{"task"}),
		works: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "work_checks_total",
			Help:      "Per-work outcomes in reconcile and episode checks.",
		}, []string{"task", "outcome"}),
		probes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "episode_probes_total",
			Help:      "Episode page requests by source and result.",
		}, []string{"source", "outcome"}),
		deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Notification deliveries by sink and outcome.",
		}, []string{"sink", "outcome"}),
	}
	r.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.cycles, r.cycleDuration, r.skipped, r.lastSuccess, r.works, r.probes, r.deliveries,
	)
	return r
}

// ObserveCycle records one finished task run.
func (r *Registry) ObserveCycle(task string, elapsed time.Duration, err error) {
	if r == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "failure"
	} else {
		r.lastSuccess.WithLabelValues(task).SetToCurrentTime()
	}
	r.cycles.WithLabelValues(task, outcome).Inc()
	r.cycleDuration.WithLabelValues(task).Observe(elapsed.Seconds())
}

// ObserveSkip records a tick dropped by single-flight.
func (r *Registry) ObserveSkip(task string) {
	if r == nil {
		return
	}
	r.skipped.WithLabelValues(task).Inc()
}

// ObserveWork records a per-work outcome such as "created" or "unresolved".
func (r *Registry) ObserveWork(task, outcome string) {
	if r == nil {
		return
	}
	r.works.WithLabelValues(task, outcome).Inc()
}

// ObserveProbe implements episodes.ProbeObserver.
func (r *Registry) ObserveProbe(source, outcome string) {
	if r == nil {
		return
	}
	r.probes.WithLabelValues(source, outcome).Inc()
}

// ObserveDelivery implements notifications.DeliveryObserver.
func (r *Registry) ObserveDelivery(sink, outcome string) {
	if r == nil {
		return
	}
	r.deliveries.WithLabelValues(sink, outcome).Inc()
}

// Gatherer exposes the registry for tests and custom handlers.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}

// Handler serves the registry in the Prometheus text format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}
