// Package metrics exposes Prometheus instruments for the agenda service.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// AgendaMetrics exposes counters/histograms for package generation and agenda rendering.
type AgendaMetrics struct {
	packagesCreated       *prometheus.CounterVec
	appointmentsGenerated *prometheus.CounterVec
	shortExpansions       prometheus.Counter
	skippedRecords        *prometheus.CounterVec
	renderLatency         *prometheus.HistogramVec
	staleViews            *prometheus.CounterVec
}

func NewAgendaMetrics(reg prometheus.Registerer) *AgendaMetrics {
	m := &AgendaMetrics{
		packagesCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "packages",
			Name:      "created_total",
			Help:      "Total session packages created",
		}, []string{"category"}),
		appointmentsGenerated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "packages",
			Name:      "appointments_generated_total",
			Help:      "Total appointments generated by recurrence expansion",
		}, []string{"category"}),
		shortExpansions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "packages",
			Name:      "short_expansions_total",
			Help:      "Expansions that hit the day-walk ceiling before reaching the target count",
		}),
		skippedRecords: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "agenda",
			Name:      "skipped_records_total",
			Help:      "Malformed appointment records excluded from agenda grids",
		}, []string{"view"}),
		renderLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "clinic",
			Subsystem: "agenda",
			Name:      "render_latency_seconds",
			Help:      "Latency of agenda fetch and bucketing",
			Buckets:   prometheus.DefBuckets,
		}, []string{"view", "status"}),
		staleViews: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "agenda",
			Name:      "stale_views_total",
			Help:      "Agenda results discarded because a newer refresh was issued",
		}, []string{"view"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.packagesCreated, m.appointmentsGenerated, m.shortExpansions, m.skippedRecords, m.renderLatency, m.staleViews)
	return m
}

func (m *AgendaMetrics) ObservePackageCreated(category string, appointments int) {
	if m == nil {
		return
	}
	m.packagesCreated.WithLabelValues(category).Inc()
	m.appointmentsGenerated.WithLabelValues(category).Add(float64(appointments))
}

func (m *AgendaMetrics) ObserveShortExpansion() {
	if m == nil {
		return
	}
	m.shortExpansions.Inc()
}

func (m *AgendaMetrics) ObserveSkipped(view string, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.skippedRecords.WithLabelValues(view).Add(float64(count))
}

func (m *AgendaMetrics) ObserveRender(view, status string, seconds float64) {
	if m == nil {
		return
	}
	m.renderLatency.WithLabelValues(view, status).Observe(seconds)
}

func (m *AgendaMetrics) ObserveStaleView(view string) {
	if m == nil {
		return
	}
	m.staleViews.WithLabelValues(view).Inc()
}
