package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Dispatch outcomes.
const (
	OutcomeProcessed  = "processed"
	OutcomeFailed     = "failed"
	OutcomeSkipped    = "skipped"
	OutcomeDeadLetter = "dead_lettered"
)

// OutboxMetrics tracks dispatcher throughput and backlog.
type OutboxMetrics struct {
	dispatched  *prometheus.CounterVec
	cycle       prometheus.Histogram
	pending     prometheus.Gauge
	oldestAge   prometheus.Gauge
	withErrors  prometheus.Gauge
	deadLetters *prometheus.CounterVec
}

func NewOutboxMetrics(reg prometheus.Registerer) *OutboxMetrics {
	if reg == nil {
		return &OutboxMetrics{}
	}
	dispatched := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_dispatch_total",
		Help: "Outbox records handled by the dispatcher, by outcome.",
	}, []string{"event_type", "outcome"})
	cycle := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "outbox_dispatch_cycle_seconds",
		Help:    "Duration of one dispatcher poll cycle.",
		Buckets: prometheus.DefBuckets,
	})
	pending := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "outbox_pending_records",
		Help: "Outbox records not yet processed.",
	})
	oldestAge := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "outbox_oldest_pending_age_seconds",
		Help: "Age of the oldest pending outbox record.",
	})
	withErrors := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "outbox_pending_with_errors",
		Help: "Pending outbox records carrying a recorded error.",
	})
	deadLetters := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_dead_letters_total",
		Help: "Outbox records dead-lettered after exhausting retries.",
	}, []string{"event_type"})
	reg.MustRegister(dispatched, cycle, pending, oldestAge, withErrors, deadLetters)
	return &OutboxMetrics{
		dispatched:  dispatched,
		cycle:       cycle,
		pending:     pending,
		oldestAge:   oldestAge,
		withErrors:  withErrors,
		deadLetters: deadLetters,
	}
}

func (m *OutboxMetrics) IncDispatch(eventType, outcome string) {
	if m == nil || m.dispatched == nil {
		return
	}
	m.dispatched.WithLabelValues(normalizeLabel(eventType), outcome).Inc()
}

func (m *OutboxMetrics) IncDeadLetter(eventType string) {
	if m == nil || m.deadLetters == nil {
		return
	}
	m.deadLetters.WithLabelValues(normalizeLabel(eventType)).Inc()
}

func (m *OutboxMetrics) ObserveCycle(d time.Duration) {
	if m == nil || m.cycle == nil {
		return
	}
	m.cycle.Observe(d.Seconds())
}

// SetBacklog publishes the pending count, records with errors and the age of
// the oldest pending record (zero when the queue is empty).
func (m *OutboxMetrics) SetBacklog(pending, withErrors int64, oldestAge time.Duration) {
	if m == nil || m.pending == nil {
		return
	}
	m.pending.Set(float64(pending))
	m.withErrors.Set(float64(withErrors))
	m.oldestAge.Set(oldestAge.Seconds())
}
