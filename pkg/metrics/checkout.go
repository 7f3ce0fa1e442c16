package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Checkout outcomes.
const (
	CheckoutPaid     = "paid"
	CheckoutDeclined = "declined"
	CheckoutRejected = "rejected"
	CheckoutError    = "error"
)

// CheckoutMetrics counts checkout attempts by outcome and tracks orders
// stuck in pending payment.
type CheckoutMetrics struct {
	outcomes *prometheus.CounterVec
	stale    prometheus.Gauge
}

func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_attempts_total",
		Help: "Checkout attempts by outcome.",
	}, []string{"outcome"})
	stale := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "checkout_stale_pending_orders",
		Help: "Orders left in pending payment past the reconciliation threshold.",
	})
	reg.MustRegister(outcomes, stale)
	return &CheckoutMetrics{outcomes: outcomes, stale: stale}
}

func (m *CheckoutMetrics) IncOutcome(outcome string) {
	if m == nil || m.outcomes == nil {
		return
	}
	m.outcomes.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func (m *CheckoutMetrics) SetStalePending(count int) {
	if m == nil || m.stale == nil {
		return
	}
	m.stale.Set(float64(count))
}
