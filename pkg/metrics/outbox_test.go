package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestOutboxMetricsExport(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewOutboxMetrics(reg)
	m.IncDispatch("order_paid", OutcomeProcessed)
	m.IncDispatch("order_paid", OutcomeProcessed)
	m.IncDispatch("", OutcomeSkipped)
	m.IncDeadLetter("order_failed")
	m.ObserveCycle(20 * time.Millisecond)
	m.SetBacklog(4, 1, 90*time.Second)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "outbox_dispatch_total", "outcome", OutcomeProcessed); err != nil || got != 2 {
		t.Fatalf("expected processed=2, got %f err=%v", got, err)
	}
	if got, err := fetchCounterValue(mfs, "outbox_dispatch_total", "event_type", "unknown"); err != nil || got != 1 {
		t.Fatalf("expected unknown label for empty type, got %f err=%v", got, err)
	}
	if got, err := fetchCounterValue(mfs, "outbox_dead_letters_total", "event_type", "order_failed"); err != nil || got != 1 {
		t.Fatalf("expected dead letter=1, got %f err=%v", got, err)
	}
	if got := gaugeValue(t, mfs, "outbox_pending_records"); got != 4 {
		t.Fatalf("expected pending=4, got %f", got)
	}
	if got := gaugeValue(t, mfs, "outbox_oldest_pending_age_seconds"); got != 90 {
		t.Fatalf("expected age=90, got %f", got)
	}
}

func TestCheckoutMetricsExport(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCheckoutMetrics(reg)
	m.IncOutcome(CheckoutPaid)
	m.IncOutcome(CheckoutDeclined)
	m.SetStalePending(3)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if got, err := fetchCounterValue(mfs, "checkout_attempts_total", "outcome", CheckoutDeclined); err != nil || got != 1 {
		t.Fatalf("expected declined=1, got %f err=%v", got, err)
	}
	if got := gaugeValue(t, mfs, "checkout_stale_pending_orders"); got != 3 {
		t.Fatalf("expected stale=3, got %f", got)
	}
}

func TestNilRegistererIsSafe(t *testing.T) {
	NewOutboxMetrics(nil).IncDispatch("x", OutcomeFailed)
	NewOutboxMetrics(nil).SetBacklog(1, 0, time.Second)
	NewCheckoutMetrics(nil).IncOutcome(CheckoutError)
	var m *OutboxMetrics
	m.ObserveCycle(time.Second)
}

func gaugeValue(t *testing.T, mfs []*dto.MetricFamily, name string) float64 {
	t.Helper()
	mf := findMetricFamily(mfs, name)
	if mf == nil || len(mf.GetMetric()) == 0 {
		t.Fatalf("gauge %q not found", name)
	}
	return mf.GetMetric()[0].GetGauge().GetValue()
}
