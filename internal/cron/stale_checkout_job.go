package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/orderflow/pkg/db/models"
	"github.com/angelmondragon/orderflow/pkg/logger"
	"github.com/angelmondragon/orderflow/pkg/metrics"
)

const (
	defaultStaleCheckoutAfter = 30 * time.Minute
	staleCheckoutScanLimit    = 500
)

type staleOrderFinder interface {
	FindStalePendingPayment(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error)
}

type StaleCheckoutJobParams struct {
	Logger  *logger.Logger
	Orders  staleOrderFinder
	Metrics *metrics.CheckoutMetrics
	After   time.Duration
}

// NewStaleCheckoutJob reports orders stuck in pending payment, which happens
// when the gateway call errored or the process died mid checkout. The orders
// are left untouched; an operator reconciles them against the provider.
func NewStaleCheckoutJob(params StaleCheckoutJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	after := params.After
	if after <= 0 {
		after = defaultStaleCheckoutAfter
	}
	return &staleCheckoutJob{
		logg:    params.Logger,
		orders:  params.Orders,
		metrics: params.Metrics,
		after:   after,
		now:     time.Now,
	}, nil
}

type staleCheckoutJob struct {
	logg    *logger.Logger
	orders  staleOrderFinder
	metrics *metrics.CheckoutMetrics
	after   time.Duration
	now     func() time.Time
}

func (j *staleCheckoutJob) Name() string { return "stale-checkout" }

func (j *staleCheckoutJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.after)
	stale, err := j.orders.FindStalePendingPayment(ctx, cutoff, staleCheckoutScanLimit)
	if err != nil {
		return fmt.Errorf("stale checkout scan: %w", err)
	}
	j.metrics.SetStalePending(len(stale))

	for _, order := range stale {
		orderCtx := j.logg.WithOrderID(ctx, order.ID)
		fields := map[string]any{"order_number": order.OrderNumber, "version": order.Version}
		if order.UpdatedAt != nil {
			fields["pending_since"] = order.UpdatedAt.UTC()
		}
		j.logg.Warn(j.logg.WithFields(orderCtx, fields), "order stuck in pending payment")
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"cutoff": cutoff,
		"stale":  len(stale),
	}), "stale checkout scan complete")
	return nil
}
