// Package checkout drives one payment attempt for an order and records the
// outcome together with its integration event.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/orderflow/internal/orders"
	"github.com/angelmondragon/orderflow/internal/payments"
	"github.com/angelmondragon/orderflow/pkg/actor"
	"github.com/angelmondragon/orderflow/pkg/config"
	"github.com/angelmondragon/orderflow/pkg/db"
	"github.com/angelmondragon/orderflow/pkg/db/models"
	"github.com/angelmondragon/orderflow/pkg/enums"
	pkgerrors "github.com/angelmondragon/orderflow/pkg/errors"
	"github.com/angelmondragon/orderflow/pkg/logger"
	"github.com/angelmondragon/orderflow/pkg/metrics"
	"github.com/angelmondragon/orderflow/pkg/outbox"
	"github.com/angelmondragon/orderflow/pkg/outbox/payloads"
)

const defaultDeclineReason = "Payment declined"

type unitOfWorkFactory interface {
	UnitOfWork() *db.UnitOfWork
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) (uuid.UUID, error)
}

// Service executes checkout orchestration.
type Service interface {
	// Checkout returns true when the order was paid and false when the
	// provider declined. Everything else is an error.
	Checkout(ctx context.Context, who actor.Actor, orderID int64) (bool, error)
}

type ServiceParams struct {
	DB      unitOfWorkFactory
	Orders  orders.Repository
	Gateway payments.Gateway
	Outbox  outboxEmitter
	// Leases is optional; when set each checkout holds a per-order lease.
	Leases   LeaseStore
	Config   config.CheckoutConfig
	Currency string
	Metrics  *metrics.CheckoutMetrics
	Logger   *logger.Logger
	Now      func() time.Time
}

type service struct {
	db       unitOfWorkFactory
	orders   orders.Repository
	gateway  payments.Gateway
	outbox   outboxEmitter
	leases   *leaseGuard
	cfg      config.CheckoutConfig
	currency string
	metrics  *metrics.CheckoutMetrics
	logg     *logger.Logger
	now      func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, errors.New("unit of work factory required")
	}
	if params.Orders == nil {
		return nil, errors.New("orders repository required")
	}
	if params.Gateway == nil {
		return nil, errors.New("payment gateway required")
	}
	if params.Outbox == nil {
		return nil, errors.New("outbox emitter required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	currency := params.Currency
	if currency == "" {
		currency = "USD"
	}
	return &service{
		db:       params.DB,
		orders:   params.Orders,
		gateway:  params.Gateway,
		outbox:   params.Outbox,
		leases:   newLeaseGuard(params.Leases, params.Config.LeaseTTL),
		cfg:      params.Config,
		currency: currency,
		metrics:  params.Metrics,
		logg:     params.Logger,
		now:      now,
	}, nil
}

func (s *service) Checkout(ctx context.Context, who actor.Actor, orderID int64) (bool, error) {
	who = who.OrSystem()
	ctx = s.logg.WithOrderID(s.logg.WithActor(ctx, who.ID), orderID)

	paid, err := s.checkout(ctx, who, orderID)
	switch {
	case err == nil && paid:
		s.metrics.IncOutcome(metrics.CheckoutPaid)
	case err == nil:
		s.metrics.IncOutcome(metrics.CheckoutDeclined)
	case pkgerrors.IsCode(err, pkgerrors.CodeNotFound),
		pkgerrors.IsCode(err, pkgerrors.CodeStateConflict),
		pkgerrors.IsCode(err, pkgerrors.CodeConflict),
		pkgerrors.IsCode(err, pkgerrors.CodeValidation):
		s.metrics.IncOutcome(metrics.CheckoutRejected)
		s.logg.Warn(s.logg.WithField(ctx, "reason", err.Error()), "checkout rejected")
	default:
		s.metrics.IncOutcome(metrics.CheckoutError)
		s.logg.Error(ctx, "checkout failed", err)
	}
	return paid, err
}

func (s *service) checkout(ctx context.Context, who actor.Actor, orderID int64) (bool, error) {
	if orderID <= 0 {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "order id must be positive")
	}

	release, err := s.leases.acquire(ctx, orderID)
	if err != nil {
		return false, err
	}
	defer release()

	order, err := s.markPendingPayment(ctx, who, orderID)
	if err != nil {
		return false, err
	}

	attemptedAt := s.now().UTC()
	result, err := s.charge(ctx, order)
	if err != nil {
		// Outcome unknown: the order stays pending payment for a retry or
		// reconciliation.
		if pkgerrors.As(err) != nil {
			return false, err
		}
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "payment provider call failed")
	}

	// The provider has answered; the outcome commits even if the caller
	// has gone away.
	if err := s.complete(context.WithoutCancel(ctx), who, order, result, attemptedAt); err != nil {
		return false, err
	}

	fields := map[string]any{
		"status":         order.Status,
		"provider":       result.Provider,
		"transaction_id": result.TransactionID,
	}
	s.logg.Info(s.logg.WithFields(ctx, fields), "checkout completed")
	return result.Succeeded(), nil
}

// markPendingPayment commits the pending transition before the provider is
// called. A version conflict reloads and re-validates the order.
func (s *service) markPendingPayment(ctx context.Context, who actor.Actor, orderID int64) (*models.Order, error) {
	retries := s.cfg.ConflictRetries
	if retries < 0 {
		retries = 0
	}
	for attempt := 0; ; attempt++ {
		order, err := s.orders.FindByID(ctx, orderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("order %d not found", orderID))
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
		}
		if !order.Status.IsCheckoutEligible() {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("order %d cannot be checked out from status %s", orderID, order.Status)).
				WithDetails(map[string]any{"status": order.Status})
		}

		order.MarkPendingPayment(who.ID, s.now())
		err = s.orders.Save(ctx, order)
		if err == nil {
			return order, nil
		}
		if !errors.Is(err, orders.ErrVersionConflict) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "save pending payment")
		}
		if attempt >= retries {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "order was modified concurrently")
		}
		s.logg.Warn(s.logg.WithField(ctx, "attempt", attempt+1), "order version conflict, reloading")
	}
}

func (s *service) charge(ctx context.Context, order *models.Order) (payments.Result, error) {
	if s.cfg.PaymentTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.PaymentTimeout)
		defer cancel()
	}
	return s.gateway.ProcessPayment(ctx, order)
}

// complete records the outcome: order transition, payment attempt and
// integration event commit together or not at all.
func (s *service) complete(ctx context.Context, who actor.Actor, order *models.Order, result payments.Result, attemptedAt time.Time) error {
	uow := s.db.UnitOfWork()
	if err := uow.Begin(ctx); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "begin checkout transaction")
	}
	defer func() {
		if rbErr := uow.Rollback(); rbErr != nil {
			s.logg.Error(ctx, "rollback checkout transaction", rbErr)
		}
	}()

	tx := uow.Conn()
	now := s.now()
	event := outbox.DomainEvent{
		AggregateType: enums.AggregateOrder,
		AggregateID:   strconv.FormatInt(order.ID, 10),
		Actor:         who.Ref(),
		OccurredAt:    now,
	}
	attempt := &models.PaymentAttempt{
		OrderID:     order.ID,
		Provider:    result.Provider,
		Amount:      order.TotalAmount,
		Currency:    s.currencyFor(order),
		AttemptedAt: attemptedAt,
	}
	if result.TransactionID != "" {
		txID := result.TransactionID
		attempt.TransactionID = &txID
	}
	if result.Succeeded() {
		order.MarkPaid(who.ID, now)
		attempt.Status = enums.PaymentAttemptSuccess
		event.EventType = enums.EventOrderPaid
		event.Data = payloads.OrderPaidEvent{
			OrderID:       order.ID,
			OrderNumber:   order.OrderNumber,
			CustomerEmail: order.CustomerEmail(),
			TotalAmount:   order.TotalAmount,
			Currency:      s.currencyFor(order),
			PaidAt:        *order.PaidAt,
		}
	} else {
		reason := result.FailureReason
		if reason == "" {
			reason = defaultDeclineReason
		}
		order.MarkPaymentFailed(who.ID, now)
		// A pending answer is kept as reported; the order still fails.
		attempt.Status = result.Status
		if !attempt.Status.IsValid() {
			attempt.Status = enums.PaymentAttemptFailed
		}
		attempt.FailureReason = &reason
		event.EventType = enums.EventOrderFailed
		event.Data = payloads.OrderFailedEvent{
			OrderID:       order.ID,
			OrderNumber:   order.OrderNumber,
			CustomerEmail: order.CustomerEmail(),
			Reason:        reason,
		}
	}

	if attempt.Status != enums.PaymentAttemptPending {
		completedAt := now.UTC()
		attempt.CompletedAt = &completedAt
	}

	repo := s.orders.WithTx(tx)
	if err := repo.Save(ctx, order); err != nil {
		if errors.Is(err, orders.ErrVersionConflict) {
			return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "order was modified during payment")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "save checkout outcome")
	}
	if err := repo.CreatePaymentAttempt(ctx, attempt); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record payment attempt")
	}
	if _, err := s.outbox.Emit(ctx, tx, event); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "append checkout event")
	}
	if err := uow.Commit(); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "commit checkout")
	}
	return nil
}

func (s *service) currencyFor(order *models.Order) string {
	if order.Currency != "" {
		return order.Currency
	}
	return s.currency
}
