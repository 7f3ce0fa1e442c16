package production

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/orderflow/internal/orders"
	"github.com/angelmondragon/orderflow/pkg/actor"
	"github.com/angelmondragon/orderflow/pkg/enums"
	"github.com/angelmondragon/orderflow/pkg/logger"
	"github.com/angelmondragon/orderflow/pkg/outbox"
	"github.com/angelmondragon/orderflow/pkg/outbox/payloads"
)

const SubscriberName = "production"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) (uuid.UUID, error)
}

type SubscriberParams struct {
	DB     txRunner
	Orders orders.Repository
	Outbox outboxEmitter
	Client Client
	Logger *logger.Logger
	Now    func() time.Time
}

// Subscriber submits paid orders to production.
type Subscriber struct {
	db     txRunner
	orders orders.Repository
	outbox outboxEmitter
	client Client
	logg   *logger.Logger
	now    func() time.Time
}

func NewSubscriber(params SubscriberParams) (*Subscriber, error) {
	if params.DB == nil {
		return nil, errors.New("tx runner required")
	}
	if params.Orders == nil {
		return nil, errors.New("orders repository required")
	}
	if params.Outbox == nil {
		return nil, errors.New("outbox emitter required")
	}
	if params.Client == nil {
		return nil, errors.New("production client required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Subscriber{
		db:     params.DB,
		orders: params.Orders,
		outbox: params.Outbox,
		client: params.Client,
		logg:   params.Logger,
		now:    now,
	}, nil
}

// HandleOrderPaid moves a paid order to submitted-to-production together
// with its event, then pushes it. A redelivered event finds the order past
// Paid and does nothing, and an order that no longer exists is skipped. The
// push result is only logged.
func (s *Subscriber) HandleOrderPaid(ctx context.Context, event outbox.Event, payload *payloads.OrderPaidEvent) error {
	ctx = s.logg.WithOrderID(ctx, payload.OrderID)
	system := actor.System()

	submitted := false
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.orders.WithTx(tx)
		order, err := repo.FindByID(ctx, payload.OrderID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.logg.Warn(ctx, "order not found, skipping production submission")
			return nil
		}
		if err != nil {
			return fmt.Errorf("load order %d: %w", payload.OrderID, err)
		}
		if order.Status != enums.OrderStatusPaid {
			s.logg.Info(s.logg.WithField(ctx, "status", order.Status), "order not paid, skipping production submission")
			return nil
		}

		now := s.now()
		order.MarkSubmittedToProduction(system.ID, now)
		if err := repo.Save(ctx, order); err != nil {
			return err
		}
		_, err = s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderSubmittedToProduction,
			AggregateType: enums.AggregateOrder,
			AggregateID:   strconv.FormatInt(order.ID, 10),
			Actor:         system.Ref(),
			OccurredAt:    now,
			Data: payloads.OrderSubmittedToProductionEvent{
				OrderID:     order.ID,
				OrderNumber: order.OrderNumber,
				SubmittedAt: now.UTC(),
			},
		})
		if err != nil {
			return err
		}
		submitted = true
		return nil
	})
	if err != nil || !submitted {
		return err
	}

	accepted, err := s.client.PushToProduction(ctx, payload.OrderID)
	switch {
	case err != nil:
		s.logg.Error(ctx, "push to production failed", err)
	case accepted:
		s.logg.Info(ctx, "order pushed to production")
	default:
		s.logg.Warn(ctx, "production system rejected order")
	}
	return nil
}
