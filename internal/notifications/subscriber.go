package notifications

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/orderflow/pkg/logger"
	"github.com/angelmondragon/orderflow/pkg/outbox"
	"github.com/angelmondragon/orderflow/pkg/outbox/payloads"
)

const SubscriberName = "email"

type onceRunner interface {
	Once(ctx context.Context, consumer string, eventID uuid.UUID, fn func(context.Context) error) (bool, error)
}

// Subscriber mails the customer when checkout succeeds or fails. With an
// idempotency guard a redelivered event sends nothing.
type Subscriber struct {
	sender Sender
	once   onceRunner
	logg   *logger.Logger
}

// NewSubscriber builds the email subscriber. once may be nil when Redis is
// not configured.
func NewSubscriber(sender Sender, once onceRunner, logg *logger.Logger) (*Subscriber, error) {
	if sender == nil {
		return nil, errors.New("email sender required")
	}
	if logg == nil {
		return nil, errors.New("logger required")
	}
	return &Subscriber{sender: sender, once: once, logg: logg}, nil
}

func (s *Subscriber) HandleOrderPaid(ctx context.Context, event outbox.Event, payload *payloads.OrderPaidEvent) error {
	return s.deliver(ctx, event, payload.CustomerEmail, func(ctx context.Context) error {
		return s.sender.SendSuccess(ctx, payload.CustomerEmail, payload.OrderNumber, payload.TotalAmount)
	})
}

func (s *Subscriber) HandleOrderFailed(ctx context.Context, event outbox.Event, payload *payloads.OrderFailedEvent) error {
	return s.deliver(ctx, event, payload.CustomerEmail, func(ctx context.Context) error {
		return s.sender.SendFailure(ctx, payload.CustomerEmail, payload.OrderNumber, payload.Reason)
	})
}

func (s *Subscriber) deliver(ctx context.Context, event outbox.Event, email string, send func(context.Context) error) error {
	ctx = s.logg.WithEvent(ctx, event.ID.String(), event.Type.String())
	if strings.TrimSpace(email) == "" {
		s.logg.Warn(ctx, "event has no customer email, skipping")
		return nil
	}
	if s.once == nil {
		return send(ctx)
	}
	consumer := fmt.Sprintf("%s:%s", SubscriberName, event.Type)
	skipped, err := s.once.Once(ctx, consumer, event.ID, send)
	if err != nil {
		return err
	}
	if skipped {
		s.logg.Info(ctx, "email already sent for event")
	}
	return nil
}
