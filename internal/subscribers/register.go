// Package subscribers assembles the in-process event publisher with every
// consumer of order events.
package subscribers

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/multierr"

	"github.com/angelmondragon/orderflow/internal/invoices"
	"github.com/angelmondragon/orderflow/internal/notifications"
	"github.com/angelmondragon/orderflow/internal/orders"
	"github.com/angelmondragon/orderflow/internal/production"
	"github.com/angelmondragon/orderflow/internal/relay"
	"github.com/angelmondragon/orderflow/pkg/circuitbreaker"
	"github.com/angelmondragon/orderflow/pkg/config"
	"github.com/angelmondragon/orderflow/pkg/db"
	"github.com/angelmondragon/orderflow/pkg/enums"
	"github.com/angelmondragon/orderflow/pkg/eventbus"
	"github.com/angelmondragon/orderflow/pkg/kafka"
	"github.com/angelmondragon/orderflow/pkg/logger"
	"github.com/angelmondragon/orderflow/pkg/outbox"
	"github.com/angelmondragon/orderflow/pkg/outbox/idempotency"
	"github.com/angelmondragon/orderflow/pkg/pubsub"
	"github.com/angelmondragon/orderflow/pkg/redis"
)

// Set is every subscriber the publisher fans out to. Relay forwarders are
// optional.
type Set struct {
	Email      *notifications.Subscriber
	Invoices   *invoices.Subscriber
	Production *production.Subscriber
	PubSub     *relay.PubSubForwarder
	Kafka      *relay.KafkaForwarder
}

// Register subscribes the set on bus. Subscribers for one event run in
// registration order: email, invoice, then production.
func Register(bus *eventbus.Bus, set Set) error {
	if bus == nil {
		return errors.New("event bus required")
	}
	if set.Email == nil || set.Invoices == nil || set.Production == nil {
		return errors.New("email, invoice and production subscribers are required")
	}
	bus.Subscribe(enums.EventOrderPaid, notifications.SubscriberName, eventbus.Typed(set.Email.HandleOrderPaid))
	bus.Subscribe(enums.EventOrderFailed, notifications.SubscriberName, eventbus.Typed(set.Email.HandleOrderFailed))
	bus.Subscribe(enums.EventOrderPaid, invoices.SubscriberName, eventbus.Typed(set.Invoices.HandleOrderPaid))
	bus.Subscribe(enums.EventOrderPaid, production.SubscriberName, eventbus.Typed(set.Production.HandleOrderPaid))
	if set.PubSub != nil {
		bus.SubscribeAll(relay.PubSubSubscriberName, set.PubSub.Handle)
	}
	if set.Kafka != nil {
		bus.SubscribeAll(relay.KafkaSubscriberName, set.Kafka.Handle)
	}
	return nil
}

// Params are the shared clients the subscribers are built from. Redis may
// be nil.
type Params struct {
	Config *config.Config
	Logger *logger.Logger
	DB     *db.Client
	Redis  *redis.Client
	Outbox *outbox.Service
}

// Build wires a publisher with all subscribers enabled by cfg. The returned
// close func releases broker clients.
func Build(ctx context.Context, p Params) (*eventbus.Bus, func() error, error) {
	if p.Config == nil || p.Logger == nil || p.DB == nil || p.Outbox == nil {
		return nil, nil, errors.New("config, logger, db and outbox are required")
	}
	cfg := p.Config
	closers := []func() error{}
	closeAll := func() error {
		var err error
		for _, fn := range closers {
			err = multierr.Append(err, fn())
		}
		return err
	}

	email, err := newEmailSubscriber(cfg, p)
	if err != nil {
		return nil, nil, err
	}

	conn := p.DB.DB()
	invoiceSub, err := invoices.NewSubscriber(p.DB, invoices.NewRepository(conn), p.Outbox, p.Logger, nil)
	if err != nil {
		return nil, nil, err
	}

	client := production.NewBreakerClient(
		production.NewMockClient(cfg.Production.MockSuccessRate, nil),
		circuitbreaker.New("production", cfg.CircuitBreaker, p.Logger),
	)
	productionSub, err := production.NewSubscriber(production.SubscriberParams{
		DB:     p.DB,
		Orders: orders.NewRepository(conn),
		Outbox: p.Outbox,
		Client: client,
		Logger: p.Logger,
	})
	if err != nil {
		return nil, nil, err
	}

	set := Set{Email: email, Invoices: invoiceSub, Production: productionSub}

	if cfg.FeatureFlags.RelayPubSub {
		psClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, p.Logger)
		if err != nil {
			return nil, nil, multierr.Append(fmt.Errorf("pubsub relay: %w", err), closeAll())
		}
		closers = append(closers, psClient.Close)
		if set.PubSub, err = relay.NewPubSubForwarder(psClient, p.Logger); err != nil {
			return nil, nil, multierr.Append(err, closeAll())
		}
	}
	if cfg.FeatureFlags.RelayKafka {
		writer, err := kafka.NewWriter(cfg.Kafka, p.Logger)
		if err != nil {
			return nil, nil, multierr.Append(fmt.Errorf("kafka relay: %w", err), closeAll())
		}
		closers = append(closers, writer.Close)
		if set.Kafka, err = relay.NewKafkaForwarder(writer, p.Logger); err != nil {
			return nil, nil, multierr.Append(err, closeAll())
		}
	}

	bus := eventbus.New()
	if err := Register(bus, set); err != nil {
		return nil, nil, multierr.Append(err, closeAll())
	}
	return bus, closeAll, nil
}

func newEmailSubscriber(cfg *config.Config, p Params) (*notifications.Subscriber, error) {
	sender := notifications.NewLogSender(p.Logger)
	if p.Redis == nil {
		p.Logger.Warn(context.Background(), "redis not configured, email delivery is not deduplicated")
		return notifications.NewSubscriber(sender, nil, p.Logger)
	}
	manager, err := idempotency.NewManager(p.Redis, cfg.Eventing.IdempotencyTTL)
	if err != nil {
		return nil, err
	}
	return notifications.NewSubscriber(sender, manager, p.Logger)
}
