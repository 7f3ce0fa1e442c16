package relay

import (
	"context"
	"errors"

	"github.com/angelmondragon/orderflow/pkg/logger"
	"github.com/angelmondragon/orderflow/pkg/outbox"
)

const (
	PubSubSubscriberName = "relay-pubsub"
	KafkaSubscriberName  = "relay-kafka"
)

type pubsubPublisher interface {
	Publish(ctx context.Context, data []byte, attributes map[string]string, orderingKey string) (string, error)
}

type kafkaPublisher interface {
	Publish(ctx context.Context, key string, value []byte, headers map[string]string) error
}

// PubSubForwarder publishes every event to the configured Pub/Sub topic.
type PubSubForwarder struct {
	publisher pubsubPublisher
	logg      *logger.Logger
}

func NewPubSubForwarder(publisher pubsubPublisher, logg *logger.Logger) (*PubSubForwarder, error) {
	if publisher == nil {
		return nil, errors.New("pubsub publisher required")
	}
	if logg == nil {
		return nil, errors.New("logger required")
	}
	return &PubSubForwarder{publisher: publisher, logg: logg}, nil
}

// Handle publishes without an ordering key; consumers order by occurred_at
// and dedupe by event_id.
func (f *PubSubForwarder) Handle(ctx context.Context, event outbox.Event) error {
	body, attrs, err := Encode(event)
	if err != nil {
		return err
	}
	messageID, err := f.publisher.Publish(ctx, body, attrs, "")
	if err != nil {
		return err
	}
	ctx = f.logg.WithEvent(ctx, event.ID.String(), event.Type.String())
	f.logg.Debug(f.logg.WithField(ctx, "message_id", messageID), "event relayed to pubsub")
	return nil
}

// KafkaForwarder writes every event to the configured Kafka topic keyed by
// aggregate.
type KafkaForwarder struct {
	writer kafkaPublisher
	logg   *logger.Logger
}

func NewKafkaForwarder(writer kafkaPublisher, logg *logger.Logger) (*KafkaForwarder, error) {
	if writer == nil {
		return nil, errors.New("kafka writer required")
	}
	if logg == nil {
		return nil, errors.New("logger required")
	}
	return &KafkaForwarder{writer: writer, logg: logg}, nil
}

func (f *KafkaForwarder) Handle(ctx context.Context, event outbox.Event) error {
	body, headers, err := Encode(event)
	if err != nil {
		return err
	}
	if err := f.writer.Publish(ctx, partitionKey(event), body, headers); err != nil {
		return err
	}
	f.logg.Debug(f.logg.WithEvent(ctx, event.ID.String(), event.Type.String()), "event relayed to kafka")
	return nil
}
