// Package kafka wraps a segmentio/kafka-go writer for relaying outbox events.
package kafka

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/angelmondragon/orderflow/pkg/config"
	"github.com/angelmondragon/orderflow/pkg/logger"
)

// ErrDisabled is returned when no brokers are configured.
var ErrDisabled = errors.New("kafka disabled")

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Writer publishes keyed messages to a single topic.
type Writer struct {
	writer  messageWriter
	topic   string
	timeout time.Duration
}

// NewWriter builds a hash-balanced writer so messages sharing a key keep
// their relative order within a partition.
func NewWriter(cfg config.KafkaConfig, logg *logger.Logger) (*Writer, error) {
	brokers := cleanBrokers(cfg.Brokers)
	if len(brokers) == 0 {
		return nil, ErrDisabled
	}
	if strings.TrimSpace(cfg.EventsTopic) == "" {
		return nil, errors.New("kafka events topic is required")
	}
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        cfg.EventsTopic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
	}
	if logg != nil {
		logg.Info(logg.WithField(context.Background(), "topic", cfg.EventsTopic), "kafka writer configured")
	}
	return &Writer{writer: w, topic: cfg.EventsTopic, timeout: cfg.WriteTimeout}, nil
}

// NewWriterFrom wraps an existing message writer.
func NewWriterFrom(w messageWriter, topic string, timeout time.Duration) *Writer {
	return &Writer{writer: w, topic: topic, timeout: timeout}
}

func (w *Writer) Topic() string {
	return w.topic
}

// Publish writes value under key with the given headers.
func (w *Writer) Publish(ctx context.Context, key string, value []byte, headers map[string]string) error {
	if w == nil || w.writer == nil {
		return ErrDisabled
	}
	if w.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}
	msg := kafka.Message{
		Key:   []byte(key),
		Value: value,
		Time:  time.Now().UTC(),
	}
	for k, v := range headers {
		msg.Headers = append(msg.Headers, kafka.Header{Key: k, Value: []byte(v)})
	}
	return w.writer.WriteMessages(ctx, msg)
}

func (w *Writer) Close() error {
	if w == nil || w.writer == nil {
		return nil
	}
	return w.writer.Close()
}

func cleanBrokers(raw []string) []string {
	brokers := make([]string, 0, len(raw))
	for _, b := range raw {
		b = strings.TrimSpace(b)
		if b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}
