package relay

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/orderflow/pkg/enums"
	"github.com/angelmondragon/orderflow/pkg/logger"
	"github.com/angelmondragon/orderflow/pkg/outbox"
	"github.com/angelmondragon/orderflow/pkg/outbox/payloads"
)

type fakePubSub struct {
	data  []byte
	attrs map[string]string
	err   error
}

func (f *fakePubSub) Publish(_ context.Context, data []byte, attrs map[string]string, _ string) (string, error) {
	f.data, f.attrs = data, attrs
	return "msg-1", f.err
}

type fakeKafka struct {
	key     string
	value   []byte
	headers map[string]string
	err     error
}

func (f *fakeKafka) Publish(_ context.Context, key string, value []byte, headers map[string]string) error {
	f.key, f.value, f.headers = key, value, headers
	return f.err
}

func sampleEvent() outbox.Event {
	return outbox.Event{
		ID:            uuid.MustParse("2f1a4c52-6f67-4c55-9d5c-7f1e0b1c2d3e"),
		Type:          enums.EventOrderPaid,
		AggregateType: enums.AggregateOrder,
		AggregateID:   "7",
		OccurredAt:    time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Version:       1,
		Data:          &payloads.OrderPaidEvent{OrderID: 7, TotalAmount: decimal.RequireFromString("50.00")},
	}
}

func TestPubSubForwarder(t *testing.T) {
	pub := &fakePubSub{}
	fwd, err := NewPubSubForwarder(pub, logger.Nop())
	require.NoError(t, err)

	require.NoError(t, fwd.Handle(context.Background(), sampleEvent()))
	assert.Equal(t, "order_paid", pub.attrs["event_type"])
	assert.Equal(t, "2f1a4c52-6f67-4c55-9d5c-7f1e0b1c2d3e", pub.attrs["event_id"])

	var msg Message
	require.NoError(t, json.Unmarshal(pub.data, &msg))
	assert.Equal(t, "7", msg.AggregateID)
	data, ok := msg.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "50", data["total_amount"])

	pub.err = errors.New("unavailable")
	assert.Error(t, fwd.Handle(context.Background(), sampleEvent()))
}

func TestKafkaForwarder(t *testing.T) {
	writer := &fakeKafka{}
	fwd, err := NewKafkaForwarder(writer, logger.Nop())
	require.NoError(t, err)

	require.NoError(t, fwd.Handle(context.Background(), sampleEvent()))
	assert.Equal(t, "order:7", writer.key)
	assert.Equal(t, "order", writer.headers["aggregate_type"])
	assert.JSONEq(t, `{"order_id":7,"order_number":"","customer_email":"","total_amount":"50","currency":"","paid_at":"0001-01-01T00:00:00Z"}`,
		string(mustData(t, writer.value)))

	_, err = NewKafkaForwarder(nil, logger.Nop())
	assert.Error(t, err)
}

func mustData(t *testing.T, body []byte) json.RawMessage {
	t.Helper()
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(body, &envelope))
	return envelope.Data
}
