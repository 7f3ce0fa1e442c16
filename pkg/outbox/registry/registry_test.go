package registry

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/orderflow/pkg/db/models"
	"github.com/angelmondragon/orderflow/pkg/enums"
	"github.com/angelmondragon/orderflow/pkg/outbox"
	"github.com/angelmondragon/orderflow/pkg/outbox/payloads"
)

func TestEventRegistryResolveSuccess(t *testing.T) {
	reg := Default()

	eventID := uuid.New()
	payloadBytes := mustMarshal(t, payloads.OrderPaidEvent{
		OrderID:       1,
		OrderNumber:   "ORD-1001",
		CustomerEmail: "buyer@example.com",
		TotalAmount:   decimal.RequireFromString("42.50"),
		Currency:      "USD",
	})

	record := models.OutboxRecord{
		ID:            uuid.New(),
		EventType:     enums.EventOrderPaid,
		AggregateType: enums.AggregateOrder,
		AggregateID:   "1",
		Payload:       mustEnvelope(t, eventID.String(), payloadBytes),
	}

	event, err := reg.Resolve(record)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if event.ID != eventID {
		t.Fatalf("expected envelope event id %s got %s", eventID, event.ID)
	}
	if event.RecordID != record.ID {
		t.Fatalf("expected record id to be carried")
	}
	if event.Actor == nil || event.Actor.ID != "actor-1" {
		t.Fatalf("expected actor to be decoded, got %+v", event.Actor)
	}
	payload, ok := event.Data.(*payloads.OrderPaidEvent)
	if !ok {
		t.Fatalf("unexpected payload type %T", event.Data)
	}
	if payload.OrderID != 1 || !payload.TotalAmount.Equal(decimal.RequireFromString("42.5")) {
		t.Fatalf("payload mismatch %+v", payload)
	}
	if event.OccurredAt.IsZero() {
		t.Fatalf("event missing occurred_at")
	}
}

func TestEventRegistryResolveUnknownEvent(t *testing.T) {
	reg := Default()

	record := models.OutboxRecord{
		EventType:     enums.OutboxEventType("OrderShipped"),
		AggregateType: enums.AggregateOrder,
		AggregateID:   "1",
		Payload:       mustEnvelope(t, uuid.NewString(), []byte(`{"order_id":1}`)),
	}

	_, err := reg.Resolve(record)
	if !errors.Is(err, ErrUnresolvedEventType) {
		t.Fatalf("expected ErrUnresolvedEventType, got %v", err)
	}
}

func TestEventRegistryResolveNonRetryable(t *testing.T) {
	reg := Default()
	cases := map[string]models.OutboxRecord{
		"aggregate mismatch": {
			EventType:     enums.EventOrderPaid,
			AggregateType: enums.AggregateInvoice,
			AggregateID:   "1",
			Payload:       mustEnvelope(t, uuid.NewString(), []byte(`{"order_id":1}`)),
		},
		"missing aggregate id": {
			EventType:     enums.EventOrderPaid,
			AggregateType: enums.AggregateOrder,
			Payload:       mustEnvelope(t, uuid.NewString(), []byte(`{"order_id":1}`)),
		},
		"null payload": {
			EventType:     enums.EventOrderFailed,
			AggregateType: enums.AggregateOrder,
			AggregateID:   "1",
			Payload:       mustEnvelope(t, uuid.NewString(), []byte("null")),
		},
		"bad event id": {
			EventType:     enums.EventOrderFailed,
			AggregateType: enums.AggregateOrder,
			AggregateID:   "1",
			Payload:       mustEnvelope(t, "not-a-uuid", []byte(`{"order_id":1}`)),
		},
	}
	for name, record := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := reg.Resolve(record)
			var nonRetry NonRetryableError
			if !errors.As(err, &nonRetry) {
				t.Fatalf("expected non-retryable error, got %v", err)
			}
		})
	}
}

func TestEventRegistryResolveMalformedPayload(t *testing.T) {
	reg := Default()
	record := models.OutboxRecord{
		EventType:     enums.EventOrderPaid,
		AggregateType: enums.AggregateOrder,
		AggregateID:   "1",
		Payload:       mustEnvelope(t, uuid.NewString(), []byte(`{"order_id":"one"}`)),
	}

	_, err := reg.Resolve(record)
	if err == nil {
		t.Fatal("expected decode error")
	}
	var nonRetry NonRetryableError
	if !errors.As(err, &nonRetry) {
		t.Fatalf("expected non-retryable decode error, got %v", err)
	}
	if errors.Is(err, ErrUnresolvedEventType) {
		t.Fatalf("decode error must not report an unresolved type: %v", err)
	}

	record.Payload = json.RawMessage(`{"eventId":`)
	if _, err := reg.Resolve(record); !errors.As(err, &nonRetry) {
		t.Fatalf("expected non-retryable envelope error, got %v", err)
	}
}

func TestDefaultRegistersEveryEventType(t *testing.T) {
	reg := Default()
	for _, eventType := range []enums.OutboxEventType{
		enums.EventOrderPaid,
		enums.EventOrderFailed,
		enums.EventInvoiceCreated,
		enums.EventOrderSubmittedToProduction,
	} {
		if _, ok := reg.Lookup(eventType); !ok {
			t.Fatalf("expected %s to be registered", eventType)
		}
	}
}

func mustMarshal(t *testing.T, v any) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return data
}

func mustEnvelope(t *testing.T, eventID string, payload []byte) json.RawMessage {
	t.Helper()
	envelope := outbox.PayloadEnvelope{
		Version:    1,
		EventID:    eventID,
		OccurredAt: time.Now().UTC(),
		Actor:      &outbox.ActorRef{ID: "actor-1"},
		Data:       payload,
	}
	data, err := json.Marshal(envelope)
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	return data
}
