package registry

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/orderflow/pkg/db/models"
	"github.com/angelmondragon/orderflow/pkg/enums"
	"github.com/angelmondragon/orderflow/pkg/outbox"
	"github.com/angelmondragon/orderflow/pkg/outbox/payloads"
)

// ErrUnresolvedEventType means no descriptor is registered for a tag. It is a
// deploy mismatch, so the dispatcher records it without spending a retry.
var ErrUnresolvedEventType = errors.New("unresolved event type")

// EventDescriptor links an event tag to its aggregate and payload schema.
type EventDescriptor struct {
	EventType      enums.OutboxEventType
	AggregateType  enums.OutboxAggregateType
	PayloadFactory func() any
}

// EventRegistry maps each supported event tag to its descriptor. It is built
// once at startup and read-only afterwards.
type EventRegistry struct {
	entries map[enums.OutboxEventType]EventDescriptor
}

// NonRetryableError marks a row whose content can never decode. The
// dispatcher records it and leaves the row alone.
type NonRetryableError struct {
	Err error
}

// Error implements error.
func (e NonRetryableError) Error() string {
	if e.Err == nil {
		return "non-retryable error"
	}
	return e.Err.Error()
}

// Unwrap exposes the wrapped error.
func (e NonRetryableError) Unwrap() error {
	return e.Err
}

// NewNonRetryableError wraps an error to signal no retries.
func NewNonRetryableError(err error) NonRetryableError {
	return NonRetryableError{Err: err}
}

// New builds an empty registry.
func New() *EventRegistry {
	return &EventRegistry{entries: make(map[enums.OutboxEventType]EventDescriptor)}
}

// Default registers every event the order flow emits.
func Default() *EventRegistry {
	reg := New()
	for _, desc := range []EventDescriptor{
		{
			EventType:      enums.EventOrderPaid,
			AggregateType:  enums.AggregateOrder,
			PayloadFactory: func() any { return &payloads.OrderPaidEvent{} },
		},
		{
			EventType:      enums.EventOrderFailed,
			AggregateType:  enums.AggregateOrder,
			PayloadFactory: func() any { return &payloads.OrderFailedEvent{} },
		},
		{
			EventType:      enums.EventInvoiceCreated,
			AggregateType:  enums.AggregateInvoice,
			PayloadFactory: func() any { return &payloads.InvoiceCreatedEvent{} },
		},
		{
			EventType:      enums.EventOrderSubmittedToProduction,
			AggregateType:  enums.AggregateOrder,
			PayloadFactory: func() any { return &payloads.OrderSubmittedToProductionEvent{} },
		},
	} {
		reg.Register(desc)
	}
	return reg
}

// Register adds or replaces the descriptor for desc.EventType.
func (r *EventRegistry) Register(desc EventDescriptor) {
	if desc.PayloadFactory == nil {
		return
	}
	r.entries[desc.EventType] = desc
}

// Lookup returns the descriptor for an event tag.
func (r *EventRegistry) Lookup(eventType enums.OutboxEventType) (EventDescriptor, bool) {
	desc, ok := r.entries[eventType]
	return desc, ok
}

// Resolve decodes the row into a typed event. Errors wrap
// ErrUnresolvedEventType or NonRetryableError; a stored payload that fails to
// decode once will fail the same way on every later cycle.
func (r *EventRegistry) Resolve(record models.OutboxRecord) (*outbox.Event, error) {
	desc, ok := r.entries[record.EventType]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnresolvedEventType, record.EventType)
	}
	if desc.AggregateType != record.AggregateType {
		return nil, NewNonRetryableError(fmt.Errorf("aggregate mismatch: expected %s got %s", desc.AggregateType, record.AggregateType))
	}
	if strings.TrimSpace(record.AggregateID) == "" {
		return nil, NewNonRetryableError(errors.New("missing aggregate_id"))
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(record.Payload, &envelope); err != nil {
		return nil, NewNonRetryableError(fmt.Errorf("decode envelope: %w", err))
	}

	trimmed := bytes.TrimSpace(envelope.Data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, NewNonRetryableError(fmt.Errorf("payload missing for %s", record.EventType))
	}

	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		return nil, NewNonRetryableError(fmt.Errorf("invalid event id %q: %w", envelope.EventID, err))
	}

	payload := desc.PayloadFactory()
	if err := json.Unmarshal(envelope.Data, payload); err != nil {
		return nil, NewNonRetryableError(fmt.Errorf("decode %s payload: %w", record.EventType, err))
	}

	occurredAt := envelope.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = record.OccurredAt
	}

	return &outbox.Event{
		ID:            eventID,
		RecordID:      record.ID,
		Type:          record.EventType,
		AggregateType: record.AggregateType,
		AggregateID:   record.AggregateID,
		OccurredAt:    occurredAt.UTC(),
		Actor:         envelope.Actor,
		Version:       envelope.Version,
		Data:          payload,
	}, nil
}
