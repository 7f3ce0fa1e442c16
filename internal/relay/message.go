// Package relay forwards decoded outbox events to external brokers.
package relay

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/angelmondragon/orderflow/pkg/outbox"
)

// Message is the wire form of a relayed event.
type Message struct {
	EventID       string           `json:"event_id"`
	EventType     string           `json:"event_type"`
	AggregateType string           `json:"aggregate_type"`
	AggregateID   string           `json:"aggregate_id"`
	OccurredAt    time.Time        `json:"occurred_at"`
	Version       int              `json:"version"`
	Actor         *outbox.ActorRef `json:"actor,omitempty"`
	Data          any              `json:"data"`
}

// Encode serializes event and returns the attributes every broker message
// carries.
func Encode(event outbox.Event) ([]byte, map[string]string, error) {
	body, err := json.Marshal(Message{
		EventID:       event.ID.String(),
		EventType:     event.Type.String(),
		AggregateType: string(event.AggregateType),
		AggregateID:   event.AggregateID,
		OccurredAt:    event.OccurredAt,
		Version:       event.Version,
		Actor:         event.Actor,
		Data:          event.Data,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("encode %s: %w", event.Type, err)
	}
	attrs := map[string]string{
		"event_id":       event.ID.String(),
		"event_type":     event.Type.String(),
		"aggregate_type": string(event.AggregateType),
		"aggregate_id":   event.AggregateID,
		"version":        strconv.Itoa(event.Version),
	}
	return body, attrs, nil
}

// partitionKey keeps every event of one aggregate on the same partition.
func partitionKey(event outbox.Event) string {
	return string(event.AggregateType) + ":" + event.AggregateID
}
