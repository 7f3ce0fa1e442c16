package outbox

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/orderflow/pkg/enums"
)

// DomainEvent is what producers hand to Emit.
type DomainEvent struct {
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	AggregateID   string
	Actor         *ActorRef
	Data          any
	Version       int
	OccurredAt    time.Time
}

// Event is a decoded integration event as seen by subscribers. ID is the
// envelope event id, distinct from the outbox record id.
type Event struct {
	ID            uuid.UUID
	RecordID      uuid.UUID
	Type          enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	AggregateID   string
	OccurredAt    time.Time
	Actor         *ActorRef
	Version       int
	Data          any
}
