package enums

import "fmt"

// OutboxAggregateType names the aggregate that produced an outbox record.
type OutboxAggregateType string

const (
	AggregateOrder   OutboxAggregateType = "order"
	AggregateInvoice OutboxAggregateType = "invoice"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateOrder,
	AggregateInvoice,
}

// IsValid reports whether the value matches a known aggregate type.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType is the stable tag stored in outbox.event_type. The dispatcher
// resolves decoders by this tag, never by a language type name.
type OutboxEventType string

const (
	EventOrderPaid                  OutboxEventType = "order_paid"
	EventOrderFailed                OutboxEventType = "order_failed"
	EventInvoiceCreated             OutboxEventType = "invoice_created"
	EventOrderSubmittedToProduction OutboxEventType = "order_submitted_to_production"
)

var validOutboxEventTypes = []OutboxEventType{
	EventOrderPaid,
	EventOrderFailed,
	EventInvoiceCreated,
	EventOrderSubmittedToProduction,
}

// IsValid reports whether the value matches a known event tag.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

func (e OutboxEventType) String() string {
	return string(e)
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
