// Package eventbus fans decoded outbox events out to in-process subscribers.
package eventbus

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/angelmondragon/orderflow/pkg/enums"
	"github.com/angelmondragon/orderflow/pkg/outbox"
)

// Handler reacts to one event. Handlers own their transaction boundaries and
// must tolerate redelivery of the same event id.
type Handler func(ctx context.Context, event outbox.Event) error

type subscription struct {
	name    string
	handler Handler
}

// Bus keeps an ordered subscriber list per event tag plus catch-all
// subscribers that see every event after the tagged ones.
type Bus struct {
	mu   sync.RWMutex
	subs map[enums.OutboxEventType][]subscription
	all  []subscription
}

func New() *Bus {
	return &Bus{subs: make(map[enums.OutboxEventType][]subscription)}
}

// SubscriberError identifies which subscriber failed a publish.
type SubscriberError struct {
	Subscriber string
	EventType  enums.OutboxEventType
	Err        error
}

func (e *SubscriberError) Error() string {
	return fmt.Sprintf("subscriber %s failed on %s: %v", e.Subscriber, e.EventType, e.Err)
}

func (e *SubscriberError) Unwrap() error {
	return e.Err
}

// Subscribe appends handler to the list for eventType. Subscribers run in
// registration order.
func (b *Bus) Subscribe(eventType enums.OutboxEventType, name string, handler Handler) {
	if handler == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[eventType] = append(b.subs[eventType], subscription{name: name, handler: handler})
}

// SubscribeAll registers handler for every event tag.
func (b *Bus) SubscribeAll(name string, handler Handler) {
	if handler == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.all = append(b.all, subscription{name: name, handler: handler})
}

// Subscribers lists subscriber names for eventType in invocation order.
func (b *Bus) Subscribers(eventType enums.OutboxEventType) []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	names := make([]string, 0, len(b.subs[eventType])+len(b.all))
	for _, sub := range b.subs[eventType] {
		names = append(names, sub.name)
	}
	for _, sub := range b.all {
		names = append(names, sub.name)
	}
	return names
}

// Publish runs every subscriber for the event sequentially and stops at the
// first failure. An event with no subscribers is delivered trivially.
func (b *Bus) Publish(ctx context.Context, event *outbox.Event) error {
	if event == nil {
		return errors.New("event required")
	}
	b.mu.RLock()
	targets := make([]subscription, 0, len(b.subs[event.Type])+len(b.all))
	targets = append(targets, b.subs[event.Type]...)
	targets = append(targets, b.all...)
	b.mu.RUnlock()

	for _, sub := range targets {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := sub.handler(ctx, *event); err != nil {
			return &SubscriberError{Subscriber: sub.name, EventType: event.Type, Err: err}
		}
	}
	return nil
}

// Typed adapts a handler that expects the decoded payload type T.
func Typed[T any](fn func(ctx context.Context, event outbox.Event, payload *T) error) Handler {
	return func(ctx context.Context, event outbox.Event) error {
		payload, ok := event.Data.(*T)
		if !ok || payload == nil {
			return fmt.Errorf("unexpected payload %T for %s", event.Data, event.Type)
		}
		return fn(ctx, event, payload)
	}
}
