// Package circuitbreaker guards calls to external providers with sony/gobreaker.
package circuitbreaker

import (
	"context"
	"errors"
	"fmt"

	"github.com/sony/gobreaker"

	"github.com/angelmondragon/orderflow/pkg/config"
	"github.com/angelmondragon/orderflow/pkg/logger"
)

// ErrUnavailable wraps rejections while the breaker is open or probing.
var ErrUnavailable = errors.New("dependency unavailable")

type Breaker struct {
	name    string
	breaker *gobreaker.CircuitBreaker
}

// New builds a named breaker that trips after cfg.ConsecutiveFailures
// failures in a row and logs every state change.
func New(name string, cfg config.CircuitBreakerConfig, logg *logger.Logger) *Breaker {
	threshold := cfg.ConsecutiveFailures
	if threshold == 0 {
		threshold = 5
	}
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if logg == nil {
				return
			}
			ctx := logg.WithFields(context.Background(), map[string]any{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			})
			logg.Warn(ctx, "circuit breaker state changed")
		},
	}
	return &Breaker{name: name, breaker: gobreaker.NewCircuitBreaker(settings)}
}

func (b *Breaker) Name() string {
	return b.name
}

// State returns the gobreaker state name: closed, open or half-open.
func (b *Breaker) State() string {
	return b.breaker.State().String()
}

// Execute runs fn through the breaker and returns its typed result.
func Execute[T any](b *Breaker, fn func() (T, error)) (T, error) {
	var zero T
	if b == nil {
		return fn()
	}
	out, err := b.breaker.Execute(func() (interface{}, error) {
		return fn()
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return zero, fmt.Errorf("%s: %w: %v", b.name, ErrUnavailable, err)
		}
		if out == nil {
			return zero, err
		}
		typed, _ := out.(T)
		return typed, err
	}
	typed, ok := out.(T)
	if !ok {
		return zero, fmt.Errorf("%s: unexpected result %T", b.name, out)
	}
	return typed, nil
}
