// Package production hands paid orders to the retouching production system
// and tracks their progress afterwards.
package production

import (
	"context"
	"errors"
	"math/rand"

	"github.com/angelmondragon/orderflow/pkg/circuitbreaker"
	pkgerrors "github.com/angelmondragon/orderflow/pkg/errors"
)

const DefaultMockSuccessRate = 0.9

// Client pushes an order into production. false means the production
// system refused it.
type Client interface {
	PushToProduction(ctx context.Context, orderID int64) (bool, error)
}

// MockClient accepts a configurable share of pushes at random.
type MockClient struct {
	successRate float64
	roll        func() float64
}

func NewMockClient(successRate float64, roll func() float64) *MockClient {
	if successRate <= 0 || successRate > 1 {
		successRate = DefaultMockSuccessRate
	}
	if roll == nil {
		roll = rand.Float64
	}
	return &MockClient{successRate: successRate, roll: roll}
}

func (c *MockClient) PushToProduction(ctx context.Context, _ int64) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return c.roll() < c.successRate, nil
}

// BreakerClient guards a Client with a circuit breaker.
type BreakerClient struct {
	next    Client
	breaker *circuitbreaker.Breaker
}

func NewBreakerClient(next Client, breaker *circuitbreaker.Breaker) *BreakerClient {
	return &BreakerClient{next: next, breaker: breaker}
}

func (c *BreakerClient) PushToProduction(ctx context.Context, orderID int64) (bool, error) {
	ok, err := circuitbreaker.Execute(c.breaker, func() (bool, error) {
		return c.next.PushToProduction(ctx, orderID)
	})
	if errors.Is(err, circuitbreaker.ErrUnavailable) {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "production system unavailable")
	}
	return ok, err
}
