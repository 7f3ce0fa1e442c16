package payments

import (
	"context"
	"errors"

	"github.com/angelmondragon/orderflow/pkg/circuitbreaker"
	"github.com/angelmondragon/orderflow/pkg/db/models"
	pkgerrors "github.com/angelmondragon/orderflow/pkg/errors"
)

// BreakerGateway stops calling a failing provider. Declines are results,
// so only transport and provider faults count toward tripping.
type BreakerGateway struct {
	next    Gateway
	breaker *circuitbreaker.Breaker
}

func NewBreakerGateway(next Gateway, breaker *circuitbreaker.Breaker) *BreakerGateway {
	return &BreakerGateway{next: next, breaker: breaker}
}

func (g *BreakerGateway) ProcessPayment(ctx context.Context, order *models.Order) (Result, error) {
	result, err := circuitbreaker.Execute(g.breaker, func() (Result, error) {
		return g.next.ProcessPayment(ctx, order)
	})
	if errors.Is(err, circuitbreaker.ErrUnavailable) {
		return Result{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "payment provider unavailable")
	}
	return result, err
}
