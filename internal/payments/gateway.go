// Package payments defines the payment capability checkout depends on and
// its concrete providers.
package payments

import (
	"context"
	"fmt"
	"strings"

	"github.com/angelmondragon/orderflow/pkg/circuitbreaker"
	"github.com/angelmondragon/orderflow/pkg/config"
	"github.com/angelmondragon/orderflow/pkg/db/models"
	"github.com/angelmondragon/orderflow/pkg/enums"
	"github.com/angelmondragon/orderflow/pkg/logger"
	"github.com/angelmondragon/orderflow/pkg/square"
)

// Result is the provider's answer for one payment call.
type Result struct {
	Provider      enums.PaymentProvider
	TransactionID string
	Status        enums.PaymentAttemptStatus
	FailureReason string
}

func (r Result) Succeeded() bool {
	return r.Status == enums.PaymentAttemptSuccess
}

// Gateway charges an order. A declined charge is a Result with status
// failed, not an error; errors mean the outcome is unknown.
type Gateway interface {
	ProcessPayment(ctx context.Context, order *models.Order) (Result, error)
}

// NewGateway selects the provider named in cfg.Payment and wraps it in a
// circuit breaker.
func NewGateway(ctx context.Context, cfg *config.Config, logg *logger.Logger) (Gateway, error) {
	var gateway Gateway
	switch strings.ToLower(strings.TrimSpace(cfg.Payment.Provider)) {
	case "", string(enums.PaymentProviderMock):
		gateway = NewMockGateway(cfg.Payment.MockSuccessRate, nil)
	case string(enums.PaymentProviderSquare):
		client, err := square.NewClient(ctx, cfg.Square, logg)
		if err != nil {
			return nil, fmt.Errorf("square client: %w", err)
		}
		gateway = NewSquareGateway(client, cfg.Payment.Currency)
	default:
		return nil, fmt.Errorf("unsupported payment provider %q", cfg.Payment.Provider)
	}
	return NewBreakerGateway(gateway, circuitbreaker.New("payments", cfg.CircuitBreaker, logg)), nil
}
