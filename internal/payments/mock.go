package payments

import (
	"context"
	"math/rand"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/orderflow/pkg/db/models"
	"github.com/angelmondragon/orderflow/pkg/enums"
)

const (
	DefaultMockSuccessRate = 0.8
	MockDeclineReason      = "Payment declined by mock provider"
)

// MockGateway approves a configurable share of payments at random.
type MockGateway struct {
	successRate float64
	roll        func() float64
}

// NewMockGateway returns a gateway approving successRate of calls. roll
// defaults to math/rand and exists so tests can pin the outcome.
func NewMockGateway(successRate float64, roll func() float64) *MockGateway {
	if successRate <= 0 || successRate > 1 {
		successRate = DefaultMockSuccessRate
	}
	if roll == nil {
		roll = rand.Float64
	}
	return &MockGateway{successRate: successRate, roll: roll}
}

func (g *MockGateway) ProcessPayment(ctx context.Context, order *models.Order) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	result := Result{
		Provider:      enums.PaymentProviderMock,
		TransactionID: strings.ReplaceAll(uuid.NewString(), "-", ""),
	}
	if g.roll() < g.successRate {
		result.Status = enums.PaymentAttemptSuccess
		return result, nil
	}
	result.Status = enums.PaymentAttemptFailed
	result.FailureReason = MockDeclineReason
	return result, nil
}
