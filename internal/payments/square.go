package payments

import (
	"context"
	"fmt"
	"strings"

	sq "github.com/square/square-go-sdk"

	"github.com/angelmondragon/orderflow/pkg/db/models"
	"github.com/angelmondragon/orderflow/pkg/enums"
	pkgerrors "github.com/angelmondragon/orderflow/pkg/errors"
	"github.com/angelmondragon/orderflow/pkg/square"
)

type squarePayer interface {
	CreatePayment(ctx context.Context, params square.PaymentCreateParams) (*sq.Payment, error)
}

// SquareGateway charges orders through the Square Payments API.
type SquareGateway struct {
	client   squarePayer
	currency string
}

func NewSquareGateway(client squarePayer, currency string) *SquareGateway {
	if strings.TrimSpace(currency) == "" {
		currency = "USD"
	}
	return &SquareGateway{client: client, currency: currency}
}

func (g *SquareGateway) ProcessPayment(ctx context.Context, order *models.Order) (Result, error) {
	currency := order.Currency
	if currency == "" {
		currency = g.currency
	}
	payment, err := g.client.CreatePayment(ctx, square.PaymentCreateParams{
		AmountCents: square.ToCents(order.TotalAmount),
		Currency:    currency,
		ReferenceID: order.OrderNumber,
		Note:        order.OrderName,
		BuyerEmail:  order.CustomerEmail(),
		// One key per order version keeps a retried call from charging twice.
		IdempotencyKey: fmt.Sprintf("order-%d-v%d", order.ID, order.Version),
	})
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodePaymentDeclined) {
			return Result{
				Provider:      enums.PaymentProviderSquare,
				Status:        enums.PaymentAttemptFailed,
				FailureReason: declineReason(err),
			}, nil
		}
		return Result{}, err
	}

	result := Result{Provider: enums.PaymentProviderSquare}
	if payment != nil && payment.GetID() != nil {
		result.TransactionID = *payment.GetID()
	}
	status := ""
	if payment != nil && payment.GetStatus() != nil {
		status = strings.ToUpper(*payment.GetStatus())
	}
	switch status {
	case "COMPLETED", "APPROVED":
		result.Status = enums.PaymentAttemptSuccess
	case "FAILED", "CANCELED":
		result.Status = enums.PaymentAttemptFailed
		result.FailureReason = fmt.Sprintf("square payment %s", strings.ToLower(status))
	default:
		result.Status = enums.PaymentAttemptPending
	}
	return result, nil
}

func declineReason(err error) string {
	if typed := pkgerrors.As(err); typed != nil && typed.Message() != "" {
		return typed.Message()
	}
	return "payment declined by square"
}
