package square

import (
	"strings"

	"github.com/shopspring/decimal"
	sq "github.com/square/square-go-sdk"
)

const defaultCurrency = "USD"

// PaymentCreateParams describes one charge. Empty LocationID and SourceID
// fall back to the client's configured values.
type PaymentCreateParams struct {
	AmountCents    int64
	Currency       string
	LocationID     string
	SourceID       string
	IdempotencyKey string
	Note           string
	ReferenceID    string
	BuyerEmail     string
}

func (p PaymentCreateParams) request(idempotencyKey string) *sq.CreatePaymentRequest {
	return &sq.CreatePaymentRequest{
		IdempotencyKey:    idempotencyKey,
		SourceID:          p.SourceID,
		LocationID:        optional(p.LocationID),
		AmountMoney:       money(p.AmountCents, p.Currency),
		Note:              optional(p.Note),
		ReferenceID:       optional(p.ReferenceID),
		BuyerEmailAddress: optional(p.BuyerEmail),
	}
}

// ToCents converts a decimal amount into the smallest currency unit.
func ToCents(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

func money(cents int64, currency string) *sq.Money {
	if cents <= 0 {
		return nil
	}
	code := strings.ToUpper(strings.TrimSpace(currency))
	if code == "" {
		code = defaultCurrency
	}
	c := sq.Currency(code)
	return &sq.Money{Amount: &cents, Currency: &c}
}

func optional(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}
