// Package notifications emails customers about checkout outcomes.
package notifications

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/orderflow/pkg/logger"
)

// Sender delivers customer emails.
type Sender interface {
	SendSuccess(ctx context.Context, email, orderNumber string, amount decimal.Decimal) error
	SendFailure(ctx context.Context, email, orderNumber, reason string) error
}

// LogSender writes emails to the structured log instead of a mail server.
type LogSender struct {
	logg *logger.Logger
}

func NewLogSender(logg *logger.Logger) *LogSender {
	return &LogSender{logg: logg}
}

func (s *LogSender) SendSuccess(ctx context.Context, email, orderNumber string, amount decimal.Decimal) error {
	ctx = s.logg.WithFields(ctx, map[string]any{
		"to":           email,
		"order_number": orderNumber,
		"amount":       amount.StringFixed(2),
	})
	s.logg.Info(ctx, "payment success email sent")
	return nil
}

func (s *LogSender) SendFailure(ctx context.Context, email, orderNumber, reason string) error {
	ctx = s.logg.WithFields(ctx, map[string]any{
		"to":           email,
		"order_number": orderNumber,
		"reason":       reason,
	})
	s.logg.Info(ctx, "payment failure email sent")
	return nil
}
