package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderPaidEvent is emitted when checkout captures payment.
type OrderPaidEvent struct {
	OrderID       int64           `json:"order_id"`
	OrderNumber   string          `json:"order_number"`
	CustomerEmail string          `json:"customer_email"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	Currency      string          `json:"currency"`
	PaidAt        time.Time       `json:"paid_at"`
}

// OrderFailedEvent is emitted when the payment gateway declines checkout.
type OrderFailedEvent struct {
	OrderID       int64  `json:"order_id"`
	OrderNumber   string `json:"order_number"`
	CustomerEmail string `json:"customer_email"`
	Reason        string `json:"reason"`
}

// InvoiceCreatedEvent is emitted once an invoice row is stored for a paid order.
type InvoiceCreatedEvent struct {
	InvoiceID     uuid.UUID       `json:"invoice_id"`
	InvoiceNumber string          `json:"invoice_number"`
	OrderID       int64           `json:"order_id"`
	CustomerEmail string          `json:"customer_email"`
	Amount        decimal.Decimal `json:"amount"`
}

// OrderSubmittedToProductionEvent records the hand-off to the production system.
type OrderSubmittedToProductionEvent struct {
	OrderID     int64     `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	SubmittedAt time.Time `json:"submitted_at"`
}
