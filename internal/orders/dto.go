package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/orderflow/pkg/db/models"
	"github.com/angelmondragon/orderflow/pkg/enums"
)

// OrderSummary is one row of the order search.
type OrderSummary struct {
	ID            int64             `json:"id"`
	OrderNumber   string            `json:"order_number"`
	OrderName     string            `json:"order_name"`
	CustomerEmail string            `json:"customer_email"`
	Status        enums.OrderStatus `json:"status"`
	TotalAmount   decimal.Decimal   `json:"total_amount"`
	Currency      string            `json:"currency"`
	PaidAt        *time.Time        `json:"paid_at,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
}

type OrderItemView struct {
	ID          int64           `json:"id"`
	FileName    string          `json:"file_name"`
	RetouchType string          `json:"retouch_type"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Quantity    int             `json:"quantity"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

type CustomerView struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type PaymentAttemptView struct {
	ID            uuid.UUID                  `json:"id"`
	Provider      enums.PaymentProvider      `json:"provider"`
	TransactionID *string                    `json:"transaction_id,omitempty"`
	Status        enums.PaymentAttemptStatus `json:"status"`
	Amount        decimal.Decimal            `json:"amount"`
	Currency      string                     `json:"currency"`
	FailureReason *string                    `json:"failure_reason,omitempty"`
	AttemptedAt   time.Time                  `json:"attempted_at"`
	CompletedAt   *time.Time                 `json:"completed_at,omitempty"`
}

// OrderDetail is the full projection returned by the detail endpoint.
type OrderDetail struct {
	OrderSummary
	Customer        *CustomerView        `json:"customer,omitempty"`
	Items           []OrderItemView      `json:"items"`
	PaymentAttempts []PaymentAttemptView `json:"payment_attempts"`
	UpdatedBy       *string              `json:"updated_by,omitempty"`
	UpdatedAt       *time.Time           `json:"updated_at,omitempty"`
	Version         int                  `json:"version"`
}

func summaryFromModel(o models.Order) OrderSummary {
	return OrderSummary{
		ID:            o.ID,
		OrderNumber:   o.OrderNumber,
		OrderName:     o.OrderName,
		CustomerEmail: o.CustomerEmail(),
		Status:        o.Status,
		TotalAmount:   o.TotalAmount,
		Currency:      o.Currency,
		PaidAt:        o.PaidAt,
		CreatedAt:     o.CreatedAt,
	}
}

func detailFromModel(o models.Order) *OrderDetail {
	detail := &OrderDetail{
		OrderSummary:    summaryFromModel(o),
		Items:           make([]OrderItemView, 0, len(o.Items)),
		PaymentAttempts: make([]PaymentAttemptView, 0, len(o.PaymentAttempts)),
		UpdatedBy:       o.UpdatedBy,
		UpdatedAt:       o.UpdatedAt,
		Version:         o.Version,
	}
	if o.Customer != nil {
		detail.Customer = &CustomerView{ID: o.Customer.ID, Name: o.Customer.Name, Email: o.Customer.Email}
	}
	for _, item := range o.Items {
		detail.Items = append(detail.Items, OrderItemView{
			ID:          item.ID,
			FileName:    item.FileName,
			RetouchType: item.RetouchType,
			UnitPrice:   item.UnitPrice,
			Quantity:    item.Quantity,
			Subtotal:    item.Subtotal(),
		})
	}
	for _, attempt := range o.PaymentAttempts {
		detail.PaymentAttempts = append(detail.PaymentAttempts, PaymentAttemptView{
			ID:            attempt.ID,
			Provider:      attempt.Provider,
			TransactionID: attempt.TransactionID,
			Status:        attempt.Status,
			Amount:        attempt.Amount,
			Currency:      attempt.Currency,
			FailureReason: attempt.FailureReason,
			AttemptedAt:   attempt.AttemptedAt,
			CompletedAt:   attempt.CompletedAt,
		})
	}
	return detail
}
