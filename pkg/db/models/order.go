package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/orderflow/pkg/enums"
)

// Order is the aggregate root for checkout and production. Status only
// changes through the Mark* methods; callers check legality first.
type Order struct {
	ID              int64             `gorm:"column:id;primaryKey;autoIncrement"`
	OrderNumber     string            `gorm:"column:order_number;not null;uniqueIndex"`
	OrderName       string            `gorm:"column:order_name;not null"`
	CustomerID      int64             `gorm:"column:customer_id;not null"`
	Customer        *Customer         `gorm:"foreignKey:CustomerID"`
	Status          enums.OrderStatus `gorm:"column:status;type:text;not null;default:'created'"`
	TotalAmount     decimal.Decimal   `gorm:"column:total_amount;type:numeric(12,2);not null"`
	Currency        string            `gorm:"column:currency;type:text;not null;default:'USD'"`
	PaidAt          *time.Time        `gorm:"column:paid_at"`
	Version         int               `gorm:"column:version;not null;default:1"`
	Items           []OrderItem       `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	PaymentAttempts []PaymentAttempt  `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedBy       string            `gorm:"column:created_by;not null"`
	CreatedAt       time.Time         `gorm:"column:created_at"`
	UpdatedBy       *string           `gorm:"column:updated_by"`
	UpdatedAt       *time.Time        `gorm:"column:updated_at"`
}

func (o *Order) MarkPendingPayment(actor string, at time.Time) {
	o.transition(enums.OrderStatusPendingPayment, actor, at)
	o.PaidAt = nil
}

func (o *Order) MarkPaid(actor string, at time.Time) {
	o.transition(enums.OrderStatusPaid, actor, at)
	paidAt := at.UTC()
	o.PaidAt = &paidAt
}

func (o *Order) MarkPaymentFailed(actor string, at time.Time) {
	o.transition(enums.OrderStatusPaymentFailed, actor, at)
	o.PaidAt = nil
}

func (o *Order) MarkSubmittedToProduction(actor string, at time.Time) {
	o.transition(enums.OrderStatusSubmittedToProduction, actor, at)
}

func (o *Order) MarkInProduction(actor string, at time.Time) {
	o.transition(enums.OrderStatusInProduction, actor, at)
}

func (o *Order) MarkCompleted(actor string, at time.Time) {
	o.transition(enums.OrderStatusCompleted, actor, at)
}

func (o *Order) Cancel(actor string, at time.Time) {
	o.transition(enums.OrderStatusCancelled, actor, at)
}

func (o *Order) transition(status enums.OrderStatus, actor string, at time.Time) {
	o.Status = status
	o.Touch(actor, at)
}

// Touch stamps the update audit fields.
func (o *Order) Touch(actor string, at time.Time) {
	ts := at.UTC()
	by := actor
	o.UpdatedAt = &ts
	o.UpdatedBy = &by
}

// CustomerEmail returns the loaded customer's email, or "" when the
// customer was not preloaded.
func (o *Order) CustomerEmail() string {
	if o.Customer == nil {
		return ""
	}
	return o.Customer.Email
}

// ItemsTotal sums the line subtotals.
func (o *Order) ItemsTotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.Subtotal())
	}
	return total
}

// OrderItem is one file/unit line in an order.
type OrderItem struct {
	ID          int64           `gorm:"column:id;primaryKey;autoIncrement"`
	OrderID     int64           `gorm:"column:order_id;not null;index"`
	FileName    string          `gorm:"column:file_name;not null"`
	RetouchType string          `gorm:"column:retouch_type;not null"`
	UnitPrice   decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null"`
	Quantity    int             `gorm:"column:quantity;not null"`
}

func (i OrderItem) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

type Customer struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement"`
	Name      string    `gorm:"column:name;not null"`
	Email     string    `gorm:"column:email;not null"`
	CreatedAt time.Time `gorm:"column:created_at"`
}
