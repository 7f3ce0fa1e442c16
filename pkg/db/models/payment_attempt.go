package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/orderflow/pkg/enums"
)

// PaymentAttempt records one call to the payment gateway. Rows are
// immutable once written; a retry produces a new attempt.
type PaymentAttempt struct {
	ID            uuid.UUID                  `gorm:"column:id;type:uuid;primaryKey"`
	OrderID       int64                      `gorm:"column:order_id;not null;index"`
	Provider      enums.PaymentProvider      `gorm:"column:provider;type:text;not null"`
	TransactionID *string                    `gorm:"column:transaction_id"`
	Status        enums.PaymentAttemptStatus `gorm:"column:status;type:text;not null"`
	Amount        decimal.Decimal            `gorm:"column:amount;type:numeric(12,2);not null"`
	Currency      string                     `gorm:"column:currency;type:text;not null"`
	FailureReason *string                    `gorm:"column:failure_reason"`
	AttemptedAt   time.Time                  `gorm:"column:attempted_at;not null"`
	CompletedAt   *time.Time                 `gorm:"column:completed_at"`
}

func (p *PaymentAttempt) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
