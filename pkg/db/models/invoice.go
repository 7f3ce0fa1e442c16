package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Invoice is issued once per paid order.
type Invoice struct {
	ID            uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	InvoiceNumber string          `gorm:"column:invoice_number;not null;uniqueIndex"`
	OrderID       int64           `gorm:"column:order_id;not null;uniqueIndex"`
	CustomerEmail string          `gorm:"column:customer_email;not null"`
	Amount        decimal.Decimal `gorm:"column:amount;type:numeric(12,2);not null"`
	Currency      string          `gorm:"column:currency;type:text;not null"`
	IssuedAt      time.Time       `gorm:"column:issued_at;not null"`
	CreatedBy     string          `gorm:"column:created_by;not null"`
}

func (i *Invoice) BeforeCreate(*gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
