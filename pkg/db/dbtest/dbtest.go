// Package dbtest opens throwaway sqlite databases carrying the full schema.
package dbtest

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/angelmondragon/orderflow/pkg/db/models"
	"github.com/angelmondragon/orderflow/pkg/enums"
)

var seq atomic.Int64

// Open returns a private in-memory database. It is held on a single
// connection, so callers must not query the root handle while a
// transaction is open.
func Open(t testing.TB) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 gormlogger.Discard,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := conn.AutoMigrate(models.All()...); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}
	return conn
}

// OrderOption mutates a seeded order before insert.
type OrderOption func(*models.Order)

func WithStatus(status enums.OrderStatus) OrderOption {
	return func(o *models.Order) { o.Status = status }
}

func WithTotal(amount string) OrderOption {
	return func(o *models.Order) { o.TotalAmount = decimal.RequireFromString(amount) }
}

// SeedOrder inserts a customer and an order with two line items.
func SeedOrder(t testing.TB, db *gorm.DB, opts ...OrderOption) *models.Order {
	t.Helper()
	n := seq.Add(1)
	customer := &models.Customer{
		Name:      fmt.Sprintf("Customer %d", n),
		Email:     fmt.Sprintf("customer%d@example.com", n),
		CreatedAt: time.Now().UTC(),
	}
	if err := db.Create(customer).Error; err != nil {
		t.Fatalf("seed customer: %v", err)
	}

	order := &models.Order{
		OrderNumber: fmt.Sprintf("ORD-%d", 1000+n),
		OrderName:   "Order for Background Removal",
		CustomerID:  customer.ID,
		Status:      enums.OrderStatusCreated,
		TotalAmount: decimal.RequireFromString("50.00"),
		Currency:    "USD",
		Version:     1,
		CreatedBy:   "seed",
		CreatedAt:   time.Now().UTC(),
		Items: []models.OrderItem{
			{FileName: "portrait.jpg", RetouchType: "Background Removal", UnitPrice: decimal.RequireFromString("10.00"), Quantity: 2},
			{FileName: "product.png", RetouchType: "Color Correction", UnitPrice: decimal.RequireFromString("15.00"), Quantity: 2},
		},
	}
	for _, opt := range opts {
		opt(order)
	}
	if err := db.Create(order).Error; err != nil {
		t.Fatalf("seed order: %v", err)
	}
	order.Customer = customer
	return order
}
