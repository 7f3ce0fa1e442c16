package invoices

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/orderflow/pkg/db"
	"github.com/angelmondragon/orderflow/pkg/db/dbtest"
	"github.com/angelmondragon/orderflow/pkg/enums"
	"github.com/angelmondragon/orderflow/pkg/logger"
	"github.com/angelmondragon/orderflow/pkg/outbox"
	"github.com/angelmondragon/orderflow/pkg/outbox/payloads"
)

func TestInvoiceNumber(t *testing.T) {
	issued := time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC)
	assert.Equal(t, "INV-20240309140507-42", InvoiceNumber(issued, 42))
}

func TestHandleOrderPaidCreatesInvoiceOnce(t *testing.T) {
	conn := dbtest.Open(t)
	order := dbtest.SeedOrder(t, conn, dbtest.WithStatus(enums.OrderStatusPaid))
	outboxRepo := outbox.NewRepository(conn)
	issued := time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC)
	repo := NewRepository(conn)

	sub, err := NewSubscriber(db.NewFromGorm(conn), repo, outbox.NewService(outboxRepo, nil), logger.Nop(), func() time.Time { return issued })
	require.NoError(t, err)

	event := outbox.Event{ID: uuid.New(), Type: enums.EventOrderPaid}
	payload := &payloads.OrderPaidEvent{
		OrderID:       order.ID,
		OrderNumber:   order.OrderNumber,
		CustomerEmail: order.Customer.Email,
		TotalAmount:   decimal.RequireFromString("50.00"),
		Currency:      "USD",
	}
	ctx := context.Background()
	require.NoError(t, sub.HandleOrderPaid(ctx, event, payload))
	require.NoError(t, sub.HandleOrderPaid(ctx, event, payload), "redelivery is tolerated")

	invoice, err := repo.FindByOrderID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, InvoiceNumber(issued, order.ID), invoice.InvoiceNumber)
	assert.True(t, invoice.Amount.Equal(payload.TotalAmount))
	assert.Equal(t, order.Customer.Email, invoice.CustomerEmail)

	rows, err := outboxRepo.FetchPending(ctx, 0)
	require.NoError(t, err)
	require.Len(t, rows, 1, "only the first delivery emits InvoiceCreated")
	assert.Equal(t, enums.EventInvoiceCreated, rows[0].EventType)
	assert.Equal(t, enums.AggregateInvoice, rows[0].AggregateType)
	assert.Equal(t, invoice.ID.String(), rows[0].AggregateID)

	var envelope outbox.PayloadEnvelope
	require.NoError(t, json.Unmarshal(rows[0].Payload, &envelope))
	var data payloads.InvoiceCreatedEvent
	require.NoError(t, json.Unmarshal(envelope.Data, &data))
	assert.Equal(t, invoice.ID, data.InvoiceID)
	assert.Equal(t, order.ID, data.OrderID)
}

func TestRepositoryExistsForOrder(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	exists, err := repo.ExistsForOrder(context.Background(), 1)
	require.NoError(t, err)
	assert.False(t, exists)
}
