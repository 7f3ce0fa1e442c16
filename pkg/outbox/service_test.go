package outbox

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/orderflow/pkg/db/dbtest"
	"github.com/angelmondragon/orderflow/pkg/enums"
	"github.com/angelmondragon/orderflow/pkg/logger"
)

func TestEmitWrapsEnvelope(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewRepository(db)
	buf := &bytes.Buffer{}
	svc := NewService(repo, logger.New(logger.Options{ServiceName: "test", Output: buf}))
	ctx := context.Background()

	occurred := time.Date(2024, 4, 1, 9, 30, 0, 0, time.FixedZone("EST", -5*3600))
	var eventID string
	err := db.Transaction(func(tx *gorm.DB) error {
		id, err := svc.Emit(ctx, tx, DomainEvent{
			EventType:     enums.EventOrderFailed,
			AggregateType: enums.AggregateOrder,
			AggregateID:   "7",
			Actor:         &ActorRef{ID: "user-1"},
			Data:          map[string]any{"order_id": 7, "reason": "Payment declined"},
			OccurredAt:    occurred,
		})
		eventID = id.String()
		return err
	})
	require.NoError(t, err)

	pending, err := repo.FetchPending(ctx, 0)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	row := pending[0]
	assert.Equal(t, enums.EventOrderFailed, row.EventType)
	assert.Equal(t, "7", row.AggregateID)
	assert.True(t, row.OccurredAt.Equal(occurred))

	var envelope PayloadEnvelope
	require.NoError(t, json.Unmarshal(row.Payload, &envelope))
	assert.Equal(t, DefaultPayloadVersion, envelope.Version)
	assert.Equal(t, eventID, envelope.EventID)
	assert.NotEqual(t, row.ID.String(), envelope.EventID)
	require.NotNil(t, envelope.Actor)
	assert.Equal(t, "user-1", envelope.Actor.ID)
	assert.JSONEq(t, `{"order_id":7,"reason":"Payment declined"}`, string(envelope.Data))

	assert.Contains(t, buf.String(), "outbox event queued")
}

func TestEmitRejectsUnknownTypeAndMissingTx(t *testing.T) {
	db := dbtest.Open(t)
	svc := NewService(NewRepository(db), nil)
	ctx := context.Background()

	_, err := svc.Emit(ctx, nil, DomainEvent{EventType: enums.EventOrderPaid})
	assert.Error(t, err)

	err = db.Transaction(func(tx *gorm.DB) error {
		_, err := svc.Emit(ctx, tx, DomainEvent{EventType: "OrderPaid", Data: struct{}{}})
		return err
	})
	assert.Error(t, err)
}
