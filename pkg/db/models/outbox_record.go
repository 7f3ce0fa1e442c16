package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/orderflow/pkg/enums"
)

// OutboxRecord is one durable integration event written in the same
// transaction as the change that produced it. ProcessedAt is set at most once.
type OutboxRecord struct {
	ID            uuid.UUID                 `gorm:"column:id;type:uuid;primaryKey"`
	EventType     enums.OutboxEventType     `gorm:"column:event_type;type:text;not null"`
	AggregateType enums.OutboxAggregateType `gorm:"column:aggregate_type;type:text;not null"`
	AggregateID   string                    `gorm:"column:aggregate_id;type:text;not null"`
	OccurredAt    time.Time                 `gorm:"column:occurred_at;not null"`
	Payload       json.RawMessage           `gorm:"column:payload;type:jsonb;not null"`
	ProcessedAt   *time.Time                `gorm:"column:processed_at"`
	AttemptCount  int                       `gorm:"column:attempt_count;not null;default:0"`
	LastError     *string                   `gorm:"column:last_error"`
	LastErrorAt   *time.Time                `gorm:"column:last_error_at"`
}

func (OutboxRecord) TableName() string {
	return "outbox_records"
}

func (r *OutboxRecord) BeforeCreate(*gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if r.OccurredAt.IsZero() {
		r.OccurredAt = time.Now().UTC()
	}
	return nil
}

// Pending reports whether the record is still eligible for dispatch.
func (r OutboxRecord) Pending() bool {
	return r.ProcessedAt == nil
}
