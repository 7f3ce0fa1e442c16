package outbox

import (
	"context"
	"errors"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/orderflow/pkg/db/models"
)

const maxErrorLen = 500

// Repository is the outbox store. Append runs on the caller's transaction;
// every other method commits on its own.
type Repository struct {
	db  *gorm.DB
	now func() time.Time
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// Append inserts a pending record on tx. It never commits.
func (r *Repository) Append(tx *gorm.DB, record *models.OutboxRecord) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	if record == nil {
		return errors.New("outbox record required")
	}
	record.ProcessedAt = nil
	record.OccurredAt = record.OccurredAt.UTC()
	return tx.Create(record).Error
}

// FetchPending returns unprocessed records oldest first. A limit of zero
// returns every pending record.
func (r *Repository) FetchPending(ctx context.Context, limit int) ([]models.OutboxRecord, error) {
	query := r.db.WithContext(ctx).
		Where("processed_at IS NULL").
		Order("occurred_at ASC").
		Order("id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var rows []models.OutboxRecord
	err := query.Find(&rows).Error
	return rows, err
}

// MarkProcessed stamps processed_at. Already processed or missing ids are a
// no-op.
func (r *Repository) MarkProcessed(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.OutboxRecord{}).
		Where("id = ? AND processed_at IS NULL", id).
		Update("processed_at", r.now()).Error
}

// IncrementRetry bumps attempt_count and dead-letters the record (sets
// processed_at) once the count reaches maxRetries. It reports whether this
// call performed the dead-lettering.
func (r *Repository) IncrementRetry(ctx context.Context, id uuid.UUID, maxRetries int) (bool, error) {
	now := r.now()
	res := r.db.WithContext(ctx).
		Model(&models.OutboxRecord{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"attempt_count": gorm.Expr("attempt_count + 1"),
			"last_error_at": now,
			"processed_at": gorm.Expr(
				"CASE WHEN processed_at IS NULL AND attempt_count + 1 >= ? THEN ? ELSE processed_at END",
				maxRetries, now,
			),
		})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}

	var row models.OutboxRecord
	if err := r.db.WithContext(ctx).
		Select("attempt_count", "processed_at").
		Where("id = ?", id).
		Take(&row).Error; err != nil {
		return false, err
	}
	return row.ProcessedAt != nil && row.AttemptCount == maxRetries, nil
}

// RecordError stores a truncated error message without touching retry
// bookkeeping.
func (r *Repository) RecordError(ctx context.Context, id uuid.UUID, message string) error {
	return r.db.WithContext(ctx).
		Model(&models.OutboxRecord{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"last_error":    TruncateError(message),
			"last_error_at": r.now(),
		}).Error
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.OutboxRecord, error) {
	var row models.OutboxRecord
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// PendingStats summarizes the backlog for monitoring.
type PendingStats struct {
	Count        int64
	OldestAt     *time.Time
	WithErrors   int64
	MaxAttempted int
}

func (r *Repository) PendingStats(ctx context.Context) (PendingStats, error) {
	var stats PendingStats
	base := r.db.WithContext(ctx).Model(&models.OutboxRecord{}).Where("processed_at IS NULL")

	if err := base.Session(&gorm.Session{}).Count(&stats.Count).Error; err != nil {
		return stats, err
	}
	if stats.Count == 0 {
		return stats, nil
	}
	if err := base.Session(&gorm.Session{}).Where("last_error IS NOT NULL").Count(&stats.WithErrors).Error; err != nil {
		return stats, err
	}

	var oldest models.OutboxRecord
	if err := base.Session(&gorm.Session{}).Order("occurred_at ASC").Take(&oldest).Error; err != nil {
		return stats, err
	}
	at := oldest.OccurredAt.UTC()
	stats.OldestAt = &at

	var top models.OutboxRecord
	if err := base.Session(&gorm.Session{}).Order("attempt_count DESC").Take(&top).Error; err != nil {
		return stats, err
	}
	stats.MaxAttempted = top.AttemptCount
	return stats, nil
}

// TruncateError caps message at 500 characters, ending in "..." when cut.
func TruncateError(message string) string {
	if utf8.RuneCountInString(message) <= maxErrorLen {
		return message
	}
	runes := []rune(message)
	return string(runes[:maxErrorLen-3]) + "..."
}
