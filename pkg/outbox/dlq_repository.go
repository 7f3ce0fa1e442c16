package outbox

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/orderflow/pkg/db/models"
)

// DLQRepository keeps an audit row for every dead-lettered record. The
// outbox row itself stays in place with processed_at set.
type DLQRepository struct {
	db *gorm.DB
}

func NewDLQRepository(db *gorm.DB) *DLQRepository {
	return &DLQRepository{db: db}
}

func (r *DLQRepository) Insert(ctx context.Context, entry *models.OutboxDeadLetter) error {
	if entry == nil {
		return errors.New("dead letter entry required")
	}
	if entry.ErrorMessage != nil {
		msg := TruncateError(*entry.ErrorMessage)
		entry.ErrorMessage = &msg
	}
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *DLQRepository) FindByEventID(ctx context.Context, eventID uuid.UUID) (*models.OutboxDeadLetter, error) {
	var dlq models.OutboxDeadLetter
	err := r.db.WithContext(ctx).Where("event_id = ?", eventID).First(&dlq).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &dlq, nil
}

// List returns the newest dead letters first.
func (r *DLQRepository) List(ctx context.Context, limit, offset int) ([]models.OutboxDeadLetter, int64, error) {
	if limit <= 0 {
		limit = 50
	}
	var total int64
	if err := r.db.WithContext(ctx).Model(&models.OutboxDeadLetter{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []models.OutboxDeadLetter
	err := r.db.WithContext(ctx).
		Order("failed_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&rows).Error
	return rows, total, err
}
