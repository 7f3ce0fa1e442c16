package orders

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/orderflow/pkg/db/models"
	"github.com/angelmondragon/orderflow/pkg/enums"
	"github.com/angelmondragon/orderflow/pkg/pagination"
)

// ErrVersionConflict means the row changed since it was loaded.
var ErrVersionConflict = errors.New("order was modified concurrently")

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByID(ctx context.Context, id int64) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Customer").
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindDetail(ctx context.Context, id int64) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Customer").
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("PaymentAttempts", func(db *gorm.DB) *gorm.DB { return db.Order("attempted_at ASC") }).
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// Save writes the mutable columns only when the stored version still
// matches, then bumps the in-memory version.
func (r *repository) Save(ctx context.Context, order *models.Order) error {
	if order == nil {
		return errors.New("order required")
	}
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND version = ?", order.ID, order.Version).
		Updates(map[string]any{
			"status":     order.Status,
			"paid_at":    order.PaidAt,
			"updated_by": order.UpdatedBy,
			"updated_at": order.UpdatedAt,
			"version":    gorm.Expr("version + 1"),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrVersionConflict
	}
	order.Version++
	return nil
}

func (r *repository) CreatePaymentAttempt(ctx context.Context, attempt *models.PaymentAttempt) error {
	if attempt == nil {
		return errors.New("payment attempt required")
	}
	return r.db.WithContext(ctx).Create(attempt).Error
}

// Search matches keyword case-insensitively against the order name, newest
// first.
func (r *repository) Search(ctx context.Context, keyword string, params pagination.Params) ([]models.Order, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Order{})
	if kw := strings.TrimSpace(keyword); kw != "" {
		query = query.Where("LOWER(order_name) LIKE ?", "%"+strings.ToLower(kw)+"%")
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []models.Order{}, 0, nil
	}

	var rows []models.Order
	err := query.Session(&gorm.Session{}).
		Preload("Customer").
		Order("created_at DESC").
		Order("id DESC").
		Limit(params.Limit()).
		Offset(params.Offset()).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// FindStalePendingPayment lists orders that entered pending payment before
// cutoff and never resolved.
func (r *repository) FindStalePendingPayment(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error) {
	query := r.db.WithContext(ctx).
		Where("status = ?", enums.OrderStatusPendingPayment).
		Where("updated_at < ?", cutoff.UTC()).
		Order("updated_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var rows []models.Order
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
