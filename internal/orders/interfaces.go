package orders

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/orderflow/pkg/db/models"
	"github.com/angelmondragon/orderflow/pkg/pagination"
)

// Repository defines persistence operations for orders and their payment
// attempts.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	// FindByID loads the order with its customer and items.
	FindByID(ctx context.Context, id int64) (*models.Order, error)
	// FindDetail additionally loads payment attempts, oldest first.
	FindDetail(ctx context.Context, id int64) (*models.Order, error)
	// Save persists status and audit fields guarded by the version column.
	Save(ctx context.Context, order *models.Order) error
	CreatePaymentAttempt(ctx context.Context, attempt *models.PaymentAttempt) error
	Search(ctx context.Context, keyword string, params pagination.Params) ([]models.Order, int64, error)
	FindStalePendingPayment(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error)
}
