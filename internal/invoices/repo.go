// Package invoices issues one invoice per paid order.
package invoices

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/angelmondragon/orderflow/internal/repo"
	"github.com/angelmondragon/orderflow/pkg/db/models"
)

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, invoice *models.Invoice) error
	FindByOrderID(ctx context.Context, orderID int64) (*models.Invoice, error)
	ExistsForOrder(ctx context.Context, orderID int64) (bool, error)
}

type repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{Base: r.Base.WithTx(tx)}
}

func (r *repository) Create(ctx context.Context, invoice *models.Invoice) error {
	if invoice == nil {
		return errors.New("invoice required")
	}
	return r.DB(ctx).Create(invoice).Error
}

func (r *repository) FindByOrderID(ctx context.Context, orderID int64) (*models.Invoice, error) {
	var invoice models.Invoice
	if err := r.DB(ctx).Where("order_id = ?", orderID).First(&invoice).Error; err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (r *repository) ExistsForOrder(ctx context.Context, orderID int64) (bool, error) {
	var count int64
	if err := r.DB(ctx).Model(&models.Invoice{}).Where("order_id = ?", orderID).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
