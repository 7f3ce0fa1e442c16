package orders

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	pkgerrors "github.com/angelmondragon/orderflow/pkg/errors"
	"github.com/angelmondragon/orderflow/pkg/pagination"
)

// Service exposes the read side of orders.
type Service interface {
	Search(ctx context.Context, keyword string, params pagination.Params) (pagination.Page[OrderSummary], error)
	Detail(ctx context.Context, id int64) (*OrderDetail, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, errors.New("orders repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Search(ctx context.Context, keyword string, params pagination.Params) (pagination.Page[OrderSummary], error) {
	params = params.Normalize()
	rows, total, err := s.repo.Search(ctx, keyword, params)
	if err != nil {
		return pagination.Page[OrderSummary]{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "search orders")
	}
	items := make([]OrderSummary, 0, len(rows))
	for _, row := range rows {
		items = append(items, summaryFromModel(row))
	}
	return pagination.NewPage(items, params, total), nil
}

func (s *service) Detail(ctx context.Context, id int64) (*OrderDetail, error) {
	order, err := s.repo.FindDetail(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("order %d not found", id))
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
	}
	return detailFromModel(*order), nil
}
