package production

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/orderflow/internal/orders"
	"github.com/angelmondragon/orderflow/pkg/actor"
	"github.com/angelmondragon/orderflow/pkg/db/models"
	"github.com/angelmondragon/orderflow/pkg/enums"
	pkgerrors "github.com/angelmondragon/orderflow/pkg/errors"
	"github.com/angelmondragon/orderflow/pkg/logger"
)

// StatusService applies progress reported by the production system.
type StatusService interface {
	Advance(ctx context.Context, who actor.Actor, orderID int64, status enums.ProductionStatus) (*models.Order, error)
}

type statusService struct {
	orders orders.Repository
	logg   *logger.Logger
	now    func() time.Time
}

func NewStatusService(repo orders.Repository, logg *logger.Logger, now func() time.Time) (StatusService, error) {
	if repo == nil {
		return nil, errors.New("orders repository required")
	}
	if logg == nil {
		return nil, errors.New("logger required")
	}
	if now == nil {
		now = time.Now
	}
	return &statusService{orders: repo, logg: logg, now: now}, nil
}

// predecessor is the only status each production status may follow.
var predecessor = map[enums.ProductionStatus]enums.OrderStatus{
	enums.ProductionStatusInProduction: enums.OrderStatusSubmittedToProduction,
	enums.ProductionStatusCompleted:    enums.OrderStatusInProduction,
}

func (s *statusService) Advance(ctx context.Context, who actor.Actor, orderID int64, status enums.ProductionStatus) (*models.Order, error) {
	from, ok := predecessor[status]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unsupported production status %q", status))
	}
	who = who.OrSystem()

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("order %d not found", orderID))
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
	}
	if order.Status != from {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("order %d cannot move from %s to %s", orderID, order.Status, status)).
			WithDetails(map[string]any{"status": order.Status, "requested": status})
	}

	now := s.now()
	switch status {
	case enums.ProductionStatusInProduction:
		order.MarkInProduction(who.ID, now)
	case enums.ProductionStatusCompleted:
		order.MarkCompleted(who.ID, now)
	}
	if err := s.orders.Save(ctx, order); err != nil {
		if errors.Is(err, orders.ErrVersionConflict) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "order was modified concurrently")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "save production status")
	}

	fields := map[string]any{"order_id": orderID, "status": order.Status, "actor": who.ID}
	s.logg.Info(s.logg.WithFields(ctx, fields), "production status advanced")
	return order, nil
}
