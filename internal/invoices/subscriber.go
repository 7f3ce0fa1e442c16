package invoices

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/orderflow/pkg/actor"
	"github.com/angelmondragon/orderflow/pkg/db"
	"github.com/angelmondragon/orderflow/pkg/db/models"
	"github.com/angelmondragon/orderflow/pkg/enums"
	"github.com/angelmondragon/orderflow/pkg/logger"
	"github.com/angelmondragon/orderflow/pkg/outbox"
	"github.com/angelmondragon/orderflow/pkg/outbox/payloads"
)

const (
	SubscriberName = "invoice"

	invoiceNumberLayout = "20060102150405"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) (uuid.UUID, error)
}

// Subscriber creates the invoice for a paid order and announces it.
type Subscriber struct {
	db     txRunner
	repo   Repository
	outbox outboxEmitter
	logg   *logger.Logger
	now    func() time.Time
}

func NewSubscriber(tx txRunner, repo Repository, emitter outboxEmitter, logg *logger.Logger, now func() time.Time) (*Subscriber, error) {
	if tx == nil {
		return nil, errors.New("tx runner required")
	}
	if repo == nil {
		return nil, errors.New("invoice repository required")
	}
	if emitter == nil {
		return nil, errors.New("outbox emitter required")
	}
	if logg == nil {
		return nil, errors.New("logger required")
	}
	if now == nil {
		now = time.Now
	}
	return &Subscriber{db: tx, repo: repo, outbox: emitter, logg: logg, now: now}, nil
}

// InvoiceNumber formats INV-<issued timestamp>-<order id>.
func InvoiceNumber(issuedAt time.Time, orderID int64) string {
	return fmt.Sprintf("INV-%s-%d", issuedAt.UTC().Format(invoiceNumberLayout), orderID)
}

// HandleOrderPaid stores the invoice and its InvoiceCreated event in one
// transaction. An order that already has an invoice is skipped.
func (s *Subscriber) HandleOrderPaid(ctx context.Context, event outbox.Event, payload *payloads.OrderPaidEvent) error {
	ctx = s.logg.WithOrderID(ctx, payload.OrderID)
	system := actor.System()

	var invoice *models.Invoice
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		exists, err := repo.ExistsForOrder(ctx, payload.OrderID)
		if err != nil {
			return err
		}
		if exists {
			return nil
		}

		issuedAt := s.now().UTC()
		currency := payload.Currency
		if currency == "" {
			currency = "USD"
		}
		candidate := &models.Invoice{
			InvoiceNumber: InvoiceNumber(issuedAt, payload.OrderID),
			OrderID:       payload.OrderID,
			CustomerEmail: payload.CustomerEmail,
			Amount:        payload.TotalAmount,
			Currency:      currency,
			IssuedAt:      issuedAt,
			CreatedBy:     system.ID,
		}
		if err := repo.Create(ctx, candidate); err != nil {
			return err
		}
		_, err = s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventInvoiceCreated,
			AggregateType: enums.AggregateInvoice,
			AggregateID:   candidate.ID.String(),
			Actor:         system.Ref(),
			OccurredAt:    issuedAt,
			Data: payloads.InvoiceCreatedEvent{
				InvoiceID:     candidate.ID,
				InvoiceNumber: candidate.InvoiceNumber,
				OrderID:       candidate.OrderID,
				CustomerEmail: candidate.CustomerEmail,
				Amount:        candidate.Amount,
			},
		})
		if err != nil {
			return err
		}
		invoice = candidate
		return nil
	})
	if err != nil {
		// A concurrent delivery inserted the invoice first.
		if db.IsUniqueViolation(err, "") {
			s.logg.Info(ctx, "invoice already created concurrently")
			return nil
		}
		return err
	}
	if invoice == nil {
		s.logg.Info(ctx, "invoice already exists, skipping")
		return nil
	}
	fields := map[string]any{"invoice_id": invoice.ID.String(), "invoice_number": invoice.InvoiceNumber}
	s.logg.Info(s.logg.WithFields(ctx, fields), "invoice created")
	return nil
}
