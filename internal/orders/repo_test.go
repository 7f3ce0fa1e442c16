package orders

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/orderflow/pkg/db/dbtest"
	"github.com/angelmondragon/orderflow/pkg/db/models"
	"github.com/angelmondragon/orderflow/pkg/enums"
	pkgerrors "github.com/angelmondragon/orderflow/pkg/errors"
	"github.com/angelmondragon/orderflow/pkg/pagination"
)

func TestFindByIDLoadsCustomerAndItems(t *testing.T) {
	db := dbtest.Open(t)
	seeded := dbtest.SeedOrder(t, db)
	repo := NewRepository(db)

	order, err := repo.FindByID(context.Background(), seeded.ID)
	require.NoError(t, err)
	require.NotNil(t, order.Customer)
	assert.Equal(t, seeded.Customer.Email, order.CustomerEmail())
	require.Len(t, order.Items, 2)
	assert.True(t, order.ItemsTotal().Equal(decimal.RequireFromString("50.00")))

	_, err = repo.FindByID(context.Background(), seeded.ID+1000)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestSaveBumpsVersionAndDetectsConflicts(t *testing.T) {
	db := dbtest.Open(t)
	seeded := dbtest.SeedOrder(t, db)
	repo := NewRepository(db)
	ctx := context.Background()

	first, err := repo.FindByID(ctx, seeded.ID)
	require.NoError(t, err)
	stale, err := repo.FindByID(ctx, seeded.ID)
	require.NoError(t, err)

	now := time.Now().UTC()
	first.MarkPendingPayment("user-1", now)
	require.NoError(t, repo.Save(ctx, first))
	assert.Equal(t, 2, first.Version)

	stale.MarkPaymentFailed("user-2", now)
	assert.ErrorIs(t, repo.Save(ctx, stale), ErrVersionConflict)

	stored, err := repo.FindByID(ctx, seeded.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusPendingPayment, stored.Status)
	assert.Equal(t, 2, stored.Version)
	require.NotNil(t, stored.UpdatedBy)
	assert.Equal(t, "user-1", *stored.UpdatedBy)
}

func TestSavePersistsAndClearsPaidAt(t *testing.T) {
	db := dbtest.Open(t)
	seeded := dbtest.SeedOrder(t, db, dbtest.WithStatus(enums.OrderStatusPendingPayment))
	repo := NewRepository(db)
	ctx := context.Background()

	order, err := repo.FindByID(ctx, seeded.ID)
	require.NoError(t, err)
	order.MarkPaid("user", time.Now().UTC())
	require.NoError(t, repo.Save(ctx, order))

	stored, err := repo.FindByID(ctx, seeded.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.PaidAt)

	stored.MarkPendingPayment("user", time.Now().UTC())
	require.NoError(t, repo.Save(ctx, stored))
	reloaded, err := repo.FindByID(ctx, seeded.ID)
	require.NoError(t, err)
	assert.Nil(t, reloaded.PaidAt)
}

func TestWithTxRollsBackSave(t *testing.T) {
	db := dbtest.Open(t)
	seeded := dbtest.SeedOrder(t, db)
	repo := NewRepository(db)
	ctx := context.Background()

	order, err := repo.FindByID(ctx, seeded.ID)
	require.NoError(t, err)

	err = db.Transaction(func(tx *gorm.DB) error {
		order.MarkPendingPayment("user", time.Now().UTC())
		if err := repo.WithTx(tx).Save(ctx, order); err != nil {
			return err
		}
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)

	stored, err := repo.FindByID(ctx, seeded.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCreated, stored.Status)
	assert.Equal(t, 1, stored.Version)
}

func TestSearchFiltersAndPages(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewRepository(db)
	ctx := context.Background()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		i := i
		dbtest.SeedOrder(t, db, func(o *models.Order) {
			o.OrderName = fmt.Sprintf("Portrait batch %d", i)
			o.CreatedAt = base.Add(time.Duration(i) * time.Hour)
		})
	}
	dbtest.SeedOrder(t, db, func(o *models.Order) { o.OrderName = "Product shots" })

	rows, total, err := repo.Search(ctx, "PORTRAIT", pagination.Params{Page: 1, Size: 3})
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)
	require.Len(t, rows, 3)
	assert.Equal(t, "Portrait batch 3", rows[0].OrderName, "newest first")
	require.NotNil(t, rows[0].Customer)

	rows, _, err = repo.Search(ctx, "portrait", pagination.Params{Page: 2, Size: 3})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Portrait batch 0", rows[0].OrderName)

	rows, total, err = repo.Search(ctx, "nothing matches", pagination.Params{})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, rows)
}

func TestFindStalePendingPayment(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewRepository(db)
	ctx := context.Background()

	old := time.Now().UTC().Add(-2 * time.Hour)
	recent := time.Now().UTC()
	stale := dbtest.SeedOrder(t, db, dbtest.WithStatus(enums.OrderStatusPendingPayment), func(o *models.Order) { o.UpdatedAt = &old })
	dbtest.SeedOrder(t, db, dbtest.WithStatus(enums.OrderStatusPendingPayment), func(o *models.Order) { o.UpdatedAt = &recent })
	dbtest.SeedOrder(t, db, dbtest.WithStatus(enums.OrderStatusPaid), func(o *models.Order) { o.UpdatedAt = &old })

	rows, err := repo.FindStalePendingPayment(ctx, time.Now().UTC().Add(-30*time.Minute), 0)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, stale.ID, rows[0].ID)
}

func TestServiceDetailAndSearch(t *testing.T) {
	db := dbtest.Open(t)
	seeded := dbtest.SeedOrder(t, db)
	repo := NewRepository(db)
	svc, err := NewService(repo)
	require.NoError(t, err)
	ctx := context.Background()

	reason := "Payment declined by mock provider"
	require.NoError(t, repo.CreatePaymentAttempt(ctx, &models.PaymentAttempt{
		OrderID:       seeded.ID,
		Provider:      enums.PaymentProviderMock,
		Status:        enums.PaymentAttemptFailed,
		Amount:        seeded.TotalAmount,
		Currency:      "USD",
		FailureReason: &reason,
		AttemptedAt:   time.Now().UTC(),
	}))

	detail, err := svc.Detail(ctx, seeded.ID)
	require.NoError(t, err)
	assert.Equal(t, seeded.OrderNumber, detail.OrderNumber)
	require.Len(t, detail.Items, 2)
	assert.True(t, detail.Items[0].Subtotal.Equal(decimal.RequireFromString("20.00")))
	require.Len(t, detail.PaymentAttempts, 1)
	assert.Equal(t, enums.PaymentAttemptFailed, detail.PaymentAttempts[0].Status)

	_, err = svc.Detail(ctx, 99999)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	page, err := svc.Search(ctx, "", pagination.Params{Size: 500})
	require.NoError(t, err)
	assert.Equal(t, 100, page.Size)
	assert.Equal(t, int64(1), page.Total)
	require.Len(t, page.Items, 1)
	assert.Equal(t, seeded.Customer.Email, page.Items[0].CustomerEmail)
}
