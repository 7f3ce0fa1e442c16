package db

import (
	"context"
	"errors"
	"testing"

	"github.com/angelmondragon/orderflow/pkg/config"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type testModel struct {
	ID   int
	Name string
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err := conn.AutoMigrate(&testModel{}); err != nil {
		t.Fatalf("failed to migrate sqlite: %v", err)
	}
	return conn
}

func countModels(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var count int64
	if err := db.Model(&testModel{}).Count(&count).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	return count
}

func TestWithTx_CommitsAndRollbacks(t *testing.T) {
	db := newTestDB(t)
	client := &Client{conn: db}

	ctx := context.Background()
	if err := client.WithTx(ctx, func(tx *gorm.DB) error {
		return tx.Create(&testModel{Name: "committed"}).Error
	}); err != nil {
		t.Fatalf("WithTx commit failed: %v", err)
	}
	if got := countModels(t, db); got != 1 {
		t.Fatalf("expected 1 record, got %d", got)
	}

	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(&testModel{Name: "rolled"}).Error; err != nil {
			return err
		}
		return errors.New("boom")
	})
	if err == nil {
		t.Fatal("expected WithTx to return an error")
	}
	if got := countModels(t, db); got != 1 {
		t.Fatalf("expected rollback to leave 1 record, got %d", got)
	}
}

func TestWithTx_RollsBackOnPanic(t *testing.T) {
	db := newTestDB(t)
	client := &Client{conn: db}

	func() {
		defer func() {
			if recover() == nil {
				t.Fatal("expected panic to propagate")
			}
		}()
		_ = client.WithTx(context.Background(), func(tx *gorm.DB) error {
			if err := tx.Create(&testModel{Name: "panicky"}).Error; err != nil {
				return err
			}
			panic("kaboom")
		})
	}()

	if got := countModels(t, db); got != 0 {
		t.Fatalf("expected panic rollback, got %d records", got)
	}
}

func TestUnitOfWork_Lifecycle(t *testing.T) {
	db := newTestDB(t)
	client := &Client{conn: db}
	uow := client.UnitOfWork()

	if err := uow.Commit(); !errors.Is(err, ErrTxNotActive) {
		t.Fatalf("expected ErrTxNotActive, got %v", err)
	}
	if err := uow.Rollback(); err != nil {
		t.Fatalf("rollback without tx should be a no-op, got %v", err)
	}

	ctx := context.Background()
	if err := uow.Begin(ctx); err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := uow.Begin(ctx); !errors.Is(err, ErrTxActive) {
		t.Fatalf("expected ErrTxActive, got %v", err)
	}
	if !uow.Active() {
		t.Fatal("expected active transaction")
	}
	if err := uow.Conn().Create(&testModel{Name: "a"}).Error; err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := uow.Rollback(); err != nil {
		t.Fatalf("rollback: %v", err)
	}
	if uow.Active() {
		t.Fatal("expected no active transaction after rollback")
	}
	if got := countModels(t, db); got != 0 {
		t.Fatalf("expected rolled back insert, got %d", got)
	}

	if err := uow.Begin(ctx); err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := uow.Conn().Create(&testModel{Name: "b"}).Error; err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := uow.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if got := countModels(t, db); got != 1 {
		t.Fatalf("expected committed insert, got %d", got)
	}

	if err := uow.Conn().Create(&testModel{Name: "c"}).Error; err != nil {
		t.Fatalf("autocommit create: %v", err)
	}
	if got := countModels(t, db); got != 2 {
		t.Fatalf("expected autocommit insert, got %d", got)
	}
}

func TestPing(t *testing.T) {
	db := newTestDB(t)
	client := &Client{conn: db}
	if err := client.Ping(context.Background()); err != nil {
		t.Fatalf("unexpected ping error: %v", err)
	}
}

func TestNewSQLite(t *testing.T) {
	client, err := New(context.Background(), config.DBConfig{Driver: config.DBDriverSQLite, SQLitePath: "file::memory:"}, nil)
	if err != nil {
		t.Fatalf("New sqlite: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	if err := client.Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}
}

func TestNewRequiresDSNForPostgres(t *testing.T) {
	if _, err := New(context.Background(), config.DBConfig{Driver: config.DBDriverPostgres}, nil); err == nil {
		t.Fatal("expected missing DSN error")
	}
}

func TestErrorHelpers(t *testing.T) {
	if !IsUniqueViolation(&pgconn.PgError{Code: "23505"}, "") {
		t.Fatal("expected pg unique violation")
	}
	if !IsUniqueViolation(errors.New("UNIQUE constraint failed: invoices.order_id"), "") {
		t.Fatal("expected sqlite unique violation")
	}
	if !IsUniqueViolation(errors.New("violates invoices_order_id_key"), "invoices_order_id_key") {
		t.Fatal("expected named constraint match")
	}
	if IsUniqueViolation(nil, "") {
		t.Fatal("nil is not a violation")
	}
	if !IsSerializationFailure(&pgconn.PgError{Code: "40001"}) {
		t.Fatal("expected serialization failure")
	}
	if !IsNotFound(gorm.ErrRecordNotFound) {
		t.Fatal("expected not found")
	}
}
