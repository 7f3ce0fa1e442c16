package migrate

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/angelmondragon/orderflow/pkg/config"
	"github.com/angelmondragon/orderflow/pkg/db"
	"github.com/angelmondragon/orderflow/pkg/logger"
)

func TestMigrationsDirIsValid(t *testing.T) {
	count, err := ValidateDir("migrations")
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if count < 3 {
		t.Fatalf("expected at least 3 migrations, got %d", count)
	}
}

func TestOutboxMigrationContainsPendingIndex(t *testing.T) {
	content := readMigration(t, "*_create_outbox.sql")
	for _, want := range []string{
		"CREATE TABLE IF NOT EXISTS outbox_records",
		"id UUID PRIMARY KEY",
		"WHERE processed_at IS NULL",
		"CREATE TABLE IF NOT EXISTS outbox_dead_letters",
		"DROP TABLE IF EXISTS outbox_records",
	} {
		if !strings.Contains(content, want) {
			t.Errorf("missing expected statement %q", want)
		}
	}
}

func TestOrdersMigrationContainsConcurrencyToken(t *testing.T) {
	content := readMigration(t, "*_create_orders.sql")
	for _, want := range []string{
		"version INTEGER NOT NULL DEFAULT 1",
		"CONSTRAINT orders_status_check",
		"CHECK (quantity > 0)",
		"CREATE TABLE IF NOT EXISTS payment_attempts",
	} {
		if !strings.Contains(content, want) {
			t.Errorf("missing expected statement %q", want)
		}
	}
}

func TestCreateSQLMigration(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC)

	path, err := CreateSQLMigration(dir, "Add Order Notes!", now)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if filepath.Base(path) != "20250601123000_add_order_notes.sql" {
		t.Fatalf("unexpected filename %s", filepath.Base(path))
	}
	if _, err := CreateSQLMigration(dir, "add order notes", now); err == nil {
		t.Fatal("expected duplicate error")
	}
	if _, err := CreateSQLMigration(dir, "!!!", now); err == nil {
		t.Fatal("expected empty name error")
	}
	if count, err := ValidateDir(dir); err != nil || count != 1 {
		t.Fatalf("generated migration should validate, count=%d err=%v", count, err)
	}
}

func TestValidateDirRejectsBadFiles(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "bad-name.sql"), []byte("-- +goose Up\n-- +goose Down\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := ValidateDir(dir); err == nil {
		t.Fatal("expected filename error")
	}

	dir = t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "20250101000000_x.sql"), []byte("-- +goose Up\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := ValidateDir(dir); err == nil {
		t.Fatal("expected missing down error")
	}
}

func TestParseVersion(t *testing.T) {
	if _, err := parseVersion(""); err == nil {
		t.Fatal("expected empty version error")
	}
	if _, err := parseVersion("2025"); err == nil {
		t.Fatal("expected short version error")
	}
	if v, err := parseVersion("20250301090000"); err != nil || v != 20250301090000 {
		t.Fatalf("unexpected parse %d %v", v, err)
	}
}

func TestMaybeRunDevBuildsSQLiteSchema(t *testing.T) {
	ctx := context.Background()
	cfg := &config.Config{DB: config.DBConfig{Driver: config.DBDriverSQLite, SQLitePath: "file::memory:"}}
	client, err := db.New(ctx, cfg.DB, nil)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	if err := MaybeRunDev(ctx, cfg, logger.Nop(), client); err != nil {
		t.Fatalf("auto-migrate: %v", err)
	}
	for _, table := range []string{"orders", "outbox_records", "outbox_dead_letters", "invoices", "payment_attempts"} {
		if !client.DB().Migrator().HasTable(table) {
			t.Fatalf("expected table %s", table)
		}
	}
}

func readMigration(t *testing.T, pattern string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", pattern))
	if err != nil || len(matches) == 0 {
		t.Fatalf("no migration matching %s (err=%v)", pattern, err)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration: %v", err)
	}
	return string(data)
}
