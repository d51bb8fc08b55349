package db

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

type stockRow struct {
	SKU      string `gorm:"primaryKey"`
	Quantity int
}

func newSQLiteClient(t *testing.T) *Client {
	t.Helper()
	cfg := config.DBConfig{
		Driver: config.DriverSQLite,
		DSN:    filepath.Join(t.TempDir(), "storefront.db"),
	}
	client, err := New(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	if err := client.DB().AutoMigrate(&stockRow{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return client
}

func countStock(t *testing.T, client *Client) int64 {
	t.Helper()
	var n int64
	if err := client.DB().Model(&stockRow{}).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}

func TestNewRequiresDSN(t *testing.T) {
	if _, err := New(context.Background(), config.DBConfig{Driver: config.DriverSQLite}, nil); err == nil {
		t.Fatal("expected error for empty dsn")
	}
}

func TestWithTxCommitsAndRollsBack(t *testing.T) {
	client := newSQLiteClient(t)
	ctx := context.Background()

	if err := client.WithTx(ctx, func(tx *gorm.DB) error {
		return tx.Create(&stockRow{SKU: "TEE-BLK-M", Quantity: 4}).Error
	}); err != nil {
		t.Fatalf("commit: %v", err)
	}

	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(&stockRow{SKU: "TEE-WHT-L", Quantity: 1}).Error; err != nil {
			return err
		}
		return errors.New("line total mismatch")
	})
	if err == nil {
		t.Fatal("expected WithTx to return the callback error")
	}
	if n := countStock(t, client); n != 1 {
		t.Fatalf("expected rollback to leave 1 row, got %d", n)
	}
}

func TestWithTxRollsBackOnPanic(t *testing.T) {
	client := newSQLiteClient(t)

	func() {
		defer func() {
			if recover() == nil {
				t.Fatal("expected panic to propagate")
			}
		}()
		_ = client.WithTx(context.Background(), func(tx *gorm.DB) error {
			if err := tx.Create(&stockRow{SKU: "CAP-RED", Quantity: 2}).Error; err != nil {
				return err
			}
			panic("boom")
		})
	}()

	if n := countStock(t, client); n != 0 {
		t.Fatalf("expected panic to roll back, got %d rows", n)
	}
}

func TestSlowQueriesAreLogged(t *testing.T) {
	buf := &bytes.Buffer{}
	logg := logger.New(logger.Options{ServiceName: "db-test", Output: buf, Format: "json"})
	cfg := config.DBConfig{
		Driver:    config.DriverSQLite,
		DSN:       filepath.Join(t.TempDir(), "slow.db"),
		SlowQuery: time.Nanosecond,
	}
	client, err := New(context.Background(), cfg, logg)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	if err := client.DB().Exec("SELECT 1").Error; err != nil {
		t.Fatalf("exec: %v", err)
	}
	if !strings.Contains(buf.String(), "slow or failed query") {
		t.Fatalf("expected slow query warning, got %s", buf.String())
	}
}

func TestPing(t *testing.T) {
	if err := newSQLiteClient(t).Ping(context.Background()); err != nil {
		t.Fatalf("unexpected ping error: %v", err)
	}
}

func TestIsUniqueViolation(t *testing.T) {
	client := newSQLiteClient(t)
	if err := client.DB().Create(&stockRow{SKU: "TEE-BLK-M"}).Error; err != nil {
		t.Fatalf("insert: %v", err)
	}
	err := client.DB().Create(&stockRow{SKU: "TEE-BLK-M"}).Error
	if !IsUniqueViolation(err, "") {
		t.Fatalf("expected sqlite unique violation, got %v", err)
	}
	if IsUniqueViolation(nil, "") {
		t.Fatal("nil error must not be a violation")
	}

	pqErr := fmt.Errorf("insert order: %w", &pq.Error{Code: "23505", Constraint: "orders_idempotency_key_key"})
	if !IsUniqueViolation(pqErr, "orders_idempotency_key_key") || IsUniqueViolation(pqErr, "orders_order_number_key") {
		t.Fatal("expected lib/pq errors to match by constraint")
	}

	pgErr := fmt.Errorf("insert order: %w", &pgconn.PgError{Code: "23505", ConstraintName: "orders_order_number_key"})
	if !IsUniqueViolation(pgErr, "orders_order_number_key") {
		t.Fatal("expected named constraint to match")
	}
	if IsUniqueViolation(pgErr, "orders_idempotency_key_key") {
		t.Fatal("expected other constraint not to match")
	}
}
