package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/fekuna/omnipos-ledger-service/internal/logger"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

const (
	resetLockKey     = 424242
	resetMaxAttempts = 5
)

// ledgerTables is every table the reset truncates, children first.
var ledgerTables = []string{
	"audit_events",
	"payments",
	"invoice_lines",
	"invoices",
	"inventory_reservations",
	"sales_order_lines",
	"sales_orders",
	"inventory_movements",
	"inventory_balances",
	"tenant_settings",
	"items",
}

// Reset wipes all ledger data. Concurrent resets are serialised on a fixed
// advisory lock; a reset that deadlocks against live traffic is retried.
func Reset(ctx context.Context, db *sqlx.DB, log logger.ZapLogger) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 50 * time.Millisecond
	b.MaxInterval = time.Second

	attempt := 0
	op := func() error {
		attempt++
		err := truncateAll(ctx, db)
		if err == nil {
			return nil
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == codeDeadlockDetected {
			log.Warn("reset deadlocked, retrying", zap.Int("attempt", attempt))
			return err
		}
		return backoff.Permanent(err)
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(b, resetMaxAttempts-1), ctx)
	if err := backoff.Retry(op, policy); err != nil {
		return fmt.Errorf("reset database: %w", err)
	}
	log.Info("database reset", zap.Int("attempts", attempt))
	return nil
}

func truncateAll(ctx context.Context, db *sqlx.DB) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, resetLockKey); err != nil {
		return err
	}
	query := "TRUNCATE TABLE "
	for i, t := range ledgerTables {
		if i > 0 {
			query += ", "
		}
		query += t
	}
	if _, err := tx.ExecContext(ctx, query+" RESTART IDENTITY CASCADE"); err != nil {
		return err
	}
	return tx.Commit()
}
