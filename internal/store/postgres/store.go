package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/fekuna/omnipos-ledger-service/internal/apperr"
	"github.com/fekuna/omnipos-ledger-service/internal/audit"
	auditrepo "github.com/fekuna/omnipos-ledger-service/internal/audit/repository"
	"github.com/fekuna/omnipos-ledger-service/internal/inventory"
	inventoryrepo "github.com/fekuna/omnipos-ledger-service/internal/inventory/repository"
	"github.com/fekuna/omnipos-ledger-service/internal/invoice"
	invoicerepo "github.com/fekuna/omnipos-ledger-service/internal/invoice/repository"
	"github.com/fekuna/omnipos-ledger-service/internal/item"
	itemrepo "github.com/fekuna/omnipos-ledger-service/internal/item/repository"
	"github.com/fekuna/omnipos-ledger-service/internal/logger"
	"github.com/fekuna/omnipos-ledger-service/internal/salesorder"
	salesorderrepo "github.com/fekuna/omnipos-ledger-service/internal/salesorder/repository"
	"github.com/fekuna/omnipos-ledger-service/internal/setting"
	settingrepo "github.com/fekuna/omnipos-ledger-service/internal/setting/repository"
	"github.com/fekuna/omnipos-ledger-service/internal/store"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// SQLSTATE codes that mean "the same request may succeed if sent again".
const (
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeLockNotAvailable     = "55P03"
	codeQueryCanceled        = "57014"
)

// codeNumericOutOfRange is raised when a value overflows NUMERIC(38,0).
const codeNumericOutOfRange = "22003"

type Options struct {
	LockTimeout      time.Duration
	StatementTimeout time.Duration
}

type Store struct {
	db     *sqlx.DB
	opts   Options
	logger logger.ZapLogger
}

var _ store.Store = (*Store)(nil)

func New(db *sqlx.DB, opts Options, log logger.ZapLogger) *Store {
	return &Store{db: db, opts: opts, logger: log}
}

func (s *Store) DB() *sqlx.DB {
	return s.db
}

func (s *Store) WithTx(ctx context.Context, fn func(tx store.Tx) error) (err error) {
	tx, err := s.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return classify(fmt.Errorf("begin tx: %w", err))
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				s.logger.Warn("rollback failed", zap.Error(rbErr))
			}
		}
	}()

	if _, err = tx.ExecContext(ctx,
		`SELECT set_config('lock_timeout', $1, true), set_config('statement_timeout', $2, true)`,
		millis(s.opts.LockTimeout), millis(s.opts.StatementTimeout),
	); err != nil {
		return classify(fmt.Errorf("set tx timeouts: %w", err))
	}

	if err = fn(&pgTx{tx: tx}); err != nil {
		return classify(err)
	}
	if err = tx.Commit(); err != nil {
		return classify(fmt.Errorf("commit: %w", err))
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}

func millis(d time.Duration) string {
	if d <= 0 {
		return "0"
	}
	return strconv.FormatInt(d.Milliseconds(), 10)
}

// classify turns contention and timeout failures into a retryable error and
// an overflowing quantity or amount into a validation error. Typed errors and
// anything else pass through untouched.
func classify(err error) error {
	if _, ok := apperr.As(err); ok {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return apperr.Retryable("request timed out").Wrap(err)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeDeadlockDetected, codeSerializationFailure:
			return apperr.Retryable("concurrent update, retry the request").Wrap(err)
		case codeLockNotAvailable, codeQueryCanceled:
			return apperr.Retryable("timed out waiting for a lock").Wrap(err)
		case codeNumericOutOfRange:
			return apperr.Validation("quantity or amount is out of range").Wrap(err)
		}
	}
	return err
}

type pgTx struct {
	tx *sqlx.Tx
}

func (t *pgTx) Lock(ctx context.Context, tenantID, key string) error {
	if _, err := t.tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1), hashtext($2))`, tenantID, key); err != nil {
		return fmt.Errorf("advisory lock: %w", err)
	}
	return nil
}

func (t *pgTx) Items() item.Repository             { return itemrepo.NewPGRepository(t.tx) }
func (t *pgTx) Inventory() inventory.Repository    { return inventoryrepo.NewPGRepository(t.tx) }
func (t *pgTx) Settings() setting.Repository       { return settingrepo.NewPGRepository(t.tx) }
func (t *pgTx) SalesOrders() salesorder.Repository { return salesorderrepo.NewPGRepository(t.tx) }
func (t *pgTx) Invoices() invoice.Repository       { return invoicerepo.NewPGRepository(t.tx) }
func (t *pgTx) Audit() audit.Repository            { return auditrepo.NewPGRepository(t.tx) }
