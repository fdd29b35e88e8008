package store

import (
	"context"

	"github.com/fekuna/omnipos-ledger-service/internal/audit"
	"github.com/fekuna/omnipos-ledger-service/internal/inventory"
	"github.com/fekuna/omnipos-ledger-service/internal/invoice"
	"github.com/fekuna/omnipos-ledger-service/internal/item"
	"github.com/fekuna/omnipos-ledger-service/internal/salesorder"
	"github.com/fekuna/omnipos-ledger-service/internal/setting"
)

// Store runs units of work. Every state change of the ledger happens inside
// exactly one WithTx call together with its audit row.
type Store interface {
	// WithTx runs fn in a single transaction. A non-nil error from fn rolls
	// everything back before it is returned.
	WithTx(ctx context.Context, fn func(tx Tx) error) error
	Ping(ctx context.Context) error
	Close() error
}

// Tx is the handle passed to a unit of work. Repositories obtained from it
// read and write inside the same transaction.
type Tx interface {
	// Lock takes an advisory lock on (tenantID, key) held until the
	// transaction ends. Callers racing on the same key run one after another.
	Lock(ctx context.Context, tenantID, key string) error

	Items() item.Repository
	Inventory() inventory.Repository
	Settings() setting.Repository
	SalesOrders() salesorder.Repository
	Invoices() invoice.Repository
	Audit() audit.Repository
}
