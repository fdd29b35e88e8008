package inventory

import (
	"context"

	"github.com/fekuna/omnipos-ledger-service/internal/inventory/dto"
	"github.com/fekuna/omnipos-ledger-service/internal/model"
	"github.com/shopspring/decimal"
)

type Repository interface {
	// Balances. One row per stock item, created together with the item.
	CreateBalance(ctx context.Context, balance *model.InventoryBalance) error
	GetBalance(ctx context.Context, tenantID, itemID string) (*model.InventoryBalance, error)
	// GetBalanceForUpdate locks the row until the enclosing transaction ends.
	GetBalanceForUpdate(ctx context.Context, tenantID, itemID string) (*model.InventoryBalance, error)
	UpdateOnHand(ctx context.Context, balance *model.InventoryBalance) error
	AddReserved(ctx context.Context, tenantID, itemID string, delta decimal.Decimal) error

	// Movements are append-only.
	LogMovement(ctx context.Context, movement *model.InventoryMovement) error
	ListMovements(ctx context.Context, filters *dto.MovementFilters) ([]model.InventoryMovement, error)
}
