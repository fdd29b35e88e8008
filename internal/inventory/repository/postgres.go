package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fekuna/omnipos-ledger-service/internal/inventory/dto"
	"github.com/fekuna/omnipos-ledger-service/internal/model"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

const (
	balanceColumns  = `id, tenant_id, item_id, qty_on_hand, qty_reserved, avg_cost_minor, updated_at`
	movementColumns = `id, tenant_id, item_id, type, qty_delta, unit_cost_minor, note, actor_user_id, created_at`
)

type PGRepository struct {
	DB sqlx.ExtContext
}

func NewPGRepository(db sqlx.ExtContext) *PGRepository {
	return &PGRepository{DB: db}
}

func (r *PGRepository) CreateBalance(ctx context.Context, b *model.InventoryBalance) error {
	query := `
        INSERT INTO inventory_balances (id, tenant_id, item_id, qty_on_hand, qty_reserved, avg_cost_minor, updated_at)
        VALUES (:id, :tenant_id, :item_id, :qty_on_hand, :qty_reserved, :avg_cost_minor, :updated_at)
    `
	if _, err := sqlx.NamedExecContext(ctx, r.DB, query, b); err != nil {
		return fmt.Errorf("insert balance: %w", err)
	}
	return nil
}

func (r *PGRepository) GetBalance(ctx context.Context, tenantID, itemID string) (*model.InventoryBalance, error) {
	return r.getBalance(ctx, `SELECT `+balanceColumns+` FROM inventory_balances WHERE tenant_id = $1 AND item_id = $2`, tenantID, itemID)
}

func (r *PGRepository) GetBalanceForUpdate(ctx context.Context, tenantID, itemID string) (*model.InventoryBalance, error) {
	return r.getBalance(ctx, `SELECT `+balanceColumns+` FROM inventory_balances WHERE tenant_id = $1 AND item_id = $2 FOR UPDATE`, tenantID, itemID)
}

func (r *PGRepository) getBalance(ctx context.Context, query, tenantID, itemID string) (*model.InventoryBalance, error) {
	var b model.InventoryBalance
	if err := sqlx.GetContext(ctx, r.DB, &b, query, tenantID, itemID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &b, nil
}

func (r *PGRepository) UpdateOnHand(ctx context.Context, b *model.InventoryBalance) error {
	query := `
        UPDATE inventory_balances
        SET qty_on_hand = :qty_on_hand,
            avg_cost_minor = :avg_cost_minor,
            updated_at = :updated_at
        WHERE tenant_id = :tenant_id AND item_id = :item_id
    `
	if _, err := sqlx.NamedExecContext(ctx, r.DB, query, b); err != nil {
		return fmt.Errorf("update balance: %w", err)
	}
	return nil
}

func (r *PGRepository) AddReserved(ctx context.Context, tenantID, itemID string, delta decimal.Decimal) error {
	query := `
        UPDATE inventory_balances
        SET qty_reserved = qty_reserved + $3, updated_at = now()
        WHERE tenant_id = $1 AND item_id = $2
    `
	if _, err := r.DB.ExecContext(ctx, query, tenantID, itemID, delta); err != nil {
		return fmt.Errorf("update reserved: %w", err)
	}
	return nil
}

func (r *PGRepository) LogMovement(ctx context.Context, m *model.InventoryMovement) error {
	query := `
        INSERT INTO inventory_movements (
            id, tenant_id, item_id, type, qty_delta, unit_cost_minor, note, actor_user_id, created_at
        )
        VALUES (
            :id, :tenant_id, :item_id, :type, :qty_delta, :unit_cost_minor, :note, :actor_user_id, :created_at
        )
    `
	if _, err := sqlx.NamedExecContext(ctx, r.DB, query, m); err != nil {
		return fmt.Errorf("failed to log movement: %w", err)
	}
	return nil
}

func (r *PGRepository) ListMovements(ctx context.Context, f *dto.MovementFilters) ([]model.InventoryMovement, error) {
	query := `SELECT ` + movementColumns + `
        FROM inventory_movements
        WHERE tenant_id = $1 AND item_id = $2
        ORDER BY created_at DESC, seq DESC
        LIMIT $3`

	items := []model.InventoryMovement{}
	if err := sqlx.SelectContext(ctx, r.DB, &items, query, f.TenantID, f.ItemID, f.Limit); err != nil {
		return nil, err
	}
	return items, nil
}
