package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fekuna/omnipos-ledger-service/internal/item"
	"github.com/fekuna/omnipos-ledger-service/internal/item/dto"
	"github.com/fekuna/omnipos-ledger-service/internal/model"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

const uniqueViolation = "23505"

const itemColumns = `i.id, i.tenant_id, i.sku, i.name_en, i.name_ar, i.is_stock, i.created_at, i.updated_at`

type PGRepository struct {
	DB sqlx.ExtContext
}

func NewPGRepository(db sqlx.ExtContext) *PGRepository {
	return &PGRepository{DB: db}
}

func (r *PGRepository) Create(ctx context.Context, it *model.Item) error {
	query := `
        INSERT INTO items (id, tenant_id, sku, name_en, name_ar, is_stock, created_at, updated_at)
        VALUES (:id, :tenant_id, :sku, :name_en, :name_ar, :is_stock, :created_at, :updated_at)
    `
	if _, err := sqlx.NamedExecContext(ctx, r.DB, query, it); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return item.ErrDuplicateSKU
		}
		return fmt.Errorf("insert item: %w", err)
	}
	return nil
}

func (r *PGRepository) FindByID(ctx context.Context, tenantID, id string) (*model.Item, error) {
	var it model.Item
	query := `SELECT ` + itemColumns + ` FROM items i WHERE i.tenant_id = $1 AND i.id = $2`
	if err := sqlx.GetContext(ctx, r.DB, &it, query, tenantID, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &it, nil
}

func (r *PGRepository) FindByIDs(ctx context.Context, tenantID string, ids []string) ([]model.Item, error) {
	if len(ids) == 0 {
		return []model.Item{}, nil
	}
	query, args, err := sqlx.In(`SELECT `+itemColumns+` FROM items i WHERE i.tenant_id = ? AND i.id IN (?)`, tenantID, ids)
	if err != nil {
		return nil, err
	}
	var items []model.Item
	err = sqlx.SelectContext(ctx, r.DB, &items, r.DB.Rebind(query), args...)
	return items, err
}

// itemRow carries the LEFT JOINed balance columns, null for non-stock items.
type itemRow struct {
	model.Item
	QtyOnHand        *decimal.Decimal `db:"bal_qty_on_hand"`
	AvgCostMinor     *decimal.Decimal `db:"bal_avg_cost_minor"`
	BalanceUpdatedAt *time.Time       `db:"bal_updated_at"`
}

func (r *PGRepository) FindAll(ctx context.Context, f *dto.ItemFilters) ([]model.ItemWithBalance, int, error) {
	conditions := []string{"i.tenant_id = :tenant_id"}
	args := map[string]interface{}{"tenant_id": f.TenantID}

	if q := strings.TrimSpace(f.Query); q != "" {
		conditions = append(conditions, "(i.sku ILIKE :q OR i.name_en ILIKE :q OR i.name_ar ILIKE :q)")
		args["q"] = "%" + escapeLike(q) + "%"
	}
	whereClause := " WHERE " + strings.Join(conditions, " AND ")

	countQuery, countArgs, err := sqlx.Named("SELECT count(*) FROM items i"+whereClause, args)
	if err != nil {
		return nil, 0, err
	}
	var count int
	if err := sqlx.GetContext(ctx, r.DB, &count, r.DB.Rebind(countQuery), countArgs...); err != nil {
		return nil, 0, fmt.Errorf("count items: %w", err)
	}

	query := `SELECT ` + itemColumns + `,
            b.qty_on_hand AS bal_qty_on_hand,
            b.avg_cost_minor AS bal_avg_cost_minor,
            b.updated_at AS bal_updated_at
        FROM items i
        LEFT JOIN inventory_balances b ON b.item_id = i.id AND b.tenant_id = i.tenant_id` +
		whereClause +
		fmt.Sprintf(" ORDER BY i.created_at DESC, i.id DESC LIMIT %d OFFSET %d", f.Limit, f.Offset())

	listQuery, listArgs, err := sqlx.Named(query, args)
	if err != nil {
		return nil, 0, err
	}
	var rows []itemRow
	if err := sqlx.SelectContext(ctx, r.DB, &rows, r.DB.Rebind(listQuery), listArgs...); err != nil {
		return nil, 0, fmt.Errorf("list items: %w", err)
	}

	items := make([]model.ItemWithBalance, 0, len(rows))
	for _, row := range rows {
		entry := model.ItemWithBalance{Item: row.Item}
		if row.QtyOnHand != nil {
			entry.Balance = &model.BalanceSummary{QtyOnHand: *row.QtyOnHand}
			if row.AvgCostMinor != nil {
				entry.Balance.AvgCostMinor = *row.AvgCostMinor
			}
			if row.BalanceUpdatedAt != nil {
				entry.Balance.UpdatedAt = *row.BalanceUpdatedAt
			}
		}
		items = append(items, entry)
	}
	return items, count, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
