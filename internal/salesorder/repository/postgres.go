package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/fekuna/omnipos-ledger-service/internal/model"
	"github.com/jmoiron/sqlx"
)

const (
	orderColumns       = `id, tenant_id, status, notes, created_at, confirmed_at, cancelled_at`
	lineColumns        = `id, tenant_id, sales_order_id, line_no, item_id, qty`
	reservationColumns = `id, tenant_id, sales_order_id, sales_order_line_id, item_id, qty, status, created_at, cancelled_at`
)

type PGRepository struct {
	DB sqlx.ExtContext
}

func NewPGRepository(db sqlx.ExtContext) *PGRepository {
	return &PGRepository{DB: db}
}

func (r *PGRepository) Create(ctx context.Context, so *model.SalesOrder) error {
	query := `
        INSERT INTO sales_orders (id, tenant_id, status, notes, created_at, confirmed_at, cancelled_at)
        VALUES (:id, :tenant_id, :status, :notes, :created_at, :confirmed_at, :cancelled_at)
    `
	if _, err := sqlx.NamedExecContext(ctx, r.DB, query, so); err != nil {
		return fmt.Errorf("insert sales order: %w", err)
	}

	lineQuery := `
        INSERT INTO sales_order_lines (id, tenant_id, sales_order_id, line_no, item_id, qty)
        VALUES (:id, :tenant_id, :sales_order_id, :line_no, :item_id, :qty)
    `
	for i := range so.Lines {
		if _, err := sqlx.NamedExecContext(ctx, r.DB, lineQuery, &so.Lines[i]); err != nil {
			return fmt.Errorf("insert sales order line %d: %w", so.Lines[i].LineNo, err)
		}
	}
	return nil
}

func (r *PGRepository) FindByID(ctx context.Context, tenantID, id string) (*model.SalesOrder, error) {
	var so model.SalesOrder
	query := `SELECT ` + orderColumns + ` FROM sales_orders WHERE tenant_id = $1 AND id = $2`
	if err := sqlx.GetContext(ctx, r.DB, &so, query, tenantID, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	orders := []model.SalesOrder{so}
	if err := r.attachLines(ctx, tenantID, orders); err != nil {
		return nil, err
	}
	return &orders[0], nil
}

func (r *PGRepository) FindAll(ctx context.Context, tenantID string, limit int) ([]model.SalesOrder, error) {
	query := `SELECT ` + orderColumns + `
        FROM sales_orders
        WHERE tenant_id = $1
        ORDER BY created_at DESC, id DESC
        LIMIT $2`

	orders := []model.SalesOrder{}
	if err := sqlx.SelectContext(ctx, r.DB, &orders, query, tenantID, limit); err != nil {
		return nil, err
	}
	if err := r.attachLines(ctx, tenantID, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *PGRepository) attachLines(ctx context.Context, tenantID string, orders []model.SalesOrder) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make([]string, len(orders))
	for i, so := range orders {
		ids[i] = so.ID
	}

	query, args, err := sqlx.In(`SELECT `+lineColumns+`
        FROM sales_order_lines
        WHERE tenant_id = ? AND sales_order_id IN (?)
        ORDER BY sales_order_id, line_no`, tenantID, ids)
	if err != nil {
		return err
	}
	var lines []model.SalesOrderLine
	if err := sqlx.SelectContext(ctx, r.DB, &lines, r.DB.Rebind(query), args...); err != nil {
		return fmt.Errorf("load sales order lines: %w", err)
	}

	byOrder := make(map[string][]model.SalesOrderLine, len(orders))
	for _, l := range lines {
		byOrder[l.SalesOrderID] = append(byOrder[l.SalesOrderID], l)
	}
	for i := range orders {
		orders[i].Lines = byOrder[orders[i].ID]
		if orders[i].Lines == nil {
			orders[i].Lines = []model.SalesOrderLine{}
		}
	}
	return nil
}

func (r *PGRepository) UpdateStatus(ctx context.Context, so *model.SalesOrder) error {
	query := `
        UPDATE sales_orders
        SET status = :status, confirmed_at = :confirmed_at, cancelled_at = :cancelled_at
        WHERE tenant_id = :tenant_id AND id = :id
    `
	if _, err := sqlx.NamedExecContext(ctx, r.DB, query, so); err != nil {
		return fmt.Errorf("update sales order status: %w", err)
	}
	return nil
}

func (r *PGRepository) CreateReservation(ctx context.Context, res *model.InventoryReservation) error {
	query := `
        INSERT INTO inventory_reservations (` + reservationColumns + `)
        VALUES (:id, :tenant_id, :sales_order_id, :sales_order_line_id, :item_id, :qty, :status, :created_at, :cancelled_at)
    `
	if _, err := sqlx.NamedExecContext(ctx, r.DB, query, res); err != nil {
		return fmt.Errorf("insert reservation: %w", err)
	}
	return nil
}

func (r *PGRepository) ListReservations(ctx context.Context, tenantID string, salesOrderIDs []string) ([]model.InventoryReservation, error) {
	if len(salesOrderIDs) == 0 {
		return []model.InventoryReservation{}, nil
	}
	query, args, err := sqlx.In(`SELECT `+reservationColumns+`
        FROM inventory_reservations
        WHERE tenant_id = ? AND sales_order_id IN (?)
        ORDER BY created_at`, tenantID, salesOrderIDs)
	if err != nil {
		return nil, err
	}
	var out []model.InventoryReservation
	err = sqlx.SelectContext(ctx, r.DB, &out, r.DB.Rebind(query), args...)
	return out, err
}

func (r *PGRepository) CancelActiveReservations(ctx context.Context, tenantID, salesOrderID string, at time.Time) (int, error) {
	query := `
        UPDATE inventory_reservations
        SET status = 'CANCELLED', cancelled_at = $3
        WHERE tenant_id = $1 AND sales_order_id = $2 AND status = 'ACTIVE'
    `
	res, err := r.DB.ExecContext(ctx, query, tenantID, salesOrderID, at)
	if err != nil {
		return 0, fmt.Errorf("cancel reservations: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}
