package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fekuna/omnipos-ledger-service/internal/invoice"
	"github.com/fekuna/omnipos-ledger-service/internal/model"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
)

const (
	invoiceColumns = `id, tenant_id, sales_order_id, status, notes, total_minor, paid_minor, created_at, voided_at`
	lineColumns    = `id, tenant_id, invoice_id, line_no, item_id, qty, unit_price_minor, line_total_minor`
	paymentColumns = `id, tenant_id, invoice_id, amount_minor, method, reference, note, actor_user_id, created_at`
)

type PGRepository struct {
	DB sqlx.ExtContext
}

func NewPGRepository(db sqlx.ExtContext) *PGRepository {
	return &PGRepository{DB: db}
}

func (r *PGRepository) Create(ctx context.Context, inv *model.Invoice) error {
	query := `
        INSERT INTO invoices (` + invoiceColumns + `)
        VALUES (:id, :tenant_id, :sales_order_id, :status, :notes, :total_minor, :paid_minor, :created_at, :voided_at)
    `
	if _, err := sqlx.NamedExecContext(ctx, r.DB, query, inv); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" && inv.SalesOrderID != nil {
			return invoice.ErrSalesOrderInvoiced
		}
		return fmt.Errorf("insert invoice: %w", err)
	}

	lineQuery := `
        INSERT INTO invoice_lines (` + lineColumns + `)
        VALUES (:id, :tenant_id, :invoice_id, :line_no, :item_id, :qty, :unit_price_minor, :line_total_minor)
    `
	for i := range inv.Lines {
		if _, err := sqlx.NamedExecContext(ctx, r.DB, lineQuery, &inv.Lines[i]); err != nil {
			return fmt.Errorf("insert invoice line %d: %w", inv.Lines[i].LineNo, err)
		}
	}
	return nil
}

func (r *PGRepository) FindByID(ctx context.Context, tenantID, id string) (*model.Invoice, error) {
	return r.findOne(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE tenant_id = $1 AND id = $2`, tenantID, id)
}

func (r *PGRepository) FindBySalesOrder(ctx context.Context, tenantID, salesOrderID string) (*model.Invoice, error) {
	return r.findOne(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE tenant_id = $1 AND sales_order_id = $2`, tenantID, salesOrderID)
}

func (r *PGRepository) findOne(ctx context.Context, query, tenantID, key string) (*model.Invoice, error) {
	var inv model.Invoice
	if err := sqlx.GetContext(ctx, r.DB, &inv, query, tenantID, key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	inv.Lines = []model.InvoiceLine{}
	linesQuery := `SELECT ` + lineColumns + ` FROM invoice_lines WHERE tenant_id = $1 AND invoice_id = $2 ORDER BY line_no`
	if err := sqlx.SelectContext(ctx, r.DB, &inv.Lines, linesQuery, tenantID, inv.ID); err != nil {
		return nil, fmt.Errorf("load invoice lines: %w", err)
	}

	payments, err := r.ListPayments(ctx, tenantID, inv.ID)
	if err != nil {
		return nil, err
	}
	inv.Payments = payments
	return &inv, nil
}

func (r *PGRepository) UpdateSettlement(ctx context.Context, inv *model.Invoice) error {
	query := `
        UPDATE invoices
        SET paid_minor = :paid_minor, status = :status
        WHERE tenant_id = :tenant_id AND id = :id
    `
	if _, err := sqlx.NamedExecContext(ctx, r.DB, query, inv); err != nil {
		return fmt.Errorf("update invoice settlement: %w", err)
	}
	return nil
}

func (r *PGRepository) CreatePayment(ctx context.Context, p *model.Payment) error {
	query := `
        INSERT INTO payments (` + paymentColumns + `)
        VALUES (:id, :tenant_id, :invoice_id, :amount_minor, :method, :reference, :note, :actor_user_id, :created_at)
    `
	if _, err := sqlx.NamedExecContext(ctx, r.DB, query, p); err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}
	return nil
}

func (r *PGRepository) ListPayments(ctx context.Context, tenantID, invoiceID string) ([]model.Payment, error) {
	query := `SELECT ` + paymentColumns + `
        FROM payments
        WHERE tenant_id = $1 AND invoice_id = $2
        ORDER BY created_at, seq`

	payments := []model.Payment{}
	if err := sqlx.SelectContext(ctx, r.DB, &payments, query, tenantID, invoiceID); err != nil {
		return nil, err
	}
	return payments, nil
}
