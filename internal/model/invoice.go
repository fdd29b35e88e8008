package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type InvoiceStatus string

const (
	InvoiceUnpaid        InvoiceStatus = "UNPAID"
	InvoicePartiallyPaid InvoiceStatus = "PARTIALLY_PAID"
	InvoicePaid          InvoiceStatus = "PAID"
	InvoiceVoid          InvoiceStatus = "VOID"
)

type Invoice struct {
	ID           string          `db:"id" json:"id"`
	TenantID     string          `db:"tenant_id" json:"-"`
	SalesOrderID *string         `db:"sales_order_id" json:"salesOrderId"`
	Status       InvoiceStatus   `db:"status" json:"status"`
	Notes        *string         `db:"notes" json:"notes,omitempty"`
	TotalMinor   decimal.Decimal `db:"total_minor" json:"totalMinor"`
	PaidMinor    decimal.Decimal `db:"paid_minor" json:"paidMinor"`
	CreatedAt    time.Time       `db:"created_at" json:"createdAt"`
	VoidedAt     *time.Time      `db:"voided_at" json:"voidedAt,omitempty"`
	Lines        []InvoiceLine   `db:"-" json:"lines"`
	Payments     []Payment       `db:"-" json:"payments"`
}

type InvoiceLine struct {
	ID             string          `db:"id" json:"id"`
	TenantID       string          `db:"tenant_id" json:"-"`
	InvoiceID      string          `db:"invoice_id" json:"-"`
	LineNo         int             `db:"line_no" json:"-"`
	ItemID         string          `db:"item_id" json:"itemId"`
	Qty            decimal.Decimal `db:"qty" json:"qty"`
	UnitPriceMinor decimal.Decimal `db:"unit_price_minor" json:"unitPriceMinor"`
	LineTotalMinor decimal.Decimal `db:"line_total_minor" json:"lineTotalMinor"`
}

type Payment struct {
	ID          string          `db:"id" json:"id"`
	TenantID    string          `db:"tenant_id" json:"-"`
	InvoiceID   string          `db:"invoice_id" json:"-"`
	AmountMinor decimal.Decimal `db:"amount_minor" json:"amountMinor"`
	Method      string          `db:"method" json:"method"`
	Reference   *string         `db:"reference" json:"reference"`
	Note        *string         `db:"note" json:"note"`
	ActorUserID string          `db:"actor_user_id" json:"-"`
	CreatedAt   time.Time       `db:"created_at" json:"createdAt"`
}
