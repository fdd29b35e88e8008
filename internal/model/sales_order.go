package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type SalesOrderStatus string

const (
	SalesOrderDraft     SalesOrderStatus = "DRAFT"
	SalesOrderConfirmed SalesOrderStatus = "CONFIRMED"
	SalesOrderCancelled SalesOrderStatus = "CANCELLED"
)

type ReservationStatus string

const (
	ReservationActive    ReservationStatus = "ACTIVE"
	ReservationCancelled ReservationStatus = "CANCELLED"
)

type SalesOrder struct {
	ID          string           `db:"id" json:"id"`
	TenantID    string           `db:"tenant_id" json:"-"`
	Status      SalesOrderStatus `db:"status" json:"status"`
	Notes       *string          `db:"notes" json:"notes"`
	CreatedAt   time.Time        `db:"created_at" json:"createdAt"`
	ConfirmedAt *time.Time       `db:"confirmed_at" json:"confirmedAt"`
	CancelledAt *time.Time       `db:"cancelled_at" json:"cancelledAt"`
	Lines       []SalesOrderLine `db:"-" json:"lines"`
}

type SalesOrderLine struct {
	ID           string          `db:"id" json:"id"`
	TenantID     string          `db:"tenant_id" json:"-"`
	SalesOrderID string          `db:"sales_order_id" json:"-"`
	LineNo       int             `db:"line_no" json:"-"`
	ItemID       string          `db:"item_id" json:"itemId"`
	Qty          decimal.Decimal `db:"qty" json:"qty"`

	// Filled on reads from the line's reservation, if any.
	ReservedQty       decimal.Decimal   `db:"-" json:"reservedQty"`
	ReservationStatus ReservationStatus `db:"-" json:"reservationStatus,omitempty"`
}

type InventoryReservation struct {
	ID               string            `db:"id" json:"id"`
	TenantID         string            `db:"tenant_id" json:"-"`
	SalesOrderID     string            `db:"sales_order_id" json:"salesOrderId"`
	SalesOrderLineID string            `db:"sales_order_line_id" json:"salesOrderLineId"`
	ItemID           string            `db:"item_id" json:"itemId"`
	Qty              decimal.Decimal   `db:"qty" json:"qty"`
	Status           ReservationStatus `db:"status" json:"status"`
	CreatedAt        time.Time         `db:"created_at" json:"createdAt"`
	CancelledAt      *time.Time        `db:"cancelled_at" json:"cancelledAt"`
}
