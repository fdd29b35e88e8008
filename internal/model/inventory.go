package model

import (
	"time"

	"github.com/shopspring/decimal"
)

const MovementTypeAdjustment = "ADJUSTMENT"

type InventoryBalance struct {
	ID           string          `db:"id" json:"-"`
	TenantID     string          `db:"tenant_id" json:"-"`
	ItemID       string          `db:"item_id" json:"itemId"`
	QtyOnHand    decimal.Decimal `db:"qty_on_hand" json:"qtyOnHand"`
	QtyReserved  decimal.Decimal `db:"qty_reserved" json:"qtyReserved"`
	AvgCostMinor decimal.Decimal `db:"avg_cost_minor" json:"avgCostMinor"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updatedAt"`
}

// QtyAvailable is derived on read and never stored.
func (b *InventoryBalance) QtyAvailable() decimal.Decimal {
	return b.QtyOnHand.Sub(b.QtyReserved)
}

type BalanceSummary struct {
	QtyOnHand    decimal.Decimal `json:"qtyOnHand"`
	AvgCostMinor decimal.Decimal `json:"avgCostMinor"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

type InventoryMovement struct {
	ID            string           `db:"id" json:"id"`
	TenantID      string           `db:"tenant_id" json:"-"`
	ItemID        string           `db:"item_id" json:"itemId"`
	Type          string           `db:"type" json:"type"`
	QtyDelta      decimal.Decimal  `db:"qty_delta" json:"qtyDelta"`
	UnitCostMinor *decimal.Decimal `db:"unit_cost_minor" json:"unitCostMinor"` // inbound only
	Note          *string          `db:"note" json:"note"`
	ActorUserID   string           `db:"actor_user_id" json:"actorUserId"`
	CreatedAt     time.Time        `db:"created_at" json:"createdAt"`
}
