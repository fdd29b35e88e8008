package dto

import (
	"github.com/fekuna/omnipos-ledger-service/internal/model"
	"github.com/shopspring/decimal"
)

type AdjustInventoryInput struct {
	ItemID        string
	QtyDelta      decimal.Decimal
	UnitCostMinor *decimal.Decimal // required when QtyDelta > 0
	Note          string
}

type AdjustmentResult struct {
	Balance    model.InventoryBalance `json:"balance"`
	MovementID string                 `json:"movementId"`
}

type Availability struct {
	ItemID       string `json:"itemId"`
	QtyOnHand    string `json:"qtyOnHand"`
	QtyReserved  string `json:"qtyReserved"`
	QtyAvailable string `json:"qtyAvailable"`
}
