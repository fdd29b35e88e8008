package dto

import "github.com/shopspring/decimal"

const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

type LineInput struct {
	ItemID string
	Qty    decimal.Decimal
}

type CreateSalesOrderInput struct {
	Notes string
	Lines []LineInput
}
