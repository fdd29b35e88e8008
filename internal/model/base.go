package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type BaseModel struct {
	ID        string    `db:"id" json:"id"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// numericLimit is the first magnitude a NUMERIC(38,0) column cannot hold.
var numericLimit = decimal.New(1, 38)

// IsWhole reports whether d carries no fractional part. Quantities and minor
// currency amounts are always whole numbers.
func IsWhole(d decimal.Decimal) bool {
	return d.Equal(d.Truncate(0))
}

// IsStorable reports whether d is a whole number of at most 38 digits, the
// range of every quantity and amount column.
func IsStorable(d decimal.Decimal) bool {
	return IsWhole(d) && d.Abs().LessThan(numericLimit)
}
