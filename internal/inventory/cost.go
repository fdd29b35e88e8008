package inventory

import "github.com/shopspring/decimal"

// WeightedAverage is the unit cost after receiving qtyIn units at unitCost on
// top of onHand units valued at avgCost. Division truncates toward zero, an
// empty resulting stock has cost 0, and a negative result is clamped to 0.
func WeightedAverage(onHand, avgCost, qtyIn, unitCost decimal.Decimal) decimal.Decimal {
	newQty := onHand.Add(qtyIn)
	if newQty.IsZero() {
		return decimal.Zero
	}
	value := onHand.Mul(avgCost).Add(qtyIn.Mul(unitCost))
	avg, _ := value.QuoRem(newQty, 0)
	if avg.IsNegative() {
		return decimal.Zero
	}
	return avg
}
