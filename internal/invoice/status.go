package invoice

import (
	"github.com/fekuna/omnipos-ledger-service/internal/model"
	"github.com/shopspring/decimal"
)

// ComputeStatus derives the settlement status from the invoice amounts.
// VOID is never derived; it is set explicitly and is terminal.
func ComputeStatus(total, paid decimal.Decimal) model.InvoiceStatus {
	switch {
	case paid.Sign() <= 0:
		return model.InvoiceUnpaid
	case paid.GreaterThanOrEqual(total):
		return model.InvoicePaid
	default:
		return model.InvoicePartiallyPaid
	}
}
