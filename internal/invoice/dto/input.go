package dto

import (
	"github.com/fekuna/omnipos-ledger-service/internal/model"
	"github.com/shopspring/decimal"
)

const DefaultPaymentMethod = "cash"

type LineInput struct {
	ItemID         string
	Qty            decimal.Decimal
	UnitPriceMinor decimal.Decimal
}

type CreateInvoiceInput struct {
	SalesOrderID string
	Notes        string
	Lines        []LineInput
}

type AddPaymentInput struct {
	AmountMinor decimal.Decimal
	Method      string
	Reference   string
	Note        string
}

type PaymentResult struct {
	Payment model.Payment `json:"payment"`
	Invoice model.Invoice `json:"invoice"`
}

// IssueResult tells whether issuance created the invoice or found the one
// already issued for the sales order.
type IssueResult struct {
	Invoice *model.Invoice
	Created bool
}
