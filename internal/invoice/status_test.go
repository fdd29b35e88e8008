package invoice

import (
	"testing"

	"github.com/fekuna/omnipos-ledger-service/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestComputeStatus(t *testing.T) {
	tests := []struct {
		total, paid int64
		want        model.InvoiceStatus
	}{
		{3000, 0, model.InvoiceUnpaid},
		{3000, 1000, model.InvoicePartiallyPaid},
		{3000, 2999, model.InvoicePartiallyPaid},
		{3000, 3000, model.InvoicePaid},
		{0, 0, model.InvoiceUnpaid},
		{500, -1, model.InvoiceUnpaid},
	}
	for _, tt := range tests {
		got := ComputeStatus(decimal.NewFromInt(tt.total), decimal.NewFromInt(tt.paid))
		assert.Equal(t, tt.want, got, "total=%d paid=%d", tt.total, tt.paid)
	}
}
