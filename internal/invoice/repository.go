package invoice

import (
	"context"
	"errors"

	"github.com/fekuna/omnipos-ledger-service/internal/model"
)

// ErrSalesOrderInvoiced is returned by Create when the sales order already has
// an invoice.
var ErrSalesOrderInvoiced = errors.New("sales order already invoiced")

type Repository interface {
	// Create persists the invoice and its lines.
	Create(ctx context.Context, invoice *model.Invoice) error
	// FindByID loads lines and payments; nil when not visible to the tenant.
	FindByID(ctx context.Context, tenantID, id string) (*model.Invoice, error)
	FindBySalesOrder(ctx context.Context, tenantID, salesOrderID string) (*model.Invoice, error)
	UpdateSettlement(ctx context.Context, invoice *model.Invoice) error

	CreatePayment(ctx context.Context, payment *model.Payment) error
	ListPayments(ctx context.Context, tenantID, invoiceID string) ([]model.Payment, error)
}
