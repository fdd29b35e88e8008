package invoice

import (
	"context"

	"github.com/fekuna/omnipos-ledger-service/internal/invoice/dto"
	"github.com/fekuna/omnipos-ledger-service/internal/model"
)

type UseCase interface {
	CreateInvoice(ctx context.Context, actor model.Actor, input *dto.CreateInvoiceInput) (*model.Invoice, error)
	IssueFromSalesOrder(ctx context.Context, actor model.Actor, salesOrderID string) (*dto.IssueResult, error)
	GetInvoice(ctx context.Context, actor model.Actor, id string) (*model.Invoice, error)
	ListPayments(ctx context.Context, actor model.Actor, invoiceID string) ([]model.Payment, error)
	AddPayment(ctx context.Context, actor model.Actor, invoiceID string, input *dto.AddPaymentInput) (*dto.PaymentResult, error)
}
