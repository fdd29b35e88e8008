package salesorder

import (
	"context"

	"github.com/fekuna/omnipos-ledger-service/internal/model"
	"github.com/fekuna/omnipos-ledger-service/internal/salesorder/dto"
)

// UseCase drives the order lifecycle DRAFT -> CONFIRMED -> CANCELLED.
//
// Confirm is idempotent: confirming an already CONFIRMED order succeeds
// without reserving again, so clients may retry it. Cancel is not: a second
// cancel reports a conflict.
type UseCase interface {
	CreateSalesOrder(ctx context.Context, actor model.Actor, input *dto.CreateSalesOrderInput) (*model.SalesOrder, error)
	GetSalesOrder(ctx context.Context, actor model.Actor, id string) (*model.SalesOrder, error)
	ListSalesOrders(ctx context.Context, actor model.Actor, limit int) ([]model.SalesOrder, error)
	Confirm(ctx context.Context, actor model.Actor, id string) (*model.SalesOrder, error)
	Cancel(ctx context.Context, actor model.Actor, id string) (*model.SalesOrder, error)
}
