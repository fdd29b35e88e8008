package salesorder

import (
	"context"
	"time"

	"github.com/fekuna/omnipos-ledger-service/internal/model"
)

type Repository interface {
	// Create persists the order together with its lines.
	Create(ctx context.Context, order *model.SalesOrder) error
	// FindByID loads the order with its lines, nil when not visible to the tenant.
	FindByID(ctx context.Context, tenantID, id string) (*model.SalesOrder, error)
	FindAll(ctx context.Context, tenantID string, limit int) ([]model.SalesOrder, error)
	UpdateStatus(ctx context.Context, order *model.SalesOrder) error

	CreateReservation(ctx context.Context, reservation *model.InventoryReservation) error
	ListReservations(ctx context.Context, tenantID string, salesOrderIDs []string) ([]model.InventoryReservation, error)
	// CancelActiveReservations flips every ACTIVE reservation of the order.
	CancelActiveReservations(ctx context.Context, tenantID, salesOrderID string, at time.Time) (int, error)
}
