package inventory

import (
	"context"

	"github.com/fekuna/omnipos-ledger-service/internal/inventory/dto"
	"github.com/fekuna/omnipos-ledger-service/internal/model"
)

type UseCase interface {
	ApplyAdjustment(ctx context.Context, actor model.Actor, input *dto.AdjustInventoryInput) (*dto.AdjustmentResult, error)
	GetBalance(ctx context.Context, actor model.Actor, itemID string) (*model.InventoryBalance, error)
	GetAvailability(ctx context.Context, actor model.Actor, itemID string) (*dto.Availability, error)
	ListMovements(ctx context.Context, actor model.Actor, itemID string, limit int) ([]model.InventoryMovement, error)
}
