package item

import (
	"context"
	"errors"

	"github.com/fekuna/omnipos-ledger-service/internal/item/dto"
	"github.com/fekuna/omnipos-ledger-service/internal/model"
)

var ErrDuplicateSKU = errors.New("sku already exists for tenant")

type Repository interface {
	Create(ctx context.Context, item *model.Item) error
	// FindByID returns nil, nil when the item is not visible to the tenant.
	FindByID(ctx context.Context, tenantID, id string) (*model.Item, error)
	FindByIDs(ctx context.Context, tenantID string, ids []string) ([]model.Item, error)
	FindAll(ctx context.Context, filters *dto.ItemFilters) ([]model.ItemWithBalance, int, error)
}
