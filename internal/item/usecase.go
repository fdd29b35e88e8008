package item

import (
	"context"

	"github.com/fekuna/omnipos-ledger-service/internal/item/dto"
	"github.com/fekuna/omnipos-ledger-service/internal/model"
)

type UseCase interface {
	CreateItem(ctx context.Context, actor model.Actor, input *dto.CreateItemInput) (*model.Item, error)
	ListItems(ctx context.Context, actor model.Actor, filters *dto.ItemFilters) (*dto.ItemPage, error)
}
