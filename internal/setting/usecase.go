package setting

import (
	"context"

	"github.com/fekuna/omnipos-ledger-service/internal/model"
)

type UseCase interface {
	GetSetting(ctx context.Context, actor model.Actor) (*model.TenantSetting, error)
	UpdateSetting(ctx context.Context, actor model.Actor, allowNegativeStock bool) (*model.TenantSetting, error)
}
