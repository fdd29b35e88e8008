package setting

import (
	"context"

	"github.com/fekuna/omnipos-ledger-service/internal/model"
)

type Repository interface {
	// GetOrCreate returns the tenant's row, inserting the defaults on first use.
	GetOrCreate(ctx context.Context, tenantID string) (*model.TenantSetting, error)
	Upsert(ctx context.Context, setting *model.TenantSetting) error
}
