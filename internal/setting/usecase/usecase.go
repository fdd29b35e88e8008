package usecase

import (
	"context"
	"time"

	"github.com/fekuna/omnipos-ledger-service/internal/audit"
	"github.com/fekuna/omnipos-ledger-service/internal/logger"
	"github.com/fekuna/omnipos-ledger-service/internal/model"
	"github.com/fekuna/omnipos-ledger-service/internal/setting"
	"github.com/fekuna/omnipos-ledger-service/internal/store"
	"go.uber.org/zap"
)

type settingUseCase struct {
	store  store.Store
	logger logger.ZapLogger
}

func NewSettingUseCase(s store.Store, log logger.ZapLogger) setting.UseCase {
	return &settingUseCase{
		store:  s,
		logger: log,
	}
}

// GetSetting creates the default row on first read.
func (uc *settingUseCase) GetSetting(ctx context.Context, actor model.Actor) (*model.TenantSetting, error) {
	var s *model.TenantSetting
	err := uc.store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		s, err = tx.Settings().GetOrCreate(ctx, actor.TenantID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (uc *settingUseCase) UpdateSetting(ctx context.Context, actor model.Actor, allowNegativeStock bool) (*model.TenantSetting, error) {
	s := &model.TenantSetting{
		TenantID:           actor.TenantID,
		AllowNegativeStock: allowNegativeStock,
		UpdatedAt:          time.Now().UTC(),
	}
	err := uc.store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Settings().Upsert(ctx, s); err != nil {
			return err
		}
		return tx.Audit().Append(ctx, audit.NewEvent(actor, audit.ActionSettingUpdate, audit.EntityTenantSetting, actor.TenantID,
			map[string]any{"allowNegativeStock": allowNegativeStock}))
	})
	if err != nil {
		return nil, err
	}

	uc.logger.Info("tenant setting updated",
		zap.String("tenant_id", actor.TenantID),
		zap.Bool("allow_negative_stock", allowNegativeStock),
	)
	return s, nil
}
