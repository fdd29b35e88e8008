package usecase

import (
	"context"
	"testing"

	"github.com/fekuna/omnipos-ledger-service/internal/audit"
	"github.com/fekuna/omnipos-ledger-service/internal/logger"
	"github.com/fekuna/omnipos-ledger-service/internal/model"
	"github.com/fekuna/omnipos-ledger-service/internal/store/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetSettingDefaults(t *testing.T) {
	uc := NewSettingUseCase(memory.New(), logger.NewNop())

	s, err := uc.GetSetting(context.Background(), model.Actor{TenantID: "t1", UserID: "u1"})
	require.NoError(t, err)
	assert.False(t, s.AllowNegativeStock)
	assert.Equal(t, "t1", s.TenantID)
}

func TestUpdateSettingIsTenantScoped(t *testing.T) {
	st := memory.New()
	uc := NewSettingUseCase(st, logger.NewNop())
	ctx := context.Background()
	t1 := model.Actor{TenantID: "t1", UserID: "u1"}
	t2 := model.Actor{TenantID: "t2", UserID: "u2"}

	updated, err := uc.UpdateSetting(ctx, t1, true)
	require.NoError(t, err)
	assert.True(t, updated.AllowNegativeStock)

	got, err := uc.GetSetting(ctx, t1)
	require.NoError(t, err)
	assert.True(t, got.AllowNegativeStock)

	other, err := uc.GetSetting(ctx, t2)
	require.NoError(t, err)
	assert.False(t, other.AllowNegativeStock)

	events := st.AuditEvents()
	require.Len(t, events, 1)
	assert.Equal(t, audit.ActionSettingUpdate, events[0].Action)
	assert.JSONEq(t, `{"allowNegativeStock":true}`, string(events[0].Meta))
}
