package repository

import (
	"context"
	"fmt"

	"github.com/fekuna/omnipos-ledger-service/internal/model"
	"github.com/jmoiron/sqlx"
)

type PGRepository struct {
	DB sqlx.ExtContext
}

func NewPGRepository(db sqlx.ExtContext) *PGRepository {
	return &PGRepository{DB: db}
}

func (r *PGRepository) GetOrCreate(ctx context.Context, tenantID string) (*model.TenantSetting, error) {
	// ON CONFLICT keeps two first-time readers from failing on each other.
	insert := `
        INSERT INTO tenant_settings (tenant_id, allow_negative_stock, updated_at)
        VALUES ($1, FALSE, now())
        ON CONFLICT (tenant_id) DO NOTHING
    `
	if _, err := r.DB.ExecContext(ctx, insert, tenantID); err != nil {
		return nil, fmt.Errorf("insert tenant setting: %w", err)
	}

	var s model.TenantSetting
	query := `SELECT tenant_id, allow_negative_stock, updated_at FROM tenant_settings WHERE tenant_id = $1`
	if err := sqlx.GetContext(ctx, r.DB, &s, query, tenantID); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *PGRepository) Upsert(ctx context.Context, s *model.TenantSetting) error {
	query := `
        INSERT INTO tenant_settings (tenant_id, allow_negative_stock, updated_at)
        VALUES (:tenant_id, :allow_negative_stock, :updated_at)
        ON CONFLICT (tenant_id)
        DO UPDATE SET
            allow_negative_stock = EXCLUDED.allow_negative_stock,
            updated_at = EXCLUDED.updated_at
    `
	if _, err := sqlx.NamedExecContext(ctx, r.DB, query, s); err != nil {
		return fmt.Errorf("upsert tenant setting: %w", err)
	}
	return nil
}
