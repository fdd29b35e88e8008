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

func (r *PGRepository) Append(ctx context.Context, e *model.AuditEvent) error {
	query := `
        INSERT INTO audit_events (id, tenant_id, actor_user_id, action, entity_type, entity_id, ip, user_agent, meta, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::jsonb, $10)
    `
	meta := string(e.Meta)
	if meta == "" {
		meta = "{}"
	}
	_, err := r.DB.ExecContext(ctx, query,
		e.ID, e.TenantID, e.ActorUserID, e.Action, e.EntityType, e.EntityID, e.IP, e.UserAgent, meta, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}
