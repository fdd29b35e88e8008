package model

import (
	"encoding/json"
	"time"
)

// Actor is the resolved caller of a core operation. TenantID scopes every read
// and write; IP and UserAgent only feed the audit trail.
type Actor struct {
	TenantID  string
	UserID    string
	IP        string
	UserAgent string
}

type AuditEvent struct {
	ID          string          `db:"id" json:"id"`
	TenantID    string          `db:"tenant_id" json:"tenantId"`
	ActorUserID *string         `db:"actor_user_id" json:"actorUserId"`
	Action      string          `db:"action" json:"action"`
	EntityType  *string         `db:"entity_type" json:"entityType"`
	EntityID    *string         `db:"entity_id" json:"entityId"`
	IP          *string         `db:"ip" json:"ip"`
	UserAgent   *string         `db:"user_agent" json:"userAgent"`
	Meta        json.RawMessage `db:"meta" json:"meta"`
	CreatedAt   time.Time       `db:"created_at" json:"createdAt"`
}
