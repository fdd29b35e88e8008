package audit

import (
	"encoding/json"
	"time"

	"github.com/fekuna/omnipos-ledger-service/internal/model"
	"github.com/google/uuid"
)

const (
	ActionItemCreate          = "item.create"
	ActionInventoryAdjust     = "inventory.adjust"
	ActionSettingUpdate       = "tenantSetting.update"
	ActionSalesOrderCreate    = "sales_order.create"
	ActionSalesOrderConfirm   = "sales_order.confirm"
	ActionSalesOrderCancel    = "sales_order.cancel"
	ActionInvoiceCreate       = "invoice.create"
	ActionInvoiceIssue        = "invoice.issue_from_sales_order"
	ActionInvoicePaymentAdded = "invoice.payment_create"
)

const (
	EntityItem              = "Item"
	EntityInventoryMovement = "InventoryMovement"
	EntityTenantSetting     = "TenantSetting"
	EntitySalesOrder        = "SalesOrder"
	EntityInvoice           = "Invoice"
)

// NewEvent builds the audit row for a state change made by actor.
func NewEvent(actor model.Actor, action, entityType, entityID string, meta map[string]any) *model.AuditEvent {
	if meta == nil {
		meta = map[string]any{}
	}
	raw, err := json.Marshal(meta)
	if err != nil {
		raw = []byte("{}")
	}
	return &model.AuditEvent{
		ID:          uuid.New().String(),
		TenantID:    actor.TenantID,
		ActorUserID: optional(actor.UserID),
		Action:      action,
		EntityType:  optional(entityType),
		EntityID:    optional(entityID),
		IP:          optional(actor.IP),
		UserAgent:   optional(actor.UserAgent),
		Meta:        raw,
		CreatedAt:   time.Now().UTC(),
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
