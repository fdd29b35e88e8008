package model

import "time"

type TenantSetting struct {
	TenantID           string    `db:"tenant_id" json:"-"`
	AllowNegativeStock bool      `db:"allow_negative_stock" json:"allowNegativeStock"`
	UpdatedAt          time.Time `db:"updated_at" json:"updatedAt"`
}
