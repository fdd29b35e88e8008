package model

type Item struct {
	BaseModel
	TenantID string  `db:"tenant_id" json:"tenantId"`
	SKU      string  `db:"sku" json:"sku"`
	NameEn   string  `db:"name_en" json:"nameEn"`
	NameAr   *string `db:"name_ar" json:"nameAr"` // Nullable
	IsStock  bool    `db:"is_stock" json:"isStock"`
}

// ItemWithBalance is the listing shape: the item plus a summary of its balance
// row, nil for non-stock items.
type ItemWithBalance struct {
	Item
	Balance *BalanceSummary `db:"-" json:"balance"`
}
