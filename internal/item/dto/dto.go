package dto

const (
	DefaultListLimit = 50
	MaxListLimit     = 100
)

type ItemFilters struct {
	TenantID string
	Query    string // sku, nameEn, nameAr; case-insensitive
	Page     int
	Limit    int
}

// Normalize clamps paging to page >= 1 and limit in [1, MaxListLimit].
func (f *ItemFilters) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	switch {
	case f.Limit <= 0:
		f.Limit = DefaultListLimit
	case f.Limit > MaxListLimit:
		f.Limit = MaxListLimit
	}
}

func (f *ItemFilters) Offset() int {
	return (f.Page - 1) * f.Limit
}
