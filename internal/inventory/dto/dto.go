package dto

const (
	DefaultMovementLimit = 50
	MaxMovementLimit     = 100
)

type MovementFilters struct {
	TenantID string
	ItemID   string
	Limit    int
}

// ClampLimit keeps the page size within [1, MaxMovementLimit]; zero means default.
func ClampLimit(limit int) int {
	switch {
	case limit == 0:
		return DefaultMovementLimit
	case limit < 1:
		return 1
	case limit > MaxMovementLimit:
		return MaxMovementLimit
	}
	return limit
}
