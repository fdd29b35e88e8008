package audit

import (
	"context"

	"github.com/fekuna/omnipos-ledger-service/internal/model"
)

// Repository only appends. Rows are immutable once written and the postgres
// schema rejects UPDATE and DELETE on them.
type Repository interface {
	Append(ctx context.Context, event *model.AuditEvent) error
}
