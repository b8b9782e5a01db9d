package iauditrepo

import (
	"context"

	"github.com/corray333/backend-labs/foodorder/internal/service/models/auditlog"
)

// IAuditRepository stores the status history of orders.
type IAuditRepository interface {
	Insert(ctx context.Context, entry auditlog.AuditLogOrder) (auditlog.AuditLogOrder, error)
	ListByOrder(ctx context.Context, orderID string) ([]auditlog.AuditLogOrder, error)
}
