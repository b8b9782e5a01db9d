package ioutboxrepo

import (
	"context"
	"time"

	"github.com/corray333/backend-labs/foodorder/internal/service/models/auditlog"
	"github.com/corray333/backend-labs/foodorder/internal/service/models/outbox"
)

// IOutboxRepository stores order events until the outbox worker publishes them.
type IOutboxRepository interface {
	// EnqueueStatusChanged stores the event of an applied transition
	EnqueueStatusChanged(ctx context.Context, event auditlog.StatusChangedEvent) error

	// ClaimPending leases up to limit due messages, at most the oldest undelivered one per order
	ClaimPending(ctx context.Context, limit int, lease time.Duration) ([]outbox.OutboxMessage, error)

	// MarkPublished removes a message after successful delivery
	MarkPublished(ctx context.Context, id int64) error

	// ScheduleRetry records a failed delivery and when to try again
	ScheduleRetry(
		ctx context.Context,
		id int64,
		retryCount int,
		lastError string,
		nextRetryAt time.Time,
	) error
}
