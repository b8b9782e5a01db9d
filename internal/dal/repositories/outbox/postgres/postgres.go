package postgres

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/corray333/backend-labs/foodorder/internal/dal/postgres"
	"github.com/corray333/backend-labs/foodorder/internal/service/models/auditlog"
	"github.com/corray333/backend-labs/foodorder/internal/service/models/outbox"
	"github.com/jackc/pgx/v5/pgtype"
)

var outboxColumns = []string{
	"id",
	"order_id",
	"exchange_name",
	"routing_key",
	"payload",
	"content_type",
	"retry_count",
	"max_retries",
	"last_error",
	"created_at",
	"updated_at",
	"next_retry_at",
}

// OutboxDal represents outbox data access layer model.
type OutboxDal struct {
	Id           int64
	OrderId      string
	ExchangeName string
	RoutingKey   string
	Payload      []byte
	ContentType  string
	RetryCount   int
	MaxRetries   int
	LastError    string
	CreatedAt    pgtype.Timestamptz
	UpdatedAt    pgtype.Timestamptz
	NextRetryAt  pgtype.Timestamptz
}

// ToModel converts OutboxDal to service layer OutboxMessage model.
func (o *OutboxDal) ToModel() outbox.OutboxMessage {
	return outbox.OutboxMessage{
		ID:           o.Id,
		OrderID:      o.OrderId,
		ExchangeName: o.ExchangeName,
		RoutingKey:   o.RoutingKey,
		Payload:      o.Payload,
		ContentType:  o.ContentType,
		RetryCount:   o.RetryCount,
		MaxRetries:   o.MaxRetries,
		LastError:    o.LastError,
		CreatedAt:    o.CreatedAt.Time,
		UpdatedAt:    o.UpdatedAt.Time,
		NextRetryAt:  o.NextRetryAt.Time,
	}
}

func (o *OutboxDal) scanTargets() []any {
	return []any{
		&o.Id,
		&o.OrderId,
		&o.ExchangeName,
		&o.RoutingKey,
		&o.Payload,
		&o.ContentType,
		&o.RetryCount,
		&o.MaxRetries,
		&o.LastError,
		&o.CreatedAt,
		&o.UpdatedAt,
		&o.NextRetryAt,
	}
}

// OutboxRepository implements the outbox repository for PostgreSQL.
// It runs on the pool for the worker and on a transaction inside a unit of work.
type OutboxRepository struct {
	conn postgres.GenericConn
	sb   sq.StatementBuilderType
	now  func() time.Time
}

// NewOutboxRepository creates a new outbox repository.
func NewOutboxRepository(conn postgres.GenericConn) *OutboxRepository {
	return &OutboxRepository{
		conn: conn,
		sb:   sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
		now:  time.Now,
	}
}

// EnqueueStatusChanged stores the order.status_changed message for event.
func (r *OutboxRepository) EnqueueStatusChanged(ctx context.Context, event auditlog.StatusChangedEvent) error {
	msg, err := outbox.NewStatusChanged(event)
	if err != nil {
		return err
	}

	sql, args, err := r.sb.
		Insert("outbox").
		Columns(outboxColumns[1:]...).
		Values(
			msg.OrderID,
			msg.ExchangeName,
			msg.RoutingKey,
			msg.Payload,
			msg.ContentType,
			msg.RetryCount,
			msg.MaxRetries,
			msg.LastError,
			msg.CreatedAt,
			msg.UpdatedAt,
			msg.NextRetryAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build insert query: %w", err)
	}

	if _, err := r.conn.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("failed to enqueue status changed event: %w", err)
	}

	return nil
}

// claimQuery selects due messages that have no older undelivered message for
// the same order, skipping rows another worker holds. It uses question
// placeholders since it is nested into a dollar-formatted statement.
func claimQuery(now time.Time, limit int) sq.SelectBuilder {
	return sq.Select("o.id").
		From("outbox o").
		Where(sq.LtOrEq{"o.next_retry_at": now}).
		Where("o.retry_count < o.max_retries").
		Where(`NOT EXISTS (
			SELECT 1 FROM outbox prev
			WHERE prev.order_id = o.order_id
			  AND prev.id < o.id
			  AND prev.retry_count < prev.max_retries
		)`).
		OrderBy("o.next_retry_at ASC", "o.id ASC").
		Limit(uint64(limit)).
		Suffix("FOR UPDATE SKIP LOCKED")
}

// ClaimPending pushes next_retry_at of the claimed messages lease into the
// future, so a crashed worker's messages become due again once it expires.
func (r *OutboxRepository) ClaimPending(
	ctx context.Context,
	limit int,
	lease time.Duration,
) ([]outbox.OutboxMessage, error) {
	now := r.now()

	sql, args, err := r.sb.
		Update("outbox").
		Set("next_retry_at", now.Add(lease)).
		Set("updated_at", now).
		Where(sq.Expr("id IN (?)", claimQuery(now, limit))).
		Suffix("RETURNING " + strings.Join(outboxColumns, ", ")).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build claim query: %w", err)
	}

	rows, err := r.conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to claim outbox messages: %w", err)
	}
	defer rows.Close()

	messages := make([]outbox.OutboxMessage, 0, limit)
	for rows.Next() {
		var dal OutboxDal
		if err := rows.Scan(dal.scanTargets()...); err != nil {
			return nil, fmt.Errorf("failed to scan outbox message: %w", err)
		}
		messages = append(messages, dal.ToModel())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating outbox messages: %w", err)
	}

	slices.SortFunc(messages, func(a, b outbox.OutboxMessage) int {
		return cmp.Compare(a.ID, b.ID)
	})

	return messages, nil
}

// MarkPublished removes a delivered message.
func (r *OutboxRepository) MarkPublished(ctx context.Context, id int64) error {
	sql, args, err := r.sb.
		Delete("outbox").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build delete query: %w", err)
	}

	if _, err := r.conn.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("failed to delete outbox message: %w", err)
	}

	return nil
}

// ScheduleRetry records a failed delivery. A message whose retry count reaches
// max_retries is never claimed again and stops blocking its order.
func (r *OutboxRepository) ScheduleRetry(
	ctx context.Context,
	id int64,
	retryCount int,
	lastError string,
	nextRetryAt time.Time,
) error {
	sql, args, err := r.sb.
		Update("outbox").
		Set("retry_count", retryCount).
		Set("last_error", lastError).
		Set("next_retry_at", nextRetryAt).
		Set("updated_at", r.now()).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update query: %w", err)
	}

	if _, err := r.conn.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("failed to update outbox message: %w", err)
	}

	return nil
}
