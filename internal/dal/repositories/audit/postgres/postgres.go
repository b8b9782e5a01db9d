package postgresrepo

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/corray333/backend-labs/foodorder/internal/dal/postgres"
	"github.com/corray333/backend-labs/foodorder/internal/service/models/auditlog"
	"github.com/jackc/pgx/v5/pgtype"
)

// AuditPostgresRepository stores applied order transitions in order_status_log.
type AuditPostgresRepository struct {
	conn postgres.GenericConn
	sb   sq.StatementBuilderType
}

// NewAuditPostgresRepository creates a new status log repository.
func NewAuditPostgresRepository(conn postgres.GenericConn) *AuditPostgresRepository {
	return &AuditPostgresRepository{
		conn: conn,
		sb:   sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// Insert appends an entry and returns it with its ID.
func (r *AuditPostgresRepository) Insert(
	ctx context.Context,
	entry auditlog.AuditLogOrder,
) (auditlog.AuditLogOrder, error) {
	sql, args, err := r.sb.
		Insert("order_status_log").
		Columns("order_id", "user_id", "from_status", "to_status", "actor", "payment_reference", "created_at").
		Values(
			entry.OrderID,
			entry.UserID,
			entry.FromStatus,
			entry.ToStatus,
			entry.Actor,
			entry.PaymentReference,
			entry.CreatedAt,
		).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return auditlog.AuditLogOrder{}, fmt.Errorf("failed to build insert query: %w", err)
	}

	if err := r.conn.QueryRow(ctx, sql, args...).Scan(&entry.ID); err != nil {
		return auditlog.AuditLogOrder{}, fmt.Errorf("failed to insert status log entry: %w", err)
	}

	return entry, nil
}

// ListByOrder returns the transitions of an order, oldest first.
func (r *AuditPostgresRepository) ListByOrder(
	ctx context.Context,
	orderID string,
) ([]auditlog.AuditLogOrder, error) {
	sql, args, err := r.sb.
		Select("id", "order_id", "user_id", "from_status", "to_status", "actor", "payment_reference", "created_at").
		From("order_status_log").
		Where(sq.Eq{"order_id": orderID}).
		OrderBy("id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := r.conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query status log: %w", err)
	}
	defer rows.Close()

	entries := make([]auditlog.AuditLogOrder, 0)
	for rows.Next() {
		var (
			entry     auditlog.AuditLogOrder
			reference pgtype.Text
			createdAt pgtype.Timestamptz
		)
		if err := rows.Scan(
			&entry.ID,
			&entry.OrderID,
			&entry.UserID,
			&entry.FromStatus,
			&entry.ToStatus,
			&entry.Actor,
			&reference,
			&createdAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan status log entry: %w", err)
		}
		if reference.Valid {
			ref := reference.String
			entry.PaymentReference = &ref
		}
		entry.CreatedAt = createdAt.Time

		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return entries, nil
}
