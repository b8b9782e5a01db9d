package postgresrepo

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/corray333/backend-labs/foodorder/internal/dal/postgres"
)

// StreakPostgresRepository represents a Postgres order streak repository.
type StreakPostgresRepository struct {
	conn postgres.GenericConn
	sb   sq.StatementBuilderType
}

// NewStreakPostgresRepository creates a new streak repository.
func NewStreakPostgresRepository(conn postgres.GenericConn) *StreakPostgresRepository {
	return &StreakPostgresRepository{
		conn: conn,
		sb:   sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// CreateIfAbsent inserts a streak of one. An existing streak is left untouched.
func (r *StreakPostgresRepository) CreateIfAbsent(ctx context.Context, userID string, at time.Time) (bool, error) {
	sql, args, err := r.sb.
		Insert("order_streaks").
		Columns("user_id", "current_streak", "last_order_at").
		Values(userID, 1, at).
		Suffix("ON CONFLICT (user_id) DO NOTHING").
		ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to build insert query: %w", err)
	}

	tag, err := r.conn.Exec(ctx, sql, args...)
	if err != nil {
		return false, fmt.Errorf("failed to create order streak: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}
