package postgresrepo

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/corray333/backend-labs/foodorder/internal/dal/postgres"
	"github.com/corray333/backend-labs/foodorder/internal/service/models/orderitem"
	"github.com/jackc/pgx/v5/pgtype"
)

var orderItemColumns = []string{
	"order_id",
	"item_id",
	"name",
	"unit_price",
	"quantity",
	"restaurant_id",
	"special_instructions",
	"created_at",
}

// OrderItemDal represents order item data access layer model.
type OrderItemDal struct {
	Id                  int64
	OrderId             string
	ItemId              string
	Name                string
	UnitPrice           int64
	Quantity            int
	RestaurantId        string
	SpecialInstructions string
	CreatedAt           pgtype.Timestamptz
}

// ToModel converts OrderItemDal to service layer OrderItem model.
func (oi *OrderItemDal) ToModel() orderitem.OrderItem {
	return orderitem.OrderItem{
		ID:                  oi.Id,
		OrderID:             oi.OrderId,
		ItemID:              oi.ItemId,
		Name:                oi.Name,
		UnitPrice:           oi.UnitPrice,
		Quantity:            oi.Quantity,
		RestaurantID:        oi.RestaurantId,
		SpecialInstructions: oi.SpecialInstructions,
		CreatedAt:           oi.CreatedAt.Time,
	}
}

func (oi *OrderItemDal) scanTargets() []any {
	return []any{
		&oi.Id,
		&oi.OrderId,
		&oi.ItemId,
		&oi.Name,
		&oi.UnitPrice,
		&oi.Quantity,
		&oi.RestaurantId,
		&oi.SpecialInstructions,
		&oi.CreatedAt,
	}
}

// PostgresOrderItemRepository represents a Postgres order item repository.
// Items are insert-only.
type PostgresOrderItemRepository struct {
	conn postgres.GenericConn
	sb   sq.StatementBuilderType
}

// NewPostgresOrderItemRepository creates a new Postgres order item repository.
func NewPostgresOrderItemRepository(conn postgres.GenericConn) *PostgresOrderItemRepository {
	return &PostgresOrderItemRepository{
		conn: conn,
		sb:   sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// BulkInsert inserts multiple order items and returns them with IDs, in input order.
func (r *PostgresOrderItemRepository) BulkInsert(
	ctx context.Context,
	orderItems []orderitem.OrderItem,
) ([]orderitem.OrderItem, error) {
	if len(orderItems) == 0 {
		return []orderitem.OrderItem{}, nil
	}

	query := r.sb.
		Insert("order_items").
		Columns(orderItemColumns...)
	for _, oi := range orderItems {
		query = query.Values(
			oi.OrderID,
			oi.ItemID,
			oi.Name,
			oi.UnitPrice,
			oi.Quantity,
			oi.RestaurantID,
			oi.SpecialInstructions,
			oi.CreatedAt,
		)
	}
	query = query.Suffix(
		"RETURNING id, order_id, item_id, name, unit_price, quantity, restaurant_id, special_instructions, created_at",
	)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build insert query: %w", err)
	}

	rows, err := r.conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to bulk insert order items: %w", err)
	}
	defer rows.Close()

	result := make([]orderitem.OrderItem, 0, len(orderItems))
	for rows.Next() {
		var dal OrderItemDal
		if err := rows.Scan(dal.scanTargets()...); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}

		result = append(result, dal.ToModel())
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return result, nil
}

// Query retrieves order items based on filter criteria.
func (r *PostgresOrderItemRepository) Query(
	ctx context.Context,
	filter *orderitem.QueryOrderItemsModel,
) ([]orderitem.OrderItem, error) {
	query := r.sb.
		Select(
			"id",
			"order_id",
			"item_id",
			"name",
			"unit_price",
			"quantity",
			"restaurant_id",
			"special_instructions",
			"created_at",
		).
		From("order_items").
		OrderBy("id")

	if len(filter.Ids) > 0 {
		query = query.Where(sq.Eq{"id": filter.Ids})
	}

	if len(filter.OrderIds) > 0 {
		query = query.Where(sq.Eq{"order_id": filter.OrderIds})
	}

	if len(filter.ItemIds) > 0 {
		query = query.Where(sq.Eq{"item_id": filter.ItemIds})
	}

	if filter.Limit > 0 {
		query = query.Limit(uint64(filter.Limit))
	}

	if filter.Offset > 0 {
		query = query.Offset(uint64(filter.Offset))
	}

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := r.conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	result := make([]orderitem.OrderItem, 0)
	for rows.Next() {
		var dal OrderItemDal
		if err := rows.Scan(dal.scanTargets()...); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}

		result = append(result, dal.ToModel())
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return result, nil
}
