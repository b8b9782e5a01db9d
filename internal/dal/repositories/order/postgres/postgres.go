package postgresrepo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/corray333/backend-labs/foodorder/internal/dal/postgres"
	"github.com/corray333/backend-labs/foodorder/internal/service/models/currency"
	"github.com/corray333/backend-labs/foodorder/internal/service/models/order"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

var orderColumns = []string{
	"id",
	"user_id",
	"restaurant_id",
	"total_amount",
	"delivery_fee",
	"currency",
	"delivery_name",
	"delivery_address",
	"delivery_latitude",
	"delivery_longitude",
	"status",
	"delivery_status",
	"payment_reference",
	"created_at",
	"updated_at",
}

// OrderDal represents order data access layer model.
type OrderDal struct {
	Id                string
	UserId            string
	RestaurantId      string
	TotalAmount       int64
	DeliveryFee       int64
	Currency          string
	DeliveryName      string
	DeliveryAddress   string
	DeliveryLatitude  float64
	DeliveryLongitude float64
	Status            string
	DeliveryStatus    pgtype.Text
	PaymentReference  pgtype.Text
	CreatedAt         pgtype.Timestamptz
	UpdatedAt         pgtype.Timestamptz
}

// ToModel converts OrderDal to service layer Order model.
func (o *OrderDal) ToModel() (order.Order, error) {
	status, err := order.ParseStatus(o.Status)
	if err != nil {
		return order.Order{}, err
	}

	cur, err := currency.ParseCurrency(o.Currency)
	if err != nil {
		return order.Order{}, fmt.Errorf("order %s: %w", o.Id, err)
	}

	m := order.Order{
		ID:           o.Id,
		UserID:       o.UserId,
		RestaurantID: o.RestaurantId,
		TotalAmount:  o.TotalAmount,
		DeliveryFee:  o.DeliveryFee,
		Currency:     cur,
		DeliveryAddress: order.Address{
			Name:      o.DeliveryName,
			Address:   o.DeliveryAddress,
			Latitude:  o.DeliveryLatitude,
			Longitude: o.DeliveryLongitude,
		},
		Status:    status,
		CreatedAt: o.CreatedAt.Time,
		UpdatedAt: o.UpdatedAt.Time,
	}
	if o.DeliveryStatus.Valid {
		ds := order.DeliveryStatus(o.DeliveryStatus.String)
		m.DeliveryStatus = &ds
	}
	if o.PaymentReference.Valid {
		ref := o.PaymentReference.String
		m.PaymentReference = &ref
	}

	return m, nil
}

func (o *OrderDal) scanTargets() []any {
	return []any{
		&o.Id,
		&o.UserId,
		&o.RestaurantId,
		&o.TotalAmount,
		&o.DeliveryFee,
		&o.Currency,
		&o.DeliveryName,
		&o.DeliveryAddress,
		&o.DeliveryLatitude,
		&o.DeliveryLongitude,
		&o.Status,
		&o.DeliveryStatus,
		&o.PaymentReference,
		&o.CreatedAt,
		&o.UpdatedAt,
	}
}

func deliveryStatusValue(ds *order.DeliveryStatus) any {
	if ds == nil {
		return nil
	}

	return string(*ds)
}

func referenceValue(ref *string) any {
	if ref == nil {
		return nil
	}

	return *ref
}

// PostgresOrderRepository represents a Postgres order repository.
type PostgresOrderRepository struct {
	conn postgres.GenericConn
	sb   sq.StatementBuilderType
}

// NewPostgresOrderRepository creates a new Postgres order repository.
func NewPostgresOrderRepository(conn postgres.GenericConn) *PostgresOrderRepository {
	return &PostgresOrderRepository{
		conn: conn,
		sb:   sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// Insert stores a new order. Line items are stored separately.
func (r *PostgresOrderRepository) Insert(ctx context.Context, o order.Order) (order.Order, error) {
	sql, args, err := r.sb.
		Insert("orders").
		Columns(orderColumns...).
		Values(
			o.ID,
			o.UserID,
			o.RestaurantID,
			o.TotalAmount,
			o.DeliveryFee,
			o.Currency.String(),
			o.DeliveryAddress.Name,
			o.DeliveryAddress.Address,
			o.DeliveryAddress.Latitude,
			o.DeliveryAddress.Longitude,
			o.Status.String(),
			deliveryStatusValue(o.DeliveryStatus),
			referenceValue(o.PaymentReference),
			o.CreatedAt,
			o.UpdatedAt,
		).
		Suffix("RETURNING " + strings.Join(orderColumns, ", ")).
		ToSql()
	if err != nil {
		return order.Order{}, fmt.Errorf("failed to build insert query: %w", err)
	}

	var dal OrderDal
	if err := r.conn.QueryRow(ctx, sql, args...).Scan(dal.scanTargets()...); err != nil {
		return order.Order{}, fmt.Errorf("failed to insert order: %w", err)
	}

	inserted, err := dal.ToModel()
	if err != nil {
		return order.Order{}, err
	}
	inserted.OrderItems = o.OrderItems

	return inserted, nil
}

// GetByID returns the order without its items.
func (r *PostgresOrderRepository) GetByID(ctx context.Context, id string) (order.Order, error) {
	return r.get(ctx, id, false)
}

// GetForUpdate returns the order and holds a row lock until the transaction ends.
func (r *PostgresOrderRepository) GetForUpdate(ctx context.Context, id string) (order.Order, error) {
	return r.get(ctx, id, true)
}

func (r *PostgresOrderRepository) get(ctx context.Context, id string, forUpdate bool) (order.Order, error) {
	query := r.sb.
		Select(orderColumns...).
		From("orders").
		Where(sq.Eq{"id": id})
	if forUpdate {
		query = query.Suffix("FOR UPDATE")
	}

	sql, args, err := query.ToSql()
	if err != nil {
		return order.Order{}, fmt.Errorf("failed to build query: %w", err)
	}

	var dal OrderDal
	if err := r.conn.QueryRow(ctx, sql, args...).Scan(dal.scanTargets()...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return order.Order{}, order.ErrNotFound
		}

		return order.Order{}, fmt.Errorf("failed to get order: %w", err)
	}

	return dal.ToModel()
}

// Update writes the mutable fields of the order.
func (r *PostgresOrderRepository) Update(ctx context.Context, o order.Order) error {
	sql, args, err := r.sb.
		Update("orders").
		Set("status", o.Status.String()).
		Set("delivery_status", deliveryStatusValue(o.DeliveryStatus)).
		Set("payment_reference", referenceValue(o.PaymentReference)).
		Set("updated_at", o.UpdatedAt).
		Where(sq.Eq{"id": o.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update query: %w", err)
	}

	tag, err := r.conn.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("failed to update order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}

	return nil
}

// Query retrieves orders based on filter criteria, newest first.
func (r *PostgresOrderRepository) Query(
	ctx context.Context,
	filter *order.QueryOrdersModel,
) ([]order.Order, error) {
	query := r.sb.
		Select(orderColumns...).
		From("orders").
		OrderBy("created_at DESC", "id")

	if len(filter.Ids) > 0 {
		query = query.Where(sq.Eq{"id": filter.Ids})
	}

	if len(filter.UserIds) > 0 {
		query = query.Where(sq.Eq{"user_id": filter.UserIds})
	}

	if len(filter.RestaurantIds) > 0 {
		query = query.Where(sq.Eq{"restaurant_id": filter.RestaurantIds})
	}

	if len(filter.Statuses) > 0 {
		statuses := make([]string, 0, len(filter.Statuses))
		for _, s := range filter.Statuses {
			statuses = append(statuses, s.String())
		}
		query = query.Where(sq.Eq{"status": statuses})
	}

	if !filter.UpdatedBefore.IsZero() {
		query = query.Where(sq.Lt{"updated_at": filter.UpdatedBefore.UTC().Truncate(time.Microsecond)})
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
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	result := make([]order.Order, 0)
	for rows.Next() {
		var dal OrderDal
		if err := rows.Scan(dal.scanTargets()...); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}

		o, err := dal.ToModel()
		if err != nil {
			return nil, err
		}
		result = append(result, o)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return result, nil
}
