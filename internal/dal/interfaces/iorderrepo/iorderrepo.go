package iorder

import (
	"context"

	"github.com/corray333/backend-labs/foodorder/internal/service/models/order"
)

// IOrderRepository is an interface for order postgres repository.
type IOrderRepository interface {
	Insert(ctx context.Context, o order.Order) (order.Order, error)
	GetByID(ctx context.Context, id string) (order.Order, error)
	// GetForUpdate reads the order and locks its row until the surrounding
	// transaction ends.
	GetForUpdate(ctx context.Context, id string) (order.Order, error)
	// Update writes status, delivery status, payment reference and updated_at.
	Update(ctx context.Context, o order.Order) error
	Query(ctx context.Context, filter *order.QueryOrdersModel) ([]order.Order, error)
}
