package ordersvc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	iaudit "github.com/corray333/backend-labs/foodorder/internal/dal/interfaces/iauditrepo"
	iorder "github.com/corray333/backend-labs/foodorder/internal/dal/interfaces/iorderrepo"
	iorderitem "github.com/corray333/backend-labs/foodorder/internal/dal/interfaces/iorderitemrepo"
	"github.com/corray333/backend-labs/foodorder/internal/dal/interfaces/ioutboxrepo"
	"github.com/corray333/backend-labs/foodorder/internal/dal/interfaces/istreakrepo"
	"github.com/corray333/backend-labs/foodorder/internal/dal/postgres"
	"github.com/corray333/backend-labs/foodorder/internal/dal/uow"
	"github.com/corray333/backend-labs/foodorder/internal/metrics"
	"github.com/corray333/backend-labs/foodorder/internal/service/models/auditlog"
	"github.com/corray333/backend-labs/foodorder/internal/service/models/cart"
	"github.com/corray333/backend-labs/foodorder/internal/service/models/currency"
	"github.com/corray333/backend-labs/foodorder/internal/service/models/order"
	"github.com/corray333/backend-labs/foodorder/internal/service/models/orderitem"
	"github.com/google/uuid"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

const (
	ActorSystem  = "system"
	ActorExpiry  = "expiry"
	ActorPayment = "payment"
)

// OrderService is a service for managing orders.
// Every status change goes through one row-locked transaction.
type OrderService struct {
	newUOW      func() unitOfWork
	now         func() time.Time
	deliveryFee int64
	currency    currency.Currency
}

type unitOfWork interface {
	Begin(ctx context.Context) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error

	OrderRepository() iorder.IOrderRepository
	OrderItemRepository() iorderitem.IOrderItemRepository
	AuditRepository() iaudit.IAuditRepository
	OutboxRepository() ioutboxrepo.IOutboxRepository
	StreakRepository() istreakrepo.IStreakRepository
}

// option is a function that configures the OrderService.
type option func(*OrderService)

// MustNewOrderService creates a new OrderService.
func MustNewOrderService(opts ...option) *OrderService {
	s := &OrderService{
		now:         time.Now,
		deliveryFee: viper.GetInt64("order.delivery_fee"),
		currency:    currency.CurrencyNGN,
	}
	if c := viper.GetString("payment.currency"); c != "" {
		cur, err := currency.ParseCurrency(c)
		if err != nil {
			panic(fmt.Sprintf("invalid payment.currency %q: %v", c, err))
		}
		s.currency = cur
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.newUOW == nil {
		panic("order service requires a unit of work")
	}

	return s
}

// WithPostgresClient sets the Postgres client for the OrderService.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithPostgresClient(pgClient *postgres.Client) option {
	return func(s *OrderService) {
		s.newUOW = func() unitOfWork {
			return uow.NewUnitOfWork(pgClient)
		}
	}
}

// WithUnitOfWorkFactory sets a custom unit of work constructor.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithUnitOfWorkFactory(factory func() unitOfWork) option {
	return func(s *OrderService) {
		s.newUOW = factory
	}
}

// WithClock overrides the time source.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithClock(now func() time.Time) option {
	return func(s *OrderService) {
		s.now = now
	}
}

// WithDeliveryFee sets the flat delivery fee in minor units.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithDeliveryFee(fee int64) option {
	return func(s *OrderService) {
		s.deliveryFee = fee
	}
}

// CreateOrderRequest holds what is needed to turn a cart into an order.
type CreateOrderRequest struct {
	UserID          string
	Items           []cart.Item
	DeliveryAddress order.Address
}

// CreateOrder persists a pending order for the items of a single restaurant.
func (s *OrderService) CreateOrder(ctx context.Context, req CreateOrderRequest) (order.Order, error) {
	ctx, span := otel.Tracer("service").Start(ctx, "OrderService.CreateOrder")
	defer span.End()

	if len(req.Items) == 0 {
		return order.Order{}, order.ErrEmptyCart
	}
	groups := cart.GroupByRestaurant(req.Items)
	if len(groups) > 1 {
		return order.Order{}, order.ErrMultipleRestaurants
	}
	if req.DeliveryAddress.Address == "" {
		return order.Order{}, order.ErrMissingAddress
	}

	now := s.now().UTC()
	o := order.Order{
		ID:              uuid.NewString(),
		UserID:          req.UserID,
		RestaurantID:    groups[0].RestaurantID,
		DeliveryFee:     s.deliveryFee,
		Currency:        s.currency,
		DeliveryAddress: req.DeliveryAddress,
		Status:          order.StatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	for _, item := range req.Items {
		o.OrderItems = append(o.OrderItems, orderitem.OrderItem{
			OrderID:             o.ID,
			ItemID:              item.ItemID,
			Name:                item.Name,
			UnitPrice:           item.Price,
			Quantity:            item.Quantity,
			RestaurantID:        item.RestaurantID,
			SpecialInstructions: item.SpecialInstructions,
			CreatedAt:           now,
		})
	}
	o.TotalAmount = o.ItemsSubtotal() + o.DeliveryFee
	span.SetAttributes(attribute.String("order.id", o.ID))

	work := s.newUOW()
	if err := work.Begin(ctx); err != nil {
		return order.Order{}, err
	}
	defer func() {
		_ = work.Rollback(ctx)
	}()

	created, err := work.OrderRepository().Insert(ctx, o)
	if err != nil {
		return order.Order{}, err
	}

	items, err := work.OrderItemRepository().BulkInsert(ctx, o.OrderItems)
	if err != nil {
		return order.Order{}, err
	}
	created.OrderItems = items

	if err := work.Commit(ctx); err != nil {
		return order.Order{}, fmt.Errorf("failed to commit order: %w", err)
	}

	slog.Info("Order created", "order_id", created.ID, "user_id", created.UserID, "total", created.TotalAmount)

	return created, nil
}

// transitionOptions configures Transition.
type transitionOptions struct {
	expectedReference *string
	actor             string
}

// TransitionOption configures a single Transition call.
type TransitionOption func(*transitionOptions)

// WithExpectedReference makes the transition fail with order.ErrStaleReference
// unless the order currently holds this payment reference.
func WithExpectedReference(reference string) TransitionOption {
	return func(o *transitionOptions) {
		o.expectedReference = &reference
	}
}

// WithActor records who requested the transition in the status log.
func WithActor(actor string) TransitionOption {
	return func(o *transitionOptions) {
		o.actor = actor
	}
}

// ResolveTransitionOptions returns the expected reference, nil when unset,
// and the actor, ActorSystem when unset.
func ResolveTransitionOptions(opts ...TransitionOption) (*string, string) {
	options := transitionOptions{actor: ActorSystem}
	for _, opt := range opts {
		opt(&options)
	}

	return options.expectedReference, options.actor
}

// Transition moves the order to target if the transition table allows it.
// The check runs against a fresh read taken under a row lock.
func (s *OrderService) Transition(
	ctx context.Context,
	orderID string,
	target order.Status,
	opts ...TransitionOption,
) (order.Order, error) {
	ctx, span := otel.Tracer("service").Start(ctx, "OrderService.Transition")
	defer span.End()
	span.SetAttributes(attribute.String("order.id", orderID), attribute.String("order.target", target.String()))

	expectedReference, actor := ResolveTransitionOptions(opts...)

	return s.apply(ctx, orderID, actor, func(o *order.Order) error {
		if expectedReference != nil && !o.HasReference(*expectedReference) {
			return order.ErrStaleReference
		}
		if err := order.ValidateTransition(o.Status, target); err != nil {
			return err
		}

		o.Status = target
		if target == order.StatusCancelled {
			o.DeliveryStatus = nil
		}

		return nil
	})
}

// BeginPayment moves a pending order to payment_pending with the reference of
// a new attempt. An order already in payment_pending takes the new reference
// and the previous one becomes stale.
func (s *OrderService) BeginPayment(ctx context.Context, orderID, reference string) (order.Order, error) {
	ctx, span := otel.Tracer("service").Start(ctx, "OrderService.BeginPayment")
	defer span.End()

	return s.apply(ctx, orderID, ActorPayment, func(o *order.Order) error {
		if o.Status != order.StatusPaymentPending {
			if err := order.ValidateTransition(o.Status, order.StatusPaymentPending); err != nil {
				return err
			}
			o.Status = order.StatusPaymentPending
		}
		o.PaymentReference = &reference

		return nil
	})
}

// AbortPayment reverts payment_pending to pending and clears the reference.
// It only applies while the order still holds reference.
func (s *OrderService) AbortPayment(ctx context.Context, orderID, reference string) (order.Order, error) {
	ctx, span := otel.Tracer("service").Start(ctx, "OrderService.AbortPayment")
	defer span.End()

	return s.apply(ctx, orderID, ActorPayment, func(o *order.Order) error {
		if o.Status != order.StatusPaymentPending {
			return &order.TransitionError{From: o.Status, To: order.StatusPending}
		}
		if !o.HasReference(reference) {
			return order.ErrStaleReference
		}

		o.Status = order.StatusPending
		o.PaymentReference = nil

		return nil
	})
}

// apply runs mutate on a locked copy of the order and persists the result
// together with its status log entry and outbox event.
func (s *OrderService) apply(
	ctx context.Context,
	orderID string,
	actor string,
	mutate func(o *order.Order) error,
) (order.Order, error) {
	if !isOrderID(orderID) {
		return order.Order{}, order.ErrNotFound
	}

	work := s.newUOW()
	if err := work.Begin(ctx); err != nil {
		return order.Order{}, err
	}
	defer func() {
		_ = work.Rollback(ctx)
	}()

	current, err := work.OrderRepository().GetForUpdate(ctx, orderID)
	if err != nil {
		return order.Order{}, err
	}

	updated := current
	if err := mutate(&updated); err != nil {
		metrics.RejectedTransitions.WithLabelValues(rejectReason(err)).Inc()

		return order.Order{}, err
	}
	updated.UpdatedAt = s.now().UTC()

	if err := work.OrderRepository().Update(ctx, updated); err != nil {
		return order.Order{}, err
	}

	entry, err := work.AuditRepository().Insert(ctx, auditlog.AuditLogOrder{
		OrderID:          updated.ID,
		UserID:           updated.UserID,
		FromStatus:       current.Status.String(),
		ToStatus:         updated.Status.String(),
		Actor:            actor,
		PaymentReference: updated.PaymentReference,
		CreatedAt:        updated.UpdatedAt,
	})
	if err != nil {
		return order.Order{}, err
	}

	if current.Status != updated.Status {
		if err := work.OutboxRepository().EnqueueStatusChanged(ctx, entry.Event()); err != nil {
			return order.Order{}, err
		}
	}

	if err := work.Commit(ctx); err != nil {
		return order.Order{}, fmt.Errorf("failed to commit transition: %w", err)
	}

	metrics.OrderTransitions.WithLabelValues(current.Status.String(), updated.Status.String()).Inc()
	slog.Info("Order status changed",
		"order_id", updated.ID,
		"from", current.Status,
		"to", updated.Status,
		"actor", actor,
	)

	if updated.Status == order.StatusConfirmed && current.Status != order.StatusConfirmed {
		s.recordStreak(context.WithoutCancel(ctx), updated)
	}

	items, err := work.OrderItemRepository().Query(ctx, &orderitem.QueryOrderItemsModel{OrderIds: []string{updated.ID}})
	if err != nil {
		slog.Warn("Failed to load order items after transition", "order_id", updated.ID, "error", err)
	} else {
		updated.OrderItems = items
	}

	return updated, nil
}

// recordStreak starts the user's order streak. Failures never affect the
// transition that triggered it.
func (s *OrderService) recordStreak(ctx context.Context, o order.Order) {
	created, err := s.newUOW().StreakRepository().CreateIfAbsent(ctx, o.UserID, o.UpdatedAt)
	if err != nil {
		slog.Error("Failed to create order streak", "user_id", o.UserID, "order_id", o.ID, "error", err)

		return
	}
	if created {
		slog.Info("Order streak started", "user_id", o.UserID)
	}
}

// GetOrder returns the order with its items.
func (s *OrderService) GetOrder(ctx context.Context, orderID string) (order.Order, error) {
	ctx, span := otel.Tracer("service").Start(ctx, "OrderService.GetOrder")
	defer span.End()

	if !isOrderID(orderID) {
		return order.Order{}, order.ErrNotFound
	}

	work := s.newUOW()

	o, err := work.OrderRepository().GetByID(ctx, orderID)
	if err != nil {
		return order.Order{}, err
	}

	items, err := work.OrderItemRepository().Query(ctx, &orderitem.QueryOrderItemsModel{OrderIds: []string{o.ID}})
	if err != nil {
		return order.Order{}, err
	}
	o.OrderItems = items

	return o, nil
}

// GetOrders retrieves orders with their items based on filter.
func (s *OrderService) GetOrders(ctx context.Context, filter order.QueryOrdersModel) ([]order.Order, error) {
	ctx, span := otel.Tracer("service").Start(ctx, "OrderService.GetOrders")
	defer span.End()

	work := s.newUOW()

	orders, err := work.OrderRepository().Query(ctx, &filter)
	if err != nil {
		return nil, err
	}

	if len(orders) == 0 {
		return []order.Order{}, nil
	}

	orderItemQuery := &orderitem.QueryOrderItemsModel{}
	for _, o := range orders {
		orderItemQuery.OrderIds = append(orderItemQuery.OrderIds, o.ID)
	}
	orderItems, err := work.OrderItemRepository().Query(ctx, orderItemQuery)
	if err != nil {
		return nil, err
	}

	for i := range orders {
		for _, item := range orderItems {
			if item.OrderID == orders[i].ID {
				orders[i].OrderItems = append(orders[i].OrderItems, item)
			}
		}
	}

	return orders, nil
}

// History returns the applied transitions of an order, oldest first.
func (s *OrderService) History(ctx context.Context, orderID string) ([]auditlog.AuditLogOrder, error) {
	ctx, span := otel.Tracer("service").Start(ctx, "OrderService.History")
	defer span.End()

	if !isOrderID(orderID) {
		return nil, order.ErrNotFound
	}

	work := s.newUOW()
	if _, err := work.OrderRepository().GetByID(ctx, orderID); err != nil {
		return nil, err
	}

	return work.AuditRepository().ListByOrder(ctx, orderID)
}

// ExpireStalePayments cancels payment_pending orders that have not changed for
// olderThan. It returns how many orders were cancelled.
func (s *OrderService) ExpireStalePayments(ctx context.Context, olderThan time.Duration, limit int) (int, error) {
	ctx, span := otel.Tracer("service").Start(ctx, "OrderService.ExpireStalePayments")
	defer span.End()

	stale, err := s.newUOW().OrderRepository().Query(ctx, &order.QueryOrdersModel{
		Statuses:      []order.Status{order.StatusPaymentPending},
		UpdatedBefore: s.now().Add(-olderThan),
		Limit:         limit,
	})
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, o := range stale {
		opts := []TransitionOption{WithActor(ActorExpiry)}
		if o.PaymentReference != nil {
			opts = append(opts, WithExpectedReference(*o.PaymentReference))
		}

		_, err := s.Transition(ctx, o.ID, order.StatusCancelled, opts...)
		switch {
		case err == nil:
			expired++
			metrics.ExpiredOrders.Inc()
		case errors.Is(err, order.ErrInvalidTransition), errors.Is(err, order.ErrStaleReference):
			// A payment signal or a new attempt got there first.
			slog.Info("Skipping expiry of order that changed meanwhile", "order_id", o.ID, "reason", err)
		default:
			slog.Error("Failed to expire order", "order_id", o.ID, "error", err)
		}
	}

	return expired, nil
}

func isOrderID(id string) bool {
	_, err := uuid.Parse(id)

	return err == nil
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, order.ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, order.ErrStaleReference):
		return "stale_reference"
	case errors.Is(err, order.ErrNotFound):
		return "not_found"
	default:
		return "other"
	}
}
