package order

import (
	"errors"
	"fmt"
	"time"

	"github.com/corray333/backend-labs/foodorder/internal/service/models/currency"
	"github.com/corray333/backend-labs/foodorder/internal/service/models/orderitem"
)

// Status is the lifecycle status of an order.
type Status string

const (
	StatusPending        Status = "pending"
	StatusPaymentPending Status = "payment_pending"
	StatusConfirmed      Status = "confirmed"
	StatusPreparing      Status = "preparing"
	StatusReady          Status = "ready"
	StatusCompleted      Status = "completed"
	StatusCancelled      Status = "cancelled"
)

// DeliveryStatus tracks the courier side of an order. It is nil until a
// delivery is assigned and is reset to nil when the order is cancelled.
type DeliveryStatus string

const (
	DeliveryStatusAssigned  DeliveryStatus = "assigned"
	DeliveryStatusPickedUp  DeliveryStatus = "picked_up"
	DeliveryStatusInTransit DeliveryStatus = "in_transit"
	DeliveryStatusDelivered DeliveryStatus = "delivered"
)

var (
	ErrInvalidStatus       = errors.New("invalid order status")
	ErrInvalidTransition   = errors.New("invalid order status transition")
	ErrNotFound            = errors.New("order not found")
	ErrStaleReference      = errors.New("payment reference is not current for order")
	ErrEmptyCart           = errors.New("cannot create an order from an empty cart")
	ErrMultipleRestaurants = errors.New("an order must contain items from a single restaurant")
	ErrMissingAddress      = errors.New("delivery address is required")
)

// allowedTransitions lists the legal targets for every status. Statuses
// missing from the map, or mapped to nothing, are terminal.
var allowedTransitions = map[Status][]Status{
	StatusPending:        {StatusConfirmed, StatusCancelled, StatusPaymentPending},
	StatusPaymentPending: {StatusConfirmed, StatusCancelled},
	StatusConfirmed:      {StatusPreparing, StatusCancelled},
	StatusPreparing:      {StatusReady, StatusCancelled},
	StatusReady:          {StatusCompleted, StatusCancelled},
	StatusCompleted:      {},
	StatusCancelled:      {},
}

// TransitionError is returned when a status change is not in the allowed table.
type TransitionError struct {
	From Status
	To   Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: %s -> %s", ErrInvalidTransition, e.From, e.To)
}

func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

func (s Status) String() string {
	return string(s)
}

// IsTerminal reports whether no transition leaves s.
func (s Status) IsTerminal() bool {
	return len(allowedTransitions[s]) == 0
}

// ParseStatus converts a raw string into a known Status.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if _, ok := allowedTransitions[st]; !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}

	return st, nil
}

// AllowedTargets returns the statuses reachable from s in one step.
func AllowedTargets(s Status) []Status {
	targets := allowedTransitions[s]
	out := make([]Status, len(targets))
	copy(out, targets)

	return out
}

// CanTransition checks if moving from one status to another is legal.
func CanTransition(from, to Status) bool {
	for _, target := range allowedTransitions[from] {
		if target == to {
			return true
		}
	}

	return false
}

// ValidateTransition returns a *TransitionError when the move is illegal.
func ValidateTransition(from, to Status) error {
	if !CanTransition(from, to) {
		return &TransitionError{From: from, To: to}
	}

	return nil
}

// Address is the delivery destination of an order.
type Address struct {
	Name      string  `json:"name"`
	Address   string  `json:"address"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Order represents an order in the system.
type Order struct {
	ID               string                `json:"id"`
	UserID           string                `json:"userId"`
	RestaurantID     string                `json:"restaurantId"`
	OrderItems       []orderitem.OrderItem `json:"orderItems"`
	TotalAmount      int64                 `json:"totalAmount"`
	DeliveryFee      int64                 `json:"deliveryFee"`
	Currency         currency.Currency     `json:"currency"`
	DeliveryAddress  Address               `json:"deliveryAddress"`
	Status           Status                `json:"status"`
	DeliveryStatus   *DeliveryStatus       `json:"deliveryStatus"`
	PaymentReference *string               `json:"paymentReference"`
	CreatedAt        time.Time             `json:"createdAt"`
	UpdatedAt        time.Time             `json:"updatedAt"`
}

// HasReference reports whether ref is the payment reference currently stored on the order.
func (o Order) HasReference(ref string) bool {
	return o.PaymentReference != nil && *o.PaymentReference == ref
}

// ItemsSubtotal sums price times quantity over the order lines.
func (o Order) ItemsSubtotal() int64 {
	var total int64
	for _, item := range o.OrderItems {
		total += item.Subtotal()
	}

	return total
}
