package outbox

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/corray333/backend-labs/foodorder/internal/service/models/auditlog"
)

const (
	ExchangeOrders          = "orders"
	RoutingKeyStatusChanged = "order.status_changed"
	ContentTypeJSON         = "application/json"
	DefaultMaxRetries       = 5
)

// OutboxMessage is an order event stored in the same transaction as the
// transition it describes and relayed to RabbitMQ by the outbox worker.
// Messages of one order are published in ID order.
type OutboxMessage struct {
	ID           int64
	OrderID      string
	ExchangeName string
	RoutingKey   string
	Payload      []byte
	ContentType  string
	RetryCount   int
	MaxRetries   int
	LastError    string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	NextRetryAt  time.Time
}

// Exhausted reports whether the message ran out of delivery attempts.
func (m OutboxMessage) Exhausted() bool {
	return m.RetryCount >= m.MaxRetries
}

// NewStatusChanged builds the order.status_changed message for an applied
// transition. It is due as soon as the transition happened.
func NewStatusChanged(event auditlog.StatusChangedEvent) (OutboxMessage, error) {
	if event.OrderID == "" {
		return OutboxMessage{}, errors.New("status changed event has no order id")
	}

	body, err := json.Marshal(event)
	if err != nil {
		return OutboxMessage{}, fmt.Errorf("failed to marshal status changed event: %w", err)
	}

	return OutboxMessage{
		OrderID:      event.OrderID,
		ExchangeName: ExchangeOrders,
		RoutingKey:   RoutingKeyStatusChanged,
		Payload:      body,
		ContentType:  ContentTypeJSON,
		MaxRetries:   DefaultMaxRetries,
		CreatedAt:    event.OccurredAt,
		UpdatedAt:    event.OccurredAt,
		NextRetryAt:  event.OccurredAt,
	}, nil
}
