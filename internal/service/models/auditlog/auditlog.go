package auditlog

import "time"

// AuditLogOrder is one applied status transition of an order.
type AuditLogOrder struct {
	ID               int64     `json:"id"`
	OrderID          string    `json:"orderId"`
	UserID           string    `json:"userId"`
	FromStatus       string    `json:"fromStatus"`
	ToStatus         string    `json:"toStatus"`
	Actor            string    `json:"actor"`
	PaymentReference *string   `json:"paymentReference,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
}

// StatusChangedEvent is published for every applied transition.
type StatusChangedEvent struct {
	OrderID          string    `json:"orderId"`
	UserID           string    `json:"userId"`
	From             string    `json:"from"`
	To               string    `json:"to"`
	Actor            string    `json:"actor"`
	PaymentReference *string   `json:"paymentReference,omitempty"`
	OccurredAt       time.Time `json:"occurredAt"`
}

// Event converts the log entry to the published event.
func (a AuditLogOrder) Event() StatusChangedEvent {
	return StatusChangedEvent{
		OrderID:          a.OrderID,
		UserID:           a.UserID,
		From:             a.FromStatus,
		To:               a.ToStatus,
		Actor:            a.Actor,
		PaymentReference: a.PaymentReference,
		OccurredAt:       a.CreatedAt,
	}
}
