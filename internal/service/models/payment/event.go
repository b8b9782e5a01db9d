package payment

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Gateway event names that settle a transaction.
const (
	EventChargeSuccess = "charge.success"
	EventChargeFailed  = "charge.failed"
)

// queueMessage is the union of the two accepted queue shapes. The flat shape
// {"status", "reference", "orderId"} carries no event field; the gateway
// envelope {"event", "data": {...}} always does.
type queueMessage struct {
	Event     *string `json:"event"`
	Status    *string `json:"status"`
	Reference string  `json:"reference"`
	OrderID   string  `json:"orderId"`
	Data      *struct {
		Reference string   `json:"reference"`
		Status    string   `json:"status"`
		Metadata  Metadata `json:"metadata"`
	} `json:"data"`
}

// DecodeGatewayEvent turns a message from the payment queue into a signal.
// The flat status shape is tried first, then the gateway envelope. Envelope
// events that do not settle a charge are rejected with ErrUnrecognizedMessage.
func DecodeGatewayEvent(raw []byte) (Signal, error) {
	var m queueMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return Signal{}, fmt.Errorf("%w: %w", ErrUnrecognizedMessage, err)
	}

	var (
		sig Signal
		err error
	)
	switch {
	case m.Event == nil && m.Status != nil:
		sig, err = flatSignal(m)
	case m.Event != nil && m.Data != nil:
		sig, err = envelopeSignal(m)
	default:
		return Signal{}, fmt.Errorf("%w: neither status nor event present", ErrUnrecognizedMessage)
	}
	if err != nil {
		return Signal{}, err
	}

	return sig, sig.Validate()
}

func flatSignal(m queueMessage) (Signal, error) {
	if strings.TrimSpace(*m.Status) == "" {
		return Signal{}, fmt.Errorf("%w: empty status", ErrUnrecognizedMessage)
	}

	return Signal{
		Reference: m.Reference,
		OrderID:   m.OrderID,
		Outcome:   ParseOutcome(*m.Status),
		Channel:   ChannelGatewayEvent,
	}, nil
}

func envelopeSignal(m queueMessage) (Signal, error) {
	var outcome Outcome
	switch strings.ToLower(*m.Event) {
	case EventChargeSuccess:
		outcome = OutcomeSuccess
		if m.Data.Status != "" {
			outcome = ParseOutcome(m.Data.Status)
		}
	case EventChargeFailed:
		outcome = OutcomeFailure
	default:
		return Signal{}, fmt.Errorf("%w: event %q", ErrUnrecognizedMessage, *m.Event)
	}

	return Signal{
		Reference: m.Data.Reference,
		OrderID:   m.Data.Metadata.OrderID,
		Outcome:   outcome,
		Channel:   ChannelGatewayEvent,
	}, nil
}
