package payment

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// EmbeddedMessage is the decoded form of a message posted by the embedded
// checkout page. Reference and OrderID are empty when the page did not send them.
type EmbeddedMessage struct {
	Status    string
	Reference string
	OrderID   string
}

// statusMessage is the flat shape: {"status": "...", "reference": "...", "orderId": "..."}.
type statusMessage struct {
	Status    *string `json:"status"`
	Reference string  `json:"reference"`
	OrderID   string  `json:"orderId"`
}

// eventMessage is the envelope shape: {"event": "...", "data": {...}}.
type eventMessage struct {
	Event *string         `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type eventData struct {
	Status    string `json:"status"`
	Reference string `json:"reference"`
	OrderID   string `json:"orderId"`
}

// maxStringWrapping bounds how many times a payload may be wrapped in a JSON string.
const maxStringWrapping = 2

// DecodeEmbeddedMessage parses a message from the embedded checkout. The flat
// status shape is tried first, then the event envelope. Either may arrive as
// a JSON string literal containing the encoded object.
func DecodeEmbeddedMessage(raw []byte) (EmbeddedMessage, error) {
	obj, err := unwrapObject(raw)
	if err != nil {
		return EmbeddedMessage{}, err
	}

	if msg, ok := decodeStatusMessage(obj); ok {
		return msg, nil
	}
	if msg, ok := decodeEventMessage(obj); ok {
		return msg, nil
	}

	return EmbeddedMessage{}, ErrUnrecognizedMessage
}

func decodeStatusMessage(obj []byte) (EmbeddedMessage, bool) {
	var m statusMessage
	if err := json.Unmarshal(obj, &m); err != nil || m.Status == nil || *m.Status == "" {
		return EmbeddedMessage{}, false
	}

	return EmbeddedMessage{Status: *m.Status, Reference: m.Reference, OrderID: m.OrderID}, true
}

func decodeEventMessage(obj []byte) (EmbeddedMessage, bool) {
	var m eventMessage
	if err := json.Unmarshal(obj, &m); err != nil || m.Event == nil || len(m.Data) == 0 {
		return EmbeddedMessage{}, false
	}

	data, err := unwrapObject(m.Data)
	if err != nil {
		return EmbeddedMessage{}, false
	}

	var d eventData
	if err := json.Unmarshal(data, &d); err != nil {
		return EmbeddedMessage{}, false
	}

	status := d.Status
	if status == "" {
		status = *m.Event
	}

	return EmbeddedMessage{Status: status, Reference: d.Reference, OrderID: d.OrderID}, true
}

// unwrapObject strips up to maxStringWrapping layers of JSON string encoding
// and returns the bytes of a JSON object.
func unwrapObject(raw []byte) ([]byte, error) {
	cur := bytes.TrimSpace(raw)
	for i := 0; i <= maxStringWrapping; i++ {
		if len(cur) == 0 {
			break
		}
		switch cur[0] {
		case '{':
			return cur, nil
		case '"':
			var s string
			if err := json.Unmarshal(cur, &s); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrUnrecognizedMessage, err)
			}
			cur = bytes.TrimSpace([]byte(s))
		default:
			return nil, ErrUnrecognizedMessage
		}
	}

	return nil, ErrUnrecognizedMessage
}
