package respond

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/corray333/backend-labs/foodorder/internal/service/models/order"
	"github.com/corray333/backend-labs/foodorder/internal/service/models/payment"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
	From  string `json:"from,omitempty"`
	To    string `json:"to,omitempty"`
}

// JSON writes v with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error sending response", "error", err)
	}
}

// Message writes a plain error message with the given status.
func Message(w http.ResponseWriter, status int, msg string) {
	JSON(w, status, ErrorResponse{Error: msg})
}

// Error maps a service error to a status code and writes it.
func Error(w http.ResponseWriter, err error) {
	status := StatusOf(err)
	body := ErrorResponse{Error: err.Error()}

	var te *order.TransitionError
	if errors.As(err, &te) {
		body.From = te.From.String()
		body.To = te.To.String()
	}

	if status == http.StatusInternalServerError {
		slog.Error("Request failed", "error", err)
		body.Error = http.StatusText(status)
	}

	JSON(w, status, body)
}

// StatusOf returns the HTTP status for a service error.
func StatusOf(err error) int {
	switch {
	case errors.Is(err, order.ErrInvalidTransition), errors.Is(err, order.ErrStaleReference):
		return http.StatusConflict
	case errors.Is(err, payment.ErrPaymentInitializationFailed):
		return http.StatusBadGateway
	case errors.Is(err, payment.ErrPaymentNotVerified):
		return http.StatusPaymentRequired
	case errors.Is(err, order.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, order.ErrEmptyCart),
		errors.Is(err, order.ErrMultipleRestaurants),
		errors.Is(err, order.ErrMissingAddress),
		errors.Is(err, order.ErrInvalidStatus),
		errors.Is(err, payment.ErrUnrecognizedMessage),
		errors.Is(err, payment.ErrMissingReference),
		errors.Is(err, payment.ErrMissingOrderID):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
