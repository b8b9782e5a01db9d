package paymentmessage

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/corray333/backend-labs/foodorder/internal/service/models/order"
	"github.com/corray333/backend-labs/foodorder/internal/service/services/paymentsvc"
	"github.com/corray333/backend-labs/foodorder/internal/transport/http/respond"
	"github.com/corray333/backend-labs/foodorder/pkg/http/middleware/auth"
	"github.com/go-chi/chi/v5"
)

const maxMessageSize = 64 << 10

type service interface {
	HandleEmbeddedMessage(ctx context.Context, session paymentsvc.EmbeddedSession, raw []byte) (paymentsvc.Result, error)
}

type orderService interface {
	GetOrder(ctx context.Context, orderID string) (order.Order, error)
}

// messageResponse tells the embedded checkout where to send the user.
type messageResponse struct {
	Route     paymentsvc.Route `json:"route"`
	Duplicate bool             `json:"duplicate"`
	Status    order.Status     `json:"status,omitempty"`
	Error     string           `json:"error,omitempty"`
}

// PaymentMessage relays a message posted by the embedded checkout.
//
// Rejected signals still answer with a route so the client can recover.
//
//	@Summary	Relay embedded checkout message
//	@Tags		payments
//	@Accept		json
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id			path		string	true	"Order ID"
//	@Param		reference	path		string	true	"Payment reference"
//	@Success	200			{object}	messageResponse
//	@Failure	400			{object}	messageResponse
//	@Failure	402			{object}	messageResponse
//	@Failure	409			{object}	messageResponse
//	@Router		/api/orders/{id}/payments/{reference}/messages [post]
func PaymentMessage(w http.ResponseWriter, r *http.Request, service service, orders orderService) {
	userID, ok := auth.RequireUserID(w, r)
	if !ok {
		return
	}

	orderID := chi.URLParam(r, "id")
	o, err := orders.GetOrder(r.Context(), orderID)
	if err == nil && o.UserID != userID {
		err = order.ErrNotFound
	}
	if err != nil {
		respond.Error(w, err)

		return
	}

	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxMessageSize))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respond.Message(w, http.StatusRequestEntityTooLarge, err.Error())

			return
		}
		respond.Message(w, http.StatusBadRequest, err.Error())

		return
	}

	result, err := service.HandleEmbeddedMessage(r.Context(), paymentsvc.EmbeddedSession{
		OrderID:   orderID,
		Reference: chi.URLParam(r, "reference"),
	}, raw)

	resp := messageResponse{Route: result.Route, Duplicate: result.Duplicate}
	if result.Order != nil {
		resp.Status = result.Order.Status
	}
	if err != nil {
		status := respond.StatusOf(err)
		if status == http.StatusInternalServerError {
			respond.Error(w, err)

			return
		}
		resp.Error = err.Error()
		respond.JSON(w, status, resp)

		return
	}

	respond.JSON(w, http.StatusOK, resp)
}
