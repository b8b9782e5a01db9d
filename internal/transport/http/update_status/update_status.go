package updatestatus

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/corray333/backend-labs/foodorder/internal/service/models/order"
	"github.com/corray333/backend-labs/foodorder/internal/service/services/ordersvc"
	"github.com/corray333/backend-labs/foodorder/internal/transport/http/respond"
	"github.com/corray333/backend-labs/foodorder/pkg/http/middleware/auth"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

// ActorOperator is recorded for transitions made through the operator API.
const ActorOperator = "operator"

type service interface {
	GetOrder(ctx context.Context, orderID string) (order.Order, error)
	Transition(
		ctx context.Context,
		orderID string,
		target order.Status,
		opts ...ordersvc.TransitionOption,
	) (order.Order, error)
}

type updateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

func decodeTarget(w http.ResponseWriter, r *http.Request) (order.Status, bool) {
	req := updateStatusRequest{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Message(w, http.StatusBadRequest, err.Error())
		slog.Error("Error decoding request body for update status", "error", err)

		return "", false
	}

	if err := validator.New().Struct(&req); err != nil {
		respond.Message(w, http.StatusBadRequest, err.Error())

		return "", false
	}

	target, err := order.ParseStatus(req.Status)
	if err != nil {
		respond.Error(w, err)

		return "", false
	}

	return target, true
}

// paymentDriven reports whether only payment reconciliation may move an order to s.
func paymentDriven(s order.Status) bool {
	return s == order.StatusPaymentPending || s == order.StatusConfirmed
}

// CancelOrder lets the owner cancel an order that has not been handed to the kitchen.
//
//	@Summary	Cancel my order
//	@Tags		orders
//	@Accept		json
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id		path		string				true	"Order ID"
//	@Param		status	body		updateStatusRequest	true	"Must be cancelled"
//	@Success	200		{object}	order.Order
//	@Failure	403		{object}	respond.ErrorResponse
//	@Failure	409		{object}	respond.ErrorResponse
//	@Router		/api/orders/{id}/status [patch]
func CancelOrder(w http.ResponseWriter, r *http.Request, service service) {
	userID, ok := auth.RequireUserID(w, r)
	if !ok {
		return
	}

	target, ok := decodeTarget(w, r)
	if !ok {
		return
	}
	if target != order.StatusCancelled {
		respond.Message(w, http.StatusForbidden, "customers may only cancel orders")

		return
	}

	orderID := chi.URLParam(r, "id")
	o, err := service.GetOrder(r.Context(), orderID)
	if err == nil && o.UserID != userID {
		err = order.ErrNotFound
	}
	if err != nil {
		respond.Error(w, err)

		return
	}

	updated, err := service.Transition(r.Context(), orderID, target, ordersvc.WithActor("user:"+userID))
	if err != nil {
		respond.Error(w, err)

		return
	}

	respond.JSON(w, http.StatusOK, updated)
}

// UpdateStatus moves an order through the kitchen statuses on behalf of the restaurant.
//
//	@Summary	Update order status
//	@Tags		operator
//	@Accept		json
//	@Produce	json
//	@Security	OperatorToken
//	@Param		id		path		string				true	"Order ID"
//	@Param		status	body		updateStatusRequest	true	"Target status"
//	@Success	200		{object}	order.Order
//	@Failure	403		{object}	respond.ErrorResponse
//	@Failure	409		{object}	respond.ErrorResponse
//	@Router		/ops/orders/{id}/status [patch]
func UpdateStatus(w http.ResponseWriter, r *http.Request, service service) {
	target, ok := decodeTarget(w, r)
	if !ok {
		return
	}
	if paymentDriven(target) {
		respond.Message(w, http.StatusForbidden, "status "+target.String()+" is set by payment reconciliation")

		return
	}

	updated, err := service.Transition(r.Context(), chi.URLParam(r, "id"), target, ordersvc.WithActor(ActorOperator))
	if err != nil {
		respond.Error(w, err)

		return
	}

	respond.JSON(w, http.StatusOK, updated)
}
