package getorder

import (
	"context"
	"net/http"

	"github.com/corray333/backend-labs/foodorder/internal/service/models/auditlog"
	"github.com/corray333/backend-labs/foodorder/internal/service/models/order"
	"github.com/corray333/backend-labs/foodorder/internal/transport/http/respond"
	"github.com/corray333/backend-labs/foodorder/pkg/http/middleware/auth"
	"github.com/go-chi/chi/v5"
)

type service interface {
	GetOrder(ctx context.Context, orderID string) (order.Order, error)
	History(ctx context.Context, orderID string) ([]auditlog.AuditLogOrder, error)
}

// ownedOrder loads the order and hides orders of other users behind 404.
func ownedOrder(w http.ResponseWriter, r *http.Request, service service) (order.Order, bool) {
	userID, ok := auth.RequireUserID(w, r)
	if !ok {
		return order.Order{}, false
	}

	o, err := service.GetOrder(r.Context(), chi.URLParam(r, "id"))
	if err == nil && o.UserID != userID {
		err = order.ErrNotFound
	}
	if err != nil {
		respond.Error(w, err)

		return order.Order{}, false
	}

	return o, true
}

// GetOrder returns one of the caller's orders.
//
//	@Summary	Get order
//	@Tags		orders
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id	path		string	true	"Order ID"
//	@Success	200	{object}	order.Order
//	@Failure	404	{object}	respond.ErrorResponse
//	@Router		/api/orders/{id} [get]
func GetOrder(w http.ResponseWriter, r *http.Request, service service) {
	o, ok := ownedOrder(w, r, service)
	if !ok {
		return
	}

	respond.JSON(w, http.StatusOK, o)
}

// History returns the status transitions of one of the caller's orders.
//
//	@Summary	Order status history
//	@Tags		orders
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id	path		string	true	"Order ID"
//	@Success	200	{array}		auditlog.AuditLogOrder
//	@Failure	404	{object}	respond.ErrorResponse
//	@Router		/api/orders/{id}/history [get]
func History(w http.ResponseWriter, r *http.Request, service service) {
	o, ok := ownedOrder(w, r, service)
	if !ok {
		return
	}

	entries, err := service.History(r.Context(), o.ID)
	if err != nil {
		respond.Error(w, err)

		return
	}

	respond.JSON(w, http.StatusOK, entries)
}
