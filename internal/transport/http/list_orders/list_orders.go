package listorders

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/corray333/backend-labs/foodorder/internal/service/models/order"
	"github.com/corray333/backend-labs/foodorder/internal/transport/http/respond"
	"github.com/corray333/backend-labs/foodorder/pkg/http/middleware/auth"
	"github.com/gorilla/schema"
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

type service interface {
	GetOrders(ctx context.Context, filter order.QueryOrdersModel) ([]order.Order, error)
}

type queryOrdersRequest struct {
	Statuses []string `schema:"status,omitempty"`
	Limit    int      `schema:"limit,omitempty"`
	Offset   int      `schema:"offset,omitempty"`
}

func (q *queryOrdersRequest) ToModel(userID string) (order.QueryOrdersModel, error) {
	statuses := make([]order.Status, 0, len(q.Statuses))
	for _, raw := range q.Statuses {
		s, err := order.ParseStatus(raw)
		if err != nil {
			return order.QueryOrdersModel{}, err
		}
		statuses = append(statuses, s)
	}

	limit := q.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	return order.QueryOrdersModel{
		UserIds:  []string{userID},
		Statuses: statuses,
		Limit:    limit,
		Offset:   offset,
	}, nil
}

// ListOrders returns the caller's orders, newest first.
//
//	@Summary	List my orders
//	@Tags		orders
//	@Produce	json
//	@Security	BearerAuth
//	@Param		status	query		[]string	false	"Filter by status"
//	@Param		limit	query		int			false	"Page size"
//	@Param		offset	query		int			false	"Offset"
//	@Success	200		{array}		order.Order
//	@Router		/api/orders [get]
func ListOrders(w http.ResponseWriter, r *http.Request, service service) {
	userID, ok := auth.RequireUserID(w, r)
	if !ok {
		return
	}

	decoder := schema.NewDecoder()
	decoder.IgnoreUnknownKeys(true)
	query := &queryOrdersRequest{}
	if err := decoder.Decode(query, r.URL.Query()); err != nil {
		respond.Message(w, http.StatusBadRequest, err.Error())
		slog.Error("Error decoding request", "error", err)

		return
	}

	filter, err := query.ToModel(userID)
	if err != nil {
		respond.Error(w, err)

		return
	}

	orders, err := service.GetOrders(r.Context(), filter)
	if err != nil {
		respond.Error(w, err)

		return
	}

	respond.JSON(w, http.StatusOK, orders)
}
