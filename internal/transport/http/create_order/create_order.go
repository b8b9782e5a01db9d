package createorder

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/corray333/backend-labs/foodorder/internal/service/models/cart"
	"github.com/corray333/backend-labs/foodorder/internal/service/models/order"
	"github.com/corray333/backend-labs/foodorder/internal/service/services/ordersvc"
	"github.com/corray333/backend-labs/foodorder/internal/transport/http/respond"
	"github.com/corray333/backend-labs/foodorder/pkg/http/middleware/auth"
	"github.com/go-playground/validator/v10"
)

// service is an interface for the service layer.
type service interface {
	CreateOrder(ctx context.Context, req ordersvc.CreateOrderRequest) (order.Order, error)
}

// cartService provides the items the order is created from.
type cartService interface {
	Items(userID string) []cart.Item
}

// addressInCreateOrderRequest represents the delivery address of a new order.
type addressInCreateOrderRequest struct {
	Name      string  `json:"name"`
	Address   string  `json:"address"   validate:"required"`
	Latitude  float64 `json:"latitude"  validate:"gte=-90,lte=90"`
	Longitude float64 `json:"longitude" validate:"gte=-180,lte=180"`
}

// createOrderRequest represents a create order request.
type createOrderRequest struct {
	DeliveryAddress addressInCreateOrderRequest `json:"deliveryAddress" validate:"required"`
}

// Validate validates the create order request.
func (r *createOrderRequest) Validate() error {
	return validator.New().Struct(r)
}

// CreateOrder creates a pending order from the caller's cart.
//
//	@Summary	Create order from cart
//	@Tags		orders
//	@Accept		json
//	@Produce	json
//	@Security	BearerAuth
//	@Param		order	body		createOrderRequest	true	"Delivery details"
//	@Success	201		{object}	order.Order
//	@Failure	400		{object}	respond.ErrorResponse
//	@Router		/api/orders [post]
func CreateOrder(w http.ResponseWriter, r *http.Request, service service, carts cartService) {
	userID, ok := auth.RequireUserID(w, r)
	if !ok {
		return
	}

	req := createOrderRequest{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Message(w, http.StatusBadRequest, err.Error())
		slog.Error("Error decoding request body for create order", "error", err)

		return
	}

	if err := req.Validate(); err != nil {
		respond.Message(w, http.StatusBadRequest, err.Error())
		slog.Error("Error validating request body for create order", "error", err)

		return
	}

	created, err := service.CreateOrder(r.Context(), ordersvc.CreateOrderRequest{
		UserID: userID,
		Items:  carts.Items(userID),
		DeliveryAddress: order.Address{
			Name:      req.DeliveryAddress.Name,
			Address:   req.DeliveryAddress.Address,
			Latitude:  req.DeliveryAddress.Latitude,
			Longitude: req.DeliveryAddress.Longitude,
		},
	})
	if err != nil {
		respond.Error(w, err)

		return
	}

	respond.JSON(w, http.StatusCreated, created)
}
