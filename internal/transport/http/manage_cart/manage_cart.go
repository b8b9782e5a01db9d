package managecart

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/corray333/backend-labs/foodorder/internal/service/models/cart"
	"github.com/corray333/backend-labs/foodorder/internal/service/services/cartsvc"
	"github.com/corray333/backend-labs/foodorder/internal/transport/http/respond"
	"github.com/corray333/backend-labs/foodorder/pkg/http/middleware/auth"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

// service is an interface for the cart service.
type service interface {
	Get(userID string) cartsvc.View
	AddItem(userID string, item cart.Item) cartsvc.View
	UpdateQuantity(userID, itemID string, quantity int) (cartsvc.View, bool)
	RemoveItem(userID, itemID string) cartsvc.View
	Clear(userID string)
}

var validate = validator.New()

// addItemRequest represents an item added to the cart.
type addItemRequest struct {
	ItemID              string `json:"itemId"              validate:"required"`
	Name                string `json:"name"                validate:"required"`
	Price               int64  `json:"price"               validate:"gte=0"`
	RestaurantID        string `json:"restaurantId"        validate:"required"`
	RestaurantName      string `json:"restaurantName"`
	RestaurantLogo      string `json:"restaurantLogo"`
	SpecialInstructions string `json:"specialInstructions" validate:"max=500"`
}

func (r *addItemRequest) toModel() cart.Item {
	return cart.Item{
		ItemID:              r.ItemID,
		Name:                r.Name,
		Price:               r.Price,
		RestaurantID:        r.RestaurantID,
		RestaurantName:      r.RestaurantName,
		RestaurantLogo:      r.RestaurantLogo,
		SpecialInstructions: r.SpecialInstructions,
	}
}

// updateQuantityRequest sets the quantity of a cart item.
type updateQuantityRequest struct {
	Quantity *int `json:"quantity" validate:"required"`
}

// GetCart returns the caller's cart grouped by restaurant.
//
//	@Summary	Get cart
//	@Tags		cart
//	@Produce	json
//	@Security	BearerAuth
//	@Success	200	{object}	cartsvc.View
//	@Router		/api/cart [get]
func GetCart(w http.ResponseWriter, r *http.Request, service service) {
	userID, ok := auth.RequireUserID(w, r)
	if !ok {
		return
	}

	respond.JSON(w, http.StatusOK, service.Get(userID))
}

// AddItem adds one unit of an item to the caller's cart.
//
//	@Summary	Add item to cart
//	@Tags		cart
//	@Accept		json
//	@Produce	json
//	@Security	BearerAuth
//	@Param		item	body		addItemRequest	true	"Item"
//	@Success	200		{object}	cartsvc.View
//	@Failure	400		{object}	respond.ErrorResponse
//	@Router		/api/cart/items [post]
func AddItem(w http.ResponseWriter, r *http.Request, service service) {
	userID, ok := auth.RequireUserID(w, r)
	if !ok {
		return
	}

	req := addItemRequest{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Message(w, http.StatusBadRequest, err.Error())
		slog.Error("Error decoding request body for add cart item", "error", err)

		return
	}

	if err := validate.Struct(&req); err != nil {
		respond.Message(w, http.StatusBadRequest, err.Error())

		return
	}

	respond.JSON(w, http.StatusOK, service.AddItem(userID, req.toModel()))
}

// UpdateQuantity sets the quantity of a cart item. Zero removes the item.
//
//	@Summary	Update cart item quantity
//	@Tags		cart
//	@Accept		json
//	@Produce	json
//	@Security	BearerAuth
//	@Param		itemId	path		string					true	"Item ID"
//	@Param		body	body		updateQuantityRequest	true	"Quantity"
//	@Success	200		{object}	cartsvc.View
//	@Failure	404		{object}	respond.ErrorResponse
//	@Router		/api/cart/items/{itemId} [patch]
func UpdateQuantity(w http.ResponseWriter, r *http.Request, service service) {
	userID, ok := auth.RequireUserID(w, r)
	if !ok {
		return
	}

	req := updateQuantityRequest{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Message(w, http.StatusBadRequest, err.Error())
		slog.Error("Error decoding request body for cart quantity", "error", err)

		return
	}

	if err := validate.Struct(&req); err != nil {
		respond.Message(w, http.StatusBadRequest, err.Error())

		return
	}

	view, found := service.UpdateQuantity(userID, chi.URLParam(r, "itemId"), *req.Quantity)
	if !found {
		respond.Message(w, http.StatusNotFound, "item is not in the cart")

		return
	}

	respond.JSON(w, http.StatusOK, view)
}

// RemoveItem removes an item from the caller's cart.
//
//	@Summary	Remove cart item
//	@Tags		cart
//	@Produce	json
//	@Security	BearerAuth
//	@Param		itemId	path		string	true	"Item ID"
//	@Success	200		{object}	cartsvc.View
//	@Router		/api/cart/items/{itemId} [delete]
func RemoveItem(w http.ResponseWriter, r *http.Request, service service) {
	userID, ok := auth.RequireUserID(w, r)
	if !ok {
		return
	}

	respond.JSON(w, http.StatusOK, service.RemoveItem(userID, chi.URLParam(r, "itemId")))
}

// ClearCart empties the caller's cart.
//
//	@Summary	Clear cart
//	@Tags		cart
//	@Security	BearerAuth
//	@Success	204
//	@Router		/api/cart [delete]
func ClearCart(w http.ResponseWriter, r *http.Request, service service) {
	userID, ok := auth.RequireUserID(w, r)
	if !ok {
		return
	}

	service.Clear(userID)
	w.WriteHeader(http.StatusNoContent)
}
