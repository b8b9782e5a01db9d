package orderitem

import "time"

// OrderItem is a line of an order. Items are written once together with
// the order and never updated afterwards.
type OrderItem struct {
	ID                  int64     `json:"id"`
	OrderID             string    `json:"orderId"`
	ItemID              string    `json:"itemId"`
	Name                string    `json:"name"`
	UnitPrice           int64     `json:"unitPrice"`
	Quantity            int       `json:"quantity"`
	RestaurantID        string    `json:"restaurantId"`
	SpecialInstructions string    `json:"specialInstructions,omitempty"`
	CreatedAt           time.Time `json:"createdAt"`
}

// Subtotal returns unit price times quantity.
func (i OrderItem) Subtotal() int64 {
	return i.UnitPrice * int64(i.Quantity)
}

// QueryOrderItemsModel represents filter parameters for querying order items.
type QueryOrderItemsModel struct {
	Ids      []int64  `json:"ids,omitempty"`
	OrderIds []string `json:"orderIds,omitempty"`
	ItemIds  []string `json:"itemIds,omitempty"`
	Limit    int      `json:"limit,omitempty"`
	Offset   int      `json:"offset,omitempty"`
}
