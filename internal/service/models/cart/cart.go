package cart

import "sync"

// Item is a menu item a user intends to order.
type Item struct {
	ItemID              string `json:"itemId"`
	Name                string `json:"name"`
	Price               int64  `json:"price"`
	Quantity            int    `json:"quantity"`
	RestaurantID        string `json:"restaurantId"`
	RestaurantName      string `json:"restaurantName,omitempty"`
	RestaurantLogo      string `json:"restaurantLogo,omitempty"`
	SpecialInstructions string `json:"specialInstructions,omitempty"`
}

// Group is the slice of a cart that belongs to one restaurant.
type Group struct {
	RestaurantID   string `json:"restaurantId"`
	RestaurantName string `json:"restaurantName,omitempty"`
	RestaurantLogo string `json:"restaurantLogo,omitempty"`
	Items          []Item `json:"items"`
	Subtotal       int64  `json:"subtotal"`
}

// Cart holds the items selected before an order exists.
// Every item in the cart has a quantity of at least one.
type Cart struct {
	mu    sync.RWMutex
	items []Item
}

// New creates an empty cart.
func New() *Cart {
	return &Cart{}
}

// AddItem inserts item with quantity 1, or increments the quantity of the
// item with the same id.
func (c *Cart) AddItem(item Item) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if i := c.indexOf(item.ItemID); i >= 0 {
		c.items[i].Quantity++

		return
	}

	item.Quantity = 1
	c.items = append(c.items, item)
}

// RemoveItem drops the item regardless of its quantity.
func (c *Cart) RemoveItem(itemID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.removeLocked(itemID)
}

// UpdateQuantity sets the quantity of an item. Quantities below one remove it.
// It reports whether the item was present.
func (c *Cart) UpdateQuantity(itemID string, quantity int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.indexOf(itemID)
	if i < 0 {
		return false
	}
	if quantity <= 0 {
		c.removeLocked(itemID)

		return true
	}
	c.items[i].Quantity = quantity

	return true
}

// Clear empties the cart.
func (c *Cart) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = nil
}

// Items returns a copy of the cart contents in insertion order.
func (c *Cart) Items() []Item {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Item, len(c.items))
	copy(out, c.items)

	return out
}

// Len returns the number of distinct items.
func (c *Cart) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.items)
}

// RestaurantGroups groups items by restaurant. Groups are ordered by the first
// appearance of their restaurant; items keep their insertion order.
func (c *Cart) RestaurantGroups() []Group {
	return GroupByRestaurant(c.Items())
}

// TotalAmount is the sum of price times quantity over all items.
func (c *Cart) TotalAmount() int64 {
	return Total(c.Items())
}

// GroupByRestaurant groups items the same way Cart.RestaurantGroups does.
func GroupByRestaurant(items []Item) []Group {
	groups := make([]Group, 0)
	index := make(map[string]int)

	for _, item := range items {
		i, ok := index[item.RestaurantID]
		if !ok {
			i = len(groups)
			index[item.RestaurantID] = i
			groups = append(groups, Group{
				RestaurantID:   item.RestaurantID,
				RestaurantName: item.RestaurantName,
				RestaurantLogo: item.RestaurantLogo,
			})
		}
		groups[i].Items = append(groups[i].Items, item)
		groups[i].Subtotal += item.Price * int64(item.Quantity)
	}

	return groups
}

// Total sums price times quantity.
func Total(items []Item) int64 {
	var total int64
	for _, item := range items {
		total += item.Price * int64(item.Quantity)
	}

	return total
}

func (c *Cart) indexOf(itemID string) int {
	for i := range c.items {
		if c.items[i].ItemID == itemID {
			return i
		}
	}

	return -1
}

func (c *Cart) removeLocked(itemID string) {
	i := c.indexOf(itemID)
	if i < 0 {
		return
	}
	c.items = append(c.items[:i], c.items[i+1:]...)
}
