package cartsvc

import (
	"log/slog"
	"sync"
	"time"

	"github.com/corray333/backend-labs/foodorder/internal/service/models/cart"
)

// View is a read-only snapshot of a cart.
type View struct {
	Groups      []cart.Group `json:"groups"`
	TotalAmount int64        `json:"totalAmount"`
	ItemCount   int          `json:"itemCount"`
}

type entry struct {
	cart *cart.Cart
	last time.Time
}

// CartService owns one cart per user. Carts live in memory only and are
// dropped by EvictIdle once untouched for long enough.
type CartService struct {
	mu      sync.Mutex
	entries map[string]*entry
	now     func() time.Time
}

// MustNewCartService creates a new CartService.
func MustNewCartService() *CartService {
	return &CartService{
		entries: make(map[string]*entry),
		now:     time.Now,
	}
}

func (s *CartService) cartFor(userID string) *cart.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[userID]
	if !ok {
		e = &entry{cart: cart.New()}
		s.entries[userID] = e
	}
	e.last = s.now()

	return e.cart
}

// AddItem adds one unit of item to the user's cart.
func (s *CartService) AddItem(userID string, item cart.Item) View {
	c := s.cartFor(userID)
	c.AddItem(item)

	return viewOf(c)
}

// UpdateQuantity sets the quantity of an item. Zero or less removes it.
// The boolean is false when the item is not in the cart.
func (s *CartService) UpdateQuantity(userID, itemID string, quantity int) (View, bool) {
	c := s.cartFor(userID)
	ok := c.UpdateQuantity(itemID, quantity)

	return viewOf(c), ok
}

// RemoveItem removes the item regardless of its quantity.
func (s *CartService) RemoveItem(userID, itemID string) View {
	c := s.cartFor(userID)
	c.RemoveItem(itemID)

	return viewOf(c)
}

// Clear empties the user's cart.
func (s *CartService) Clear(userID string) {
	s.mu.Lock()
	e, ok := s.entries[userID]
	s.mu.Unlock()

	if !ok {
		return
	}
	e.cart.Clear()
	slog.Info("Cart cleared", "user_id", userID)
}

// EvictIdle drops carts not touched for longer than idle and returns how many
// were dropped.
func (s *CartService) EvictIdle(idle time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	evicted := 0
	for userID, e := range s.entries {
		if now.Sub(e.last) > idle {
			delete(s.entries, userID)
			evicted++
		}
	}

	return evicted
}

// Get returns the user's cart grouped by restaurant.
func (s *CartService) Get(userID string) View {
	return viewOf(s.cartFor(userID))
}

// Items returns the items of the user's cart in insertion order.
func (s *CartService) Items(userID string) []cart.Item {
	return s.cartFor(userID).Items()
}

func viewOf(c *cart.Cart) View {
	items := c.Items()

	return View{
		Groups:      cart.GroupByRestaurant(items),
		TotalAmount: cart.Total(items),
		ItemCount:   len(items),
	}
}
