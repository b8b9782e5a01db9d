package order

import "time"

// QueryOrdersModel represents filter parameters for querying orders
type QueryOrdersModel struct {
	Ids           []string `json:"ids,omitempty"`
	UserIds       []string `json:"userIds,omitempty"`
	RestaurantIds []string `json:"restaurantIds,omitempty"`
	Statuses      []Status `json:"statuses,omitempty"`
	// UpdatedBefore selects orders whose last update happened before the given time.
	UpdatedBefore time.Time `json:"updatedBefore,omitempty"`
	Limit         int       `json:"limit,omitempty"`
	Offset        int       `json:"offset,omitempty"`
}
