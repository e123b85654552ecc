package models

import "time"

// Notification is a message from the back office, usually about an order.
type Notification struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Body      string    `json:"body,omitempty"`
	OrderID   string    `json:"order_id,omitempty"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

// Route is where opening the notification should take the user.
func (n Notification) Route() string {
	if n.OrderID != "" {
		return "/orders/" + n.OrderID
	}
	return "/notifications"
}
