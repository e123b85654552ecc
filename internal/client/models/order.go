package models

import "time"

// OrderStatus is the lifecycle state of a service order.
type OrderStatus string

const (
	OrderStatusNew          OrderStatus = "new"
	OrderStatusAssigned     OrderStatus = "assigned"
	OrderStatusInProgress   OrderStatus = "in_progress"
	OrderStatusWaitingParts OrderStatus = "waiting_parts"
	OrderStatusDone         OrderStatus = "done"
	OrderStatusCancelled    OrderStatus = "cancelled"
)

// OrderStatuses lists the accepted statuses, in workflow order.
var OrderStatuses = []OrderStatus{
	OrderStatusNew,
	OrderStatusAssigned,
	OrderStatusInProgress,
	OrderStatusWaitingParts,
	OrderStatusDone,
	OrderStatusCancelled,
}

// Order is the payload the API returns for a service order.
type Order struct {
	ID          string         `json:"id"`
	Number      string         `json:"number"`
	Status      OrderStatus    `json:"status"`
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	Address     string         `json:"address,omitempty"`
	ClientName  string         `json:"client_name,omitempty"`
	ClientPhone string         `json:"client_phone,omitempty"`
	ScheduledAt *time.Time     `json:"scheduled_at,omitempty"`
	Comments    []Comment      `json:"comments,omitempty"`
	Photos      []string       `json:"photos,omitempty"`
	Fields      map[string]any `json:"fields,omitempty"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// Comment is a note left on an order.
type Comment struct {
	ID        string    `json:"id"`
	Author    string    `json:"author"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// CachedOrder is the local mirror of an order. It is overwritten on every
// successful fetch; how stale is too stale is up to the reader.
type CachedOrder struct {
	ID       string    `json:"id"`
	Data     Order     `json:"data"`
	CachedAt time.Time `json:"cached_at"`
}
