package models

import (
	"encoding/json"
	"time"
)

// SyncItemType names the remote mutation a queued item replays.
type SyncItemType string

const (
	SyncStatusChange SyncItemType = "status_change"
	SyncComment      SyncItemType = "comment"
	SyncPhoto        SyncItemType = "photo"
	SyncOrderUpdate  SyncItemType = "order_update"
)

// SyncItemStatus is pending until the item either succeeds (and is deleted)
// or is given up on.
type SyncItemStatus string

const (
	SyncItemPending SyncItemStatus = "pending"
	SyncItemFailed  SyncItemStatus = "failed"
)

// SyncQueueItem is a mutation waiting to be replayed against the API.
// Attempts counts every failed delivery; ServerErrors only those the server
// answered, which is what the failure cutoff looks at.
type SyncQueueItem struct {
	ID           string          `json:"id"`
	Type         SyncItemType    `json:"type" validate:"required,oneof=status_change comment photo order_update"`
	OrderID      string          `json:"order_id" validate:"required"`
	Data         json.RawMessage `json:"data"`
	CreatedAt    time.Time       `json:"created_at"`
	Attempts     int             `json:"attempts"`
	ServerErrors int             `json:"server_errors,omitempty"`
	Status       SyncItemStatus  `json:"status"`
	LastError    string          `json:"last_error,omitempty"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// StatusChangePayload is the data of a status_change item.
type StatusChangePayload struct {
	Status OrderStatus `json:"status" validate:"required,oneof=new assigned in_progress waiting_parts done cancelled"`
}

// CommentPayload is the data of a comment item.
type CommentPayload struct {
	Text string `json:"text" validate:"required,max=2000"`
}

// PhotoPayload is the data of a photo item. The blob itself stays in the
// photos partition until the upload is confirmed.
type PhotoPayload struct {
	PhotoID  string `json:"photo_id" validate:"required,uuid"`
	Filename string `json:"filename" validate:"required,max=255"`
}

// OrderUpdatePayload is the data of an order_update item.
type OrderUpdatePayload struct {
	Fields map[string]any `json:"fields" validate:"required,min=1"`
}

// CachedPhoto is a binary attachment kept locally until its upload completes.
type CachedPhoto struct {
	ID         string    `json:"id"`
	OrderID    string    `json:"order_id"`
	Blob       []byte    `json:"blob"`
	Filename   string    `json:"filename"`
	UploadedAt time.Time `json:"uploaded_at"`
}
