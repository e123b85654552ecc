package syncqueue

import (
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/fieldcrm/internal/client/models"
)

// NewItem builds an unsaved queue item carrying payload.
func NewItem(t models.SyncItemType, orderID string, payload any) (models.SyncQueueItem, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return models.SyncQueueItem{}, fmt.Errorf("%w: encode payload: %v", ErrInvalidItem, err)
	}
	return models.SyncQueueItem{Type: t, OrderID: orderID, Data: data}, nil
}

func StatusChange(orderID string, status models.OrderStatus) (models.SyncQueueItem, error) {
	return NewItem(models.SyncStatusChange, orderID, models.StatusChangePayload{Status: status})
}

func Comment(orderID, text string) (models.SyncQueueItem, error) {
	return NewItem(models.SyncComment, orderID, models.CommentPayload{Text: text})
}

func Photo(orderID, photoID, filename string) (models.SyncQueueItem, error) {
	return NewItem(models.SyncPhoto, orderID, models.PhotoPayload{PhotoID: photoID, Filename: filename})
}

func OrderUpdate(orderID string, fields map[string]any) (models.SyncQueueItem, error) {
	return NewItem(models.SyncOrderUpdate, orderID, models.OrderUpdatePayload{Fields: fields})
}

// Payload decodes the data of item into the payload type of its kind.
func Payload(item models.SyncQueueItem) (any, error) {
	var p any
	switch item.Type {
	case models.SyncStatusChange:
		p = &models.StatusChangePayload{}
	case models.SyncComment:
		p = &models.CommentPayload{}
	case models.SyncPhoto:
		p = &models.PhotoPayload{}
	case models.SyncOrderUpdate:
		p = &models.OrderUpdatePayload{}
	default:
		return nil, fmt.Errorf("%w: unknown type %q", ErrInvalidItem, item.Type)
	}
	if err := json.Unmarshal(item.Data, p); err != nil {
		return nil, fmt.Errorf("%w: decode %s payload: %v", ErrInvalidItem, item.Type, err)
	}
	return p, nil
}
