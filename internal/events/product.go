// Package events defines the product lifecycle events published after successful writes.
package events

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/abgdnv/productcatalog/pkg/messaging"
	"github.com/google/uuid"
)

// ProductSnapshot is the product state carried by every lifecycle event.
type ProductSnapshot struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Available bool    `json:"available"`
}

// ProductEvent is a product lifecycle event. The subject tells what happened.
type ProductEvent struct {
	EventID    uuid.UUID       `json:"event_id"`
	Product    ProductSnapshot `json:"product"`
	OccurredAt time.Time       `json:"occurred_at"`

	subject string
}

var _ messaging.Event = ProductEvent{}

func newProductEvent(subject string, p ProductSnapshot, at time.Time) ProductEvent {
	return ProductEvent{
		EventID:    uuid.New(),
		Product:    p,
		OccurredAt: at.UTC(),
		subject:    subject,
	}
}

func ProductCreated(p ProductSnapshot, at time.Time) ProductEvent {
	return newProductEvent(messaging.ProductCreatedSubject, p, at)
}

func ProductUpdated(p ProductSnapshot, at time.Time) ProductEvent {
	return newProductEvent(messaging.ProductUpdatedSubject, p, at)
}

func ProductRemoved(p ProductSnapshot, at time.Time) ProductEvent {
	return newProductEvent(messaging.ProductRemovedSubject, p, at)
}

func (e ProductEvent) Subject() string {
	return e.subject
}

// Key is the product id, so all events of one product share an ordering key.
func (e ProductEvent) Key() string {
	return strconv.FormatInt(e.Product.ID, 10)
}

func (e ProductEvent) Payload() ([]byte, error) {
	return json.Marshal(e)
}
