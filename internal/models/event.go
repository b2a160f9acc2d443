package models

import "time"

// Routing keys of the product lifecycle events.
const (
	EventProductCreated = "product.created"
	EventProductUpdated = "product.updated"
	EventProductDeleted = "product.deleted"
)

// ProductEvent is the message body published after a catalog mutation.
type ProductEvent struct {
	Type       string    `json:"type"`
	Product    Product   `json:"product"`
	OccurredAt time.Time `json:"occurred_at"`
}
