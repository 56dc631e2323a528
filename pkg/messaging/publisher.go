// Package messaging defines the broker-agnostic event publishing contract.
package messaging

import (
	"context"
)

// Event is a message that can be published to a broker subject or topic.
type Event interface {
	Subject() string
	Key() string
	Payload() ([]byte, error)
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// NoopPublisher drops every event. Used when event publishing is disabled.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, Event) error { return nil }
