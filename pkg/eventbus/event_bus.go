// Package eventbus publishes automation run events.
package eventbus

import (
	"context"

	"github.com/dukex/automation-runner/pkg/events"
)

type Event interface {
	GetType() events.EventType
}

type EventPublisher interface {
	Publish(ctx context.Context, key string, event Event) error
}

type EventBus interface {
	EventPublisher
	Close() error
	GenerateID() string
}
