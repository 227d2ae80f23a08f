package cmd

import (
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/dukex/automation-runner/pkg/channels/gochannel"
	"github.com/dukex/automation-runner/pkg/channels/kafka"
	"github.com/dukex/automation-runner/pkg/eventbus"
)

// NewEventBus creates the event publisher for provider. brokers is only read by kafka.
func NewEventBus(provider, brokers string, logger *slog.Logger) (eventbus.EventBus, error) {
	wmLogger := watermill.NewSlogLogger(logger)

	switch provider {
	case "kafka":
		pub, err := kafka.CreatePublisher(wmLogger, kafka.ParseBrokers(brokers))
		if err != nil {
			return nil, fmt.Errorf("failed to create Kafka publisher: %w", err)
		}

		return eventbus.NewWatermillEventBus(pub), nil
	case "gochannel", "":
		return eventbus.NewWatermillEventBus(gochannel.CreateChannel(wmLogger)), nil
	default:
		return nil, fmt.Errorf("unsupported event bus provider %q", provider)
	}
}
