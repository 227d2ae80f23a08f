package eventbus_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/dukex/automation-runner/pkg/channels/gochannel"
	"github.com/dukex/automation-runner/pkg/eventbus"
	"github.com/dukex/automation-runner/pkg/events"
	"github.com/dukex/automation-runner/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatermillEventBus_Publish(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pubSub := gochannel.CreateTestChannel(watermill.NopLogger{})

	messages, err := pubSub.Subscribe(ctx, events.Topic)
	require.NoError(t, err)

	bus := eventbus.NewWatermillEventBus(pubSub)

	defer func() { _ = bus.Close() }()

	run := &models.AutomationRun{ID: 42, Tenant: "acme", UserID: "user-1", BrowserConfigID: 7, Type: models.RunTypeFindConnections, RetryCount: 2}

	published := make(chan error, 1)

	go func() {
		published <- bus.Publish(ctx, "42", events.RunRetrying{
			BaseEvent: events.NewBaseEvent(events.RunRetryingEvent, "runner-1"),
			RunRef:    events.NewRunRef(run),
			Reference: models.SessionInvalidReference,
			Error:     "session expired",
		})
	}()

	select {
	case msg := <-messages:
		assert.Equal(t, "42", msg.Metadata.Get(events.EventMetadataKey))
		assert.Equal(t, string(events.RunRetryingEvent), msg.Metadata.Get(events.EventTypeMetadataKey))

		var event events.RunRetrying
		require.NoError(t, json.Unmarshal(msg.Payload, &event))
		msg.Ack()

		assert.Equal(t, int64(42), event.RunID)
		assert.Equal(t, 2, event.RetryCount)
		assert.Equal(t, models.RunTypeFindConnections, event.RunType)
		assert.Equal(t, models.SessionInvalidReference, event.Reference)
		assert.Equal(t, "runner-1", event.RunnerID)
	case <-time.After(5 * time.Second):
		t.Fatal("event was not delivered")
	}

	require.NoError(t, <-published)
}

func TestWatermillEventBus_GenerateID(t *testing.T) {
	t.Parallel()

	bus := eventbus.NewWatermillEventBus(gochannel.CreateChannel(watermill.NopLogger{}))

	first := bus.GenerateID()
	second := bus.GenerateID()

	assert.Len(t, first, 26)
	assert.NotEqual(t, first, second)
}
