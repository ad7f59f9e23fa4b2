package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yyup/kindergarten-service/internal/config"
	"github.com/yyup/kindergarten-service/internal/utils"
)

func TestPublisherDeliversOverGoChannel(t *testing.T) {
	logger := utils.NewNopLogger()
	pubSub := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 4}, NewLoggerAdapter(logger))
	defer pubSub.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	messages, err := pubSub.Subscribe(ctx, "kindergarten.events")
	require.NoError(t, err)

	publisher := NewPublisher(pubSub, "kindergarten.events", logger)
	event := NewEvent(ActivityCreated, "kindergarten", map[string]interface{}{"activityId": 7})
	require.NoError(t, publisher.Publish(ctx, event))

	select {
	case msg := <-messages:
		msg.Ack()
		assert.Equal(t, event.ID, msg.UUID)
		assert.Equal(t, "activity.created", msg.Metadata.Get("type"))
		assert.Equal(t, "kindergarten", msg.Metadata.Get("tenant"))

		var got Event
		require.NoError(t, json.Unmarshal(msg.Payload, &got))
		assert.Equal(t, ActivityCreated, got.Type)
		assert.Equal(t, "kindergarten-service", got.Source)
		assert.Equal(t, float64(7), got.Data["activityId"])
	case <-ctx.Done():
		t.Fatal("event was not delivered")
	}
}

func TestNewPublisherFromConfigWithoutBrokers(t *testing.T) {
	publisher, err := NewPublisherFromConfig(config.KafkaConfig{Topic: "t"}, utils.NewNopLogger())
	require.NoError(t, err)
	defer publisher.Close()

	// no subscribers: gochannel drops the message without error
	assert.NoError(t, publisher.Publish(context.Background(), NewEvent(CheckinCreated, "kindergarten", nil)))
}

func TestMockEventPublisher(t *testing.T) {
	mock := NewMockEventPublisher()
	ctx := context.Background()

	require.NoError(t, mock.Publish(ctx, NewEvent(NotificationCreated, "kindergarten", nil)))
	require.Len(t, mock.GetPublishedEvents(), 1)
	assert.NotEmpty(t, mock.GetPublishedEvents()[0].ID)

	mock.ClearEvents()
	assert.Empty(t, mock.GetPublishedEvents())
}
