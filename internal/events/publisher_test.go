package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestPublisherSendsToRedisChannel(t *testing.T) {
	mini, err := miniredis.Run()
	require.NoError(t, err)
	defer mini.Close()

	client := redis.NewClient(&redis.Options{Addr: mini.Addr()})
	defer client.Close()

	subscription := client.Subscribe(context.Background(), "codescreen:sessions")
	defer subscription.Close()
	_, err = subscription.Receive(context.Background())
	require.NoError(t, err)

	publisher := NewPublisher(nil, client, "codescreen", zerolog.Nop())
	publisher.Publish(context.Background(), Event{
		Type:      TypeQuestionAdvanced,
		ScreenID:  "screen-1",
		AttemptID: 7,
	})

	select {
	case message := <-subscription.Channel():
		var event Event
		require.NoError(t, json.Unmarshal([]byte(message.Payload), &event))
		require.Equal(t, TypeQuestionAdvanced, event.Type)
		require.Equal(t, uint(7), event.AttemptID)
		require.False(t, event.SentAt.IsZero())
	case <-time.After(2 * time.Second):
		t.Fatal("expected session event on redis channel")
	}
}

func TestPublisherWithoutSinksIsSafe(t *testing.T) {
	publisher := NewPublisher(nil, nil, "", zerolog.Nop())
	publisher.Publish(context.Background(), Event{Type: TypeScreenMounted})
}
