package events_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/north-cloud/medgraph/internal/events"
	"github.com/jonesrussell/north-cloud/medgraph/internal/logger"
)

func newMiniRedis(t *testing.T) *redis.Client {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func readEvents(t *testing.T, client *redis.Client, stream string) []events.RunEvent {
	t.Helper()

	msgs, err := client.XRange(context.Background(), stream, "-", "+").Result()
	require.NoError(t, err)

	out := make([]events.RunEvent, 0, len(msgs))
	for _, msg := range msgs {
		raw, ok := msg.Values["event"].(string)
		require.True(t, ok)
		var ev events.RunEvent
		require.NoError(t, json.Unmarshal([]byte(raw), &ev))
		out = append(out, ev)
	}
	return out
}

func TestPublisher_Publish(t *testing.T) {
	client := newMiniRedis(t)
	pub := events.NewPublisher(client, "medgraph:runs", logger.NewNop())

	runID := uuid.New()
	err := pub.Publish(context.Background(), events.RunEvent{
		EventType: events.RunFailed,
		RunID:     runID,
		Country:   "CHN",
		Payload:   events.RunPayload{Error: "storage unavailable"},
	})
	require.NoError(t, err)

	got := readEvents(t, client, "medgraph:runs")
	require.Len(t, got, 1)
	assert.NotEqual(t, uuid.Nil, got[0].EventID)
	assert.Equal(t, runID, got[0].RunID)
	assert.Equal(t, "storage unavailable", got[0].Payload.Error)
	assert.False(t, got[0].Timestamp.IsZero())
}

func TestPublisher_PublishAsync(t *testing.T) {
	client := newMiniRedis(t)
	pub := events.NewPublisher(client, "medgraph:runs", logger.NewNop())

	pub.PublishAsync(events.RunEvent{EventType: events.RunCompleted, Country: "USA"})

	require.Eventually(t, func() bool {
		n, err := client.XLen(context.Background(), "medgraph:runs").Result()
		return err == nil && n == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "USA", readEvents(t, client, "medgraph:runs")[0].Country)
}

func TestNewPublisher_RequiresClient(t *testing.T) {
	pub := events.NewPublisher(nil, "medgraph:runs", nil)
	assert.Nil(t, pub)
}

func TestPublisher_NilIsNoOp(t *testing.T) {
	var pub *events.Publisher

	require.NoError(t, pub.Publish(context.Background(), events.RunEvent{Country: "USA"}))
	pub.PublishAsync(events.RunEvent{Country: "USA"})
	assert.NoError(t, pub.Close())
}

func TestRunEvent_JSON(t *testing.T) {
	runID := uuid.New()
	event := events.RunEvent{
		EventType: events.RunCompleted,
		RunID:     runID,
		Country:   "CAN",
		Payload: events.RunPayload{
			Fetched:           12,
			Inserted:          10,
			DuplicatesRemoved: 1,
		},
	}

	raw, err := json.Marshal(event)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "RUN_COMPLETED", decoded["event_type"])
	assert.Equal(t, runID.String(), decoded["run_id"])

	payload, ok := decoded["payload"].(map[string]any)
	require.True(t, ok)
	assert.InDelta(t, 10, payload["inserted"], 0)
	assert.NotContains(t, payload, "error")
	assert.NotContains(t, payload, "failed_sources")
}
