package nav

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishStatus(t *testing.T) {
	client := NewMockClient()
	client.SetConnected(true)
	publisher := NewPublisher(client, "")

	update := StatusUpdate{
		RunID:         "run-1",
		State:         "NAVIGATING",
		WaypointIndex: 2,
		Similarity:    0.82,
		Offset:        -12.5,
	}
	require.NoError(t, publisher.PublishStatus(update))

	published := client.Published()
	require.Len(t, published, 1)
	assert.Equal(t, "autosky/status", published[0].Topic)
	assert.True(t, published[0].Retain, "latest status should be retained for reconnecting observers")

	var decoded StatusUpdate
	require.NoError(t, json.Unmarshal(published[0].Payload, &decoded))
	assert.Equal(t, "run-1", decoded.RunID)
	assert.Equal(t, "NAVIGATING", decoded.State)
	assert.Equal(t, 2, decoded.WaypointIndex)
	assert.InDelta(t, 0.82, decoded.Similarity, 1e-9)

	assert.Equal(t, update, publisher.Last())
}

func TestPublishStatus_CustomPrefix(t *testing.T) {
	client := NewMockClient()
	client.SetConnected(true)
	publisher := NewPublisher(client, "nav")

	require.NoError(t, publisher.PublishStatus(StatusUpdate{RunID: "run-2"}))
	published := client.Published()
	require.Len(t, published, 1)
	assert.Equal(t, "nav/status", published[0].Topic)
}

func TestPublishStatus_NotConnected(t *testing.T) {
	publisher := NewPublisher(NewMockClient(), "")
	err := publisher.PublishStatus(StatusUpdate{RunID: "run-3"})
	assert.Error(t, err)
}

func TestPublishStatus_BrokerError(t *testing.T) {
	client := NewMockClient()
	client.SetConnected(true)
	client.SetPublishError(errors.New("broker rejected"))

	publisher := NewPublisher(client, "")
	err := publisher.PublishStatus(StatusUpdate{RunID: "run-4"})
	assert.Error(t, err)
}

func TestPublishOutcome(t *testing.T) {
	client := NewMockClient()
	client.SetConnected(true)
	publisher := NewPublisher(client, "")

	require.NoError(t, publisher.PublishOutcome("run-5", OutcomeDone))

	published := client.Published()
	require.Len(t, published, 1)
	assert.Equal(t, "autosky/outcome", published[0].Topic)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(published[0].Payload, &decoded))
	assert.Equal(t, "run-5", decoded["runId"])
	assert.Equal(t, "DONE", decoded["outcome"])
}

func TestRelay_PublishesAndTracks(t *testing.T) {
	client := NewMockClient()
	client.SetConnected(true)
	publisher := NewPublisher(client, "")
	tracker := NewStatusTracker()

	ch := make(chan StatusUpdate, 4)
	ch <- StatusUpdate{RunID: "run-6", State: "CALIBRATING"}
	ch <- StatusUpdate{RunID: "run-6", State: "NAVIGATING"}
	close(ch)

	publisher.Relay(ch, tracker)

	assert.Len(t, client.Published(), 2)
	latest, ok := tracker.Latest()
	require.True(t, ok)
	assert.Equal(t, "NAVIGATING", latest.State)
	assert.Equal(t, uint64(2), tracker.Ticks())
}

func TestRelay_SurvivesBrokerTrouble(t *testing.T) {
	client := NewMockClient()
	client.SetConnected(true)
	client.SetPublishError(errors.New("flaky broker"))
	publisher := NewPublisher(client, "")
	tracker := NewStatusTracker()

	ch := make(chan StatusUpdate, 1)
	ch <- StatusUpdate{RunID: "run-7"}
	close(ch)

	// Must drain the channel and keep tracking despite publish failures.
	publisher.Relay(ch, tracker)
	_, ok := tracker.Latest()
	assert.True(t, ok)
}
