package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"linkup-backend/internal/models"
	"linkup-backend/internal/pubsub"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChannelKey_IsSymmetric(t *testing.T) {
	assert.Equal(t, ChannelKey("notify", "alice", "bob"), ChannelKey("notify", "bob", "alice"))
	assert.Equal(t, "notify:alice:bob", ChannelKey("notify", "bob", "alice"))
}

func TestParticipantPatterns(t *testing.T) {
	assert.Equal(t, []string{"notify:bob:*", "notify:*:bob"}, ParticipantPatterns("notify", "bob"))
}

func TestDispatcher_OneAttemptPerTransport(t *testing.T) {
	ok := &stubTransport{name: "ok"}
	failing := &stubTransport{name: "failing", err: errTransportDown}
	after := &stubTransport{name: "after"}
	d := NewNotificationDispatcher("notify", time.Second, failing, ok, after)

	d.Notify(context.Background(), Event{
		Kind:         EventFriendRequestReceived,
		RequestID:    "r1",
		Actor:        models.UserSummary{ID: "bob"},
		Participants: []string{"bob", "alice"},
	})

	for _, tr := range []*stubTransport{ok, failing, after} {
		assert.Equal(t, 1, tr.Calls(), tr.name)
		assert.Equal(t, "notify:alice:bob", tr.channels[0])
		assert.Equal(t, "notify:alice:bob", tr.events[0].Channel)
		assert.NotZero(t, tr.events[0].Timestamp)
	}
}

func TestDispatcher_IgnoresCallerCancellation(t *testing.T) {
	tr := &stubTransport{name: "ok"}
	d := NewNotificationDispatcher("notify", time.Second, tr)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d.Notify(ctx, Event{Kind: EventFriendRequestAccepted, Participants: []string{"a", "b"}})

	require.Equal(t, 1, tr.Calls())
	assert.NoError(t, tr.ctxErr)
}

func TestDispatcher_NoTransports(t *testing.T) {
	d := NewNotificationDispatcher("notify", 0)
	assert.NotPanics(t, func() {
		d.Notify(context.Background(), Event{Kind: EventFriendRequestReceived, Participants: []string{"a", "b"}})
	})
}

type failingBroker struct {
	pubsub.Broker
}

func (failingBroker) Publish(context.Context, string, string) error {
	return errors.New("connection refused")
}

func TestBrokerTransport(t *testing.T) {
	broker := pubsub.NewLocalBroker(4)
	defer broker.Close()

	messages, cancel, err := broker.PSubscribe(context.Background(), "notify:*")
	require.NoError(t, err)
	defer cancel()

	event := Event{
		Kind:         EventFriendRequestReceived,
		Channel:      "notify:a:b",
		RequestID:    "r1",
		Actor:        models.UserSummary{ID: "a", FullName: "A"},
		Participants: []string{"a", "b"},
		Timestamp:    42,
	}
	require.NoError(t, NewBrokerTransport(broker).Deliver(context.Background(), "notify:a:b", event))

	select {
	case msg := <-messages:
		assert.Equal(t, "notify:a:b", msg.Channel)
		var decoded Event
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &decoded))
		assert.Equal(t, event, decoded)
	case <-time.After(time.Second):
		t.Fatal("no message published")
	}

	err = NewBrokerTransport(failingBroker{}).Deliver(context.Background(), "notify:a:b", event)
	assert.Error(t, err)
}

func TestEventJSON(t *testing.T) {
	data, err := json.Marshal(Event{
		Kind:         EventFriendRequestReceived,
		RequestID:    "r1",
		Actor:        models.UserSummary{ID: "a", FullName: "A", ProfilePic: "p"},
		Participants: []string{"a", "b"},
	})
	require.NoError(t, err)

	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "friend_request_received", raw["type"])
	sender := raw["sender"].(map[string]interface{})
	assert.Equal(t, "a", sender["id"])
	assert.Equal(t, "A", sender["full_name"])
	assert.Equal(t, "p", sender["profile_pic"])
}
