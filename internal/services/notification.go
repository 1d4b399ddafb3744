package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"linkup-backend/internal/models"
	"linkup-backend/internal/pubsub"

	"github.com/rs/zerolog/log"
)

// EventKind identifies a relationship event
type EventKind string

const (
	EventFriendRequestReceived EventKind = "friend_request_received"
	EventFriendRequestAccepted EventKind = "friend_request_accepted"
)

// Event is a relationship event delivered to the real-time transports
type Event struct {
	Kind         EventKind          `json:"type"`
	Channel      string             `json:"channel"`
	RequestID    string             `json:"request_id"`
	Actor        models.UserSummary `json:"sender"`
	Participants []string           `json:"participants"`
	Timestamp    int64              `json:"timestamp"`
}

// Notifier emits relationship events. Notify never fails: delivery problems are logged.
type Notifier interface {
	Notify(ctx context.Context, event Event)
}

// Transport delivers an event on a channel
type Transport interface {
	Name() string
	Deliver(ctx context.Context, channel string, event Event) error
}

// ChannelKey returns the channel for a set of participants.
// Participants are sorted so both directions of a relationship share one channel.
func ChannelKey(prefix string, participants ...string) string {
	sorted := append([]string(nil), participants...)
	sort.Strings(sorted)
	return prefix + ":" + strings.Join(sorted, ":")
}

// ParticipantPatterns returns the subscription patterns matching every pair channel of userID
func ParticipantPatterns(prefix, userID string) []string {
	return []string{
		fmt.Sprintf("%s:%s:*", prefix, userID),
		fmt.Sprintf("%s:*:%s", prefix, userID),
	}
}

// NotificationDispatcher delivers events to every configured transport,
// making exactly one attempt per transport.
type NotificationDispatcher struct {
	prefix     string
	timeout    time.Duration
	transports []Transport
}

// NewNotificationDispatcher creates a new dispatcher
func NewNotificationDispatcher(prefix string, timeout time.Duration, transports ...Transport) *NotificationDispatcher {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &NotificationDispatcher{
		prefix:     prefix,
		timeout:    timeout,
		transports: transports,
	}
}

// Notify delivers the event. Failures are logged and swallowed, never retried.
func (d *NotificationDispatcher) Notify(ctx context.Context, event Event) {
	event.Channel = ChannelKey(d.prefix, event.Participants...)
	if event.Timestamp == 0 {
		event.Timestamp = time.Now().UnixMilli()
	}

	// The relationship change is already durable; the caller going away must not cancel delivery
	base := context.WithoutCancel(ctx)

	for _, t := range d.transports {
		deliverCtx, cancel := context.WithTimeout(base, d.timeout)
		err := t.Deliver(deliverCtx, event.Channel, event)
		cancel()

		if err != nil {
			log.Warn().
				Err(err).
				Str("transport", t.Name()).
				Str("event", string(event.Kind)).
				Str("channel", event.Channel).
				Str("request_id", event.RequestID).
				Msg("Failed to deliver notification")
			continue
		}

		log.Debug().
			Str("transport", t.Name()).
			Str("event", string(event.Kind)).
			Str("channel", event.Channel).
			Msg("Notification delivered")
	}
}

// BrokerTransport publishes events as JSON on the pub/sub broker
type BrokerTransport struct {
	broker pubsub.Broker
}

// NewBrokerTransport creates a new broker transport
func NewBrokerTransport(broker pubsub.Broker) *BrokerTransport {
	return &BrokerTransport{broker: broker}
}

// Name returns the transport name
func (t *BrokerTransport) Name() string {
	return "broker"
}

// Deliver publishes the event on channel
func (t *BrokerTransport) Deliver(ctx context.Context, channel string, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := t.broker.Publish(ctx, channel, string(data)); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}
