package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"linkup-backend/internal/pubsub"

	"github.com/rs/zerolog/log"
)

// EventSubscriber opens per-user event subscriptions on the broker
type EventSubscriber struct {
	broker  pubsub.Broker
	prefix  string
	bufSize int
}

// NewEventSubscriber creates a new event subscriber
func NewEventSubscriber(broker pubsub.Broker, prefix string, bufSize int) *EventSubscriber {
	if bufSize <= 0 {
		bufSize = 64
	}
	return &EventSubscriber{broker: broker, prefix: prefix, bufSize: bufSize}
}

// Subscription is a live stream of events for one user.
// It must be released with Unsubscribe.
type Subscription struct {
	events chan Event
	cancel func()
	once   sync.Once
	done   chan struct{}
}

// Events returns the event stream. It is closed after Unsubscribe.
func (s *Subscription) Events() <-chan Event {
	return s.events
}

// Unsubscribe releases the subscription. Safe to call more than once.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		close(s.done)
		s.cancel()
	})
}

// Subscribe streams events on any of userID's pair channels.
// Events the user caused are dropped; kinds restricts the stream, none means all.
func (s *EventSubscriber) Subscribe(ctx context.Context, userID string, kinds ...EventKind) (*Subscription, error) {
	messages, cancel, err := s.broker.PSubscribe(ctx, ParticipantPatterns(s.prefix, userID)...)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to events: %w", err)
	}

	wanted := make(map[EventKind]bool, len(kinds))
	for _, k := range kinds {
		wanted[k] = true
	}

	sub := &Subscription{
		events: make(chan Event, s.bufSize),
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go func() {
		defer close(sub.events)
		for {
			select {
			case <-sub.done:
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}
				var event Event
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					log.Error().Err(err).Str("channel", msg.Channel).Msg("Failed to decode event")
					continue
				}
				if event.Actor.ID == userID {
					continue
				}
				if len(wanted) > 0 && !wanted[event.Kind] {
					continue
				}
				select {
				case sub.events <- event:
				case <-sub.done:
					return
				}
			}
		}
	}()

	return sub, nil
}
