package services

import (
	"context"
	"errors"
	"fmt"

	"linkup-backend/internal/config"
	"linkup-backend/internal/repository"

	"github.com/sideshow/apns2"
	"github.com/sideshow/apns2/payload"
	"github.com/sideshow/apns2/token"
)

// APNsPusher sends a single push notification
type APNsPusher interface {
	PushWithContext(ctx apns2.Context, n *apns2.Notification) (*apns2.Response, error)
}

// NewAPNsClient creates a token-authenticated APNs client
func NewAPNsClient(cfg config.APNsConfig) (*apns2.Client, error) {
	authKey, err := token.AuthKeyFromFile(cfg.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load APNs auth key: %w", err)
	}

	client := apns2.NewTokenClient(&token.Token{
		AuthKey: authKey,
		KeyID:   cfg.KeyID,
		TeamID:  cfg.TeamID,
	})
	if cfg.Production {
		return client.Production(), nil
	}
	return client.Development(), nil
}

// APNsTransport pushes events to the devices of the participants who did not cause them
type APNsTransport struct {
	users  repository.UserStore
	pusher APNsPusher
	topic  string
}

// NewAPNsTransport creates a new APNs transport
func NewAPNsTransport(users repository.UserStore, pusher APNsPusher, topic string) *APNsTransport {
	return &APNsTransport{users: users, pusher: pusher, topic: topic}
}

// Name returns the transport name
func (t *APNsTransport) Name() string {
	return "apns"
}

// Deliver sends one push per recipient device. Recipients without a push token are skipped.
func (t *APNsTransport) Deliver(ctx context.Context, channel string, event Event) error {
	var recipientIDs []string
	for _, id := range event.Participants {
		if id != event.Actor.ID {
			recipientIDs = append(recipientIDs, id)
		}
	}
	if len(recipientIDs) == 0 {
		return nil
	}

	recipients, err := t.users.GetByIDs(ctx, recipientIDs)
	if err != nil {
		return fmt.Errorf("failed to load push recipients: %w", err)
	}

	title, body := alertText(event)
	var errs []error
	for _, user := range recipients {
		if user.PushToken == nil || *user.PushToken == "" {
			continue
		}

		n := &apns2.Notification{
			DeviceToken: *user.PushToken,
			Topic:       t.topic,
			Payload: payload.NewPayload().
				AlertTitle(title).
				AlertBody(body).
				Sound("default").
				Custom("type", string(event.Kind)).
				Custom("channel", channel).
				Custom("request_id", event.RequestID).
				Custom("sender_id", event.Actor.ID),
		}

		res, err := t.pusher.PushWithContext(ctx, n)
		if err != nil {
			errs = append(errs, fmt.Errorf("push to %s: %w", user.ID, err))
			continue
		}
		if !res.Sent() {
			errs = append(errs, fmt.Errorf("push to %s rejected: %d %s", user.ID, res.StatusCode, res.Reason))
		}
	}
	return errors.Join(errs...)
}

func alertText(event Event) (string, string) {
	switch event.Kind {
	case EventFriendRequestAccepted:
		return "Friend request accepted", fmt.Sprintf("%s accepted your friend request!", event.Actor.FullName)
	default:
		return "New friend request", fmt.Sprintf("New friend request from %s", event.Actor.FullName)
	}
}
