package services

import (
	"context"
	"fmt"
	"time"

	"linkup-backend/internal/apperr"
	"linkup-backend/internal/models"
	"linkup-backend/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// FriendRequestService handles the friend request lifecycle
type FriendRequestService struct {
	requestRepo repository.FriendRequestStore
	userRepo    repository.UserStore
	notifier    Notifier
}

// NewFriendRequestService creates a new friend request service
func NewFriendRequestService(
	requestRepo repository.FriendRequestStore,
	userRepo repository.UserStore,
	notifier Notifier,
) *FriendRequestService {
	return &FriendRequestService{
		requestRepo: requestRepo,
		userRepo:    userRepo,
		notifier:    notifier,
	}
}

// IncomingRequests holds the requests waiting for the user and the ones the user sent that were accepted
type IncomingRequests struct {
	Incoming []*models.FriendRequestView `json:"incoming"`
	Accepted []*models.FriendRequestView `json:"accepted"`
}

// Send creates a pending friend request from senderID to recipientID
func (s *FriendRequestService) Send(ctx context.Context, senderID, recipientID string) (*models.FriendRequest, error) {
	if senderID == recipientID {
		return nil, apperr.New(apperr.KindInvalidArgument, "you cannot send a friend request to yourself")
	}

	recipient, err := s.userRepo.GetByID(ctx, recipientID)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			return nil, apperr.Wrap(apperr.KindNotFound, err, "recipient not found")
		}
		return nil, fmt.Errorf("failed to load recipient: %w", err)
	}

	sender, err := s.userRepo.GetByID(ctx, senderID)
	if err != nil {
		return nil, fmt.Errorf("failed to load sender: %w", err)
	}

	if sender.HasFriend(recipientID) || recipient.HasFriend(senderID) {
		return nil, apperr.New(apperr.KindConflict, "you are already friends with this user")
	}

	exists, err := s.requestRepo.ExistsBetween(ctx, senderID, recipientID)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing requests: %w", err)
	}
	if exists {
		return nil, apperr.New(apperr.KindConflict, "a friend request already exists between you and this user")
	}

	now := time.Now()
	req := &models.FriendRequest{
		ID:          uuid.New().String(),
		SenderID:    senderID,
		RecipientID: recipientID,
		Status:      models.StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	// A concurrent send for the same pair loses here on the store's pair uniqueness
	if err := s.requestRepo.Create(ctx, req); err != nil {
		if apperr.KindOf(err) == apperr.KindConflict {
			return nil, apperr.Wrap(apperr.KindConflict, err, "a friend request already exists between you and this user")
		}
		return nil, fmt.Errorf("failed to create friend request: %w", err)
	}

	log.Info().
		Str("request_id", req.ID).
		Str("sender_id", senderID).
		Str("recipient_id", recipientID).
		Msg("Friend request sent")

	s.notifier.Notify(ctx, Event{
		Kind:         EventFriendRequestReceived,
		RequestID:    req.ID,
		Actor:        sender.Summary(),
		Participants: []string{senderID, recipientID},
	})

	return req, nil
}

// loadForRecipient returns the request if actingUserID is its recipient
func (s *FriendRequestService) loadForRecipient(ctx context.Context, actingUserID, requestID, action string) (*models.FriendRequest, error) {
	req, err := s.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			return nil, apperr.Wrap(apperr.KindNotFound, err, "friend request not found")
		}
		return nil, fmt.Errorf("failed to load friend request: %w", err)
	}

	if req.RecipientID != actingUserID {
		return nil, apperr.Newf(apperr.KindForbidden, "you are not authorized to %s this friend request", action)
	}

	if !req.Status.CanTransition(models.StatusAccepted) {
		return nil, apperr.Newf(apperr.KindConflict, "friend request is already %s", req.Status)
	}
	return req, nil
}

// Accept accepts a pending request on behalf of its recipient and befriends both users
func (s *FriendRequestService) Accept(ctx context.Context, actingUserID, requestID string) (*models.FriendRequest, error) {
	if _, err := s.loadForRecipient(ctx, actingUserID, requestID, "accept"); err != nil {
		return nil, err
	}

	accepted, err := s.requestRepo.Accept(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to accept friend request: %w", err)
	}

	log.Info().
		Str("request_id", accepted.ID).
		Str("sender_id", accepted.SenderID).
		Str("recipient_id", accepted.RecipientID).
		Msg("Friend request accepted")

	actor := models.UserSummary{ID: actingUserID}
	if recipient, err := s.userRepo.GetByID(ctx, actingUserID); err == nil {
		actor = recipient.Summary()
	} else {
		log.Warn().Err(err).Str("user_id", actingUserID).Msg("Failed to load accepting user for notification")
	}

	s.notifier.Notify(ctx, Event{
		Kind:         EventFriendRequestAccepted,
		RequestID:    accepted.ID,
		Actor:        actor,
		Participants: []string{accepted.SenderID, accepted.RecipientID},
	})

	return accepted, nil
}

// Reject rejects a pending request on behalf of its recipient. Nobody is notified.
func (s *FriendRequestService) Reject(ctx context.Context, actingUserID, requestID string) (*models.FriendRequest, error) {
	if _, err := s.loadForRecipient(ctx, actingUserID, requestID, "reject"); err != nil {
		return nil, err
	}

	rejected, err := s.requestRepo.UpdateStatus(ctx, requestID, models.StatusPending, models.StatusRejected)
	if err != nil {
		return nil, fmt.Errorf("failed to reject friend request: %w", err)
	}

	log.Info().
		Str("request_id", rejected.ID).
		Str("sender_id", rejected.SenderID).
		Str("recipient_id", rejected.RecipientID).
		Msg("Friend request rejected")

	return rejected, nil
}

// ListIncomingPending returns pending requests sent to userID with the sender resolved
func (s *FriendRequestService) ListIncomingPending(ctx context.Context, userID string) ([]*models.FriendRequestView, error) {
	requests, err := s.requestRepo.Find(ctx, repository.RequestFilter{
		RecipientID: userID,
		Status:      models.StatusPending,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load incoming requests: %w", err)
	}
	return s.withCounterparts(ctx, requests, userID)
}

// ListOutgoingPending returns pending requests sent by userID with the recipient resolved
func (s *FriendRequestService) ListOutgoingPending(ctx context.Context, userID string) ([]*models.FriendRequestView, error) {
	requests, err := s.requestRepo.Find(ctx, repository.RequestFilter{
		SenderID: userID,
		Status:   models.StatusPending,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load outgoing requests: %w", err)
	}
	return s.withCounterparts(ctx, requests, userID)
}

// ListAcceptedSentByMe returns accepted requests sent by userID with the recipient resolved
func (s *FriendRequestService) ListAcceptedSentByMe(ctx context.Context, userID string) ([]*models.FriendRequestView, error) {
	requests, err := s.requestRepo.Find(ctx, repository.RequestFilter{
		SenderID: userID,
		Status:   models.StatusAccepted,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load accepted requests: %w", err)
	}
	return s.withCounterparts(ctx, requests, userID)
}

// Incoming returns the incoming pending requests together with the accepted requests the user sent
func (s *FriendRequestService) Incoming(ctx context.Context, userID string) (*IncomingRequests, error) {
	incoming, err := s.ListIncomingPending(ctx, userID)
	if err != nil {
		return nil, err
	}
	accepted, err := s.ListAcceptedSentByMe(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &IncomingRequests{Incoming: incoming, Accepted: accepted}, nil
}

// withCounterparts attaches the display attributes of the participant that is not userID
func (s *FriendRequestService) withCounterparts(ctx context.Context, requests []*models.FriendRequest, userID string) ([]*models.FriendRequestView, error) {
	ids := make([]string, 0, len(requests))
	for _, r := range requests {
		ids = append(ids, r.OtherParty(userID))
	}

	users, err := s.userRepo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load counterparts: %w", err)
	}
	byID := make(map[string]models.UserSummary, len(users))
	for _, u := range users {
		byID[u.ID] = u.Summary()
	}

	views := make([]*models.FriendRequestView, 0, len(requests))
	for _, r := range requests {
		view := &models.FriendRequestView{FriendRequest: *r}
		if summary, ok := byID[r.OtherParty(userID)]; ok {
			if r.SenderID == userID {
				view.Recipient = &summary
			} else {
				view.Sender = &summary
			}
		}
		views = append(views, view)
	}
	return views, nil
}
