package repository

import (
	"context"

	"linkup-backend/internal/models"
)

// UserFilter selects users from the directory
type UserFilter struct {
	OnboardedOnly bool
	// NameContains is matched as a case-insensitive substring of the full name
	NameContains string
	ExcludeIDs   []string
	// Limit <= 0 means no limit
	Limit int
}

// RequestFilter selects friend requests. Empty fields are ignored.
type RequestFilter struct {
	// Participant matches either the sender or the recipient
	Participant string
	SenderID    string
	RecipientID string
	Status      models.RequestStatus
}

// UserStore is the user directory
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	// GetByIDs returns users in the order of ids, skipping unknown ids
	GetByIDs(ctx context.Context, ids []string) ([]*models.User, error)
	Find(ctx context.Context, filter UserFilter) ([]*models.User, error)
	UpdateProfile(ctx context.Context, id string, profile models.Profile) (*models.User, error)
	UpdateAvatar(ctx context.Context, id, avatarURL string) error
	UpdatePushToken(ctx context.Context, id string, pushToken *string) error
	// AddFriend adds friendID to the user's friends set. Adding a present id is a no-op.
	AddFriend(ctx context.Context, userID, friendID string) error
}

// FriendRequestStore persists friend requests
type FriendRequestStore interface {
	// Create fails with a conflict when the unordered pair already has a request
	Create(ctx context.Context, req *models.FriendRequest) error
	GetByID(ctx context.Context, id string) (*models.FriendRequest, error)
	Find(ctx context.Context, filter RequestFilter) ([]*models.FriendRequest, error)
	ExistsBetween(ctx context.Context, userA, userB string) (bool, error)
	// UpdateStatus moves the request from -> to, failing with a conflict when it is not in from
	UpdateStatus(ctx context.Context, id string, from, to models.RequestStatus) (*models.FriendRequest, error)
	// Accept moves a pending request to accepted and befriends both participants atomically
	Accept(ctx context.Context, id string) (*models.FriendRequest, error)
}
