package services

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"linkup-backend/internal/apperr"
	"linkup-backend/internal/models"
	"linkup-backend/internal/repository"
)

const (
	minSearchQueryLength = 2
	searchResultLimit    = 10
)

// DirectoryService answers discovery queries against the user directory
type DirectoryService struct {
	userRepo    repository.UserStore
	requestRepo repository.FriendRequestStore
}

// NewDirectoryService creates a new directory service
func NewDirectoryService(userRepo repository.UserStore, requestRepo repository.FriendRequestStore) *DirectoryService {
	return &DirectoryService{
		userRepo:    userRepo,
		requestRepo: requestRepo,
	}
}

// ExcludedSet returns the ids hidden from userID's discovery results:
// the user, their friends, and everyone they share a request with in either direction, whatever its status.
func (s *DirectoryService) ExcludedSet(ctx context.Context, userID string) (map[string]struct{}, error) {
	requests, err := s.requestRepo.Find(ctx, repository.RequestFilter{Participant: userID})
	if err != nil {
		return nil, fmt.Errorf("failed to load friend requests: %w", err)
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	excluded := make(map[string]struct{}, len(requests)+len(user.Friends)+1)
	excluded[userID] = struct{}{}
	for _, r := range requests {
		excluded[r.OtherParty(userID)] = struct{}{}
	}
	for _, id := range user.Friends {
		excluded[id] = struct{}{}
	}
	return excluded, nil
}

func (s *DirectoryService) excludedIDs(ctx context.Context, userID string) ([]string, error) {
	excluded, err := s.ExcludedSet(ctx, userID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(excluded))
	for id := range excluded {
		ids = append(ids, id)
	}
	return ids, nil
}

// Recommend returns onboarded users outside userID's excluded set
func (s *DirectoryService) Recommend(ctx context.Context, userID string) ([]*models.User, error) {
	exclude, err := s.excludedIDs(ctx, userID)
	if err != nil {
		return nil, err
	}

	users, err := s.userRepo.Find(ctx, repository.UserFilter{
		OnboardedOnly: true,
		ExcludeIDs:    exclude,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to find recommended users: %w", err)
	}
	return users, nil
}

// Search returns up to ten onboarded users outside the excluded set whose full name
// contains query, ignoring case.
func (s *DirectoryService) Search(ctx context.Context, userID, query string) ([]*models.User, error) {
	query = strings.TrimSpace(query)
	if utf8.RuneCountInString(query) < minSearchQueryLength {
		return nil, apperr.Newf(apperr.KindInvalidArgument, "search query must be at least %d characters", minSearchQueryLength)
	}

	exclude, err := s.excludedIDs(ctx, userID)
	if err != nil {
		return nil, err
	}

	users, err := s.userRepo.Find(ctx, repository.UserFilter{
		OnboardedOnly: true,
		ExcludeIDs:    exclude,
		NameContains:  query,
		Limit:         searchResultLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search users: %w", err)
	}
	return users, nil
}

// ListFriends returns the user's friends in friends-list order
func (s *DirectoryService) ListFriends(ctx context.Context, userID string) ([]*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	friends, err := s.userRepo.GetByIDs(ctx, user.Friends)
	if err != nil {
		return nil, fmt.Errorf("failed to load friends: %w", err)
	}
	return friends, nil
}
