package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"linkup-backend/internal/apperr"
	"linkup-backend/internal/models"
)

// MemoryStore is an in-process UserStore and FriendRequestStore.
// A single lock covers users and requests so Create and Accept are atomic.
type MemoryStore struct {
	mu       sync.RWMutex
	users    map[string]*models.User
	requests map[string]*models.FriendRequest
	// pairs indexes requests by unordered pair key
	pairs map[string]string
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:    make(map[string]*models.User),
		requests: make(map[string]*models.FriendRequest),
		pairs:    make(map[string]string),
	}
}

func pairKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + "|" + b
}

func cloneUser(u *models.User) *models.User {
	c := *u
	c.Friends = append([]string{}, u.Friends...)
	if u.PushToken != nil {
		token := *u.PushToken
		c.PushToken = &token
	}
	return &c
}

func cloneRequest(r *models.FriendRequest) *models.FriendRequest {
	c := *r
	return &c
}

// Create creates a new user
func (s *MemoryStore) Create(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[user.ID]; exists {
		return apperr.New(apperr.KindConflict, "create user: already exists")
	}
	stored := cloneUser(user)
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now()
	}
	if stored.UpdatedAt.IsZero() {
		stored.UpdatedAt = stored.CreatedAt
	}
	s.users[user.ID] = stored
	return nil
}

// GetByID retrieves a user by ID
func (s *MemoryStore) GetByID(ctx context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, apperr.New(apperr.KindNotFound, "user not found")
	}
	return cloneUser(u), nil
}

// GetByIDs retrieves users by ID, preserving the order of ids
func (s *MemoryStore) GetByIDs(ctx context.Context, ids []string) ([]*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]*models.User, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		u, ok := s.users[id]
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		users = append(users, cloneUser(u))
	}
	return users, nil
}

// Find retrieves users matching the filter ordered by creation time
func (s *MemoryStore) Find(ctx context.Context, filter UserFilter) ([]*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	excluded := make(map[string]bool, len(filter.ExcludeIDs))
	for _, id := range filter.ExcludeIDs {
		excluded[id] = true
	}
	needle := strings.ToLower(filter.NameContains)

	users := []*models.User{}
	for _, u := range s.users {
		if filter.OnboardedOnly && !u.IsOnboarded {
			continue
		}
		if excluded[u.ID] {
			continue
		}
		if needle != "" && !strings.Contains(strings.ToLower(u.FullName), needle) {
			continue
		}
		users = append(users, cloneUser(u))
	}

	sort.Slice(users, func(i, j int) bool {
		if !users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return users[i].CreatedAt.Before(users[j].CreatedAt)
		}
		return users[i].ID < users[j].ID
	})
	if filter.Limit > 0 && len(users) > filter.Limit {
		users = users[:filter.Limit]
	}
	return users, nil
}

// UpdateProfile stores the onboarding profile and marks the user onboarded
func (s *MemoryStore) UpdateProfile(ctx context.Context, id string, profile models.Profile) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, apperr.New(apperr.KindNotFound, "user not found")
	}
	u.FullName = profile.FullName
	u.Bio = profile.Bio
	u.NativeLanguage = profile.NativeLanguage
	u.LearningLanguage = profile.LearningLanguage
	u.Location = profile.Location
	u.ProfilePic = profile.ProfilePic
	u.IsOnboarded = true
	u.UpdatedAt = time.Now()
	return cloneUser(u), nil
}

// UpdateAvatar updates the avatar URL for a user
func (s *MemoryStore) UpdateAvatar(ctx context.Context, id, avatarURL string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return apperr.New(apperr.KindNotFound, "user not found")
	}
	u.ProfilePic = avatarURL
	u.UpdatedAt = time.Now()
	return nil
}

// UpdatePushToken updates the push token for a user
func (s *MemoryStore) UpdatePushToken(ctx context.Context, id string, pushToken *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return apperr.New(apperr.KindNotFound, "user not found")
	}
	if pushToken != nil {
		token := *pushToken
		pushToken = &token
	}
	u.PushToken = pushToken
	u.UpdatedAt = time.Now()
	return nil
}

// AddFriend adds friendID to the user's friends set
func (s *MemoryStore) AddFriend(ctx context.Context, userID, friendID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addFriendLocked(userID, friendID)
}

func (s *MemoryStore) addFriendLocked(userID, friendID string) error {
	u, ok := s.users[userID]
	if !ok {
		return apperr.New(apperr.KindNotFound, "user not found")
	}
	if !u.HasFriend(friendID) {
		u.Friends = append(u.Friends, friendID)
		u.UpdatedAt = time.Now()
	}
	return nil
}

// createRequest inserts a friend request, allowing one request per unordered pair
func (s *MemoryStore) createRequest(req *models.FriendRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if req.SenderID == req.RecipientID {
		return apperr.New(apperr.KindInvalidArgument, "create friend request: constraint violated")
	}
	if _, ok := s.users[req.SenderID]; !ok {
		return apperr.New(apperr.KindNotFound, "create friend request: referenced user not found")
	}
	if _, ok := s.users[req.RecipientID]; !ok {
		return apperr.New(apperr.KindNotFound, "create friend request: referenced user not found")
	}
	key := pairKey(req.SenderID, req.RecipientID)
	if _, exists := s.pairs[key]; exists {
		return apperr.New(apperr.KindConflict, "create friend request: already exists")
	}
	if _, exists := s.requests[req.ID]; exists {
		return apperr.New(apperr.KindConflict, "create friend request: already exists")
	}

	s.requests[req.ID] = cloneRequest(req)
	s.pairs[key] = req.ID
	return nil
}

// FriendRequests returns the FriendRequestStore backed by this store
func (s *MemoryStore) FriendRequests() FriendRequestStore {
	return &memoryRequests{s: s}
}

type memoryRequests struct {
	s *MemoryStore
}

func (m *memoryRequests) Create(ctx context.Context, req *models.FriendRequest) error {
	return m.s.createRequest(req)
}

func (m *memoryRequests) GetByID(ctx context.Context, id string) (*models.FriendRequest, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()

	r, ok := m.s.requests[id]
	if !ok {
		return nil, apperr.New(apperr.KindNotFound, "friend request not found")
	}
	return cloneRequest(r), nil
}

func (m *memoryRequests) Find(ctx context.Context, filter RequestFilter) ([]*models.FriendRequest, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()

	requests := []*models.FriendRequest{}
	for _, r := range m.s.requests {
		if filter.Participant != "" && !r.Involves(filter.Participant) {
			continue
		}
		if filter.SenderID != "" && r.SenderID != filter.SenderID {
			continue
		}
		if filter.RecipientID != "" && r.RecipientID != filter.RecipientID {
			continue
		}
		if filter.Status != "" && r.Status != filter.Status {
			continue
		}
		requests = append(requests, cloneRequest(r))
	}

	sort.Slice(requests, func(i, j int) bool {
		if !requests[i].CreatedAt.Equal(requests[j].CreatedAt) {
			return requests[i].CreatedAt.After(requests[j].CreatedAt)
		}
		return requests[i].ID < requests[j].ID
	})
	return requests, nil
}

func (m *memoryRequests) ExistsBetween(ctx context.Context, userA, userB string) (bool, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()

	_, exists := m.s.pairs[pairKey(userA, userB)]
	return exists, nil
}

func (m *memoryRequests) UpdateStatus(ctx context.Context, id string, from, to models.RequestStatus) (*models.FriendRequest, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	return m.transitionLocked(id, from, to)
}

func (m *memoryRequests) transitionLocked(id string, from, to models.RequestStatus) (*models.FriendRequest, error) {
	r, ok := m.s.requests[id]
	if !ok {
		return nil, apperr.New(apperr.KindNotFound, "friend request not found")
	}
	if r.Status != from {
		return nil, apperr.Newf(apperr.KindConflict, "friend request is already %s", r.Status)
	}
	r.Status = to
	r.UpdatedAt = time.Now()
	return cloneRequest(r), nil
}

func (m *memoryRequests) Accept(ctx context.Context, id string) (*models.FriendRequest, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	r, ok := m.s.requests[id]
	if !ok {
		return nil, apperr.New(apperr.KindNotFound, "friend request not found")
	}
	// Check both users before mutating anything so a failure leaves no partial state
	if _, ok := m.s.users[r.SenderID]; !ok {
		return nil, apperr.New(apperr.KindNotFound, "user not found")
	}
	if _, ok := m.s.users[r.RecipientID]; !ok {
		return nil, apperr.New(apperr.KindNotFound, "user not found")
	}

	accepted, err := m.transitionLocked(id, models.StatusPending, models.StatusAccepted)
	if err != nil {
		return nil, err
	}
	if err := m.s.addFriendLocked(r.SenderID, r.RecipientID); err != nil {
		return nil, err
	}
	if err := m.s.addFriendLocked(r.RecipientID, r.SenderID); err != nil {
		return nil, err
	}
	return accepted, nil
}
