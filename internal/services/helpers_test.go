package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"linkup-backend/internal/models"
	"linkup-backend/internal/repository"

	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// recordingNotifier captures every event handed to it
type recordingNotifier struct {
	mu     sync.Mutex
	events []Event
}

func (n *recordingNotifier) Notify(_ context.Context, event Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
}

func (n *recordingNotifier) Events() []Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Event(nil), n.events...)
}

// stubTransport counts deliveries and returns err
type stubTransport struct {
	name string
	err  error

	mu       sync.Mutex
	calls    int
	channels []string
	events   []Event
	ctxErr   error
}

func (t *stubTransport) Name() string { return t.name }

func (t *stubTransport) Deliver(ctx context.Context, channel string, event Event) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.calls++
	t.channels = append(t.channels, channel)
	t.events = append(t.events, event)
	t.ctxErr = ctx.Err()
	return t.err
}

func (t *stubTransport) Calls() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.calls
}

var errTransportDown = errors.New("transport down")

type fixture struct {
	store    *repository.MemoryStore
	requests repository.FriendRequestStore
	notifier *recordingNotifier
	friends  *FriendRequestService
	dir      *DirectoryService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := repository.NewMemoryStore()
	requests := store.FriendRequests()
	notifier := &recordingNotifier{}
	return &fixture{
		store:    store,
		requests: requests,
		notifier: notifier,
		friends:  NewFriendRequestService(requests, store, notifier),
		dir:      NewDirectoryService(store, requests),
	}
}

// addUser creates an onboarded user; users are ordered by the order they are added
func (f *fixture) addUser(t *testing.T, id, name string) *models.User {
	t.Helper()
	return f.addUserWith(t, &models.User{ID: id, FullName: name, IsOnboarded: true})
}

func (f *fixture) addUserWith(t *testing.T, user *models.User) *models.User {
	t.Helper()
	n := len(f.mustFind(t, repository.UserFilter{}))
	user.CreatedAt = baseTime.Add(time.Duration(n) * time.Minute)
	user.UpdatedAt = user.CreatedAt
	if user.Friends == nil {
		user.Friends = []string{}
	}
	require.NoError(t, f.store.Create(context.Background(), user))
	return user
}

func (f *fixture) mustFind(t *testing.T, filter repository.UserFilter) []*models.User {
	t.Helper()
	users, err := f.store.Find(context.Background(), filter)
	require.NoError(t, err)
	return users
}

func (f *fixture) user(t *testing.T, id string) *models.User {
	t.Helper()
	u, err := f.store.GetByID(context.Background(), id)
	require.NoError(t, err)
	return u
}

func userIDs(users []*models.User) []string {
	ids := make([]string, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}
	return ids
}
