package services

import (
	"context"
	"fmt"
	"testing"

	"linkup-backend/internal/apperr"
	"linkup-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecommend_ExcludesSelfFriendsAndRequestCounterparts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addUser(t, "me", "Me")
	f.addUser(t, "friend", "Friend")
	f.addUser(t, "outgoing", "Outgoing")
	f.addUser(t, "incoming", "Incoming")
	f.addUser(t, "rejected", "Rejected")
	f.addUserWith(t, &models.User{ID: "fresh", FullName: "Not Onboarded"})
	f.addUser(t, "stranger", "Stranger")

	req, err := f.friends.Send(ctx, "me", "friend")
	require.NoError(t, err)
	_, err = f.friends.Accept(ctx, "friend", req.ID)
	require.NoError(t, err)
	_, err = f.friends.Send(ctx, "me", "outgoing")
	require.NoError(t, err)
	_, err = f.friends.Send(ctx, "incoming", "me")
	require.NoError(t, err)
	rej, err := f.friends.Send(ctx, "rejected", "me")
	require.NoError(t, err)
	_, err = f.friends.Reject(ctx, "me", rej.ID)
	require.NoError(t, err)

	users, err := f.dir.Recommend(ctx, "me")
	require.NoError(t, err)
	assert.Equal(t, []string{"stranger"}, userIDs(users))

	excluded, err := f.dir.ExcludedSet(ctx, "me")
	require.NoError(t, err)
	for _, id := range []string{"me", "friend", "outgoing", "incoming", "rejected"} {
		assert.Contains(t, excluded, id)
	}
	assert.NotContains(t, excluded, "stranger")
}

func TestRecommend_UnknownUser(t *testing.T) {
	f := newFixture(t)
	_, err := f.dir.Recommend(context.Background(), "ghost")
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestSearch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addUser(t, "me", "Maria Me")
	f.addUser(t, "ana", "Ana Maria")
	f.addUser(t, "mario", "MARIO Rossi")
	f.addUser(t, "bob", "Bob")
	f.addUser(t, "pending", "Marian Pending")
	_, err := f.friends.Send(ctx, "me", "pending")
	require.NoError(t, err)

	t.Run("case insensitive substring", func(t *testing.T) {
		users, err := f.dir.Search(ctx, "me", "  mar ")
		require.NoError(t, err)
		assert.Equal(t, []string{"ana", "mario"}, userIDs(users))
	})

	t.Run("no match", func(t *testing.T) {
		users, err := f.dir.Search(ctx, "me", "zz")
		require.NoError(t, err)
		assert.Empty(t, users)
	})

	t.Run("query too short", func(t *testing.T) {
		for _, q := range []string{"", "m", "  m  ", " "} {
			_, err := f.dir.Search(ctx, "me", q)
			assert.Equal(t, apperr.KindInvalidArgument, apperr.KindOf(err), "query %q", q)
		}
	})

	t.Run("regex metacharacters are literal", func(t *testing.T) {
		users, err := f.dir.Search(ctx, "me", ".*")
		require.NoError(t, err)
		assert.Empty(t, users)
	})
}

func TestSearch_LimitsResults(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addUser(t, "me", "Me")
	for i := 0; i < 15; i++ {
		f.addUser(t, fmt.Sprintf("u%02d", i), fmt.Sprintf("Learner %d", i))
	}

	users, err := f.dir.Search(ctx, "me", "learner")
	require.NoError(t, err)
	assert.Len(t, users, searchResultLimit)
	assert.Equal(t, "u00", users[0].ID)
}

func TestListFriends(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addUser(t, "me", "Me")
	f.addUser(t, "a", "A")
	f.addUser(t, "b", "B")

	friends, err := f.dir.ListFriends(ctx, "me")
	require.NoError(t, err)
	assert.Empty(t, friends)

	for _, id := range []string{"b", "a"} {
		req, err := f.friends.Send(ctx, id, "me")
		require.NoError(t, err)
		_, err = f.friends.Accept(ctx, "me", req.ID)
		require.NoError(t, err)
	}

	friends, err = f.dir.ListFriends(ctx, "me")
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, userIDs(friends))
}
