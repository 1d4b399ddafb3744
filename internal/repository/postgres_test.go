package repository

import (
	"context"
	"testing"
	"time"

	"linkup-backend/internal/apperr"
	"linkup-backend/internal/models"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// newTestPool starts a PostgreSQL container, applies migrations and returns a pool.
func newTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping PostgreSQL container test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("linkup_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "Failed to start PostgreSQL container")
	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	require.NoError(t, Migrate(dsn))

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

func TestPostgres_FriendRequestLifecycle(t *testing.T) {
	pool := newTestPool(t)
	ctx := context.Background()
	users := NewUserRepository(pool)
	requests := NewFriendRequestRepository(pool)

	base := time.Now().UTC().Truncate(time.Millisecond)
	for i, u := range []*models.User{
		{ID: "a", FullName: "Alice 100%_real", IsOnboarded: true},
		{ID: "b", FullName: "Bob", IsOnboarded: true},
		{ID: "c", FullName: "Carol", IsOnboarded: false},
	} {
		u.CreatedAt = base.Add(time.Duration(i) * time.Second)
		u.UpdatedAt = u.CreatedAt
		require.NoError(t, users.Create(ctx, u))
	}

	t.Run("search escapes wildcards", func(t *testing.T) {
		found, err := users.Find(ctx, UserFilter{OnboardedOnly: true, NameContains: "0%_R"})
		require.NoError(t, err)
		assert.Equal(t, []string{"a"}, ids(found))

		found, err = users.Find(ctx, UserFilter{NameContains: "_"})
		require.NoError(t, err)
		assert.Equal(t, []string{"a"}, ids(found))
	})

	t.Run("find excludes ids and keeps order", func(t *testing.T) {
		found, err := users.Find(ctx, UserFilter{ExcludeIDs: []string{"a"}})
		require.NoError(t, err)
		assert.Equal(t, []string{"b", "c"}, ids(found))
	})

	t.Run("pair uniqueness", func(t *testing.T) {
		require.NoError(t, requests.Create(ctx, newRequest("r1", "a", "b")))
		err := requests.Create(ctx, newRequest("r2", "b", "a"))
		assert.ErrorIs(t, err, apperr.ErrConflict)

		err = requests.Create(ctx, newRequest("r3", "a", "ghost"))
		assert.ErrorIs(t, err, apperr.ErrNotFound)

		exists, err := requests.ExistsBetween(ctx, "b", "a")
		require.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("accept befriends both", func(t *testing.T) {
		accepted, err := requests.Accept(ctx, "r1")
		require.NoError(t, err)
		assert.Equal(t, models.StatusAccepted, accepted.Status)

		a, err := users.GetByID(ctx, "a")
		require.NoError(t, err)
		b, err := users.GetByID(ctx, "b")
		require.NoError(t, err)
		assert.Equal(t, []string{"b"}, a.Friends)
		assert.Equal(t, []string{"a"}, b.Friends)

		_, err = requests.Accept(ctx, "r1")
		assert.ErrorIs(t, err, apperr.ErrConflict)
		_, err = requests.UpdateStatus(ctx, "r1", models.StatusPending, models.StatusRejected)
		assert.ErrorIs(t, err, apperr.ErrConflict)
	})

	t.Run("add friend idempotent", func(t *testing.T) {
		require.NoError(t, users.AddFriend(ctx, "a", "b"))
		a, err := users.GetByID(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, []string{"b"}, a.Friends)

		assert.ErrorIs(t, users.AddFriend(ctx, "ghost", "a"), apperr.ErrNotFound)
	})

	t.Run("not found", func(t *testing.T) {
		_, err := requests.GetByID(ctx, "missing")
		assert.ErrorIs(t, err, apperr.ErrNotFound)
		_, err = users.GetByID(ctx, "missing")
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})

	t.Run("profile and push token", func(t *testing.T) {
		updated, err := users.UpdateProfile(ctx, "c", models.Profile{
			FullName:         "Carol Ready",
			NativeLanguage:   "english",
			LearningLanguage: "spanish",
		})
		require.NoError(t, err)
		assert.True(t, updated.IsOnboarded)

		token := "device-token"
		require.NoError(t, users.UpdatePushToken(ctx, "c", &token))
		got, err := users.GetByIDs(ctx, []string{"c", "a"})
		require.NoError(t, err)
		require.Len(t, got, 2)
		require.NotNil(t, got[0].PushToken)
		assert.Equal(t, "device-token", *got[0].PushToken)
		assert.Equal(t, "a", got[1].ID)
	})
}
