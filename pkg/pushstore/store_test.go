package pushstore_test

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/pushkit/pkg/pushstore"
	"github.com/dmitrymomot/pushkit/pkg/webpush"
)

// testStore checks the webpush.Store contract. IDs are random so the suite
// can run against a shared database.
func testStore(t *testing.T, store webpush.Store) {
	t.Helper()
	ctx := context.Background()

	alice := "alice-" + uuid.NewString()
	bob := "bob-" + uuid.NewString()
	ep := func(name string) string { return "https://push.example/" + name + "/" + uuid.NewString() }
	sub := func(user, endpoint, p256dh string) webpush.Subscription {
		return webpush.Subscription{
			UserID:   user,
			Endpoint: endpoint,
			Keys:     webpush.Keys{P256dh: p256dh, Auth: "auth-" + p256dh},
		}
	}

	a1, a2, b1 := ep("a1"), ep("a2"), ep("b1")
	require.NoError(t, store.Save(ctx, sub(alice, a1, "k1")))
	require.NoError(t, store.Save(ctx, sub(alice, a2, "k2")))
	require.NoError(t, store.Save(ctx, sub(bob, b1, "k3")))

	t.Run("list for user", func(t *testing.T) {
		subs, err := store.ListFor(ctx, alice)
		require.NoError(t, err)
		require.Len(t, subs, 2)
		endpoints := []string{subs[0].Endpoint, subs[1].Endpoint}
		assert.ElementsMatch(t, []string{a1, a2}, endpoints)
		for _, s := range subs {
			assert.Equal(t, alice, s.UserID)
			assert.False(t, s.CreatedAt.IsZero())
		}
	})

	t.Run("list for unknown user", func(t *testing.T) {
		subs, err := store.ListFor(ctx, "nobody-"+uuid.NewString())
		require.NoError(t, err)
		assert.Empty(t, subs)
	})

	t.Run("list all", func(t *testing.T) {
		subs, err := store.ListAll(ctx)
		require.NoError(t, err)
		var endpoints []string
		for _, s := range subs {
			endpoints = append(endpoints, s.Endpoint)
		}
		assert.Subset(t, endpoints, []string{a1, a2, b1})
	})

	t.Run("save upserts", func(t *testing.T) {
		before, err := store.ListFor(ctx, alice)
		require.NoError(t, err)
		var created time.Time
		for _, s := range before {
			if s.Endpoint == a1 {
				created = s.CreatedAt
			}
		}

		time.Sleep(10 * time.Millisecond)
		require.NoError(t, store.Save(ctx, sub(alice, a1, "rotated")))

		after, err := store.ListFor(ctx, alice)
		require.NoError(t, err)
		require.Len(t, after, 2)
		for _, s := range after {
			if s.Endpoint == a1 {
				assert.Equal(t, "rotated", s.Keys.P256dh)
				assert.Equal(t, "auth-rotated", s.Keys.Auth)
				assert.True(t, s.CreatedAt.Equal(created), "created_at must survive an update")
				assert.True(t, s.UpdatedAt.After(created))
			}
		}
	})

	t.Run("delete is idempotent and scoped", func(t *testing.T) {
		require.NoError(t, store.Delete(ctx, a2))
		require.NoError(t, store.Delete(ctx, a2))
		require.NoError(t, store.Delete(ctx, ep("never-saved")))

		subs, err := store.ListFor(ctx, alice)
		require.NoError(t, err)
		require.Len(t, subs, 1)
		assert.Equal(t, a1, subs[0].Endpoint)

		subs, err = store.ListFor(ctx, bob)
		require.NoError(t, err)
		assert.Len(t, subs, 1)
	})

	t.Run("deleting the last subscription empties the user", func(t *testing.T) {
		require.NoError(t, store.Delete(ctx, b1))
		subs, err := store.ListFor(ctx, bob)
		require.NoError(t, err)
		assert.Empty(t, subs)

		all, err := store.ListAll(ctx)
		require.NoError(t, err)
		for _, s := range all {
			assert.NotEqual(t, bob, s.UserID)
		}
	})

	t.Cleanup(func() {
		_ = store.Delete(context.Background(), a1)
	})
}

func TestMemoryStoreContract(t *testing.T) {
	t.Parallel()
	testStore(t, webpush.NewMemoryStore())
}

func TestPostgresStore(t *testing.T) {
	connURL := os.Getenv("PG_CONN_URL")
	if connURL == "" {
		t.Skip("PG_CONN_URL not set")
	}

	ctx := context.Background()
	cfg := pushstore.PostgresConfig{
		ConnectionString: connURL,
		RetryAttempts:    1,
		MigrationsTable:  "pushkit_migrations",
	}

	pool, err := pushstore.ConnectPostgres(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, pushstore.Migrate(ctx, pool, cfg, slog.New(slog.DiscardHandler)))
	// Applying twice is a no-op.
	require.NoError(t, pushstore.Migrate(ctx, pool, cfg, slog.New(slog.DiscardHandler)))
	require.NoError(t, pushstore.PostgresHealthcheck(pool)(ctx))

	testStore(t, pushstore.NewPostgres(pool))
}

func TestRedisStore(t *testing.T) {
	connURL := os.Getenv("REDIS_URL")
	if connURL == "" {
		t.Skip("REDIS_URL not set")
	}

	ctx := context.Background()
	client, err := pushstore.ConnectRedis(ctx, pushstore.RedisConfig{
		ConnectionURL:  connURL,
		RetryAttempts:  1,
		ConnectTimeout: 5 * time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	require.NoError(t, pushstore.RedisHealthcheck(client)(ctx))

	prefix := "pushkit-test:" + uuid.NewString() + ":"
	testStore(t, pushstore.NewRedis(client, pushstore.WithKeyPrefix(prefix)))
}

func TestConnectRejectsBadURLs(t *testing.T) {
	t.Parallel()

	_, err := pushstore.ConnectPostgres(context.Background(), pushstore.PostgresConfig{
		ConnectionString: "postgres://%zz",
	})
	assert.ErrorIs(t, err, pushstore.ErrFailedToParseDBConfig)

	_, err = pushstore.ConnectRedis(context.Background(), pushstore.RedisConfig{
		ConnectionURL: "http://localhost:6379",
	})
	assert.ErrorIs(t, err, pushstore.ErrFailedToParseRedisConnString)
}
