//go:build integration

package credentials

import (
	"context"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	redismodule "github.com/testcontainers/testcontainers-go/modules/redis"

	"inboxhook/internal/logger"
)

func TestRedisStore(t *testing.T) {
	ctx := context.Background()

	container, err := redismodule.Run(ctx, "redis:7.4-alpine")
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	uri, err := container.ConnectionString(ctx)
	require.NoError(t, err)
	opt, err := redis.ParseURL(uri)
	require.NoError(t, err)
	client := redis.NewClient(opt)
	t.Cleanup(func() { _ = client.Close() })

	s := NewRedisStore(client, NewConfigStore(testPlatforms(), logger.NopLogger()))

	t.Run("credentials lifecycle", func(t *testing.T) {
		_, ok, err := s.Get(ctx, "instagram")
		require.NoError(t, err)
		assert.False(t, ok)

		want := Credentials{AccessToken: "tok", AccountID: "IG1", DisplayName: "Acme", ExpiresAt: 42}
		require.NoError(t, s.Put(ctx, "instagram", want))

		got, ok, err := s.Get(ctx, "instagram")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, want, got)

		require.NoError(t, s.Delete(ctx, "instagram"))
		_, ok, err = s.Get(ctx, "instagram")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("verify token falls back to config", func(t *testing.T) {
		token, err := s.VerifyToken(ctx, "facebook")
		require.NoError(t, err)
		assert.Equal(t, "fb-token", token)

		require.NoError(t, s.SetVerifyToken(ctx, "facebook", "from-redis"))
		token, err = s.VerifyToken(ctx, "facebook")
		require.NoError(t, err)
		assert.Equal(t, "from-redis", token)

		require.NoError(t, s.SetVerifyToken(ctx, "facebook", ""))
		token, err = s.VerifyToken(ctx, "facebook")
		require.NoError(t, err)
		assert.Equal(t, "fb-token", token)
	})
}
