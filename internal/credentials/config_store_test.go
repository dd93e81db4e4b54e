package credentials

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inboxhook/internal/config"
	"inboxhook/internal/logger"
)

func testPlatforms() config.PlatformsConfig {
	return config.PlatformsConfig{
		Facebook: config.PlatformConfig{
			VerifyToken: "fb-token",
			AccessToken: "fb-access",
			AccountID:   "PAGE1",
			DisplayName: "Acme Page",
		},
		Instagram: config.PlatformConfig{
			VerifyToken: "ig-token",
		},
	}
}

func TestConfigStore_VerifyToken(t *testing.T) {
	s := NewConfigStore(testPlatforms(), logger.NopLogger())
	ctx := context.Background()

	tests := []struct {
		platform string
		want     string
	}{
		{"facebook", "fb-token"},
		{"instagram", "ig-token"},
		{"tiktok", ""},
	}

	for _, tt := range tests {
		t.Run(tt.platform, func(t *testing.T) {
			got, err := s.VerifyToken(ctx, tt.platform)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConfigStore_Credentials(t *testing.T) {
	s := NewConfigStore(testPlatforms(), logger.NopLogger())
	ctx := context.Background()

	creds, ok, err := s.Get(ctx, "facebook")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "PAGE1", creds.AccountID)
	assert.Equal(t, "Acme Page", creds.DisplayName)

	_, ok, err = s.Get(ctx, "instagram")
	require.NoError(t, err)
	assert.False(t, ok, "no access token means not connected")

	require.NoError(t, s.Put(ctx, "instagram", Credentials{AccessToken: "ig-access", AccountID: "IG1"}))
	creds, ok, err = s.Get(ctx, "instagram")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "IG1", creds.AccountID)

	require.NoError(t, s.Delete(ctx, "facebook"))
	_, ok, err = s.Get(ctx, "facebook")
	require.NoError(t, err)
	assert.False(t, ok)

	token, err := s.VerifyToken(ctx, "facebook")
	require.NoError(t, err)
	assert.Equal(t, "fb-token", token, "disconnect keeps the verify token")

	assert.Error(t, s.Put(ctx, "tiktok", Credentials{AccessToken: "x"}))
}

func TestConfigStore_Reload(t *testing.T) {
	s := NewConfigStore(testPlatforms(), logger.NopLogger())

	updated := testPlatforms()
	updated.Facebook.VerifyToken = "rotated"
	s.Reload(updated)

	token, err := s.VerifyToken(context.Background(), "facebook")
	require.NoError(t, err)
	assert.Equal(t, "rotated", token)
}

func TestConfigStore_WatchPicksUpFileChanges(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "config.yaml")
	write := func(token string) {
		content := "platforms:\n  facebook:\n    verify_token: " + token + "\n"
		require.NoError(t, os.WriteFile(file, []byte(content), 0o600))
	}
	write("before")

	loader := config.NewLoader(file)
	cfg, err := loader.Load()
	require.NoError(t, err)

	s := NewConfigStore(cfg.Platforms, logger.NopLogger())
	s.Watch(loader)

	write("after")

	assert.Eventually(t, func() bool {
		token, _ := s.VerifyToken(context.Background(), "facebook")
		return token == "after"
	}, 5*time.Second, 50*time.Millisecond)
}

func TestCredentials_Expired(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_000)

	assert.False(t, Credentials{}.Expired(now))
	assert.False(t, Credentials{ExpiresAt: now.UnixMilli() + 1}.Expired(now))
	assert.True(t, Credentials{ExpiresAt: now.UnixMilli()}.Expired(now))
}

func TestNew(t *testing.T) {
	cfg := &config.Config{Platforms: testPlatforms()}

	p, cs, err := New(cfg, nil, logger.NopLogger())
	require.NoError(t, err)
	assert.Same(t, cs, p)

	cfg.Credentials.Backend = "redis"
	_, _, err = New(cfg, nil, logger.NopLogger())
	assert.Error(t, err)

	cfg.Credentials.Backend = "vault"
	_, _, err = New(cfg, nil, logger.NopLogger())
	assert.Error(t, err)
}

func TestConfigStore_AppSecret(t *testing.T) {
	platforms := testPlatforms()
	platforms.Instagram.AppSecret = "ig-secret"
	s := NewConfigStore(platforms, logger.NopLogger())

	secret, err := s.AppSecret(context.Background(), "instagram")
	require.NoError(t, err)
	assert.Equal(t, "ig-secret", secret)

	secret, err = s.AppSecret(context.Background(), "facebook")
	require.NoError(t, err)
	assert.Empty(t, secret)
}
