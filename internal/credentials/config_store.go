package credentials

import (
	"context"
	"fmt"
	"sync"

	"inboxhook/internal/config"
	"inboxhook/internal/constants"
	"inboxhook/internal/logger"
	"inboxhook/pkg/metrics"
)

type platformEntry struct {
	creds       Credentials
	verifyToken string
	appSecret   string
}

// ConfigStore serves credentials and verify tokens from the platforms section
// of the configuration. Put and Delete only affect the running process; the
// next config reload replaces everything.
type ConfigStore struct {
	mu      sync.RWMutex
	entries map[string]platformEntry
	logger  logger.Logger
}

func NewConfigStore(platforms config.PlatformsConfig, log logger.Logger) *ConfigStore {
	s := &ConfigStore{logger: log}
	s.Reload(platforms)
	return s
}

// Reload swaps in the platforms section of a freshly decoded config.
func (s *ConfigStore) Reload(platforms config.PlatformsConfig) {
	entries := map[string]platformEntry{
		constants.PlatformFacebook:  entryFromConfig(platforms.Facebook),
		constants.PlatformInstagram: entryFromConfig(platforms.Instagram),
	}

	s.mu.Lock()
	s.entries = entries
	s.mu.Unlock()
}

func entryFromConfig(p config.PlatformConfig) platformEntry {
	return platformEntry{
		creds: Credentials{
			AccessToken: p.AccessToken,
			AccountID:   p.AccountID,
			DisplayName: p.DisplayName,
			ExpiresAt:   p.ExpiresAt,
		},
		verifyToken: p.VerifyToken,
		appSecret:   p.AppSecret,
	}
}

// Watch keeps the store in sync with the config file behind loader.
func (s *ConfigStore) Watch(loader *config.Loader) {
	loader.Watch(func(file string, cfg *config.Config, err error) {
		if err != nil {
			metrics.VerifyTokenReloadsTotal.WithLabelValues("error").Inc()
			s.logger.Errorw("Config reload rejected, keeping previous platform settings",
				"file", file,
				"error", err,
			)
			return
		}

		s.Reload(cfg.Platforms)
		metrics.VerifyTokenReloadsTotal.WithLabelValues("success").Inc()
		s.logger.Infow("Platform settings reloaded", "file", file)
	})
}

func (s *ConfigStore) Get(ctx context.Context, platform string) (Credentials, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[platform]
	if !ok || !entry.creds.Connected() {
		return Credentials{}, false, nil
	}
	return entry.creds, true, nil
}

func (s *ConfigStore) Put(ctx context.Context, platform string, creds Credentials) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[platform]
	if !ok {
		return fmt.Errorf("unknown platform %q", platform)
	}
	entry.creds = creds
	s.entries[platform] = entry
	return nil
}

func (s *ConfigStore) Delete(ctx context.Context, platform string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry, ok := s.entries[platform]; ok {
		entry.creds = Credentials{}
		s.entries[platform] = entry
	}
	return nil
}

func (s *ConfigStore) VerifyToken(ctx context.Context, platform string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.entries[platform].verifyToken, nil
}

// AppSecret returns the secret used to sign webhook deliveries, empty when
// signature checks are off for platform.
func (s *ConfigStore) AppSecret(ctx context.Context, platform string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.entries[platform].appSecret, nil
}
