package credentials

import (
	"fmt"

	"github.com/redis/go-redis/v9"

	"inboxhook/internal/config"
	"inboxhook/internal/constants"
	"inboxhook/internal/logger"
)

// Provider bundles the two read paths the webhook and outbound layers need.
type Provider interface {
	Store
	VerifyTokenRegistry
}

// New returns the configured provider. The config-backed store is always
// built: it is the provider for the config backend and the verify-token
// fallback for redis.
func New(cfg *config.Config, client *redis.Client, log logger.Logger) (Provider, *ConfigStore, error) {
	cs := NewConfigStore(cfg.Platforms, log)

	switch cfg.Credentials.Backend {
	case constants.CredentialsBackendConfig, "":
		return cs, cs, nil
	case constants.CredentialsBackendRedis:
		if client == nil {
			return nil, nil, fmt.Errorf("credentials backend %q requires a redis client", cfg.Credentials.Backend)
		}
		return NewRedisStore(client, cs), cs, nil
	}
	return nil, nil, fmt.Errorf("unknown credentials backend %q", cfg.Credentials.Backend)
}
