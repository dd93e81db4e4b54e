package credentials

import (
	"context"
	"time"
)

// Credentials is what the service holds for one connected platform account.
// Records are replaced or removed as a whole, never patched.
type Credentials struct {
	AccessToken string `json:"accessToken"`
	AccountID   string `json:"accountId"`
	DisplayName string `json:"displayName,omitempty"`
	// ExpiresAt is epoch milliseconds, zero when unknown.
	ExpiresAt int64 `json:"expiresAt,omitempty"`
}

// Connected reports whether the record can be used for API calls.
func (c Credentials) Connected() bool {
	return c.AccessToken != ""
}

func (c Credentials) Expired(now time.Time) bool {
	return c.ExpiresAt > 0 && now.UnixMilli() >= c.ExpiresAt
}

type Store interface {
	// Get returns ok=false when nothing is stored for platform.
	Get(ctx context.Context, platform string) (Credentials, bool, error)
	Put(ctx context.Context, platform string, creds Credentials) error
	Delete(ctx context.Context, platform string) error
}

// VerifyTokenRegistry resolves the shared secret used by the webhook
// handshake. An empty token means none is registered.
type VerifyTokenRegistry interface {
	VerifyToken(ctx context.Context, platform string) (string, error)
}
