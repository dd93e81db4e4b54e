package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"inboxhook/internal/constants"
	pkgerrors "inboxhook/pkg/errors"
)

// RedisStore keeps credentials as JSON under inbox:credentials:<platform> and
// verify tokens as plain strings under inbox:verify_token:<platform>. When a
// platform has no token in Redis the fallback registry is consulted.
type RedisStore struct {
	client   *redis.Client
	fallback VerifyTokenRegistry
}

func NewRedisStore(client *redis.Client, fallback VerifyTokenRegistry) *RedisStore {
	return &RedisStore{client: client, fallback: fallback}
}

func credentialsKey(platform string) string {
	return constants.CacheKeyPrefixCredentials + platform
}

func verifyTokenKey(platform string) string {
	return constants.CacheKeyPrefixVerifyToken + platform
}

func (s *RedisStore) Get(ctx context.Context, platform string) (Credentials, bool, error) {
	raw, err := s.client.Get(ctx, credentialsKey(platform)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Credentials{}, false, nil
	}
	if err != nil {
		return Credentials{}, false, pkgerrors.ErrStoreUnavailable.WithCause(err).
			WithDetail("operation", "get_credentials")
	}

	var creds Credentials
	if err := json.Unmarshal(raw, &creds); err != nil {
		return Credentials{}, false, fmt.Errorf("failed to decode credentials for %s: %w", platform, err)
	}
	return creds, creds.Connected(), nil
}

func (s *RedisStore) Put(ctx context.Context, platform string, creds Credentials) error {
	raw, err := json.Marshal(creds)
	if err != nil {
		return fmt.Errorf("failed to encode credentials: %w", err)
	}
	if err := s.client.Set(ctx, credentialsKey(platform), raw, 0).Err(); err != nil {
		return pkgerrors.ErrStoreUnavailable.WithCause(err).WithDetail("operation", "put_credentials")
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, platform string) error {
	if err := s.client.Del(ctx, credentialsKey(platform)).Err(); err != nil {
		return pkgerrors.ErrStoreUnavailable.WithCause(err).WithDetail("operation", "delete_credentials")
	}
	return nil
}

func (s *RedisStore) VerifyToken(ctx context.Context, platform string) (string, error) {
	token, err := s.client.Get(ctx, verifyTokenKey(platform)).Result()
	switch {
	case errors.Is(err, redis.Nil) || (err == nil && token == ""):
		if s.fallback == nil {
			return "", nil
		}
		return s.fallback.VerifyToken(ctx, platform)
	case err != nil:
		return "", pkgerrors.ErrStoreUnavailable.WithCause(err).WithDetail("operation", "get_verify_token")
	}
	return token, nil
}

// SetVerifyToken registers token for platform; an empty token removes it.
func (s *RedisStore) SetVerifyToken(ctx context.Context, platform, token string) error {
	var err error
	if token == "" {
		err = s.client.Del(ctx, verifyTokenKey(platform)).Err()
	} else {
		err = s.client.Set(ctx, verifyTokenKey(platform), token, 0).Err()
	}
	if err != nil {
		return pkgerrors.ErrStoreUnavailable.WithCause(err).WithDetail("operation", "set_verify_token")
	}
	return nil
}
