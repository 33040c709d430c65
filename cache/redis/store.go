package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	authd "github.com/threat-dragon/authd"
)

// RefreshTokenStore tracks refresh tokens in Redis so bookkeeping
// survives process restarts and can be shared between replicas. Entries
// expire with the token itself.
type RefreshTokenStore struct {
	client *redis.Client
	prefix string
}

// NewRefreshTokenStore creates a Redis-backed store. prefix namespaces
// the keys; "authd" is used when empty.
func NewRefreshTokenStore(client *redis.Client, prefix string) *RefreshTokenStore {
	if prefix == "" {
		prefix = "authd"
	}
	return &RefreshTokenStore{client: client, prefix: prefix}
}

func (s *RefreshTokenStore) key(token string) string {
	return fmt.Sprintf("%s:refresh:%s", s.prefix, authd.HashToken(token))
}

// Add implements authd.RefreshTokenStore.
func (s *RefreshTokenStore) Add(ctx context.Context, token string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	if err := s.client.Set(ctx, s.key(token), 1, ttl).Err(); err != nil {
		return fmt.Errorf("storing refresh token: %w", err)
	}
	return nil
}

// Remove implements authd.RefreshTokenStore. Absent tokens are a no-op.
func (s *RefreshTokenStore) Remove(ctx context.Context, token string) error {
	if err := s.client.Del(ctx, s.key(token)).Err(); err != nil {
		return fmt.Errorf("removing refresh token: %w", err)
	}
	return nil
}

// Contains implements authd.RefreshTokenStore.
func (s *RefreshTokenStore) Contains(ctx context.Context, token string) (bool, error) {
	n, err := s.client.Exists(ctx, s.key(token)).Result()
	if err != nil {
		return false, fmt.Errorf("checking refresh token: %w", err)
	}
	return n > 0, nil
}

// Close closes the underlying Redis client.
func (s *RefreshTokenStore) Close() error {
	return s.client.Close()
}

var _ authd.RefreshTokenStore = (*RefreshTokenStore)(nil)
