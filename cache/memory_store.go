package cache

import (
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"

	authd "github.com/threat-dragon/authd"
)

// MemoryRefreshTokenStore tracks refresh tokens in process memory,
// keyed by token hash and evicted automatically at each token's own
// expiration. State is lost on restart; issued tokens stay
// cryptographically valid regardless.
type MemoryRefreshTokenStore struct {
	cache *ttlcache.Cache[string, struct{}]
}

// NewMemoryRefreshTokenStore creates the store and starts its
// background eviction loop.
func NewMemoryRefreshTokenStore() *MemoryRefreshTokenStore {
	c := ttlcache.New(
		ttlcache.WithTTL[string, struct{}](authd.DefaultRefreshTokenTTL),
		ttlcache.WithDisableTouchOnHit[string, struct{}](),
	)
	go c.Start()

	return &MemoryRefreshTokenStore{cache: c}
}

// Add implements authd.RefreshTokenStore.
func (s *MemoryRefreshTokenStore) Add(_ context.Context, token string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	s.cache.Set(authd.HashToken(token), struct{}{}, ttl)
	return nil
}

// Remove implements authd.RefreshTokenStore. Absent tokens are a no-op.
func (s *MemoryRefreshTokenStore) Remove(_ context.Context, token string) error {
	s.cache.Delete(authd.HashToken(token))
	return nil
}

// Contains implements authd.RefreshTokenStore.
func (s *MemoryRefreshTokenStore) Contains(_ context.Context, token string) (bool, error) {
	return s.cache.Has(authd.HashToken(token)), nil
}

// Count returns the number of tracked tokens.
func (s *MemoryRefreshTokenStore) Count() int {
	return s.cache.Len()
}

// Close stops the eviction loop.
func (s *MemoryRefreshTokenStore) Close() error {
	s.cache.Stop()
	return nil
}

var _ authd.RefreshTokenStore = (*MemoryRefreshTokenStore)(nil)
