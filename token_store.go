package authd

import (
	"context"
	"io"
	"time"
)

// RefreshTokenStore tracks refresh tokens issued by this process.
//
// The store is advisory: token verification goes through TokenService
// signature checks only, so a token removed here keeps minting access
// tokens until its embedded expiration. Logout records the removal for
// bookkeeping and any future audit trail; making the store
// authoritative is a deliberate open decision, not an oversight.
type RefreshTokenStore interface {
	io.Closer

	// Add records an issued refresh token until expiresAt.
	Add(ctx context.Context, token string, expiresAt time.Time) error

	// Remove forgets a token. Removing an absent token is a no-op.
	Remove(ctx context.Context, token string) error

	// Contains reports whether a token is currently tracked.
	Contains(ctx context.Context, token string) (bool, error)
}
