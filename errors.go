package authd

import "errors"

var (
	// ErrTokenExpired is returned when a session token's signature checks
	// out but its expiration has passed. Handlers map this to 401 so the
	// client knows to run the refresh flow.
	ErrTokenExpired = errors.New("session token expired")

	// ErrInvalidToken covers every other verification failure: bad
	// signature, wrong signing secret for the token kind, malformed
	// payload, undecryptable provider blob.
	ErrInvalidToken = errors.New("session token invalid")
)
