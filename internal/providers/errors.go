package providers

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownProvider means the requested provider name matches no
	// adapter. A client error, not a server one.
	ErrUnknownProvider = errors.New("unknown provider")

	// ErrProviderMisconfigured means the adapter is missing its client
	// id or secret. A deployment problem, surfaced as a server error.
	ErrProviderMisconfigured = errors.New("provider is misconfigured")
)

// ExchangeError wraps any failure between receiving an authorization
// code and assembling the user profile: the provider rejecting the
// code, a network failure or timeout, a token response without an
// access token, or a user-profile fetch going wrong. The code is
// single-use, so none of these are retryable; the client restarts the
// login flow.
type ExchangeError struct {
	Provider Name
	Reason   string
	Err      error
}

func (e *ExchangeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Provider, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Reason)
}

func (e *ExchangeError) Unwrap() error { return e.Err }
