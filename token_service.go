package authd

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/threat-dragon/authd/internal/crypto"
	"github.com/threat-dragon/authd/internal/metrics"
)

const (
	// DefaultAccessTokenTTL bounds one API session.
	DefaultAccessTokenTTL = 24 * time.Hour
	// DefaultRefreshTokenTTL bounds the whole login. Refreshing never
	// extends it: only access tokens are reissued.
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour
)

// TokenPair is the result of a completed login.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// TokenService issues and verifies session tokens. Access and refresh
// tokens share a payload shape but are signed with independent secrets,
// so compromising one secret does not forge the other kind.
type TokenService struct {
	keyring       *crypto.Keyring
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	issuer        string
	now           func() time.Time
}

// TokenServiceOption customizes a TokenService.
type TokenServiceOption func(*TokenService)

// WithTokenTTLs overrides the default access/refresh expirations.
func WithTokenTTLs(access, refresh time.Duration) TokenServiceOption {
	return func(s *TokenService) {
		if access > 0 {
			s.accessTTL = access
		}
		if refresh > 0 {
			s.refreshTTL = refresh
		}
	}
}

// WithClock injects the time source used for issuance and validation.
func WithClock(now func() time.Time) TokenServiceOption {
	return func(s *TokenService) { s.now = now }
}

// NewTokenService creates a TokenService. The two signing secrets must
// differ; reusing one secret would collapse the access/refresh split.
func NewTokenService(keyring *crypto.Keyring, accessSecret, refreshSecret string, opts ...TokenServiceOption) (*TokenService, error) {
	if accessSecret == "" || refreshSecret == "" {
		return nil, errors.New("both JWT signing secrets must be configured")
	}
	if accessSecret == refreshSecret {
		return nil, errors.New("access and refresh signing secrets must differ")
	}
	s := &TokenService{
		keyring:       keyring,
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     DefaultAccessTokenTTL,
		refreshTTL:    DefaultRefreshTokenTTL,
		issuer:        "threat-dragon",
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// CreateTokens seals the provider credentials, embeds them with the
// user identity, and signs the pair. Nothing is persisted here.
func (s *TokenService) CreateTokens(providerName string, creds ProviderCredentials, user UserIdentity) (TokenPair, error) {
	raw, err := json.Marshal(creds)
	if err != nil {
		return TokenPair{}, fmt.Errorf("serializing provider credentials: %w", err)
	}

	payload, err := s.keyring.Encrypt(string(raw))
	if err != nil {
		return TokenPair{}, err
	}
	blob, err := json.Marshal(payload)
	if err != nil {
		return TokenPair{}, fmt.Errorf("serializing encrypted payload: %w", err)
	}
	encoded := base64.StdEncoding.EncodeToString(blob)

	provider := NewProviderClaim(providerName, encoded, creds.AccessToken)

	access, err := s.sign(provider, user, s.accessSecret, s.accessTTL)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := s.sign(provider, user, s.refreshSecret, s.refreshTTL)
	if err != nil {
		return TokenPair{}, err
	}

	metrics.TokensCreatedTotal.Inc()
	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// ReissueAccessToken mints a fresh access token from verified refresh
// claims. The refresh token itself is never rotated, which caps the
// session at the original refresh expiration.
func (s *TokenService) ReissueAccessToken(claims *SessionClaims) (string, error) {
	access, err := s.sign(claims.Provider, claims.User, s.accessSecret, s.accessTTL)
	if err != nil {
		return "", err
	}
	metrics.TokensRefreshedTotal.Inc()
	return access, nil
}

// VerifyAccessToken checks signature and expiry against the access secret.
func (s *TokenService) VerifyAccessToken(token string) (*SessionClaims, error) {
	return s.verify(token, s.accessSecret)
}

// VerifyRefreshToken checks signature and expiry against the refresh secret.
func (s *TokenService) VerifyRefreshToken(token string) (*SessionClaims, error) {
	return s.verify(token, s.refreshSecret)
}

// RefreshExpiry reports when a just-issued refresh token will expire.
// Stores use it to drop bookkeeping entries at the right moment.
func (s *TokenService) RefreshExpiry() time.Time {
	return s.now().Add(s.refreshTTL)
}

// DecodeProvider unwraps an encoded provider field back to the original
// credentials: base64 decode, parse the sealed payload, decrypt, parse.
// Ordinary requests use the plaintext access_token shortcut instead.
func (s *TokenService) DecodeProvider(encoded string) (ProviderCredentials, error) {
	blob, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return ProviderCredentials{}, fmt.Errorf("%w: provider field is not base64", ErrInvalidToken)
	}

	var payload crypto.EncryptedPayload
	if err := json.Unmarshal(blob, &payload); err != nil {
		return ProviderCredentials{}, fmt.Errorf("%w: provider field is not a sealed payload", ErrInvalidToken)
	}

	plain, err := s.keyring.Decrypt(&payload)
	if err != nil {
		log.Warn().Err(err).Str("key_id", payload.KeyID).Msg("provider blob decryption failed")
		return ProviderCredentials{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	var creds ProviderCredentials
	if err := json.Unmarshal([]byte(plain), &creds); err != nil {
		return ProviderCredentials{}, fmt.Errorf("%w: decrypted credentials malformed", ErrInvalidToken)
	}
	return creds, nil
}

func (s *TokenService) sign(provider ProviderClaim, user UserIdentity, secret []byte, ttl time.Duration) (string, error) {
	now := s.now()
	claims := SessionClaims{
		Provider: provider,
		User:     user,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   user.Username,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("signing session token: %w", err)
	}
	return signed, nil
}

func (s *TokenService) verify(token string, secret []byte) (*SessionClaims, error) {
	claims := &SessionClaims{}
	_, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithIssuer(s.issuer),
	)
	if err != nil {
		metrics.TokenVerifyFailureTotal.Inc()
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %v", ErrTokenExpired, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return claims, nil
}
