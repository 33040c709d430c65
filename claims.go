package authd

import (
	"github.com/golang-jwt/jwt/v5"
)

// UserIdentity is the provider profile embedded verbatim (unencrypted)
// in both session tokens.
type UserIdentity struct {
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	Picture  string `json:"picture,omitempty"`
	ReposURL string `json:"repos_url,omitempty"`
}

// ProviderCredentials is the raw OAuth token response handed back by a
// provider after the code exchange. It is serialized and sealed inside
// session tokens and never stored server-side in plaintext.
type ProviderCredentials struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type,omitempty"`
	ExpiresIn    int64  `json:"expires_in,omitempty"`
	Scope        string `json:"scope,omitempty"`
}

// accessTokenField is the plaintext shortcut key inside a ProviderClaim.
const accessTokenField = "access_token"

// ProviderClaim is the "provider" object of a session token: one key
// holding the base64 encrypted credential blob under the provider's
// name, plus a plaintext "access_token" shortcut so downstream handlers
// can call the provider API without a decrypt step. The shortcut
// duplicates live credential material into the merely-signed JWT body;
// that tradeoff is inherited, not accidental.
type ProviderClaim map[string]string

// NewProviderClaim builds the claim for one provider login.
func NewProviderClaim(providerName, encodedCredentials, accessToken string) ProviderClaim {
	return ProviderClaim{
		providerName:     encodedCredentials,
		accessTokenField: accessToken,
	}
}

// AccessToken returns the plaintext provider access token shortcut.
func (p ProviderClaim) AccessToken() string {
	return p[accessTokenField]
}

// Encoded returns the provider name and its base64 encrypted credential
// blob. ok is false when the claim carries no provider entry.
func (p ProviderClaim) Encoded() (name, encoded string, ok bool) {
	for k, v := range p {
		if k != accessTokenField {
			return k, v, true
		}
	}
	return "", "", false
}

// SessionClaims is the signed payload shared by access and refresh
// tokens. The kind of a token is determined solely by which secret
// verifies it.
type SessionClaims struct {
	Provider ProviderClaim `json:"provider"`
	User     UserIdentity  `json:"user"`
	jwt.RegisteredClaims
}
