package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"

	authd "github.com/threat-dragon/authd"
)

// Name identifies a supported git-hosting provider.
type Name string

const (
	GitHub    Name = "github"
	GitLab    Name = "gitlab"
	Bitbucket Name = "bitbucket"
	Google    Name = "google"
)

// DefaultCallTimeout bounds the code-exchange plus user-profile round
// trip so a hung provider cannot pin a login request forever.
const DefaultCallTimeout = 15 * time.Second

// Provider is one OAuth adapter. Adapters are stateless beyond their
// configuration.
type Provider interface {
	// Name returns the adapter's provider name.
	Name() Name

	// IsConfigured reports whether a client id is present. It informs
	// the config-exposure endpoint only; login itself is not gated.
	IsConfigured() bool

	// AuthCodeURL builds the provider's authorize URL from
	// configuration alone. No network call.
	AuthCodeURL() string

	// CompleteLogin exchanges an authorization code for provider
	// tokens and fetches the user profile.
	CompleteLogin(ctx context.Context, code string) (authd.UserIdentity, authd.ProviderCredentials, error)
}

// Settings is the per-provider OAuth client configuration.
type Settings struct {
	ClientID     string
	ClientSecret string
	Scopes       []string
	RedirectURL  string
	// Host overrides the provider's public hostname for enterprise
	// installations (GitHub Enterprise, self-hosted GitLab).
	Host string
}

// RegistryConfig configures the fixed adapter set.
type RegistryConfig struct {
	GitHub      Settings
	GitLab      Settings
	Bitbucket   Settings
	Google      Settings
	CallTimeout time.Duration
}

// Registry holds the fixed set of provider adapters. Dispatch is an
// exhaustive switch over the known names rather than a string-keyed
// map, so adding a provider forces every call site to be revisited.
type Registry struct {
	github    *GitHubProvider
	gitlab    *GitLabProvider
	bitbucket *BitbucketProvider
	google    *GoogleProvider
}

// NewRegistry builds all adapters from configuration.
func NewRegistry(cfg RegistryConfig) *Registry {
	timeout := cfg.CallTimeout
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}
	return &Registry{
		github:    NewGitHubProvider(cfg.GitHub, timeout),
		gitlab:    NewGitLabProvider(cfg.GitLab, timeout),
		bitbucket: NewBitbucketProvider(cfg.Bitbucket, timeout),
		google:    NewGoogleProvider(cfg.Google, timeout),
	}
}

// Get selects an adapter by name, lower-casing the request-path value
// first. Unknown names fail with ErrUnknownProvider.
func (r *Registry) Get(name string) (Provider, error) {
	switch Name(strings.ToLower(name)) {
	case GitHub:
		return r.github, nil
	case GitLab:
		return r.gitlab, nil
	case Bitbucket:
		return r.bitbucket, nil
	case Google:
		return r.google, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, name)
	}
}

// Configured lists the names of providers with a client id present,
// for the config-exposure endpoint.
func (r *Registry) Configured() []string {
	names := make([]string, 0, 4)
	for _, p := range []Provider{r.github, r.gitlab, r.bitbucket, r.google} {
		if p.IsConfigured() {
			names = append(names, string(p.Name()))
		}
	}
	return names
}

// exchangeCode trades the authorization code for provider tokens and
// rejects token responses that omit an access token.
func exchangeCode(ctx context.Context, name Name, conf *oauth2.Config, code string) (*oauth2.Token, error) {
	tok, err := conf.Exchange(ctx, code)
	if err != nil {
		return nil, &ExchangeError{Provider: name, Reason: "code exchange rejected", Err: err}
	}
	if tok.AccessToken == "" {
		return nil, &ExchangeError{Provider: name, Reason: "token response missing access token"}
	}
	return tok, nil
}

// credentials flattens an oauth2 token into the wire credential shape.
func credentials(tok *oauth2.Token) authd.ProviderCredentials {
	creds := authd.ProviderCredentials{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.Type(),
	}
	if !tok.Expiry.IsZero() {
		creds.ExpiresIn = int64(time.Until(tok.Expiry).Round(time.Second).Seconds())
	}
	if scope, ok := tok.Extra("scope").(string); ok {
		creds.Scope = scope
	}
	return creds
}

// fetchJSON GETs a provider API endpoint with the token-sourced client
// and decodes the JSON body. Non-200 responses are propagated with a
// bounded excerpt of the body.
func fetchJSON(ctx context.Context, name Name, conf *oauth2.Config, tok *oauth2.Token, url string, out any) error {
	resp, err := conf.Client(ctx, tok).Get(url)
	if err != nil {
		return &ExchangeError{Provider: name, Reason: "user profile request failed", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &ExchangeError{
			Provider: name,
			Reason:   fmt.Sprintf("user profile endpoint returned %d: %s", resp.StatusCode, excerpt),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return &ExchangeError{Provider: name, Reason: "reading user profile response", Err: err}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &ExchangeError{Provider: name, Reason: "unmarshalling user profile", Err: err}
	}
	return nil
}
