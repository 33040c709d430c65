package providers_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/threat-dragon/authd/internal/providers"
)

// stubGitHub points the GitHub adapter's endpoints at a local server
// and restores them on cleanup.
func stubGitHub(t *testing.T, handler http.Handler) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	originalEndpoint := providers.GitHubEndpoint
	originalUser := providers.GitHubUserEndpoint
	providers.GitHubEndpoint = oauth2.Endpoint{
		AuthURL:  server.URL + "/login/oauth/authorize",
		TokenURL: server.URL + "/login/oauth/access_token",
	}
	providers.GitHubUserEndpoint = server.URL + "/user"
	t.Cleanup(func() {
		providers.GitHubEndpoint = originalEndpoint
		providers.GitHubUserEndpoint = originalUser
	})
	return server
}

func githubSettings() providers.Settings {
	return providers.Settings{ClientID: "gh-id", ClientSecret: "gh-secret"}
}

func TestGitHubCompleteLogin(t *testing.T) {
	stubGitHub(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/login/oauth/access_token":
			require.NoError(t, r.ParseForm())
			assert.Equal(t, "abc123", r.FormValue("code"))
			_, _ = w.Write([]byte(`{"access_token":"ghtok","token_type":"bearer","scope":"repo"}`))
		case "/user":
			assert.Equal(t, "Bearer ghtok", r.Header.Get("Authorization"))
			_, _ = w.Write([]byte(`{
				"login": "alice",
				"email": "alice@example.com",
				"avatar_url": "https://github.example/avatar.png",
				"repos_url": "https://api.github.example/users/alice/repos"
			}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))

	p := providers.NewGitHubProvider(githubSettings(), 5*time.Second)

	user, creds, err := p.CompleteLogin(context.Background(), "abc123")
	require.NoError(t, err)

	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.Equal(t, "https://github.example/avatar.png", user.Picture)
	assert.Equal(t, "https://api.github.example/users/alice/repos", user.ReposURL)

	assert.Equal(t, "ghtok", creds.AccessToken)
	assert.Equal(t, "Bearer", creds.TokenType)
	assert.Equal(t, "repo", creds.Scope)
}

func TestGitHubExchangeRejected(t *testing.T) {
	stubGitHub(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"bad_verification_code"}`))
	}))

	p := providers.NewGitHubProvider(githubSettings(), 5*time.Second)

	_, _, err := p.CompleteLogin(context.Background(), "already-used")
	var exchErr *providers.ExchangeError
	require.ErrorAs(t, err, &exchErr)
	assert.Equal(t, providers.GitHub, exchErr.Provider)
}

func TestGitHubExchangeMissingAccessToken(t *testing.T) {
	stubGitHub(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"token_type":"bearer","scope":"repo"}`))
	}))

	p := providers.NewGitHubProvider(githubSettings(), 5*time.Second)

	_, _, err := p.CompleteLogin(context.Background(), "abc123")
	var exchErr *providers.ExchangeError
	require.ErrorAs(t, err, &exchErr)
	assert.Contains(t, exchErr.Reason, "missing access token")
}

func TestGitHubProfileEndpointError(t *testing.T) {
	stubGitHub(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/login/oauth/access_token" {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"access_token":"ghtok","token_type":"bearer"}`))
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))

	p := providers.NewGitHubProvider(githubSettings(), 5*time.Second)

	_, _, err := p.CompleteLogin(context.Background(), "abc123")
	var exchErr *providers.ExchangeError
	require.ErrorAs(t, err, &exchErr)
	assert.Contains(t, exchErr.Reason, "500")
}

func TestGitHubAuthCodeURL(t *testing.T) {
	p := providers.NewGitHubProvider(githubSettings(), 5*time.Second)

	url := p.AuthCodeURL()
	assert.Contains(t, url, "client_id=gh-id")
	assert.Contains(t, url, "scope=repo")
	assert.Contains(t, url, "github.com/login/oauth/authorize")
}

func TestGitHubEnterpriseHost(t *testing.T) {
	settings := githubSettings()
	settings.Host = "github.corp.example"
	p := providers.NewGitHubProvider(settings, 5*time.Second)

	url := p.AuthCodeURL()
	assert.Contains(t, url, "https://github.corp.example/login/oauth/authorize")
}

func TestGitHubIsConfigured(t *testing.T) {
	assert.True(t, providers.NewGitHubProvider(githubSettings(), time.Second).IsConfigured())
	assert.False(t, providers.NewGitHubProvider(providers.Settings{}, time.Second).IsConfigured())
}
