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

func TestBitbucketCompleteLogin(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/site/oauth2/access_token":
			_, _ = w.Write([]byte(`{"access_token":"bb-tok","token_type":"bearer","scopes":"account repository"}`))
		case "/2.0/user":
			_, _ = w.Write([]byte(`{
				"username": "dana",
				"links": {
					"avatar": {"href": "https://bitbucket.example/avatar.png"},
					"repositories": {"href": "https://api.bitbucket.example/2.0/repositories/dana"}
				}
			}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(server.Close)

	originalEndpoint := providers.BitbucketEndpoint
	originalUser := providers.BitbucketUserEndpoint
	providers.BitbucketEndpoint = oauth2.Endpoint{
		AuthURL:  server.URL + "/site/oauth2/authorize",
		TokenURL: server.URL + "/site/oauth2/access_token",
	}
	providers.BitbucketUserEndpoint = server.URL + "/2.0/user"
	t.Cleanup(func() {
		providers.BitbucketEndpoint = originalEndpoint
		providers.BitbucketUserEndpoint = originalUser
	})

	p := providers.NewBitbucketProvider(providers.Settings{
		ClientID:     "bb-id",
		ClientSecret: "bb-secret",
	}, 5*time.Second)

	user, creds, err := p.CompleteLogin(context.Background(), "code-3")
	require.NoError(t, err)

	assert.Equal(t, "dana", user.Username)
	assert.Equal(t, "https://bitbucket.example/avatar.png", user.Picture)
	assert.Equal(t, "https://api.bitbucket.example/2.0/repositories/dana", user.ReposURL)
	assert.Equal(t, "bb-tok", creds.AccessToken)
}
