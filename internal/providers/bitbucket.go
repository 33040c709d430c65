package providers

import (
	"context"
	"time"

	"golang.org/x/oauth2"
	bitbucketOAuth2 "golang.org/x/oauth2/bitbucket"

	authd "github.com/threat-dragon/authd"
)

var (
	BitbucketEndpoint     = bitbucketOAuth2.Endpoint
	BitbucketUserEndpoint = "https://api.bitbucket.org/2.0/user"
)

// BitbucketProvider implements Provider for bitbucket.org.
type BitbucketProvider struct {
	settings Settings
	timeout  time.Duration
}

func NewBitbucketProvider(settings Settings, timeout time.Duration) *BitbucketProvider {
	if len(settings.Scopes) == 0 {
		settings.Scopes = []string{"account", "repository"}
	}
	return &BitbucketProvider{settings: settings, timeout: timeout}
}

func (p *BitbucketProvider) Name() Name { return Bitbucket }

func (p *BitbucketProvider) IsConfigured() bool { return p.settings.ClientID != "" }

func (p *BitbucketProvider) oauthConfig() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     p.settings.ClientID,
		ClientSecret: p.settings.ClientSecret,
		RedirectURL:  p.settings.RedirectURL,
		Scopes:       p.settings.Scopes,
		Endpoint:     BitbucketEndpoint,
	}
}

func (p *BitbucketProvider) AuthCodeURL() string {
	return p.oauthConfig().AuthCodeURL("")
}

func (p *BitbucketProvider) CompleteLogin(ctx context.Context, code string) (authd.UserIdentity, authd.ProviderCredentials, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	conf := p.oauthConfig()
	tok, err := exchangeCode(ctx, Bitbucket, conf, code)
	if err != nil {
		return authd.UserIdentity{}, authd.ProviderCredentials{}, err
	}

	var profile struct {
		Username string `json:"username"`
		Links    struct {
			Avatar struct {
				Href string `json:"href"`
			} `json:"avatar"`
			Repositories struct {
				Href string `json:"href"`
			} `json:"repositories"`
		} `json:"links"`
	}
	if err := fetchJSON(ctx, Bitbucket, conf, tok, BitbucketUserEndpoint, &profile); err != nil {
		return authd.UserIdentity{}, authd.ProviderCredentials{}, err
	}

	user := authd.UserIdentity{
		Username: profile.Username,
		Picture:  profile.Links.Avatar.Href,
		ReposURL: profile.Links.Repositories.Href,
	}
	return user, credentials(tok), nil
}

var _ Provider = (*BitbucketProvider)(nil)
