package providers

import (
	"context"
	"time"

	"golang.org/x/oauth2"
	googleOAuth2 "golang.org/x/oauth2/google"

	authd "github.com/threat-dragon/authd"
)

var (
	GoogleEndpoint         = googleOAuth2.Endpoint
	GoogleUserInfoEndpoint = "https://www.googleapis.com/oauth2/v2/userinfo"
)

// GoogleProvider implements Provider for Google accounts. The drive.file
// scope is included so downstream handlers can store threat models in
// the user's Drive.
type GoogleProvider struct {
	settings Settings
	timeout  time.Duration
}

func NewGoogleProvider(settings Settings, timeout time.Duration) *GoogleProvider {
	if len(settings.Scopes) == 0 {
		settings.Scopes = []string{
			"openid",
			"email",
			"profile",
			"https://www.googleapis.com/auth/drive.file",
		}
	}
	return &GoogleProvider{settings: settings, timeout: timeout}
}

func (p *GoogleProvider) Name() Name { return Google }

func (p *GoogleProvider) IsConfigured() bool { return p.settings.ClientID != "" }

func (p *GoogleProvider) oauthConfig() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     p.settings.ClientID,
		ClientSecret: p.settings.ClientSecret,
		RedirectURL:  p.settings.RedirectURL,
		Scopes:       p.settings.Scopes,
		Endpoint:     GoogleEndpoint,
	}
}

func (p *GoogleProvider) AuthCodeURL() string {
	return p.oauthConfig().AuthCodeURL("", oauth2.AccessTypeOffline)
}

func (p *GoogleProvider) CompleteLogin(ctx context.Context, code string) (authd.UserIdentity, authd.ProviderCredentials, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	conf := p.oauthConfig()
	tok, err := exchangeCode(ctx, Google, conf, code)
	if err != nil {
		return authd.UserIdentity{}, authd.ProviderCredentials{}, err
	}

	var profile struct {
		Name    string `json:"name"`
		Email   string `json:"email"`
		Picture string `json:"picture"`
	}
	if err := fetchJSON(ctx, Google, conf, tok, GoogleUserInfoEndpoint, &profile); err != nil {
		return authd.UserIdentity{}, authd.ProviderCredentials{}, err
	}

	username := profile.Name
	if username == "" {
		username = profile.Email
	}
	user := authd.UserIdentity{
		Username: username,
		Email:    profile.Email,
		Picture:  profile.Picture,
	}
	return user, credentials(tok), nil
}

var _ Provider = (*GoogleProvider)(nil)
