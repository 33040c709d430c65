package providers

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/oauth2"
	githubOAuth2 "golang.org/x/oauth2/github"

	authd "github.com/threat-dragon/authd"
)

// Endpoints are package variables so tests can point them at a stub
// server. Enterprise host overrides take precedence over both.
var (
	GitHubEndpoint     = githubOAuth2.Endpoint
	GitHubUserEndpoint = "https://api.github.com/user"
)

// GitHubProvider implements Provider for github.com and GitHub
// Enterprise installations.
type GitHubProvider struct {
	settings Settings
	timeout  time.Duration
}

func NewGitHubProvider(settings Settings, timeout time.Duration) *GitHubProvider {
	if len(settings.Scopes) == 0 {
		settings.Scopes = []string{"repo"}
	}
	return &GitHubProvider{settings: settings, timeout: timeout}
}

func (p *GitHubProvider) Name() Name { return GitHub }

func (p *GitHubProvider) IsConfigured() bool { return p.settings.ClientID != "" }

func (p *GitHubProvider) oauthConfig() *oauth2.Config {
	endpoint := GitHubEndpoint
	if p.settings.Host != "" {
		endpoint = oauth2.Endpoint{
			AuthURL:  fmt.Sprintf("https://%s/login/oauth/authorize", p.settings.Host),
			TokenURL: fmt.Sprintf("https://%s/login/oauth/access_token", p.settings.Host),
		}
	}
	return &oauth2.Config{
		ClientID:     p.settings.ClientID,
		ClientSecret: p.settings.ClientSecret,
		RedirectURL:  p.settings.RedirectURL,
		Scopes:       p.settings.Scopes,
		Endpoint:     endpoint,
	}
}

func (p *GitHubProvider) userEndpoint() string {
	if p.settings.Host != "" {
		// Enterprise API lives under /api/v3 on the instance host.
		return fmt.Sprintf("https://%s/api/v3/user", p.settings.Host)
	}
	return GitHubUserEndpoint
}

func (p *GitHubProvider) AuthCodeURL() string {
	return p.oauthConfig().AuthCodeURL("")
}

func (p *GitHubProvider) CompleteLogin(ctx context.Context, code string) (authd.UserIdentity, authd.ProviderCredentials, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	conf := p.oauthConfig()
	tok, err := exchangeCode(ctx, GitHub, conf, code)
	if err != nil {
		return authd.UserIdentity{}, authd.ProviderCredentials{}, err
	}

	var profile struct {
		Login     string `json:"login"`
		Email     string `json:"email"`
		AvatarURL string `json:"avatar_url"`
		ReposURL  string `json:"repos_url"`
	}
	if err := fetchJSON(ctx, GitHub, conf, tok, p.userEndpoint(), &profile); err != nil {
		return authd.UserIdentity{}, authd.ProviderCredentials{}, err
	}

	user := authd.UserIdentity{
		Username: profile.Login,
		Email:    profile.Email,
		Picture:  profile.AvatarURL,
		ReposURL: profile.ReposURL,
	}
	return user, credentials(tok), nil
}

var _ Provider = (*GitHubProvider)(nil)
