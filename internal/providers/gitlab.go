package providers

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/oauth2"
	gitlabOAuth2 "golang.org/x/oauth2/gitlab"

	authd "github.com/threat-dragon/authd"
)

var (
	GitLabEndpoint     = gitlabOAuth2.Endpoint
	GitLabUserEndpoint = "https://gitlab.com/api/v4/user"
)

// GitLabProvider implements Provider for gitlab.com and self-hosted
// GitLab. GitLab requires the redirect URI on the authorize request.
type GitLabProvider struct {
	settings Settings
	timeout  time.Duration
}

func NewGitLabProvider(settings Settings, timeout time.Duration) *GitLabProvider {
	if len(settings.Scopes) == 0 {
		settings.Scopes = []string{"api"}
	}
	return &GitLabProvider{settings: settings, timeout: timeout}
}

func (p *GitLabProvider) Name() Name { return GitLab }

func (p *GitLabProvider) IsConfigured() bool { return p.settings.ClientID != "" }

func (p *GitLabProvider) oauthConfig() *oauth2.Config {
	endpoint := GitLabEndpoint
	if p.settings.Host != "" {
		endpoint = oauth2.Endpoint{
			AuthURL:  fmt.Sprintf("https://%s/oauth/authorize", p.settings.Host),
			TokenURL: fmt.Sprintf("https://%s/oauth/token", p.settings.Host),
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

func (p *GitLabProvider) userEndpoint() string {
	if p.settings.Host != "" {
		return fmt.Sprintf("https://%s/api/v4/user", p.settings.Host)
	}
	return GitLabUserEndpoint
}

func (p *GitLabProvider) AuthCodeURL() string {
	return p.oauthConfig().AuthCodeURL("")
}

func (p *GitLabProvider) CompleteLogin(ctx context.Context, code string) (authd.UserIdentity, authd.ProviderCredentials, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	conf := p.oauthConfig()
	tok, err := exchangeCode(ctx, GitLab, conf, code)
	if err != nil {
		return authd.UserIdentity{}, authd.ProviderCredentials{}, err
	}

	var profile struct {
		Username  string `json:"username"`
		Email     string `json:"email"`
		AvatarURL string `json:"avatar_url"`
		WebURL    string `json:"web_url"`
	}
	if err := fetchJSON(ctx, GitLab, conf, tok, p.userEndpoint(), &profile); err != nil {
		return authd.UserIdentity{}, authd.ProviderCredentials{}, err
	}

	user := authd.UserIdentity{
		Username: profile.Username,
		Email:    profile.Email,
		Picture:  profile.AvatarURL,
		ReposURL: profile.WebURL,
	}
	return user, credentials(tok), nil
}

var _ Provider = (*GitLabProvider)(nil)
