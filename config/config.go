package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds the full server configuration. Tags use mapstructure for
// Viper unmarshalling; every field binds to the environment variable of
// the same name.
type Config struct {
	HTTPPort  string `mapstructure:"HTTP_PORT"`
	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogPretty bool   `mapstructure:"LOG_PRETTY"`

	OtelServiceName string `mapstructure:"OTEL_SERVICE_NAME"`

	// EncryptionKeys is a JSON array of {id, value, isPrimary}.
	EncryptionKeys       string `mapstructure:"ENCRYPTION_KEYS"`
	JWTSigningKey        string `mapstructure:"JWT_SIGNING_KEY"`
	JWTRefreshSigningKey string `mapstructure:"JWT_REFRESH_SIGNING_KEY"`

	AccessTokenTTLHours  int `mapstructure:"ACCESS_TOKEN_TTL_HOURS"`
	RefreshTokenTTLHours int `mapstructure:"REFRESH_TOKEN_TTL_HOURS"`

	// ProviderCallTimeoutSec bounds each code-exchange plus profile
	// fetch against a provider.
	ProviderCallTimeoutSec int `mapstructure:"PROVIDER_CALL_TIMEOUT_SEC"`

	// RedisAddr switches the refresh-token store to Redis when set;
	// empty keeps the in-memory store.
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`

	// OAuthReturnRoute is the SPA route the oauth-return hop redirects
	// to with the provider code.
	OAuthReturnRoute string `mapstructure:"OAUTH_RETURN_ROUTE"`

	GithubClientID       string `mapstructure:"GITHUB_CLIENT_ID"`
	GithubClientSecret   string `mapstructure:"GITHUB_CLIENT_SECRET"`
	GithubScope          string `mapstructure:"GITHUB_SCOPE"`
	GithubEnterpriseHost string `mapstructure:"GITHUB_ENTERPRISE_HOST"`

	GitlabClientID       string `mapstructure:"GITLAB_CLIENT_ID"`
	GitlabClientSecret   string `mapstructure:"GITLAB_CLIENT_SECRET"`
	GitlabScope          string `mapstructure:"GITLAB_SCOPE"`
	GitlabRedirectURI    string `mapstructure:"GITLAB_REDIRECT_URI"`
	GitlabEnterpriseHost string `mapstructure:"GITLAB_ENTERPRISE_HOST"`

	BitbucketClientID     string `mapstructure:"BITBUCKET_CLIENT_ID"`
	BitbucketClientSecret string `mapstructure:"BITBUCKET_CLIENT_SECRET"`
	BitbucketScope        string `mapstructure:"BITBUCKET_SCOPE"`

	GoogleClientID     string `mapstructure:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `mapstructure:"GOOGLE_CLIENT_SECRET"`
	GoogleScope        string `mapstructure:"GOOGLE_SCOPE"`
	GoogleRedirectURI  string `mapstructure:"GOOGLE_REDIRECT_URI"`
}

// Load reads configuration from an optional YAML file, the environment,
// and defaults, in that order of increasing precedence for env vars.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/authd/")
	v.AddConfigPath(".")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Viper only unmarshals keys it knows about; bind every field so
	// env-only values without defaults are picked up too.
	for _, key := range []string{
		"ENCRYPTION_KEYS", "JWT_SIGNING_KEY", "JWT_REFRESH_SIGNING_KEY",
		"REDIS_ADDR", "REDIS_PASSWORD",
		"GITHUB_CLIENT_ID", "GITHUB_CLIENT_SECRET", "GITHUB_SCOPE", "GITHUB_ENTERPRISE_HOST",
		"GITLAB_CLIENT_ID", "GITLAB_CLIENT_SECRET", "GITLAB_SCOPE", "GITLAB_REDIRECT_URI", "GITLAB_ENTERPRISE_HOST",
		"BITBUCKET_CLIENT_ID", "BITBUCKET_CLIENT_SECRET", "BITBUCKET_SCOPE",
		"GOOGLE_CLIENT_ID", "GOOGLE_CLIENT_SECRET", "GOOGLE_SCOPE", "GOOGLE_REDIRECT_URI",
	} {
		_ = v.BindEnv(key)
	}

	v.SetDefault("HTTP_PORT", "3000")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_PRETTY", false)
	v.SetDefault("OTEL_SERVICE_NAME", "authd")
	v.SetDefault("ACCESS_TOKEN_TTL_HOURS", 24)
	v.SetDefault("REFRESH_TOKEN_TTL_HOURS", 168)
	v.SetDefault("PROVIDER_CALL_TIMEOUT_SEC", 15)
	v.SetDefault("OAUTH_RETURN_ROUTE", "/#/oauth-return")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// No file is fine; env vars and defaults carry the config.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	return &cfg, nil
}

// SplitScopes turns a space-separated scope value into a slice,
// returning nil for an empty value so adapters apply their defaults.
func SplitScopes(scope string) []string {
	if strings.TrimSpace(scope) == "" {
		return nil
	}
	return strings.Fields(scope)
}
