package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	authd "github.com/threat-dragon/authd"
	ginapi "github.com/threat-dragon/authd/api/gin"
	"github.com/threat-dragon/authd/cache"
	redisstore "github.com/threat-dragon/authd/cache/redis"
	"github.com/threat-dragon/authd/config"
	"github.com/threat-dragon/authd/internal/crypto"
	"github.com/threat-dragon/authd/internal/metrics"
	"github.com/threat-dragon/authd/internal/providers"
	"github.com/threat-dragon/authd/tracing"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the authentication HTTP server",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return serve(cmd.Context())
	},
}

func serve(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	tp, err := tracing.InitTracerProvider(cfg.OtelServiceName)
	if err != nil {
		return err
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			log.Warn().Err(err).Msg("tracer provider shutdown")
		}
	}()

	keys, err := crypto.ParseKeys(cfg.EncryptionKeys)
	if err != nil {
		return err
	}
	keyring, err := crypto.NewKeyring(keys)
	if err != nil {
		return err
	}

	tokens, err := authd.NewTokenService(keyring, cfg.JWTSigningKey, cfg.JWTRefreshSigningKey,
		authd.WithTokenTTLs(
			time.Duration(cfg.AccessTokenTTLHours)*time.Hour,
			time.Duration(cfg.RefreshTokenTTLHours)*time.Hour,
		))
	if err != nil {
		return err
	}

	store := newRefreshStore(cfg)
	defer func() {
		if err := store.Close(); err != nil {
			log.Warn().Err(err).Msg("refresh token store close")
		}
	}()

	registry := providers.NewRegistry(providers.RegistryConfig{
		GitHub: providers.Settings{
			ClientID:     cfg.GithubClientID,
			ClientSecret: cfg.GithubClientSecret,
			Scopes:       config.SplitScopes(cfg.GithubScope),
			Host:         cfg.GithubEnterpriseHost,
		},
		GitLab: providers.Settings{
			ClientID:     cfg.GitlabClientID,
			ClientSecret: cfg.GitlabClientSecret,
			Scopes:       config.SplitScopes(cfg.GitlabScope),
			RedirectURL:  cfg.GitlabRedirectURI,
			Host:         cfg.GitlabEnterpriseHost,
		},
		Bitbucket: providers.Settings{
			ClientID:     cfg.BitbucketClientID,
			ClientSecret: cfg.BitbucketClientSecret,
			Scopes:       config.SplitScopes(cfg.BitbucketScope),
		},
		Google: providers.Settings{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			Scopes:       config.SplitScopes(cfg.GoogleScope),
			RedirectURL:  cfg.GoogleRedirectURI,
		},
		CallTimeout: time.Duration(cfg.ProviderCallTimeoutSec) * time.Second,
	})

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	metrics.Register(reg)

	engine := gin.New()
	engine.Use(gin.Recovery())
	ginapi.NewAuthAPI(registry, tokens, store, cfg.OAuthReturnRoute).RegisterRoutes(engine)
	engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Strs("providers", registry.Configured()).Msg("authd listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
	case <-ctx.Done():
		log.Info().Msg("context canceled, shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// newRefreshStore picks Redis when configured, in-memory otherwise.
func newRefreshStore(cfg *config.Config) authd.RefreshTokenStore {
	if cfg.RedisAddr == "" {
		return cache.NewMemoryRefreshTokenStore()
	}
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	log.Info().Str("addr", cfg.RedisAddr).Msg("using redis refresh token store")
	return redisstore.NewRefreshTokenStore(client, "authd")
}
