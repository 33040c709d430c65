//nolint:tagliatelle
package gin

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	authd "github.com/threat-dragon/authd"
	"github.com/threat-dragon/authd/internal/metrics"
	"github.com/threat-dragon/authd/internal/providers"
)

// defaultOAuthReturnRoute is the SPA route the oauth-return hop
// redirects the browser to, carrying the provider code.
const defaultOAuthReturnRoute = "/#/oauth-return"

// AuthAPI holds the auth endpoint dependencies.
type AuthAPI struct {
	registry    *providers.Registry
	tokens      *authd.TokenService
	store       authd.RefreshTokenStore
	returnRoute string
}

// NewAuthAPI initializes the auth API surface.
func NewAuthAPI(registry *providers.Registry, tokens *authd.TokenService, store authd.RefreshTokenStore, returnRoute string) *AuthAPI {
	if returnRoute == "" {
		returnRoute = defaultOAuthReturnRoute
	}
	return &AuthAPI{
		registry:    registry,
		tokens:      tokens,
		store:       store,
		returnRoute: returnRoute,
	}
}

// RegisterRoutes registers the auth routes.
func (a *AuthAPI) RegisterRoutes(e *gin.Engine) {
	e.GET("/login/:provider", a.LoginHandler)
	e.GET("/oauth-return", a.OAuthReturnHandler)
	e.POST("/oauth/:provider/completeLogin", a.CompleteLoginHandler)
	e.POST("/logout", a.LogoutHandler)
	e.POST("/token/refresh", a.RefreshHandler)
	e.GET("/providers", a.ProvidersHandler)
	e.GET("/healthz", a.HealthzHandler)
}

type successResponse struct {
	Status int `json:"status"`
	Data   any `json:"data"`
}

type errorResponse struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

func respondOK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, successResponse{Status: http.StatusOK, Data: data})
}

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, errorResponse{Status: status, Message: message})
}

// LoginHandler returns the provider's authorize URL for the browser to
// follow. Unknown provider names are a client error.
func (a *AuthAPI) LoginHandler(c *gin.Context) {
	provider, err := a.registry.Get(c.Param("provider"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "unknown provider")
		return
	}
	respondOK(c, provider.AuthCodeURL())
}

// OAuthReturnHandler hops the browser from the provider's callback to
// the SPA route carrying the code. A transport step, not a security
// boundary.
func (a *AuthAPI) OAuthReturnHandler(c *gin.Context) {
	code := c.Query("code")
	c.Redirect(http.StatusFound, a.returnRoute+"?code="+url.QueryEscape(code))
}

type completeLoginRequest struct {
	Code string `json:"code"`
}

// CompleteLoginHandler exchanges the authorization code for provider
// credentials, mints the token pair, and records the refresh token.
// The code is single-use: exchange failures surface as a server error
// and the client restarts the flow.
func (a *AuthAPI) CompleteLoginHandler(c *gin.Context) {
	provider, err := a.registry.Get(c.Param("provider"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "unknown provider")
		return
	}

	var req completeLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Code == "" {
		respondError(c, http.StatusBadRequest, "missing authorization code")
		return
	}

	user, creds, err := provider.CompleteLogin(c.Request.Context(), req.Code)
	if err != nil {
		metrics.LoginFailureTotal.Inc()
		log.Error().Err(err).Str("provider", string(provider.Name())).Msg("provider login failed")
		respondError(c, http.StatusInternalServerError, "sign-in failed")
		return
	}

	pair, err := a.tokens.CreateTokens(string(provider.Name()), creds, user)
	if err != nil {
		metrics.LoginFailureTotal.Inc()
		log.Error().Err(err).Str("provider", string(provider.Name())).Msg("token issuance failed")
		respondError(c, http.StatusInternalServerError, "sign-in failed")
		return
	}

	if err := a.store.Add(c.Request.Context(), pair.RefreshToken, a.tokens.RefreshExpiry()); err != nil {
		// Bookkeeping only; the issued tokens are already valid.
		log.Warn().Err(err).Msg("failed to record refresh token")
	}

	metrics.LoginSuccessTotal.Inc()
	log.Info().Str("provider", string(provider.Name())).Str("user", user.Username).Msg("login completed")
	respondOK(c, pair)
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// RefreshHandler verifies the refresh token and mints a new access
// token only. The refresh token is echoed unchanged; no rotation, so
// the session never outlives the original refresh expiration.
func (a *AuthAPI) RefreshHandler(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.RefreshToken == "" {
		respondError(c, http.StatusUnauthorized, "invalid refresh token")
		return
	}

	claims, err := a.tokens.VerifyRefreshToken(req.RefreshToken)
	if err != nil {
		if !errors.Is(err, authd.ErrTokenExpired) {
			log.Warn().Err(err).Msg("refresh token rejected")
		}
		respondError(c, http.StatusUnauthorized, "invalid refresh token")
		return
	}

	access, err := a.tokens.ReissueAccessToken(claims)
	if err != nil {
		log.Error().Err(err).Msg("access token reissue failed")
		respondError(c, http.StatusInternalServerError, "token refresh failed")
		return
	}

	respondOK(c, authd.TokenPair{AccessToken: access, RefreshToken: req.RefreshToken})
}

type logoutRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// LogoutHandler removes the refresh token from the store. It never
// fails visibly: a failure here could trap a client in a broken
// session.
func (a *AuthAPI) LogoutHandler(c *gin.Context) {
	var req logoutRequest
	if err := c.ShouldBindJSON(&req); err == nil && req.RefreshToken != "" {
		if err := a.store.Remove(c.Request.Context(), req.RefreshToken); err != nil {
			log.Warn().Err(err).Msg("failed to remove refresh token")
		}
	}
	respondOK(c, "")
}

// ProvidersHandler lists the providers with a client id configured.
func (a *AuthAPI) ProvidersHandler(c *gin.Context) {
	respondOK(c, a.registry.Configured())
}

// HealthzHandler is a liveness probe.
func (a *AuthAPI) HealthzHandler(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}
