package gin

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	authd "github.com/threat-dragon/authd"
)

const (
	providerContextKey = "authd.provider"
	userContextKey     = "authd.user"
)

// BearerAuth gates provider-scoped routes. It verifies the access token
// from the Authorization header and attaches the decoded provider and
// user to the request context. Missing/malformed headers and expired
// tokens are 401 (recoverable via refresh or re-login); a token that
// fails signature or structure checks is 400.
func BearerAuth(tokens *authd.TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				errorResponse{Status: http.StatusUnauthorized, Message: "authorization required"})
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				errorResponse{Status: http.StatusUnauthorized, Message: "authorization required"})
			return
		}

		claims, err := tokens.VerifyAccessToken(parts[1])
		if err != nil {
			if errors.Is(err, authd.ErrTokenExpired) {
				c.AbortWithStatusJSON(http.StatusUnauthorized,
					errorResponse{Status: http.StatusUnauthorized, Message: "token expired"})
				return
			}
			log.Warn().Err(err).Msg("access token rejected")
			c.AbortWithStatusJSON(http.StatusBadRequest,
				errorResponse{Status: http.StatusBadRequest, Message: "invalid token"})
			return
		}

		c.Set(providerContextKey, claims.Provider)
		c.Set(userContextKey, claims.User)
		c.Next()
	}
}

// ProviderFromContext returns the provider claim attached by BearerAuth.
func ProviderFromContext(c *gin.Context) (authd.ProviderClaim, bool) {
	v, ok := c.Get(providerContextKey)
	if !ok {
		return nil, false
	}
	claim, ok := v.(authd.ProviderClaim)
	return claim, ok
}

// UserFromContext returns the user identity attached by BearerAuth.
func UserFromContext(c *gin.Context) (authd.UserIdentity, bool) {
	v, ok := c.Get(userContextKey)
	if !ok {
		return authd.UserIdentity{}, false
	}
	user, ok := v.(authd.UserIdentity)
	return user, ok
}
