package http

import (
	"net/http"
	"strings"

	"github.com/dkeye/Stage/internal/domain"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const (
	identityKey     = "identity"
	sessionTokenKey = "token"
)

// TokenVerifier turns a bearer credential into an identity.
type TokenVerifier interface {
	Verify(token string) (domain.Identity, error)
}

// bearer finds the token in the Authorization header, the session cookie
// or, for WebSocket upgrades from browsers, the token query parameter.
func bearer(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); h != "" {
		if tok, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(tok)
		}
	}
	if tok, ok := sessions.Default(c).Get(sessionTokenKey).(string); ok && tok != "" {
		return tok
	}
	return c.Query("token")
}

func AuthMiddleware(v TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := v.Verify(bearer(c))
		if err != nil {
			log.Debug().Err(err).Str("module", "adapters.http").Str("path", c.FullPath()).Msg("unauthorized")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		c.Set(identityKey, id)
		c.Next()
	}
}

// RequireHost rejects callers whose role can not host.
func RequireHost() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !identity(c).Role.CanHost() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "host role required"})
			return
		}
		c.Next()
	}
}

func identity(c *gin.Context) domain.Identity {
	id, _ := c.Get(identityKey)
	out, _ := id.(domain.Identity)
	return out
}
