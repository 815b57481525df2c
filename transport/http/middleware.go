package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/midnight-labs/pincade/core"
	"github.com/midnight-labs/pincade/service"
)

// sessionKey is the gin context key for the verified session
const sessionKey = "session"

// AuthMiddleware is the request gate: it extracts the bearer
// credential, verifies it, and annotates the request with the resolved
// identity before handing off to business logic.
func AuthMiddleware(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")

		if !strings.HasPrefix(auth, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header"})
			return
		}

		token := strings.TrimPrefix(auth, "Bearer ")

		session, err := authService.VerifyAccess(token)
		if err != nil {
			if errors.Is(err, core.ErrCredentialExpired) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token expired", "code": "token_expired"})
			} else {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			}
			return
		}

		c.Set(sessionKey, session)

		c.Next()
	}
}

// sessionFrom returns the verified session the middleware stored
func sessionFrom(c *gin.Context) (*core.Session, bool) {
	value, exists := c.Get(sessionKey)
	if !exists {
		return nil, false
	}
	session, ok := value.(*core.Session)
	return session, ok
}
