package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"marketchat/internal/auth"
)

// UserIDKey is the gin context key holding the authenticated user id.
const UserIDKey = "authUserID"

// Auth validates the bearer token and stores the subject user id on the
// context. A nil authenticator disables the check (development mode).
// Websocket upgrades may carry the token as a query parameter since browser
// websocket clients cannot set headers.
func Auth(a *auth.Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if a == nil {
			c.Next()
			return
		}

		token := ""
		if h := c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
			token = strings.TrimPrefix(h, "Bearer ")
		} else if q := c.Query("token"); q != "" {
			token = q
		}
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		claims, err := a.ValidateToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set(UserIDKey, claims.UserID)
		c.Next()
	}
}

// AuthedUserID returns the authenticated user id, or "" when auth is disabled.
func AuthedUserID(c *gin.Context) string {
	if v, ok := c.Get(UserIDKey); ok {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}
