package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Wikid82/geogate/internal/services"
)

// AuthCookie holds the admin token for browser sessions.
const AuthCookie = "geogate_admin"

// TokenValidator checks an admin bearer token.
type TokenValidator interface {
	ValidateToken(token string) (*services.Claims, error)
}

// OptionalAuth populates "username" and "role" when the request carries a
// valid admin token and otherwise leaves the context untouched. The gate
// reads the principal from these keys.
func OptionalAuth(auth TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := tokenFrom(c); token != "" && auth != nil {
			if claims, err := auth.ValidateToken(token); err == nil {
				setPrincipal(c, claims)
			}
		}
		c.Next()
	}
}

// AuthMiddleware rejects requests without a valid admin token.
func AuthMiddleware(auth TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString("username") != "" {
			c.Next()
			return
		}
		token := tokenFrom(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			return
		}
		claims, err := auth.ValidateToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}
		setPrincipal(c, claims)
		c.Next()
	}
}

// RequireRole aborts with 403 unless the authenticated role is role.
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString("role") != role {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
			return
		}
		c.Next()
	}
}

func tokenFrom(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
		return ""
	}
	if cookie, err := c.Cookie(AuthCookie); err == nil {
		return cookie
	}
	return ""
}

func setPrincipal(c *gin.Context, claims *services.Claims) {
	c.Set("username", claims.Username)
	c.Set("role", claims.Role)
}
