package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Wikid82/geogate/internal/config"
	"github.com/Wikid82/geogate/internal/services"
)

func newAuth() *services.AuthService {
	return services.NewAuthService(config.AdminConfig{Username: "admin", JWTSecret: "test-secret", TokenTTL: time.Hour})
}

func TestAuthMiddleware_MissingHeader(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(AuthMiddleware(nil))
	r.GET("/test", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Authorization header required")
}

func TestAuthMiddleware_BearerAndCookie(t *testing.T) {
	gin.SetMode(gin.TestMode)
	auth := newAuth()
	token, err := auth.IssueToken("admin")
	require.NoError(t, err)

	r := gin.New()
	r.Use(AuthMiddleware(auth), RequireRole(services.RoleAdmin))
	r.GET("/test", func(c *gin.Context) { c.String(http.StatusOK, c.GetString("username")) })

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "admin", w.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/test", nil)
	req.AddCookie(&http.Cookie{Name: AuthCookie, Value: token})
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestOptionalAuth_LeavesAnonymousAlone(t *testing.T) {
	gin.SetMode(gin.TestMode)
	auth := newAuth()
	r := gin.New()
	r.Use(OptionalAuth(auth))
	r.GET("/test", func(c *gin.Context) { c.String(http.StatusOK, "user=%s", c.GetString("username")) })

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "user=", w.Body.String())
}

func TestRequireRole(t *testing.T) {
	gin.SetMode(gin.TestMode)
	for role, want := range map[string]int{"admin": http.StatusOK, "user": http.StatusForbidden} {
		r := gin.New()
		r.Use(func(c *gin.Context) {
			c.Set("role", role)
			c.Next()
		})
		r.Use(RequireRole("admin"))
		r.GET("/test", func(c *gin.Context) { c.Status(http.StatusOK) })

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))
		assert.Equal(t, want, w.Code, role)
	}
}
