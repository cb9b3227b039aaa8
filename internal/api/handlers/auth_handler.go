package handlers

import (
	"bytes"
	"context"
	"errors"
	"html/template"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/Wikid82/geogate/internal/api/middleware"
	"github.com/Wikid82/geogate/internal/logger"
	"github.com/Wikid82/geogate/internal/services"
	"github.com/Wikid82/geogate/internal/util"
)

// GeoForgetter drops a cached country result.
type GeoForgetter interface {
	Forget(ctx context.Context, ip string)
}

// ClientIPFunc resolves the caller's address.
type ClientIPFunc func(c *gin.Context) string

type AuthHandler struct {
	authService *services.AuthService
	geo         GeoForgetter
	clientIP    ClientIPFunc
	secure      bool
	tokenTTL    time.Duration
}

func NewAuthHandler(authService *services.AuthService, geo GeoForgetter, clientIP ClientIPFunc, secure bool, tokenTTL time.Duration) *AuthHandler {
	if clientIP == nil {
		clientIP = func(c *gin.Context) string { return c.ClientIP() }
	}
	return &AuthHandler{authService: authService, geo: geo, clientIP: clientIP, secure: secure, tokenTTL: tokenTTL}
}

var loginPage = template.Must(template.New("login").Parse(`<!DOCTYPE html>
<html>
<head><title>Log in</title><meta name="robots" content="noindex,nofollow"></head>
<body>
	<form method="post" action="{{.Action}}">
		<p><label>Username <input name="username" autocomplete="username"></label></p>
		<p><label>Password <input name="password" type="password" autocomplete="current-password"></label></p>
		<p><button type="submit">Log in</button></p>
	</form>
</body>
</html>
`))

// LoginPage renders the login form. Reaching it at all means the gate let
// the request through.
func (h *AuthHandler) LoginPage(c *gin.Context) {
	var buf bytes.Buffer
	if err := loginPage.Execute(&buf, gin.H{"Action": c.Request.URL.Path}); err != nil {
		logger.Log().WithError(err).Error("failed to render login page")
		c.Status(http.StatusInternalServerError)
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}

type LoginRequest struct {
	Username string `json:"username" form:"username" binding:"required"`
	Password string `json:"password" form:"password" binding:"required"`
}

// Login exchanges credentials for an admin token. The token is returned and
// set as a cookie. A successful login clears the cached country for the
// caller so a new address is classified afresh.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ip := h.clientIP(c)
	token, err := h.authService.Login(req.Username, req.Password)
	if err != nil {
		logger.WithFields(logrus.Fields{
			"ip":       ip,
			"username": util.SanitizeForLog(req.Username),
		}).Warn("admin login failed")
		status := http.StatusUnauthorized
		if errors.Is(err, services.ErrLoginDisabled) {
			status = http.StatusForbidden
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	if h.geo != nil {
		h.geo.Forget(c.Request.Context(), ip)
	}
	logger.WithFields(logrus.Fields{"ip": ip, "username": util.SanitizeForLog(req.Username)}).Info("admin logged in")

	h.setCookie(c, token, int(h.tokenTTL/time.Second))
	c.JSON(http.StatusOK, gin.H{"token": token})
}

func (h *AuthHandler) Logout(c *gin.Context) {
	h.setCookie(c, "", -1)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

func (h *AuthHandler) Me(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"username": c.GetString("username"),
		"role":     c.GetString("role"),
	})
}

func (h *AuthHandler) setCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(middleware.AuthCookie, value, maxAge, "/", "", h.secure, true)
}
