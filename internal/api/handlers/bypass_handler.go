package handlers

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/Wikid82/geogate/internal/services"
)

type BypassHandler struct {
	service   *services.BypassService
	loginPath string
	param     string
}

func NewBypassHandler(service *services.BypassService, loginPath, param string) *BypassHandler {
	return &BypassHandler{service: service, loginPath: loginPath, param: param}
}

func (h *BypassHandler) Status(c *gin.Context) {
	st, err := h.service.Status()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read bypass status"})
		return
	}
	c.JSON(http.StatusOK, st)
}

// Generate replaces the token. The plaintext and the ready-made link are in
// this response only.
func (h *BypassHandler) Generate(c *gin.Context) {
	token, err := h.service.Generate(actor(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate bypass token"})
		return
	}
	c.Header("Cache-Control", "no-store")
	c.JSON(http.StatusCreated, gin.H{
		"token": token,
		"url":   h.bypassURL(c, token),
	})
}

func (h *BypassHandler) Revoke(c *gin.Context) {
	if err := h.service.Revoke(actor(c)); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to revoke bypass token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Bypass token revoked"})
}

func (h *BypassHandler) Usage(c *gin.Context) {
	usage, err := h.service.Usage(queryLimit(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read bypass usage"})
		return
	}
	c.JSON(http.StatusOK, usage)
}

func (h *BypassHandler) bypassURL(c *gin.Context, token string) string {
	scheme := "http"
	if c.Request.TLS != nil || c.GetHeader("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	u := url.URL{
		Scheme:   scheme,
		Host:     c.Request.Host,
		Path:     h.loginPath,
		RawQuery: url.Values{h.param: {token}}.Encode(),
	}
	return u.String()
}
