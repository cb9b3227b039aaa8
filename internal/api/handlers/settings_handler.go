package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Wikid82/geogate/internal/services"
)

type SettingsHandler struct {
	service *services.SettingsService
	audit   *services.AuditService
}

func NewSettingsHandler(service *services.SettingsService, audit *services.AuditService) *SettingsHandler {
	return &SettingsHandler{service: service, audit: audit}
}

// GetSettings returns the effective gate policy alongside the stored
// overrides.
func (h *SettingsHandler) GetSettings(c *gin.Context) {
	stored, err := h.service.All()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch settings"})
		return
	}
	overrides := make(map[string]string, len(stored))
	for _, s := range stored {
		overrides[s.Key] = s.Value
	}
	c.JSON(http.StatusOK, gin.H{
		"gate_enabled":      h.service.GateEnabled(),
		"allowed_countries": h.service.AllowedCountries(),
		"overrides":         overrides,
	})
}

type UpdateSettingRequest struct {
	Key   string `json:"key" binding:"required"`
	Value string `json:"value"`
}

func (h *SettingsHandler) UpdateSetting(c *gin.Context) {
	var req UpdateSettingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.service.Set(req.Key, req.Value); err != nil {
		if errors.Is(err, services.ErrInvalidSetting) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save setting"})
		return
	}
	h.audit.Record(actor(c), "setting_update", req.Key+"="+req.Value)
	c.JSON(http.StatusOK, gin.H{"key": req.Key, "value": req.Value})
}
