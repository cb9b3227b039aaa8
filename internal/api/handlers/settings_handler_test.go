package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Wikid82/geogate/internal/config"
	"github.com/Wikid82/geogate/internal/gate"
	"github.com/Wikid82/geogate/internal/services"
)

func TestSettingsHandler_GetAndUpdate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := OpenTestDB(t)
	audit := services.NewAuditService(db)
	svc := services.NewSettingsService(db, config.GateConfig{Enabled: true, AllowedCountries: []string{"NG"}})
	h := NewSettingsHandler(svc, audit)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("username", "admin")
		c.Set(gate.ClientIPKey, "41.58.12.34")
		c.Next()
	})
	r.GET("/settings", h.GetSettings)
	r.PUT("/settings", h.UpdateSetting)

	put := func(payload map[string]string) *httptest.ResponseRecorder {
		body, _ := json.Marshal(payload)
		req := httptest.NewRequest(http.MethodPut, "/settings", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/settings", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"gate_enabled":true,"allowed_countries":["NG"],"overrides":{}}`, w.Body.String())

	assert.Equal(t, http.StatusOK, put(map[string]string{"key": services.SettingAllowedCountries, "value": "ng, gh"}).Code)
	assert.Equal(t, http.StatusOK, put(map[string]string{"key": services.SettingGateEnabled, "value": "false"}).Code)
	assert.Equal(t, http.StatusBadRequest, put(map[string]string{"key": services.SettingGateEnabled, "value": "maybe"}).Code)
	assert.Equal(t, http.StatusBadRequest, put(map[string]string{"key": "gate.unknown", "value": "1"}).Code)
	assert.Equal(t, http.StatusBadRequest, put(map[string]string{"value": "1"}).Code)

	assert.False(t, svc.GateEnabled())
	assert.Equal(t, []string{"NG", "GH"}, svc.AllowedCountries())

	entries, err := audit.List(10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "admin", entries[0].Actor)
	assert.Equal(t, "setting_update", entries[0].Action)
	assert.Equal(t, "41.58.12.34", entries[0].IP)
}
