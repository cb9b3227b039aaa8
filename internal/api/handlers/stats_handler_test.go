package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Wikid82/geogate/internal/models"
	"github.com/Wikid82/geogate/internal/services"
)

func TestStatsHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := OpenTestDB(t)
	attempts := services.NewAttemptLog(db, 5)
	maintenance := services.NewMaintenanceService(attempts, 30*24*time.Hour)
	h := NewStatsHandler(attempts, maintenance, services.NewAuditService(db))

	r := gin.New()
	r.GET("/stats", h.Stats)
	r.GET("/attempts", h.Attempts)
	r.POST("/stats/reset", h.Reset)
	r.POST("/cleanup", h.Prune)
	r.GET("/audit", h.Audit)

	now := time.Now().UTC()
	require.NoError(t, attempts.Record(&models.BlockedAttempt{IP: "8.8.8.8", CountryCode: "US", OccurredAt: now.Add(-40 * 24 * time.Hour)}))
	require.NoError(t, attempts.Record(&models.BlockedAttempt{IP: "1.1.1.1", CountryCode: "AU"}))

	do := func(method, target string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(method, target, nil))
		return w
	}

	var stats map[string]any
	w := do(http.MethodGet, "/stats")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.EqualValues(t, 2, stats["blocked_total"])
	assert.EqualValues(t, 2, stats["stored_attempts"])
	assert.EqualValues(t, 5, stats["log_capacity"])

	var list []models.BlockedAttempt
	require.NoError(t, json.Unmarshal(do(http.MethodGet, "/attempts?limit=1").Body.Bytes(), &list))
	require.Len(t, list, 1)

	var pruned map[string]int64
	w = do(http.MethodPost, "/cleanup")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &pruned))
	assert.Equal(t, int64(1), pruned["removed"])

	require.Equal(t, http.StatusOK, do(http.MethodPost, "/stats/reset").Code)
	st, err := attempts.Stats()
	require.NoError(t, err)
	assert.Zero(t, st.BlockedTotal)

	var audit []models.SecurityAudit
	require.NoError(t, json.Unmarshal(do(http.MethodGet, "/audit").Body.Bytes(), &audit))
	require.NotEmpty(t, audit)
	assert.Equal(t, "stats_reset", audit[0].Action)
}
