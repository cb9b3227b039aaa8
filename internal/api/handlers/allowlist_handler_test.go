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

	"github.com/Wikid82/geogate/internal/models"
	"github.com/Wikid82/geogate/internal/services"
)

func setupAllowlistTestRouter(t *testing.T) (*gin.Engine, *services.AllowlistService) {
	gin.SetMode(gin.TestMode)
	svc := services.NewAllowlistService(OpenTestDB(t))
	h := NewAllowlistHandler(svc)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("username", "admin")
		c.Next()
	})
	r.GET("/allowlist", h.List)
	r.POST("/allowlist", h.Add)
	r.DELETE("/allowlist/:ref", h.Remove)
	return r, svc
}

func postJSON(r *gin.Engine, target string, payload any) *httptest.ResponseRecorder {
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest(http.MethodPost, target, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAllowlistHandler_Add(t *testing.T) {
	r, _ := setupAllowlistTestRouter(t)

	tests := []struct {
		name       string
		payload    map[string]any
		wantStatus int
	}{
		{"single address", map[string]any{"ip_or_cidr": "203.0.113.5", "description": "office"}, http.StatusCreated},
		{"cidr block", map[string]any{"ip_or_cidr": "198.51.100.0/24"}, http.StatusCreated},
		{"duplicate", map[string]any{"ip_or_cidr": "203.0.113.5"}, http.StatusConflict},
		{"not an address", map[string]any{"ip_or_cidr": "example.com"}, http.StatusBadRequest},
		{"ipv6", map[string]any{"ip_or_cidr": "2001:db8::1"}, http.StatusBadRequest},
		{"missing value", map[string]any{"description": "nothing"}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postJSON(r, "/allowlist", tt.payload)
			assert.Equal(t, tt.wantStatus, w.Code, w.Body.String())
		})
	}
}

func TestAllowlistHandler_ListRecordsActor(t *testing.T) {
	r, _ := setupAllowlistTestRouter(t)
	require.Equal(t, http.StatusCreated, postJSON(r, "/allowlist", map[string]any{"ip_or_cidr": "203.0.113.5"}).Code)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/allowlist", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var entries []models.AllowlistEntry
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "203.0.113.5", entries[0].Value)
	assert.Equal(t, "admin", entries[0].AddedBy)
}

func TestAllowlistHandler_Remove(t *testing.T) {
	r, svc := setupAllowlistTestRouter(t)
	first, err := svc.Add(services.AllowlistInput{Value: "203.0.113.5", AddedBy: services.Actor{Name: "test"}})
	require.NoError(t, err)
	_, err = svc.Add(services.AllowlistInput{Value: "198.51.100.7", AddedBy: services.Actor{Name: "test"}})
	require.NoError(t, err)

	del := func(ref string) int {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/allowlist/"+ref, nil))
		return w.Code
	}

	assert.Equal(t, http.StatusOK, del(first.UUID))
	assert.Equal(t, http.StatusNotFound, del(first.UUID))
	assert.Equal(t, http.StatusNotFound, del("5"))
	assert.Equal(t, http.StatusOK, del("0"))

	entries, err := svc.List()
	require.NoError(t, err)
	assert.Empty(t, entries)
}
