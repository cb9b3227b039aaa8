package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/Wikid82/geogate/internal/gate"
	"github.com/Wikid82/geogate/internal/services"
)

func TestActor(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name     string
		username string
		gateIP   string
		want     services.Actor
	}{
		{"resolved by gate", "admin", "41.58.12.34", services.Actor{Name: "admin", IP: "41.58.12.34"}},
		{"falls back to remote addr", "admin", "", services.Actor{Name: "admin", IP: "192.0.2.1"}},
		{"anonymous", "", "41.58.12.34", services.Actor{Name: "unknown", IP: "41.58.12.34"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.username != "" {
				c.Set("username", tt.username)
			}
			if tt.gateIP != "" {
				c.Set(gate.ClientIPKey, tt.gateIP)
			}
			assert.Equal(t, tt.want, actor(c))
		})
	}
}
