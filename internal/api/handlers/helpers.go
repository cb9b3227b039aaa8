package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Wikid82/geogate/internal/gate"
	"github.com/Wikid82/geogate/internal/services"
)

const (
	defaultListLimit = 50
	maxListLimit     = 1000
)

// queryLimit reads ?limit= clamped to [1, maxListLimit].
func queryLimit(c *gin.Context) int {
	n, err := strconv.Atoi(c.Query("limit"))
	if err != nil || n <= 0 {
		return defaultListLimit
	}
	if n > maxListLimit {
		return maxListLimit
	}
	return n
}

// actor names the administrator behind the request, and where it came
// from, for the audit trail.
func actor(c *gin.Context) services.Actor {
	a := services.Actor{Name: c.GetString("username"), IP: c.GetString(gate.ClientIPKey)}
	if a.IP == "" {
		a.IP = c.ClientIP()
	}
	if a.Name == "" {
		a.Name = "unknown"
	}
	return a
}
