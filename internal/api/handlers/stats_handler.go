package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Wikid82/geogate/internal/services"
)

// StatsHandler exposes the blocked-attempt log and counters.
type StatsHandler struct {
	attempts    *services.AttemptLog
	maintenance *services.MaintenanceService
	audit       *services.AuditService
}

func NewStatsHandler(attempts *services.AttemptLog, maintenance *services.MaintenanceService, audit *services.AuditService) *StatsHandler {
	return &StatsHandler{attempts: attempts, maintenance: maintenance, audit: audit}
}

func (h *StatsHandler) Stats(c *gin.Context) {
	stats, err := h.attempts.Stats()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read stats"})
		return
	}
	stored, err := h.attempts.Count()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read stats"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"blocked_total":   stats.BlockedTotal,
		"last_blocked_at": stats.LastBlockedAt,
		"stored_attempts": stored,
		"log_capacity":    h.attempts.Cap(),
	})
}

func (h *StatsHandler) Attempts(c *gin.Context) {
	list, err := h.attempts.List(queryLimit(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list attempts"})
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *StatsHandler) Reset(c *gin.Context) {
	if err := h.attempts.ResetStats(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to reset stats"})
		return
	}
	h.audit.Record(actor(c), "stats_reset", "")
	c.JSON(http.StatusOK, gin.H{"message": "Stats reset"})
}

// Prune runs the retention cleanup now instead of waiting for the schedule.
func (h *StatsHandler) Prune(c *gin.Context) {
	removed, err := h.maintenance.RunCleanup()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Cleanup failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"removed": removed})
}

func (h *StatsHandler) Audit(c *gin.Context) {
	list, err := h.audit.List(queryLimit(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list audit log"})
		return
	}
	c.JSON(http.StatusOK, list)
}
