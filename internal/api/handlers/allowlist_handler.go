package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Wikid82/geogate/internal/services"
)

type AllowlistHandler struct {
	service *services.AllowlistService
}

func NewAllowlistHandler(service *services.AllowlistService) *AllowlistHandler {
	return &AllowlistHandler{service: service}
}

func (h *AllowlistHandler) List(c *gin.Context) {
	entries, err := h.service.List()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list allow-list"})
		return
	}
	c.JSON(http.StatusOK, entries)
}

func (h *AllowlistHandler) Add(c *gin.Context) {
	var in services.AllowlistInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	in.AddedBy = actor(c)

	entry, err := h.service.Add(in)
	switch {
	case errors.Is(err, services.ErrDuplicateEntry):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case err != nil:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusCreated, entry)
	}
}

// Remove accepts either the zero-based position shown in the list or the
// entry's uuid.
func (h *AllowlistHandler) Remove(c *gin.Context) {
	ref := c.Param("ref")
	var err error
	if idx, convErr := strconv.Atoi(ref); convErr == nil {
		_, err = h.service.Remove(idx, actor(c))
	} else {
		err = h.service.RemoveByUUID(ref, actor(c))
	}

	if errors.Is(err, services.ErrEntryNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to remove entry"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Entry removed"})
}
