package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Wikid82/geogate/internal/gate"
	"github.com/Wikid82/geogate/internal/services"
)

type SpamHandler struct {
	service  *services.SpamService
	audit    *services.AuditService
	clientIP ClientIPFunc
}

func NewSpamHandler(service *services.SpamService, audit *services.AuditService, clientIP ClientIPFunc) *SpamHandler {
	if clientIP == nil {
		clientIP = func(c *gin.Context) string { return c.ClientIP() }
	}
	return &SpamHandler{service: service, audit: audit, clientIP: clientIP}
}

// Challenge tells a form renderer which fields to add and what year the
// visible question expects.
func (h *SpamHandler) Challenge(c *gin.Context) {
	c.Header("Cache-Control", "no-store")
	c.JSON(http.StatusOK, gin.H{
		"enabled":       h.service.Enabled(),
		"year_field":    gate.FieldYear,
		"js_year_field": gate.FieldJSYear,
		"trap_field":    gate.FieldHoneypot,
		"expected_year": h.service.ExpectedYear(),
	})
}

type SpamCheckRequest struct {
	Type          string `json:"type"`
	Author        string `json:"author"`
	Email         string `json:"email"`
	Content       string `json:"content"`
	Authenticated bool   `json:"authenticated"`
	YearAnswer    string `json:"year_answer"`
	JSYear        string `json:"js_year"`
	Trap          string `json:"trap"`
}

// Check classifies a JSON submission on behalf of a comment backend. The
// caller's address is taken from the request, not the body. The type and
// authenticated fields skip checks, so they are honoured only for an
// authenticated caller; anonymous requests are always checked as comments.
func (h *SpamHandler) Check(c *gin.Context) {
	var req SpamCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !h.service.Enabled() {
		c.JSON(http.StatusOK, gin.H{"spam": false})
		return
	}
	if c.GetString("username") == "" {
		req.Type, req.Authenticated = "", false
	}
	if req.Type == "" {
		req.Type = services.SubmissionComment
	}
	v := h.service.Check(services.Submission{
		Type:          req.Type,
		Author:        req.Author,
		Email:         req.Email,
		Content:       req.Content,
		IP:            h.clientIP(c),
		Authenticated: req.Authenticated,
		YearAnswer:    req.YearAnswer,
		JSYear:        req.JSYear,
		Trap:          req.Trap,
	})
	if v.Spam {
		c.JSON(http.StatusForbidden, gin.H{"spam": true, "reason": v.Reason, "message": v.Message})
		return
	}
	c.JSON(http.StatusOK, gin.H{"spam": false})
}

// Accept is the terminal handler behind gate's SpamGuard for form posts.
func (h *SpamHandler) Accept(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"spam": false})
}

func (h *SpamHandler) Stats(c *gin.Context) {
	st, err := h.service.Stats()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read spam stats"})
		return
	}
	c.JSON(http.StatusOK, st)
}

func (h *SpamHandler) Saved(c *gin.Context) {
	list, err := h.service.Saved(queryLimit(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list saved spam"})
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *SpamHandler) Reset(c *gin.Context) {
	if err := h.service.Reset(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to reset spam stats"})
		return
	}
	h.audit.Record(actor(c), "spam_reset", "")
	c.JSON(http.StatusOK, gin.H{"message": "Spam stats reset"})
}
