package handlers

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/Wikid82/geogate/internal/gate"
)

// GateHandler exposes the evaluator to a fronting proxy and to
// administrators.
type GateHandler struct {
	mw *gate.Middleware
}

func NewGateHandler(mw *gate.Middleware) *GateHandler {
	return &GateHandler{mw: mw}
}

// Verify is a forward-auth endpoint. The proxy passes the original URI in
// X-Forwarded-Uri; 200 lets the request through and 403 carries the deny
// page the proxy should relay.
func (h *GateHandler) Verify(c *gin.Context) {
	rc := h.mw.RequestContext(c)
	rc.Path = "/"
	if raw := c.GetHeader("X-Forwarded-Uri"); raw != "" {
		if u, err := url.Parse(raw); err == nil && u.Path != "" {
			rc.Path = u.Path
		}
	}

	d := h.mw.Evaluator().Evaluate(c.Request.Context(), rc)
	c.Header("X-Geogate-Country", d.Country)
	if !d.Allow {
		gate.RenderDenied(c, d.IP)
		return
	}
	c.Status(http.StatusOK)
}

type TestIPRequest struct {
	IP   string `json:"ip" binding:"required,ipv4"`
	Path string `json:"path"`
}

// TestIP explains how a request from ip to path would be decided, without
// recording anything. Path defaults to the login form.
func (h *GateHandler) TestIP(c *gin.Context) {
	var req TestIPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ev := h.mw.Evaluator()
	if req.Path == "" {
		req.Path = ev.LoginPath()
	}
	rc := gate.RequestContext{
		Headers:    http.Header{},
		RemoteAddr: req.IP,
		Path:       req.Path,
	}
	c.JSON(http.StatusOK, ev.Explain(c.Request.Context(), rc))
}
