package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/Wikid82/geogate/internal/gate"
)

// RequestLogger logs one line per request. Requests the gate decided carry
// the deciding rule. skip lists paths that are never logged (health checks).
func RequestLogger(skip ...string) gin.HandlerFunc {
	quiet := make(map[string]struct{}, len(skip))
	for _, p := range skip {
		quiet[p] = struct{}{}
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		if _, ok := quiet[c.Request.URL.Path]; ok {
			return
		}
		fields := logrus.Fields{
			"status":  c.Writer.Status(),
			"method":  c.Request.Method,
			"path":    SanitizePath(c.Request.URL.Path),
			"latency": time.Since(start).String(),
			"client":  c.ClientIP(),
		}
		if d, ok := gate.DecisionFrom(c); ok {
			fields["gate_rule"] = d.Rule
		}
		GetRequestLogger(c).WithFields(fields).Info("handled request")
	}
}
