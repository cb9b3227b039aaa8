package gate

import (
	"bytes"
	"html/template"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Wikid82/geogate/internal/logger"
)

// The page names no rule: a denied client learns only its own IP and the time.
var denyPage = template.Must(template.New("deny").Parse(`<!DOCTYPE html>
<html>
<head>
	<title>{{.Title}}</title>
	<meta name="robots" content="noindex,nofollow">
	<meta name="viewport" content="width=device-width, initial-scale=1">
	<style>
		body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, Arial, sans-serif; text-align: center; margin: 0; padding: 20px; background: #f8f9fa; color: #495057; line-height: 1.6; }
		.container { max-width: 600px; margin: 50px auto; background: white; padding: 40px; border-radius: 8px; box-shadow: 0 4px 20px rgba(0,0,0,0.1); }
		.error { color: #dc3545; font-size: 28px; margin-bottom: 20px; font-weight: 600; }
		.info { background: #e9ecef; padding: 15px; border-radius: 5px; margin: 20px 0; }
		.contact { background: #d1ecf1; border: 1px solid #bee5eb; padding: 15px; border-radius: 5px; }
		code { background: #f8f9fa; padding: 2px 5px; border-radius: 3px; font-family: monospace; }
	</style>
</head>
<body>
	<div class="container">
		<h1 class="error">{{.Title}}</h1>
		<p><strong>{{.Message}}</strong></p>
		{{if .IP}}
		<div class="info">
			<p>This site restricts access to its login and administrative areas.</p>
			<p><strong>Your IP:</strong> <code>{{.IP}}</code></p>
		</div>
		<p><strong>If you are the site administrator and need emergency access:</strong></p>
		<ol style="text-align: left; max-width: 400px; margin: 20px auto;">
			<li>Contact your hosting provider</li>
			<li>Add your IP to the allow-list from a trusted location or the operator CLI</li>
			<li>Use the emergency bypass link if one has been issued</li>
		</ol>
		<div class="contact">
			<p><strong>Need help?</strong> Contact the site administrator with the following information:</p>
			<p><strong>Time:</strong> {{.Time}}<br><strong>Your IP:</strong> {{.IP}}</p>
		</div>
		{{end}}
	</div>
</body>
</html>
`))

type denyView struct {
	Title   string
	Message string
	IP      string
	Time    string
}

// RenderDenied writes the generic access-denied page.
func RenderDenied(c *gin.Context, ip string) {
	renderPage(c, denyView{
		Title:   "Access Denied",
		Message: "You do not have permission to access this page.",
		IP:      ip,
		Time:    time.Now().UTC().Format("2006-01-02 15:04:05 MST"),
	})
}

// RenderSpam writes the page shown for a rejected form submission.
func RenderSpam(c *gin.Context, message string) {
	renderPage(c, denyView{Title: "Spam Detected", Message: message})
}

func renderPage(c *gin.Context, v denyView) {
	var buf bytes.Buffer
	if err := denyPage.Execute(&buf, v); err != nil {
		logger.Log().WithError(err).Error("failed to render deny page")
		c.AbortWithStatus(http.StatusForbidden)
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusForbidden, "text/html; charset=utf-8", buf.Bytes())
	c.Abort()
}
