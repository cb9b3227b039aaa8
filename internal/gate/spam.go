package gate

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Wikid82/geogate/internal/services"
)

// Comment form fields added by the anti-spam heuristic.
const (
	FieldYear     = "geogate_as_q"
	FieldJSYear   = "geogate_as_d"
	FieldHoneypot = "geogate_as_e"
)

// SpamChecker classifies a posted form.
type SpamChecker interface {
	Enabled() bool
	Check(sub services.Submission) services.Verdict
}

// SubmissionFromRequest reads the comment form fields from c. A form post is
// always a comment: pingback and trackback kinds are only set by trusted
// server-side callers.
func SubmissionFromRequest(c *gin.Context, ip string) services.Submission {
	return services.Submission{
		Type:          services.SubmissionComment,
		Author:        c.PostForm("author"),
		Email:         c.PostForm("email"),
		Content:       c.PostForm("comment"),
		IP:            ip,
		Authenticated: c.GetString("username") != "",
		YearAnswer:    c.PostForm(FieldYear),
		JSYear:        c.PostForm(FieldJSYear),
		Trap:          c.PostForm(FieldHoneypot),
	}
}

// SpamGuard rejects spam form posts with a 403 page before they reach the
// handler. Non-POST requests and a disabled checker pass through.
func (m *Middleware) SpamGuard(spam SpamChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		if spam == nil || !spam.Enabled() || c.Request.Method != http.MethodPost {
			c.Next()
			return
		}
		sub := SubmissionFromRequest(c, m.ClientIP(c))
		if v := spam.Check(sub); v.Spam {
			RenderSpam(c, v.Message)
			return
		}
		c.Next()
	}
}
