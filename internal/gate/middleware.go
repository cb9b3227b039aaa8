package gate

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/sessions"

	"github.com/Wikid82/geogate/internal/logger"
	"github.com/Wikid82/geogate/internal/services"
)

const (
	sessionName   = "geogate_session"
	sessionIDKey  = "sid"
	grantKey      = "grant"
	decisionKey   = "gate_decision"
	principalRole = "role"
)

// ClientIPKey holds the address Guard resolved for the request.
const ClientIPKey = "client_ip"

// BypassGranter validates an emergency token and issues a grant.
type BypassGranter interface {
	ValidateAndGrant(ctx context.Context, provided, session string, req services.BypassRequest) (string, bool)
}

// NewSessionStore returns the signed cookie store holding the grant
// credential. maxAge should match the grant lifetime.
func NewSessionStore(secret string, maxAge time.Duration, secure bool) *sessions.CookieStore {
	store := sessions.NewCookieStore([]byte(secret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(maxAge / time.Second),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return store
}

// Middleware binds the evaluator and the bypass entry point to gin.
type Middleware struct {
	eval     *Evaluator
	bypass   BypassGranter
	sessions sessions.Store
	param    string
}

func NewMiddleware(eval *Evaluator, bypass BypassGranter, store sessions.Store, param string) *Middleware {
	if param == "" {
		param = "emergency_bypass"
	}
	return &Middleware{eval: eval, bypass: bypass, sessions: store, param: param}
}

// Bypass handles the emergency query parameter. It must run before any
// other handler. On success the grant is stored in the session and the
// client is redirected to the same URL without the parameter. An invalid
// token falls through to normal processing.
func (m *Middleware) Bypass() gin.HandlerFunc {
	return func(c *gin.Context) {
		provided := c.Query(m.param)
		if provided == "" || m.bypass == nil {
			c.Next()
			return
		}

		session, _ := m.sessions.Get(c.Request, sessionName)
		sid, _ := session.Values[sessionIDKey].(string)
		if sid == "" {
			sid = uuid.NewString()
		}

		credential, ok := m.bypass.ValidateAndGrant(c.Request.Context(), provided, sid, services.BypassRequest{
			IP:          m.ClientIP(c),
			UserAgent:   c.Request.UserAgent(),
			RequestPath: c.Request.URL.Path,
		})
		if !ok {
			c.Next()
			return
		}

		session.Values[sessionIDKey] = sid
		session.Values[grantKey] = credential
		if err := session.Save(c.Request, c.Writer); err != nil {
			logger.Log().WithError(err).Error("failed to save bypass session")
			c.Next()
			return
		}

		c.Redirect(http.StatusFound, stripParam(c.Request.URL, m.param))
		c.Abort()
	}
}

// Guard runs the evaluator for the protected surface and renders the deny
// page on DENY. Requests outside the surface pass untouched.
func (m *Middleware) Guard() gin.HandlerFunc {
	return func(c *gin.Context) {
		rc := m.RequestContext(c)
		c.Set(ClientIPKey, m.eval.ClientIP(rc))
		if !m.eval.Protects(rc) {
			c.Next()
			return
		}

		d := m.eval.Evaluate(c.Request.Context(), rc)
		c.Set(decisionKey, d)
		if !d.Allow {
			RenderDenied(c, d.IP)
			return
		}
		c.Next()
	}
}

// RequestContext builds the evaluator input from a gin request.
func (m *Middleware) RequestContext(c *gin.Context) RequestContext {
	rc := RequestContext{
		Headers:    c.Request.Header,
		RemoteAddr: c.Request.RemoteAddr,
		Path:       c.Request.URL.Path,
		UserAgent:  c.Request.UserAgent(),
		Referer:    c.Request.Referer(),
		Mode:       ModeNormal,
	}
	if m.eval.IsAJAXPath(rc.Path) {
		rc.Mode = ModeAJAX
	}
	if username := c.GetString("username"); username != "" {
		rc.Principal = Principal{
			Authenticated: true,
			IsAdmin:       c.GetString(principalRole) == services.RoleAdmin,
			Username:      username,
		}
	}
	if m.sessions != nil {
		if session, err := m.sessions.Get(c.Request, sessionName); err == nil {
			rc.GrantCredential, _ = session.Values[grantKey].(string)
		}
	}
	return rc
}

// DecisionFrom returns the decision Guard stored on c, if any.
func DecisionFrom(c *gin.Context) (Decision, bool) {
	v, ok := c.Get(decisionKey)
	if !ok {
		return Decision{}, false
	}
	d, ok := v.(Decision)
	return d, ok
}

func stripParam(u *url.URL, param string) string {
	q := u.Query()
	q.Del(param)
	clean := url.URL{Path: u.Path, RawQuery: q.Encode()}
	if clean.Path == "" {
		clean.Path = "/"
	}
	return clean.String()
}

// ClientIP resolves the caller's address the way the evaluator does.
func (m *Middleware) ClientIP(c *gin.Context) string {
	return m.eval.ClientIP(m.RequestContext(c))
}

// Evaluator returns the evaluator behind m.
func (m *Middleware) Evaluator() *Evaluator { return m.eval }
