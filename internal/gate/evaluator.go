// Package gate decides whether a request may reach the login form or the
// administrative namespace.
package gate

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Wikid82/geogate/internal/cidr"
	"github.com/Wikid82/geogate/internal/clientip"
	"github.com/Wikid82/geogate/internal/config"
	"github.com/Wikid82/geogate/internal/geo"
	"github.com/Wikid82/geogate/internal/logger"
	"github.com/Wikid82/geogate/internal/metrics"
	"github.com/Wikid82/geogate/internal/models"
	"github.com/Wikid82/geogate/internal/util"
)

// Mode is the execution context a request arrives in.
type Mode int

const (
	ModeNormal Mode = iota
	ModeAJAX
	ModeBackground
	ModeCLI
)

// Rules that can decide a request. They are recorded in logs and metrics and
// returned by Explain, never shown to a denied client.
const (
	RuleDisabled        = "disabled"
	RuleUnprotected     = "unprotected"
	RuleGrant           = "bypass_grant"
	RuleAllowlist       = "allowlist"
	RuleCountry         = "allowed_country"
	RuleTrustedPlatform = "trusted_platform"
	RuleAdminPrincipal  = "admin_principal"
	RuleOperator        = "operator_context"
	RuleAPIAuth         = "api_auth_path"
	RuleDefaultDeny     = "default_deny"
)

// SnapshotHeaders are copied into a blocked attempt for later review.
var SnapshotHeaders = []string{"X-Forwarded-For", "Client-IP", "Remote-Addr", "X-Real-IP"}

// Principal is the authenticated caller, if any.
type Principal struct {
	Authenticated bool
	IsAdmin       bool
	Username      string
}

// RequestContext is everything the evaluator looks at.
type RequestContext struct {
	Headers    http.Header
	RemoteAddr string
	Path       string
	UserAgent  string
	Referer    string

	// GrantCredential is the bypass credential presented by the client's
	// session, empty when there is none.
	GrantCredential string
	Principal       Principal
	// Mode comes from server-side facts (path, caller), never from a
	// request header.
	Mode Mode
}

// Decision is the outcome of an evaluation.
type Decision struct {
	Allow     bool   `json:"allow"`
	Rule      string `json:"rule"`
	IP        string `json:"ip"`
	Country   string `json:"country,omitempty"`
	Protected bool   `json:"protected"`
}

// Collaborators. The services package satisfies all of them.
type (
	GrantChecker interface {
		IsGranted(ctx context.Context, credential string) bool
	}
	Allowlist interface {
		IsWhitelisted(ip string) bool
	}
	CountryResolver interface {
		Country(ctx context.Context, ip string) string
	}
	AttemptRecorder interface {
		Record(a *models.BlockedAttempt) error
	}
	Policy interface {
		GateEnabled() bool
		AllowedCountries() []string
	}
)

// Deps groups the evaluator's collaborators.
type Deps struct {
	Grants    GrantChecker
	Allowlist Allowlist
	Countries CountryResolver
	Attempts  AttemptRecorder
	Policy    Policy
	// Trusted defaults to JetpackRanges when nil.
	Trusted []string
	// Sources defaults to clientip.DefaultSources when nil.
	Sources []clientip.Source
}

// Evaluator applies the access rules in a fixed order; the first rule that
// matches decides.
type Evaluator struct {
	cfg  config.GateConfig
	deps Deps
}

func NewEvaluator(cfg config.GateConfig, deps Deps) *Evaluator {
	if deps.Trusted == nil {
		deps.Trusted = JetpackRanges
	}
	if deps.Sources == nil {
		deps.Sources = clientip.DefaultSources
	}
	return &Evaluator{cfg: cfg, deps: deps}
}

// ClientIP resolves the caller's address from rc.
func (e *Evaluator) ClientIP(rc RequestContext) string {
	return clientip.ResolveWith(e.deps.Sources, rc.Headers, rc.RemoteAddr)
}

// IsEnabled reports whether the gate is active. A persisted toggle overrides
// the configuration.
func (e *Evaluator) IsEnabled() bool {
	if e.deps.Policy != nil {
		return e.deps.Policy.GateEnabled()
	}
	return e.cfg.Enabled
}

// LoginPath returns the configured login form path.
func (e *Evaluator) LoginPath() string { return e.cfg.LoginPath }

// IsLoginPath reports whether path is the login form.
func (e *Evaluator) IsLoginPath(path string) bool {
	return matchPrefix(path, e.cfg.LoginPath)
}

// IsAdminPath reports whether path is inside the administrative namespace.
func (e *Evaluator) IsAdminPath(path string) bool {
	return matchPrefix(path, e.cfg.AdminPrefix)
}

// IsAJAXPath reports whether path is one of the configured AJAX endpoints.
func (e *Evaluator) IsAJAXPath(path string) bool {
	for _, p := range e.cfg.AJAXPaths {
		if matchPrefix(path, p) {
			return true
		}
	}
	return false
}

// Protects reports whether the evaluator covers rc at all. AJAX and
// background contexts only narrow the admin namespace; the login form is
// always covered.
func (e *Evaluator) Protects(rc RequestContext) bool {
	if e.cfg.BlockLogin && e.IsLoginPath(rc.Path) {
		return true
	}
	if rc.Mode == ModeAJAX || rc.Mode == ModeBackground {
		return false
	}
	return e.cfg.BlockAdmin && e.IsAdminPath(rc.Path)
}

// Evaluate decides rc. A deny is recorded in the attempt log; a failure to
// record does not change the decision.
func (e *Evaluator) Evaluate(ctx context.Context, rc RequestContext) Decision {
	d := e.decide(ctx, rc)
	if !d.Protected {
		return d
	}

	outcome := "allow"
	if !d.Allow {
		outcome = "deny"
		e.record(rc, d)
	}
	metrics.IncDecision(outcome, d.Rule)
	return d
}

// Explain runs the same rules as Evaluate without recording anything.
func (e *Evaluator) Explain(ctx context.Context, rc RequestContext) Decision {
	return e.decide(ctx, rc)
}

func (e *Evaluator) decide(ctx context.Context, rc RequestContext) Decision {
	ip := e.ClientIP(rc)
	d := Decision{IP: ip}

	if !e.IsEnabled() {
		d.Allow, d.Rule = true, RuleDisabled
		return d
	}
	if !e.Protects(rc) {
		d.Allow, d.Rule = true, RuleUnprotected
		return d
	}
	d.Protected = true

	if e.deps.Grants != nil && rc.GrantCredential != "" && e.deps.Grants.IsGranted(ctx, rc.GrantCredential) {
		d.Allow, d.Rule = true, RuleGrant
		return d
	}

	if e.deps.Allowlist != nil && e.deps.Allowlist.IsWhitelisted(ip) {
		d.Allow, d.Rule = true, RuleAllowlist
		return d
	}

	d.Country = e.country(ctx, ip)
	if containsCode(e.allowedCountries(), d.Country) {
		d.Allow, d.Rule = true, RuleCountry
		return d
	}

	if cidr.InAny(ip, e.deps.Trusted) {
		d.Allow, d.Rule = true, RuleTrustedPlatform
		return d
	}

	if rc.Principal.Authenticated && rc.Principal.IsAdmin && e.IsAdminPath(rc.Path) && !e.IsLoginPath(rc.Path) {
		d.Allow, d.Rule = true, RuleAdminPrincipal
		return d
	}

	if rc.Mode == ModeCLI {
		d.Allow, d.Rule = true, RuleOperator
		return d
	}

	if e.isAPIAuthPath(rc.Path) {
		d.Allow, d.Rule = true, RuleAPIAuth
		return d
	}

	d.Rule = RuleDefaultDeny
	return d
}

func (e *Evaluator) country(ctx context.Context, ip string) string {
	if e.deps.Countries == nil {
		return geo.Unknown
	}
	return e.deps.Countries.Country(ctx, ip)
}

func (e *Evaluator) allowedCountries() []string {
	if e.deps.Policy != nil {
		return e.deps.Policy.AllowedCountries()
	}
	return e.cfg.AllowedCountries
}

func (e *Evaluator) isAPIAuthPath(path string) bool {
	if e.cfg.APIAuthPrefix == "" || !strings.Contains(path, e.cfg.APIAuthPrefix) {
		return false
	}
	for _, p := range e.cfg.APIAuthPaths {
		if p != "" && strings.Contains(path, p) {
			return true
		}
	}
	return false
}

func (e *Evaluator) record(rc RequestContext, d Decision) {
	logger.WithFields(logrus.Fields{
		"ip":      d.IP,
		"country": d.Country,
		"path":    util.SanitizeForLog(rc.Path),
	}).Warn("access denied")

	if e.deps.Attempts == nil {
		return
	}
	var headers http.Header
	if rc.Headers != nil {
		headers = rc.Headers.Clone()
	} else {
		headers = http.Header{}
	}
	if headers.Get("Remote-Addr") == "" && rc.RemoteAddr != "" {
		headers.Set("Remote-Addr", rc.RemoteAddr)
	}

	attempt := &models.BlockedAttempt{
		IP:             d.IP,
		CountryCode:    d.Country,
		UserAgent:      util.Truncate(util.SanitizeForLog(rc.UserAgent), 255),
		RequestPath:    util.SanitizeForLog(rc.Path),
		IsLoginPath:    e.IsLoginPath(rc.Path),
		Referer:        util.SanitizeForLog(rc.Referer),
		HeaderSnapshot: util.HeaderSnapshot(headers, SnapshotHeaders),
		OccurredAt:     time.Now().UTC(),
	}
	if err := e.deps.Attempts.Record(attempt); err != nil {
		logger.Log().WithError(err).Error("failed to record blocked attempt")
	}
}

func containsCode(codes []string, code string) bool {
	for _, c := range codes {
		if strings.EqualFold(c, code) {
			return true
		}
	}
	return false
}

// matchPrefix matches prefix itself or anything below it on a segment
// boundary.
func matchPrefix(path, prefix string) bool {
	if prefix == "" {
		return false
	}
	prefix = strings.TrimSuffix(prefix, "/")
	if prefix == "" {
		return true
	}
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}
