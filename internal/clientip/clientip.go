// Package clientip extracts the requesting client's IPv4 address.
//
// Proxy headers are trusted as sent by the client. Deployments that are not
// behind a reverse proxy which strips or overwrites these headers can be
// spoofed; gating header trust on the proxy address is left to the
// deployment.
package clientip

import (
	"net"
	"net/http"
	"strings"

	"github.com/Wikid82/geogate/internal/cidr"
)

// Fallback is returned when neither a header nor the transport address
// yields anything.
const Fallback = "127.0.0.1"

// Rule describes how a candidate is taken out of a header value.
type Rule int

const (
	// Whole uses the trimmed header value.
	Whole Rule = iota
	// FirstSegment uses the first comma-separated element.
	FirstSegment
)

// Source is one (header, rule) pair in resolution order.
type Source struct {
	Header string
	Rule   Rule
}

// DefaultSources lists client-supplied proxy headers in precedence order.
// The transport address is always consulted after them.
var DefaultSources = []Source{
	{Header: "Client-IP", Rule: Whole},
	{Header: "X-Forwarded-For", Rule: FirstSegment},
	{Header: "X-Forwarded", Rule: Whole},
	{Header: "X-Cluster-Client-IP", Rule: Whole},
	{Header: "Forwarded-For", Rule: Whole},
	{Header: "Forwarded", Rule: Whole},
}

var suspicious = map[string]struct{}{
	"0.0.0.0":         {},
	"255.255.255.255": {},
	"127.0.0.1":       {},
	"::1":             {},
}

// Resolve returns the client IP using DefaultSources.
func Resolve(headers http.Header, remoteAddr string) string {
	return ResolveWith(DefaultSources, headers, remoteAddr)
}

// ResolveWith returns the first candidate that is a valid IPv4 address and
// not an obviously fake value. Without one it falls back to the transport
// address, or Fallback when that is empty.
func ResolveWith(sources []Source, headers http.Header, remoteAddr string) string {
	for _, src := range sources {
		raw := headers.Get(src.Header)
		if raw == "" {
			continue
		}
		if candidate := extract(raw, src.Rule); acceptable(candidate) {
			return candidate
		}
	}

	transport := hostOnly(remoteAddr)
	if acceptable(transport) {
		return transport
	}
	if transport != "" {
		return transport
	}
	return Fallback
}

// IsSuspicious reports whether ip is one of the values never accepted from
// a header.
func IsSuspicious(ip string) bool {
	_, ok := suspicious[ip]
	return ok
}

func extract(raw string, rule Rule) string {
	if rule == FirstSegment {
		if i := strings.IndexByte(raw, ','); i >= 0 {
			raw = raw[:i]
		}
	}
	return strings.TrimSpace(raw)
}

func acceptable(ip string) bool {
	return cidr.IsIPv4(ip) && !IsSuspicious(ip)
}

func hostOnly(remoteAddr string) string {
	remoteAddr = strings.TrimSpace(remoteAddr)
	if remoteAddr == "" {
		return ""
	}
	if host, _, err := net.SplitHostPort(remoteAddr); err == nil {
		return host
	}
	return remoteAddr
}
