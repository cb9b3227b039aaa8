package geo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/time/rate"
)

var errRateLimited = errors.New("provider rate limit reached")

// ParseFunc extracts a candidate country code from a response body.
type ParseFunc func(body string) string

// ParsePlain uses the whole trimmed body.
func ParsePlain(body string) string {
	return strings.TrimSpace(body)
}

// ParseFirstLine uses the first line of a newline-delimited body.
func ParseFirstLine(body string) string {
	body = strings.TrimSpace(body)
	if i := strings.IndexByte(body, '\n'); i >= 0 {
		body = body[:i]
	}
	return strings.TrimSpace(body)
}

// Provider is one external country lookup endpoint. Endpoint contains the
// literal "{ip}" where the address is substituted.
type Provider struct {
	Name     string
	Endpoint string
	Parse    ParseFunc

	limiter *rate.Limiter
}

// NewProvider builds a provider allowing perSecond calls with a matching
// burst. perSecond <= 0 disables limiting.
func NewProvider(name, endpoint string, parse ParseFunc, perSecond float64) *Provider {
	p := &Provider{Name: name, Endpoint: endpoint, Parse: parse}
	if perSecond > 0 {
		burst := int(perSecond)
		if burst < 1 {
			burst = 1
		}
		p.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
	return p
}

// DefaultProviders returns ipinfo.io (plain body) and ip-api.com (first
// line of the line format).
func DefaultProviders(perSecond float64) []*Provider {
	return []*Provider{
		NewProvider("ipinfo", "http://ipinfo.io/{ip}/country", ParsePlain, perSecond),
		NewProvider("ip-api", "http://ip-api.com/line/{ip}?fields=countryCode", ParseFirstLine, perSecond),
	}
}

// URL returns the endpoint for ip.
func (p *Provider) URL(ip string) string {
	return strings.ReplaceAll(p.Endpoint, "{ip}", ip)
}

// fetch performs one GET and returns a validated uppercase code. The caller
// bounds ctx with the provider timeout.
func (p *Provider) fetch(ctx context.Context, client *http.Client, userAgent, ip string) (string, error) {
	if p.limiter != nil && !p.limiter.Allow() {
		return "", errRateLimited
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.URL(ip), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/plain")

	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 256))
	if err != nil {
		return "", err
	}

	parse := p.Parse
	if parse == nil {
		parse = ParsePlain
	}
	code := parse(string(body))
	if !ValidCode(code) {
		return "", fmt.Errorf("malformed country code %q", code)
	}
	return strings.ToUpper(code), nil
}

// ValidCode reports whether s is exactly two ASCII letters.
func ValidCode(s string) bool {
	if len(s) != 2 {
		return false
	}
	for i := 0; i < 2; i++ {
		c := s[i]
		if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z') {
			return false
		}
	}
	return true
}
