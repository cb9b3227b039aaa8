// Package geo resolves IPv4 addresses to ISO country codes.
//
// Resolution order is cache, local sources (the static table first), then
// external providers when enabled. Every failure degrades to Unknown; the
// classifier never returns an error to the access decision.
package geo

import (
	"context"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Wikid82/geogate/internal/cidr"
	"github.com/Wikid82/geogate/internal/logger"
	"github.com/Wikid82/geogate/internal/metrics"
)

// Unknown is returned when no source could resolve an address.
const Unknown = "UNKNOWN"

// Options tunes lookups and cache lifetimes.
type Options struct {
	ExternalLookup bool
	ResolvedTTL    time.Duration
	UnknownTTL     time.Duration
	Timeout        time.Duration
	UserAgent      string
}

// Classifier owns the country cache.
type Classifier struct {
	cache     Cache
	sources   []Source
	providers []*Provider
	client    *http.Client
	opts      Options
}

// NewClassifier wires a classifier. sources are consulted in order before
// any provider.
func NewClassifier(cache Cache, sources []Source, providers []*Provider, opts Options) *Classifier {
	if opts.ResolvedTTL <= 0 {
		opts.ResolvedTTL = time.Hour
	}
	if opts.UnknownTTL <= 0 {
		opts.UnknownTTL = 5 * time.Minute
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 2 * time.Second
	}
	return &Classifier{
		cache:     cache,
		sources:   sources,
		providers: providers,
		client:    &http.Client{},
		opts:      opts,
	}
}

// SetHTTPClient replaces the client used for provider calls.
func (c *Classifier) SetHTTPClient(client *http.Client) { c.client = client }

// Country returns the country code for ip, or Unknown.
func (c *Classifier) Country(ctx context.Context, ip string) string {
	key := CacheKey(ip)

	code, ok, err := c.cache.Get(ctx, key)
	if err != nil {
		logger.Log().WithError(err).Debug("geo cache read failed, recomputing")
	}
	if ok {
		metrics.IncGeoLookup("cache")
		return code
	}

	code, source := c.resolve(ctx, ip)
	metrics.IncGeoLookup(source)

	ttl := c.opts.ResolvedTTL
	if code == Unknown {
		ttl = c.opts.UnknownTTL
	}
	if err := c.cache.Set(ctx, key, code, ttl); err != nil {
		logger.Log().WithError(err).Warn("geo cache write failed")
	}
	return code
}

// Forget drops the cached result for ip so the next request re-resolves it.
func (c *Classifier) Forget(ctx context.Context, ip string) {
	if err := c.cache.Delete(ctx, CacheKey(ip)); err != nil {
		logger.Log().WithError(err).Warn("geo cache delete failed")
	}
}

func (c *Classifier) resolve(ctx context.Context, ip string) (code, source string) {
	for _, src := range c.sources {
		if code, ok := src.Lookup(ip); ok {
			return code, "local"
		}
	}

	if !c.opts.ExternalLookup || cidr.IsPrivate(ip) {
		return Unknown, "unknown"
	}

	for _, p := range c.providers {
		code, err := c.fetch(ctx, p, ip)
		if err != nil {
			metrics.IncGeoProviderError(p.Name)
			logger.WithFields(logrus.Fields{
				"provider": p.Name,
				"error":    err.Error(),
			}).Debug("geo provider lookup failed")
			continue
		}
		return code, "external"
	}
	return Unknown, "unknown"
}

func (c *Classifier) fetch(ctx context.Context, p *Provider, ip string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()
	return p.fetch(ctx, c.client, c.opts.UserAgent, ip)
}
