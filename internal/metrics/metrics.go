package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	gateDecisionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "geogate_decisions_total",
		Help: "Access decisions on the protected surface by outcome and deciding rule",
	}, []string{"decision", "rule"})
	geoLookupsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "geogate_geo_lookups_total",
		Help: "Country resolutions by the source that answered",
	}, []string{"source"})
	geoProviderErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "geogate_geo_provider_errors_total",
		Help: "Failed external geo provider calls",
	}, []string{"provider"})
	bypassGrantsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "geogate_bypass_grants_total",
		Help: "Emergency bypass grants issued",
	})
	spamBlockedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "geogate_spam_blocked_total",
		Help: "Rejected form submissions by reason",
	}, []string{"reason"})
)

// Register registers Prometheus collectors. Call once at startup.
func Register(registry prometheus.Registerer) {
	registry.MustRegister(gateDecisionsTotal, geoLookupsTotal, geoProviderErrorsTotal, bypassGrantsTotal, spamBlockedTotal)
}

// IncDecision counts an allow/deny outcome.
func IncDecision(decision, rule string) { gateDecisionsTotal.WithLabelValues(decision, rule).Inc() }

// IncGeoLookup counts a resolution answered by source.
func IncGeoLookup(source string) { geoLookupsTotal.WithLabelValues(source).Inc() }

// IncGeoProviderError counts a failed provider call.
func IncGeoProviderError(provider string) { geoProviderErrorsTotal.WithLabelValues(provider).Inc() }

// IncBypassGrant counts an issued bypass grant.
func IncBypassGrant() { bypassGrantsTotal.Inc() }

// IncSpamBlocked counts a rejected submission.
func IncSpamBlocked(reason string) { spamBlockedTotal.WithLabelValues(reason).Inc() }
