package resolver

import (
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

type Option func(*Resolver)

func WithHTTPDoer(d Doer) Option         { return func(r *Resolver) { r.hc = d } }
func WithUserAgent(ua string) Option     { return func(r *Resolver) { r.ua = ua } }
func WithTimeout(d time.Duration) Option { return func(r *Resolver) { r.baseTimeout = d } }
func WithBootstrapURL(u string) Option   { return func(r *Resolver) { r.bootstrapURL = u } }
func WithPolicy(p *Policy) Option        { return func(r *Resolver) { r.policy = p } }
func WithMaxCandidates(n int) Option     { return func(r *Resolver) { r.maxCandidates = n } }
func WithStagger(d time.Duration) Option { return func(r *Resolver) { r.stagger = d } }
func WithMaxRetries(n int) Option        { return func(r *Resolver) { r.maxRetries = n } }
func WithBackoff(b Backoff) Option       { return func(r *Resolver) { r.backoff = b } }
func WithHeader(k, v string) Option      { return func(r *Resolver) { r.headerExtra.Add(k, v) } }
func WithMetrics(m *Metrics) Option      { return func(r *Resolver) { r.metrics = m } }

func WithLogger(l *zap.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.log = l
		}
	}
}

// WithGateway enables the WHOIS gateway tier.
func WithGateway(baseURL, apiKey string) Option {
	return func(r *Resolver) { r.gatewayURL, r.gatewayKey = baseURL, apiKey }
}

// WithExtraction enables the extraction tier. extractURL may be empty, in which
// case raw WHOIS text is parsed locally.
func WithExtraction(rawURL, extractURL, apiKey string) Option {
	return func(r *Resolver) { r.rawWhoisURL, r.extractURL, r.extractKey = rawURL, extractURL, apiKey }
}

// WithFallbackRateLimit bounds requests per second to each fallback tier; rps <= 0 disables it.
func WithFallbackRateLimit(rps float64, burst int) Option {
	return func(r *Resolver) {
		r.fallbackRate = rate.Limit(rps)
		if burst > 0 {
			r.fallbackBurst = burst
		}
	}
}

// WithClock replaces time.Now for cache and health expiry.
func WithClock(now func() time.Time) Option { return func(r *Resolver) { r.now = now } }

func WithCacheSize(n int) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.results.Resize(n)
		}
	}
}
