package resolver

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

// Doer is the minimal http.Client interface we depend on (handy for tests/mocks).
type Doer interface {
	Do(*http.Request) (*http.Response, error)
}

// Tier is one resolution strategy. Lookup returns a record or a *WhoisError.
type Tier interface {
	Source() Source
	Lookup(ctx context.Context, domain string) (*Record, error)
}

// Resolver resolves domains through RDAP, then the WHOIS gateway, then the
// extraction service. It is safe for concurrent use.
type Resolver struct {
	// HTTP / defaults
	hc          Doer
	ua          string
	baseTimeout time.Duration
	headerExtra http.Header

	// sources
	bootstrapURL string
	gatewayURL   string
	gatewayKey   string
	rawWhoisURL  string
	extractURL   string
	extractKey   string

	// caches
	bootstrap *Bootstrap
	health    *Health
	results   *ttlCache[*Record]

	// behavior
	policy        *Policy
	maxCandidates int
	stagger       time.Duration
	maxRetries    int
	backoff       Backoff
	fallbackRate  rate.Limit
	fallbackBurst int
	log           *zap.Logger
	metrics       *Metrics
	now           func() time.Time

	tiers []Tier
	group singleflight.Group
}

// New returns a ready Resolver with good defaults.
func New(opts ...Option) *Resolver {
	r := &Resolver{
		hc:           defaultHTTPClient(),
		ua:           "rdap-resolver/0.1 (+https://example.invalid)",
		baseTimeout:  20 * time.Second,
		headerExtra:  make(http.Header),
		bootstrapURL: "https://data.iana.org/rdap/dns.json",

		health:  NewHealth(6*time.Hour, 30*time.Minute),
		results: newTTLCache[*Record](4096),

		maxCandidates: 5,
		stagger:       200 * time.Millisecond,
		maxRetries:    1,
		backoff:       ExponentialBackoff(200*time.Millisecond, 2.0, 2*time.Second),
		fallbackRate:  rate.Limit(5),
		fallbackBurst: 10,
		log:           zap.NewNop(),
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.policy == nil {
		r.policy = DefaultPolicy()
	}
	if r.maxCandidates <= 0 {
		r.maxCandidates = 5
	}

	r.bootstrap = &Bootstrap{
		hc:         r.hc,
		url:        r.bootstrapURL,
		ua:         r.ua,
		header:     r.headerExtra,
		timeout:    r.baseTimeout,
		maxRetries: r.maxRetries,
		backoff:    r.backoff,
		policy:     r.policy,
		log:        r.log.Named("bootstrap"),
		metrics:    r.metrics,
		now:        r.now,
	}
	r.health.now = r.now
	r.results.now = r.now

	caller := &httpCaller{
		hc:         r.hc,
		ua:         r.ua,
		header:     r.headerExtra,
		timeout:    r.baseTimeout,
		maxRetries: r.maxRetries,
		backoff:    r.backoff,
	}
	r.tiers = []Tier{
		&rdapEngine{
			hc:            r.hc,
			ua:            r.ua,
			header:        r.headerExtra,
			bootstrap:     r.bootstrap,
			health:        r.health,
			policy:        r.policy,
			maxCandidates: r.maxCandidates,
			stagger:       r.stagger,
			log:           r.log.Named("rdap"),
			metrics:       r.metrics,
		},
		&gatewayTier{
			http:    caller,
			baseURL: r.gatewayURL,
			apiKey:  r.gatewayKey,
			limiter: r.newLimiter(),
			policy:  r.policy,
			log:     r.log.Named("gateway"),
		},
		&extractionTier{
			http:       caller,
			rawURL:     r.rawWhoisURL,
			extractURL: r.extractURL,
			apiKey:     r.extractKey,
			limiter:    r.newLimiter(),
			policy:     r.policy,
			log:        r.log.Named("extraction"),
		},
	}
	return r
}

func (r *Resolver) newLimiter() *rate.Limiter {
	if r.fallbackRate <= 0 {
		return nil
	}
	return rate.NewLimiter(r.fallbackRate, r.fallbackBurst)
}

func defaultHTTPClient() *http.Client { return &http.Client{Timeout: 30 * time.Second} }

// RefreshBootstrap forces a re-fetch of the IANA DNS bootstrap right now.
func (r *Resolver) RefreshBootstrap(ctx context.Context) error { return r.bootstrap.Refresh(ctx) }

// Candidates returns the RDAP servers that would be raced for tld, in order.
func (r *Resolver) Candidates(ctx context.Context, tld string) []string {
	tld = trimDotLower(tld)
	return r.health.Filter(tld, r.bootstrap.Candidates(ctx, tld))
}

// ClearCaches empties the bootstrap table, endpoint health and result cache.
func (r *Resolver) ClearCaches() {
	r.bootstrap.Clear()
	r.health.Clear()
	r.results.Clear()
}
