package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	bootstrapTTL        = 24 * time.Hour
	bootstrapRetryDelay = 5 * time.Minute
	bootstrapMaxBody    = 2 << 20
)

// Bootstrap holds the IANA TLD -> RDAP base URL table and refreshes it lazily.
// On refresh failure the previous table is kept; unknown TLDs fall back to the
// policy's static table and then to generated URL patterns.
type Bootstrap struct {
	hc         Doer
	url        string
	ua         string
	header     http.Header
	timeout    time.Duration
	maxRetries int
	backoff    Backoff
	policy     *Policy
	log        *zap.Logger
	metrics    *Metrics
	now        func() time.Time

	sf singleflight.Group

	mu           sync.RWMutex
	table        map[string][]string
	fetchedAt    time.Time
	failedAt     time.Time
	etag         string
	lastModified string
}

func (b *Bootstrap) stale() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	now := b.now()
	if !b.failedAt.IsZero() && now.Sub(b.failedAt) < bootstrapRetryDelay {
		return false
	}
	return b.fetchedAt.IsZero() || now.Sub(b.fetchedAt) >= bootstrapTTL
}

// Candidates returns the ordered, de-duplicated endpoints for tld.
func (b *Bootstrap) Candidates(ctx context.Context, tld string) []string {
	tld = trimDotLower(tld)
	if b.stale() {
		if err := b.refresh(ctx, false); err != nil {
			b.log.Warn("bootstrap refresh failed, using cached/static table", zap.Error(err))
		}
	}
	b.mu.RLock()
	fromTable := append([]string(nil), b.table[tld]...)
	b.mu.RUnlock()

	out := dedupe(append(fromTable, b.policy.StaticServers(tld)...), normalizeEndpoint)
	if len(out) == 0 {
		out = dedupe(b.policy.PatternServers(tld), normalizeEndpoint)
	}
	return out
}

// Refresh forces a fetch of the bootstrap document, ignoring the TTL.
func (b *Bootstrap) Refresh(ctx context.Context) error { return b.refresh(ctx, true) }

func (b *Bootstrap) refresh(ctx context.Context, force bool) error {
	_, err, _ := b.sf.Do("bootstrap", func() (any, error) {
		var err error
		for attempt := 1; ; attempt++ {
			var retry bool
			retry, err = b.fetch(ctx, force)
			if err == nil || !retry || attempt > b.maxRetries {
				break
			}
			if serr := sleepCtx(ctx, b.backoff(attempt)); serr != nil {
				err = serr
				break
			}
		}
		b.mu.Lock()
		if err != nil {
			b.failedAt = b.now()
		} else {
			b.failedAt = time.Time{}
		}
		b.mu.Unlock()
		b.metrics.bootstrapRefresh(err)
		return nil, err
	})
	return err
}

// fetch performs one conditional GET. The bool reports whether a retry may help.
func (b *Bootstrap) fetch(ctx context.Context, force bool) (bool, error) {
	reqCtx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, b.url, nil)
	if err != nil {
		return false, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", b.ua)
	copyHeaders(req.Header, b.header)

	b.mu.RLock()
	if !force && len(b.table) > 0 {
		if b.etag != "" {
			req.Header.Set("If-None-Match", b.etag)
		}
		if b.lastModified != "" {
			req.Header.Set("If-Modified-Since", b.lastModified)
		}
	}
	b.mu.RUnlock()

	resp, err := b.hc.Do(req)
	if err != nil {
		return isRetryableNetErr(err), err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotModified:
		b.mu.Lock()
		b.fetchedAt = b.now()
		b.mu.Unlock()
		return false, nil
	case resp.StatusCode == http.StatusOK:
		body, err := io.ReadAll(io.LimitReader(resp.Body, bootstrapMaxBody))
		if err != nil {
			return true, err
		}
		table, err := parseBootstrap(body)
		if err != nil {
			return false, err
		}
		b.mu.Lock()
		b.table = table
		b.fetchedAt = b.now()
		b.etag = resp.Header.Get("ETag")
		b.lastModified = resp.Header.Get("Last-Modified")
		b.mu.Unlock()
		b.log.Debug("bootstrap table loaded", zap.Int("tlds", len(table)))
		return false, nil
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return true, fmt.Errorf("bootstrap fetch failed: %s", resp.Status)
	default:
		return false, fmt.Errorf("bootstrap fetch failed: %s", resp.Status)
	}
}

// parseBootstrap decodes an RFC 9224 document: services is [[tlds...], [urls...]].
func parseBootstrap(body []byte) (map[string][]string, error) {
	var obj struct {
		Services [][]any `json:"services"`
	}
	if err := json.Unmarshal(body, &obj); err != nil {
		return nil, fmt.Errorf("parse bootstrap: %w", err)
	}
	table := make(map[string][]string)
	for _, svc := range obj.Services {
		if len(svc) != 2 {
			continue
		}
		tlds := toStringSlice(svc[0])
		urls := toStringSlice(svc[1])
		if len(urls) == 0 {
			continue
		}
		// https first, then whatever else the registry publishes.
		eps := make([]string, 0, len(urls))
		for _, u := range urls {
			if strings.HasPrefix(lower(u), "https://") {
				eps = append(eps, normalizeEndpoint(u))
			}
		}
		for _, u := range urls {
			if !strings.HasPrefix(lower(u), "https://") {
				eps = append(eps, normalizeEndpoint(u))
			}
		}
		for _, tl := range tlds {
			k := trimDotLower(tl)
			table[k] = dedupe(append(table[k], eps...), normalizeEndpoint)
		}
	}
	if len(table) == 0 {
		return nil, fmt.Errorf("parse bootstrap: no services")
	}
	return table, nil
}

// FetchedAt reports when the table was last confirmed fresh.
func (b *Bootstrap) FetchedAt() time.Time {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.fetchedAt
}

func (b *Bootstrap) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.table = nil
	b.fetchedAt, b.failedAt = time.Time{}, time.Time{}
	b.etag, b.lastModified = "", ""
}
