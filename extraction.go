package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// extractionTier fetches raw WHOIS text (GET <raw>/<domain>) and posts it to an
// extraction endpoint that answers with normalized key:value lines. Without an
// extraction endpoint the raw text is parsed locally with whois-parser.
type extractionTier struct {
	http       *httpCaller
	rawURL     string
	extractURL string
	apiKey     string
	limiter    *rate.Limiter
	policy     *Policy
	log        *zap.Logger
}

type extractRequest struct {
	Domain string `json:"domain"`
	Raw    string `json:"raw"`
}

func (x *extractionTier) Source() Source { return SourceExtraction }

func (x *extractionTier) Lookup(ctx context.Context, domain string) (*Record, error) {
	if x.rawURL == "" {
		return nil, errorf(KindServiceUnavailable, domain, "extraction not configured")
	}
	if x.limiter != nil && !x.limiter.Allow() {
		return nil, errorf(KindServiceUnavailable, domain, "extraction rate limit exceeded")
	}
	raw, err := x.fetchRaw(ctx, domain)
	if err != nil {
		return nil, err
	}
	if x.policy.NotFound(raw) {
		rec := availableRecord(domain)
		rec.RawText = raw
		return rec, nil
	}

	var rec *Record
	if x.extractURL == "" {
		var notFound bool
		rec, notFound, err = parseRawWhois(raw)
		switch {
		case notFound:
			rec = availableRecord(domain)
			rec.RawText = raw
			return rec, nil
		case err != nil:
			return nil, newError(KindServiceUnavailable, domain, "", fmt.Errorf("ambiguous raw whois: %w", err))
		}
	} else {
		lines, err := x.extract(ctx, domain, raw)
		if err != nil {
			return nil, err
		}
		if x.policy.NotFound(lines) {
			rec = availableRecord(domain)
			rec.RawText = raw
			return rec, nil
		}
		rec = recordFromLines(lines)
		if rec.empty() {
			return nil, errorf(KindServiceUnavailable, domain, "ambiguous extraction result: %s", truncate(lines, 80))
		}
	}
	rec.Domain = domain
	rec.RawText = raw
	return rec, nil
}

func (x *extractionTier) headers(accept string) http.Header {
	h := http.Header{"Accept": {accept}}
	if x.apiKey != "" {
		h.Set("Authorization", "Bearer "+x.apiKey)
	}
	return h
}

// fetchRaw accepts either plain text or a JSON object carrying the text in "raw", "whois" or "data".
func (x *extractionTier) fetchRaw(ctx context.Context, domain string) (string, error) {
	res, err := x.http.do(ctx, http.MethodGet, joinPath(x.rawURL, domain), nil, x.headers("text/plain, application/json;q=0.9"))
	if err != nil && res == nil {
		return "", newError(transportKind(ctx, err), domain, x.rawURL, err)
	}
	if res.status != http.StatusOK {
		if res.status == http.StatusNotFound && x.policy.NotFound(string(res.body)) {
			return string(res.body), nil
		}
		return "", newError(KindServiceUnavailable, domain, x.rawURL, fmt.Errorf("raw whois HTTP %d", res.status))
	}
	raw := strings.TrimSpace(string(res.body))
	if strings.HasPrefix(raw, "{") {
		var env struct {
			Raw   string `json:"raw"`
			Whois string `json:"whois"`
			Data  string `json:"data"`
		}
		if err := json.Unmarshal([]byte(raw), &env); err != nil {
			return "", newError(KindServiceUnavailable, domain, x.rawURL, fmt.Errorf("raw whois JSON: %w", err))
		}
		raw = firstNonEmpty(env.Raw, env.Whois, env.Data)
	}
	if raw == "" {
		return "", errorf(KindServiceUnavailable, domain, "empty raw whois")
	}
	return raw, nil
}

func (x *extractionTier) extract(ctx context.Context, domain, raw string) (string, error) {
	payload, err := json.Marshal(extractRequest{Domain: domain, Raw: raw})
	if err != nil {
		return "", newError(KindServiceUnavailable, domain, "", err)
	}
	h := x.headers("text/plain")
	h.Set("Content-Type", "application/json")
	res, err := x.http.do(ctx, http.MethodPost, x.extractURL, payload, h)
	if err != nil && res == nil {
		return "", newError(transportKind(ctx, err), domain, x.extractURL, err)
	}
	if res.status != http.StatusOK {
		return "", newError(KindServiceUnavailable, domain, x.extractURL, fmt.Errorf("extract HTTP %d", res.status))
	}
	x.log.Debug("extraction answered", zap.String("domain", domain), zap.Int("bytes", len(res.body)))
	return string(res.body), nil
}
