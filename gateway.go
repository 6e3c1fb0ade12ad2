package resolver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// gatewayTier queries a hosted WHOIS-over-HTTP gateway: GET <base>/<domain>.
// The body is either whois-parser JSON or plain WHOIS text.
type gatewayTier struct {
	http    *httpCaller
	baseURL string
	apiKey  string
	limiter *rate.Limiter
	policy  *Policy
	log     *zap.Logger
}

func (g *gatewayTier) Source() Source { return SourceGateway }

func (g *gatewayTier) Lookup(ctx context.Context, domain string) (*Record, error) {
	if g.baseURL == "" {
		return nil, errorf(KindServiceUnavailable, domain, "gateway not configured")
	}
	if g.limiter != nil && !g.limiter.Allow() {
		return nil, errorf(KindServiceUnavailable, domain, "gateway rate limit exceeded")
	}
	h := http.Header{"Accept": {"application/json, text/plain;q=0.9"}}
	if g.apiKey != "" {
		h.Set("Authorization", "Bearer "+g.apiKey)
	}
	res, err := g.http.do(ctx, http.MethodGet, joinPath(g.baseURL, domain), nil, h)
	if err != nil && res == nil {
		return nil, newError(transportKind(ctx, err), domain, g.baseURL, err)
	}
	g.log.Debug("gateway answered",
		zap.String("domain", domain), zap.Int("status", res.status), zap.String("body", truncate(string(res.body), 120)))
	switch {
	case res.status == http.StatusOK:
	case res.status == http.StatusNotFound && g.policy.NotFound(string(res.body)):
		return availableRecord(domain), nil
	default:
		return nil, newError(KindServiceUnavailable, domain, g.baseURL, fmt.Errorf("HTTP %d", res.status))
	}
	return classifyGatewayBody(domain, res.body, g.policy)
}

// classifyGatewayBody turns a 200 gateway body into a record, an available
// answer, or ServiceUnavailable when it is neither.
func classifyGatewayBody(domain string, body []byte, policy *Policy) (*Record, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, errorf(KindServiceUnavailable, domain, "empty gateway body")
	}
	if trimmed[0] == '{' {
		var p gatewayPayload
		if err := json.Unmarshal(trimmed, &p); err != nil {
			return nil, newError(KindServiceUnavailable, domain, "", fmt.Errorf("gateway JSON: %w", err))
		}
		if policy.NotFound(p.Error) || policy.NotFound(p.Message) {
			return availableRecord(domain), nil
		}
		if p.Domain != nil {
			rec := recordFromWhoisInfo(p.WhoisInfo, dnssecStated(trimmed))
			if !rec.empty() {
				rec.Domain = domain
				return rec, nil
			}
		}
		return nil, errorf(KindServiceUnavailable, domain, "ambiguous gateway response: %s", firstNonEmpty(p.Error, p.Message, "no registration data"))
	}

	text := string(trimmed)
	if policy.NotFound(text) {
		return availableRecord(domain), nil
	}
	rec, notFound, err := parseRawWhois(text)
	switch {
	case notFound:
		return availableRecord(domain), nil
	case err != nil:
		return nil, newError(KindServiceUnavailable, domain, "", fmt.Errorf("ambiguous gateway text: %w", err))
	}
	rec.Domain = domain
	return rec, nil
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
