package resolver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
)

// rdapEngine races RDAP queries across the candidate servers of a TLD.
type rdapEngine struct {
	hc            Doer
	ua            string
	header        http.Header
	bootstrap     *Bootstrap
	health        *Health
	policy        *Policy
	maxCandidates int
	stagger       time.Duration
	log           *zap.Logger
	metrics       *Metrics
}

type outcome int

const (
	outcomeInconclusive outcome = iota
	outcomeAvailable
	outcomeRegistered
	outcomeEndpointFailed // 429 or 5xx
)

func (o outcome) String() string {
	switch o {
	case outcomeAvailable:
		return "available"
	case outcomeRegistered:
		return "registered"
	case outcomeEndpointFailed:
		return "endpoint_failed"
	default:
		return "inconclusive"
	}
}

type candidateResult struct {
	endpoint string
	outcome  outcome
	record   *Record
	err      error
}

func (e *rdapEngine) Source() Source { return SourceRDAP }

// Lookup returns the first conclusive answer among the candidates.
func (e *rdapEngine) Lookup(ctx context.Context, domain string) (*Record, error) {
	tld := lastLabel(domain)
	if e.policy.IsUnsupported(tld) {
		return nil, errorf(KindUnsupportedTLD, domain, "registry for .%s runs no RDAP service", tld)
	}
	budget := e.policy.Timeout(tld)

	// A slow bootstrap refresh may use half the budget; after that the
	// static table and URL patterns answer.
	bctx, bcancel := context.WithTimeout(ctx, budget/2)
	candidates := e.health.Filter(tld, e.bootstrap.Candidates(bctx, tld))
	bcancel()
	if len(candidates) > e.maxCandidates {
		candidates = candidates[:e.maxCandidates]
	}
	if len(candidates) == 0 {
		return nil, errorf(KindNoConclusiveResponse, domain, "no RDAP servers known for .%s", tld)
	}

	ctx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	// Buffered so abandoned queries never block after a winner returns.
	results := make(chan candidateResult, len(candidates))
	for i, ep := range candidates {
		go func(i int, ep string) {
			results <- e.query(ctx, i, tld, ep, domain)
		}(i, ep)
	}

	var errs []error
	for range candidates {
		res := <-results
		e.metrics.rdapCandidate(res.outcome)
		switch res.outcome {
		case outcomeAvailable, outcomeRegistered:
			e.health.MarkWorking(tld, res.endpoint)
			e.log.Debug("rdap conclusive",
				zap.String("domain", domain), zap.String("server", res.endpoint), zap.Stringer("outcome", res.outcome))
			return res.record, nil
		case outcomeEndpointFailed:
			e.health.MarkFailed(tld, res.endpoint)
		case outcomeInconclusive:
		}
		e.log.Debug("rdap inconclusive",
			zap.String("domain", domain), zap.String("server", res.endpoint), zap.Error(res.err))
		errs = append(errs, res.err)
	}
	return nil, newError(exhaustedKind(errs), domain, "", errors.Join(errs...))
}

// exhaustedKind picks the tier error kind once every candidate has failed.
func exhaustedKind(errs []error) Kind {
	timeouts, transport := 0, 0
	for _, err := range errs {
		switch KindOf(err) {
		case KindTimeout:
			timeouts++
			transport++
		case KindNetworkError:
			transport++
		}
	}
	switch {
	case len(errs) > 0 && timeouts == len(errs):
		return KindTimeout
	case len(errs) > 0 && transport == len(errs):
		return KindNetworkError
	}
	return KindNoConclusiveResponse
}

func (e *rdapEngine) query(ctx context.Context, index int, tld, endpoint, domain string) candidateResult {
	res := candidateResult{endpoint: endpoint}
	if index > 0 && e.stagger > 0 {
		t := time.NewTimer(time.Duration(index) * e.stagger)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			res.err = newError(KindTimeout, domain, endpoint, ctx.Err())
			return res
		}
	}

	u := endpoint + "domain/" + url.PathEscape(domain)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		res.err = newError(KindNetworkError, domain, endpoint, err)
		return res
	}
	req.Header.Set("Accept", "application/rdap+json, application/json;q=0.8, */*;q=0.1")
	req.Header.Set("User-Agent", e.ua)
	copyHeaders(req.Header, e.header)

	resp, err := e.hc.Do(req)
	if err != nil {
		res.err = newError(transportKind(ctx, err), domain, endpoint, err)
		return res
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	resp.Body.Close()
	if err != nil {
		res.err = newError(transportKind(ctx, err), domain, endpoint, err)
		return res
	}
	res.outcome, res.record, res.err = classifyRDAP(resp.StatusCode, body, e.policy)
	if res.err != nil {
		var we *WhoisError
		if errors.As(res.err, &we) {
			we.Domain, we.Server = domain, endpoint
		}
	}
	if res.record != nil && res.record.Domain == "" {
		res.record.Domain = domain
	}
	return res
}

// classifyRDAP decides what one server's answer means for the race.
func classifyRDAP(status int, body []byte, policy *Policy) (outcome, *Record, error) {
	switch {
	case status == http.StatusNotFound:
		return outcomeAvailable, availableRecord(""), nil
	case status == http.StatusTooManyRequests || status >= 500:
		return outcomeEndpointFailed, nil, errorf(KindNoConclusiveResponse, "", "HTTP %d %s", status, http.StatusText(status))
	case status != http.StatusOK:
		return outcomeInconclusive, nil, errorf(KindNoConclusiveResponse, "", "HTTP %d %s", status, http.StatusText(status))
	}

	var probe rdapProbe
	if err := json.Unmarshal(body, &probe); err != nil {
		return outcomeInconclusive, nil, newError(KindParseError, "", "", err)
	}
	if lower(probe.ObjectClassName) == "domain" {
		rec, err := ParseDomain(body)
		if err != nil {
			return outcomeInconclusive, nil, err
		}
		return outcomeRegistered, rec, nil
	}
	if rdapNotFound(probe, policy) {
		return outcomeAvailable, availableRecord(""), nil
	}
	return outcomeInconclusive, nil, newError(KindParseError, "", "",
		fmt.Errorf("%w (got %q)", ErrUnexpectedObject("domain"), probe.ObjectClassName))
}

// rdapNotFound recognizes an error object or notice that says the object does not exist.
func rdapNotFound(p rdapProbe, policy *Policy) bool {
	if p.ErrorCode == http.StatusNotFound {
		return true
	}
	if policy.NotFound(p.Title) {
		return true
	}
	for _, d := range p.Description {
		if policy.NotFound(d) {
			return true
		}
	}
	for _, n := range p.Notices {
		if policy.NotFound(n.Title) {
			return true
		}
		for _, d := range n.Description {
			if policy.NotFound(d) {
				return true
			}
		}
	}
	return false
}
