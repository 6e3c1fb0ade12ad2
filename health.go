package resolver

import (
	"sync"
	"time"
)

// Health remembers, per TLD, which RDAP endpoints answered recently and which
// failed. It is advisory: an empty or stale entry means bootstrap order is used.
type Health struct {
	mu         sync.Mutex
	workingTTL time.Duration
	failedTTL  time.Duration
	now        func() time.Time
	tlds       map[string]*tldHealth
}

type tldHealth struct {
	working []healthMark // most recent first
	failed  map[string]time.Time
}

type healthMark struct {
	endpoint string
	at       time.Time
}

func NewHealth(workingTTL, failedTTL time.Duration) *Health {
	if workingTTL <= 0 {
		workingTTL = 6 * time.Hour
	}
	if failedTTL <= 0 {
		failedTTL = 30 * time.Minute
	}
	return &Health{workingTTL: workingTTL, failedTTL: failedTTL, now: time.Now, tlds: make(map[string]*tldHealth)}
}

func (h *Health) entry(tld string) *tldHealth {
	e, ok := h.tlds[tld]
	if !ok {
		e = &tldHealth{failed: make(map[string]time.Time)}
		h.tlds[tld] = e
	}
	return e
}

// MarkFailed records that endpoint rate-limited or errored for tld.
func (h *Health) MarkFailed(tld, endpoint string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	tld, endpoint = trimDotLower(tld), normalizeEndpoint(endpoint)
	e := h.entry(tld)
	e.failed[endpoint] = h.now()
	e.working = removeMark(e.working, endpoint)
}

// MarkWorking moves endpoint to the front of tld's working list.
func (h *Health) MarkWorking(tld, endpoint string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	tld, endpoint = trimDotLower(tld), normalizeEndpoint(endpoint)
	e := h.entry(tld)
	delete(e.failed, endpoint)
	e.working = append([]healthMark{{endpoint: endpoint, at: h.now()}}, removeMark(e.working, endpoint)...)
}

// Filter orders candidates working-first and drops recently failed ones.
// If nothing would remain, candidates is returned unchanged.
func (h *Health) Filter(tld string, candidates []string) []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	tld = trimDotLower(tld)
	e, ok := h.tlds[tld]
	if !ok || len(candidates) == 0 {
		return candidates
	}
	h.prune(e)

	in := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		in[normalizeEndpoint(c)] = true
	}
	out := make([]string, 0, len(candidates))
	placed := make(map[string]bool, len(candidates))
	for _, m := range e.working {
		if in[m.endpoint] && !placed[m.endpoint] {
			out = append(out, m.endpoint)
			placed[m.endpoint] = true
		}
	}
	for _, c := range candidates {
		c = normalizeEndpoint(c)
		if placed[c] {
			continue
		}
		if _, bad := e.failed[c]; bad {
			continue
		}
		out = append(out, c)
		placed[c] = true
	}
	if len(out) == 0 {
		return candidates
	}
	return out
}

func (h *Health) prune(e *tldHealth) {
	now := h.now()
	for ep, at := range e.failed {
		if now.Sub(at) >= h.failedTTL {
			delete(e.failed, ep)
		}
	}
	kept := e.working[:0]
	for _, m := range e.working {
		if now.Sub(m.at) < h.workingTTL {
			kept = append(kept, m)
		}
	}
	e.working = kept
}

func (h *Health) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.tlds = make(map[string]*tldHealth)
}

func removeMark(ms []healthMark, endpoint string) []healthMark {
	out := ms[:0:0]
	for _, m := range ms {
		if m.endpoint != endpoint {
			out = append(out, m)
		}
	}
	return out
}
