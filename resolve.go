package resolver

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Resolve returns the registration record for domain.
//
// Invalid names fail with ErrInvalidDomain before any network activity. When
// every tier fails the error is a *ResolveError matching ErrServiceUnavailable.
// Concurrent calls for the same name share one pipeline run; a caller whose
// ctx ends stops waiting with ErrTimeout while the run continues for the
// others. Results are cached for a TTL chosen by source and availability.
func (r *Resolver) Resolve(ctx context.Context, domain string) (*Record, error) {
	name, err := NormalizeDomain(domain)
	if err != nil {
		return nil, err
	}
	if rec, ok := r.results.Get(name); ok {
		r.metrics.cache(true)
		return rec.clone(), nil
	}
	r.metrics.cache(false)

	// The shared run must not die with whichever caller started it.
	ch := r.group.DoChan(name, func() (any, error) {
		runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.runTimeout(lastLabel(name)))
		defer cancel()
		return r.resolve(runCtx, name)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			r.log.Debug("joined in-flight resolution", zap.String("domain", name))
		}
		return res.Val.(*Record).clone(), nil
	case <-ctx.Done():
		return nil, newError(KindTimeout, name, "", ctx.Err())
	}
}

// runTimeout bounds one pipeline run: the RDAP race and its bootstrap lookup,
// then the gateway call and the two extraction calls.
func (r *Resolver) runTimeout(tld string) time.Duration {
	race := r.policy.Timeout(tld)
	return race + race/2 + 3*r.baseTimeout
}

// resolve walks the tiers in order: RDAP, gateway, extraction.
func (r *Resolver) resolve(ctx context.Context, name string) (*Record, error) {
	start := r.now()
	tld := lastLabel(name)
	var failures []TierFailure

	for _, t := range r.tiers {
		if err := ctx.Err(); err != nil {
			failures = append(failures, TierFailure{Source: t.Source(), Err: newError(KindTimeout, name, "", err)})
			continue
		}
		if t.Source() == SourceRDAP && r.policy.IsUnsupported(tld) {
			err := errorf(KindUnsupportedTLD, name, "registry for .%s runs no RDAP service", tld)
			failures = append(failures, TierFailure{Source: SourceRDAP, Err: err})
			r.log.Debug("skipping rdap tier", zap.String("domain", name), zap.String("tld", tld))
			continue
		}

		tierStart := time.Now()
		rec, err := t.Lookup(ctx, name)
		r.metrics.tier(t.Source(), err, time.Since(tierStart))
		if err != nil {
			r.log.Debug("tier failed",
				zap.String("domain", name), zap.String("tier", string(t.Source())), zap.Error(err))
			failures = append(failures, TierFailure{Source: t.Source(), Err: err})
			continue
		}

		rec.Domain = name
		rec.Source = t.Source()
		rec.QueryTimeMs = r.now().Sub(start).Milliseconds()
		rec.normalize()
		r.results.SetTTL(name, rec, r.policy.cacheTTL(rec))
		r.metrics.resolved(rec)
		r.log.Info("resolved",
			zap.String("domain", name),
			zap.String("source", string(rec.Source)),
			zap.String("availability", string(rec.Availability)),
			zap.Int64("queryTimeMs", rec.QueryTimeMs))
		return rec, nil
	}

	r.metrics.failed()
	rerr := &ResolveError{Domain: name, QueryTimeMs: r.now().Sub(start).Milliseconds(), Failures: failures}
	r.log.Warn("all tiers failed", zap.String("domain", name), zap.Error(rerr))
	return nil, rerr
}
