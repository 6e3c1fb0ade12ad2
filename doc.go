// Package resolver determines whether a domain is registered and returns its
// registration data in one normalized shape.
//
// Resolution runs in tiers. RDAP servers for the TLD (from the IANA bootstrap
// file, a static table, or generated URL patterns) are raced concurrently and
// the first conclusive answer wins. If RDAP cannot answer, a hosted WHOIS
// gateway is asked, and finally a WHOIS extraction service. Results are cached
// per domain for a short TTL.
//
//	r := resolver.New(resolver.WithGateway(os.Getenv("WHODAT_URL"), ""))
//	rec, err := r.Resolve(ctx, "example.com")
//	if errors.Is(err, resolver.ErrInvalidDomain) { ... }
package resolver
