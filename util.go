package resolver

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// maxRetryAfter caps how long a server may ask us to wait before a retry.
const maxRetryAfter = 10 * time.Second

// lastLabel returns the lowercased TLD of a domain name.
func lastLabel(domain string) string {
	domain = strings.TrimSuffix(domain, ".")
	if i := strings.LastIndexByte(domain, '.'); i >= 0 {
		domain = domain[i+1:]
	}
	return strings.ToLower(domain)
}

func trimDotLower(s string) string {
	return strings.ToLower(strings.Trim(strings.TrimSpace(s), "."))
}

// normalizeEndpoint guarantees exactly one trailing slash.
func normalizeEndpoint(u string) string {
	u = strings.TrimSpace(u)
	if u == "" {
		return ""
	}
	return strings.TrimRight(u, "/") + "/"
}

// joinPath appends escaped path elements to base. An unparseable base is
// joined textually so the request fails at the transport with a useful URL.
func joinPath(base string, elems ...string) string {
	if u, err := url.JoinPath(base, elems...); err == nil {
		return u
	}
	return strings.TrimRight(base, "/") + "/" + strings.Join(elems, "/")
}

func lower(s string) string { return strings.ToLower(s) }

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if sub != "" && strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func copyHeaders(dst, src http.Header) {
	for k, vs := range src {
		dst[k] = append(dst[k], vs...)
	}
}

// retryAfter honours a Retry-After header in either delta-seconds or
// HTTP-date form when it is shorter than maxRetryAfter.
func retryAfter(h http.Header, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(h.Get("Retry-After"))
	if v == "" {
		return fallback
	}
	var d time.Duration
	if n, err := strconv.Atoi(v); err == nil {
		d = time.Duration(n) * time.Second
	} else if t, err := http.ParseTime(v); err == nil {
		d = time.Until(t)
	}
	if d <= 0 || d >= maxRetryAfter {
		return fallback
	}
	return d
}

func temporary(err error) bool {
	var t interface{ Temporary() bool }
	return errors.As(err, &t) && t.Temporary()
}

// toStringSlice keeps the string members of a decoded JSON array.
func toStringSlice(v any) []string {
	arr, _ := v.([]any)
	var out []string
	for _, x := range arr {
		if s, ok := x.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
