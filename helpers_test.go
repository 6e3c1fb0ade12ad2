package resolver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
)

// testPolicyYAML has no static table and no URL patterns, so the only RDAP
// servers a test sees are the ones its bootstrap document lists.
const testPolicyYAML = `
default_timeout: 2s
categories:
  slow:
    timeout: 300ms
    tlds: [slow]
unsupported: [cn]
not_found_phrases:
  - "no match for"
  - "not found"
  - "no matching query"
  - "no data found"
  - "没有找到"
`

func testPolicy(t *testing.T) *Policy {
	t.Helper()
	p, err := LoadPolicy(strings.NewReader(testPolicyYAML))
	if err != nil {
		t.Fatalf("LoadPolicy: %v", err)
	}
	return p
}

// bootstrapDoc renders an RFC 9224 dns.json with one service per TLD.
func bootstrapDoc(t *testing.T, services map[string][]string) []byte {
	t.Helper()
	doc := map[string]any{"version": "1.0", "publication": "2024-01-01T00:00:00Z"}
	var svcs [][]any
	for tld, urls := range services {
		svcs = append(svcs, []any{[]string{tld}, urls})
	}
	doc["services"] = svcs
	b, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal bootstrap: %v", err)
	}
	return b
}

// countingServer wraps h and counts the requests it receives.
func countingServer(t *testing.T, h http.HandlerFunc) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		h(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

// bootstrapServer serves a fixed bootstrap document listing services.
func bootstrapServer(t *testing.T, services map[string][]string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	doc := bootstrapDoc(t, services)
	return countingServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(doc)
	})
}

func rdapJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/rdap+json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

// newTestResolver builds a Resolver with the test policy, no fallback rate
// limit, no retries and a short stagger. opts are applied last.
func newTestResolver(t *testing.T, bootstrapURL string, opts ...Option) *Resolver {
	t.Helper()
	base := []Option{
		WithPolicy(testPolicy(t)),
		WithBootstrapURL(bootstrapURL),
		WithStagger(5 * time.Millisecond),
		WithMaxRetries(0),
		WithTimeout(2 * time.Second),
		WithFallbackRateLimit(0, 0),
		WithLogger(zaptest.NewLogger(t)),
	}
	return New(append(base, opts...)...)
}

const exampleComRDAP = `{
  "objectClassName": "domain",
  "handle": "2336799_DOMAIN_COM-VRSN",
  "ldhName": "EXAMPLE.COM",
  "status": ["client delete prohibited", "client transfer prohibited", "client update prohibited"],
  "events": [
    {"eventAction": "registration", "eventDate": "1995-08-14T04:00:00Z"},
    {"eventAction": "expiration", "eventDate": "2025-08-13T04:00:00Z"},
    {"eventAction": "last changed", "eventDate": "2024-08-14T07:01:34Z"},
    {"eventAction": "last update of RDAP database", "eventDate": "2024-10-01T00:00:00Z"}
  ],
  "entities": [
    {
      "objectClassName": "entity",
      "handle": "376",
      "roles": ["registrar"],
      "publicIds": [{"type": "IANA Registrar ID", "identifier": "376"}],
      "links": [{"value": "https://rdap.example/", "rel": "about", "href": "https://www.iana.org"}],
      "port43": "whois.iana.org",
      "vcardArray": ["vcard", [
        ["version", {}, "text", "4.0"],
        ["fn", {}, "text", "RESERVED-Internet Assigned Numbers Authority"]
      ]],
      "entities": [
        {
          "objectClassName": "entity",
          "roles": ["abuse"],
          "vcardArray": ["vcard", [
            ["version", {}, "text", "4.0"],
            ["fn", {}, "text", ""],
            ["tel", {"type": "voice"}, "uri", "tel:+1.3103015800"],
            ["email", {}, "text", "abuse@iana.org"]
          ]]
        }
      ]
    },
    {
      "objectClassName": "entity",
      "roles": ["registrant"],
      "vcardArray": ["vcard", [
        ["version", {}, "text", "4.0"],
        ["fn", {}, "text", "Jane Doe"],
        ["org", {}, "text", "Example Org"],
        ["adr", {}, "text", ["", "", "1 Main St", "Los Angeles", "CA", "90001", "US"]],
        ["email", {}, "text", "jane@example.com"]
      ]]
    }
  ],
  "nameservers": [
    {"objectClassName": "nameserver", "ldhName": "A.IANA-SERVERS.NET"},
    {"objectClassName": "nameserver", "ldhName": "B.IANA-SERVERS.NET."},
    {"objectClassName": "nameserver", "ldhName": "a.iana-servers.net"}
  ],
  "secureDNS": {"delegationSigned": "true"}
}`
