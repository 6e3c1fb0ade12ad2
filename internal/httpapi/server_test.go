package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap/zaptest"

	resolver "github.com/datum-labs/rdap-resolver"
)

type fakeResolver struct {
	rec *resolver.Record
	err error
}

func (f *fakeResolver) Resolve(_ context.Context, domain string) (*resolver.Record, error) {
	if _, err := resolver.NormalizeDomain(domain); err != nil {
		return nil, err
	}
	return f.rec, f.err
}

func sampleRecord() *resolver.Record {
	return &resolver.Record{
		Domain:       "example.com",
		Availability: resolver.Registered,
		Registrar:    &resolver.Registrar{Name: "Example Registrar", IANAID: "376"},
		Dates:        &resolver.Dates{Created: "1995-08-14T04:00:00Z"},
		Status:       []string{"clientTransferProhibited"},
		NameServers:  []string{"a.iana-servers.net"},
		DNSSEC:       resolver.DNSSECSigned,
		Source:       resolver.SourceRDAP,
		QueryTimeMs:  12,
	}
}

func serve(t *testing.T, s *Server, target string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	s.Routes().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, target, nil))
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder, v any) {
	t.Helper()
	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Fatalf("content type: %q", ct)
	}
	if err := json.Unmarshal(rr.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %s: %v", rr.Body.String(), err)
	}
}

func TestGetDomain_OK(t *testing.T) {
	s := New(&fakeResolver{rec: sampleRecord()}, zaptest.NewLogger(t), nil, time.Second)

	rr := serve(t, s, "/domain/example.com")
	if rr.Code != http.StatusOK {
		t.Fatalf("status: %d %s", rr.Code, rr.Body.String())
	}
	var rec resolver.Record
	decode(t, rr, &rec)
	if rec.Domain != "example.com" || rec.Registrar == nil || rec.Registrar.IANAID != "376" {
		t.Fatalf("record: %+v", rec)
	}
	if !strings.Contains(rr.Body.String(), `"nameServers"`) {
		t.Fatalf("camelCase keys expected: %s", rr.Body.String())
	}
}

func TestGetDomain_SnakeCase(t *testing.T) {
	s := New(&fakeResolver{rec: sampleRecord()}, zaptest.NewLogger(t), nil, time.Second)

	rr := serve(t, s, "/domain/example.com?case=snake")
	if rr.Code != http.StatusOK {
		t.Fatalf("status: %d", rr.Code)
	}
	body := rr.Body.String()
	for _, key := range []string{`"name_servers"`, `"query_time_ms":12`, `"iana_id":"376"`, `"created":"1995-08-14T04:00:00Z"`} {
		if !strings.Contains(body, key) {
			t.Fatalf("snake body missing %s: %s", key, body)
		}
	}
	if strings.Contains(body, `"nameServers"`) {
		t.Fatalf("camelCase leaked into snake output: %s", body)
	}
}

func TestGetDomain_InvalidDomain(t *testing.T) {
	s := New(&fakeResolver{rec: sampleRecord()}, zaptest.NewLogger(t), nil, time.Second)

	rr := serve(t, s, "/domain/bad..domain")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: %d", rr.Code)
	}
	var env errorEnvelope
	decode(t, rr, &env)
	if env.Error != "INVALID_DOMAIN" || env.Domain != "bad..domain" {
		t.Fatalf("envelope: %+v", env)
	}
	if id, _ := env.Metadata["requestId"].(string); id == "" {
		t.Fatalf("missing request id: %+v", env.Metadata)
	}
}

func TestGetDomain_AllTiersFailed(t *testing.T) {
	rerr := &resolver.ResolveError{
		Domain:      "x.test",
		QueryTimeMs: 1500,
		Failures: []resolver.TierFailure{
			{Source: resolver.SourceRDAP, Err: fmt.Errorf("all candidates timed out: %w", resolver.ErrTimeout)},
			{Source: resolver.SourceGateway, Err: fmt.Errorf("HTTP 502: %w", resolver.ErrServiceUnavailable)},
			{Source: resolver.SourceExtraction, Err: errors.New("boom")},
		},
	}
	s := New(&fakeResolver{err: rerr}, zaptest.NewLogger(t), nil, time.Second)

	rr := serve(t, s, "/domain/x.test")
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status: %d", rr.Code)
	}
	var env struct {
		Error    string `json:"error"`
		Domain   string `json:"domain"`
		Metadata struct {
			RequestID    string  `json:"requestId"`
			Availability string  `json:"availability"`
			QueryTimeMs  int64   `json:"queryTimeMs"`
			Causes       []cause `json:"causes"`
		} `json:"metadata"`
	}
	decode(t, rr, &env)
	if env.Error != "SERVICE_UNAVAILABLE" || env.Domain != "x.test" {
		t.Fatalf("envelope: %+v", env)
	}
	md := env.Metadata
	if md.RequestID == "" || md.Availability != "unknown" || md.QueryTimeMs != 1500 {
		t.Fatalf("metadata: %+v", md)
	}
	if len(md.Causes) != 3 {
		t.Fatalf("causes: %+v", md.Causes)
	}
	want := []cause{
		{Tier: "rdap", Kind: "TIMEOUT"},
		{Tier: "gateway", Kind: "SERVICE_UNAVAILABLE"},
		{Tier: "extraction", Kind: "SERVICE_UNAVAILABLE"},
	}
	for i, w := range want {
		if md.Causes[i].Tier != w.Tier || md.Causes[i].Kind != w.Kind || md.Causes[i].Message == "" {
			t.Fatalf("cause %d: %+v", i, md.Causes[i])
		}
	}
}

func TestGetDomain_UnexpectedError(t *testing.T) {
	s := New(&fakeResolver{err: context.Canceled}, zaptest.NewLogger(t), nil, time.Second)
	rr := serve(t, s, "/domain/example.com")
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status: %d", rr.Code)
	}
	var env errorEnvelope
	decode(t, rr, &env)
	if env.Error != "SERVICE_UNAVAILABLE" {
		t.Fatalf("envelope: %+v", env)
	}
}

func TestHealthzAndMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := prometheus.NewCounter(prometheus.CounterOpts{Name: "resolver_test_total", Help: "test"})
	reg.MustRegister(c)
	c.Inc()

	s := New(&fakeResolver{}, zaptest.NewLogger(t), promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), 0)
	if rr := serve(t, s, "/healthz"); rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `"ok"`) {
		t.Fatalf("healthz: %d %s", rr.Code, rr.Body.String())
	}
	rr := serve(t, s, "/metrics")
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "resolver_test_total 1") {
		t.Fatalf("metrics: %d %s", rr.Code, rr.Body.String())
	}

	noMetrics := New(&fakeResolver{}, nil, nil, 0)
	if rr := serve(t, noMetrics, "/metrics"); rr.Code != http.StatusNotFound {
		t.Fatalf("metrics should be absent, got %d", rr.Code)
	}
}
