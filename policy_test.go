package resolver

import (
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestDefaultPolicy(t *testing.T) {
	p := DefaultPolicy()
	if got := p.Timeout("ORG"); got != 15*time.Second {
		t.Fatalf("org timeout: %v", got)
	}
	if got := p.Timeout("br"); got != 18*time.Second {
		t.Fatalf("br timeout: %v", got)
	}
	if got := p.Timeout("example"); got != 10*time.Second {
		t.Fatalf("default timeout: %v", got)
	}
	for _, tld := range []string{"cn", ".RU", "jp"} {
		if !p.IsUnsupported(tld) {
			t.Fatalf("%s should be unsupported", tld)
		}
	}
	if p.IsUnsupported("com") {
		t.Fatalf("com runs RDAP")
	}
	if got := p.StaticServers("com"); !reflect.DeepEqual(got, []string{"https://rdap.verisign.com/com/v1/"}) {
		t.Fatalf("static com: %v", got)
	}
	if !p.NotFound(`No match for "NOPE-123.COM".`) || !p.NotFound("该域名未注册") {
		t.Fatalf("not-found phrases not recognized")
	}
	if p.NotFound("Domain Name: EXAMPLE.COM") {
		t.Fatalf("registered text misread as not found")
	}
}

func TestPolicy_PatternServers(t *testing.T) {
	p := DefaultPolicy()
	got := p.PatternServers(".ZZ")
	want := []string{
		"https://rdap.nic.zz/",
		"https://rdap.zz/",
		"https://rdap.centralnic.com/zz/",
		"https://rdap.identitydigital.services/rdap/",
		"https://rdap.nominet.uk/zz/",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("patterns:\n got %v\nwant %v", got, want)
	}
}

func TestLoadPolicy_RejectsUnknownKeysAndBadDurations(t *testing.T) {
	if _, err := LoadPolicy(strings.NewReader("default_timeout: 5s\nretries: 3\n")); err == nil {
		t.Fatalf("unknown key accepted")
	}
	if _, err := LoadPolicy(strings.NewReader("default_timeout: soon\n")); err == nil {
		t.Fatalf("bad duration accepted")
	}
}

func TestPolicy_CacheTTL(t *testing.T) {
	p := testPolicy(t)
	if got := p.Timeout("slow"); got != 300*time.Millisecond {
		t.Fatalf("category timeout: %v", got)
	}
	if got := p.Timeout("test"); got != 2*time.Second {
		t.Fatalf("default timeout: %v", got)
	}

	cases := []struct {
		rec  Record
		want time.Duration
	}{
		{Record{Availability: Available, Source: SourceRDAP}, 5 * time.Minute},
		{Record{Availability: Available, Source: SourceGateway}, 5 * time.Minute},
		{Record{Availability: Registered, Source: SourceGateway}, 2 * time.Minute},
		{Record{Availability: Registered, Source: SourceExtraction}, 2 * time.Minute},
		{Record{Availability: Registered, Source: SourceRDAP}, 30 * time.Minute},
	}
	for _, c := range cases {
		if got := p.cacheTTL(&c.rec); got != c.want {
			t.Fatalf("%s/%s: want %v, got %v", c.rec.Source, c.rec.Availability, c.want, got)
		}
	}
}
