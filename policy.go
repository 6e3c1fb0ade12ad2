package resolver

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed policy.yaml
var defaultPolicyYAML []byte

// Policy is the per-TLD data table: timeouts, RDAP support, fallback endpoints
// and the phrases that mark a "not registered" answer.
type Policy struct {
	DefaultTimeout  duration            `yaml:"default_timeout"`
	Categories      map[string]category `yaml:"categories"`
	Unsupported     []string            `yaml:"unsupported"`
	Static          map[string][]string `yaml:"static"`
	Patterns        []string            `yaml:"patterns"`
	SharedHosts     []string            `yaml:"shared_hosts"`
	NotFoundPhrases []string            `yaml:"not_found_phrases"`
	Cache           cacheTTLs           `yaml:"cache"`

	timeouts    map[string]time.Duration
	unsupported map[string]struct{}
}

type category struct {
	Timeout duration `yaml:"timeout"`
	TLDs    []string `yaml:"tlds"`
}

type cacheTTLs struct {
	Available  duration `yaml:"available"`
	Fallback   duration `yaml:"fallback"`
	Registered duration `yaml:"registered"`
}

// duration accepts Go duration strings ("10s") in YAML.
type duration time.Duration

func (d *duration) UnmarshalYAML(n *yaml.Node) error {
	var s string
	if err := n.Decode(&s); err != nil {
		return err
	}
	v, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("line %d: %w", n.Line, err)
	}
	*d = duration(v)
	return nil
}

// LoadPolicy decodes a YAML policy table. Unknown keys are rejected.
func LoadPolicy(r io.Reader) (*Policy, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var p Policy
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("decode policy: %w", err)
	}
	p.index()
	return &p, nil
}

// DefaultPolicy returns a fresh copy of the embedded policy table.
func DefaultPolicy() *Policy {
	p, err := LoadPolicy(bytes.NewReader(defaultPolicyYAML))
	if err != nil {
		panic("embedded policy: " + err.Error())
	}
	return p
}

func (p *Policy) index() {
	if p.DefaultTimeout <= 0 {
		p.DefaultTimeout = duration(10 * time.Second)
	}
	if p.Cache.Available <= 0 {
		p.Cache.Available = duration(5 * time.Minute)
	}
	if p.Cache.Fallback <= 0 {
		p.Cache.Fallback = duration(2 * time.Minute)
	}
	if p.Cache.Registered <= 0 {
		p.Cache.Registered = duration(30 * time.Minute)
	}
	p.timeouts = make(map[string]time.Duration)
	for _, c := range p.Categories {
		for _, tld := range c.TLDs {
			p.timeouts[trimDotLower(tld)] = time.Duration(c.Timeout)
		}
	}
	p.unsupported = make(map[string]struct{}, len(p.Unsupported))
	for _, tld := range p.Unsupported {
		p.unsupported[trimDotLower(tld)] = struct{}{}
	}
	static := make(map[string][]string, len(p.Static))
	for tld, eps := range p.Static {
		for _, ep := range eps {
			static[trimDotLower(tld)] = append(static[trimDotLower(tld)], normalizeEndpoint(ep))
		}
	}
	p.Static = static
	for i, ph := range p.NotFoundPhrases {
		p.NotFoundPhrases[i] = strings.ToLower(strings.TrimSpace(ph))
	}
}

// Timeout returns how long the RDAP race for tld may run.
func (p *Policy) Timeout(tld string) time.Duration {
	if d, ok := p.timeouts[trimDotLower(tld)]; ok && d > 0 {
		return d
	}
	return time.Duration(p.DefaultTimeout)
}

// IsUnsupported reports whether tld's registry runs no RDAP service.
func (p *Policy) IsUnsupported(tld string) bool {
	_, ok := p.unsupported[trimDotLower(tld)]
	return ok
}

func (p *Policy) StaticServers(tld string) []string {
	return append([]string(nil), p.Static[trimDotLower(tld)]...)
}

// PatternServers expands the URL patterns and shared hosts for tld.
func (p *Policy) PatternServers(tld string) []string {
	tld = trimDotLower(tld)
	out := make([]string, 0, len(p.Patterns)+len(p.SharedHosts))
	for _, src := range [][]string{p.Patterns, p.SharedHosts} {
		for _, pat := range src {
			out = append(out, normalizeEndpoint(strings.ReplaceAll(pat, "{tld}", tld)))
		}
	}
	return out
}

// NotFound reports whether text carries one of the "not registered" phrases.
func (p *Policy) NotFound(text string) bool {
	return containsAny(strings.ToLower(text), p.NotFoundPhrases...)
}

func (p *Policy) cacheTTL(rec *Record) time.Duration {
	switch {
	case rec.Availability == Available:
		return time.Duration(p.Cache.Available)
	case rec.Source != SourceRDAP:
		return time.Duration(p.Cache.Fallback)
	default:
		return time.Duration(p.Cache.Registered)
	}
}
