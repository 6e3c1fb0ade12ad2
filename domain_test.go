package resolver

import (
	"errors"
	"strings"
	"testing"
)

func TestNormalizeDomain(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"example.com", "example.com"},
		{"  Example.COM. ", "example.com"},
		{"www.example.com", "example.com"},
		{"shop.example.co.uk", "example.co.uk"},
		{"x.test", "x.test"},
		{"bücher.de", "xn--bcher-kva.de"},
		{"my-site.io", "my-site.io"},
		{"foo.github.io", "github.io"},
		{"myblog.blogspot.com", "blogspot.com"},
		{"a.b.github.io", "github.io"},
		{"github.io", "github.io"},
		{"co.uk", "co.uk"},
	}
	for _, c := range cases {
		got, err := NormalizeDomain(c.in)
		if err != nil {
			t.Fatalf("NormalizeDomain(%q): %v", c.in, err)
		}
		if got != c.want {
			t.Fatalf("NormalizeDomain(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestNormalizeDomain_Invalid(t *testing.T) {
	for _, in := range []string{
		"",
		".bad..domain",
		"a..b.com",
		"localhost",
		"-lead.com",
		"trail-.com",
		"under_score.com",
		"spa ce.com",
		"example.123",
		strings.Repeat("a", 64) + ".com",
	} {
		_, err := NormalizeDomain(in)
		if !errors.Is(err, ErrInvalidDomain) {
			t.Fatalf("NormalizeDomain(%q): want ErrInvalidDomain, got %v", in, err)
		}
	}
}
