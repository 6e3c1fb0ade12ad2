package resolver

import (
	"fmt"
	"strings"

	"golang.org/x/net/idna"
	"golang.org/x/net/publicsuffix"
)

var idnaProfile = idna.New(idna.MapForLookup(), idna.Transitional(false), idna.StrictDomainName(false))

// NormalizeDomain validates name and returns its lowercase ASCII registrable form.
// Subdomains are reduced to the registrable domain under the ICANN suffix:
// "www.example.co.uk" -> "example.co.uk", "foo.github.io" -> "github.io".
func NormalizeDomain(name string) (string, error) {
	raw := name
	name = strings.TrimSpace(name)
	name = strings.TrimSuffix(name, ".")
	if name == "" {
		return "", errorf(KindInvalidDomain, raw, "empty domain")
	}
	if strings.HasPrefix(name, ".") || strings.Contains(name, "..") {
		return "", errorf(KindInvalidDomain, raw, "empty label")
	}
	ascii, err := idnaProfile.ToASCII(name)
	if err != nil {
		return "", newError(KindInvalidDomain, raw, "", err)
	}
	ascii = strings.ToLower(ascii)
	if err := checkLDH(ascii); err != nil {
		return "", newError(KindInvalidDomain, raw, "", err)
	}
	return registrable(ascii), nil
}

// registrable reduces name to one label below its ICANN public suffix.
// Private suffixes (github.io, blogspot.com) are registered domains in their
// own right, so the walk continues up to the ICANN section of the list.
func registrable(name string) string {
	suffix, icann := publicsuffix.PublicSuffix(name)
	for !icann {
		i := strings.IndexByte(suffix, '.')
		if i < 0 {
			break
		}
		suffix, icann = publicsuffix.PublicSuffix(suffix[i+1:])
	}
	if len(suffix) >= len(name) {
		return name
	}
	rest := name[:len(name)-len(suffix)-1]
	return rest[strings.LastIndexByte(rest, '.')+1:] + "." + suffix
}

func checkLDH(name string) error {
	if len(name) > 253 {
		return fmt.Errorf("name exceeds 253 octets")
	}
	labels := strings.Split(name, ".")
	if len(labels) < 2 {
		return fmt.Errorf("need at least two labels")
	}
	for _, l := range labels {
		if l == "" {
			return fmt.Errorf("empty label")
		}
		if len(l) > 63 {
			return fmt.Errorf("label %q exceeds 63 octets", l)
		}
		if l[0] == '-' || l[len(l)-1] == '-' {
			return fmt.Errorf("label %q starts or ends with hyphen", l)
		}
		for i := 0; i < len(l); i++ {
			c := l[i]
			if !(c >= 'a' && c <= 'z' || c >= '0' && c <= '9' || c == '-') {
				return fmt.Errorf("label %q has invalid character %q", l, c)
			}
		}
	}
	tld := labels[len(labels)-1]
	if !strings.HasPrefix(tld, "xn--") {
		for i := 0; i < len(tld); i++ {
			if tld[i] >= '0' && tld[i] <= '9' {
				return fmt.Errorf("numeric top-level label %q", tld)
			}
		}
	}
	return nil
}
