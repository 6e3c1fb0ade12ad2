package resolver

import "strings"

// Availability is the tri-state registration outcome.
type Availability string

const (
	Available  Availability = "available"
	Registered Availability = "registered"
	Unknown    Availability = "unknown"
)

// DNSSEC reports whether the delegation is signed.
type DNSSEC string

const (
	DNSSECSigned   DNSSEC = "signed"
	DNSSECUnsigned DNSSEC = "unsigned"
	DNSSECUnknown  DNSSEC = "unknown"
)

// Source names the tier that produced a record.
type Source string

const (
	SourceRDAP       Source = "rdap"
	SourceGateway    Source = "gateway"
	SourceExtraction Source = "extraction"
)

type Registrar struct {
	Name        string `json:"name,omitempty"`
	IANAID      string `json:"ianaId,omitempty"`
	URL         string `json:"url,omitempty"`
	WhoisServer string `json:"whoisServer,omitempty"`
	AbuseEmail  string `json:"abuseEmail,omitempty"`
	AbusePhone  string `json:"abusePhone,omitempty"`
}

// Dates holds ISO-8601 timestamps, normalized to UTC when the input was parseable.
type Dates struct {
	Created     string `json:"created,omitempty"`
	Updated     string `json:"updated,omitempty"`
	Expires     string `json:"expires,omitempty"`
	Transferred string `json:"transferred,omitempty"`
}

type Contact struct {
	Name         string `json:"name,omitempty"`
	Organization string `json:"organization,omitempty"`
	Email        string `json:"email,omitempty"`
	Phone        string `json:"phone,omitempty"`
	Country      string `json:"country,omitempty"`
	State        string `json:"state,omitempty"`
	City         string `json:"city,omitempty"`
	Address      string `json:"address,omitempty"`
}

type Contacts struct {
	Registrant *Contact `json:"registrant,omitempty"`
	Admin      *Contact `json:"admin,omitempty"`
	Tech       *Contact `json:"tech,omitempty"`
}

// Record is the normalized registration data for one domain.
type Record struct {
	Domain       string       `json:"domain"`
	Availability Availability `json:"availability"`
	Registrar    *Registrar   `json:"registrar,omitempty"`
	Dates        *Dates       `json:"dates,omitempty"`
	Status       []string     `json:"status,omitempty"`
	NameServers  []string     `json:"nameServers,omitempty"`
	DNSSEC       DNSSEC       `json:"dnssec"`
	Contacts     *Contacts    `json:"contacts,omitempty"`
	Source       Source       `json:"source"`
	QueryTimeMs  int64        `json:"queryTimeMs"`
	RawText      string       `json:"rawText,omitempty"`
}

func availableRecord(domain string) *Record {
	return &Record{Domain: domain, Availability: Available, DNSSEC: DNSSECUnknown}
}

func (r *Record) empty() bool {
	return r.Registrar == nil && r.Dates == nil && r.Contacts == nil &&
		len(r.Status) == 0 && len(r.NameServers) == 0
}

// normalize enforces the record invariants before a record leaves the resolver.
func (r *Record) normalize() {
	if r.DNSSEC == "" {
		r.DNSSEC = DNSSECUnknown
	}
	if r.Source == SourceRDAP {
		r.RawText = ""
	}
	if r.Availability == Available {
		r.Registrar, r.Dates, r.Contacts = nil, nil, nil
	}
	r.Status = dedupe(r.Status, func(s string) string { return strings.TrimSpace(s) })
	r.NameServers = dedupe(r.NameServers, func(s string) string {
		return strings.TrimSuffix(strings.ToLower(strings.TrimSpace(s)), ".")
	})
	if r.Registrar != nil && *r.Registrar == (Registrar{}) {
		r.Registrar = nil
	}
	if r.Dates != nil && *r.Dates == (Dates{}) {
		r.Dates = nil
	}
	if r.Contacts != nil && r.Contacts.Registrant == nil && r.Contacts.Admin == nil && r.Contacts.Tech == nil {
		r.Contacts = nil
	}
}

func (r *Record) clone() *Record {
	if r == nil {
		return nil
	}
	out := *r
	if r.Registrar != nil {
		v := *r.Registrar
		out.Registrar = &v
	}
	if r.Dates != nil {
		v := *r.Dates
		out.Dates = &v
	}
	if r.Contacts != nil {
		out.Contacts = &Contacts{
			Registrant: cloneContact(r.Contacts.Registrant),
			Admin:      cloneContact(r.Contacts.Admin),
			Tech:       cloneContact(r.Contacts.Tech),
		}
	}
	out.Status = append([]string(nil), r.Status...)
	out.NameServers = append([]string(nil), r.NameServers...)
	if len(out.Status) == 0 {
		out.Status = nil
	}
	if len(out.NameServers) == 0 {
		out.NameServers = nil
	}
	return &out
}

func cloneContact(c *Contact) *Contact {
	if c == nil {
		return nil
	}
	v := *c
	return &v
}

func (c *Contact) empty() bool { return c == nil || *c == (Contact{}) }

// dedupe keeps the first occurrence of each key, dropping blanks.
func dedupe(in []string, key func(string) string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		k := key(s)
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
