package resolver

import (
	"encoding/json"
	"errors"
	"strings"

	whoisparser "github.com/likexian/whois-parser"
)

// recordFromWhoisInfo maps whois-parser's structured result onto a Registered record.
// dnssecKnown says whether the source stated a DNSSEC value at all.
func recordFromWhoisInfo(info whoisparser.WhoisInfo, dnssecKnown bool) *Record {
	rec := &Record{Availability: Registered, DNSSEC: DNSSECUnknown}
	if d := info.Domain; d != nil {
		rec.Domain = trimDotLower(d.Domain)
		for _, s := range d.Status {
			rec.Status = append(rec.Status, eppStatus(s))
		}
		rec.NameServers = append(rec.NameServers, d.NameServers...)
		dates := &Dates{}
		dates.set(dateCreated, d.CreatedDate)
		dates.set(dateUpdated, d.UpdatedDate)
		dates.set(dateExpires, d.ExpirationDate)
		rec.Dates = dates
		switch {
		case d.DNSSec:
			rec.DNSSEC = DNSSECSigned
		case dnssecKnown:
			rec.DNSSEC = DNSSECUnsigned
		}
		if d.WhoisServer != "" {
			rec.Registrar = &Registrar{WhoisServer: strings.TrimSpace(d.WhoisServer)}
		}
	}
	if r := info.Registrar; r != nil {
		if rec.Registrar == nil {
			rec.Registrar = &Registrar{}
		}
		rec.Registrar.Name = firstNonEmpty(r.Name, r.Organization)
		rec.Registrar.IANAID = strings.TrimSpace(r.ID)
		rec.Registrar.URL = strings.TrimSpace(r.ReferralURL)
		rec.Registrar.AbuseEmail = strings.TrimSpace(r.Email)
		rec.Registrar.AbusePhone = strings.TrimSpace(r.Phone)
	}
	rec.Contacts = &Contacts{
		Registrant: contactFromWhois(info.Registrant),
		Admin:      contactFromWhois(info.Administrative),
		Tech:       contactFromWhois(info.Technical),
	}
	rec.normalize()
	return rec
}

func contactFromWhois(c *whoisparser.Contact) *Contact {
	if c == nil {
		return nil
	}
	out := &Contact{
		Name:         strings.TrimSpace(c.Name),
		Organization: strings.TrimSpace(c.Organization),
		Email:        strings.TrimSpace(c.Email),
		Phone:        strings.TrimSpace(c.Phone),
		Country:      strings.TrimSpace(c.Country),
		State:        strings.TrimSpace(c.Province),
		City:         strings.TrimSpace(c.City),
		Address:      strings.TrimSpace(c.Street),
	}
	if out.empty() {
		return nil
	}
	return out
}

// parseRawWhois runs whois-parser over raw WHOIS text. The bool result reports
// a conclusive "not registered" answer.
func parseRawWhois(raw string) (*Record, bool, error) {
	info, err := whoisparser.Parse(raw)
	switch {
	case errors.Is(err, whoisparser.ErrNotFoundDomain):
		return nil, true, nil
	case err != nil:
		return nil, false, err
	}
	rec := recordFromWhoisInfo(info, false)
	if st := rawDNSSEC(raw); st != DNSSECUnknown {
		rec.DNSSEC = st
	}
	if rec.empty() {
		return nil, false, errors.New("whois text carried no registration data")
	}
	rec.RawText = raw
	return rec, false, nil
}

// rawDNSSEC reads the first DNSSEC line of raw WHOIS text that states a value.
func rawDNSSEC(raw string) DNSSEC {
	for _, line := range strings.Split(raw, "\n") {
		k, v, ok := splitKV(line)
		if !ok || !strings.Contains(lower(k), "dnssec") {
			continue
		}
		if st := dnssecFromText(v); st != DNSSECUnknown {
			return st
		}
	}
	return DNSSECUnknown
}

// gatewayPayload is a WHOIS-over-HTTP answer: whois-parser's JSON shape plus an
// optional error envelope.
type gatewayPayload struct {
	whoisparser.WhoisInfo
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

// dnssecStated reports whether a gateway JSON body has a domain.dnssec member.
func dnssecStated(body []byte) bool {
	var probe struct {
		Domain *struct {
			DNSSec *json.RawMessage `json:"dnssec"`
		} `json:"domain"`
	}
	return json.Unmarshal(body, &probe) == nil && probe.Domain != nil && probe.Domain.DNSSec != nil
}
