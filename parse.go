package resolver

import (
	"encoding/json"
	"strings"
	"unicode"
)

// ParseDomain converts an RDAP domain response body into a Registered record.
// It performs no I/O. A body that is not a domain object yields ErrParse.
func ParseDomain(body []byte) (*Record, error) {
	var d rdapDomain
	if err := json.Unmarshal(body, &d); err != nil {
		return nil, newError(KindParseError, "", "", err)
	}
	if !d.isDomain() {
		return nil, newError(KindParseError, d.LDHName, "", ErrUnexpectedObject("domain"))
	}
	rec := &Record{
		Domain:       trimDotLower(d.LDHName),
		Availability: Registered,
		Source:       SourceRDAP,
		DNSSEC:       dnssecState(d.SecureDNS),
	}

	for _, s := range d.Status {
		rec.Status = append(rec.Status, eppStatus(s))
	}
	for _, ns := range d.Nameservers {
		if name := firstNonEmpty(ns.LDHName, ns.UnicodeName); name != "" {
			rec.NameServers = append(rec.NameServers, trimDotLower(name))
		}
	}

	dates := &Dates{}
	for _, ev := range d.Events {
		dates.set(eventDateField(ev.Action), ev.Date)
	}
	rec.Dates = dates

	reg, err := parseRegistrar(d.Entities)
	if err != nil {
		return nil, newError(KindParseError, rec.Domain, "", err)
	}
	rec.Registrar = reg

	contacts := &Contacts{}
	for _, role := range []struct {
		name string
		dst  **Contact
	}{
		{"registrant", &contacts.Registrant},
		{"administrative", &contacts.Admin},
		{"technical", &contacts.Tech},
	} {
		ent := findEntity(d.Entities, role.name)
		if ent == nil {
			continue
		}
		props, err := decodeVCard(ent.VCard)
		if err != nil {
			return nil, newError(KindParseError, rec.Domain, "", err)
		}
		*role.dst = vcardContact(props)
	}
	rec.Contacts = contacts

	rec.normalize()
	return rec, nil
}

func parseRegistrar(entities []rdapEntity) (*Registrar, error) {
	ent := findEntity(entities, "registrar")
	if ent == nil {
		return nil, nil
	}
	props, err := decodeVCard(ent.VCard)
	if err != nil {
		return nil, err
	}
	reg := &Registrar{}
	if c := vcardContact(props); c != nil {
		reg.Name = firstNonEmpty(c.Name, c.Organization)
	}
	reg.Name = firstNonEmpty(reg.Name, ent.Handle)
	for _, id := range ent.PublicIDs {
		if strings.EqualFold(strings.TrimSpace(id.Type), "IANA Registrar ID") {
			reg.IANAID = strings.TrimSpace(id.Identifier)
			break
		}
	}
	for _, l := range ent.Links {
		if strings.EqualFold(l.Rel, "about") {
			reg.URL = firstNonEmpty(l.Href, l.Value)
			break
		}
	}
	reg.WhoisServer = strings.TrimSpace(ent.Port43)

	abuse := findEntity(ent.Entities, "abuse")
	if abuse == nil {
		abuse = findEntity(entities, "abuse")
	}
	if abuse != nil {
		props, err := decodeVCard(abuse.VCard)
		if err != nil {
			return nil, err
		}
		if c := vcardContact(props); c != nil {
			reg.AbuseEmail, reg.AbusePhone = c.Email, c.Phone
		}
	}
	return reg, nil
}

// findEntity returns the first entity with role, searching depth-first.
func findEntity(entities []rdapEntity, role string) *rdapEntity {
	for i := range entities {
		if entities[i].hasRole(role) {
			return &entities[i]
		}
	}
	for i := range entities {
		if e := findEntity(entities[i].Entities, role); e != nil {
			return e
		}
	}
	return nil
}

func dnssecState(s *rdapSecureDNS) DNSSEC {
	switch {
	case s == nil:
		return DNSSECUnknown
	case s.DelegationSigned != nil && bool(*s.DelegationSigned):
		return DNSSECSigned
	case len(s.DSData) > 0 || len(s.KeyData) > 0:
		return DNSSECSigned
	case s.DelegationSigned != nil:
		return DNSSECUnsigned
	}
	return DNSSECUnknown
}

// eppStatus maps RDAP status values (RFC 8056) onto EPP status codes:
// "client transfer prohibited" -> "clientTransferProhibited", "active" -> "ok".
// WHOIS values such as "clientHold https://icann.org/epp#clientHold" keep the first token.
func eppStatus(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if strings.Contains(s, "http://") || strings.Contains(s, "https://") {
		s = strings.Fields(s)[0]
	}
	if strings.EqualFold(s, "active") {
		return "ok"
	}
	words := strings.Fields(s)
	if len(words) == 1 {
		return s
	}
	var b strings.Builder
	for i, w := range words {
		w = strings.ToLower(w)
		if i > 0 {
			r := []rune(w)
			r[0] = unicode.ToUpper(r[0])
			w = string(r)
		}
		b.WriteString(w)
	}
	return b.String()
}
