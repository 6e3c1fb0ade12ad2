package httpapi

import resolver "github.com/datum-labs/rdap-resolver"

// snake_case aliases of resolver.Record for older consumers.

type snakeRegistrar struct {
	Name        string `json:"name,omitempty"`
	IANAID      string `json:"iana_id,omitempty"`
	URL         string `json:"url,omitempty"`
	WhoisServer string `json:"whois_server,omitempty"`
	AbuseEmail  string `json:"abuse_email,omitempty"`
	AbusePhone  string `json:"abuse_phone,omitempty"`
}

type snakeDates struct {
	Created     string `json:"created,omitempty"`
	Updated     string `json:"updated,omitempty"`
	Expires     string `json:"expires,omitempty"`
	Transferred string `json:"transferred,omitempty"`
}

type snakeContacts struct {
	Registrant *resolver.Contact `json:"registrant,omitempty"`
	Admin      *resolver.Contact `json:"admin,omitempty"`
	Tech       *resolver.Contact `json:"tech,omitempty"`
}

type snakeRecord struct {
	Domain       string          `json:"domain"`
	Availability string          `json:"availability"`
	Registrar    *snakeRegistrar `json:"registrar,omitempty"`
	Dates        *snakeDates     `json:"dates,omitempty"`
	Status       []string        `json:"status,omitempty"`
	NameServers  []string        `json:"name_servers,omitempty"`
	DNSSEC       string          `json:"dnssec"`
	Contacts     *snakeContacts  `json:"contacts,omitempty"`
	Source       string          `json:"source"`
	QueryTimeMs  int64           `json:"query_time_ms"`
	RawText      string          `json:"raw_text,omitempty"`
}

func toSnake(r *resolver.Record) snakeRecord {
	out := snakeRecord{
		Domain:       r.Domain,
		Availability: string(r.Availability),
		Status:       r.Status,
		NameServers:  r.NameServers,
		DNSSEC:       string(r.DNSSEC),
		Source:       string(r.Source),
		QueryTimeMs:  r.QueryTimeMs,
		RawText:      r.RawText,
	}
	if g := r.Registrar; g != nil {
		out.Registrar = &snakeRegistrar{
			Name: g.Name, IANAID: g.IANAID, URL: g.URL,
			WhoisServer: g.WhoisServer, AbuseEmail: g.AbuseEmail, AbusePhone: g.AbusePhone,
		}
	}
	if d := r.Dates; d != nil {
		sd := snakeDates(*d)
		out.Dates = &sd
	}
	if c := r.Contacts; c != nil {
		out.Contacts = &snakeContacts{Registrant: c.Registrant, Admin: c.Admin, Tech: c.Tech}
	}
	return out
}
