package resolver

import (
	"strings"
	"time"
)

// dateLayouts covers RDAP (RFC 3339) and the common WHOIS spellings.
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05 MST",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006.01.02 15:04:05",
	"2006.01.02",
	"2006/01/02 15:04:05",
	"2006/01/02",
	"02-Jan-2006",
	"02-Jan-2006 15:04:05 MST",
	"02-January-2006",
	"02.01.2006 15:04:05",
	"02.01.2006",
	"January 2 2006",
	"Mon Jan 2 15:04:05 MST 2006",
	"Mon Jan 02 2006",
	"20060102",
}

// normalizeDate returns s as RFC 3339 in UTC, or the trimmed input when no layout matches.
func normalizeDate(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	// "2020-01-01 00:00:00 (UTC+8)" and friends.
	clean := s
	if i := strings.Index(clean, " ("); i > 0 {
		clean = clean[:i]
	}
	clean = strings.TrimSuffix(clean, " UTC")
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, clean); err == nil {
			return t.UTC().Format(time.RFC3339)
		}
	}
	return s
}

type dateField int

const (
	dateNone dateField = iota
	dateCreated
	dateUpdated
	dateExpires
	dateTransferred
)

// eventDateField maps an RDAP eventAction, including localized or non-standard
// labels, onto a record date.
func eventDateField(action string) dateField {
	a := strings.ToLower(strings.TrimSpace(action))
	switch {
	case a == "":
		return dateNone
	case strings.Contains(a, "rdap database"), strings.Contains(a, "whois database"):
		return dateNone
	case containsAny(a, "expir", "paid-till", "renewal", "过期", "到期"):
		return dateExpires
	case containsAny(a, "transfer", "转移"):
		return dateTransferred
	case containsAny(a, "last changed", "last update", "updated", "modif", "changed", "更新", "修改"):
		return dateUpdated
	case containsAny(a, "registration", "registered", "creat", "注册", "创建"):
		return dateCreated
	}
	return dateNone
}

func (d *Dates) set(f dateField, value string) {
	v := normalizeDate(value)
	if v == "" {
		return
	}
	switch f {
	case dateCreated:
		if d.Created == "" {
			d.Created = v
		}
	case dateUpdated:
		if d.Updated == "" {
			d.Updated = v
		}
	case dateExpires:
		if d.Expires == "" {
			d.Expires = v
		}
	case dateTransferred:
		if d.Transferred == "" {
			d.Transferred = v
		}
	case dateNone:
	}
}
