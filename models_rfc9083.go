package resolver

import (
	"encoding/json"
	"strings"
)

// Wire shapes for the RFC 9083 domain response. Only members read by
// ParseDomain and classifyRDAP are declared; the rest of the body is ignored.

type rdapLink struct {
	Rel   string `json:"rel"`
	Href  string `json:"href"`
	Value string `json:"value"`
}

type rdapEvent struct {
	Action string `json:"eventAction"`
	Date   string `json:"eventDate"`
}

type rdapPublicID struct {
	Type       string `json:"type"`
	Identifier string `json:"identifier"`
}

type rdapNotice struct {
	Title       string   `json:"title"`
	Description []string `json:"description"`
}

// rdapEntity is a contact attached to the domain. Entities nest: the abuse
// contact usually hangs off the registrar.
type rdapEntity struct {
	Handle    string          `json:"handle"`
	Roles     []string        `json:"roles"`
	VCard     json.RawMessage `json:"vcardArray"`
	PublicIDs []rdapPublicID  `json:"publicIds"`
	Links     []rdapLink      `json:"links"`
	Port43    string          `json:"port43"`
	Entities  []rdapEntity    `json:"entities"`
}

func (e *rdapEntity) hasRole(role string) bool {
	for _, r := range e.Roles {
		if strings.EqualFold(strings.TrimSpace(r), role) {
			return true
		}
	}
	return false
}

type rdapNameserver struct {
	LDHName     string `json:"ldhName"`
	UnicodeName string `json:"unicodeName"`
}

// rdapSecureDNS keeps DS and key records raw; only their presence matters.
type rdapSecureDNS struct {
	DelegationSigned *flexBool         `json:"delegationSigned"`
	DSData           []json.RawMessage `json:"dsData"`
	KeyData          []json.RawMessage `json:"keyData"`
}

type rdapDomain struct {
	ObjectClassName string           `json:"objectClassName"`
	LDHName         string           `json:"ldhName"`
	UnicodeName     string           `json:"unicodeName"`
	Status          []string         `json:"status"`
	Events          []rdapEvent      `json:"events"`
	Entities        []rdapEntity     `json:"entities"`
	Nameservers     []rdapNameserver `json:"nameservers"`
	SecureDNS       *rdapSecureDNS   `json:"secureDNS"`
}

func (d *rdapDomain) isDomain() bool { return lower(d.ObjectClassName) == "domain" }

// rdapProbe reads just enough of a body to classify it.
type rdapProbe struct {
	ObjectClassName string       `json:"objectClassName"`
	ErrorCode       int          `json:"errorCode"`
	Title           string       `json:"title"`
	Description     []string     `json:"description"`
	Notices         []rdapNotice `json:"notices"`
}

// flexBool accepts delegationSigned as a JSON boolean or as a string
// ("true", "yes", "signed", "signedDelegation"). Anything else is false.
type flexBool bool

func (b *flexBool) UnmarshalJSON(data []byte) error {
	var v bool
	if err := json.Unmarshal(data, &v); err == nil {
		*b = flexBool(v)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	switch lower(strings.TrimSpace(s)) {
	case "true", "yes", "signed", "signeddelegation", "1":
		*b = true
	default:
		*b = false
	}
	return nil
}
