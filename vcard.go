package resolver

import (
	"encoding/json"
	"fmt"
	"strings"
)

// vcardKind is the closed set of jCard properties the resolver understands.
type vcardKind int

const (
	vcardOther vcardKind = iota
	vcardFN
	vcardOrg
	vcardEmail
	vcardTel
	vcardAdr
)

var vcardKinds = map[string]vcardKind{
	"fn":    vcardFN,
	"org":   vcardOrg,
	"email": vcardEmail,
	"tel":   vcardTel,
	"adr":   vcardAdr,
}

type vcardProperty struct {
	Kind   vcardKind
	Name   string
	Params map[string]any
	Text   string        // fn, org, email, tel
	Adr    *vcardAddress // adr
}

type vcardAddress struct {
	Street  string
	City    string
	State   string
	Postal  string
	Country string
}

// decodeVCard decodes an RFC 7095 jCard: ["vcard", [[name, params, type, value...], ...]].
// A missing card yields no properties; a card of the wrong shape is an error.
func decodeVCard(raw json.RawMessage) ([]vcardProperty, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var card []json.RawMessage
	if err := json.Unmarshal(raw, &card); err != nil {
		return nil, fmt.Errorf("vcardArray: %w", err)
	}
	if len(card) != 2 {
		return nil, fmt.Errorf("vcardArray: want 2 elements, got %d", len(card))
	}
	var tag string
	if err := json.Unmarshal(card[0], &tag); err != nil || !strings.EqualFold(tag, "vcard") {
		return nil, fmt.Errorf("vcardArray: missing \"vcard\" tag")
	}
	var props [][]any
	if err := json.Unmarshal(card[1], &props); err != nil {
		return nil, fmt.Errorf("vcardArray: properties: %w", err)
	}
	out := make([]vcardProperty, 0, len(props))
	for i, p := range props {
		prop, err := decodeVCardProperty(p)
		if err != nil {
			return nil, fmt.Errorf("vcardArray: property %d: %w", i, err)
		}
		out = append(out, prop)
	}
	return out, nil
}

func decodeVCardProperty(p []any) (vcardProperty, error) {
	if len(p) < 4 {
		return vcardProperty{}, fmt.Errorf("want at least 4 members, got %d", len(p))
	}
	name, ok := p[0].(string)
	if !ok {
		return vcardProperty{}, fmt.Errorf("name is %T", p[0])
	}
	params, _ := p[1].(map[string]any)
	if p[1] != nil && params == nil {
		return vcardProperty{}, fmt.Errorf("%s: parameters are %T", name, p[1])
	}
	if _, ok := p[2].(string); !ok {
		return vcardProperty{}, fmt.Errorf("%s: value type is %T", name, p[2])
	}
	prop := vcardProperty{Kind: vcardKinds[strings.ToLower(name)], Name: strings.ToLower(name), Params: params}

	switch prop.Kind {
	case vcardFN, vcardEmail:
		s, ok := p[3].(string)
		if !ok {
			return vcardProperty{}, fmt.Errorf("%s: value is %T", name, p[3])
		}
		prop.Text = strings.TrimSpace(s)
	case vcardOrg:
		s, err := joinComponent(p[3], "; ")
		if err != nil {
			return vcardProperty{}, fmt.Errorf("%s: %w", name, err)
		}
		prop.Text = s
	case vcardTel:
		s, ok := p[3].(string)
		if !ok {
			return vcardProperty{}, fmt.Errorf("%s: value is %T", name, p[3])
		}
		prop.Text = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), "tel:"))
	case vcardAdr:
		adr, err := decodeAdr(p[3], params)
		if err != nil {
			return vcardProperty{}, fmt.Errorf("%s: %w", name, err)
		}
		prop.Adr = adr
	case vcardOther:
	}
	return prop, nil
}

// decodeAdr reads the 7 RFC 6350 components: pobox, ext, street, locality,
// region, code, country. An empty structured value falls back to the label parameter.
func decodeAdr(v any, params map[string]any) (*vcardAddress, error) {
	parts, ok := v.([]any)
	if !ok {
		if s, isStr := v.(string); isStr {
			return &vcardAddress{Street: strings.TrimSpace(s)}, nil
		}
		return nil, fmt.Errorf("value is %T", v)
	}
	if len(parts) > 7 {
		return nil, fmt.Errorf("want 7 components, got %d", len(parts))
	}
	comp := make([]string, 7)
	for i, c := range parts {
		s, err := joinComponent(c, ", ")
		if err != nil {
			return nil, fmt.Errorf("component %d: %w", i, err)
		}
		comp[i] = s
	}
	adr := &vcardAddress{Street: comp[2], City: comp[3], State: comp[4], Postal: comp[5], Country: comp[6]}
	if *adr == (vcardAddress{}) {
		if label, ok := params["label"].(string); ok {
			adr.Street = strings.TrimSpace(strings.ReplaceAll(label, "\n", ", "))
		}
	}
	if adr.Country == "" {
		if cc, ok := params["cc"].(string); ok {
			adr.Country = strings.TrimSpace(cc)
		}
	}
	return adr, nil
}

// joinComponent flattens a string or array-of-strings jCard component.
func joinComponent(v any, sep string) (string, error) {
	switch t := v.(type) {
	case nil:
		return "", nil
	case string:
		return strings.TrimSpace(t), nil
	case []any:
		out := make([]string, 0, len(t))
		for _, x := range t {
			s, ok := x.(string)
			if !ok {
				return "", fmt.Errorf("element is %T", x)
			}
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
		return strings.Join(out, sep), nil
	default:
		return "", fmt.Errorf("value is %T", v)
	}
}

// vcardContact folds properties into a Contact; the first value of each kind wins.
func vcardContact(props []vcardProperty) *Contact {
	c := &Contact{}
	for _, p := range props {
		switch p.Kind {
		case vcardFN:
			c.Name = firstNonEmpty(c.Name, p.Text)
		case vcardOrg:
			c.Organization = firstNonEmpty(c.Organization, p.Text)
		case vcardEmail:
			c.Email = firstNonEmpty(c.Email, p.Text)
		case vcardTel:
			c.Phone = firstNonEmpty(c.Phone, p.Text)
		case vcardAdr:
			if c.Address == "" && c.City == "" && c.State == "" && c.Country == "" {
				c.Address, c.City, c.State, c.Country = p.Adr.Street, p.Adr.City, p.Adr.State, p.Adr.Country
			}
		case vcardOther:
		}
	}
	if c.empty() {
		return nil
	}
	return c
}
