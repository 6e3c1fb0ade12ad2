package resolver

import (
	"bufio"
	"strings"
	"unicode"
)

type lineField int

const (
	fieldNone lineField = iota
	fieldRegistrar
	fieldRegistrarIANA
	fieldRegistrarURL
	fieldWhoisServer
	fieldAbuseEmail
	fieldAbusePhone
	fieldCreated
	fieldUpdated
	fieldExpires
	fieldTransferred
	fieldStatus
	fieldNameServer
	fieldDNSSEC
	fieldRegistrantName
	fieldRegistrantOrg
	fieldRegistrantEmail
	fieldRegistrantPhone
	fieldRegistrantCountry
	fieldRegistrantState
	fieldRegistrantCity
)

// keyRule matches a normalized key when it contains one of has and none of not.
// Rules are ordered; the first match wins.
type keyRule struct {
	field lineField
	has   []string
	not   []string
}

var keyRules = []keyRule{
	{fieldAbuseEmail, []string{"abuse contact email", "abuse email", "abuse-mailbox"}, nil},
	{fieldAbusePhone, []string{"abuse contact phone", "abuse phone"}, nil},
	{fieldRegistrarIANA, []string{"registrar iana id", "iana id"}, nil},
	{fieldRegistrarURL, []string{"registrar url", "referral url", "注册商网址"}, nil},
	{fieldWhoisServer, []string{"whois server", "whois"}, []string{"database"}},
	{fieldExpires, []string{"expir", "paid-till", "renewal date", "过期时间", "到期时间", "到期日期"}, nil},
	{fieldCreated, []string{"creation date", "created", "registered on", "registration time", "registration date", "注册时间", "创建时间", "注册日期"}, nil},
	{fieldUpdated, []string{"updated date", "last updated", "last modified", "changed", "更新时间", "修改时间"}, []string{"whois database", "rdap database"}},
	{fieldTransferred, []string{"transfer date", "transferred", "转移时间"}, nil},
	{fieldRegistrantOrg, []string{"registrant organization", "registrant organisation", "注册人组织", "注册者组织"}, nil},
	{fieldRegistrantEmail, []string{"registrant email", "registrant contact email", "注册人邮箱", "注册者邮箱", "联系人邮箱"}, nil},
	{fieldRegistrantPhone, []string{"registrant phone", "注册人电话"}, []string{"ext"}},
	{fieldRegistrantCountry, []string{"registrant country", "注册人国家"}, nil},
	{fieldRegistrantState, []string{"registrant state", "registrant province", "注册人省份"}, nil},
	{fieldRegistrantCity, []string{"registrant city", "注册人城市"}, nil},
	{fieldRegistrantName, []string{"registrant name", "registrant", "注册人", "注册者", "所有者"}, []string{"id", "street", "postal", "fax", "ext"}},
	{fieldRegistrar, []string{"registrar", "sponsoring registrar", "注册商", "注册服务机构"}, []string{"id", "url", "whois", "abuse", "registration", "expir"}},
	{fieldDNSSEC, []string{"dnssec"}, nil},
	{fieldNameServer, []string{"name server", "nameserver", "nserver", "dns server", "域名服务器", "dns服务器"}, nil},
	{fieldStatus, []string{"domain status", "status", "域名状态", "状态"}, nil},
}

func matchKey(key string) lineField {
	k := strings.ToLower(strings.TrimSpace(key))
	for _, r := range keyRules {
		if containsAny(k, r.has...) && !containsAny(k, r.not...) {
			return r.field
		}
	}
	return fieldNone
}

// splitKV splits "key: value" on the first ASCII or full-width colon.
func splitKV(line string) (string, string, bool) {
	i := strings.Index(line, ":")
	if j := strings.Index(line, "："); j >= 0 && (i < 0 || j < i) {
		return line[:j], strings.TrimSpace(line[j+len("："):]), true
	}
	if i < 0 {
		return "", "", false
	}
	return line[:i], strings.TrimSpace(line[i+1:]), true
}

// recordFromLines parses normalized key:value lines from the extraction service.
func recordFromLines(text string) *Record {
	rec := &Record{Availability: Registered, DNSSEC: DNSSECUnknown}
	reg := &Registrar{}
	dates := &Dates{}
	registrant := &Contact{}

	sc := bufio.NewScanner(strings.NewReader(text))
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "%") || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ">>>") {
			continue
		}
		key, val, ok := splitKV(line)
		if !ok || val == "" {
			continue
		}
		switch matchKey(key) {
		case fieldRegistrar:
			reg.Name = firstNonEmpty(reg.Name, val)
		case fieldRegistrarIANA:
			reg.IANAID = firstNonEmpty(reg.IANAID, val)
		case fieldRegistrarURL:
			reg.URL = firstNonEmpty(reg.URL, val)
		case fieldWhoisServer:
			reg.WhoisServer = firstNonEmpty(reg.WhoisServer, val)
		case fieldAbuseEmail:
			reg.AbuseEmail = firstNonEmpty(reg.AbuseEmail, val)
		case fieldAbusePhone:
			reg.AbusePhone = firstNonEmpty(reg.AbusePhone, val)
		case fieldCreated:
			dates.set(dateCreated, val)
		case fieldUpdated:
			dates.set(dateUpdated, val)
		case fieldExpires:
			dates.set(dateExpires, val)
		case fieldTransferred:
			dates.set(dateTransferred, val)
		case fieldStatus:
			for _, s := range strings.Split(val, ",") {
				rec.Status = append(rec.Status, eppStatus(s))
			}
		case fieldNameServer:
			for _, ns := range strings.FieldsFunc(val, func(r rune) bool { return r == ',' || r == ' ' || r == '\t' }) {
				if strings.Contains(ns, ".") {
					rec.NameServers = append(rec.NameServers, ns)
				}
			}
		case fieldDNSSEC:
			rec.DNSSEC = dnssecFromText(val)
		case fieldRegistrantName:
			registrant.Name = firstNonEmpty(registrant.Name, val)
		case fieldRegistrantOrg:
			registrant.Organization = firstNonEmpty(registrant.Organization, val)
		case fieldRegistrantEmail:
			registrant.Email = firstNonEmpty(registrant.Email, val)
		case fieldRegistrantPhone:
			registrant.Phone = firstNonEmpty(registrant.Phone, val)
		case fieldRegistrantCountry:
			registrant.Country = firstNonEmpty(registrant.Country, val)
		case fieldRegistrantState:
			registrant.State = firstNonEmpty(registrant.State, val)
		case fieldRegistrantCity:
			registrant.City = firstNonEmpty(registrant.City, val)
		case fieldNone:
		}
	}
	rec.Registrar, rec.Dates = reg, dates
	if !registrant.empty() {
		rec.Contacts = &Contacts{Registrant: registrant}
	}
	rec.normalize()
	return rec
}

// dnssecFromText reads a DNSSEC value by whole words, so "unknown" or
// "not available" never pass for "no".
func dnssecFromText(v string) DNSSEC {
	v = strings.ToLower(strings.TrimSpace(v))
	switch {
	case strings.Contains(v, "未签名"):
		return DNSSECUnsigned
	case strings.Contains(v, "已签名"):
		return DNSSECSigned
	}
	words := make(map[string]bool)
	for _, w := range strings.FieldsFunc(v, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		words[w] = true
	}
	switch {
	case words["unknown"], words["not"] && (words["available"] || words["applicable"]):
		return DNSSECUnknown
	case words["not"] && words["signed"],
		words["unsigned"], words["unsigneddelegation"], words["no"], words["false"], words["inactive"]:
		return DNSSECUnsigned
	case words["signed"], words["signeddelegation"], words["yes"], words["true"], words["active"]:
		return DNSSECSigned
	}
	return DNSSECUnknown
}
