// Package jurisdiction guesses which US state publishes a page.
//
// The guess is a static table lookup: the host name is checked first
// (state government domains), then the page headline text for a state
// name. The first match wins. The result only selects knowledge
// overrides, so a wrong or missing guess degrades gracefully.
package jurisdiction

import (
	"net/url"
	"regexp"
	"strings"
)

// State is one jurisdiction in the lookup table.
type State struct {
	Code string
	Name string
}

// states is ordered so that names containing another state's name come
// first (West Virginia before Virginia).
var states = []State{
	{Code: "AL", Name: "Alabama"},
	{Code: "AK", Name: "Alaska"},
	{Code: "AZ", Name: "Arizona"},
	{Code: "AR", Name: "Arkansas"},
	{Code: "CA", Name: "California"},
	{Code: "CO", Name: "Colorado"},
	{Code: "CT", Name: "Connecticut"},
	{Code: "DE", Name: "Delaware"},
	{Code: "DC", Name: "District of Columbia"},
	{Code: "FL", Name: "Florida"},
	{Code: "GA", Name: "Georgia"},
	{Code: "HI", Name: "Hawaii"},
	{Code: "ID", Name: "Idaho"},
	{Code: "IL", Name: "Illinois"},
	{Code: "IN", Name: "Indiana"},
	{Code: "IA", Name: "Iowa"},
	{Code: "KS", Name: "Kansas"},
	{Code: "KY", Name: "Kentucky"},
	{Code: "LA", Name: "Louisiana"},
	{Code: "ME", Name: "Maine"},
	{Code: "MD", Name: "Maryland"},
	{Code: "MA", Name: "Massachusetts"},
	{Code: "MI", Name: "Michigan"},
	{Code: "MN", Name: "Minnesota"},
	{Code: "MS", Name: "Mississippi"},
	{Code: "MO", Name: "Missouri"},
	{Code: "MT", Name: "Montana"},
	{Code: "NE", Name: "Nebraska"},
	{Code: "NV", Name: "Nevada"},
	{Code: "NH", Name: "New Hampshire"},
	{Code: "NJ", Name: "New Jersey"},
	{Code: "NM", Name: "New Mexico"},
	{Code: "NY", Name: "New York"},
	{Code: "NC", Name: "North Carolina"},
	{Code: "ND", Name: "North Dakota"},
	{Code: "OH", Name: "Ohio"},
	{Code: "OK", Name: "Oklahoma"},
	{Code: "OR", Name: "Oregon"},
	{Code: "PA", Name: "Pennsylvania"},
	{Code: "RI", Name: "Rhode Island"},
	{Code: "SC", Name: "South Carolina"},
	{Code: "SD", Name: "South Dakota"},
	{Code: "TN", Name: "Tennessee"},
	{Code: "TX", Name: "Texas"},
	{Code: "UT", Name: "Utah"},
	{Code: "VT", Name: "Vermont"},
	{Code: "WV", Name: "West Virginia"},
	{Code: "VA", Name: "Virginia"},
	{Code: "WA", Name: "Washington"},
	{Code: "WI", Name: "Wisconsin"},
	{Code: "WY", Name: "Wyoming"},
}

// specialHosts maps registration portals that do not follow the
// <code>.gov naming scheme.
var specialHosts = map[string]string{
	"sunbiz.org":             "FL",
	"ilsos.gov":              "IL",
	"cyberdriveillinois.com": "IL",
	"sosnc.gov":              "NC",
	"azcc.gov":               "AZ",
	"nvsos.gov":              "NV",
	"silverflume.gov":        "NV",
	"coloradosos.gov":        "CO",
}

// federalHosts are federal agency domains whose second-level label is
// also a state code.
var federalHosts = map[string]bool{
	"va.gov": true, // Veterans Affairs
}

var (
	byCode    = make(map[string]State, len(states))
	byName    = make(map[string]string, len(states))
	byDomain  = make(map[string]string, len(states))
	nameRegex = make([]*regexp.Regexp, len(states))
)

func init() {
	for i, s := range states {
		byCode[s.Code] = s
		byName[strings.ToLower(s.Name)] = s.Code
		byDomain[strings.ToLower(strings.ReplaceAll(s.Name, " ", ""))] = s.Code
		words := strings.Fields(s.Name)
		nameRegex[i] = regexp.MustCompile(`(?i)\b` + strings.Join(words, `\s+`) + `\b`)
	}
}

// Valid reports whether code is a known two-letter state code.
func Valid(code string) bool {
	_, ok := byCode[strings.ToUpper(strings.TrimSpace(code))]
	return ok
}

// Normalize returns code upper-cased if it is valid, else "".
func Normalize(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if _, ok := byCode[code]; ok {
		return code
	}
	return ""
}

// Lookup returns the code of the state named or coded by s, ignoring case
// and surrounding space, or "".
func Lookup(s string) string {
	s = strings.TrimSpace(s)
	if code := Normalize(s); code != "" {
		return code
	}
	return byName[strings.ToLower(strings.Join(strings.Fields(s), " "))]
}

// Name returns the state name for code, or "".
func Name(code string) string {
	return byCode[strings.ToUpper(code)].Name
}

// Detect returns the two-letter code of the state that most likely
// publishes the page at rawURL with the given headline text, or "".
func Detect(rawURL, text string) string {
	if code := FromHost(rawURL); code != "" {
		return code
	}
	return FromText(text)
}

// FromHost inspects the host name of rawURL. It recognizes
// <code>.gov, state.<code>.us, <code>.us, <statename>.gov and a few
// well-known portals, at any subdomain depth.
func FromHost(rawURL string) string {
	if rawURL == "" {
		return ""
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	host := strings.TrimSuffix(strings.ToLower(u.Hostname()), ".")
	if host == "" {
		return ""
	}

	labels := strings.Split(host, ".")
	for i := range labels {
		if code, ok := specialHosts[strings.Join(labels[i:], ".")]; ok {
			return code
		}
	}

	if len(labels) < 2 {
		return ""
	}
	tld := labels[len(labels)-1]
	second := labels[len(labels)-2]
	if federalHosts[second+"."+tld] {
		return ""
	}
	switch tld {
	case "gov", "us":
		if code := strings.ToUpper(second); len(second) == 2 && Valid(code) {
			return code
		}
		if code, ok := byDomain[second]; ok && tld == "gov" {
			return code
		}
	}
	return ""
}

// FromText returns the first state, in table order, whose name appears in
// text as whole words.
func FromText(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}
	for i, re := range nameRegex {
		if re.MatchString(text) {
			return states[i].Code
		}
	}
	return ""
}
