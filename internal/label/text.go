package label

import (
	"html"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/nao1215/formscan/internal/dom"
	"github.com/nao1215/formscan/internal/model"
)

// Bounds on the length of a usable label, in characters.
const (
	MinLength = 2
	MaxLength = 100
)

var (
	// markup strips every tag from label text.
	markup = bluemonday.StrictPolicy()

	splitWordsPattern = regexp.MustCompile(`[_\-\s.\[\]]+`)
	trailingNoise     = regexp.MustCompile(`(?i)\s*(:|：|\*|\(\s*required\s*\)|\(\s*optional\s*\))\s*$`)
	leadingNoise      = regexp.MustCompile(`^\s*\*+\s*`)
	bareNumber        = regexp.MustCompile(`^[\d\s.,\-+()#/%$]+$`)
	identifier        = regexp.MustCompile(`^[A-Za-z0-9]+(_[A-Za-z0-9]+)+$|^[A-Za-z][a-z0-9]*(-[a-z0-9]+){2,}$|^[a-z]+([A-Z][a-z0-9]*)+$`)
	titleCaser        = cases.Title(language.English)
)

// buttonText is common action text that is never a field label.
var buttonText = map[string]struct{}{
	"submit": {}, "cancel": {}, "reset": {}, "next": {}, "previous": {},
	"back": {}, "continue": {}, "save": {}, "search": {}, "go": {},
	"ok": {}, "clear": {}, "add": {}, "remove": {}, "delete": {},
	"edit": {}, "upload": {}, "browse": {}, "close": {}, "apply": {},
	"login": {}, "log in": {}, "sign in": {}, "save and continue": {},
	"next step": {}, "select": {}, "choose": {}, "choose file": {},
}

// Clean normalizes raw label text: markup is removed, entities decoded,
// whitespace collapsed, and trailing colons, asterisks and required or
// optional markers stripped. All-lowercase text gets an initial capital.
func Clean(raw string) string {
	s := html.UnescapeString(markup.Sanitize(raw))
	s = dom.CollapseSpace(s)
	s = leadingNoise.ReplaceAllString(s, "")
	for {
		trimmed := strings.TrimSpace(trailingNoise.ReplaceAllString(s, ""))
		if trimmed == s {
			break
		}
		s = trimmed
	}
	if s != "" && s == strings.ToLower(s) {
		r, size := utf8.DecodeRuneInString(s)
		s = string(unicode.ToUpper(r)) + s[size:]
	}
	return s
}

// Valid reports whether cleaned text can serve as a label.
func Valid(s string) bool {
	n := utf8.RuneCountInString(s)
	if n < MinLength || n > MaxLength {
		return false
	}
	if !strings.ContainsFunc(s, func(r rune) bool {
		return unicode.IsLetter(r) || unicode.IsDigit(r)
	}) {
		return false
	}
	if bareNumber.MatchString(s) {
		return false
	}
	if _, ok := buttonText[strings.ToLower(s)]; ok {
		return false
	}
	return !identifier.MatchString(s)
}

// ValidFor is Valid plus a check that s is not the kebab-case name or id
// of the field it would label, as in <label for="zip-code">zip-code</label>.
func ValidFor(s string, c model.FieldCandidate) bool {
	if !Valid(s) {
		return false
	}
	if !strings.Contains(s, "-") || strings.ContainsFunc(s, unicode.IsSpace) {
		return true
	}
	_, size := utf8.DecodeRuneInString(s)
	if rest := s[size:]; rest != strings.ToLower(rest) {
		return true
	}
	return !strings.EqualFold(s, c.Name) && !strings.EqualFold(s, c.ID)
}

// Humanize turns a field name or id such as "business_name",
// "ownerFirstName" or "addr[line2]" into title-cased words.
func Humanize(name string) string {
	words := Words(name)
	if len(words) == 0 {
		return ""
	}
	return titleCaser.String(strings.Join(words, " "))
}

// Words splits s on separators and camelCase or letter/digit boundaries
// and returns the lower-cased words.
func Words(s string) []string {
	var words []string
	for _, part := range splitWordsPattern.Split(s, -1) {
		if part == "" {
			continue
		}
		for _, w := range strings.Fields(splitCamel(part)) {
			words = append(words, strings.ToLower(w))
		}
	}
	return words
}

func splitCamel(input string) string {
	var out strings.Builder
	runes := []rune(input)
	for i, r := range runes {
		if i > 0 && isBoundary(runes, i) {
			out.WriteRune(' ')
		}
		out.WriteRune(r)
	}
	return out.String()
}

func isBoundary(runes []rune, i int) bool {
	prev, r := runes[i-1], runes[i]
	switch {
	case unicode.IsLower(prev) && unicode.IsUpper(r):
		return true
	case unicode.IsLetter(prev) && unicode.IsDigit(r):
		return true
	case unicode.IsDigit(prev) && unicode.IsLetter(r):
		return true
	case unicode.IsUpper(prev) && unicode.IsUpper(r) && i+1 < len(runes) && unicode.IsLower(runes[i+1]):
		// "EINNumber" -> "EIN Number"
		return true
	}
	return false
}
