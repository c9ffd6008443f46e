package classify

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/nao1215/formscan/internal/jurisdiction"
	"github.com/nao1215/formscan/internal/label"
	"github.com/nao1215/formscan/internal/model"
)

// partSeparator keeps patterns from matching across label, name, id and
// placeholder.
const partSeparator = " ; "

// Normalize lower-cases s and splits it into words on separators,
// punctuation and camelCase boundaries, so "businessName", "business_name"
// and "Business Name:" all become "business name".
func Normalize(s string) string {
	var words []string
	for _, w := range label.Words(s) {
		w = strings.Map(func(r rune) rune {
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				return r
			}
			return ' '
		}, w)
		words = append(words, strings.Fields(w)...)
	}
	return strings.Join(words, " ")
}

// Corpus returns the text a field is matched against: its label, name, id
// and placeholder, each normalized. The unknown-label sentinel is left out.
func Corpus(f model.ClassifiedField) string {
	parts := make([]string, 0, 4)
	if f.Label.Source != model.LabelSourceNone && f.Label.Text != model.UnknownLabel {
		parts = append(parts, f.Label.Text)
	}
	parts = append(parts, f.Name, f.ID, f.Placeholder)

	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if n := Normalize(p); n != "" {
			out = append(out, n)
		}
	}
	return strings.Join(out, partSeparator)
}

var (
	entityVocabulary = regexp.MustCompile(`\b(llc|l l c|limited liability|corporation|corp|incorporated|inc|partnership|llp|lp|sole proprietor(ship)?|non ?profit|not for profit|cooperative|co op|professional association|benefit corporation)\b`)
	yesNoVocabulary  = regexp.MustCompile(`^(yes|no|y|n|true|false|none|not applicable|n a)$`)
)

// minStateOptions is how many state options make a list a state picker.
const minStateOptions = 10

// optionBias returns the category implied by the options of a select or
// group, or "".
func optionBias(f model.ClassifiedField) string {
	if len(f.Options) < 2 {
		return ""
	}

	entities, yesNo, states := 0, 0, 0
	for _, o := range f.Options {
		text := Normalize(o.Label)
		value := Normalize(o.Value)
		if entityVocabulary.MatchString(text) || entityVocabulary.MatchString(value) {
			entities++
		}
		if yesNoVocabulary.MatchString(text) || (text == "" && yesNoVocabulary.MatchString(value)) {
			yesNo++
		}
		if jurisdiction.Lookup(o.Label) != "" || jurisdiction.Lookup(o.Value) != "" {
			states++
		}
	}

	switch {
	case states >= minStateOptions:
		return stateCategory
	case entities >= 2:
		return entityCategory
	case yesNo == len(f.Options) && len(f.Options) <= 3:
		return booleanCategory
	}
	return ""
}
