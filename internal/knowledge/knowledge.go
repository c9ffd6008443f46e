package knowledge

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	// ErrInvalidPattern is returned when a pattern does not compile.
	ErrInvalidPattern = errors.New("knowledge: invalid pattern")

	// ErrDuplicateCategory is returned when two entries share a category.
	ErrDuplicateCategory = errors.New("knowledge: duplicate category")

	// ErrEmptyCategory is returned for an entry without a category key.
	ErrEmptyCategory = errors.New("knowledge: empty category")
)

// Entry describes how to recognize one field category.
type Entry struct {
	// Category is the stable key, e.g. "business_name".
	Category string `json:"category" yaml:"-"`

	// Label is the display name of the category.
	Label string `json:"label" yaml:"label"`

	// Patterns are regular expressions matched against the normalized
	// field corpus. Each distinct match counts once.
	Patterns []string `json:"patterns" yaml:"patterns"`

	// Keywords are substrings of the corpus. Each keyword counts once.
	Keywords []string `json:"keywords,omitempty" yaml:"keywords"`

	// Attributes are autocomplete tokens that identify the category.
	Attributes []string `json:"attributes,omitempty" yaml:"attributes"`

	// Priority is added to the score when any signal matched.
	Priority int `json:"priority" yaml:"priority"`

	// Validation is a hint for data entry, usually a regular expression.
	Validation string `json:"validation,omitempty" yaml:"validation"`

	matchers []*regexp.Regexp
}

// Matchers returns the compiled patterns of the entry.
func (e *Entry) Matchers() []*regexp.Regexp {
	return e.matchers
}

func (e *Entry) compile() error {
	e.matchers = make([]*regexp.Regexp, 0, len(e.Patterns))
	for _, p := range e.Patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return fmt.Errorf("%w: %s: %q: %v", ErrInvalidPattern, e.Category, p, err)
		}
		e.matchers = append(e.matchers, re)
	}
	return nil
}

// Base is an ordered, immutable set of knowledge entries. The order is the
// tie-break order used by the classifier.
type Base struct {
	entries []Entry
	index   map[string]int
}

// New builds a Base from entries, compiling every pattern.
func New(entries []Entry) (*Base, error) {
	b := &Base{
		entries: make([]Entry, 0, len(entries)),
		index:   make(map[string]int, len(entries)),
	}
	for _, e := range entries {
		if e.Category == "" {
			return nil, ErrEmptyCategory
		}
		if _, ok := b.index[e.Category]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateCategory, e.Category)
		}
		e.Patterns = slices.Clone(e.Patterns)
		e.Keywords = slices.Clone(e.Keywords)
		e.Attributes = slices.Clone(e.Attributes)
		if e.Label == "" {
			e.Label = DisplayName(e.Category)
		}
		if err := e.compile(); err != nil {
			return nil, err
		}
		b.index[e.Category] = len(b.entries)
		b.entries = append(b.entries, e)
	}
	return b, nil
}

// Len returns the number of entries.
func (b *Base) Len() int {
	return len(b.entries)
}

// Entries returns the entries in order. The slice must not be modified.
func (b *Base) Entries() []Entry {
	return b.entries
}

// Entry returns the entry for category.
func (b *Base) Entry(category string) (Entry, bool) {
	i, ok := b.index[category]
	if !ok {
		return Entry{}, false
	}
	return b.entries[i], true
}

// Categories returns the category keys in order.
func (b *Base) Categories() []string {
	keys := make([]string, len(b.entries))
	for i, e := range b.entries {
		keys[i] = e.Category
	}
	return keys
}

// Label returns the display name of category. Unknown categories are
// humanized from their key.
func (b *Base) Label(category string) string {
	if e, ok := b.Entry(category); ok {
		return e.Label
	}
	return DisplayName(category)
}

// Merge returns a new Base with o applied. List fields are unioned with
// the existing values first; scalar fields replace existing values when
// set. Categories unknown to b are appended in key order.
func (b *Base) Merge(o Overrides) (*Base, error) {
	if len(o) == 0 {
		return b, nil
	}

	entries := slices.Clone(b.entries)
	keys := make([]string, 0, len(o))
	for k := range o {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		ov := o[k]
		if i, ok := b.index[k]; ok {
			entries[i] = ov.apply(entries[i])
			continue
		}
		entries = append(entries, ov.apply(Entry{Category: k}))
	}
	return New(entries)
}

// Override changes one entry. Nil scalars leave the entry unchanged.
type Override struct {
	Label      *string  `json:"label,omitempty" yaml:"label"`
	Patterns   []string `json:"patterns,omitempty" yaml:"patterns"`
	Keywords   []string `json:"keywords,omitempty" yaml:"keywords"`
	Attributes []string `json:"attributes,omitempty" yaml:"attributes"`
	Priority   *int     `json:"priority,omitempty" yaml:"priority"`
	Validation *string  `json:"validation,omitempty" yaml:"validation"`
}

// Overrides maps categories to their overrides.
type Overrides map[string]Override

func (ov Override) apply(e Entry) Entry {
	e.Patterns = union(e.Patterns, ov.Patterns)
	e.Keywords = union(e.Keywords, ov.Keywords)
	e.Attributes = union(e.Attributes, ov.Attributes)
	if ov.Label != nil {
		e.Label = *ov.Label
	}
	if ov.Priority != nil {
		e.Priority = *ov.Priority
	}
	if ov.Validation != nil {
		e.Validation = *ov.Validation
	}
	return e
}

// union appends the values of add missing from base, keeping order.
func union(base, add []string) []string {
	out := slices.Clone(base)
	for _, v := range add {
		if !slices.Contains(out, v) {
			out = append(out, v)
		}
	}
	return out
}

// DisplayName turns a category key such as "zip_code" into "Zip Code".
func DisplayName(category string) string {
	words := strings.Fields(strings.NewReplacer("_", " ", "-", " ").Replace(category))
	return cases.Title(language.English).String(strings.Join(words, " "))
}
