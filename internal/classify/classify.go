// Package classify assigns a knowledge base category to each field.
//
// A field is scored against every knowledge entry. Each distinct pattern
// that matches the field corpus adds PatternWeight, each keyword found in
// it adds KeywordWeight and a matching autocomplete token adds
// AttributeWeight. The entry's priority is added once any of those hit.
// The native control type adds AffinityBonus to the categories it implies
// (an email input implies email) and restricts the choice to them. The
// options of a select or group can add OptionBias to one category. The
// best score, clamped to 100, wins; a best score at or below the floor
// leaves the field in the "other" category.
package classify

import (
	"fmt"
	"slices"
	"strings"

	"github.com/nao1215/formscan/internal/knowledge"
	"github.com/nao1215/formscan/internal/model"
)

// Stage is the name recorded on errors raised while classifying.
const Stage = "classify"

// Default scoring weights.
const (
	DefaultPatternWeight   = 40
	DefaultKeywordWeight   = 20
	DefaultAttributeWeight = 40
	DefaultAffinityBonus   = 90
	DefaultOptionBias      = 60
	DefaultFloor           = 0
)

// MaxScore is the highest confidence a field can get.
const MaxScore = model.MaxConfidence

const (
	entityCategory  = knowledge.CategoryEntityType
	booleanCategory = knowledge.CategoryBoolean
	stateCategory   = knowledge.CategoryState
)

// typeAffinity maps native control types to the categories they imply.
var typeAffinity = map[string][]string{
	"email": {knowledge.CategoryEmail},
	"tel":   {knowledge.CategoryPhone, knowledge.CategoryFax},
	"url":   {knowledge.CategoryWebsite},
	"date":  {knowledge.CategoryFormationDate, knowledge.CategoryDateOfBirth, knowledge.CategoryFiscalYearEnd},
}

// weakAffinity lists control types whose implied categories only earn the
// bonus, and the restriction, when the field content also points at one
// of them. A date input is a date, not necessarily a formation date.
var weakAffinity = map[string]bool{
	"date": true,
}

// checkboxAffinity applies to standalone checkboxes.
var checkboxAffinity = []string{knowledge.CategoryBoolean, knowledge.CategoryAgreement}

// Options are the scoring weights.
type Options struct {
	PatternWeight   int
	KeywordWeight   int
	AttributeWeight int
	AffinityBonus   int
	OptionBias      int
	Floor           int
}

// DefaultOptions returns the default weights.
func DefaultOptions() Options {
	return Options{
		PatternWeight:   DefaultPatternWeight,
		KeywordWeight:   DefaultKeywordWeight,
		AttributeWeight: DefaultAttributeWeight,
		AffinityBonus:   DefaultAffinityBonus,
		OptionBias:      DefaultOptionBias,
		Floor:           DefaultFloor,
	}
}

// Score is the score of one category for one field.
type Score struct {
	Category string `json:"category"`
	Value    int    `json:"value"`
	Affinity bool   `json:"affinity,omitempty"`
}

// Result is the classification of one field.
type Result struct {
	Category   string
	Confidence int
	Validation string
}

// Classifier scores fields against a knowledge base. It holds no per-pass
// state and is safe for concurrent use.
type Classifier struct {
	kb   *knowledge.Base
	opts Options
}

// New returns a Classifier for kb. A nil kb means knowledge.Default().
func New(kb *knowledge.Base, opts Options) *Classifier {
	if kb == nil {
		kb = knowledge.Default()
	}
	return &Classifier{kb: kb, opts: opts}
}

// Knowledge returns the knowledge base the classifier scores against.
func (c *Classifier) Knowledge() *knowledge.Base {
	return c.kb
}

// Scores returns the unclamped score of every category for f in
// knowledge order.
func (c *Classifier) Scores(f model.ClassifiedField) []Score {
	corpus := Corpus(f)
	affinity := affinityOf(f)
	weak := f.Tag == "input" && weakAffinity[f.Type]
	bias := optionBias(f)
	tokens := strings.Fields(f.Autocomplete)

	entries := c.kb.Entries()
	scores := make([]Score, 0, len(entries))
	for i := range entries {
		e := &entries[i]
		s := Score{Category: e.Category}

		for _, re := range e.Matchers() {
			if re.MatchString(corpus) {
				s.Value += c.opts.PatternWeight
			}
		}
		for _, kw := range e.Keywords {
			if kw = Normalize(kw); kw != "" && strings.Contains(corpus, kw) {
				s.Value += c.opts.KeywordWeight
			}
		}
		for _, a := range e.Attributes {
			if slices.Contains(tokens, strings.ToLower(a)) {
				s.Value += c.opts.AttributeWeight
				break
			}
		}
		if e.Category == bias {
			s.Value += c.opts.OptionBias
		}
		if s.Value > 0 {
			s.Value += e.Priority
		}
		if slices.Contains(affinity, e.Category) && (!weak || s.Value > 0) {
			s.Value += c.opts.AffinityBonus
			s.Affinity = true
		}
		scores = append(scores, s)
	}
	return scores
}

// Classify returns the winning category of f. When the control type
// implies categories the winner is chosen among them. Equal scores go to
// the category that comes first in the knowledge base. Hidden inputs are
// always CategoryOther.
func (c *Classifier) Classify(f model.ClassifiedField) Result {
	if f.Hidden {
		return Result{Category: model.CategoryOther}
	}
	scores := c.Scores(f)

	restrict := slices.ContainsFunc(scores, func(s Score) bool { return s.Affinity })
	best := -1
	for i, s := range scores {
		if restrict && !s.Affinity {
			continue
		}
		if best < 0 || s.Value > scores[best].Value {
			best = i
		}
	}
	if best < 0 || scores[best].Value <= c.opts.Floor {
		return Result{Category: model.CategoryOther}
	}

	e, _ := c.kb.Entry(scores[best].Category)
	return Result{
		Category:   e.Category,
		Confidence: min(scores[best].Value, MaxScore),
		Validation: e.Validation,
	}
}

// ClassifyAll classifies fields in place. A field whose classification
// panics is dropped and reported.
func (c *Classifier) ClassifyAll(fields []model.ClassifiedField) ([]model.ClassifiedField, []model.FieldError) {
	out := fields[:0]
	var errs []model.FieldError
	for _, f := range fields {
		r, err := c.classifySafe(f)
		if err != nil {
			errs = append(errs, model.FieldError{
				Stage:    Stage,
				Position: f.Position,
				Name:     f.Name,
				Message:  err.Error(),
			})
			continue
		}
		f.Category, f.Confidence, f.Validation = r.Category, r.Confidence, r.Validation
		out = append(out, f)
	}
	return out, errs
}

func (c *Classifier) classifySafe(f model.ClassifiedField) (r Result, err error) {
	defer func() {
		if v := recover(); v != nil {
			err = fmt.Errorf("classify field: %v", v)
		}
	}()
	return c.Classify(f), nil
}

// affinityOf returns the categories implied by the control type of f.
func affinityOf(f model.ClassifiedField) []string {
	if f.Type == "checkbox" && !f.IsGroup {
		return checkboxAffinity
	}
	if f.Tag != "input" {
		return nil
	}
	return typeAffinity[f.Type]
}
