// Package aggregate turns classified fields into a form-level verdict.
package aggregate

import (
	"github.com/nao1215/formscan/internal/knowledge"
	"github.com/nao1215/formscan/internal/model"
)

// Default thresholds.
const (
	// DefaultAnchorThreshold is the confidence an anchor field needs to
	// earn its bonus.
	DefaultAnchorThreshold = 60

	// DefaultFormThreshold is the overall confidence at which a page is a
	// business registration form.
	DefaultFormThreshold = 50
)

// Bonuses that make up the overall confidence.
const (
	BonusBusinessName    = 40
	BonusEntityType      = 30
	BonusClassifiedCount = 20
	BonusClassifiedRatio = 10

	// MinClassified is the classified field count that earns
	// BonusClassifiedCount.
	MinClassified = 3

	// MinClassifiedRatio is the classified share that must be exceeded to
	// earn BonusClassifiedRatio.
	MinClassifiedRatio = 0.3
)

// Thresholds configure the verdict.
type Thresholds struct {
	Anchor int
	Form   int
}

// DefaultThresholds returns the default thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{Anchor: DefaultAnchorThreshold, Form: DefaultFormThreshold}
}

// anchorBonus lists the anchor categories with their bonus.
var anchorBonus = []struct {
	category string
	bonus    int
}{
	{knowledge.CategoryBusinessName, BonusBusinessName},
	{knowledge.CategoryEntityType, BonusEntityType},
}

// Verdict is the form-level outcome of a pass.
type Verdict struct {
	Confidence     int
	IsBusinessForm bool
	Summary        model.Summary
}

// Aggregate scores fields as a whole. Every bonus only grows with more
// classified fields or more anchors, so the confidence never drops when a
// field is classified. No fields, or none classified, yields zero.
func Aggregate(fields []model.ClassifiedField, t Thresholds) Verdict {
	summary := model.Summary{
		TotalFields: len(fields),
		Categories:  make(map[string]int),
	}

	present := make(map[string]bool)
	for _, f := range fields {
		category := f.Category
		if category == "" {
			category = model.CategoryOther
		}
		summary.Categories[category]++
		if f.IsGroup {
			summary.GroupCount++
		}
		if !f.Classified() {
			continue
		}
		summary.ClassifiedFields++
		if f.Confidence >= t.Anchor {
			present[f.Category] = true
		}
	}

	score := 0
	for _, a := range anchorBonus {
		if present[a.category] {
			score += a.bonus
			summary.Anchors = append(summary.Anchors, a.category)
		}
	}
	if summary.ClassifiedFields >= MinClassified {
		score += BonusClassifiedCount
	}
	if summary.TotalFields > 0 && float64(summary.ClassifiedFields)/float64(summary.TotalFields) > MinClassifiedRatio {
		score += BonusClassifiedRatio
	}
	score = min(score, model.MaxConfidence)

	return Verdict{
		Confidence:     score,
		IsBusinessForm: score >= t.Form,
		Summary:        summary,
	}
}

// Apply fills the verdict fields of r from its fields and sections.
func Apply(r *model.DetectionResult, t Thresholds) {
	v := Aggregate(r.Fields, t)
	v.Summary.SectionCount = len(r.Sections)
	r.OverallConfidence = v.Confidence
	r.IsBusinessForm = v.IsBusinessForm
	r.Summary = v.Summary
}
