// Package uidata reshapes a detection result for display.
package uidata

import (
	"github.com/nao1215/formscan/internal/knowledge"
	"github.com/nao1215/formscan/internal/model"
)

// Field is one field as shown to a user.
type Field struct {
	Label      string         `json:"label"`
	Name       string         `json:"name,omitempty"`
	ID         string         `json:"id,omitempty"`
	Type       string         `json:"type"`
	Confidence int            `json:"confidence"`
	Required   bool           `json:"required,omitempty"`
	Validation string         `json:"validation,omitempty"`
	Options    []model.Option `json:"options,omitempty"`
	Section    string         `json:"section,omitempty"`
}

// Category lists the fields of one category.
type Category struct {
	Label  string  `json:"label"`
	Fields []Field `json:"fields"`
}

// Section is a section header with its size.
type Section struct {
	Title      string `json:"title"`
	FieldCount int    `json:"field_count"`
}

// View is the display form of a detection result.
type View struct {
	Categories        map[string]Category `json:"categories"`
	Sections          []Section           `json:"sections"`
	Summary           model.Summary       `json:"summary"`
	OverallConfidence int                 `json:"overall_confidence"`
	IsBusinessForm    bool                `json:"is_business_form"`
	DetectedState     string              `json:"detected_state,omitempty"`
}

// Project builds the view of r. Category labels come from kb; a nil kb
// means knowledge.Default(). r is not modified.
func Project(r *model.DetectionResult, kb *knowledge.Base) View {
	if kb == nil {
		kb = knowledge.Default()
	}
	v := View{
		Categories: make(map[string]Category),
		Sections:   make([]Section, 0),
	}
	if r == nil {
		v.Summary.Categories = make(map[string]int)
		return v
	}

	sectionOf := make(map[int]string, len(r.Fields))
	for _, s := range r.Sections {
		v.Sections = append(v.Sections, Section{Title: s.Title, FieldCount: len(s.Fields)})
		for _, idx := range s.Fields {
			sectionOf[idx] = s.Title
		}
	}

	for i, f := range r.Fields {
		key := f.Category
		if key == "" {
			key = model.CategoryOther
		}
		c, ok := v.Categories[key]
		if !ok {
			c = Category{Label: kb.Label(key), Fields: make([]Field, 0, 1)}
		}
		c.Fields = append(c.Fields, Field{
			Label:      f.Label.Text,
			Name:       f.Name,
			ID:         f.ID,
			Type:       f.Type,
			Confidence: f.Confidence,
			Required:   f.Required,
			Validation: f.Validation,
			Options:    f.Options,
			Section:    sectionOf[i],
		})
		v.Categories[key] = c
	}

	v.Summary = r.Summary
	v.OverallConfidence = r.OverallConfidence
	v.IsBusinessForm = r.IsBusinessForm
	v.DetectedState = r.DetectedState
	return v
}
