package model

import "fmt"

// Section is a titled run of classified fields.
type Section struct {
	// Title is the cleaned header text, or a synthetic title.
	Title string `json:"title"`

	// Synthetic is true for the implicit or trailing catch-all section.
	Synthetic bool `json:"synthetic,omitempty"`

	// Fields holds indexes into DetectionResult.Fields in document order.
	Fields []int `json:"fields"`
}

// Summary is a compact description of a detection result.
type Summary struct {
	TotalFields      int            `json:"total_fields"`
	ClassifiedFields int            `json:"classified_fields"`
	GroupCount       int            `json:"group_count"`
	SectionCount     int            `json:"section_count"`
	Categories       map[string]int `json:"categories"`
	Anchors          []string       `json:"anchors,omitempty"`
}

// FieldError records a per-field failure that was recovered during a pass.
// The field is skipped and the pass continues.
type FieldError struct {
	// Stage is the pipeline step where the failure happened.
	Stage string `json:"stage"`

	// Position is the document position of the field.
	Position int `json:"position"`

	// Name is the field's name attribute, if any.
	Name string `json:"name,omitempty"`

	// Message describes the failure.
	Message string `json:"message"`
}

// Error implements the error interface.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: field %q at position %d: %s", e.Stage, e.Name, e.Position, e.Message)
}

// DetectionResult is the outcome of one detection pass.
type DetectionResult struct {
	Fields            []ClassifiedField `json:"fields"`
	Sections          []Section         `json:"sections"`
	OverallConfidence int               `json:"overall_confidence"`
	IsBusinessForm    bool              `json:"is_business_form"`
	DetectedState     string            `json:"detected_state,omitempty"`
	Summary           Summary           `json:"summary"`
	Errors            []FieldError      `json:"errors,omitempty"`
}

// NewDetectionResult creates an empty result with non-nil slices, which
// is also the result of a pass that found no signal.
func NewDetectionResult() *DetectionResult {
	return &DetectionResult{
		Fields:   make([]ClassifiedField, 0),
		Sections: make([]Section, 0),
		Summary: Summary{
			Categories: make(map[string]int),
		},
	}
}

// SectionFields returns the fields of section s.
func (r *DetectionResult) SectionFields(s Section) []ClassifiedField {
	fields := make([]ClassifiedField, 0, len(s.Fields))
	for _, idx := range s.Fields {
		if idx >= 0 && idx < len(r.Fields) {
			fields = append(fields, r.Fields[idx])
		}
	}
	return fields
}

// FieldsByCategory returns the fields whose category equals category.
func (r *DetectionResult) FieldsByCategory(category string) []ClassifiedField {
	var fields []ClassifiedField
	for _, f := range r.Fields {
		if f.Category == category {
			fields = append(fields, f)
		}
	}
	return fields
}
