package model

import "golang.org/x/net/html"

// CategoryOther is assigned to fields that no knowledge entry matched.
const CategoryOther = "other"

// MaxConfidence is the upper bound of every confidence value.
const MaxConfidence = 100

// UnknownLabel is the label used when no strategy produced a usable text.
const UnknownLabel = "Unknown Field"

// LabelSource identifies the strategy that produced a label.
type LabelSource string

// Label sources, listed in resolution priority order.
const (
	LabelSourceAriaLabel      LabelSource = "aria-label"
	LabelSourceLabelFor       LabelSource = "label-for"
	LabelSourceLabelWrap      LabelSource = "label-wrap"
	LabelSourceAriaLabelledBy LabelSource = "aria-labelledby"
	LabelSourceNearbyText     LabelSource = "nearby-text"
	LabelSourceTableHeader    LabelSource = "table-header"
	LabelSourceLegend         LabelSource = "legend"
	LabelSourcePlaceholder    LabelSource = "placeholder"
	LabelSourceTitle          LabelSource = "title"
	LabelSourceName           LabelSource = "name"
	LabelSourceHeading        LabelSource = "heading"
	LabelSourceNone           LabelSource = "none"
)

// FieldCandidate is one interactive control found under the scan root.
// Node is a non-owning reference into the parsed document.
type FieldCandidate struct {
	// Node is the control element. It is never serialized.
	Node *html.Node `json:"-"`

	// Tag is the lower-case element name: input, select or textarea.
	Tag string `json:"tag"`

	// Type is the lower-case input type. For select and textarea it
	// equals the tag name.
	Type string `json:"type"`

	Name         string `json:"name,omitempty"`
	ID           string `json:"id,omitempty"`
	Placeholder  string `json:"placeholder,omitempty"`
	Autocomplete string `json:"autocomplete,omitempty"`
	Required     bool   `json:"required,omitempty"`

	// Hidden marks an allow-listed hidden input kept for form-state
	// detection. Hidden fields never receive a data category.
	Hidden bool `json:"hidden,omitempty"`

	// Value is the raw value attribute (or selected option for select).
	Value string `json:"-"`

	// Choices holds the options of a select element.
	Choices []Option `json:"-"`

	// Position is the pre-order index of the element in the document.
	Position int `json:"position"`

	// Box is the element's bounding box.
	Box Rect `json:"box"`
}

// LabelCandidate is the label text produced by one resolution strategy.
type LabelCandidate struct {
	Text   string      `json:"text"`
	Source LabelSource `json:"source"`
	Score  int         `json:"score"`
}

// Option is one choice of a select element or of a radio/checkbox group.
type Option struct {
	Value   string `json:"value"`
	Label   string `json:"label"`
	Checked bool   `json:"checked,omitempty"`
}

// ClassifiedField is a control, or a group of controls, with its resolved
// label and semantic category.
type ClassifiedField struct {
	FieldCandidate

	// Label is the resolved human-readable label.
	Label LabelCandidate `json:"label"`

	// Category is a knowledge base category key or CategoryOther.
	Category string `json:"category"`

	// Confidence is the classification score in [0,100].
	Confidence int `json:"confidence"`

	// Validation is the validation hint of the winning category, if any.
	Validation string `json:"validation,omitempty"`

	// IsGroup is true for radio and checkbox groups.
	IsGroup bool `json:"is_group,omitempty"`

	// Options lists group members or select options in document order.
	Options []Option `json:"options,omitempty"`

	// Members holds the member elements of a group. It is never serialized.
	Members []*html.Node `json:"-"`
}

// Classified reports whether the field received a category other than
// CategoryOther.
func (f *ClassifiedField) Classified() bool {
	return f.Category != "" && f.Category != CategoryOther
}

// OptionLabels returns the option labels of the field in order.
func (f *ClassifiedField) OptionLabels() []string {
	labels := make([]string, 0, len(f.Options))
	for _, o := range f.Options {
		labels = append(labels, o.Label)
	}
	return labels
}
