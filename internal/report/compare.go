package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/markdown"

	"github.com/nao1215/formscan/internal/model"
)

// Verdict changes between two detections.
const (
	VerdictGained    = "gained"
	VerdictLost      = "lost"
	VerdictUnchanged = "unchanged"
)

// DetectionMetadata describes one side of a comparison.
type DetectionMetadata struct {
	DateScanned       time.Time `json:"date_scanned"`
	Hash              string    `json:"hash,omitempty"`
	OverallConfidence int       `json:"overall_confidence"`
	IsBusinessForm    bool      `json:"is_business_form"`
	TotalFields       int       `json:"total_fields"`
	ClassifiedFields  int       `json:"classified_fields"`
	DetectedState     string    `json:"detected_state,omitempty"`
}

// FieldChange is a field that appeared, disappeared or was reclassified.
type FieldChange struct {
	Key                string `json:"key"`
	Label              string `json:"label"`
	Category           string `json:"category,omitempty"`
	Confidence         int    `json:"confidence"`
	PreviousCategory   string `json:"previous_category,omitempty"`
	PreviousConfidence int    `json:"previous_confidence,omitempty"`
}

// Comparison is the difference between two detections of one source.
type Comparison struct {
	Source          string            `json:"source"`
	Previous        DetectionMetadata `json:"previous"`
	Current         DetectionMetadata `json:"current"`
	ContentChanged  bool              `json:"content_changed"`
	Verdict         string            `json:"verdict"`
	ConfidenceDelta int               `json:"confidence_delta"`
	Added           []FieldChange     `json:"added,omitempty"`
	Removed         []FieldChange     `json:"removed,omitempty"`
	Reclassified    []FieldChange     `json:"reclassified,omitempty"`
	UnchangedCount  int               `json:"unchanged_count"`
}

// HasChanges reports whether any field or the verdict changed.
func (c *Comparison) HasChanges() bool {
	return len(c.Added) > 0 || len(c.Removed) > 0 || len(c.Reclassified) > 0 ||
		c.Verdict != VerdictUnchanged || c.ConfidenceDelta != 0
}

// Compare diffs previous against current. Fields are matched by name,
// then id, then type and label. Added and reclassified fields follow the
// current document order; removed fields follow the previous one.
func Compare(previous, current *model.Report) *Comparison {
	c := &Comparison{
		Source:   current.Source,
		Previous: metadata(previous),
		Current:  metadata(current),
	}
	c.ContentChanged = c.Previous.Hash == "" || c.Previous.Hash != c.Current.Hash
	c.ConfidenceDelta = c.Current.OverallConfidence - c.Previous.OverallConfidence
	switch {
	case !c.Previous.IsBusinessForm && c.Current.IsBusinessForm:
		c.Verdict = VerdictGained
	case c.Previous.IsBusinessForm && !c.Current.IsBusinessForm:
		c.Verdict = VerdictLost
	default:
		c.Verdict = VerdictUnchanged
	}

	prev := fieldsOf(previous)
	cur := fieldsOf(current)

	prevByKey := make(map[string]model.ClassifiedField, len(prev))
	for _, f := range prev {
		prevByKey[fieldKey(f)] = f
	}
	curKeys := make(map[string]bool, len(cur))

	for _, f := range cur {
		key := fieldKey(f)
		curKeys[key] = true
		old, ok := prevByKey[key]
		switch {
		case !ok:
			c.Added = append(c.Added, change(key, f))
		case old.Category != f.Category:
			fc := change(key, f)
			fc.PreviousCategory = old.Category
			fc.PreviousConfidence = old.Confidence
			c.Reclassified = append(c.Reclassified, fc)
		default:
			c.UnchangedCount++
		}
	}
	for _, f := range prev {
		if key := fieldKey(f); !curKeys[key] {
			c.Removed = append(c.Removed, change(key, f))
		}
	}
	return c
}

func metadata(r *model.Report) DetectionMetadata {
	m := DetectionMetadata{DateScanned: r.DateScanned}
	if r.Page != nil {
		m.Hash = r.Page.Hash
	}
	if res := r.Result; res != nil {
		m.OverallConfidence = res.OverallConfidence
		m.IsBusinessForm = res.IsBusinessForm
		m.TotalFields = len(res.Fields)
		m.ClassifiedFields = res.Summary.ClassifiedFields
		m.DetectedState = res.DetectedState
	}
	return m
}

func fieldsOf(r *model.Report) []model.ClassifiedField {
	if r.Result == nil {
		return nil
	}
	return r.Result.Fields
}

func fieldKey(f model.ClassifiedField) string {
	switch {
	case f.Name != "":
		return "name:" + f.Name
	case f.ID != "":
		return "id:" + f.ID
	default:
		return f.Type + ":" + strings.ToLower(f.Label.Text)
	}
}

func change(key string, f model.ClassifiedField) FieldChange {
	return FieldChange{Key: key, Label: f.Label.Text, Category: f.Category, Confidence: f.Confidence}
}

// ComparisonWriter renders comparisons as text, Markdown or JSON.
type ComparisonWriter struct {
	baseWriter
	format Format
}

// NewComparisonWriter creates a ComparisonWriter. FormatUI is treated as
// FormatJSON; an unknown format means text.
func NewComparisonWriter(output io.Writer, format Format) *ComparisonWriter {
	return &ComparisonWriter{baseWriter: newBaseWriter(output), format: format}
}

// Write outputs c.
func (w *ComparisonWriter) Write(c *Comparison) (int, error) {
	switch w.format {
	case FormatJSON, FormatUI:
		return NewJSONWriter(w.output, WithPrettyPrint()).writeJSON(c)
	case FormatMarkdown:
		return w.writeMarkdown(c)
	default:
		return io.WriteString(w.output, w.text(c))
	}
}

func (w *ComparisonWriter) text(c *Comparison) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Detection Comparison: %s\n", c.Source)
	sb.WriteString(strings.Repeat("=", 60))
	sb.WriteString("\n\n")

	fmt.Fprintf(&sb, "Previous detection: %s\n", c.Previous.DateScanned.Format(timeLayout))
	fmt.Fprintf(&sb, "Current detection:  %s\n", c.Current.DateScanned.Format(timeLayout))
	fmt.Fprintf(&sb, "Page content:       %s\n", changedText(c.ContentChanged))
	fmt.Fprintf(&sb, "Verdict:            %s\n\n", verdictText(c))

	fmt.Fprintf(&sb, "  %-12s  %-10s  %-10s  %-10s\n", "Metric", "Previous", "Current", "Change")
	sb.WriteString("  " + strings.Repeat("-", 48) + "\n")
	for _, row := range w.metricRows(c) {
		fmt.Fprintf(&sb, "  %-12s  %-10s  %-10s  %-10s\n", row[0], row[1], row[2], row[3])
	}

	writeChanges := func(title, marker string, changes []FieldChange) {
		if len(changes) == 0 {
			return
		}
		fmt.Fprintf(&sb, "\n%s (%d):\n", title, len(changes))
		for _, fc := range changes {
			fmt.Fprintf(&sb, "  [%s] %s: %s\n", marker, fc.Label, w.changeText(fc))
		}
	}
	writeChanges("Added Fields", "+", c.Added)
	writeChanges("Removed Fields", "-", c.Removed)
	writeChanges("Reclassified Fields", "~", c.Reclassified)

	if c.UnchangedCount > 0 {
		fmt.Fprintf(&sb, "\nUnchanged: %d fields\n", c.UnchangedCount)
	}
	return sb.String()
}

func (w *ComparisonWriter) writeMarkdown(c *Comparison) (int, error) {
	md := markdown.NewMarkdown(w.output)
	md.H1("Detection Comparison: " + c.Source)
	md.PlainText("")
	md.PlainTextf("**Verdict:** %s", verdictText(c))
	md.PlainText("")

	rows := [][]string{{"Date", c.Previous.DateScanned.Format(timeLayout), c.Current.DateScanned.Format(timeLayout), "-"}}
	rows = append(rows, w.metricRows(c)...)
	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Previous", "Current", "Change"},
		Rows:   rows,
	})
	md.PlainText("")

	section := func(title string, changes []FieldChange) {
		if len(changes) == 0 {
			return
		}
		md.H2(fmt.Sprintf("%s (%d)", title, len(changes)))
		md.PlainText("")
		items := make([]string, 0, len(changes))
		for _, fc := range changes {
			items = append(items, "**"+fc.Label+"**: "+w.changeText(fc))
		}
		md.BulletList(items...)
		md.PlainText("")
	}
	section("Added Fields", c.Added)
	section("Removed Fields", c.Removed)
	section("Reclassified Fields", c.Reclassified)

	if !c.HasChanges() {
		md.Note("No changes between the two detections.")
	}
	return len(md.String()), md.Build()
}

func (w *ComparisonWriter) metricRows(c *Comparison) [][]string {
	return [][]string{
		{"Confidence", strconv.Itoa(c.Previous.OverallConfidence), strconv.Itoa(c.Current.OverallConfidence), formatDelta(c.ConfidenceDelta)},
		{"Fields", strconv.Itoa(c.Previous.TotalFields), strconv.Itoa(c.Current.TotalFields), formatDelta(c.Current.TotalFields - c.Previous.TotalFields)},
		{"Classified", strconv.Itoa(c.Previous.ClassifiedFields), strconv.Itoa(c.Current.ClassifiedFields), formatDelta(c.Current.ClassifiedFields - c.Previous.ClassifiedFields)},
	}
}

func (w *ComparisonWriter) changeText(fc FieldChange) string {
	if fc.PreviousCategory != "" {
		return fmt.Sprintf("%s (%d%%) -> %s (%d%%)",
			w.label(fc.PreviousCategory), fc.PreviousConfidence, w.label(fc.Category), fc.Confidence)
	}
	return fmt.Sprintf("%s (%d%%)", w.label(fc.Category), fc.Confidence)
}

func verdictText(c *Comparison) string {
	switch c.Verdict {
	case VerdictGained:
		return "now a business registration form"
	case VerdictLost:
		return "no longer a business registration form"
	default:
		if c.Current.IsBusinessForm {
			return "business registration form (unchanged)"
		}
		return "not a business registration form (unchanged)"
	}
}

func changedText(changed bool) string {
	if changed {
		return "changed"
	}
	return "unchanged"
}

// formatDelta formats a numeric delta with sign for display.
func formatDelta(delta int) string {
	if delta > 0 {
		return "+" + strconv.Itoa(delta)
	}
	return strconv.Itoa(delta)
}
