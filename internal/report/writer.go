package report

import (
	"io"

	"github.com/nao1215/formscan/internal/knowledge"
	"github.com/nao1215/formscan/internal/model"
)

// Writer outputs detection reports.
type Writer interface {
	// Write outputs one report and returns the number of bytes written.
	Write(report *model.Report) (int, error)

	// WriteAll outputs several reports as one document.
	WriteAll(reports []*model.Report) (int, error)
}

// MultiWriter writes to several Writers. It stops at the first error.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the report to every Writer.
func (m *MultiWriter) Write(report *model.Report) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(report)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// WriteAll outputs the reports to every Writer.
func (m *MultiWriter) WriteAll(reports []*model.Report) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.WriteAll(reports)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
	kb     *knowledge.Base

	// overrides are applied per report for its detected jurisdiction.
	overrides *knowledge.File
}

func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output, kb: knowledge.Default()}
}

// label returns the display name of a category.
func (b baseWriter) label(category string) string {
	if category == "" {
		category = model.CategoryOther
	}
	return b.kb.Label(category)
}

// scoped returns a copy of b whose knowledge is resolved for the
// jurisdiction detected in r.
func (b baseWriter) scoped(r *model.Report) baseWriter {
	if r == nil || r.Result == nil {
		return b
	}
	if kb, err := b.kb.Resolve(r.Result.DetectedState, b.overrides); err == nil {
		b.kb = kb
	}
	return b
}

// Format names an output format.
type Format string

// Supported formats.
const (
	FormatText     Format = "text"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
	FormatUI       Format = "ui"
)

// New returns the writer for format. An unknown format means text.
// Category names come from kb with overrides resolved per report.
func New(format Format, output io.Writer, version string, kb *knowledge.Base, overrides *knowledge.File) Writer {
	switch format {
	case FormatJSON:
		return NewFullJSONWriter(output, version, WithPrettyPrint())
	case FormatMarkdown:
		return NewMarkdownWriter(output, WithMarkdownKnowledge(kb), WithMarkdownOverrides(overrides))
	case FormatUI:
		return NewUIWriter(output, kb, WithPrettyPrint(), WithJSONOverrides(overrides))
	default:
		return NewSimpleWriter(output, WithKnowledge(kb), WithOverrides(overrides))
	}
}

// status describes how the detection of r ended.
func status(r *model.Report) string {
	switch {
	case r.TimedOut:
		return "Timed out (partial results)"
	case r.ErrorMessage != "":
		return "Error - " + r.ErrorMessage
	case r.Cached:
		return "Complete (cached)"
	default:
		return "Complete"
	}
}

// verdict describes the form-level outcome of r.
func verdict(r *model.DetectionResult) string {
	if r == nil {
		return "No result"
	}
	if r.IsBusinessForm {
		return "Business registration form"
	}
	if r.Summary.TotalFields == 0 && len(r.Fields) == 0 {
		return "No form fields found"
	}
	return "Not a business registration form"
}

// truncateString truncates a string to maxLen runes with ellipsis.
func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
