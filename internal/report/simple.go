package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/formscan/internal/knowledge"
	"github.com/nao1215/formscan/internal/model"
)

const timeLayout = "2006-01-02 15:04:05 MST"

// SimpleWriter outputs human-readable text reports for the terminal.
type SimpleWriter struct {
	baseWriter

	// showUnclassified lists fields left in the "other" category.
	showUnclassified bool

	// verbose adds label sources, validation hints and options.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowUnclassified controls whether unclassified fields are listed.
func WithShowUnclassified(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showUnclassified = show
	}
}

// WithVerbose enables additional field details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// WithKnowledge sets the knowledge base used for category names. Nil
// keeps the default.
func WithKnowledge(kb *knowledge.Base) SimpleWriterOption {
	return func(w *SimpleWriter) {
		if kb != nil {
			w.kb = kb
		}
	}
}

// WithOverrides sets the knowledge overrides resolved for the
// jurisdiction of each report.
func WithOverrides(f *knowledge.File) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.overrides = f
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter:       newBaseWriter(output),
		showUnclassified: true,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs one report.
func (w *SimpleWriter) Write(report *model.Report) (int, error) {
	var sb strings.Builder
	w.writeReport(&sb, report)
	w.writeFooter(&sb)
	return io.WriteString(w.output, sb.String())
}

// WriteAll outputs the reports one after another with a batch summary.
func (w *SimpleWriter) WriteAll(reports []*model.Report) (int, error) {
	var sb strings.Builder
	for _, r := range reports {
		w.writeReport(&sb, r)
	}
	if len(reports) > 1 {
		w.writeBatchSummary(&sb, reports)
	}
	w.writeFooter(&sb)
	return io.WriteString(w.output, sb.String())
}

func (w *SimpleWriter) writeReport(sb *strings.Builder, report *model.Report) {
	scoped := *w
	scoped.baseWriter = w.scoped(report)
	w = &scoped

	w.writeHeader(sb, report)
	if report.Result == nil {
		return
	}
	w.writeSummary(sb, report.Result)
	w.writeSections(sb, report.Result)
	w.writeErrors(sb, report.Result)
}

func (w *SimpleWriter) writeHeader(sb *strings.Builder, report *model.Report) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                          FORMSCAN REPORT\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	fmt.Fprintf(sb, "Source:         %s\n", report.Source)
	if report.Page != nil && report.Page.Title != "" {
		fmt.Fprintf(sb, "Title:          %s\n", report.Page.Title)
	}
	fmt.Fprintf(sb, "Scan Date:      %s\n", report.DateScanned.Format(timeLayout))
	if r := report.Result; r != nil {
		state := r.DetectedState
		if state == "" {
			state = "-"
		}
		fmt.Fprintf(sb, "Jurisdiction:   %s\n", state)
		fmt.Fprintf(sb, "Verdict:        %s (confidence %d%%)\n", verdict(r), r.OverallConfidence)
	}
	fmt.Fprintf(sb, "Status:         %s\n", status(report))
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeSummary(sb *strings.Builder, r *model.DetectionResult) {
	writeRule(sb, "SUMMARY")

	fmt.Fprintf(sb, "  Fields:       %d\n", r.Summary.TotalFields)
	fmt.Fprintf(sb, "  Classified:   %d\n", r.Summary.ClassifiedFields)
	fmt.Fprintf(sb, "  Groups:       %d\n", r.Summary.GroupCount)
	fmt.Fprintf(sb, "  Sections:     %d\n", r.Summary.SectionCount)
	if len(r.Summary.Anchors) > 0 {
		names := make([]string, 0, len(r.Summary.Anchors))
		for _, a := range r.Summary.Anchors {
			names = append(names, w.label(a))
		}
		fmt.Fprintf(sb, "  Anchors:      %s\n", strings.Join(names, ", "))
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeSections(sb *strings.Builder, r *model.DetectionResult) {
	if len(r.Fields) == 0 {
		return
	}
	writeRule(sb, "FIELDS")

	for _, s := range r.Sections {
		fields := r.SectionFields(s)
		lines := make([]string, 0, len(fields))
		for _, f := range fields {
			if !f.Classified() && !w.showUnclassified {
				continue
			}
			lines = append(lines, w.fieldLines(f)...)
		}
		if len(lines) == 0 {
			continue
		}
		fmt.Fprintf(sb, "[%s]\n", s.Title)
		for _, l := range lines {
			sb.WriteString(l)
		}
		sb.WriteString("\n")
	}
}

func (w *SimpleWriter) fieldLines(f model.ClassifiedField) []string {
	marker := "*"
	if !f.Classified() {
		marker = "-"
	}
	flags := f.Type
	if f.IsGroup {
		flags += " group"
	}
	if f.Required {
		flags += " required"
	}
	lines := []string{fmt.Sprintf("  %s %-32s %-22s %3d%%  %s\n",
		marker, truncateString(f.Label.Text, 32), w.label(f.Category), f.Confidence, flags)}

	if !w.verbose {
		return lines
	}
	lines = append(lines, fmt.Sprintf("      label from %s", f.Label.Source))
	if f.Name != "" {
		lines[len(lines)-1] += fmt.Sprintf(", name %q", f.Name)
	}
	lines[len(lines)-1] += "\n"
	if f.Validation != "" {
		lines = append(lines, fmt.Sprintf("      validation: %s\n", f.Validation))
	}
	if len(f.Options) > 0 {
		lines = append(lines, fmt.Sprintf("      options: %s\n", strings.Join(f.OptionLabels(), " | ")))
	}
	return lines
}

func (w *SimpleWriter) writeErrors(sb *strings.Builder, r *model.DetectionResult) {
	if len(r.Errors) == 0 {
		return
	}
	writeRule(sb, "ERRORS")
	for _, e := range r.Errors {
		fmt.Fprintf(sb, "  [%s] %s\n", e.Stage, e.Message)
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeBatchSummary(sb *strings.Builder, reports []*model.Report) {
	writeRule(sb, "BATCH SUMMARY")
	forms, failed := 0, 0
	for _, r := range reports {
		switch {
		case r.Failed():
			failed++
		case r.Result.IsBusinessForm:
			forms++
		}
	}
	fmt.Fprintf(sb, "  Sources:        %d\n", len(reports))
	fmt.Fprintf(sb, "  Business forms: %d\n", forms)
	fmt.Fprintf(sb, "  Failed:         %d\n", failed)
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("Report generated by formscan\n")
	sb.WriteString("https://github.com/nao1215/formscan\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}

func writeRule(sb *strings.Builder, title string) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString(title)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")
}
