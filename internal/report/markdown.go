package report

import (
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/formscan/internal/knowledge"
	"github.com/nao1215/formscan/internal/model"
)

// MarkdownWriter outputs reports as GitHub Flavored Markdown, built with
// nao1215/markdown.
type MarkdownWriter struct {
	baseWriter
}

// MarkdownWriterOption configures a MarkdownWriter.
type MarkdownWriterOption func(*MarkdownWriter)

// WithMarkdownKnowledge sets the knowledge base used for category names.
// Nil keeps the default.
func WithMarkdownKnowledge(kb *knowledge.Base) MarkdownWriterOption {
	return func(w *MarkdownWriter) {
		if kb != nil {
			w.kb = kb
		}
	}
}

// WithMarkdownOverrides sets the knowledge overrides resolved for the
// jurisdiction of each report.
func WithMarkdownOverrides(f *knowledge.File) MarkdownWriterOption {
	return func(w *MarkdownWriter) {
		w.overrides = f
	}
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer, opts ...MarkdownWriterOption) *MarkdownWriter {
	w := &MarkdownWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs one report.
func (w *MarkdownWriter) Write(report *model.Report) (int, error) {
	return w.WriteAll([]*model.Report{report})
}

// WriteAll outputs the reports in one document.
func (w *MarkdownWriter) WriteAll(reports []*model.Report) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("formscan Report")
	md.PlainText("")
	if len(reports) > 1 {
		w.writeIndex(md, reports)
	}
	for _, r := range reports {
		w.writeReport(md, r, len(reports) > 1)
	}
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeIndex(md *markdown.Markdown, reports []*model.Report) {
	rows := make([][]string, 0, len(reports))
	for _, r := range reports {
		confidence, form := "-", "-"
		if r.Result != nil {
			confidence = strconv.Itoa(r.Result.OverallConfidence) + "%"
			form = yesNo(r.Result.IsBusinessForm)
		}
		rows = append(rows, []string{"`" + r.Source + "`", form, confidence, status(r)})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Source", "Business Form", "Confidence", "Status"},
		Rows:   rows,
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeReport(md *markdown.Markdown, report *model.Report, titled bool) {
	w = &MarkdownWriter{baseWriter: w.scoped(report)}

	if titled {
		md.H2(report.Source)
		md.PlainText("")
	}
	w.writeHeader(md, report)

	r := report.Result
	if r == nil {
		return
	}
	w.writeAlert(md, report)
	w.writeCategories(md, r)
	w.writeSections(md, r)
	w.writeErrors(md, r)
}

func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *model.Report) {
	rows := [][]string{
		{"Source", "`" + report.Source + "`"},
	}
	if report.Page != nil && report.Page.Title != "" {
		rows = append(rows, []string{"Title", report.Page.Title})
	}
	rows = append(rows, []string{"Scan Date", report.DateScanned.Format(timeLayout)})
	if r := report.Result; r != nil {
		state := r.DetectedState
		if state == "" {
			state = "-"
		}
		rows = append(rows,
			[]string{"Jurisdiction", state},
			[]string{"Overall Confidence", strconv.Itoa(r.OverallConfidence) + "%"},
			[]string{"Fields", strconv.Itoa(r.Summary.TotalFields)},
			[]string{"Classified", strconv.Itoa(r.Summary.ClassifiedFields)},
		)
	}
	rows = append(rows, []string{"Status", statusIcon(report) + " " + status(report)})

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows:   rows,
	})
	md.PlainText("")
}

func statusIcon(r *model.Report) string {
	switch {
	case r.TimedOut:
		return "⚠️"
	case r.ErrorMessage != "":
		return "❌"
	default:
		return "✅"
	}
}

func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, report *model.Report) {
	r := report.Result
	switch {
	case report.TimedOut:
		md.Warningf("Detection was cancelled. %d field(s) were processed before the deadline.", len(r.Fields))
	case r.IsBusinessForm:
		md.Tip("This page is a business registration form.")
	case len(r.Fields) == 0:
		md.Note("No form fields were found on this page.")
	default:
		md.Importantf("This page has %d field(s) but does not look like a business registration form.", len(r.Fields))
	}
	md.PlainText("")
}

// writeCategories writes a pie chart of the classified categories.
func (w *MarkdownWriter) writeCategories(md *markdown.Markdown, r *model.DetectionResult) {
	if r.Summary.ClassifiedFields == 0 {
		return
	}

	keys := make([]string, 0, len(r.Summary.Categories))
	for k := range r.Summary.Categories {
		if k != model.CategoryOther {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		ci, cj := r.Summary.Categories[keys[i]], r.Summary.Categories[keys[j]]
		if ci != cj {
			return ci > cj
		}
		return keys[i] < keys[j]
	})

	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Field Categories"),
		piechart.WithShowData(true),
	)
	for _, k := range keys {
		chart.LabelAndIntValue(w.label(k), uint64(r.Summary.Categories[k])) //nolint:gosec // counts are non-negative
	}
	if n := r.Summary.Categories[model.CategoryOther]; n > 0 {
		chart.LabelAndIntValue(w.label(model.CategoryOther), uint64(n)) //nolint:gosec // counts are non-negative
	}

	md.H2("Categories")
	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

func (w *MarkdownWriter) writeSections(md *markdown.Markdown, r *model.DetectionResult) {
	if len(r.Fields) == 0 {
		return
	}
	md.H2("Fields")
	md.PlainText("")

	for _, s := range r.Sections {
		fields := r.SectionFields(s)
		if len(fields) == 0 {
			continue
		}
		md.H3(s.Title)
		md.PlainText("")

		rows := make([][]string, 0, len(fields))
		for _, f := range fields {
			rows = append(rows, []string{
				truncateString(f.Label.Text, 40),
				w.label(f.Category),
				strconv.Itoa(f.Confidence) + "%",
				fieldType(f),
				yesNo(f.Required),
				orDash(f.Name),
			})
		}
		md.Table(markdown.TableSet{
			Header: []string{"Label", "Category", "Confidence", "Type", "Required", "Name"},
			Rows:   rows,
		})
		md.PlainText("")

		for _, f := range fields {
			if len(f.Options) > 0 {
				md.Details(f.Label.Text, strings.Join(f.OptionLabels(), ", "))
			}
		}
	}
}

func (w *MarkdownWriter) writeErrors(md *markdown.Markdown, r *model.DetectionResult) {
	if len(r.Errors) == 0 {
		return
	}
	md.H2("Errors")
	md.PlainText("")
	items := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		items = append(items, "`"+e.Stage+"`: "+e.Message)
	}
	md.BulletList(items...)
	md.PlainText("")
}

func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [formscan](https://github.com/nao1215/formscan)*")
}

func fieldType(f model.ClassifiedField) string {
	if f.IsGroup {
		return f.Type + " group"
	}
	return f.Type
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
