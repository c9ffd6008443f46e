package report

import (
	"encoding/json"
	"io"

	"github.com/nao1215/formscan/internal/knowledge"
	"github.com/nao1215/formscan/internal/model"
	"github.com/nao1215/formscan/internal/uidata"
)

// JSONWriter outputs reports as JSON.
type JSONWriter struct {
	baseWriter

	indent       bool
	indentPrefix string
	indentString string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables pretty-printed JSON output.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint is WithIndent("", "  ").
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// WithJSONOverrides sets the knowledge overrides resolved for the
// jurisdiction of each report. Only the display projection uses them.
func WithJSONOverrides(f *knowledge.File) JSONWriterOption {
	return func(w *JSONWriter) {
		w.overrides = f
	}
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs one report.
func (w *JSONWriter) Write(report *model.Report) (int, error) {
	return w.writeJSON(report)
}

// WriteAll outputs the reports as a JSON array.
func (w *JSONWriter) WriteAll(reports []*model.Report) (int, error) {
	if reports == nil {
		reports = []*model.Report{}
	}
	return w.writeJSON(reports)
}

func (w *JSONWriter) writeJSON(v any) (int, error) {
	var (
		data []byte
		err  error
	)
	if w.indent {
		data, err = json.MarshalIndent(v, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return 0, err
	}
	data = append(data, '\n')
	return w.output.Write(data)
}

// JSONReport wraps reports with the version of formscan that made them.
type JSONReport struct {
	Version string          `json:"version"`
	Report  *model.Report   `json:"report,omitempty"`
	Reports []*model.Report `json:"reports,omitempty"`
}

// FullJSONWriter outputs reports inside a JSONReport.
type FullJSONWriter struct {
	*JSONWriter

	version string
}

// NewFullJSONWriter creates a writer for reports with metadata.
func NewFullJSONWriter(output io.Writer, version string, opts ...JSONWriterOption) *FullJSONWriter {
	return &FullJSONWriter{
		JSONWriter: NewJSONWriter(output, opts...),
		version:    version,
	}
}

// Write outputs one wrapped report.
func (w *FullJSONWriter) Write(report *model.Report) (int, error) {
	return w.writeJSON(JSONReport{Version: w.version, Report: report})
}

// WriteAll outputs the wrapped reports.
func (w *FullJSONWriter) WriteAll(reports []*model.Report) (int, error) {
	if reports == nil {
		reports = []*model.Report{}
	}
	return w.writeJSON(JSONReport{Version: w.version, Reports: reports})
}

// UIView is the display projection of one report.
type UIView struct {
	Source string       `json:"source"`
	Title  string       `json:"title,omitempty"`
	Error  string       `json:"error,omitempty"`
	View   *uidata.View `json:"view,omitempty"`
}

// UIWriter outputs the display projection of each report as JSON.
type UIWriter struct {
	*JSONWriter
}

// NewUIWriter creates a UIWriter. Category labels come from kb; nil means
// the default knowledge base.
func NewUIWriter(output io.Writer, kb *knowledge.Base, opts ...JSONWriterOption) *UIWriter {
	w := &UIWriter{JSONWriter: NewJSONWriter(output, opts...)}
	if kb != nil {
		w.kb = kb
	}
	return w
}

// Write outputs the projection of one report.
func (w *UIWriter) Write(report *model.Report) (int, error) {
	return w.writeJSON(w.project(report))
}

// WriteAll outputs the projections as a JSON array.
func (w *UIWriter) WriteAll(reports []*model.Report) (int, error) {
	views := make([]UIView, 0, len(reports))
	for _, r := range reports {
		views = append(views, w.project(r))
	}
	return w.writeJSON(views)
}

func (w *UIWriter) project(r *model.Report) UIView {
	v := UIView{Source: r.Source, Error: r.ErrorMessage}
	if r.Page != nil {
		v.Title = r.Page.Title
	}
	if r.Result != nil {
		view := uidata.Project(r.Result, w.scoped(r).kb)
		v.View = &view
	}
	return v
}
