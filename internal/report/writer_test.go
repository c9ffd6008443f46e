package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/nao1215/formscan/internal/knowledge"
	"github.com/nao1215/formscan/internal/model"
)

func field(name, label, category string, confidence int) model.ClassifiedField {
	return model.ClassifiedField{
		FieldCandidate: model.FieldCandidate{Tag: "input", Type: "text", Name: name},
		Label:          model.LabelCandidate{Text: label, Source: model.LabelSourceLabelFor},
		Category:       category,
		Confidence:     confidence,
	}
}

func sampleReport() *model.Report {
	r := model.NewDetectionResult()
	r.Fields = []model.ClassifiedField{
		field("bn", "Business Name", knowledge.CategoryBusinessName, 75),
		{
			FieldCandidate: model.FieldCandidate{Tag: "input", Type: "radio", Name: "entity"},
			Label:          model.LabelCandidate{Text: "Entity Type", Source: model.LabelSourceLegend},
			Category:       knowledge.CategoryEntityType,
			Confidence:     100,
			IsGroup:        true,
			Options:        []model.Option{{Value: "llc", Label: "LLC"}, {Value: "corp", Label: "Corporation"}},
		},
		field("q", "Favorite Color", model.CategoryOther, 0),
	}
	r.Sections = []model.Section{
		{Title: "Business", Fields: []int{0, 1}},
		{Title: "Additional Information", Synthetic: true, Fields: []int{2}},
	}
	r.OverallConfidence = 80
	r.IsBusinessForm = true
	r.DetectedState = "CA"
	r.Summary = model.Summary{
		TotalFields:      3,
		ClassifiedFields: 2,
		GroupCount:       1,
		SectionCount:     2,
		Categories: map[string]int{
			knowledge.CategoryBusinessName: 1,
			knowledge.CategoryEntityType:   1,
			model.CategoryOther:            1,
		},
		Anchors: []string{knowledge.CategoryBusinessName, knowledge.CategoryEntityType},
	}

	return &model.Report{
		Source:      "https://bizfileonline.sos.ca.gov/register",
		DateScanned: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
		Page:        &model.Page{Title: "Register a Business", Hash: "abc"},
		Result:      r,
	}
}

func failedReport() *model.Report {
	r := &model.Report{Source: "missing.html", DateScanned: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)}
	r.SetError(errors.New("file not found"))
	return r
}

func TestSimpleWriter(t *testing.T) {
	t.Parallel()

	t.Run("full report", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write(sampleReport()); err != nil {
			t.Fatal(err)
		}
		out := buf.String()
		for _, want := range []string{
			"FORMSCAN REPORT",
			"Title:          Register a Business",
			"Jurisdiction:   CA",
			"Business registration form (confidence 80%)",
			"Anchors:      Business Name, Entity Type",
			"[Business]",
			"radio group",
			"[Additional Information]",
			"Favorite Color",
		} {
			if !strings.Contains(out, want) {
				t.Errorf("expected %q in output:\n%s", want, out)
			}
		}
	})

	t.Run("hide unclassified and verbose", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewSimpleWriter(&buf, WithShowUnclassified(false), WithVerbose(true))
		if _, err := w.Write(sampleReport()); err != nil {
			t.Fatal(err)
		}
		out := buf.String()
		if strings.Contains(out, "Favorite Color") || strings.Contains(out, "[Additional Information]") {
			t.Errorf("unclassified field listed:\n%s", out)
		}
		if !strings.Contains(out, "options: LLC | Corporation") || !strings.Contains(out, "label from legend") {
			t.Errorf("expected verbose details:\n%s", out)
		}
	})

	t.Run("batch", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).WriteAll([]*model.Report{sampleReport(), failedReport()}); err != nil {
			t.Fatal(err)
		}
		out := buf.String()
		for _, want := range []string{"Status:         Error - file not found", "BATCH SUMMARY", "Business forms: 1", "Failed:         1"} {
			if !strings.Contains(out, want) {
				t.Errorf("expected %q in output:\n%s", want, out)
			}
		}
	})
}

func TestMarkdownWriter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	n, err := NewMarkdownWriter(&buf).Write(sampleReport())
	if err != nil {
		t.Fatal(err)
	}
	if n == 0 {
		t.Error("expected a byte count")
	}
	out := buf.String()
	for _, want := range []string{
		"# formscan Report",
		"| Jurisdiction",
		"```mermaid",
		"pie",
		"Business Name",
		"### Business",
		"Corporation",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}

	t.Run("batch index", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).WriteAll([]*model.Report{sampleReport(), failedReport()}); err != nil {
			t.Fatal(err)
		}
		out := buf.String()
		if !strings.Contains(out, "Business Form") || !strings.Contains(out, "## missing.html") {
			t.Errorf("expected a batch index:\n%s", out)
		}
	})
}

func TestJSONWriter(t *testing.T) {
	t.Parallel()

	t.Run("compact report", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf).Write(sampleReport()); err != nil {
			t.Fatal(err)
		}
		if strings.Count(buf.String(), "\n") != 1 {
			t.Errorf("expected one line, got %q", buf.String())
		}

		var got model.Report
		if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
			t.Fatal(err)
		}
		if got.Result == nil || len(got.Result.Fields) != 3 || got.Result.Fields[1].Options[1].Label != "Corporation" {
			t.Errorf("unexpected decoded report %+v", got.Result)
		}
	})

	t.Run("full writer wraps with version", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewFullJSONWriter(&buf, "v1.2.3", WithPrettyPrint())
		if _, err := w.WriteAll([]*model.Report{sampleReport(), failedReport()}); err != nil {
			t.Fatal(err)
		}

		var got JSONReport
		if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
			t.Fatal(err)
		}
		if got.Version != "v1.2.3" || len(got.Reports) != 2 || got.Report != nil {
			t.Errorf("unexpected wrapper %+v", got)
		}
		if got.Reports[1].ErrorMessage != "file not found" {
			t.Errorf("expected the error message, got %q", got.Reports[1].ErrorMessage)
		}
	})
}

func TestUIWriter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if _, err := NewUIWriter(&buf, nil).WriteAll([]*model.Report{sampleReport(), failedReport()}); err != nil {
		t.Fatal(err)
	}

	var got []UIView
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 views, got %d", len(got))
	}
	if got[0].View == nil || got[0].Title != "Register a Business" {
		t.Fatalf("unexpected first view %+v", got[0])
	}
	if c := got[0].View.Categories[knowledge.CategoryEntityType]; len(c.Fields) != 1 || c.Fields[0].Section != "Business" {
		t.Errorf("unexpected entity type category %+v", c)
	}
	if got[1].View != nil || got[1].Error != "file not found" {
		t.Errorf("unexpected failed view %+v", got[1])
	}
}

func TestWriterJurisdictionLabels(t *testing.T) {
	t.Parallel()

	label := func(s string) *string { return &s }
	overrides := &knowledge.File{
		Categories: knowledge.Overrides{
			knowledge.CategoryEntityType: {Label: label("Organization Kind")},
		},
		Jurisdictions: map[string]knowledge.Overrides{
			"CA": {knowledge.CategoryBusinessName: {Label: label("Entity Name")}},
			"TX": {knowledge.CategoryBusinessName: {Label: label("Assumed Name")}},
		},
	}

	texas := sampleReport()
	texas.Source = "https://www.sos.state.tx.us/register"
	texas.Result.DetectedState = "TX"
	reports := []*model.Report{sampleReport(), texas}

	tests := []struct {
		format Format
		header string
	}{
		{FormatText, "Source:         "},
		{FormatMarkdown, "## "},
	}
	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			if _, err := New(tt.format, &buf, "dev", knowledge.Default(), overrides).WriteAll(reports); err != nil {
				t.Fatal(err)
			}
			out := buf.String()
			split := strings.Index(out, tt.header+texas.Source)
			if split < 0 {
				t.Fatalf("second report missing:\n%s", out)
			}
			if !strings.Contains(out[:split], "Entity Name") || strings.Contains(out[:split], "Assumed Name") {
				t.Errorf("first report should use the CA label:\n%s", out[:split])
			}
			if !strings.Contains(out[split:], "Assumed Name") || strings.Contains(out[split:], "Entity Name") {
				t.Errorf("second report should use the TX label:\n%s", out[split:])
			}
			if strings.Count(out, "Organization Kind") < 2 {
				t.Errorf("global override missing from a report:\n%s", out)
			}
		})
	}

	t.Run("ui", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := New(FormatUI, &buf, "dev", knowledge.Default(), overrides).WriteAll(reports); err != nil {
			t.Fatal(err)
		}
		var got []UIView
		if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
			t.Fatal(err)
		}
		want := []string{"Entity Name", "Assumed Name"}
		for i, v := range got {
			if v.View == nil {
				t.Fatalf("view %d missing", i)
			}
			if c := v.View.Categories[knowledge.CategoryBusinessName]; c.Label != want[i] {
				t.Errorf("view %d: business name label = %q, want %q", i, c.Label, want[i])
			}
		}
	})
}

type countingWriter struct {
	writes int
	err    error
}

func (c *countingWriter) Write(*model.Report) (int, error) {
	c.writes++
	return 1, c.err
}

func (c *countingWriter) WriteAll([]*model.Report) (int, error) {
	c.writes++
	return 1, c.err
}

func TestMultiWriter(t *testing.T) {
	t.Parallel()

	a, b := &countingWriter{}, &countingWriter{}
	n, err := NewMultiWriter(a, b).Write(sampleReport())
	if err != nil || n != 2 || a.writes != 1 || b.writes != 1 {
		t.Errorf("unexpected result n=%d err=%v writes=%d/%d", n, err, a.writes, b.writes)
	}

	failing, after := &countingWriter{err: errors.New("disk full")}, &countingWriter{}
	if _, err := NewMultiWriter(failing, after).WriteAll(nil); err == nil || after.writes != 0 {
		t.Errorf("expected to stop at the first error, err=%v writes=%d", err, after.writes)
	}
}

func TestNew(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	tests := []struct {
		format Format
		want   string
	}{
		{FormatText, "*report.SimpleWriter"},
		{FormatJSON, "*report.FullJSONWriter"},
		{FormatMarkdown, "*report.MarkdownWriter"},
		{FormatUI, "*report.UIWriter"},
		{"xml", "*report.SimpleWriter"},
	}
	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			t.Parallel()
			if got := typeName(New(tt.format, &buf, "dev", nil, nil)); got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func typeName(w Writer) string {
	switch w.(type) {
	case *SimpleWriter:
		return "*report.SimpleWriter"
	case *FullJSONWriter:
		return "*report.FullJSONWriter"
	case *MarkdownWriter:
		return "*report.MarkdownWriter"
	case *UIWriter:
		return "*report.UIWriter"
	default:
		return "unknown"
	}
}

func TestTruncateString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"short", 10, "short"},
		{"Business Name of the Corporation", 10, "Busines..."},
		{"Razón Social", 5, "Ra..."},
		{"abcdef", 2, "ab"},
	}
	for _, tt := range tests {
		if got := truncateString(tt.in, tt.max); got != tt.want {
			t.Errorf("truncateString(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}

func TestCompare(t *testing.T) {
	t.Parallel()

	previous := sampleReport()
	current := sampleReport()
	current.DateScanned = previous.DateScanned.Add(time.Hour)
	current.Page = &model.Page{Hash: "def"}
	current.Result.Fields = []model.ClassifiedField{
		field("bn", "Business Name", knowledge.CategoryBusinessName, 75),
		field("q", "Favorite Color", knowledge.CategoryBusinessPurpose, 40),
		field("mail", "Email", knowledge.CategoryEmail, 100),
	}
	current.Result.OverallConfidence = 70
	current.Result.Summary.ClassifiedFields = 3

	c := Compare(previous, current)

	want := &Comparison{
		Source: current.Source,
		Previous: DetectionMetadata{
			DateScanned: previous.DateScanned, Hash: "abc", OverallConfidence: 80, IsBusinessForm: true,
			TotalFields: 3, ClassifiedFields: 2, DetectedState: "CA",
		},
		Current: DetectionMetadata{
			DateScanned: current.DateScanned, Hash: "def", OverallConfidence: 70, IsBusinessForm: true,
			TotalFields: 3, ClassifiedFields: 3, DetectedState: "CA",
		},
		ContentChanged:  true,
		Verdict:         VerdictUnchanged,
		ConfidenceDelta: -10,
		Added: []FieldChange{
			{Key: "name:mail", Label: "Email", Category: knowledge.CategoryEmail, Confidence: 100},
		},
		Removed: []FieldChange{
			{Key: "name:entity", Label: "Entity Type", Category: knowledge.CategoryEntityType, Confidence: 100},
		},
		Reclassified: []FieldChange{
			{
				Key: "name:q", Label: "Favorite Color", Category: knowledge.CategoryBusinessPurpose, Confidence: 40,
				PreviousCategory: model.CategoryOther,
			},
		},
		UnchangedCount: 1,
	}
	if diff := cmp.Diff(want, c); diff != "" {
		t.Errorf("comparison mismatch (-want +got):\n%s", diff)
	}
	if !c.HasChanges() {
		t.Error("expected changes")
	}

	t.Run("verdict", func(t *testing.T) {
		t.Parallel()

		lost := sampleReport()
		lost.Result.IsBusinessForm = false
		if got := Compare(sampleReport(), lost).Verdict; got != VerdictLost {
			t.Errorf("got %s, want %s", got, VerdictLost)
		}
		if got := Compare(lost, sampleReport()).Verdict; got != VerdictGained {
			t.Errorf("got %s, want %s", got, VerdictGained)
		}
		same := Compare(sampleReport(), sampleReport())
		if same.HasChanges() || same.ContentChanged {
			t.Errorf("expected no changes, got %+v", same)
		}
	})

	t.Run("fields without name", func(t *testing.T) {
		t.Parallel()

		a := field("", "Zip Code", knowledge.CategoryZipCode, 60)
		b := a
		b.ID = "zip"
		if fieldKey(a) != "text:zip code" || fieldKey(b) != "id:zip" {
			t.Errorf("unexpected keys %q %q", fieldKey(a), fieldKey(b))
		}
	})
}

func TestComparisonWriter(t *testing.T) {
	t.Parallel()

	current := sampleReport()
	current.Result.Fields = append(current.Result.Fields, field("mail", "Email", knowledge.CategoryEmail, 100))
	c := Compare(sampleReport(), current)

	tests := []struct {
		format Format
		want   []string
	}{
		{FormatText, []string{"Detection Comparison:", "Added Fields (1):", "[+] Email: Email (100%)", "Unchanged: 3 fields"}},
		{FormatMarkdown, []string{"# Detection Comparison:", "## Added Fields (1)", "**Email**"}},
		{FormatJSON, []string{`"added": [`, `"key": "name:mail"`}},
	}
	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			if _, err := NewComparisonWriter(&buf, tt.format).Write(c); err != nil {
				t.Fatal(err)
			}
			for _, want := range tt.want {
				if !strings.Contains(buf.String(), want) {
					t.Errorf("expected %q in output:\n%s", want, buf.String())
				}
			}
		})
	}
}
