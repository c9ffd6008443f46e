package classify

import (
	"testing"

	"github.com/nao1215/formscan/internal/knowledge"
	"github.com/nao1215/formscan/internal/model"
)

func input(labelText, typ, name string) model.ClassifiedField {
	lc := model.LabelCandidate{Text: labelText, Source: model.LabelSourceLabelFor, Score: 100}
	if labelText == "" {
		lc = model.LabelCandidate{Text: model.UnknownLabel, Source: model.LabelSourceNone}
	}
	return model.ClassifiedField{
		FieldCandidate: model.FieldCandidate{Tag: "input", Type: typ, Name: name},
		Label:          lc,
	}
}

func options(labels ...string) []model.Option {
	out := make([]model.Option, 0, len(labels))
	for _, l := range labels {
		out = append(out, model.Option{Value: l, Label: l})
	}
	return out
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"Business Name:":   "business name",
		"businessName":     "business name",
		"owner_first-name": "owner first name",
		"E-mail":           "e mail",
		"D/B/A":            "d b a",
		"addr[line2]":      "addr line 2",
		"":                 "",
	}
	for in, want := range tests {
		if got := Normalize(in); got != want {
			t.Errorf("Normalize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCorpus(t *testing.T) {
	t.Parallel()

	f := input("Legal Name", "text", "bizName")
	f.ID = "biz-name"
	f.Placeholder = "As filed"
	if got, want := Corpus(f), "legal name ; biz name ; biz name ; as filed"; got != want {
		t.Errorf("Corpus() = %q, want %q", got, want)
	}

	unknown := input("", "text", "q")
	if got := Corpus(unknown); got != "q" {
		t.Errorf("expected the sentinel label to be left out, got %q", got)
	}
}

func TestClassify(t *testing.T) {
	t.Parallel()

	c := New(nil, DefaultOptions())

	tests := []struct {
		name     string
		field    model.ClassifiedField
		want     string
		minScore int
	}{
		{
			name:     "business name label",
			field:    input("Legal Business Name", "text", "bn"),
			want:     knowledge.CategoryBusinessName,
			minScore: 60,
		},
		{
			name:     "email input without label",
			field:    input("", "email", "x"),
			want:     knowledge.CategoryEmail,
			minScore: 90,
		},
		{
			name:     "email input with a misleading label",
			field:    input("Business Name", "email", "contact"),
			want:     knowledge.CategoryEmail,
			minScore: 90,
		},
		{
			name:  "tel input",
			field: input("Daytime", "tel", "p1"),
			want:  knowledge.CategoryPhone,
		},
		{
			name:  "tel input labelled fax",
			field: input("Fax Number", "tel", "f1"),
			want:  knowledge.CategoryFax,
		},
		{
			name:  "date input",
			field: input("Date of Formation", "date", "d1"),
			want:  knowledge.CategoryFormationDate,
		},
		{
			name:  "date input labelled birth date",
			field: input("Birth date", "date", "d2"),
			want:  knowledge.CategoryDateOfBirth,
		},
		{
			name:  "date input without a date signal",
			field: input("Last inspection", "date", "d3"),
			want:  model.CategoryOther,
		},
		{
			name:  "ein from name only",
			field: input("", "text", "fein"),
			want:  knowledge.CategoryEIN,
		},
		{
			name: "autocomplete token",
			field: func() model.ClassifiedField {
				f := input("", "text", "q1")
				f.Autocomplete = "shipping postal-code"
				return f
			}(),
			want: knowledge.CategoryZipCode,
		},
		{
			name:  "standalone agreement checkbox",
			field: input("I agree to the terms and conditions", "checkbox", "tos"),
			want:  knowledge.CategoryAgreement,
		},
		{
			name:  "standalone plain checkbox",
			field: input("Same as mailing address", "checkbox", "same"),
			want:  knowledge.CategoryBoolean,
		},
		{
			name:  "nothing matches",
			field: input("", "text", "q"),
			want:  model.CategoryOther,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := c.Classify(tt.field)
			if got.Category != tt.want {
				t.Errorf("category = %q, want %q", got.Category, tt.want)
			}
			if got.Confidence < tt.minScore || got.Confidence > MaxScore {
				t.Errorf("confidence = %d, want [%d, %d]", got.Confidence, tt.minScore, MaxScore)
			}
			if tt.want == model.CategoryOther && got.Confidence != 0 {
				t.Errorf("other must have zero confidence, got %d", got.Confidence)
			}
		})
	}
}

func TestClassifyOptionBias(t *testing.T) {
	t.Parallel()

	c := New(nil, DefaultOptions())

	t.Run("entity vocabulary", func(t *testing.T) {
		t.Parallel()

		f := input("Type", "radio", "type")
		f.IsGroup = true
		f.Options = options("LLC", "Corporation", "Partnership")
		if got := c.Classify(f); got.Category != knowledge.CategoryEntityType {
			t.Errorf("expected entity_type, got %q", got.Category)
		}
	})

	t.Run("entity type group with label", func(t *testing.T) {
		t.Parallel()

		f := input("Entity Type", "radio", "entity_type")
		f.IsGroup = true
		f.Options = options("LLC", "Corporation", "Partnership", "Sole Proprietorship", "Nonprofit")
		got := c.Classify(f)
		if got.Category != knowledge.CategoryEntityType || got.Confidence < 85 {
			t.Errorf("unexpected result %+v", got)
		}
	})

	t.Run("yes no options", func(t *testing.T) {
		t.Parallel()

		f := input("Do you have employees?", "radio", "emp")
		f.IsGroup = true
		f.Options = options("Yes", "No")
		if got := c.Classify(f); got.Category != knowledge.CategoryBoolean {
			t.Errorf("expected boolean, got %q", got.Category)
		}
	})

	t.Run("state options", func(t *testing.T) {
		t.Parallel()

		f := model.ClassifiedField{
			FieldCandidate: model.FieldCandidate{Tag: "select", Type: "select", Name: "jur"},
			Label:          model.LabelCandidate{Text: "Jurisdiction", Source: model.LabelSourceLabelFor},
			Options: options("Alabama", "Alaska", "Arizona", "Arkansas", "California",
				"Colorado", "Connecticut", "Delaware", "Florida", "Georgia"),
		}
		if got := c.Classify(f); got.Category != knowledge.CategoryState {
			t.Errorf("expected state, got %q", got.Category)
		}
	})
}

func TestScoresAreAdditive(t *testing.T) {
	t.Parallel()

	c := New(nil, DefaultOptions())
	f := input("Business Name", "text", "company_name")

	var got int
	for _, s := range c.Scores(f) {
		if s.Category == knowledge.CategoryBusinessName {
			got = s.Value
		}
	}
	e, _ := knowledge.Default().Entry(knowledge.CategoryBusinessName)
	want := 2*DefaultPatternWeight + 2*DefaultKeywordWeight + e.Priority
	if got != want {
		t.Errorf("score = %d, want %d", got, want)
	}
}

func TestClassifyCustomKnowledge(t *testing.T) {
	t.Parallel()

	kb, err := knowledge.New([]knowledge.Entry{
		{Category: "first", Patterns: []string{`\bcode\b`}},
		{Category: "second", Patterns: []string{`\bcode\b`}},
	})
	if err != nil {
		t.Fatal(err)
	}

	t.Run("ties go to knowledge order", func(t *testing.T) {
		t.Parallel()

		if got := New(kb, DefaultOptions()).Classify(input("Code", "text", "c")); got.Category != "first" {
			t.Errorf("expected first, got %q", got.Category)
		}
	})

	t.Run("floor", func(t *testing.T) {
		t.Parallel()

		opts := DefaultOptions()
		opts.Floor = 40
		if got := New(kb, opts).Classify(input("Code", "text", "c")); got.Category != model.CategoryOther {
			t.Errorf("expected other at the floor, got %q", got.Category)
		}
	})

	t.Run("missing affinity categories are ignored", func(t *testing.T) {
		t.Parallel()

		if got := New(kb, DefaultOptions()).Classify(input("Code", "email", "c")); got.Category != "first" {
			t.Errorf("expected first, got %q", got.Category)
		}
	})
}

func TestClassifyAll(t *testing.T) {
	t.Parallel()

	fields := []model.ClassifiedField{
		input("EIN", "text", "ein"),
		input("", "text", "q"),
	}
	got, errs := New(nil, DefaultOptions()).ClassifyAll(fields)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if got[0].Category != knowledge.CategoryEIN || got[0].Validation == "" {
		t.Errorf("unexpected first field %+v", got[0])
	}
	if got[1].Classified() {
		t.Errorf("expected second field to be other, got %q", got[1].Category)
	}
}

func TestClassifyUnrelatedDate(t *testing.T) {
	t.Parallel()

	c := New(nil, DefaultOptions())
	for _, text := range []string{"License expiration date", "Renewal due", ""} {
		r := c.Classify(input(text, "date", "d9"))
		switch r.Category {
		case knowledge.CategoryFormationDate, knowledge.CategoryDateOfBirth, knowledge.CategoryFiscalYearEnd:
			t.Errorf("%q: date input forced into %s (%d)", text, r.Category, r.Confidence)
		}
		if r.Confidence >= DefaultAffinityBonus {
			t.Errorf("%q: confidence %d from the control type alone", text, r.Confidence)
		}
	}

	for _, f := range []model.ClassifiedField{input("Date of Formation", "date", "d1"), input("DOB", "date", "d2")} {
		if r := c.Classify(f); r.Confidence < DefaultAffinityBonus {
			t.Errorf("%q: expected the affinity bonus, got %d", f.Label.Text, r.Confidence)
		}
	}
}

func TestClassifyHiddenInput(t *testing.T) {
	t.Parallel()

	c := New(nil, DefaultOptions())
	for _, name := range []string{"page_state", "wizard_step", "csrf_token", "stage_ein"} {
		f := input("", "hidden", name)
		f.Hidden = true
		f.Value = "CA"
		if r := c.Classify(f); r.Category != model.CategoryOther || r.Confidence != 0 {
			t.Errorf("%s: hidden input classified as %s (%d)", name, r.Category, r.Confidence)
		}
	}

	visible := input("", "text", "page_state")
	if r := c.Classify(visible); r.Category == model.CategoryOther {
		t.Errorf("expected the visible control to keep its name-based category")
	}
}
