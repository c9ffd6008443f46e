package uidata

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/nao1215/formscan/internal/knowledge"
	"github.com/nao1215/formscan/internal/model"
)

func TestProject(t *testing.T) {
	t.Parallel()

	r := model.NewDetectionResult()
	r.Fields = []model.ClassifiedField{
		{
			FieldCandidate: model.FieldCandidate{Type: "text", Name: "bn", Required: true},
			Label:          model.LabelCandidate{Text: "Business Name"},
			Category:       knowledge.CategoryBusinessName,
			Confidence:     75,
		},
		{
			FieldCandidate: model.FieldCandidate{Type: "text", Name: "q"},
			Label:          model.LabelCandidate{Text: model.UnknownLabel},
			Category:       model.CategoryOther,
		},
	}
	r.Sections = []model.Section{
		{Title: "Business", Fields: []int{0}},
		{Title: "Additional Information", Synthetic: true, Fields: []int{1}},
	}
	r.OverallConfidence = 50
	r.IsBusinessForm = true
	r.DetectedState = "CA"

	v := Project(r, nil)

	wantSections := []Section{{Title: "Business", FieldCount: 1}, {Title: "Additional Information", FieldCount: 1}}
	if diff := cmp.Diff(wantSections, v.Sections); diff != "" {
		t.Errorf("sections mismatch (-want +got):\n%s", diff)
	}

	wantBusiness := Category{
		Label: "Business Name",
		Fields: []Field{{
			Label:      "Business Name",
			Name:       "bn",
			Type:       "text",
			Confidence: 75,
			Required:   true,
			Section:    "Business",
		}},
	}
	if diff := cmp.Diff(wantBusiness, v.Categories[knowledge.CategoryBusinessName]); diff != "" {
		t.Errorf("category mismatch (-want +got):\n%s", diff)
	}
	if got := v.Categories[model.CategoryOther].Label; got != "Other" {
		t.Errorf("expected Other label, got %q", got)
	}
	if !v.IsBusinessForm || v.OverallConfidence != 50 || v.DetectedState != "CA" {
		t.Errorf("unexpected verdict %+v", v)
	}
	if len(r.Fields) != 2 || len(r.Sections) != 2 {
		t.Error("result was modified")
	}
}

func TestProjectEmpty(t *testing.T) {
	t.Parallel()

	for _, r := range []*model.DetectionResult{nil, model.NewDetectionResult()} {
		v := Project(r, nil)
		if len(v.Categories) != 0 || len(v.Sections) != 0 {
			t.Errorf("expected an empty view, got %+v", v)
		}
		if v.Categories == nil || v.Sections == nil || v.Summary.Categories == nil {
			t.Error("expected non-nil collections")
		}
	}
}
