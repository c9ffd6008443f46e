package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nao1215/formscan/internal/aggregate"
	"github.com/nao1215/formscan/internal/classify"
	"github.com/nao1215/formscan/internal/group"
	"github.com/nao1215/formscan/internal/jurisdiction"
	"github.com/nao1215/formscan/internal/label"
	"github.com/nao1215/formscan/internal/model"
	"github.com/nao1215/formscan/internal/scanner"
	"github.com/nao1215/formscan/internal/section"
)

// Step names.
const (
	StepJurisdiction = "jurisdiction"
	StepScan         = "scan"
	StepGroup        = "group"
	StepClassify     = "classify"
	StepSection      = "section"
	StepAggregate    = "aggregate"
)

// JurisdictionStep decides the state of the page and applies its
// knowledge overrides. It runs before classification so the overrides
// take part in scoring.
type JurisdictionStep struct {
	logger *slog.Logger
}

// NewJurisdictionStep creates a jurisdiction step.
func NewJurisdictionStep(logger *slog.Logger) *JurisdictionStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &JurisdictionStep{logger: logger}
}

// Name returns the step name.
func (s *JurisdictionStep) Name() string {
	return StepJurisdiction
}

// Do sets DetectedState and narrows the pass knowledge base. An explicit
// state code wins over detection from the URL and page text.
func (s *JurisdictionStep) Do(_ context.Context, pass *Pass) error {
	state := jurisdiction.Lookup(pass.Input.StateCode)
	if state == "" {
		text := pass.Input.PageText
		if text == "" {
			text = pass.Doc.Headline()
		}
		state = jurisdiction.Detect(pass.Input.URL, text)
	}
	pass.Result.DetectedState = state

	kb, err := pass.Knowledge.Resolve(state, pass.Input.Knowledge)
	if err != nil {
		return fmt.Errorf("apply knowledge overrides for %q: %w", state, err)
	}
	pass.Knowledge = kb

	if state != "" {
		s.logger.Debug("jurisdiction detected", "state", state, "categories", kb.Len())
	}
	return nil
}

// ScanStep collects the visible controls of the document.
type ScanStep struct{}

// NewScanStep creates a scan step.
func NewScanStep() *ScanStep {
	return &ScanStep{}
}

// Name returns the step name.
func (s *ScanStep) Name() string {
	return StepScan
}

// Do fills pass.Candidates.
func (s *ScanStep) Do(_ context.Context, pass *Pass) error {
	candidates, errs := scanner.Scan(pass.Doc)
	pass.Candidates = candidates
	pass.addErrors(errs)
	return nil
}

// GroupStep resolves labels and collapses radio and checkbox groups into
// single fields.
type GroupStep struct {
	opts label.Options
}

// NewGroupStep creates a group step with the given label search bounds.
func NewGroupStep(opts label.Options) *GroupStep {
	return &GroupStep{opts: opts}
}

// Name returns the step name.
func (s *GroupStep) Name() string {
	return StepGroup
}

// Do fills pass.Result.Fields from pass.Candidates.
func (s *GroupStep) Do(_ context.Context, pass *Pass) error {
	resolver := label.NewResolver(pass.Doc, s.opts)
	fields, errs := group.New(pass.Doc, resolver).Aggregate(pass.Candidates)
	pass.Result.Fields = fields
	pass.addErrors(errs)
	return nil
}

// ClassifyStep assigns a category to every field.
type ClassifyStep struct {
	opts classify.Options
}

// NewClassifyStep creates a classify step with the given weights.
func NewClassifyStep(opts classify.Options) *ClassifyStep {
	return &ClassifyStep{opts: opts}
}

// Name returns the step name.
func (s *ClassifyStep) Name() string {
	return StepClassify
}

// Do classifies pass.Result.Fields against the pass knowledge base.
func (s *ClassifyStep) Do(_ context.Context, pass *Pass) error {
	fields, errs := classify.New(pass.Knowledge, s.opts).ClassifyAll(pass.Result.Fields)
	pass.Result.Fields = fields
	pass.addErrors(errs)
	return nil
}

// SectionStep partitions the fields into titled sections.
type SectionStep struct {
	opts section.Options
}

// NewSectionStep creates a section step.
func NewSectionStep(opts section.Options) *SectionStep {
	return &SectionStep{opts: opts}
}

// Name returns the step name.
func (s *SectionStep) Name() string {
	return StepSection
}

// Do fills pass.Result.Sections. When header detection fails every field
// goes to one implicit section, so the sections still cover all fields.
func (s *SectionStep) Do(_ context.Context, pass *Pass) error {
	sections, err := section.Detect(pass.Doc, pass.Result.Fields, s.opts)
	if err != nil {
		pass.Result.Sections = implicitSection(len(pass.Result.Fields))
		return fmt.Errorf("detect sections: %w", err)
	}
	pass.Result.Sections = sections
	return nil
}

func implicitSection(n int) []model.Section {
	if n == 0 {
		return make([]model.Section, 0)
	}
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return []model.Section{{Title: section.ImplicitTitle, Synthetic: true, Fields: idx}}
}

// AggregateStep computes the form-level verdict.
type AggregateStep struct {
	thresholds aggregate.Thresholds
}

// NewAggregateStep creates an aggregate step.
func NewAggregateStep(t aggregate.Thresholds) *AggregateStep {
	return &AggregateStep{thresholds: t}
}

// Name returns the step name.
func (s *AggregateStep) Name() string {
	return StepAggregate
}

// Do fills the confidence, verdict and summary of pass.Result.
func (s *AggregateStep) Do(_ context.Context, pass *Pass) error {
	aggregate.Apply(pass.Result, s.thresholds)
	return nil
}
