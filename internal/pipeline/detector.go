package pipeline

import (
	"context"
	"errors"
	"log/slog"

	"github.com/nao1215/formscan/internal/aggregate"
	"github.com/nao1215/formscan/internal/classify"
	"github.com/nao1215/formscan/internal/dom"
	"github.com/nao1215/formscan/internal/knowledge"
	"github.com/nao1215/formscan/internal/label"
	"github.com/nao1215/formscan/internal/model"
	"github.com/nao1215/formscan/internal/section"
)

// ErrInvalidInput is returned when the document is nil or not attached to
// a document tree.
var ErrInvalidInput = errors.New("invalid input: document is nil or detached")

// Input is what the caller knows about a document besides its markup.
type Input struct {
	// URL is the page address. Its host is used for state detection.
	URL string

	// PageText is extra text used for state detection. When empty the
	// document title and top headings are used.
	PageText string

	// StateCode forces the jurisdiction. A code or a state name is
	// accepted; an unknown value falls back to detection.
	StateCode string

	// Knowledge holds user overrides merged over the knowledge base.
	Knowledge *knowledge.File
}

// Settings are the tunables of a detection pass.
type Settings struct {
	// Knowledge is the base knowledge. Nil means knowledge.Default().
	Knowledge *knowledge.Base

	Label      label.Options
	Classify   classify.Options
	Section    section.Options
	Thresholds aggregate.Thresholds
}

// DefaultSettings returns the default tunables.
func DefaultSettings() Settings {
	return Settings{
		Knowledge:  knowledge.Default(),
		Label:      label.DefaultOptions(),
		Classify:   classify.DefaultOptions(),
		Section:    section.Options{Gap: section.DefaultGap},
		Thresholds: aggregate.DefaultThresholds(),
	}
}

// Detector runs detection passes with fixed settings. It keeps no state
// between passes and is safe for concurrent use.
type Detector struct {
	settings Settings
	logger   *slog.Logger
}

// DetectorOption configures a Detector.
type DetectorOption func(*Detector)

// WithDetectorLogger sets the logger passed to every pipeline.
func WithDetectorLogger(logger *slog.Logger) DetectorOption {
	return func(d *Detector) {
		d.logger = logger
	}
}

// NewDetector creates a Detector.
func NewDetector(s Settings, opts ...DetectorOption) *Detector {
	if s.Knowledge == nil {
		s.Knowledge = knowledge.Default()
	}
	d := &Detector{settings: s}
	for _, opt := range opts {
		opt(d)
	}
	if d.logger == nil {
		d.logger = slog.Default()
	}
	return d
}

// Settings returns the detector settings.
func (d *Detector) Settings() Settings {
	return d.settings
}

// Pipeline builds a fresh pipeline with the default steps. A failing step
// does not stop the pass.
func (d *Detector) Pipeline() *Pipeline {
	p := New(WithLogger(d.logger), WithContinueOnError(true))
	p.AddSteps(
		NewJurisdictionStep(d.logger),
		NewScanStep(),
		NewGroupStep(d.settings.Label),
		NewClassifyStep(d.settings.Classify),
		NewSectionStep(d.settings.Section),
		NewAggregateStep(d.settings.Thresholds),
	)
	return p
}

// Detect runs one pass over doc. It fails only for a nil or detached
// document. On cancellation it returns the partial result together with
// the context error.
func (d *Detector) Detect(ctx context.Context, doc *dom.Document, in Input) (*model.DetectionResult, error) {
	if doc == nil || !doc.Attached() {
		return nil, ErrInvalidInput
	}

	pass := NewPass(doc, in, d.settings.Knowledge)
	if err := d.Pipeline().Execute(ctx, pass); err != nil {
		return pass.Result, err
	}

	d.logger.Debug("detection complete",
		"source", pass.source(),
		"fields", len(pass.Result.Fields),
		"confidence", pass.Result.OverallConfidence,
		"business_form", pass.Result.IsBusinessForm,
	)
	return pass.Result, nil
}

// Detect runs one pass over doc with the default settings.
func Detect(ctx context.Context, doc *dom.Document, in Input) (*model.DetectionResult, error) {
	return NewDetector(DefaultSettings()).Detect(ctx, doc, in)
}
