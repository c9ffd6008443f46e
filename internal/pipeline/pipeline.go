package pipeline

import (
	"context"
	"log/slog"

	"github.com/nao1215/formscan/internal/dom"
	"github.com/nao1215/formscan/internal/knowledge"
	"github.com/nao1215/formscan/internal/model"
)

// Pass carries the state of one detection pass between steps. It is
// created per document and never shared between passes.
type Pass struct {
	// Doc is the document snapshot. Steps only read it.
	Doc *dom.Document

	// Input is what the caller knows about the document.
	Input Input

	// Knowledge is the knowledge base for this pass, after jurisdiction
	// overrides are applied.
	Knowledge *knowledge.Base

	// Candidates are the scanned controls.
	Candidates []model.FieldCandidate

	// Result accumulates the output of every step.
	Result *model.DetectionResult

	// Steps records the names of the steps that ran.
	Steps []string
}

// NewPass creates a pass over doc with an empty result.
func NewPass(doc *dom.Document, in Input, kb *knowledge.Base) *Pass {
	if kb == nil {
		kb = knowledge.Default()
	}
	return &Pass{
		Doc:       doc,
		Input:     in,
		Knowledge: kb,
		Result:    model.NewDetectionResult(),
	}
}

// source names the document in log records.
func (p *Pass) source() string {
	if p.Input.URL != "" {
		return p.Input.URL
	}
	return "document"
}

// addErrors records recovered per-field failures.
func (p *Pass) addErrors(errs []model.FieldError) {
	p.Result.Errors = append(p.Result.Errors, errs...)
}

// Step is one stage of a detection pass.
type Step interface {
	// Do runs the step. Per-field failures are recorded on the pass;
	// a returned error means the step as a whole failed.
	Do(ctx context.Context, pass *Pass) error

	// Name returns the step's name for logging.
	Name() string
}

// Pipeline runs steps in order.
type Pipeline struct {
	steps []Step

	logger *slog.Logger

	// continueOnError keeps running later steps after one fails.
	continueOnError bool
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithContinueOnError configures the pipeline to keep going when a step
// fails. The failure is recorded on the result as a stage error.
func WithContinueOnError(continueOnError bool) Option {
	return func(p *Pipeline) {
		p.continueOnError = continueOnError
	}
}

// New creates an empty Pipeline.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		steps: make([]Step, 0),
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.logger == nil {
		p.logger = slog.Default()
	}

	return p
}

// AddStep appends a step to the pipeline.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends multiple steps to the pipeline.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// Execute runs all steps over pass. Cancellation is checked before each
// step. It returns the context error on cancellation, the first step error
// unless continueOnError is set, and nil otherwise.
func (p *Pipeline) Execute(ctx context.Context, pass *Pass) error {
	for _, step := range p.steps {
		select {
		case <-ctx.Done():
			p.logger.Warn("pipeline cancelled",
				"step", step.Name(),
				"reason", ctx.Err(),
			)
			return ctx.Err()
		default:
		}

		p.logger.Debug("executing step",
			"step", step.Name(),
			"source", pass.source(),
		)

		if err := step.Do(ctx, pass); err != nil {
			p.logger.Error("step failed",
				"step", step.Name(),
				"source", pass.source(),
				"error", err,
			)

			pass.Result.Errors = append(pass.Result.Errors, model.FieldError{
				Stage:    step.Name(),
				Position: -1,
				Message:  err.Error(),
			})

			if !p.continueOnError {
				return err
			}
		} else {
			p.logger.Debug("step completed",
				"step", step.Name(),
				"source", pass.source(),
			)
		}

		pass.Steps = append(pass.Steps, step.Name())
	}

	return nil
}

// StepCount returns the number of steps in the pipeline.
func (p *Pipeline) StepCount() int {
	return len(p.steps)
}

// StepNames returns the names of all steps in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.steps))
	for i, step := range p.steps {
		names[i] = step.Name()
	}
	return names
}
