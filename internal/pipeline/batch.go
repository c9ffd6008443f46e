package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/formscan/internal/model"
)

// DefaultConcurrency is the number of sources processed at once.
const DefaultConcurrency = 10

// RunFunc acquires one source and runs detection on it. It never returns
// nil; failures are recorded on the report.
type RunFunc func(ctx context.Context, source string) *model.Report

// BatchProcessor runs detection over many sources concurrently. Every
// source gets its own document and pass, so no state is shared between
// goroutines.
type BatchProcessor struct {
	run RunFunc

	// concurrency is the maximum number of sources in flight.
	concurrency int

	logger *slog.Logger

	mu sync.Mutex
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of concurrent sources.
// Non-positive values keep the default.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchProcessor creates a BatchProcessor that handles each source
// with run.
func NewBatchProcessor(run RunFunc, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		run:         run,
		concurrency: DefaultConcurrency,
	}

	for _, opt := range opts {
		opt(bp)
	}

	if bp.logger == nil {
		bp.logger = slog.Default()
	}

	return bp
}

// ProcessBatch runs every source and returns the reports in input order.
// A source that fails still has a report carrying the error. Sources not
// started before ctx is done get a cancelled report and the context error
// is returned.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, sources []string) ([]*model.Report, error) {
	bp.logger.Info("starting batch processing",
		"total_sources", len(sources),
		"concurrency", bp.concurrency,
	)

	startTime := time.Now()
	results := make([]*model.Report, len(sources))

	err := bp.each(ctx, sources, func(report *model.Report, index int) {
		bp.mu.Lock()
		results[index] = report
		bp.mu.Unlock()
	})

	bp.logger.Info("batch processing complete",
		"total_sources", len(sources),
		"elapsed", time.Since(startTime),
	)

	return results, err
}

// ProcessBatchWithCallback runs every source and calls callback with each
// report and its input index as soon as it is ready. The callback runs on
// worker goroutines and must be safe for concurrent use.
func (bp *BatchProcessor) ProcessBatchWithCallback(
	ctx context.Context,
	sources []string,
	callback func(report *model.Report, index int),
) error {
	bp.logger.Info("starting batch processing with callback",
		"total_sources", len(sources),
		"concurrency", bp.concurrency,
	)
	return bp.each(ctx, sources, callback)
}

func (bp *BatchProcessor) each(ctx context.Context, sources []string, done func(*model.Report, int)) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, source := range sources {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				report := model.NewReport(source)
				report.TimedOut = true
				report.SetError(ctx.Err())
				done(report, i)
				return ctx.Err()
			default:
			}

			bp.logger.Debug("processing source",
				"source", source,
				"index", i+1,
				"total", len(sources),
			)

			report := bp.run(ctx, source)
			if report == nil {
				report = model.NewReport(source)
			}
			if report.Failed() {
				bp.logger.Warn("detection failed",
					"source", source,
					"error", report.ErrorMessage,
				)
			} else {
				bp.logger.Info("detection completed",
					"source", source,
					"business_form", report.Result.IsBusinessForm,
					"confidence", report.Result.OverallConfidence,
				)
			}

			done(report, i)
			return nil
		})
	}

	return g.Wait()
}
