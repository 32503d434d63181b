package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/scrapeflow/internal/model"
)

// DefaultConcurrency is the default number of workflows run at once.
const DefaultConcurrency = 4

// BatchProcessor runs the workflow for multiple URLs concurrently.
// Runs share no state; the only synchronization is result collection.
type BatchProcessor struct {
	// pipelineFactory creates a new pipeline for each run.
	pipelineFactory func() *Pipeline

	// concurrency is the maximum number of concurrent runs.
	concurrency int

	// logger is used for batch-level logging.
	logger *slog.Logger

	// results stores finished runs in input order.
	results []*model.Run
	mu      sync.Mutex
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of concurrent runs.
// Non-positive values keep the default.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchProcessor creates a new BatchProcessor.
// pipelineFactory is called once per URL so that no pipeline state is
// shared between runs.
func NewBatchProcessor(pipelineFactory func() *Pipeline, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		pipelineFactory: pipelineFactory,
		concurrency:     DefaultConcurrency,
		results:         make([]*model.Run, 0),
	}

	for _, opt := range opts {
		opt(bp)
	}

	if bp.logger == nil {
		bp.logger = slog.Default()
	}

	return bp
}

// ProcessBatch runs the workflow for every URL and returns the runs in
// input order. A failed fetch does not stop the other runs. URLs not
// started before ctx ends are returned as cancelled runs, and the context
// error is returned.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, urls []string) ([]*model.Run, error) {
	bp.logger.Info("starting batch processing",
		"total_urls", len(urls),
		"concurrency", bp.concurrency,
	)

	startTime := time.Now()

	bp.results = make([]*model.Run, len(urls))

	err := bp.ProcessBatchWithCallback(ctx, urls, func(run *model.Run, index int) {
		bp.mu.Lock()
		bp.results[index] = run
		bp.mu.Unlock()
	})

	bp.logger.Info("batch processing complete",
		"total_urls", len(urls),
		"elapsed", time.Since(startTime),
	)

	return bp.results, err
}

// ProcessBatchWithCallback runs the workflow for every URL and calls
// callback with each finished run and the index of its URL.
// The callback is called from the goroutine that ran the workflow, so it
// must be safe for concurrent use.
func (bp *BatchProcessor) ProcessBatchWithCallback(
	ctx context.Context,
	urls []string,
	callback func(run *model.Run, index int),
) error {
	g := new(errgroup.Group)
	g.SetLimit(bp.concurrency)

	for i, url := range urls {
		g.Go(func() error {
			run := model.NewRun(model.NewWorkflowRequest(url))

			// Check for cancellation before starting
			if err := ctx.Err(); err != nil {
				run.Fail(err)
				callback(run, i)
				return err
			}

			bp.logger.Info("running workflow",
				"url", url,
				"index", i+1,
				"total", len(urls),
			)

			_ = bp.pipelineFactory().Execute(ctx, run) //nolint:errcheck // Error is stored in run

			if run.Failed() {
				bp.logger.Warn("workflow failed",
					"url", url,
					"status", run.Status.String(),
					"error", run.ErrorMessage,
				)
			} else {
				bp.logger.Info("workflow completed", "url", url)
			}

			callback(run, i)
			return nil
		})
	}

	return g.Wait()
}
