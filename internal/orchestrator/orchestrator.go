// Package orchestrator drives a whole run: it prepares the output, partitions
// the identifiers and fans the batches out over a fixed pool of workers.
package orchestrator

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"ytbatch/internal/batch"
	"ytbatch/internal/config"
	"ytbatch/internal/consts"
	"ytbatch/internal/downloader"
	"ytbatch/internal/entity"
	"ytbatch/internal/errs"
	"ytbatch/internal/failurelog"
	"ytbatch/internal/fetcher"
	"ytbatch/internal/observability"
	"ytbatch/internal/progress"
	"ytbatch/internal/source"
	"ytbatch/pkg/calc"
	"ytbatch/pkg/chunk"

	"github.com/google/uuid"
)

// Orchestrator runs the batch download.
type Orchestrator struct {
	log        *slog.Logger
	cfg        *config.Config
	downloader downloader.Downloader
	metrics    *observability.Metrics
	progress   io.Writer
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithProgress renders a progress bar to w.
func WithProgress(w io.Writer) Option {
	return func(o *Orchestrator) { o.progress = w }
}

// New creates an orchestrator.
func New(
	log *slog.Logger,
	cfg *config.Config,
	dl downloader.Downloader,
	metrics *observability.Metrics,
	opts ...Option,
) *Orchestrator {
	o := &Orchestrator{
		log:        log.With(slog.String("package", "orchestrator")),
		cfg:        cfg,
		downloader: dl,
		metrics:    metrics,
	}

	for _, opt := range opts {
		opt(o)
	}

	return o
}

// Run downloads every identifier of the input file and returns the tally.
// Only setup failures are returned as errors; per-item failures go to the failure log.
func (o *Orchestrator) Run(ctx context.Context) (entity.Summary, error) {
	start := time.Now()
	summary := entity.Summary{RunID: uuid.NewString()}

	log := o.log.With(slog.String("run_id", summary.RunID))

	if err := os.MkdirAll(o.cfg.Dir.Downloads, consts.DirPerm); err != nil {
		return summary, fmt.Errorf("%w: %w", errs.ErrOutputDir, err)
	}

	failures := failurelog.New(o.cfg.Dir.FailedLog)
	if err := failures.Reset(); err != nil {
		return summary, err
	}

	defer func() {
		if err := failures.Close(); err != nil {
			log.ErrorContext(ctx, "close failure log", slog.Any("error", err))
		}
	}()

	ids, err := source.Read(o.cfg.Dir.InputFile)
	if err != nil {
		return summary, err
	}

	chunks := chunk.Split(ids, o.cfg.Batch.Size)

	summary.Total = len(ids)
	summary.Batches = len(chunks)
	summary.Workers = min(o.cfg.Batch.Workers, len(chunks))

	o.metrics.SetRunShape(summary.Total, summary.Batches)

	log.InfoContext(ctx, "starting",
		slog.Int("total", summary.Total),
		slog.Int("batches", summary.Batches),
		slog.Int("workers", summary.Workers),
		slog.String("downloader", o.downloader.Name()))

	var tracker *progress.Tracker
	if o.progress != nil && summary.Total > 0 {
		tracker = progress.New(o.progress, summary.Total)
	}

	runner := batch.New(log,
		fetcher.New(log, o.downloader, failures, o.metrics, o.cfg.Fetch.Timeout),
		o.cfg.Batch.Delay,
		tracker)

	for report := range o.dispatch(ctx, log, runner, chunks, summary.Workers) {
		summary.Add(report)
	}

	tracker.Wait()

	summary.Duration = time.Since(start)

	log.InfoContext(ctx, "finished",
		slog.Any("summary", summary),
		slog.Float64("items_per_minute", calc.PerMinute(summary.Succeeded+summary.Failed, summary.Duration)),
		slog.String("failed_log", failures.Path()))

	return summary, nil
}

// dispatch hands every chunk to exactly one of n workers and closes the returned
// channel once all reports are in.
func (o *Orchestrator) dispatch(
	ctx context.Context,
	log *slog.Logger,
	runner *batch.Runner,
	chunks [][]entity.Identifier,
	n int,
) <-chan entity.BatchReport {
	queue := make(chan entity.Batch, len(chunks))
	for i, ids := range chunks {
		queue <- entity.Batch{Index: i, IDs: ids}
	}

	close(queue)

	reports := make(chan entity.BatchReport, len(chunks))

	var wg sync.WaitGroup

	for workerID := range n {
		wg.Go(func() {
			o.worker(ctx, log.With(slog.Int("worker_id", workerID)), runner, queue, reports)
		})
	}

	go func() {
		wg.Wait()
		close(reports)
	}()

	return reports
}

func (o *Orchestrator) worker(
	ctx context.Context,
	log *slog.Logger,
	runner *batch.Runner,
	queue <-chan entity.Batch,
	reports chan<- entity.BatchReport,
) {
	for b := range queue {
		log.DebugContext(ctx, "batch started", slog.Any("batch", b))

		done := o.metrics.WorkerBusy()
		reports <- runner.Run(ctx, b)

		done()
	}

	log.DebugContext(ctx, "queue drained")
}
