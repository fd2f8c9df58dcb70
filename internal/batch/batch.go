// Package batch runs the identifiers of one batch sequentially.
package batch

import (
	"context"
	"log/slog"
	"time"

	"ytbatch/internal/entity"
	"ytbatch/internal/progress"
)

// ItemFetcher fetches one identifier. It reports failures in the Result, never as an error.
type ItemFetcher interface {
	Fetch(ctx context.Context, id entity.Identifier) entity.Result
}

// Runner processes a batch item by item with a fixed pause between items.
type Runner struct {
	log      *slog.Logger
	fetcher  ItemFetcher
	delay    time.Duration
	progress *progress.Tracker
}

// New creates a runner. tracker may be nil.
func New(log *slog.Logger, fetcher ItemFetcher, delay time.Duration, tracker *progress.Tracker) *Runner {
	return &Runner{
		log:      log.With(slog.String("package", "batch")),
		fetcher:  fetcher,
		delay:    delay,
		progress: tracker,
	}
}

// Run fetches every identifier of b in order. A failed item does not stop the batch.
// Once ctx is cancelled no further item is started and the rest count as skipped.
func (r *Runner) Run(ctx context.Context, b entity.Batch) entity.BatchReport {
	log := r.log.With(slog.Int("batch", b.Index))
	report := entity.BatchReport{Index: b.Index}

	for i, id := range b.IDs {
		if i > 0 && !r.pause(ctx) || ctx.Err() != nil {
			report.Skipped = len(b.IDs) - i

			log.InfoContext(ctx, "batch interrupted", slog.Int("skipped", report.Skipped))

			break
		}

		res := r.fetcher.Fetch(ctx, id)
		if res.OK() {
			report.Succeeded++
		} else {
			report.Failed++
		}

		r.progress.Done(res.OK())
	}

	log.DebugContext(ctx, "batch finished", slog.Any("report", report))

	return report
}

// pause waits for the inter-item delay. It returns false if ctx ends first.
func (r *Runner) pause(ctx context.Context) bool {
	if r.delay <= 0 {
		return ctx.Err() == nil
	}

	timer := time.NewTimer(r.delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
