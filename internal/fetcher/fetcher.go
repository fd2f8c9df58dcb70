// Package fetcher downloads a single identifier and records the outcome.
package fetcher

import (
	"context"
	"log/slog"
	"time"

	"ytbatch/internal/consts"
	"ytbatch/internal/downloader"
	"ytbatch/internal/entity"
	"ytbatch/internal/errs"
	"ytbatch/internal/observability"
)

// FailureRecorder persists identifiers whose fetch failed.
type FailureRecorder interface {
	Append(id entity.Identifier) error
}

// Fetcher wraps a downloader with the per-item timeout, logging, failure record and metrics.
type Fetcher struct {
	log        *slog.Logger
	downloader downloader.Downloader
	failures   FailureRecorder
	metrics    *observability.Metrics
	timeout    time.Duration
}

// New creates a fetcher. A zero timeout disables the per-item deadline.
func New(
	log *slog.Logger,
	dl downloader.Downloader,
	failures FailureRecorder,
	metrics *observability.Metrics,
	timeout time.Duration,
) *Fetcher {
	return &Fetcher{
		log:        log.With(slog.String("package", "fetcher"), slog.String("downloader", dl.Name())),
		downloader: dl,
		failures:   failures,
		metrics:    metrics,
		timeout:    timeout,
	}
}

// Fetch downloads id and never fails: errors end up in the failure record and in Result.Err.
//
// The download runs detached from ctx cancellation so an interrupted run lets
// the in-flight item finish; only the per-item timeout can abort it.
func (f *Fetcher) Fetch(ctx context.Context, id entity.Identifier) entity.Result {
	log := f.log.With(slog.String("id", id.String()))

	itemCtx := context.WithoutCancel(ctx)
	if f.timeout > 0 {
		var cancel context.CancelFunc

		itemCtx, cancel = context.WithTimeout(itemCtx, f.timeout)
		defer cancel()
	}

	log.InfoContext(ctx, "downloading")

	observe := f.metrics.ItemTimer()
	start := time.Now()

	artifact, err := f.downloader.Download(itemCtx, id)
	if err == nil && artifact == nil {
		err = errs.ErrArtifactMissing
	}

	observe()

	result := entity.Result{ID: id, Artifact: artifact, Err: err, Duration: time.Since(start)}

	if err != nil {
		log.WarnContext(ctx, "failed to download", slog.Any("error", err), slog.Duration("duration", result.Duration))

		f.metrics.RecordItem(f.downloader.Name(), consts.StatusFailed, 0)
		f.metrics.RecordDownloaderError(f.downloader.Name(), downloader.ClassifyError(err))

		if appendErr := f.failures.Append(id); appendErr != nil {
			log.ErrorContext(ctx, "record failure", slog.Any("error", appendErr))
		}

		return result
	}

	f.metrics.RecordItem(f.downloader.Name(), consts.StatusSuccess, artifact.Size)

	log.InfoContext(ctx, "downloaded", slog.Any("artifact", artifact), slog.Duration("duration", result.Duration))

	return result
}
