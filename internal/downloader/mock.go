package downloader

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"ytbatch/internal/config"
	"ytbatch/internal/consts"
	"ytbatch/internal/entity"
	"ytbatch/internal/errs"
)

// ProgressCallbackFunc receives simulated progress.
type ProgressCallbackFunc func(update ProgressUpdateMock)

// ProgressUpdateMock is a simulated progress step.
type ProgressUpdateMock struct {
	Progress int
	ETA      string
}

// Mock writes a placeholder file per id, or fails for the configured ids.
type Mock struct {
	log      *slog.Logger
	dir      string
	ext      string
	simulate time.Duration
	fail     map[entity.Identifier]struct{}
}

// NewMock creates a mock downloader failing for failIDs.
func NewMock(log *slog.Logger, cfg *config.Config, failIDs ...entity.Identifier) *Mock {
	fail := make(map[entity.Identifier]struct{}, len(failIDs))
	for _, id := range failIDs {
		fail[id] = struct{}{}
	}

	return &Mock{
		log:      log.With(slog.String("package", "downloader"), slog.String("downloader", consts.DownloaderMock)),
		dir:      cfg.Dir.Downloads,
		ext:      cfg.Fetch.Ext,
		simulate: cfg.Fetch.MockLatency,
		fail:     fail,
	}
}

// Name returns the backend identifier.
func (m *Mock) Name() string { return consts.DownloaderMock }

// Download simulates a transfer and writes <dir>/<id>.<ext>.
func (m *Mock) Download(ctx context.Context, id entity.Identifier) (*entity.Artifact, error) {
	target, err := ArtifactPath(m.dir, id, m.ext)
	if err != nil {
		return nil, err
	}

	log := m.log.With(slog.String("id", id.String()))

	progressFn := func(prog ProgressUpdateMock) {
		log.DebugContext(ctx, "mock progress", slog.Int("progress", prog.Progress), slog.String("eta", prog.ETA))
	}

	if err := simulateDownload(ctx, m.simulate, progressFn); err != nil {
		return nil, fmt.Errorf("simulate download: %w", err)
	}

	if _, ok := m.fail[id]; ok {
		return nil, fmt.Errorf("%w: video %s is unavailable", errs.ErrDownloadFailed, id)
	}

	if err := os.WriteFile(target, []byte("mock media for "+id.String()+"\n"), consts.FilePermReadWrite); err != nil {
		return nil, fmt.Errorf("write artifact: %w", err)
	}

	return statArtifact(id, target)
}

func simulateDownload(ctx context.Context, duration time.Duration, progressFn ProgressCallbackFunc) error {
	const steps = 10

	if duration <= 0 {
		return ctx.Err()
	}

	ticker := time.NewTicker(max(duration/steps, time.Nanosecond))
	defer ticker.Stop()

	start := time.Now()

	for step := 1; step <= steps; step++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			eta := (duration - time.Since(start)).Round(time.Millisecond)
			progressFn(ProgressUpdateMock{Progress: step * (100 / steps), ETA: eta.String()})
		}
	}

	return nil
}
