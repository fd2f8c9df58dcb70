package downloader

import (
	"context"
	"fmt"
	"log/slog"

	"ytbatch/internal/config"
	"ytbatch/internal/consts"
	"ytbatch/internal/entity"
	"ytbatch/internal/errs"
	"ytbatch/pkg/urls"

	ytget "github.com/ytget/ytdlp/v2"
)

// nativeQuality asks for the best progressive stream; native has no muxer to merge separate ones.
const nativeQuality = "best"

// Native downloads in pure Go, without yt-dlp or ffmpeg binaries.
type Native struct {
	log *slog.Logger
	cfg *config.Config
}

// NewNative creates a new native downloader without yt-dlp.
func NewNative(log *slog.Logger, cfg *config.Config) *Native {
	return &Native{
		log: log.With(slog.String("package", "downloader"), slog.String("downloader", consts.DownloaderNative)),
		cfg: cfg,
	}
}

// Name returns the backend identifier.
func (n *Native) Name() string { return consts.DownloaderNative }

// Download writes the best progressive stream for id to <dir>/<id>.<ext>.
func (n *Native) Download(ctx context.Context, id entity.Identifier) (*entity.Artifact, error) {
	target, err := ArtifactPath(n.cfg.Dir.Downloads, id, n.cfg.Fetch.Ext)
	if err != nil {
		return nil, err
	}

	url, err := urls.FromTemplate(n.cfg.Fetch.URLTemplate, id.String())
	if err != nil {
		return nil, fmt.Errorf("build url: %w", err)
	}

	info, err := ytget.New().
		WithFormat(nativeQuality, n.cfg.Fetch.Ext).
		WithOutputPath(target).
		Download(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrDownloadFailed, err)
	}

	artifact, err := statArtifact(id, target)
	if err != nil {
		return nil, err
	}

	if info != nil {
		artifact.Title = info.Title
	}

	n.log.DebugContext(ctx, "done", slog.Any("artifact", artifact))

	return artifact, nil
}
