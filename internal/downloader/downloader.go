// Package downloader defines the media fetch backends and the factory selecting one.
package downloader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"ytbatch/internal/config"
	"ytbatch/internal/consts"
	"ytbatch/internal/depmanager"
	"ytbatch/internal/entity"
	"ytbatch/internal/errs"
	"ytbatch/internal/proxymgr"
)

// Downloader fetches the media behind one identifier into the output directory.
type Downloader interface {
	Name() string
	Download(ctx context.Context, id entity.Identifier) (*entity.Artifact, error)
}

// New returns the backend registered under kind.
// depMgr and proxyMgr are only consulted by the yt-dlp backend and may be nil otherwise.
func New(
	kind string,
	log *slog.Logger,
	cfg *config.Config,
	depMgr *depmanager.Manager,
	proxyMgr *proxymgr.Manager,
) (Downloader, error) {
	switch kind {
	case consts.DownloaderYTdlp:
		if depMgr == nil {
			return nil, fmt.Errorf("%w: yt-dlp backend needs a dependency manager", errs.ErrBinaryNotFound)
		}

		return NewYTdlp(log, cfg, depMgr, proxyMgr), nil
	case consts.DownloaderNative:
		return NewNative(log, cfg), nil
	case consts.DownloaderMock:
		ids := make([]entity.Identifier, 0, len(cfg.Fetch.MockFailIDs))
		for _, id := range cfg.Fetch.MockFailIDs {
			ids = append(ids, entity.Identifier(strings.TrimSpace(id)))
		}

		return NewMock(log, cfg, ids...), nil
	default:
		return nil, fmt.Errorf("%w: %q", errs.ErrDownloaderNotFound, kind)
	}
}

// ClassifyError maps a download error to a short label for metrics.
func ClassifyError(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, errs.ErrArtifactMissing):
		return "artifact_missing"
	case errors.Is(err, errs.ErrInvalidIdentifier), errors.Is(err, errs.ErrEmptyIdentifier):
		return "identifier"
	default:
		return "download"
	}
}

// ArtifactPath returns <dir>/<id>.<ext>, refusing ids that would escape dir.
func ArtifactPath(dir string, id entity.Identifier, ext string) (string, error) {
	name := id.String()

	switch {
	case strings.TrimSpace(name) == "":
		return "", errs.ErrEmptyIdentifier
	case name == "." || name == ".." || strings.ContainsAny(name, `/\`):
		return "", fmt.Errorf("%w: %q", errs.ErrInvalidIdentifier, name)
	}

	return filepath.Join(dir, name+"."+ext), nil
}

// statArtifact checks that path holds a non-empty regular file.
func statArtifact(id entity.Identifier, path string) (*entity.Artifact, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrArtifactMissing, err)
	}

	if !info.Mode().IsRegular() || info.Size() == 0 {
		return nil, fmt.Errorf("%w: %s is empty or not a regular file", errs.ErrArtifactMissing, path)
	}

	return &entity.Artifact{ID: id, Path: path, Size: info.Size()}, nil
}
