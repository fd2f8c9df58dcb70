package downloader_test

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"testing"

	"ytbatch/internal/config"
	"ytbatch/internal/consts"
	"ytbatch/internal/depmanager"
	"ytbatch/internal/downloader"
	"ytbatch/internal/entity"
	"ytbatch/internal/errs"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()

	return &config.Config{
		Dir: config.Dir{Downloads: t.TempDir()},
		Fetch: config.Fetch{
			URLTemplate: "https://www.youtube.com/watch?v=%s",
			Format:      "bv*+ba/b",
			Ext:         "mp4",
		},
	}
}

func TestNew(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	depMgr := depmanager.New(slog.Default(), cfg, nil)

	tests := []struct {
		kind     string
		depMgr   *depmanager.Manager
		wantName string
		wantErr  error
	}{
		{kind: consts.DownloaderYTdlp, depMgr: depMgr, wantName: consts.DownloaderYTdlp},
		{kind: consts.DownloaderYTdlp, wantErr: errs.ErrBinaryNotFound},
		{kind: consts.DownloaderNative, wantName: consts.DownloaderNative},
		{kind: consts.DownloaderMock, wantName: consts.DownloaderMock},
		{kind: "gallery-dl", wantErr: errs.ErrDownloaderNotFound},
		{kind: "", wantErr: errs.ErrDownloaderNotFound},
	}

	for _, tc := range tests {
		t.Run(fmt.Sprintf("%s/depmgr=%t", tc.kind, tc.depMgr != nil), func(t *testing.T) {
			t.Parallel()

			got, err := downloader.New(tc.kind, slog.Default(), cfg, tc.depMgr, nil)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("New() error = %v, want %v", err, tc.wantErr)
				}

				return
			}

			if err != nil {
				t.Fatalf("New() failed: %v", err)
			}

			if got.Name() != tc.wantName {
				t.Errorf("Name() = %q, want %q", got.Name(), tc.wantName)
			}
		})
	}
}

func TestClassifyError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{context.Canceled, "canceled"},
		{fmt.Errorf("run: %w", context.DeadlineExceeded), "timeout"},
		{fmt.Errorf("stat: %w", errs.ErrArtifactMissing), "artifact_missing"},
		{errs.ErrEmptyIdentifier, "identifier"},
		{errs.ErrInvalidIdentifier, "identifier"},
		{errs.ErrDownloadFailed, "download"},
		{errors.New("exit status 1"), "download"},
	}

	for _, tc := range tests {
		if got := downloader.ClassifyError(tc.err); got != tc.want {
			t.Errorf("ClassifyError(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}

func TestArtifactPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		id      entity.Identifier
		want    string
		wantErr error
	}{
		{id: "abc123", want: filepath.Join("/out", "abc123.mp4")},
		{id: "a-B_c9", want: filepath.Join("/out", "a-B_c9.mp4")},
		{id: "", wantErr: errs.ErrEmptyIdentifier},
		{id: "  ", wantErr: errs.ErrEmptyIdentifier},
		{id: "..", wantErr: errs.ErrInvalidIdentifier},
		{id: "../etc/passwd", wantErr: errs.ErrInvalidIdentifier},
		{id: `a\b`, wantErr: errs.ErrInvalidIdentifier},
	}

	for _, tc := range tests {
		got, err := downloader.ArtifactPath("/out", tc.id, "mp4")
		if !errors.Is(err, tc.wantErr) {
			t.Errorf("ArtifactPath(%q) error = %v, want %v", tc.id, err, tc.wantErr)

			continue
		}

		if got != tc.want {
			t.Errorf("ArtifactPath(%q) = %q, want %q", tc.id, got, tc.want)
		}
	}
}
