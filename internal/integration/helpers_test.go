//go:build integration

package integration_test

import (
	_ "embed"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"ytbatch/internal/config"
	"ytbatch/internal/depmanager"
	"ytbatch/internal/downloader"
	"ytbatch/internal/observability"
)

//go:embed testdata/fake-ytdlp.sh
var fakeYTDLPScript string

type ytdlpIntegrationFixture struct {
	cfg        *config.Config
	metrics    *observability.Metrics
	downloader *downloader.YTdlp
}

func newYTdlpIntegrationFixture(t *testing.T, ids ...string) *ytdlpIntegrationFixture {
	t.Helper()

	if runtime.GOOS == "windows" {
		t.Skip("integration fake yt-dlp helper uses shell script")
	}

	baseDir := t.TempDir()
	binsDir := filepath.Join(baseDir, "bins")

	if err := os.MkdirAll(binsDir, 0o755); err != nil {
		t.Fatalf("mkdir bins dir: %v", err)
	}

	cfg := &config.Config{
		Batch: config.Batch{Size: 2, Workers: 2, Delay: 10 * time.Millisecond},
		Dir: config.Dir{
			InputFile: filepath.Join(baseDir, "video_ids_to_download.txt"),
			Downloads: filepath.Join(baseDir, "final_download"),
			FailedLog: filepath.Join(baseDir, "failed_downloads.txt"),
			Cache:     filepath.Join(baseDir, "cache"),
		},
		Fetch: config.Fetch{
			Downloader:  "ytdlp",
			URLTemplate: "https://www.youtube.com/watch?v=%s",
			Format:      "bv*+ba/b",
			Ext:         "mp4",
			Timeout:     5 * time.Second,
		},
		DepManager: config.DepManager{BinsDir: binsDir, UseSystemBinaries: true},
	}

	if err := os.WriteFile(cfg.Dir.InputFile, []byte(strings.Join(ids, "\n")+"\n"), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	depMgr := depmanager.New(log, cfg, nil)

	if err := os.WriteFile(depMgr.GetBinaryPath(depmanager.BinaryYTdlp), []byte(fakeYTDLPScript), 0o755); err != nil {
		t.Fatalf("write fake yt-dlp: %v", err)
	}

	t.Setenv("PATH", binsDir+string(filepath.ListSeparator)+os.Getenv("PATH"))
	t.Setenv("YTBATCH_FAKE_OUTPUT_DIR", cfg.Dir.Downloads)

	if err := depMgr.Start(t.Context()); err != nil {
		t.Fatalf("dependency manager start: %v", err)
	}

	if err := os.MkdirAll(cfg.Dir.Downloads, 0o755); err != nil {
		t.Fatalf("mkdir downloads dir: %v", err)
	}

	return &ytdlpIntegrationFixture{
		cfg:        cfg,
		metrics:    observability.New(),
		downloader: downloader.NewYTdlp(log, cfg, depMgr, nil),
	}
}
