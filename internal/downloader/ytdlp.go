package downloader

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"

	"ytbatch/internal/config"
	"ytbatch/internal/consts"
	"ytbatch/internal/depmanager"
	"ytbatch/internal/entity"
	"ytbatch/internal/errs"
	"ytbatch/internal/proxymgr"
	"ytbatch/pkg/maths"
	"ytbatch/pkg/ptr"
	"ytbatch/pkg/urls"

	"github.com/lrstanley/go-ytdlp"
)

var (
	maxJSONSize = 10 * 1024 * 1024                                       // 10 MiB scanner buffer
	bufSize     = 4096                                                   // 4 KiB buffer size
	reFilepath  = regexp.MustCompile(`(?i)^[^\{\[\n].*\.[a-z0-9]{1,6}$`) // file path

	// changing this may break ParseYtdlpStdout().
	defaultPrintAfterMove = "after_move:filepath"
)

// YTdlp downloads through the yt-dlp binary via go-ytdlp.
type YTdlp struct {
	log      *slog.Logger
	cfg      *config.Config
	depMgr   *depmanager.Manager
	proxyMgr *proxymgr.Manager
}

// NewYTdlp creates a new YTdlp downloader instance. proxyMgr may be nil.
func NewYTdlp(log *slog.Logger, cfg *config.Config, depMgr *depmanager.Manager, proxyMgr *proxymgr.Manager) *YTdlp {
	return &YTdlp{
		log:      log.With(slog.String("package", "downloader"), slog.String("downloader", consts.DownloaderYTdlp)),
		cfg:      cfg,
		depMgr:   depMgr,
		proxyMgr: proxyMgr,
	}
}

// Name returns the backend identifier.
func (d *YTdlp) Name() string { return consts.DownloaderYTdlp }

// Download fetches the best video and audio streams for id and merges them into <dir>/<id>.<ext>.
func (d *YTdlp) Download(ctx context.Context, id entity.Identifier) (*entity.Artifact, error) {
	target, err := ArtifactPath(d.cfg.Dir.Downloads, id, d.cfg.Fetch.Ext)
	if err != nil {
		return nil, err
	}

	url, err := urls.FromTemplate(d.cfg.Fetch.URLTemplate, id.String())
	if err != nil {
		return nil, fmt.Errorf("build url: %w", err)
	}

	log := d.log.With(slog.String("id", id.String()))

	command := d.command(ctx, log, id)

	proxyURL, err := d.proxyMgr.Acquire()
	if err != nil {
		log.WarnContext(ctx, "no healthy proxy, downloading directly", slog.Any("error", err))
	} else if proxyURL != "" {
		log.DebugContext(ctx, "using proxy for download", slog.String("proxy", proxyURL))
		command = command.Proxy(proxyURL)
	}

	res, err := command.Run(ctx, url)

	// an interrupted run says nothing about the proxy
	if ctx.Err() == nil {
		d.proxyMgr.Report(proxyURL, err)
	}

	if err != nil {
		log.ErrorContext(ctx, "ytdlp run", slog.Any("error", err), slog.Any("result", Result{res}))

		return nil, fmt.Errorf("%w: %w", errs.ErrDownloadFailed, err)
	}

	path := target

	results, _ := ParseYtdlpStdout(res.Stdout)
	if len(results) > 0 && results[0].Filename != "" {
		path = results[0].Filename
	}

	artifact, err := statArtifact(id, path)
	if err != nil {
		log.ErrorContext(ctx, "ytdlp finished without output", slog.Any("error", err), slog.Any("result", Result{res}))

		return nil, err
	}

	info, err := res.GetExtractedInfo()
	if err != nil {
		log.WarnContext(ctx, "ytdlp get extracted info", slog.Any("error", err))
	}

	if len(info) > 0 && info[0] != nil {
		artifact.Title = ptr.Deref(info[0].Title)
		artifact.Height = maths.RoundFloat64ToInt(ptr.Deref(info[0].Height))
	}

	log.DebugContext(ctx, "done", slog.Any("artifact", artifact))

	return artifact, nil
}

func (d *YTdlp) command(ctx context.Context, log *slog.Logger, id entity.Identifier) *ytdlp.Command {
	progressFn := func(prog ytdlp.ProgressUpdate) {
		log.DebugContext(ctx, "ytdlp progress", slog.Any("progress_update", ProgressUpdate{&prog}))
	}

	command := ytdlp.New().
		CacheDir(d.cfg.Dir.Cache).
		Format(d.cfg.Fetch.Format).
		MergeOutputFormat(d.cfg.Fetch.Ext).
		RemuxVideo(d.cfg.Fetch.Ext).
		ForceOverwrites().
		NoPlaylist().
		ProgressFunc(consts.DefaultProgressFreq, progressFn).
		PrintJSON().Print(defaultPrintAfterMove).
		Output(filepath.Join(d.cfg.Dir.Downloads, id.String()+".%(ext)s"))

	if bin := d.depMgr.GetInstalledPath(depmanager.BinaryYTdlp); bin != "" {
		command = command.SetExecutable(bin)
	}

	if ffmpeg := d.depMgr.GetInstalledPath(depmanager.BinaryFFmpeg); ffmpeg != "" {
		command = command.FFmpegLocation(ffmpeg)
	}

	if d.cfg.Dir.CookieFile != "" {
		command = command.Cookies(d.cfg.Dir.CookieFile)
	}

	return command
}

// ParseYtdlpStdout parses the stdout of yt-dlp and returns a slice of ResultJSON with their filenames.
// A file path line is attributed to the JSON line preceding it.
func ParseYtdlpStdout(stdout string) ([]ResultJSON, error) {
	scanner := bufio.NewScanner(strings.NewReader(stdout))
	scanner.Buffer(make([]byte, bufSize), maxJSONSize)

	var res []ResultJSON

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var r ResultJSON
		if err := json.Unmarshal([]byte(line), &r); err == nil {
			res = append(res, r)

			continue
		}

		if reFilepath.MatchString(line) && len(res) > 0 {
			res[len(res)-1].Filename = line
		}
	}

	if err := scanner.Err(); err != nil {
		return res, fmt.Errorf("scan stdout: %w", err)
	}

	return res, nil
}
