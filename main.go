// entry point of the application
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"ytbatch/internal/config"
	"ytbatch/internal/consts"
	"ytbatch/internal/depmanager"
	"ytbatch/internal/downloader"
	"ytbatch/internal/errs"
	"ytbatch/internal/observability"
	"ytbatch/internal/orchestrator"
	"ytbatch/internal/proxymgr"
	"ytbatch/pkg/http/middleware"
	httpserver "ytbatch/pkg/http/server"
	"ytbatch/pkg/logger"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.New()
	if err != nil {
		slog.Error("config new", slog.Any("error", err))

		return 1
	}

	log, err := logger.New(&logger.Options{
		AddSource: true,
		Level:     cfg.App.LogLevel,
		Format:    cfg.App.LogFormat,
	})
	if err != nil {
		log.WarnContext(ctx, "logger options invalid; using defaults", slog.Any("error", err))
	}

	runDone := make(chan struct{})
	defer close(runDone)

	// the first signal lets in-flight items finish, a second one kills the process
	go func() {
		select {
		case <-ctx.Done():
			stop()
			log.Warn("interrupt received, finishing in-flight items")
		case <-runDone:
		}
	}()

	metrics := observability.New()

	if cfg.Metrics.Addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())

		srv := httpserver.New(middleware.Recoverer(log, middleware.Logger(log, mux)), httpserver.Options{
			Addr:            cfg.Metrics.Addr,
			ShutdownTimeout: cfg.Metrics.ShutdownTimeout,
		})

		go func() {
			if err, ok := <-srv.Notify(); ok {
				log.Error("metrics listener", slog.Any("error", err))
			}
		}()

		defer func() {
			if err := srv.Shutdown(); err != nil {
				log.Error("metrics shutdown", slog.Any("error", err))
			}
		}()

		log.InfoContext(ctx, "serving metrics", slog.String("addr", cfg.Metrics.Addr))
	}

	// background work outlives the interrupt until the run returns
	bgCtx, cancelBg := context.WithCancel(context.WithoutCancel(ctx))
	defer cancelBg()

	var proxyMgr *proxymgr.Manager
	if len(cfg.Proxy.Proxies) > 0 {
		proxyMgr = proxymgr.New(log, cfg, metrics)
		proxyMgr.StartHealthChecker(bgCtx)

		log.InfoContext(ctx, "proxy manager initialized", slog.Int("proxy_count", proxyMgr.Count()))
	}

	var depMgr *depmanager.Manager
	if cfg.Fetch.Downloader == consts.DownloaderYTdlp {
		log.InfoContext(ctx, "checking if yt-dlp, ffmpeg, deno are installed. it may take some time...")

		depMgr = depmanager.New(log, cfg, metrics)
		if err := depMgr.Start(ctx); err != nil {
			log.ErrorContext(ctx, "dependency manager start", slog.Any("error", err))

			return 1
		}

		if !cfg.DepManager.UseSystemBinaries {
			// yt-dlp finds its JS runtime through PATH
			os.Setenv("PATH", cfg.DepManager.BinsDir+string(filepath.ListSeparator)+os.Getenv("PATH"))
		}
	}

	dl, err := downloader.New(cfg.Fetch.Downloader, log, cfg, depMgr, proxyMgr)
	if err != nil {
		log.ErrorContext(ctx, "downloader new", slog.Any("error", err))

		return 1
	}

	var opts []orchestrator.Option
	if cfg.App.Progress {
		opts = append(opts, orchestrator.WithProgress(os.Stderr))
	}

	summary, err := orchestrator.New(log, cfg, dl, metrics, opts...).Run(ctx)

	if cfg.Metrics.Textfile != "" {
		if err := metrics.WriteTextfile(cfg.Metrics.Textfile); err != nil {
			log.Error("write metrics textfile", slog.Any("error", err))
		}
	}

	if err != nil {
		if errors.Is(err, errs.ErrInputUnreadable) {
			log.Error("cannot read identifiers", slog.String("path", cfg.Dir.InputFile), slog.Any("error", err))
		} else {
			log.Error("run failed", slog.Any("error", err))
		}

		return 1
	}

	log.Info("ytbatch done", slog.Any("summary", summary))

	return 0
}
