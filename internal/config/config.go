// Package config handles application configuration loading and management.
package config

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"ytbatch/internal/errs"

	"github.com/caarlos0/env/v11"
)

const maxDefaultWorkers = 10

// Config holds the application configuration.
type Config struct {
	App        App
	Batch      Batch
	Dir        Dir
	Fetch      Fetch
	DepManager DepManager
	Proxy      Proxy
	Metrics    Metrics
}

// App holds application-wide configuration.
type App struct {
	LogLevel  string `env:"YTBATCH_APP_LOG_LEVEL"  envDefault:"info"`
	LogFormat string `env:"YTBATCH_APP_LOG_FORMAT" envDefault:"json"` // json or text
	Progress  bool   `env:"YTBATCH_APP_PROGRESS"   envDefault:"false"`
}

// Batch holds partitioning and worker pool configuration.
type Batch struct {
	Size int `env:"YTBATCH_BATCH_SIZE" envDefault:"200"`
	// Workers is the pool size. Zero means min(10, NumCPU).
	Workers int           `env:"YTBATCH_BATCH_WORKERS" envDefault:"0"`
	Delay   time.Duration `env:"YTBATCH_BATCH_DELAY"   envDefault:"1500ms"` // pause between items of one batch
}

// Dir holds input, output and cache paths.
type Dir struct {
	InputFile string `env:"YTBATCH_DIR_INPUT_FILE" envDefault:"video_ids_to_download.txt"`
	Downloads string `env:"YTBATCH_DIR_DOWNLOAD"   envDefault:"final_download"`
	FailedLog string `env:"YTBATCH_DIR_FAILED_LOG" envDefault:"failed_downloads.txt"`
	Cache     string `env:"YTBATCH_DIR_CACHE"      envDefault:"./data/cache"` // yt-dlp cache (meta, sigs)

	// must contain cookies.txt file
	// see: https://github.com/yt-dlp/yt-dlp/wiki/FAQ#how-do-i-pass-cookies-to-yt-dlp
	CookieFile string `env:"YTBATCH_DIR_COOKIE_FILE" envDefault:""`
}

// SetAbsPaths converts all directory paths to absolute paths.
func (c *Dir) SetAbsPaths() error {
	var err error
	if c.InputFile, err = filepath.Abs(c.InputFile); err != nil {
		return fmt.Errorf("input file: %w", err)
	}

	if c.Downloads, err = filepath.Abs(c.Downloads); err != nil {
		return fmt.Errorf("downloads: %w", err)
	}

	if c.FailedLog, err = filepath.Abs(c.FailedLog); err != nil {
		return fmt.Errorf("failed log: %w", err)
	}

	if c.Cache, err = filepath.Abs(c.Cache); err != nil {
		return fmt.Errorf("cache: %w", err)
	}

	if c.CookieFile != "" {
		if c.CookieFile, err = filepath.Abs(c.CookieFile); err != nil {
			return fmt.Errorf("cookie file: %w", err)
		}
	}

	return nil
}

// Fetch holds per-item download configuration.
type Fetch struct {
	// Downloader selects the backend: ytdlp, native or mock.
	Downloader string `env:"YTBATCH_FETCH_DOWNLOADER" envDefault:"ytdlp"`
	// URLTemplate builds the canonical item URL; %s is replaced by the identifier.
	URLTemplate string `env:"YTBATCH_FETCH_URL_TEMPLATE" envDefault:"https://www.youtube.com/watch?v=%s"`
	// see: https://github.com/yt-dlp/yt-dlp/blob/master/README.md#format-selection
	Format  string        `env:"YTBATCH_FETCH_FORMAT"  envDefault:"bv*+ba/b"`
	Ext     string        `env:"YTBATCH_FETCH_EXT"     envDefault:"mp4"`
	Timeout time.Duration `env:"YTBATCH_FETCH_TIMEOUT" envDefault:"30m"`

	// mock backend only
	MockLatency time.Duration `env:"YTBATCH_FETCH_MOCK_LATENCY"  envDefault:"100ms"`
	MockFailIDs []string      `env:"YTBATCH_FETCH_MOCK_FAIL_IDS" envSeparator:","`
}

// Metrics holds Prometheus exposition configuration.
type Metrics struct {
	// Addr enables a /metrics listener when non-empty, e.g. ":9090".
	Addr            string        `env:"YTBATCH_METRICS_ADDR"             envDefault:""`
	ShutdownTimeout time.Duration `env:"YTBATCH_METRICS_SHUTDOWN_TIMEOUT" envDefault:"5s"`
	// Textfile is written once at the end of the run for node_exporter's textfile collector.
	Textfile string `env:"YTBATCH_METRICS_TEXTFILE" envDefault:""`
}

// New loads configuration from environment variables.
func New() (*Config, error) {
	cfg := &Config{}

	err := env.Parse(cfg)
	if err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	err = cfg.Dir.SetAbsPaths()
	if err != nil {
		return nil, fmt.Errorf("set absolute paths: %w", err)
	}

	err = cfg.DepManager.SetAbsPaths()
	if err != nil {
		return nil, fmt.Errorf("set dep manager absolute paths: %w", err)
	}

	cfg.Proxy.parseList()

	if cfg.Batch.Workers == 0 {
		cfg.Batch.Workers = DefaultWorkers()
	}

	err = cfg.Validate()
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

// DefaultWorkers returns min(10, NumCPU).
func DefaultWorkers() int {
	return min(maxDefaultWorkers, runtime.NumCPU())
}

// Validate checks the tunables that would otherwise break partitioning or naming.
func (c *Config) Validate() error {
	switch {
	case c.Batch.Size < 1:
		return fmt.Errorf("%w: batch size must be positive, got %d", errs.ErrInvalidConfig, c.Batch.Size)
	case c.Batch.Workers < 0:
		return fmt.Errorf("%w: workers must not be negative, got %d", errs.ErrInvalidConfig, c.Batch.Workers)
	case c.Batch.Delay < 0:
		return fmt.Errorf("%w: delay must not be negative, got %s", errs.ErrInvalidConfig, c.Batch.Delay)
	case strings.TrimSpace(c.Fetch.Ext) == "":
		return fmt.Errorf("%w: extension is empty", errs.ErrInvalidConfig)
	case strings.Count(c.Fetch.URLTemplate, "%s") != 1:
		return fmt.Errorf("%w: url template must contain exactly one %%s: %q",
			errs.ErrInvalidConfig, c.Fetch.URLTemplate)
	}

	return nil
}

// DepManager holds binary dependency management configuration.
type DepManager struct {
	// BinsDir is the directory where binaries are stored
	BinsDir string `env:"YTBATCH_DEPMANAGER_BINS_DIR" envDefault:"./bins"`
	// UseSystemBinaries indicates whether to use system-installed binaries or download them.
	UseSystemBinaries bool `env:"YTBATCH_DEPMANAGER_USE_SYSTEM_BINARIES" envDefault:"false"`

	// ffmpeg binary URLs per platform.
	FFmpegSHA256SumsURL string `env:"YTBATCH_DEPMANAGER_FFMPEG_SHA256SUMS_URL" envDefault:"https://github.com/BtbN/FFmpeg-Builds/releases/latest/download/checksums.sha256"`                        //nolint:lll
	FFmpegLinuxARM64    string `env:"YTBATCH_DEPMANAGER_FFMPEG_LINUX_ARM64" envDefault:"https://github.com/BtbN/FFmpeg-Builds/releases/latest/download/ffmpeg-master-latest-linuxarm64-gpl.tar.xz"` //nolint:lll
	FFmpegLinuxAMD64    string `env:"YTBATCH_DEPMANAGER_FFMPEG_LINUX_AMD64" envDefault:"https://github.com/BtbN/FFmpeg-Builds/releases/latest/download/ffmpeg-master-latest-linux64-gpl.tar.xz"`    //nolint:lll

	// yt-dlp binary URLs per platform.
	YTdlpSHA256SumsURL string `env:"YTBATCH_DEPMANAGER_YTDLP_SHA256SUMS_URL" envDefault:"https://github.com/yt-dlp/yt-dlp/releases/latest/download/SHA2-256SUMS"`      //nolint:lll
	YTdlpLinuxARM64    string `env:"YTBATCH_DEPMANAGER_YTDLP_LINUX_ARM64" envDefault:"https://github.com/yt-dlp/yt-dlp/releases/latest/download/yt-dlp_linux_aarch64"` //nolint:lll
	YTdlpLinuxAMD64    string `env:"YTBATCH_DEPMANAGER_YTDLP_LINUX_AMD64" envDefault:"https://github.com/yt-dlp/yt-dlp/releases/latest/download/yt-dlp_linux"`         //nolint:lll

	// deno binary URLs per platform, yt-dlp needs a JS runtime for YouTube challenges.
	DenoSHA256SumsURL string `env:"YTBATCH_DEPMANAGER_DENO_SHA256SUMS_URL" envDefault:"https://github.com/denoland/deno/releases/latest/download/deno-aarch64-unknown-linux-gnu.zip.sha256sum,https://github.com/denoland/deno/releases/latest/download/deno-x86_64-unknown-linux-gnu.zip.sha256sum"` //nolint:lll
	DenoLinuxARM64    string `env:"YTBATCH_DEPMANAGER_DENO_LINUX_ARM64" envDefault:"https://github.com/denoland/deno/releases/latest/download/deno-aarch64-unknown-linux-gnu.zip"`                                                                                                                    //nolint:lll
	DenoLinuxAMD64    string `env:"YTBATCH_DEPMANAGER_DENO_LINUX_AMD64" envDefault:"https://github.com/denoland/deno/releases/latest/download/deno-x86_64-unknown-linux-gnu.zip"`                                                                                                                     //nolint:lll
}

// SetAbsPaths converts the BinsDir path to an absolute path.
func (d *DepManager) SetAbsPaths() error {
	var err error
	if d.BinsDir, err = filepath.Abs(d.BinsDir); err != nil {
		return fmt.Errorf("bins dir: %w", err)
	}

	return nil
}

// Proxy holds proxy configuration for download requests.
type Proxy struct {
	// List is a comma-separated list of proxy URLs in socks5h format
	List string `env:"YTBATCH_PROXY_LIST" envDefault:""`
	// HealthCheckInterval is how often to check proxy health
	HealthCheckInterval time.Duration `env:"YTBATCH_PROXY_HEALTH_CHECK_INTERVAL" envDefault:"5m"`
	// FailureBackoff is the initial backoff duration for failed proxies
	FailureBackoff time.Duration `env:"YTBATCH_PROXY_FAILURE_BACKOFF" envDefault:"1m"`
	// MaxFailures is the maximum number of failures before a proxy is temporarily removed
	MaxFailures int `env:"YTBATCH_PROXY_MAX_FAILURES" envDefault:"3"`

	// Proxies is the parsed list of proxy URLs
	Proxies []string `env:"-"`
}

// parseList parses the comma-separated proxy list.
func (p *Proxy) parseList() {
	if p.List == "" {
		return
	}

	for proxy := range strings.SplitSeq(p.List, ",") {
		proxy = strings.TrimSpace(proxy)
		if proxy != "" {
			p.Proxies = append(p.Proxies, proxy)
		}
	}
}
