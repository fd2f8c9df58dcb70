// Package depmanager provides the external binaries the yt-dlp backend needs:
// yt-dlp itself, ffmpeg/ffprobe for merging streams and deno for YouTube's JS challenges.
// Binaries are either looked up in PATH or downloaded into BinsDir. Published
// checksums are used only to detect new releases between runs, not to verify downloads.
package depmanager

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"ytbatch/internal/config"
	"ytbatch/internal/errs"
	"ytbatch/internal/observability"
)

// BinaryName represents the name of a binary dependency.
type BinaryName string

// Binary dependency names.
const (
	BinaryYTdlp   BinaryName = "yt-dlp"
	BinaryFFmpeg  BinaryName = "ffmpeg"
	BinaryFFprobe BinaryName = "ffprobe"
	BinaryDeno    BinaryName = "deno"
)

// installOrder lists downloadable binaries; ffprobe ships inside the ffmpeg archive.
var installOrder = []BinaryName{BinaryFFmpeg, BinaryDeno, BinaryYTdlp}

const (
	platformLinux   = "linux"
	platformWindows = "windows"
	archARM64       = "arm64"
	archAMD64       = "amd64"
)

const (
	downloadTimeout      = 10 * time.Minute
	filePermExecutable   = 0o755
	filePermReadWrite    = 0o644
	sha256HexLength      = 64
	sha256SumsFieldCount = 2
	savedSumsFilename    = ".sha256sums.json"
)

// Platform represents the OS and architecture combination.
type Platform struct {
	OS   string
	Arch string
}

// String returns the platform string in format "os/arch".
func (p Platform) String() string {
	return p.OS + "/" + p.Arch
}

// Manager manages binary dependencies.
type Manager struct {
	log      *slog.Logger
	cfg      config.DepManager
	metrics  *observability.Metrics
	platform Platform
	client   *http.Client

	mu        sync.RWMutex
	shaSums   map[string]string     // filename -> sha256 hash (fetched from remote)
	savedSums map[string]string     // filename -> sha256 hash (saved from previous run)
	binPaths  map[BinaryName]string // binary name -> resolved path
}

// New creates a new dependency manager. Metrics may be nil.
func New(log *slog.Logger, cfg *config.Config, metrics *observability.Metrics) *Manager {
	return &Manager{
		log:     log.With(slog.String("package", "depmanager")),
		cfg:     cfg.DepManager,
		metrics: metrics,
		platform: Platform{
			OS:   runtime.GOOS,
			Arch: runtime.GOARCH,
		},
		client:    &http.Client{Timeout: downloadTimeout},
		shaSums:   make(map[string]string),
		savedSums: make(map[string]string),
		binPaths:  make(map[BinaryName]string),
	}
}

// Start resolves all binaries, either from PATH or by installing them into BinsDir.
func (m *Manager) Start(ctx context.Context) error {
	if m.cfg.UseSystemBinaries {
		return m.SetSystemBinaries()
	}

	return m.InstallAll(ctx)
}

// SetSystemBinaries looks every binary up in PATH. Only yt-dlp is mandatory.
func (m *Manager) SetSystemBinaries() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, binary := range []BinaryName{BinaryYTdlp, BinaryFFmpeg, BinaryFFprobe, BinaryDeno} {
		path, err := exec.LookPath(string(binary))
		if err != nil {
			if binary == BinaryYTdlp {
				return fmt.Errorf("%w: %s not in PATH: %w", errs.ErrBinaryNotFound, binary, err)
			}

			m.log.Warn("optional binary not in PATH", slog.String("binary", string(binary)))

			continue
		}

		m.binPaths[binary] = path
	}

	return nil
}

// InstallAll downloads missing binaries, then refreshes any whose published checksum
// changed since the previous run. A failed refresh keeps the existing binary.
func (m *Manager) InstallAll(ctx context.Context) error {
	log := m.log

	if err := os.MkdirAll(m.cfg.BinsDir, filePermExecutable); err != nil {
		return fmt.Errorf("create bins directory: %w", err)
	}

	if err := m.loadSavedSums(); err != nil {
		log.DebugContext(ctx, "no saved checksums found, first run", slog.Any("error", err))
	}

	for _, binary := range installOrder {
		if m.isBinaryExists(binary) {
			m.setBinaryPath(binary)
			log.DebugContext(ctx, "binary already exists", slog.String("binary", string(binary)))

			continue
		}

		if err := m.downloadAndInstall(ctx, binary); err != nil {
			return fmt.Errorf("download and install %s: %w", binary, err)
		}
	}

	if err := m.FetchSHASums(ctx); err != nil {
		log.WarnContext(ctx, "failed to fetch checksums", slog.Any("error", err))

		return nil
	}

	for _, binary := range m.findUpdates() {
		if err := m.downloadAndInstall(ctx, binary); err != nil {
			log.WarnContext(ctx, "refresh binary failed, keeping current",
				slog.String("binary", string(binary)), slog.Any("error", err))

			continue
		}

		log.InfoContext(ctx, "binary refreshed", slog.String("binary", string(binary)))
	}

	if err := m.saveSums(); err != nil {
		log.WarnContext(ctx, "failed to save checksums", slog.Any("error", err))
	}

	log.InfoContext(ctx, "binaries ready", slog.Any("binaries", m.binPathsSnapshot()))

	return nil
}

// GetBinaryPath returns where a binary lives inside BinsDir.
func (m *Manager) GetBinaryPath(name BinaryName) string {
	filename := string(name)
	if m.platform.OS == platformWindows {
		filename += ".exe"
	}

	return filepath.Join(m.cfg.BinsDir, filename)
}

// GetInstalledPath returns the resolved path for a binary, or empty if not available.
func (m *Manager) GetInstalledPath(name BinaryName) string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.binPaths[name]
}

// FetchSHASums fetches and parses SHA256 sums from configured URLs.
func (m *Manager) FetchSHASums(ctx context.Context) error {
	sumsURLs, err := m.CollectSHASumsURLs()
	if err != nil {
		return fmt.Errorf("collect SHA sums URLs: %w", err)
	}

	for _, url := range sumsURLs {
		body, err := m.get(ctx, url)
		if err != nil {
			return fmt.Errorf("fetch SHA sums: %w", err)
		}

		data, err := io.ReadAll(body)
		body.Close()

		if err != nil {
			return fmt.Errorf("read body: %w", err)
		}

		m.ParseSHASums(string(data))
	}

	return nil
}

// CollectSHASumsURLs collects SHA256 sums URLs from the configuration.
// A single setting may hold a comma-separated list.
func (m *Manager) CollectSHASumsURLs() ([]string, error) {
	var sumsURLs []string

	sources := []string{
		m.cfg.YTdlpSHA256SumsURL,
		m.cfg.FFmpegSHA256SumsURL,
		m.cfg.DenoSHA256SumsURL,
	}

	for _, raw := range sources {
		for part := range strings.SplitSeq(raw, ",") {
			part = strings.TrimSpace(part)
			if part != "" {
				sumsURLs = append(sumsURLs, part)
			}
		}
	}

	if len(sumsURLs) == 0 {
		return nil, fmt.Errorf("no SHA256 sums URLs configured")
	}

	return sumsURLs, nil
}

// ParseSHASums parses lines in the format "hash  filename", skipping anything else.
func (m *Manager) ParseSHASums(content string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for line := range strings.SplitSeq(content, "\n") {
		parts := strings.Fields(line)
		if len(parts) != sha256SumsFieldCount || len(parts[0]) != sha256HexLength {
			continue
		}

		m.shaSums[strings.TrimPrefix(parts[1], "*")] = parts[0]
	}

	m.log.Debug("parsed SHA256 sums", slog.Int("count", len(m.shaSums)))
}

// findUpdates returns binaries whose fetched checksum differs from the saved one.
func (m *Manager) findUpdates() []BinaryName {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var updates []BinaryName

	for _, binary := range installOrder {
		filename := m.getDownloadFilename(binary)

		newHash, hasNew := m.shaSums[filename]
		oldHash, hasOld := m.savedSums[filename]

		// a missing saved hash only means the binary predates checksum tracking
		if hasNew && hasOld && newHash != oldHash {
			updates = append(updates, binary)
		}
	}

	return updates
}

func (m *Manager) isBinaryExists(name BinaryName) bool {
	info, err := os.Stat(m.GetBinaryPath(name))

	return err == nil && info.Size() > 0
}

func (m *Manager) setBinaryPath(name BinaryName) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.binPaths[name] = m.GetBinaryPath(name)

	if name == BinaryFFmpeg {
		m.binPaths[BinaryFFprobe] = m.GetBinaryPath(BinaryFFprobe)
	}
}

func (m *Manager) binPathsSnapshot() map[BinaryName]string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return maps.Clone(m.binPaths)
}

func (m *Manager) downloadAndInstall(ctx context.Context, name BinaryName) error {
	log := m.log.With(slog.String("binary", string(name)))

	url := m.getBinaryURL(name)
	if url == "" {
		return fmt.Errorf("%w: no download URL for %s on %s", errs.ErrUnsupportedPlatform, name, m.platform)
	}

	log.InfoContext(ctx, "downloading binary", slog.String("url", url))

	installed, err := m.downloadDependency(ctx, url, name)
	if err != nil {
		return fmt.Errorf("download dependency: %w", err)
	}

	for _, path := range installed {
		if err := os.Chmod(path, filePermExecutable); err != nil {
			return fmt.Errorf("chmod: %w", err)
		}
	}

	m.setBinaryPath(name)

	if m.metrics != nil {
		m.metrics.RecordBinaryInstall(string(name))
	}

	log.InfoContext(ctx, "binary installed", slog.Any("paths", installed))

	return nil
}

func (m *Manager) loadSavedSums() error {
	data, err := os.ReadFile(filepath.Join(m.cfg.BinsDir, savedSumsFilename))
	if err != nil {
		return fmt.Errorf("read checksums file: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := json.Unmarshal(data, &m.savedSums); err != nil {
		return fmt.Errorf("unmarshal checksums: %w", err)
	}

	return nil
}

func (m *Manager) saveSums() error {
	m.mu.RLock()
	data, err := json.MarshalIndent(m.shaSums, "", "  ")
	m.mu.RUnlock()

	if err != nil {
		return fmt.Errorf("marshal checksums: %w", err)
	}

	if err := os.WriteFile(filepath.Join(m.cfg.BinsDir, savedSumsFilename), data, filePermReadWrite); err != nil {
		return fmt.Errorf("write checksums file: %w", err)
	}

	m.mu.Lock()
	m.savedSums = maps.Clone(m.shaSums)
	m.mu.Unlock()

	return nil
}

// getDownloadFilename returns the filename as it appears in the checksum lists.
func (m *Manager) getDownloadFilename(name BinaryName) string {
	arm := m.platform.OS == platformLinux && m.platform.Arch == archARM64
	amd := m.platform.OS == platformLinux && m.platform.Arch == archAMD64

	switch name {
	case BinaryYTdlp:
		switch {
		case arm:
			return "yt-dlp_linux_aarch64"
		case m.platform.OS == platformLinux:
			return "yt-dlp_linux"
		}
	case BinaryFFmpeg, BinaryFFprobe:
		switch {
		case arm:
			return "ffmpeg-master-latest-linuxarm64-gpl.tar.xz"
		case m.platform.OS == platformLinux:
			return "ffmpeg-master-latest-linux64-gpl.tar.xz"
		}
	case BinaryDeno:
		switch {
		case arm:
			return "deno-aarch64-unknown-linux-gnu.zip"
		case amd:
			return "deno-x86_64-unknown-linux-gnu.zip"
		}
	}

	return string(name)
}

func (m *Manager) getBinaryURL(name BinaryName) string {
	cfg := m.cfg

	switch name {
	case BinaryYTdlp:
		return m.selectURL(cfg.YTdlpLinuxARM64, cfg.YTdlpLinuxAMD64)
	case BinaryFFmpeg, BinaryFFprobe:
		return m.selectURL(cfg.FFmpegLinuxARM64, cfg.FFmpegLinuxAMD64)
	case BinaryDeno:
		return m.selectURL(cfg.DenoLinuxARM64, cfg.DenoLinuxAMD64)
	}

	return ""
}

// selectURL picks the arm64 URL on linux/arm64 and the amd64 URL everywhere else.
func (m *Manager) selectURL(linuxARM64, linuxAMD64 string) string {
	if m.platform.OS == platformLinux && m.platform.Arch == archARM64 && linuxARM64 != "" {
		return linuxARM64
	}

	return linuxAMD64
}

func (m *Manager) get(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", url, err)
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()

		return nil, fmt.Errorf("get %s: unexpected status: %d", url, resp.StatusCode)
	}

	return resp.Body, nil
}

// downloadDependency fetches url into BinsDir, extracting archives. Returns installed paths.
func (m *Manager) downloadDependency(ctx context.Context, url string, name BinaryName) ([]string, error) {
	binPath := m.GetBinaryPath(name)
	destDir := filepath.Dir(binPath)

	body, err := m.get(ctx, url)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	tmpFile, err := os.CreateTemp(destDir, "download-*")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}

	tmpPath := tmpFile.Name()

	defer func() {
		tmpFile.Close()
		os.Remove(tmpPath)
	}()

	if _, err := io.Copy(tmpFile, body); err != nil {
		return nil, fmt.Errorf("write file: %w", err)
	}

	if err := tmpFile.Close(); err != nil {
		return nil, fmt.Errorf("close temp file: %w", err)
	}

	kind := archiveKindOf(url)
	if kind == archiveNone {
		if err := os.Rename(tmpPath, binPath); err != nil {
			return nil, fmt.Errorf("rename: %w", err)
		}

		return []string{binPath}, nil
	}

	targets := filesNeeded(name)

	if err := extractFiles(kind, tmpPath, destDir, targets); err != nil {
		return nil, fmt.Errorf("extract: %w", err)
	}

	installed := make([]string, 0, len(targets))
	for target := range targets {
		installed = append(installed, filepath.Join(destDir, target))
	}

	return installed, nil
}

// filesNeeded returns the set of files needed from an archive for a given binary.
func filesNeeded(name BinaryName) map[string]struct{} {
	switch name {
	case BinaryFFmpeg, BinaryFFprobe:
		return map[string]struct{}{"ffmpeg": {}, "ffprobe": {}}
	default:
		return map[string]struct{}{string(name): {}}
	}
}
