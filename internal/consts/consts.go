// Package consts defines application-wide constants.
package consts

import "time"

// DefaultProgressFreq is how often download progress is reported.
const DefaultProgressFreq = 500 * time.Millisecond

// Downloader identifiers.
const (
	// DownloaderYTdlp is the yt-dlp downloader identifier.
	DownloaderYTdlp = "ytdlp"
	// DownloaderNative is the pure Go downloader identifier.
	DownloaderNative = "native"
	// DownloaderMock is the mock downloader identifier for testing.
	DownloaderMock = "mock"
)

// Item outcome labels used in logs and metrics.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// Files.
const (
	// FilePermReadWrite is the permission for artifacts and the failure log.
	FilePermReadWrite = 0o644
	// DirPerm is the permission for the output directory.
	DirPerm = 0o755
)
