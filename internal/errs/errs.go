// Package errs defines common error variables used across the application.
package errs

import "errors"

// Run errors.
var (
	// ErrInvalidConfig indicates that a configuration value is out of range.
	ErrInvalidConfig = errors.New("invalid config")
	// ErrInputUnreadable indicates that the identifier list cannot be read. It aborts the run.
	ErrInputUnreadable = errors.New("input file unreadable")
	// ErrOutputDir indicates that the output directory cannot be created.
	ErrOutputDir = errors.New("output directory unavailable")
	// ErrFailureLog indicates that the failure log cannot be reset or written.
	ErrFailureLog = errors.New("failure log unavailable")
)

// Downloader errors.
var (
	// ErrDownloadFailed indicates that the download failed.
	ErrDownloadFailed = errors.New("download failed")
	// ErrDownloaderNotFound indicates that no suitable downloader was found.
	ErrDownloaderNotFound = errors.New("no suitable downloader found")
	// ErrArtifactMissing indicates that the downloader reported success but no file was written.
	ErrArtifactMissing = errors.New("artifact missing after download")
	// ErrEmptyIdentifier indicates that a blank identifier reached the fetcher.
	ErrEmptyIdentifier = errors.New("identifier is empty")
	// ErrInvalidIdentifier indicates that an identifier cannot be used as a file name.
	ErrInvalidIdentifier = errors.New("identifier is not a valid file name")
	// ErrBinaryNotFound indicates that the required binary was not found.
	ErrBinaryNotFound = errors.New("binary not found")
	// ErrUnsupportedPlatform indicates that the current platform is not supported.
	ErrUnsupportedPlatform = errors.New("unsupported platform")
)

// Proxy errors.
var (
	// ErrNoProxiesAvailable indicates that no proxies are available.
	ErrNoProxiesAvailable = errors.New("no proxies available")
	// ErrProxyFailed indicates that the proxy request failed.
	ErrProxyFailed = errors.New("proxy failed")
)
