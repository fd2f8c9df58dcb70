package downloader

import (
	"fmt"
	"log/slog"
	"strings"

	"ytbatch/pkg/calc"
	"ytbatch/pkg/shellquote"

	"github.com/lrstanley/go-ytdlp"
)

// Result wraps ytdlp.Result for custom logging.
type Result struct {
	*ytdlp.Result
}

// LogValue implements the slog.LogValuer interface for custom logging of Result.
// The command attribute can be pasted into a shell to reproduce a failed item.
func (r Result) LogValue() slog.Value {
	if r.Result == nil {
		return slog.GroupValue(slog.String("error", "nil result"))
	}

	var outputLogs strings.Builder
	for _, line := range r.OutputLogs {
		fmt.Fprintf(&outputLogs, "%s\n", line)
	}

	return slog.GroupValue(
		slog.String("command", shellquote.Join(r.Executable, r.Args)),
		slog.String("stdout", r.Stdout),
		slog.String("stderr", r.Stderr),
		slog.String("output_logs", outputLogs.String()),
	)
}

// ProgressUpdate wraps ytdlp.ProgressUpdate for custom logging.
type ProgressUpdate struct {
	*ytdlp.ProgressUpdate
}

// LogValue implements the slog.LogValuer interface for custom logging of ProgressUpdate.
func (p ProgressUpdate) LogValue() slog.Value {
	if p.ProgressUpdate == nil {
		return slog.GroupValue(slog.String("error", "nil progress update"))
	}

	return slog.GroupValue(
		slog.String("filename", p.Filename),
		slog.String("status", fmt.Sprintf("%v", p.Status)),
		slog.Int("downloaded_bytes", p.DownloadedBytes),
		slog.Int("total_bytes", p.TotalBytes),
		slog.Int("fragment_index", p.FragmentIndex),
		slog.Int("fragment_count", p.FragmentCount),
		slog.Int("progress", calc.Progress(p.DownloadedBytes, p.TotalBytes)),
		slog.String("eta", calc.ETA(p.DownloadedBytes, p.TotalBytes, p.Started).String()),
	)
}

// ResultJSON is the subset of yt-dlp's --print-json line the backend reads.
type ResultJSON struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Ext        string  `json:"ext"`
	Height     float64 `json:"height"`
	WebpageURL string  `json:"webpage_url"`
	Extractor  string  `json:"extractor"`
	Filename   string  `json:"filename"`
}
