// Package entity defines the core entities used in the application.
package entity

import (
	"log/slog"
	"time"
)

// Identifier is an opaque token naming one remote media item.
type Identifier string

// String returns the identifier as a plain string.
func (id Identifier) String() string { return string(id) }

// Batch is a contiguous, ordered slice of the input identifiers.
type Batch struct {
	Index int          `json:"index"`
	IDs   []Identifier `json:"ids"`
}

// LogValue implements the slog.LogValuer interface for structured logging.
func (b Batch) LogValue() slog.Value {
	var first, last string
	if len(b.IDs) > 0 {
		first = b.IDs[0].String()
		last = b.IDs[len(b.IDs)-1].String()
	}

	return slog.GroupValue(
		slog.Int("index", b.Index),
		slog.Int("size", len(b.IDs)),
		slog.String("first", first),
		slog.String("last", last),
	)
}

// Artifact is a media file written for one identifier.
type Artifact struct {
	ID     Identifier `json:"id"`
	Path   string     `json:"path"`
	Size   int64      `json:"size"`
	Title  string     `json:"title,omitempty"`
	Height int        `json:"height,omitempty"`
}

// LogValue implements the slog.LogValuer interface for structured logging.
func (a Artifact) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("id", a.ID.String()),
		slog.String("path", a.Path),
		slog.Int64("size", a.Size),
		slog.String("title", a.Title),
		slog.Int("height", a.Height),
	)
}

// Result is the outcome of one fetch attempt. Err is nil on success.
type Result struct {
	ID       Identifier
	Artifact *Artifact
	Err      error
	Duration time.Duration
}

// OK reports whether the fetch produced an artifact.
func (r Result) OK() bool {
	return r.Err == nil && r.Artifact != nil
}

// LogValue implements the slog.LogValuer interface for structured logging.
func (r Result) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.String("id", r.ID.String()),
		slog.Bool("ok", r.OK()),
		slog.Duration("duration", r.Duration),
	}

	if r.Artifact != nil {
		attrs = append(attrs, slog.String("path", r.Artifact.Path))
	}

	if r.Err != nil {
		attrs = append(attrs, slog.String("error", r.Err.Error()))
	}

	return slog.GroupValue(attrs...)
}

// BatchReport counts the outcomes of one batch.
type BatchReport struct {
	Index     int `json:"index"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"` // not attempted because the run was cancelled
}

// LogValue implements the slog.LogValuer interface for structured logging.
func (r BatchReport) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("index", r.Index),
		slog.Int("succeeded", r.Succeeded),
		slog.Int("failed", r.Failed),
		slog.Int("skipped", r.Skipped),
	)
}

// Summary aggregates a whole run.
type Summary struct {
	RunID     string        `json:"runId"`
	Total     int           `json:"total"`
	Batches   int           `json:"batches"`
	Workers   int           `json:"workers"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Skipped   int           `json:"skipped"`
	Duration  time.Duration `json:"duration"`
}

// Add folds a batch report into the summary.
func (s *Summary) Add(r BatchReport) {
	s.Succeeded += r.Succeeded
	s.Failed += r.Failed
	s.Skipped += r.Skipped
}

// LogValue implements the slog.LogValuer interface for structured logging.
func (s Summary) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("run_id", s.RunID),
		slog.Int("total", s.Total),
		slog.Int("batches", s.Batches),
		slog.Int("workers", s.Workers),
		slog.Int("succeeded", s.Succeeded),
		slog.Int("failed", s.Failed),
		slog.Int("skipped", s.Skipped),
		slog.Duration("duration", s.Duration),
	)
}
