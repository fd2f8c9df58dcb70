// Package failurelog records identifiers whose fetch failed, one per line.
//
// The log is removed at the start of a run and appended to afterwards.
// Every Append is a single write on an O_APPEND descriptor, so a line is
// either fully present or absent even if the process is killed mid-run.
package failurelog

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"ytbatch/internal/consts"
	"ytbatch/internal/entity"
	"ytbatch/internal/errs"
)

// Log is an append-only failure record safe for concurrent use.
type Log struct {
	path string

	mu   sync.Mutex
	file *os.File
}

// New returns a log writing to path. The file is created on the first Append.
func New(path string) *Log {
	return &Log{path: path}
}

// Path returns the log file location.
func (l *Log) Path() string { return l.path }

// Reset closes any open handle and removes the log file. A missing file is not an error.
func (l *Log) Reset() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.closeLocked(); err != nil {
		return err
	}

	err := os.Remove(l.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: remove %s: %w", errs.ErrFailureLog, l.path, err)
	}

	return nil
}

// Append writes id followed by a newline.
func (l *Log) Append(id entity.Identifier) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		file, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, consts.FilePermReadWrite)
		if err != nil {
			return fmt.Errorf("%w: open %s: %w", errs.ErrFailureLog, l.path, err)
		}

		l.file = file
	}

	if _, err := l.file.Write([]byte(id.String() + "\n")); err != nil {
		return fmt.Errorf("%w: append %q: %w", errs.ErrFailureLog, id, err)
	}

	return nil
}

// Close releases the file handle. The log may be appended to again afterwards.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.closeLocked()
}

func (l *Log) closeLocked() error {
	if l.file == nil {
		return nil
	}

	err := l.file.Close()
	l.file = nil

	if err != nil {
		return fmt.Errorf("%w: close: %w", errs.ErrFailureLog, err)
	}

	return nil
}
