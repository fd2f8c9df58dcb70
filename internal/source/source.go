// Package source reads the identifier list that drives a run.
package source

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"ytbatch/internal/entity"
	"ytbatch/internal/errs"
)

const (
	bom         = "\ufeff"
	maxLineSize = 1024 * 1024 // 1 MiB scanner buffer
	bufSize     = 4096
)

// Read loads identifiers from the file at path.
// Any failure to open or read the file wraps errs.ErrInputUnreadable.
func Read(path string) ([]entity.Identifier, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrInputUnreadable, err)
	}
	defer file.Close()

	ids, err := Parse(file)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", errs.ErrInputUnreadable, path, err)
	}

	return ids, nil
}

// Parse returns one identifier per non-blank line of r, trimmed and in input order.
func Parse(r io.Reader) ([]entity.Identifier, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, bufSize), maxLineSize)

	var (
		ids    []entity.Identifier
		lineNo int
	)

	for scanner.Scan() {
		lineNo++

		line := scanner.Text()
		if lineNo == 1 {
			line = strings.TrimPrefix(line, bom)
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		ids = append(ids, entity.Identifier(line))
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan line %d: %w", lineNo+1, err)
	}

	return ids, nil
}
