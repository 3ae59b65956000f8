package parse

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/Zuo-Peng/ai-session-viewer/internal/model"
)

// eachLine calls fn for every non-blank line of r together with its 1-based
// line number. Unlike bufio.Scanner there is no line length limit, so one
// oversized tool output never cuts a session short. fn returns false to stop.
func eachLine(r io.Reader, fn func(lineNo int, line []byte) bool) error {
	br := bufio.NewReaderSize(r, 64*1024)
	lineNo := 0
	for {
		raw, err := br.ReadBytes('\n')
		if len(raw) > 0 {
			lineNo++
			line := bytes.TrimSpace(raw)
			if len(line) > 0 && !fn(lineNo, line) {
				return nil
			}
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// openSession opens a session file, mapping a missing file to model.ErrNotFound.
func openSession(path string) (*os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("session file %s: %w", path, model.ErrNotFound)
		}
		return nil, fmt.Errorf("open session file %s: %w: %v", path, model.ErrMalformed, err)
	}
	return f, nil
}

// ParseTimestamp accepts the timestamp shapes both CLIs write.
func ParseTimestamp(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	// try RFC3339
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	// try RFC3339Nano
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t
	}
	// try ISO8601 without timezone
	if t, err := time.Parse("2006-01-02T15:04:05", s); err == nil {
		return t
	}
	return time.Time{}
}
