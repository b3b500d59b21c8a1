// Package jobs implements the periodically-triggered maintenance jobs:
// heartbeat, low-stock reconciliation and order reminders. Each job is a
// one-shot Run; scheduling belongs to the external scheduler.
package jobs

import (
	"fmt"
	"os"
)

// Sink is an append-only line sink for job outcomes. Appends must never
// truncate prior content.
type Sink interface {
	Append(line string) error
}

// FileSink appends lines to a single file, creating it on first write.
type FileSink struct {
	path string
}

// NewFileSink creates a sink appending to the given file path.
func NewFileSink(path string) *FileSink {
	return &FileSink{path: path}
}

// Append writes one line to the end of the file.
func (s *FileSink) Append(line string) error {
	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open log sink %s: %w", s.path, err)
	}
	defer func() { _ = f.Close() }()

	if _, err := f.WriteString(line + "\n"); err != nil {
		return fmt.Errorf("failed to append to log sink %s: %w", s.path, err)
	}
	return nil
}
