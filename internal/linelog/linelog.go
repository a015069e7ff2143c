// Package linelog provides a read-only, indexed view over the OCR line
// stream. The first pass consumes the lines in emission order; the
// recovery pass re-reads the full history of a single document by
// source ID without touching the streaming interface or re-running OCR.
package linelog

import (
	"fmt"
	"io"
	"os"

	"github.com/gocarina/gocsv"

	"fapiao/pkg/models"
)

// Log is an immutable index over a batch of OCR lines.
type Log struct {
	lines    []models.SourceLine
	bySource map[string][]string
	sources  []string
}

// New builds a Log from an already-materialized line slice. The slice
// order is preserved; it must match the original OCR emission order
// within each document.
func New(lines []models.SourceLine) *Log {
	l := &Log{
		lines:    lines,
		bySource: make(map[string][]string),
	}
	for _, line := range lines {
		if _, seen := l.bySource[line.Source]; !seen {
			l.sources = append(l.sources, line.Source)
		}
		l.bySource[line.Source] = append(l.bySource[line.Source], line.Text)
	}
	return l
}

// Load reads a line-log CSV file with "text,source" columns.
func Load(path string) (*Log, error) {
	const op = "Load"

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to open line log: %w", op, err)
	}
	defer f.Close()

	return Read(f)
}

// Read parses line-log CSV rows from r.
func Read(r io.Reader) (*Log, error) {
	const op = "Read"

	var lines []models.SourceLine
	if err := gocsv.Unmarshal(r, &lines); err != nil {
		return nil, fmt.Errorf("%s: failed to parse line log CSV: %w", op, err)
	}
	return New(lines), nil
}

// Write serializes lines as CSV with a header row.
func Write(w io.Writer, lines []models.SourceLine) error {
	const op = "Write"

	if err := gocsv.Marshal(&lines, w); err != nil {
		return fmt.Errorf("%s: failed to write line log CSV: %w", op, err)
	}
	return nil
}

// WriteFile writes lines to path, replacing any existing file.
func WriteFile(path string, lines []models.SourceLine) error {
	const op = "WriteFile"

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%s: failed to create line log: %w", op, err)
	}
	defer f.Close()

	if err := Write(f, lines); err != nil {
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%s: failed to flush line log: %w", op, err)
	}
	return nil
}

// Lines returns all lines in original order.
func (l *Log) Lines() []models.SourceLine {
	return l.lines
}

// TextsFor returns the full text history of one document, in emission
// order. Returns nil for an unknown source.
func (l *Log) TextsFor(sourceID string) []string {
	return l.bySource[sourceID]
}

// Sources returns the distinct source IDs in first-seen order.
func (l *Log) Sources() []string {
	out := make([]string, len(l.sources))
	copy(out, l.sources)
	return out
}

// Len returns the total number of lines.
func (l *Log) Len() int {
	return len(l.lines)
}
