package labels

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Set accumulates label lines per frame. Lines for a frame keep the order
// in which they were added.
type Set struct {
	lines map[int][]string
}

// NewSet creates an empty label set.
func NewSet() *Set {
	return &Set{lines: make(map[int][]string)}
}

// Add appends a line to a frame.
func (s *Set) Add(frame int, line string) {
	s.lines[frame] = append(s.lines[frame], line)
}

// Lines returns the lines recorded for a frame.
func (s *Set) Lines(frame int) []string {
	return s.lines[frame]
}

// Len returns the number of frames with at least one line.
func (s *Set) Len() int {
	return len(s.lines)
}

// Frames returns the frames with at least one line in ascending order.
func (s *Set) Frames() []int {
	frames := make([]int, 0, len(s.lines))
	for f := range s.lines {
		frames = append(frames, f)
	}
	sort.Ints(frames)
	return frames
}

// WriteFile writes the lines of one frame into dir, joined by newlines with
// no trailing newline, replacing any existing file. It returns the path written.
func (s *Set) WriteFile(dir string, frame int) (string, error) {
	path := filepath.Join(dir, FileName(frame))
	data := strings.Join(s.lines[frame], "\n")
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		return "", fmt.Errorf("failed to write label file: %w", err)
	}
	return path, nil
}

// WriteAll creates dir if needed and writes one file per frame in ascending
// frame order. A failed write does not stop the remaining frames; all
// failures are joined into the returned error. The written paths are
// returned in frame order.
func (s *Set) WriteAll(dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory '%s': %w", dir, err)
	}

	var written []string
	var errs []error
	for _, frame := range s.Frames() {
		path, err := s.WriteFile(dir, frame)
		if err != nil {
			errs = append(errs, fmt.Errorf("frame %d: %w", frame, err))
			continue
		}
		written = append(written, path)
	}
	return written, errors.Join(errs...)
}

// ReadFile parses every non-blank line of a label file.
func ReadFile(path string) ([]Label, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open label file: %w", err)
	}
	defer f.Close()

	var out []Label
	scanner := bufio.NewScanner(f)
	// Long polylines produce long lines.
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		l, err := ParseLine(text)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, lineNo, err)
		}
		out = append(out, l)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read label file: %w", err)
	}
	return out, nil
}
