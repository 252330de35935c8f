package hexlog

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileSink appends lines to <dir>/<serial>.hex, one file per device.
type FileSink struct {
	dir   string
	mu    sync.Mutex
	files map[string]*os.File
}

// NewFileSink creates dir if needed.
func NewFileSink(dir string) (*FileSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", dir, err)
	}
	return &FileSink{dir: dir, files: make(map[string]*os.File)}, nil
}

// WriteLine appends line and a newline to the device's file.
func (s *FileSink) WriteLine(serial, line string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.files[serial]
	if !ok {
		var err error
		f, err = os.OpenFile(filepath.Join(s.dir, serial+Extension), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("failed to open log for %s: %w", serial, err)
		}
		s.files[serial] = f
	}
	if _, err := f.WriteString(line + "\n"); err != nil {
		return fmt.Errorf("failed to append to log for %s: %w", serial, err)
	}
	return nil
}

// Sizes returns the byte size of every device file written so far.
func (s *FileSink) Sizes() map[string]int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	sizes := make(map[string]int64, len(s.files))
	for serial, f := range s.files {
		if info, err := f.Stat(); err == nil {
			sizes[serial] = info.Size()
		}
	}
	return sizes
}

// Close closes every open file and returns the first error.
func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var first error
	for serial, f := range s.files {
		if err := f.Close(); err != nil && first == nil {
			first = fmt.Errorf("failed to close log for %s: %w", serial, err)
		}
		delete(s.files, serial)
	}
	return first
}
