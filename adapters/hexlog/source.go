package hexlog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"gocoherence/domain/core"
	"gocoherence/domain/entropy"
	"gocoherence/internal"
)

// DirectorySource loads every <serial>.hex file in a directory.
type DirectorySource struct {
	dir     string
	ext     string
	workers int
	logger  *internal.Logger
	parse   func(path string, logger *internal.Logger) ([]entropy.Read, error)
}

// NewDirectorySource creates a source over dir. workers bounds concurrent file parsing;
// <= 0 parses all files at once.
func NewDirectorySource(dir string, workers int, logger *internal.Logger) *DirectorySource {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &DirectorySource{
		dir:     dir,
		ext:     Extension,
		workers: workers,
		logger:  logger.With("hexlog"),
		parse:   ReadFile,
	}
}

// NewDirectorySourceWith uses a custom file extension and parser. Other recording
// formats plug in here.
func NewDirectorySourceWith(dir, ext string, workers int, logger *internal.Logger, parse func(string, *internal.Logger) ([]entropy.Read, error)) *DirectorySource {
	src := NewDirectorySource(dir, workers, logger)
	src.ext = ext
	src.parse = parse
	return src
}

// Describe returns the directory path.
func (s *DirectorySource) Describe() string { return s.dir }

// Load parses all device files. Files that yield no reads are left out of the set.
func (s *DirectorySource) Load(ctx context.Context) (entropy.StreamSet, error) {
	paths, err := filepath.Glob(filepath.Join(s.dir, "*"+s.ext))
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", s.dir, err)
	}
	if len(paths) == 0 {
		if _, statErr := os.Stat(s.dir); statErr != nil {
			return nil, fmt.Errorf("data directory: %w", statErr)
		}
	}
	sort.Strings(paths)

	var mu sync.Mutex
	streams := make(entropy.StreamSet, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	if s.workers > 0 {
		g.SetLimit(s.workers)
	}
	for _, path := range paths {
		path := path
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			reads, err := s.parse(path, s.logger)
			if err != nil {
				return err
			}
			key, err := core.ParseDeviceKey(strings.TrimSuffix(filepath.Base(path), s.ext))
			if err != nil {
				s.logger.Warn("%s: %v, file skipped", path, err)
				return nil
			}
			serial := key.String()
			if len(reads) == 0 {
				s.logger.Warn("%s: no readable lines, device skipped", serial)
				return nil
			}
			first, last, _ := entropy.Span(reads)
			s.logger.Info("%s: %d reads, %s - %s", serial, len(reads), first.Format("15:04:05"), last.Format("15:04:05"))

			mu.Lock()
			streams[serial] = reads
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return streams, nil
}
