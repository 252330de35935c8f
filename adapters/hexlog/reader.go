package hexlog

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"gocoherence/domain/entropy"
	"gocoherence/internal"
)

// maxLineBytes fits a 1 MiB read encoded as hex plus its prefix.
const maxLineBytes = 4 << 20

// ReadStats describes one parsed log.
type ReadStats struct {
	Lines      int
	Skipped    int
	OutOfOrder int // reads whose timestamp precedes the previous read
}

// ReadStream parses every line of r. Malformed lines are skipped and counted, never fatal.
func ReadStream(r io.Reader) ([]entropy.Read, ReadStats, error) {
	var (
		reads []entropy.Read
		stats ReadStats
	)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for scanner.Scan() {
		stats.Lines++
		read, err := ParseLine(scanner.Text())
		if err != nil {
			stats.Skipped++
			continue
		}
		if n := len(reads); n > 0 && read.Timestamp.Before(reads[n-1].Timestamp) {
			stats.OutOfOrder++
		}
		reads = append(reads, read)
	}
	if err := scanner.Err(); err != nil {
		return nil, stats, fmt.Errorf("failed to scan log: %w", err)
	}
	return reads, stats, nil
}

// ReadFile parses a device log from disk.
func ReadFile(path string, logger *internal.Logger) ([]entropy.Read, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	reads, stats, err := ReadStream(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if stats.Skipped > 0 {
		logger.Debug("%s: skipped %d of %d lines", path, stats.Skipped, stats.Lines)
	}
	if stats.OutOfOrder > 0 {
		logger.Warn("%s: %d reads out of timestamp order", path, stats.OutOfOrder)
	}
	return reads, nil
}
