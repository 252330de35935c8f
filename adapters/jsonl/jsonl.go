// Package jsonl reads device recordings stored as JSON lines, one read per line:
//
//	{"ts": "2026-02-15T07:30:01.729037Z", "elapsed_ms": 87.4, "hex": "3fa09c..."}
//
// "timestamp" and "time" are accepted for ts, "data" and "bytes" for hex. A numeric ts
// is taken as Unix seconds.
package jsonl

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"github.com/tidwall/gjson"

	"gocoherence/adapters/hexlog"
	"gocoherence/domain/core"
	"gocoherence/domain/entropy"
	"gocoherence/internal"
)

// Extension is the file suffix of a JSON-lines device log.
const Extension = ".jsonl"

const maxLineBytes = 4 << 20

var (
	timestampFields = []string{"ts", "timestamp", "time"}
	payloadFields   = []string{"hex", "data", "bytes"}
)

// ParseLine decodes one JSON record. Errors wrap core.ErrMalformedRecord.
func ParseLine(line []byte) (entropy.Read, error) {
	if !gjson.ValidBytes(line) {
		return entropy.Read{}, fmt.Errorf("%w: invalid json", core.ErrMalformedRecord)
	}
	record := gjson.ParseBytes(line)
	if !record.IsObject() {
		return entropy.Read{}, fmt.Errorf("%w: record is not an object", core.ErrMalformedRecord)
	}

	stamp := firstOf(record, timestampFields)
	if !stamp.Exists() {
		return entropy.Read{}, fmt.Errorf("%w: no timestamp field", core.ErrMalformedRecord)
	}
	ts, err := parseTimestamp(stamp)
	if err != nil {
		return entropy.Read{}, fmt.Errorf("%w: %v", core.ErrMalformedRecord, err)
	}

	payload := firstOf(record, payloadFields)
	if payload.Type != gjson.String || payload.String() == "" {
		return entropy.Read{}, fmt.Errorf("%w: no hex payload", core.ErrMalformedRecord)
	}
	chunk, err := hex.DecodeString(payload.String())
	if err != nil {
		return entropy.Read{}, fmt.Errorf("%w: payload: %v", core.ErrMalformedRecord, err)
	}

	return entropy.Read{Timestamp: ts, Chunk: chunk}, nil
}

func firstOf(record gjson.Result, fields []string) gjson.Result {
	for _, field := range fields {
		if v := record.Get(field); v.Exists() {
			return v
		}
	}
	return gjson.Result{}
}

func parseTimestamp(v gjson.Result) (time.Time, error) {
	switch v.Type {
	case gjson.String:
		ts, err := time.Parse(time.RFC3339Nano, v.String())
		if err != nil {
			return time.Time{}, fmt.Errorf("timestamp: %v", err)
		}
		return ts.UTC(), nil
	case gjson.Number:
		sec, frac := math.Modf(v.Float())
		return time.Unix(int64(sec), int64(math.Round(frac*1e9))).UTC(), nil
	default:
		return time.Time{}, fmt.Errorf("timestamp has type %s", v.Type)
	}
}

// ReadStream parses every line of r, skipping malformed records.
func ReadStream(r io.Reader) ([]entropy.Read, hexlog.ReadStats, error) {
	var (
		reads []entropy.Read
		stats hexlog.ReadStats
	)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		stats.Lines++
		read, err := ParseLine(line)
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

// ReadFile parses a JSON-lines device log from disk.
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
		logger.Debug("%s: skipped %d of %d records", path, stats.Skipped, stats.Lines)
	}
	if stats.OutOfOrder > 0 {
		logger.Warn("%s: %d reads out of timestamp order", path, stats.OutOfOrder)
	}
	return reads, nil
}

// NewDirectorySource loads every <serial>.jsonl file in dir.
func NewDirectorySource(dir string, workers int, logger *internal.Logger) *hexlog.DirectorySource {
	return hexlog.NewDirectorySourceWith(dir, Extension, workers, logger, ReadFile)
}
