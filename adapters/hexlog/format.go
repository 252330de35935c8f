// Package hexlog reads and writes the per-device recording format, one read per line:
//
//	[2026-02-15T07:30:01.729037Z] [87.4ms] 3fa09c...
//
// The elapsed-time field is optional.
package hexlog

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"gocoherence/domain/core"
	"gocoherence/domain/entropy"
)

// TimestampLayout is the UTC, microsecond-precision timestamp written by FormatLine.
const TimestampLayout = "2006-01-02T15:04:05.000000Z"

// Extension is the file suffix of a device log; the base name is the device serial.
const Extension = ".hex"

var (
	errNoBracket = errors.New("line does not start with '['")
	errNoFields  = errors.New("missing timestamp or payload")
	errEmptyHex  = errors.New("empty payload")
)

// ParseLine decodes one log line. Errors wrap core.ErrMalformedRecord.
func ParseLine(line string) (entropy.Read, error) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "[") {
		return entropy.Read{}, fmt.Errorf("%w: %v", core.ErrMalformedRecord, errNoBracket)
	}

	parts := strings.Split(line, "] ")
	if len(parts) < 2 {
		return entropy.Read{}, fmt.Errorf("%w: %v", core.ErrMalformedRecord, errNoFields)
	}
	stamp := strings.TrimPrefix(parts[0], "[")
	payload := parts[len(parts)-1]
	if len(parts) >= 3 {
		payload = parts[2]
	}
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return entropy.Read{}, fmt.Errorf("%w: %v", core.ErrMalformedRecord, errEmptyHex)
	}

	ts, err := time.Parse(time.RFC3339Nano, stamp)
	if err != nil {
		return entropy.Read{}, fmt.Errorf("%w: timestamp: %v", core.ErrMalformedRecord, err)
	}
	chunk, err := hex.DecodeString(payload)
	if err != nil {
		return entropy.Read{}, fmt.Errorf("%w: payload: %v", core.ErrMalformedRecord, err)
	}

	return entropy.Read{Timestamp: ts.UTC(), Chunk: chunk}, nil
}

// FormatLine renders a read with the time the device took to deliver it.
func FormatLine(ts time.Time, elapsed time.Duration, chunk []byte) string {
	ms := float64(elapsed) / float64(time.Millisecond)
	return fmt.Sprintf("[%s] [%.1fms] %s", ts.UTC().Format(TimestampLayout), ms, hex.EncodeToString(chunk))
}
