// Package entropy holds the input data model: raw, timestamped reads from RNG devices.
package entropy

import (
	"sort"
	"time"
)

// Read is one physical read event from a device.
type Read struct {
	Timestamp time.Time
	Chunk     []byte
}

// StreamSet maps a device serial to its reads, in log-append order.
// Timestamps are non-decreasing within a device; there is no ordering across devices.
type StreamSet map[string][]Read

// Serials returns device serials in ascending order. This is the column order used by every analyzer.
func (s StreamSet) Serials() []string {
	serials := make([]string, 0, len(s))
	for serial := range s {
		serials = append(serials, serial)
	}
	sort.Strings(serials)
	return serials
}

// Span returns the first and last timestamps of a device stream.
func Span(reads []Read) (first, last time.Time, ok bool) {
	if len(reads) == 0 {
		return time.Time{}, time.Time{}, false
	}
	return reads[0].Timestamp, reads[len(reads)-1].Timestamp, true
}

// WalkPoint is the cumulative ±1 position of a device after one read.
type WalkPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Position  int64     `json:"position"`
}
