// Package epoch defines the one-second time grid and the per-second score matrix built on it.
package epoch

import (
	"math"
	"time"

	"gocoherence/domain/core"
)

// Missing returns the marker stored in a cell with no observations.
func Missing() float64 { return math.NaN() }

// IsMissing reports whether v is the missing marker.
func IsMissing(v float64) bool { return math.IsNaN(v) }

// Axis is a contiguous sequence of one-second instants starting at Start.
type Axis struct {
	Start  time.Time
	Length int
}

// At returns the instant of bucket i.
func (a Axis) At(i int) time.Time {
	return a.Start.Add(time.Duration(i) * core.EpochWidth)
}

// Times materializes the whole axis.
func (a Axis) Times() []time.Time {
	times := make([]time.Time, a.Length)
	for i := range times {
		times[i] = a.At(i)
	}
	return times
}

// Index maps t to its bucket. ok is false when t falls outside [0, Length).
func (a Axis) Index(t time.Time) (int, bool) {
	idx, ok := core.SecondsBetween(a.Start, t)
	if !ok || idx >= a.Length {
		return 0, false
	}
	return idx, true
}

// End returns the instant of the last bucket.
func (a Axis) End() time.Time {
	if a.Length == 0 {
		return a.Start
	}
	return a.At(a.Length - 1)
}

// BucketTotals are one device's per-second bit accumulators.
type BucketTotals struct {
	Serial string
	Sums   []int64 // number of 1-bits per bucket
	Counts []int64 // number of bits per bucket
}

// Alignment is the output of the epoch aligner: the shared axis and per-device totals in serial order.
type Alignment struct {
	Axis    Axis
	Devices []BucketTotals
}

// ScoreMatrix is the T x N standardized-score matrix. Cells with no observations hold the missing marker.
type ScoreMatrix struct {
	Axis    Axis
	Serials []string
	columns [][]float64
}

// NewScoreMatrix builds a matrix from per-device columns, each of length axis.Length.
// The columns are owned by the matrix afterwards.
func NewScoreMatrix(axis Axis, serials []string, columns [][]float64) *ScoreMatrix {
	return &ScoreMatrix{Axis: axis, Serials: serials, columns: columns}
}

// Rows returns T.
func (m *ScoreMatrix) Rows() int { return m.Axis.Length }

// Cols returns N.
func (m *ScoreMatrix) Cols() int { return len(m.Serials) }

// At returns cell (t, d).
func (m *ScoreMatrix) At(t, d int) float64 { return m.columns[d][t] }

// Column returns a copy of device d's series.
func (m *ScoreMatrix) Column(d int) []float64 {
	out := make([]float64, len(m.columns[d]))
	copy(out, m.columns[d])
	return out
}

// Row returns a copy of bucket t across all devices.
func (m *ScoreMatrix) Row(t int) []float64 {
	out := make([]float64, len(m.columns))
	for d := range m.columns {
		out[d] = m.columns[d][t]
	}
	return out
}

// Present counts the non-missing cells of device d.
func (m *ScoreMatrix) Present(d int) int {
	n := 0
	for _, v := range m.columns[d] {
		if !IsMissing(v) {
			n++
		}
	}
	return n
}
