package senses

import (
	"gocoherence/domain/epoch"
	"gocoherence/domain/stats"
)

// CorrelationMatrix computes the pairwise Pearson correlation of the score matrix
// columns over buckets where both devices are present. Cells with fewer than
// stats.MinCorrelationOverlap co-present buckets, or a constant column, are NaN.
// Only the upper triangle is computed; the lower triangle is its mirror.
func CorrelationMatrix(m *epoch.ScoreMatrix) *stats.CorrelationMatrix {
	n := m.Cols()
	result := &stats.CorrelationMatrix{
		Serials: append([]string(nil), m.Serials...),
		Values:  make([][]float64, n),
		Overlap: make([][]int, n),
	}
	for i := range result.Values {
		result.Values[i] = make([]float64, n)
		result.Overlap[i] = make([]int, n)
	}

	columns := make([][]float64, n)
	for d := range columns {
		columns[d] = m.Column(d)
	}

	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			x, y := coPresent(columns[i], columns[j])
			r := epoch.Missing()
			if len(x) >= stats.MinCorrelationOverlap {
				if v, ok := Pearson(x, y); ok {
					r = v
					if i == j {
						r = 1
					}
				}
			}
			result.Values[i][j], result.Values[j][i] = r, r
			result.Overlap[i][j], result.Overlap[j][i] = len(x), len(x)
		}
	}

	return result
}

// coPresent returns the aligned values of a and b at indices where both are present.
func coPresent(a, b []float64) ([]float64, []float64) {
	x := make([]float64, 0, len(a))
	y := make([]float64, 0, len(a))
	for t := range a {
		if epoch.IsMissing(a[t]) || epoch.IsMissing(b[t]) {
			continue
		}
		x = append(x, a[t])
		y = append(y, b[t])
	}
	return x, y
}
