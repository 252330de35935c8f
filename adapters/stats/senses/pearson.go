package senses

import (
	"gonum.org/v1/gonum/stat"
)

// Pearson returns the Pearson correlation of x and y. ok is false when the series
// differ in length, have fewer than two points, or either has zero variance; in those
// cases the coefficient is undefined and no division is attempted.
func Pearson(x, y []float64) (float64, bool) {
	if len(x) != len(y) || len(x) < 2 {
		return 0, false
	}
	if _, vx := stat.MeanVariance(x, nil); !(vx > 0) {
		return 0, false
	}
	if _, vy := stat.MeanVariance(y, nil); !(vy > 0) {
		return 0, false
	}
	return clamp(stat.Correlation(x, y, nil), -1, 1), true
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
