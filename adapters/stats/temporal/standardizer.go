package temporal

import (
	"math"

	"gocoherence/domain/epoch"
)

// ZScore standardizes a bucket's bit total against an unbiased source (p = 0.5):
// Z = (s - n/2) / sqrt(n/4). ok is false when the bucket holds no bits.
func ZScore(sum, count int64) (float64, bool) {
	if count <= 0 {
		return 0, false
	}
	n := float64(count)
	return (float64(sum) - n/2) / math.Sqrt(n/4), true
}

// Standardize converts aligned bucket totals into the T x N score matrix.
// A cell is missing exactly when its bucket count is zero.
func Standardize(alignment *epoch.Alignment) *epoch.ScoreMatrix {
	serials := make([]string, len(alignment.Devices))
	columns := make([][]float64, len(alignment.Devices))

	for d, dev := range alignment.Devices {
		serials[d] = dev.Serial
		col := make([]float64, alignment.Axis.Length)
		for t := range col {
			z, ok := ZScore(dev.Sums[t], dev.Counts[t])
			if !ok {
				col[t] = epoch.Missing()
				continue
			}
			col[t] = z
		}
		columns[d] = col
	}

	return epoch.NewScoreMatrix(alignment.Axis, serials, columns)
}
