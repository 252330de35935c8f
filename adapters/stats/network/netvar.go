// Package network combines per-device scores into the network variance statistic.
package network

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"gocoherence/domain/core"
	"gocoherence/domain/epoch"
	"gocoherence/domain/stats"
)

// MinActiveDevices is the smallest number of simultaneously reporting devices
// for which a bucket gets a combined statistic.
const MinActiveDevices = 2

// Stouffer combines the present values of one bucket. ok is false when fewer than
// MinActiveDevices values are present.
func Stouffer(row []float64) (float64, bool) {
	sum := 0.0
	k := 0
	for _, z := range row {
		if epoch.IsMissing(z) {
			continue
		}
		sum += z
		k++
	}
	if k < MinActiveDevices {
		return 0, false
	}
	return sum / math.Sqrt(float64(k)), true
}

// Analyze computes the per-second Stouffer Z, its square (the variance contribution,
// chi-square with 1 df under the null), the cumulative deviation sum(contribution - 1)
// and the overall chi-square test.
//
// The cumulative deviation is accumulated in a single pass in time order; buckets
// without a statistic carry the previous value forward.
func Analyze(m *epoch.ScoreMatrix) (*stats.NetworkVariance, error) {
	if m == nil || m.Cols() == 0 {
		return nil, core.ErrNoDevices
	}
	if m.Rows() == 0 {
		return nil, core.ErrEmptyAxis
	}

	T := m.Rows()
	result := &stats.NetworkVariance{
		Stouffer:            make([]float64, T),
		Contribution:        make([]float64, T),
		CumulativeDeviation: make([]float64, T),
	}

	running := 0.0
	for t := 0; t < T; t++ {
		z, ok := Stouffer(m.Row(t))
		if !ok {
			result.Stouffer[t] = epoch.Missing()
			result.Contribution[t] = epoch.Missing()
			result.CumulativeDeviation[t] = running
			continue
		}
		contribution := z * z
		result.Stouffer[t] = z
		result.Contribution[t] = contribution
		result.ChiSquare += contribution
		result.DegreesOfFreedom++
		running += contribution - 1.0
		result.CumulativeDeviation[t] = running
	}

	result.PValue = ChiSquarePValue(result.ChiSquare, result.DegreesOfFreedom)
	return result, nil
}

// ChiSquarePValue returns 1 - CDF(chi2; df). With no degrees of freedom there is no
// evidence either way and the p-value is 1.
func ChiSquarePValue(chiSquare float64, degreesOfFreedom int) float64 {
	if degreesOfFreedom <= 0 {
		return 1.0
	}
	chiDist := distuv.ChiSquared{K: float64(degreesOfFreedom)}
	p := 1 - chiDist.CDF(chiSquare)
	if p < 0 {
		return 0
	}
	return p
}
