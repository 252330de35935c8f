package profiling

import (
	"fmt"
	"math"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat/distuv"

	"gocoherence/domain/core"
	domainstats "gocoherence/domain/stats"
)

// MinProfileSamples is the fewest present scores a profile is computed from.
const MinProfileSamples = 4

// ProfileScores summarizes a device's score column. Missing cells are skipped.
func ProfileScores(serial string, column []float64) (domainstats.ScoreProfile, error) {
	data := make([]float64, 0, len(column))
	for _, v := range column {
		if !math.IsNaN(v) {
			data = append(data, v)
		}
	}
	profile := domainstats.ScoreProfile{Serial: serial, Present: len(data)}
	if len(data) < MinProfileSamples {
		return profile, fmt.Errorf("%w: %s has %d scores", core.ErrInsufficientData, serial, len(data))
	}

	// Calculate basic summary statistics
	mean, err := stats.Mean(data)
	if err != nil {
		return profile, err
	}
	stdDev, err := stats.StandardDeviationSample(data)
	if err != nil {
		return profile, err
	}
	min, err := stats.Min(data)
	if err != nil {
		return profile, err
	}
	max, err := stats.Max(data)
	if err != nil {
		return profile, err
	}
	median, err := stats.Median(data)
	if err != nil {
		return profile, err
	}

	// Quartiles for IQR-based outlier detection
	q25, err := stats.Percentile(data, 25)
	if err != nil {
		return profile, err
	}
	q75, err := stats.Percentile(data, 75)
	if err != nil {
		return profile, err
	}

	profile.Mean = mean
	profile.StdDev = stdDev
	profile.Min = min
	profile.Max = max
	profile.Median = median
	profile.Q25 = q25
	profile.Q75 = q75
	profile.Outliers = detectOutliers(data, q25, q75)

	if stdDev > 0 {
		profile.Skewness, profile.Kurtosis = moments(data, mean)
		profile.JarqueBera, profile.NormalityP = jarqueBera(len(data), profile.Skewness, profile.Kurtosis)
	} else {
		profile.NormalityP = math.NaN()
	}

	return profile, nil
}

// moments returns the population skewness and (non-excess) kurtosis.
func moments(data []float64, mean float64) (skewness, kurtosis float64) {
	var m2, m3, m4 float64
	for _, x := range data {
		d := x - mean
		d2 := d * d
		m2 += d2
		m3 += d2 * d
		m4 += d2 * d2
	}
	n := float64(len(data))
	m2 /= n
	m3 /= n
	m4 /= n
	return m3 / math.Pow(m2, 1.5), m4 / (m2 * m2)
}

// jarqueBera tests normality from skewness and kurtosis; the statistic is chi-square with 2 df.
func jarqueBera(n int, skewness, kurtosis float64) (statistic, pValue float64) {
	excess := kurtosis - 3
	statistic = float64(n) / 6 * (skewness*skewness + excess*excess/4)
	chiDist := distuv.ChiSquared{K: 2}
	return statistic, 1 - chiDist.CDF(statistic)
}

// detectOutliers identifies outliers using IQR method
func detectOutliers(data []float64, q25, q75 float64) int {
	iqr := q75 - q25
	lowerBound := q25 - 1.5*iqr
	upperBound := q75 + 1.5*iqr

	outlierCount := 0
	for _, x := range data {
		if x < lowerBound || x > upperBound {
			outlierCount++
		}
	}
	return outlierCount
}
