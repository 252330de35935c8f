package engine

import (
	"math"

	"github.com/montanaflynn/stats"

	"gocoherence/adapters/stats/stages"
	domainstats "gocoherence/domain/stats"
)

// Summarize extracts the headline numbers of a finished run. Values with no defined
// inputs are NaN.
func Summarize(run *stages.Run) domainstats.Summary {
	nan := math.NaN()
	summary := domainstats.Summary{
		ChiSquare:              nan,
		PValue:                 nan,
		FinalDeviation:         nan,
		MeanCorrelation:        nan,
		MaxAbsCorrelation:      nan,
		MeanPLV:                nan,
		MeanAmplitudeCoherence: nan,
	}
	if run.Scores != nil {
		summary.DurationSeconds = run.Scores.Rows()
		summary.Devices = run.Scores.Cols()
	}
	if nv := run.Network; nv != nil {
		summary.ChiSquare = nv.ChiSquare
		summary.DegreesOfFreedom = nv.DegreesOfFreedom
		summary.PValue = nv.PValue
		summary.FinalDeviation = nv.FinalDeviation()
	}
	if run.Correlation != nil {
		off := run.Correlation.OffDiagonal()
		summary.MeanCorrelation = meanOrNaN(off)
		if len(off) > 0 {
			abs := make([]float64, len(off))
			for i, v := range off {
				abs[i] = math.Abs(v)
			}
			if max, err := stats.Max(abs); err == nil {
				summary.MaxAbsCorrelation = max
			}
		}
	}
	if c := run.Coherence; c != nil {
		summary.Windows = c.Windows()
		summary.MeanPLV = meanOrNaN(defined(c.PLV))
		summary.MeanAmplitudeCoherence = meanOrNaN(defined(c.AmplitudeCoherence))
	}
	return summary
}

func defined(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}

func meanOrNaN(values []float64) float64 {
	m, err := stats.Mean(values)
	if err != nil {
		return math.NaN()
	}
	return m
}
