// Package coherence measures band-limited phase and amplitude synchrony between devices
// in fixed, non-overlapping windows.
package coherence

import (
	"context"
	"fmt"
	"math"
	"math/cmplx"

	"golang.org/x/sync/errgroup"

	"gocoherence/adapters/stats/senses"
	"gocoherence/adapters/stats/spectral"
	"gocoherence/domain/core"
	"gocoherence/domain/epoch"
	"gocoherence/domain/stats"
)

// Options configures one coherence run.
type Options struct {
	Band       stats.Band
	WindowSize int
	Workers    int // concurrent device transforms; <= 0 means unbounded
}

// DefaultOptions returns the 0.01-0.1 Hz band with 60 s windows.
func DefaultOptions() Options {
	return Options{Band: stats.DefaultBand(), WindowSize: stats.DefaultWindowSeconds}
}

// deviceSignal is the instantaneous phase and amplitude of one filtered column.
type deviceSignal struct {
	phase     []float64
	amplitude []float64
}

// Analyze computes per-window PLV and amplitude coherence averaged over all device pairs.
//
// Missing cells are treated as 0 before filtering. Each window sum is divided by the full
// number of pairs; pairs whose envelopes are flat in a window add 0 to the amplitude sum
// and are excluded from ContributingPairs. With fewer than two devices every window is NaN.
func Analyze(ctx context.Context, m *epoch.ScoreMatrix, opts Options) (*stats.CoherenceSeries, error) {
	if opts.WindowSize < 1 {
		return nil, core.NewWindowError(opts.WindowSize)
	}
	sos, err := spectral.DesignBandpass(opts.Band.Order, opts.Band.LowHz, opts.Band.HighHz, opts.Band.SampleRateHz)
	if err != nil {
		return nil, err
	}

	n := m.Cols()
	windows := m.Rows() / opts.WindowSize
	series := &stats.CoherenceSeries{
		Band:               opts.Band,
		WindowSize:         opts.WindowSize,
		WindowStarts:       make([]int, windows),
		PLV:                make([]float64, windows),
		AmplitudeCoherence: make([]float64, windows),
		ContributingPairs:  make([]int, windows),
		PairCount:          n * (n - 1) / 2,
	}
	for w := range series.WindowStarts {
		series.WindowStarts[w] = w * opts.WindowSize
	}

	if n < 2 {
		for w := 0; w < windows; w++ {
			series.PLV[w] = epoch.Missing()
			series.AmplitudeCoherence[w] = epoch.Missing()
		}
		return series, nil
	}

	signals, err := transformDevices(ctx, m, sos, opts.Workers)
	if err != nil {
		return nil, err
	}

	pairs := float64(series.PairCount)
	for w := 0; w < windows; w++ {
		start := series.WindowStarts[w]
		end := start + opts.WindowSize

		var plvSum, ampSum float64
		contributing := 0
		for i := 0; i < n; i++ {
			for j := i + 1; j < n; j++ {
				plvSum += PhaseLockingValue(signals[i].phase[start:end], signals[j].phase[start:end])
				if r, ok := senses.Pearson(signals[i].amplitude[start:end], signals[j].amplitude[start:end]); ok {
					ampSum += r
					contributing++
				}
			}
		}
		series.PLV[w] = clamp(plvSum/pairs, 0, 1)
		series.AmplitudeCoherence[w] = clamp(ampSum/pairs, -1, 1)
		series.ContributingPairs[w] = contributing
	}

	return series, nil
}

// transformDevices band-passes each column and takes its analytic signal. Columns are
// independent, so they run concurrently.
func transformDevices(ctx context.Context, m *epoch.ScoreMatrix, sos []spectral.Section, workers int) ([]deviceSignal, error) {
	signals := make([]deviceSignal, m.Cols())
	g, gctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for d := 0; d < m.Cols(); d++ {
		d := d
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return fmt.Errorf("coherence transform cancelled: %w", err)
			}
			column := m.Column(d)
			for t, v := range column {
				if epoch.IsMissing(v) {
					column[t] = 0
				}
			}
			analytic := spectral.Analytic(spectral.FiltFilt(sos, column))
			signals[d] = deviceSignal{
				phase:     spectral.Phase(analytic),
				amplitude: spectral.Envelope(analytic),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return signals, nil
}

// PhaseLockingValue returns |mean(exp(i(a-b)))| for two equal-length phase series, in [0, 1].
// Empty input yields 0.
func PhaseLockingValue(a, b []float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var acc complex128
	for t := range a {
		acc += cmplx.Exp(complex(0, a[t]-b[t]))
	}
	return clamp(cmplx.Abs(acc)/float64(len(a)), 0, 1)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
