package coherence

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gocoherence/adapters/stats/temporal"
	"gocoherence/domain/core"
	"gocoherence/domain/epoch"
	"gocoherence/domain/stats"
	"gocoherence/internal/testkit"
)

func matrixFromColumns(columns ...[]float64) *epoch.ScoreMatrix {
	serials := make([]string, len(columns))
	for i := range columns {
		serials[i] = string(rune('A' + i))
	}
	return epoch.NewScoreMatrix(epoch.Axis{Start: testkit.Epoch, Length: len(columns[0])}, serials, columns)
}

func randomMatrix(t *testing.T, devices, seconds int) *epoch.ScoreMatrix {
	t.Helper()
	kit := testkit.NewTestKit(42)
	alignment, err := temporal.AlignEpochs(context.Background(), kit.RandomStreams(devices, seconds, 3, 8), temporal.AlignConfig{})
	require.NoError(t, err)
	return temporal.Standardize(alignment)
}

func TestAnalyze_WindowCountDiscardsRemainder(t *testing.T) {
	m := randomMatrix(t, 3, 150)
	require.Equal(t, 150, m.Rows())

	opts := DefaultOptions()
	series, err := Analyze(context.Background(), m, opts)
	require.NoError(t, err)

	assert.Equal(t, 2, series.Windows())
	assert.Equal(t, []int{0, 60}, series.WindowStarts)
	assert.Len(t, series.PLV, 2)
	assert.Len(t, series.AmplitudeCoherence, 2)
	assert.Equal(t, 3, series.PairCount)
}

func TestAnalyze_ValuesStayInRange(t *testing.T) {
	m := randomMatrix(t, 4, 600)

	series, err := Analyze(context.Background(), m, Options{Band: stats.DefaultBand(), WindowSize: 30, Workers: 2})
	require.NoError(t, err)
	require.Equal(t, 20, series.Windows())

	for w := 0; w < series.Windows(); w++ {
		assert.GreaterOrEqual(t, series.PLV[w], 0.0)
		assert.LessOrEqual(t, series.PLV[w], 1.0)
		assert.GreaterOrEqual(t, series.AmplitudeCoherence[w], -1.0)
		assert.LessOrEqual(t, series.AmplitudeCoherence[w], 1.0)
		assert.LessOrEqual(t, series.ContributingPairs[w], series.PairCount)
	}
}

func TestAnalyze_IdenticalDevicesAreFullyCoherent(t *testing.T) {
	base := randomMatrix(t, 1, 240).Column(0)
	twin := append([]float64(nil), base...)

	series, err := Analyze(context.Background(), matrixFromColumns(base, twin), DefaultOptions())
	require.NoError(t, err)

	for w := 0; w < series.Windows(); w++ {
		assert.InDelta(t, 1.0, series.PLV[w], 1e-12)
		assert.InDelta(t, 1.0, series.AmplitudeCoherence[w], 1e-9)
		assert.Equal(t, 1, series.ContributingPairs[w])
	}
}

func TestAnalyze_SingleDeviceIsMissing(t *testing.T) {
	m := randomMatrix(t, 1, 180)

	series, err := Analyze(context.Background(), m, DefaultOptions())
	require.NoError(t, err)
	require.Equal(t, 3, series.Windows())
	assert.Equal(t, 0, series.PairCount)
	for w := 0; w < series.Windows(); w++ {
		assert.True(t, math.IsNaN(series.PLV[w]))
		assert.True(t, math.IsNaN(series.AmplitudeCoherence[w]))
	}
}

func TestAnalyze_FlatEnvelopesContributeZero(t *testing.T) {
	// All-missing columns become zeros; the filtered signal is flat.
	nan := math.NaN()
	a := make([]float64, 120)
	b := make([]float64, 120)
	for i := range a {
		a[i], b[i] = nan, nan
	}

	series, err := Analyze(context.Background(), matrixFromColumns(a, b), DefaultOptions())
	require.NoError(t, err)
	for w := 0; w < series.Windows(); w++ {
		assert.Equal(t, 0.0, series.AmplitudeCoherence[w])
		assert.Equal(t, 0, series.ContributingPairs[w])
		assert.InDelta(t, 1.0, series.PLV[w], 1e-12)
	}
}

func TestAnalyze_ShorterThanWindow(t *testing.T) {
	m := randomMatrix(t, 3, 40)

	series, err := Analyze(context.Background(), m, DefaultOptions())
	require.NoError(t, err)
	assert.Zero(t, series.Windows())
	assert.Empty(t, series.PLV)
}

func TestAnalyze_ConfigurationErrors(t *testing.T) {
	m := randomMatrix(t, 2, 120)

	_, err := Analyze(context.Background(), m, Options{Band: stats.DefaultBand(), WindowSize: 0})
	assert.ErrorIs(t, err, core.ErrInvalidWindow)

	band := stats.DefaultBand()
	band.HighHz = 0.5
	_, err = Analyze(context.Background(), m, Options{Band: band, WindowSize: 60})
	assert.ErrorIs(t, err, core.ErrInvalidBand)
	assert.True(t, core.IsConfigurationError(err))
}

func TestAnalyze_CancelledContext(t *testing.T) {
	m := randomMatrix(t, 3, 120)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Analyze(ctx, m, DefaultOptions())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPhaseLockingValue(t *testing.T) {
	a := []float64{0.1, 0.5, 1.0, -2.0}
	b := []float64{0.1 - 0.7, 0.5 - 0.7, 1.0 - 0.7, -2.0 - 0.7}
	assert.InDelta(t, 1.0, PhaseLockingValue(a, b), 1e-12, "constant phase offset is perfectly locked")

	// Opposite differences cancel.
	assert.InDelta(t, 0.0, PhaseLockingValue([]float64{0, math.Pi}, []float64{0, 0}), 1e-12)
	assert.Equal(t, 0.0, PhaseLockingValue(nil, nil))
}
