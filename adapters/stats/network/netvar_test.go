package network

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gocoherence/adapters/stats/temporal"
	"gocoherence/domain/core"
	"gocoherence/domain/entropy"
	"gocoherence/domain/epoch"
	"gocoherence/internal/testkit"
)

func matrixFromColumns(columns ...[]float64) *epoch.ScoreMatrix {
	serials := make([]string, len(columns))
	for i := range columns {
		serials[i] = string(rune('A' + i))
	}
	axis := epoch.Axis{Start: testkit.Epoch, Length: len(columns[0])}
	return epoch.NewScoreMatrix(axis, serials, columns)
}

func repeat(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

// Scenario: two devices at Z = 1 for ten seconds, third device silent.
func TestAnalyze_TwoActiveDevicesScenario(t *testing.T) {
	nan := math.NaN()
	m := matrixFromColumns(repeat(1, 10), repeat(1, 10), repeat(nan, 10))

	nv, err := Analyze(m)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		assert.InDelta(t, math.Sqrt2, nv.Stouffer[i], 1e-12)
		assert.InDelta(t, 2.0, nv.Contribution[i], 1e-12)
		assert.InDelta(t, float64(i+1), nv.CumulativeDeviation[i], 1e-9)
	}
	assert.InDelta(t, 10.0, nv.FinalDeviation(), 1e-9)
	assert.Equal(t, 10, nv.DegreesOfFreedom)
	assert.InDelta(t, 20.0, nv.ChiSquare, 1e-9)
	// chi2(20; 10) upper tail
	assert.InDelta(t, 0.029253, nv.PValue, 1e-5)
}

// Scenario: the same two devices built from raw bits.
func TestAnalyze_FromRawStreams(t *testing.T) {
	// 10 ones in 16 bits: Z = (10 - 8) / 2 = 1
	chunk := testkit.ChunkWithOnes(2, 10)
	streams := entropy.StreamSet{
		"A": testkit.ConstantStream(testkit.Epoch, 10, 0, chunk),
		"B": testkit.ConstantStream(testkit.Epoch, 10, 0, chunk),
		"C": nil,
	}

	alignment, err := temporal.AlignEpochs(context.Background(), streams, temporal.AlignConfig{})
	require.NoError(t, err)
	nv, err := Analyze(temporal.Standardize(alignment))
	require.NoError(t, err)

	assert.InDelta(t, 1.414, nv.Stouffer[0], 1e-3)
	assert.InDelta(t, 10.0, nv.FinalDeviation(), 1e-9)
}

func TestAnalyze_SingleDeviceBucketIsMissing(t *testing.T) {
	nan := math.NaN()
	m := matrixFromColumns([]float64{1, 2, nan}, []float64{nan, 1, nan})

	nv, err := Analyze(m)
	require.NoError(t, err)

	assert.True(t, epoch.IsMissing(nv.Stouffer[0]), "one active device is not enough")
	assert.False(t, epoch.IsMissing(nv.Stouffer[1]))
	assert.True(t, epoch.IsMissing(nv.Stouffer[2]), "all-missing bucket")
	assert.Equal(t, 1, nv.DegreesOfFreedom)
	assert.Equal(t, 0.0, nv.CumulativeDeviation[0])
	assert.InDelta(t, nv.CumulativeDeviation[1], nv.CumulativeDeviation[2], 0)
}

func TestAnalyze_AllMissing(t *testing.T) {
	nan := math.NaN()
	m := matrixFromColumns([]float64{nan}, []float64{nan})

	nv, err := Analyze(m)
	require.NoError(t, err)
	assert.True(t, epoch.IsMissing(nv.Stouffer[0]))
	assert.Equal(t, 0, nv.DegreesOfFreedom)
	assert.Equal(t, 1.0, nv.PValue)
}

func TestAnalyze_PrefixConsistency(t *testing.T) {
	kit := testkit.NewTestKit(42)
	streams := kit.RandomStreams(4, 120, 5, 8)
	alignment, err := temporal.AlignEpochs(context.Background(), streams, temporal.AlignConfig{})
	require.NoError(t, err)
	full := temporal.Standardize(alignment)

	fullNV, err := Analyze(full)
	require.NoError(t, err)

	for _, k := range []int{1, 17, 60, 119} {
		columns := make([][]float64, full.Cols())
		for d := range columns {
			columns[d] = full.Column(d)[:k]
		}
		prefix := epoch.NewScoreMatrix(epoch.Axis{Start: full.Axis.Start, Length: k}, full.Serials, columns)

		prefixNV, err := Analyze(prefix)
		require.NoError(t, err)
		assert.Equal(t, fullNV.CumulativeDeviation[k-1], prefixNV.CumulativeDeviation[k-1],
			"prefix of length %d must reproduce the running deviation", k)
	}
}

func TestAnalyze_DegenerateInput(t *testing.T) {
	_, err := Analyze(nil)
	assert.ErrorIs(t, err, core.ErrDegenerateInput)

	empty := epoch.NewScoreMatrix(epoch.Axis{Start: testkit.Epoch}, []string{"A"}, [][]float64{{}})
	_, err = Analyze(empty)
	assert.ErrorIs(t, err, core.ErrDegenerateInput)
}

func TestChiSquarePValue(t *testing.T) {
	assert.Equal(t, 1.0, ChiSquarePValue(5, 0))
	assert.InDelta(t, 0.05, ChiSquarePValue(3.841459, 1), 1e-6)
	assert.InDelta(t, 0.5, ChiSquarePValue(0.454936, 1), 1e-5)
}
