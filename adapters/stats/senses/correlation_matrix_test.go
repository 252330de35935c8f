package senses

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gocoherence/adapters/stats/temporal"
	"gocoherence/domain/epoch"
	"gocoherence/internal/testkit"
)

func scoreMatrix(columns ...[]float64) *epoch.ScoreMatrix {
	serials := make([]string, len(columns))
	for i := range columns {
		serials[i] = string(rune('A' + i))
	}
	return epoch.NewScoreMatrix(epoch.Axis{Start: testkit.Epoch, Length: len(columns[0])}, serials, columns)
}

func TestCorrelationMatrix_AntiCorrelatedColumns(t *testing.T) {
	a := []float64{0.5, -1.2, 2.0, 0.1, -0.7, 1.3}
	b := make([]float64, len(a))
	for i, v := range a {
		b[i] = -v
	}

	corr := CorrelationMatrix(scoreMatrix(a, b))
	assert.InDelta(t, -1.0, corr.At(0, 1), 1e-12)
	assert.Equal(t, 1.0, corr.At(0, 0))
	assert.Equal(t, 6, corr.Overlap[0][1])
}

func TestCorrelationMatrix_InsufficientOverlapIsMissing(t *testing.T) {
	nan := math.NaN()
	a := []float64{1, 2, nan, nan, 3}
	b := []float64{nan, 1, 2, 3, nan}

	corr := CorrelationMatrix(scoreMatrix(a, b))
	assert.True(t, math.IsNaN(corr.At(0, 1)), "one co-present bucket must not yield a correlation")
	assert.Equal(t, 1, corr.Overlap[0][1])
	assert.Equal(t, 1.0, corr.At(0, 0))
}

func TestCorrelationMatrix_TwoOverlappingPointsIsMissing(t *testing.T) {
	nan := math.NaN()
	a := []float64{1, 2, nan}
	b := []float64{3, 5, 1}

	corr := CorrelationMatrix(scoreMatrix(a, b))
	assert.True(t, math.IsNaN(corr.At(0, 1)), "two points would give a spurious ±1")
	assert.True(t, math.IsNaN(corr.At(1, 0)))
}

func TestCorrelationMatrix_ConstantColumnIsMissing(t *testing.T) {
	a := []float64{0, 0, 0, 0}
	b := []float64{1, 2, 3, 4}

	corr := CorrelationMatrix(scoreMatrix(a, b))
	assert.True(t, math.IsNaN(corr.At(0, 1)))
	assert.True(t, math.IsNaN(corr.At(0, 0)))
	assert.Equal(t, 1.0, corr.At(1, 1))
}

func TestCorrelationMatrix_Symmetric(t *testing.T) {
	kit := testkit.NewTestKit(11)
	alignment, err := temporal.AlignEpochs(context.Background(), kit.RandomStreams(5, 90, 4, 8), temporal.AlignConfig{})
	require.NoError(t, err)

	corr := CorrelationMatrix(temporal.Standardize(alignment))
	for i := range corr.Values {
		for j := range corr.Values {
			assert.Equal(t, corr.At(i, j), corr.At(j, i))
			assert.LessOrEqual(t, math.Abs(corr.At(i, j)), 1.0)
		}
	}
	assert.Len(t, corr.OffDiagonal(), 10)
}

func TestPearson_Guards(t *testing.T) {
	_, ok := Pearson([]float64{1}, []float64{1})
	assert.False(t, ok)
	_, ok = Pearson([]float64{1, 2}, []float64{1})
	assert.False(t, ok)
	_, ok = Pearson([]float64{1, 1, 1}, []float64{1, 2, 3})
	assert.False(t, ok)

	r, ok := Pearson([]float64{1, 2, 3}, []float64{2, 4, 6})
	assert.True(t, ok)
	assert.InDelta(t, 1.0, r, 1e-12)
}
