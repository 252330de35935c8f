package engine

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gocoherence/adapters/stats/stages"
	"gocoherence/domain/core"
	"gocoherence/domain/entropy"
	"gocoherence/domain/stage"
	"gocoherence/internal"
	"gocoherence/internal/testkit"
)

func quietLogger() *internal.Logger {
	return internal.NewLoggerTo(&strings.Builder{}, internal.LogLevelError)
}

func TestStatsEngine_RunsFullPipeline(t *testing.T) {
	kit := testkit.NewTestKit(3)
	streams := kit.RandomStreams(4, 180, 3, 16)

	eng := NewStatsEngine(quietLogger())
	run, results, err := eng.Run(context.Background(), streams, stages.DefaultOptions())
	require.NoError(t, err)

	require.Len(t, results, 7)
	names := make([]stage.StageName, len(results))
	for i, r := range results {
		names[i] = r.StageName
		assert.True(t, r.Success, r.StageName)
	}
	assert.Equal(t, []stage.StageName{
		stage.StageAlign, stage.StageStandardize, stage.StageNetwork, stage.StageCorrelation,
		stage.StageCoherence, stage.StageProfile, stage.StageWalk,
	}, names)

	assert.Equal(t, 180, run.Scores.Rows())
	assert.Len(t, run.Network.Stouffer, 180)
	assert.Len(t, run.Correlation.Values, 4)
	assert.Equal(t, 3, run.Coherence.Windows())
	assert.Len(t, run.Profiles, 4)
	assert.Len(t, run.Walks, 4)

	summary := Summarize(run)
	assert.Equal(t, 180, summary.DurationSeconds)
	assert.Equal(t, 4, summary.Devices)
	assert.Equal(t, 180, summary.DegreesOfFreedom)
	assert.Equal(t, 3, summary.Windows)
	assert.False(t, math.IsNaN(summary.MeanPLV))
	assert.LessOrEqual(t, math.Abs(summary.MeanCorrelation), summary.MaxAbsCorrelation)
}

func TestStatsEngine_StopsAtFailingStage(t *testing.T) {
	eng := NewStatsEngine(quietLogger())
	_, results, err := eng.Run(context.Background(), entropy.StreamSet{}, stages.DefaultOptions())

	require.Error(t, err)
	assert.True(t, core.IsDegenerateInput(err))
	require.Len(t, results, 1)
	assert.False(t, results[0].Success)
	assert.NotEmpty(t, results[0].Error)
}

func TestStatsEngine_ConfigurationErrorSurfaces(t *testing.T) {
	kit := testkit.NewTestKit(3)
	opts := stages.DefaultOptions()
	opts.WindowSize = 0

	_, results, err := NewStatsEngine(quietLogger()).Run(context.Background(), kit.RandomStreams(2, 120, 2, 8), opts)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrInvalidWindow))
	assert.Equal(t, stage.StageCoherence, results[len(results)-1].StageName)
}

func TestStatsEngine_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	kit := testkit.NewTestKit(3)
	_, results, err := NewStatsEngine(quietLogger()).Run(ctx, kit.RandomStreams(2, 60, 2, 8), stages.DefaultOptions())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, results)
}

func TestSummarize_EmptyRunIsUndefined(t *testing.T) {
	summary := Summarize(stages.NewRun(nil, stages.DefaultOptions()))
	assert.Zero(t, summary.Devices)
	assert.True(t, math.IsNaN(summary.PValue))
	assert.True(t, math.IsNaN(summary.MeanPLV))
	assert.True(t, math.IsNaN(summary.MaxAbsCorrelation))
}

func TestSummarize_SingleDeviceHasNoPairStatistics(t *testing.T) {
	kit := testkit.NewTestKit(8)
	run, _, err := NewStatsEngine(quietLogger()).Run(context.Background(), kit.RandomStreams(1, 120, 2, 8), stages.DefaultOptions())
	require.NoError(t, err)

	summary := Summarize(run)
	assert.Equal(t, 0, summary.DegreesOfFreedom)
	assert.Equal(t, 1.0, summary.PValue)
	assert.True(t, math.IsNaN(summary.MeanCorrelation))
	assert.True(t, math.IsNaN(summary.MeanPLV))
	assert.Equal(t, 2, summary.Windows)
}
