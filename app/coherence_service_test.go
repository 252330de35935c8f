package app

import (
	"context"
	stderrors "errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gocoherence/adapters/memory"
	"gocoherence/adapters/stats/engine"
	"gocoherence/adapters/stats/stages"
	"gocoherence/domain/entropy"
	"gocoherence/internal"
	"gocoherence/internal/errors"
	"gocoherence/internal/testkit"
)

func newService(store *memory.ReportStore) *CoherenceService {
	logger := internal.NewLoggerTo(&strings.Builder{}, internal.LogLevelError)
	if store == nil {
		return NewCoherenceService(engine.NewStatsEngine(logger), nil, logger)
	}
	return NewCoherenceService(engine.NewStatsEngine(logger), store, logger)
}

func TestCoherenceService_Analyze(t *testing.T) {
	kit := testkit.NewTestKit(17)
	streams := kit.RandomStreams(3, 125, 2, 16)
	streams["SILENT"] = nil
	store := memory.NewReportStore(4)

	report, err := newService(store).Analyze(context.Background(), AnalyzeRequest{
		Source:  &testkit.StaticSource{Name: "/data/session1", Streams: streams},
		Options: stages.DefaultOptions(),
	})
	require.NoError(t, err)

	assert.Equal(t, "/data/session1", report.Label)
	assert.False(t, report.RunID.String() == "")
	assert.Equal(t, []string{"DEV0", "DEV1", "DEV2", "SILENT"}, report.Serials())
	assert.Equal(t, 125, report.Duration())
	require.Len(t, report.Devices, 4)
	assert.Equal(t, 250, report.Devices[0].Reads)
	assert.Equal(t, 125, report.Devices[0].PresentSeconds)
	assert.Equal(t, 0, report.Devices[3].PresentSeconds)
	assert.Len(t, report.Stages, 7)
	assert.Equal(t, 4, report.Summary.Devices)
	assert.Equal(t, 6, report.Coherence.PairCount)

	stored, ok := store.Get(report.RunID.String())
	require.True(t, ok)
	assert.Same(t, report, stored)
}

func TestCoherenceService_LoadFailure(t *testing.T) {
	_, err := newService(nil).Analyze(context.Background(), AnalyzeRequest{
		Source: &testkit.StaticSource{Name: "broken", Err: stderrors.New("disk gone")},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk gone")
	assert.Equal(t, errors.CodeInternalError, errors.GetCode(err))
}

func TestCoherenceService_EmptySource(t *testing.T) {
	_, err := newService(nil).Analyze(context.Background(), AnalyzeRequest{
		Source: &testkit.StaticSource{Name: "empty", Streams: entropy.StreamSet{}},
	})
	require.Error(t, err)
	assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(err))
}

func TestCoherenceService_MissingSource(t *testing.T) {
	_, err := newService(nil).Analyze(context.Background(), AnalyzeRequest{})
	assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(err))
}

func TestCoherenceService_InvalidBandIsConfigError(t *testing.T) {
	kit := testkit.NewTestKit(2)
	opts := stages.DefaultOptions()
	opts.Band.LowHz = 0

	_, err := newService(nil).AnalyzeStreams(context.Background(), "x", kit.RandomStreams(2, 90, 2, 8), opts)
	require.Error(t, err)
	assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))
}

func TestCompareService_Compare(t *testing.T) {
	kit := testkit.NewTestKit(4)
	svc := NewCompareService(newService(nil))

	cmp, err := svc.Compare(context.Background(),
		AnalyzeRequest{Source: &testkit.StaticSource{Name: "a", Streams: kit.RandomStreams(2, 120, 2, 8)}, Label: "Baseline", Options: stages.DefaultOptions()},
		AnalyzeRequest{Source: &testkit.StaticSource{Name: "b", Streams: kit.RandomStreams(3, 180, 2, 8)}, Label: "Event", Options: stages.DefaultOptions()},
	)
	require.NoError(t, err)

	assert.Equal(t, [2]string{"Baseline", "Event"}, cmp.Labels)
	assert.Equal(t, "Duration (seconds)", cmp.Rows[0].Metric)
	assert.Equal(t, [2]float64{120, 180}, cmp.Rows[0].Values)
	assert.Equal(t, [2]float64{2, 3}, cmp.Rows[1].Values)
}

func TestCompareService_PropagatesFailure(t *testing.T) {
	kit := testkit.NewTestKit(4)
	svc := NewCompareService(newService(nil))

	_, err := svc.Compare(context.Background(),
		AnalyzeRequest{Source: &testkit.StaticSource{Name: "a", Streams: kit.RandomStreams(2, 120, 2, 8)}},
		AnalyzeRequest{Source: &testkit.StaticSource{Name: "b", Err: stderrors.New("unreadable")}},
	)
	assert.ErrorContains(t, err, "unreadable")
}
