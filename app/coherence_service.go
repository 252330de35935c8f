package app

import (
	"context"
	"time"

	"gocoherence/adapters/stats/engine"
	"gocoherence/adapters/stats/stages"
	"gocoherence/domain/core"
	"gocoherence/domain/entropy"
	"gocoherence/domain/stats"
	"gocoherence/internal"
	"gocoherence/internal/errors"
	"gocoherence/ports"
)

// CoherenceService turns recorded device streams into analysis reports
type CoherenceService struct {
	engine *engine.StatsEngine
	store  ports.ReportStorePort
	logger *internal.Logger
	now    func() time.Time
}

// NewCoherenceService creates the service. store may be nil when reports need not be kept.
func NewCoherenceService(statsEngine *engine.StatsEngine, store ports.ReportStorePort, logger *internal.Logger) *CoherenceService {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &CoherenceService{
		engine: statsEngine,
		store:  store,
		logger: logger.With("coherence"),
		now:    time.Now,
	}
}

// AnalyzeRequest names a session to analyze
type AnalyzeRequest struct {
	Source  ports.StreamSourcePort
	Label   string // defaults to the source description
	Options stages.Options
}

// Analyze loads the request's streams and runs the full pipeline over them.
func (s *CoherenceService) Analyze(ctx context.Context, req AnalyzeRequest) (*stats.Report, error) {
	if req.Source == nil {
		return nil, errors.InvalidInput("analysis requires a stream source")
	}
	label := req.Label
	if label == "" {
		label = req.Source.Describe()
	}

	s.logger.Info("loading %s", req.Source.Describe())
	streams, err := req.Source.Load(ctx)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load streams from %s", req.Source.Describe())
	}
	if len(streams) == 0 {
		return nil, errors.Wrapf(core.ErrNoDevices, "no device logs in %s", req.Source.Describe())
	}

	return s.AnalyzeStreams(ctx, label, streams, req.Options)
}

// AnalyzeStreams runs the pipeline over already loaded streams.
func (s *CoherenceService) AnalyzeStreams(ctx context.Context, label string, streams entropy.StreamSet, opts stages.Options) (*stats.Report, error) {
	start := s.now()
	runID := core.NewRunID()
	s.logger.Info("run %s: %d devices loaded, building epoch matrix", runID, len(streams))

	run, results, err := s.engine.Run(ctx, streams, opts)
	if err != nil {
		return nil, errors.Wrapf(err, "analysis of %q failed", label)
	}

	report := &stats.Report{
		RunID:       runID,
		Label:       label,
		CreatedAt:   start.UTC(),
		Devices:     deviceSummaries(run),
		Scores:      run.Scores,
		Network:     run.Network,
		Correlation: run.Correlation,
		Coherence:   run.Coherence,
		Profiles:    run.Profiles,
		Walks:       run.Walks,
		Summary:     engine.Summarize(run),
		Stages:      results,
		RuntimeMs:   s.now().Sub(start).Milliseconds(),
	}

	sum := report.Summary
	s.logger.Info("run %s: epoch matrix %d seconds x %d devices", runID, sum.DurationSeconds, sum.Devices)
	s.logger.Info("run %s: NetVar chi2=%.1f, df=%d, p=%.6f", runID, sum.ChiSquare, sum.DegreesOfFreedom, sum.PValue)
	s.logger.Info("run %s: %d windows, mean PLV=%.4f, mean amp coherence=%.4f", runID, sum.Windows, sum.MeanPLV, sum.MeanAmplitudeCoherence)

	if s.store != nil {
		s.store.Put(report)
	}
	return report, nil
}

// deviceSummaries lists devices in column order with their read counts and coverage.
func deviceSummaries(run *stages.Run) []stats.DeviceSummary {
	if run.Scores == nil {
		return nil
	}
	out := make([]stats.DeviceSummary, 0, run.Scores.Cols())
	for d, serial := range run.Scores.Serials {
		reads := run.Streams[serial]
		summary := stats.DeviceSummary{
			Serial:         serial,
			Reads:          len(reads),
			PresentSeconds: run.Scores.Present(d),
		}
		if first, last, ok := entropy.Span(reads); ok {
			summary.First, summary.Last = first, last
		}
		out = append(out, summary)
	}
	return out
}
