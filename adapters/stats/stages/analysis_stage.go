package stages

import (
	"context"
	"fmt"

	"gocoherence/adapters/stats/coherence"
	"gocoherence/adapters/stats/network"
	"gocoherence/adapters/stats/senses"
	"gocoherence/domain/epoch"
	"gocoherence/domain/stage"
)

func requireScores(run *Run, name stage.StageName) error {
	if run.Scores == nil {
		return fmt.Errorf("%s requires a score matrix", name)
	}
	return nil
}

// NetworkStage computes the Stouffer network variance and its chi-square test
type NetworkStage struct{}

// NewNetworkStage creates a new network variance stage
func NewNetworkStage() *NetworkStage {
	return &NetworkStage{}
}

func (s *NetworkStage) Name() stage.StageName { return stage.StageNetwork }
func (s *NetworkStage) Kind() stage.StageKind { return stage.StageKindStats }

func (s *NetworkStage) Execute(ctx context.Context, run *Run) (map[string]int, error) {
	if err := requireScores(run, s.Name()); err != nil {
		return nil, err
	}
	nv, err := network.Analyze(run.Scores)
	if err != nil {
		return nil, err
	}
	run.Network = nv
	return map[string]int{"sparse_bucket": len(nv.Stouffer) - nv.DegreesOfFreedom}, nil
}

// CorrelationStage computes pairwise device correlations
type CorrelationStage struct{}

// NewCorrelationStage creates a new correlation stage
func NewCorrelationStage() *CorrelationStage {
	return &CorrelationStage{}
}

func (s *CorrelationStage) Name() stage.StageName { return stage.StageCorrelation }
func (s *CorrelationStage) Kind() stage.StageKind { return stage.StageKindStats }

func (s *CorrelationStage) Execute(ctx context.Context, run *Run) (map[string]int, error) {
	if err := requireScores(run, s.Name()); err != nil {
		return nil, err
	}
	run.Correlation = senses.CorrelationMatrix(run.Scores)

	undefined := 0
	n := len(run.Correlation.Serials)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if epoch.IsMissing(run.Correlation.At(i, j)) {
				undefined++
			}
		}
	}
	return map[string]int{"undefined_pair": undefined}, nil
}

// CoherenceStage computes windowed phase and amplitude coherence
type CoherenceStage struct{}

// NewCoherenceStage creates a new coherence stage
func NewCoherenceStage() *CoherenceStage {
	return &CoherenceStage{}
}

func (s *CoherenceStage) Name() stage.StageName { return stage.StageCoherence }
func (s *CoherenceStage) Kind() stage.StageKind { return stage.StageKindStats }

func (s *CoherenceStage) Execute(ctx context.Context, run *Run) (map[string]int, error) {
	if err := requireScores(run, s.Name()); err != nil {
		return nil, err
	}
	series, err := coherence.Analyze(ctx, run.Scores, coherence.Options{
		Band:       run.Options.Band,
		WindowSize: run.Options.WindowSize,
		Workers:    run.Options.Workers,
	})
	if err != nil {
		return nil, err
	}
	run.Coherence = series

	flat := 0
	for _, c := range series.ContributingPairs {
		flat += series.PairCount - c
	}
	skips := map[string]int{"flat_envelope_pair": flat}
	if series.PairCount == 0 {
		skips["window_without_pairs"] = series.Windows()
	}
	return skips, nil
}
