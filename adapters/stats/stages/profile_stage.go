package stages

import (
	"context"

	"gocoherence/domain/stage"
	"gocoherence/internal/profiling"
)

// ProfileStage summarizes the score distribution of each device
type ProfileStage struct{}

// NewProfileStage creates a new profile stage
func NewProfileStage() *ProfileStage {
	return &ProfileStage{}
}

func (p *ProfileStage) Name() stage.StageName { return stage.StageProfile }
func (p *ProfileStage) Kind() stage.StageKind { return stage.StageKindStats }

// Execute profiles every device column of the score matrix
func (p *ProfileStage) Execute(ctx context.Context, run *Run) (map[string]int, error) {
	if err := requireScores(run, p.Name()); err != nil {
		return nil, err
	}
	profiles, err := profiling.ProfileMatrix(run.Scores)
	if err != nil {
		return nil, err
	}
	run.Profiles = profiles

	short := 0
	for _, prof := range profiles {
		if prof.Present < profiling.MinProfileSamples {
			short++
		}
	}
	return map[string]int{"insufficient_scores": short}, nil
}
