package stages

import (
	"context"

	"gocoherence/adapters/stats/bits"
	"gocoherence/domain/entropy"
	"gocoherence/domain/stage"
)

// WalkStage builds each device's cumulative random walk, thinned for rendering
type WalkStage struct{}

// NewWalkStage creates a new walk stage
func NewWalkStage() *WalkStage {
	return &WalkStage{}
}

func (w *WalkStage) Name() stage.StageName { return stage.StageWalk }
func (w *WalkStage) Kind() stage.StageKind { return stage.StageKindReport }

func (w *WalkStage) Execute(ctx context.Context, run *Run) (map[string]int, error) {
	limit := run.Options.MaxWalkPoints
	if limit <= 0 {
		limit = DefaultWalkPoints
	}

	dropped := 0
	walks := make(map[string][]entropy.WalkPoint, len(run.Streams))
	for serial, points := range bits.Walks(run.Streams) {
		thinned := bits.Downsample(points, limit)
		dropped += len(points) - len(thinned)
		walks[serial] = thinned
	}
	run.Walks = walks
	return map[string]int{"downsampled_point": dropped}, nil
}
