package stages

import (
	"context"
	"fmt"

	"gocoherence/adapters/stats/temporal"
	"gocoherence/domain/core"
	"gocoherence/domain/stage"
)

// AlignStage bins raw reads into the shared one-second grid
type AlignStage struct{}

// NewAlignStage creates a new align stage
func NewAlignStage() *AlignStage {
	return &AlignStage{}
}

func (s *AlignStage) Name() stage.StageName { return stage.StageAlign }
func (s *AlignStage) Kind() stage.StageKind { return stage.StageKindPrepare }

// Execute checks the guardrails and bins every device.
func (s *AlignStage) Execute(ctx context.Context, run *Run) (map[string]int, error) {
	if n := len(run.Streams); n > MaxDevices {
		return nil, fmt.Errorf("too many devices: %d > %d", n, MaxDevices)
	}
	if len(run.Streams) == 0 {
		return nil, core.ErrNoDevices
	}

	axis, err := temporal.BuildAxis(run.Streams)
	if err != nil {
		return nil, err
	}
	if axis.Length > MaxAxisSeconds {
		return nil, fmt.Errorf("%w: time axis spans %d s > %d s (%s to %s)",
			core.ErrDegenerateInput, axis.Length, MaxAxisSeconds, axis.Start, axis.End())
	}

	alignment, err := temporal.AlignEpochs(ctx, run.Streams, temporal.AlignConfig{Workers: run.Options.Workers})
	if err != nil {
		return nil, err
	}
	run.Alignment = alignment

	skips := map[string]int{}
	for _, reads := range run.Streams {
		if len(reads) == 0 {
			skips["device_without_reads"]++
			continue
		}
		for _, r := range reads {
			if _, ok := axis.Index(r.Timestamp); !ok {
				skips["read_outside_axis"]++
			}
		}
	}
	return skips, nil
}

// StandardizeStage converts bit totals into per-second scores
type StandardizeStage struct{}

// NewStandardizeStage creates a new standardize stage
func NewStandardizeStage() *StandardizeStage {
	return &StandardizeStage{}
}

func (s *StandardizeStage) Name() stage.StageName { return stage.StageStandardize }
func (s *StandardizeStage) Kind() stage.StageKind { return stage.StageKindPrepare }

func (s *StandardizeStage) Execute(ctx context.Context, run *Run) (map[string]int, error) {
	if run.Alignment == nil {
		return nil, fmt.Errorf("standardize requires an alignment")
	}
	run.Scores = temporal.Standardize(run.Alignment)

	missing := 0
	for d := 0; d < run.Scores.Cols(); d++ {
		missing += run.Scores.Rows() - run.Scores.Present(d)
	}
	return map[string]int{"empty_bucket": missing}, nil
}
