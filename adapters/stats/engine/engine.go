// Package engine runs the analysis stages in order and records their outcome.
package engine

import (
	"context"
	"fmt"
	"time"

	"gocoherence/adapters/stats/stages"
	"gocoherence/domain/entropy"
	"gocoherence/domain/stage"
	"gocoherence/internal"
)

// StatsEngine provides statistical computation capabilities
type StatsEngine struct {
	pipeline []stages.Stage
	logger   *internal.Logger
}

// NewStatsEngine creates an engine running the standard pipeline
func NewStatsEngine(logger *internal.Logger) *StatsEngine {
	return NewStatsEngineWith(logger, stages.Pipeline()...)
}

// NewStatsEngineWith runs the given stages instead of the standard pipeline.
func NewStatsEngineWith(logger *internal.Logger, pipeline ...stages.Stage) *StatsEngine {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &StatsEngine{pipeline: pipeline, logger: logger.With("engine")}
}

// Run executes every stage against streams. The returned results cover every stage
// attempted, including the one that failed. The context is checked between stages.
func (e *StatsEngine) Run(ctx context.Context, streams entropy.StreamSet, opts stages.Options) (*stages.Run, []stage.StageResult, error) {
	run := stages.NewRun(streams, opts)
	results := make([]stage.StageResult, 0, len(e.pipeline))

	for _, st := range e.pipeline {
		if err := ctx.Err(); err != nil {
			return run, results, fmt.Errorf("analysis cancelled before %s: %w", st.Name(), err)
		}

		start := time.Now()
		skips, err := st.Execute(ctx, run)
		result := stage.StageResult{
			StageName: st.Name(),
			Kind:      st.Kind(),
			Success:   err == nil,
			Duration:  time.Since(start).Milliseconds(),
			Skips:     nonZero(skips),
		}
		if err != nil {
			result.Error = err.Error()
			results = append(results, result)
			e.logger.Error("stage %s failed after %dms: %v", st.Name(), result.Duration, err)
			return run, results, fmt.Errorf("stage %s: %w", st.Name(), err)
		}
		results = append(results, result)
		e.logger.Debug("stage %s done in %dms %v", st.Name(), result.Duration, result.Skips)
	}

	return run, results, nil
}

func nonZero(counts map[string]int) map[string]int {
	var out map[string]int
	for reason, n := range counts {
		if n == 0 {
			continue
		}
		if out == nil {
			out = make(map[string]int)
		}
		out[reason] = n
	}
	return out
}
