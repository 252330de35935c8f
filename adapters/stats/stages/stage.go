package stages

import (
	"context"

	"gocoherence/domain/entropy"
	"gocoherence/domain/epoch"
	"gocoherence/domain/stage"
	"gocoherence/domain/stats"
)

// Performance guardrails - explicit caps
const (
	MaxDevices        = 512
	MaxAxisSeconds    = 31 * 24 * 60 * 60 // a stray timestamp must not allocate years of buckets
	DefaultWalkPoints = 50000
)

// Options are the analysis parameters shared by all stages.
type Options struct {
	Band          stats.Band
	WindowSize    int
	Workers       int // <= 0 means GOMAXPROCS for binning and unbounded for filtering
	MaxWalkPoints int // <= 0 means DefaultWalkPoints
}

// DefaultOptions returns the standard band, a 60 s window and automatic concurrency.
func DefaultOptions() Options {
	return Options{
		Band:          stats.DefaultBand(),
		WindowSize:    stats.DefaultWindowSeconds,
		MaxWalkPoints: DefaultWalkPoints,
	}
}

// Run carries the input and every intermediate product through the pipeline.
// Each stage reads what earlier stages wrote and fills in its own field.
type Run struct {
	Streams entropy.StreamSet
	Options Options

	Alignment   *epoch.Alignment
	Scores      *epoch.ScoreMatrix
	Network     *stats.NetworkVariance
	Correlation *stats.CorrelationMatrix
	Coherence   *stats.CoherenceSeries
	Profiles    []stats.ScoreProfile
	Walks       map[string][]entropy.WalkPoint
}

// NewRun starts a pipeline run over streams.
func NewRun(streams entropy.StreamSet, opts Options) *Run {
	return &Run{Streams: streams, Options: opts}
}

// Stage is one step of the analysis pipeline. Execute returns counts of locally
// undefined results by reason; an error aborts the run.
type Stage interface {
	Name() stage.StageName
	Kind() stage.StageKind
	Execute(ctx context.Context, run *Run) (map[string]int, error)
}

// Pipeline returns the standard stage order.
func Pipeline() []Stage {
	return []Stage{
		NewAlignStage(),
		NewStandardizeStage(),
		NewNetworkStage(),
		NewCorrelationStage(),
		NewCoherenceStage(),
		NewProfileStage(),
		NewWalkStage(),
	}
}
