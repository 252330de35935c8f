package stage

// StageName represents a named stage in the analysis pipeline
type StageName string

// StageKind categorizes stages by function
type StageKind string

const (
	StageKindPrepare StageKind = "prepare" // binning and standardization
	StageKindStats   StageKind = "stats"   // statistics over the score matrix
	StageKindReport  StageKind = "report"  // presentation-only derivations
)

// Predefined stage names, in pipeline order
const (
	StageAlign       StageName = "align"
	StageStandardize StageName = "standardize"
	StageNetwork     StageName = "network_variance"
	StageCorrelation StageName = "correlation"
	StageCoherence   StageName = "coherence"
	StageProfile     StageName = "profile"
	StageWalk        StageName = "walk"
)

// StageResult records the outcome of one stage execution.
type StageResult struct {
	StageName StageName      `json:"stage_name"`
	Kind      StageKind      `json:"kind"`
	Success   bool           `json:"success"`
	Error     string         `json:"error,omitempty"`
	Duration  int64          `json:"duration_ms"`
	Skips     map[string]int `json:"skips_by_reason,omitempty"` // e.g. {"single_device_bucket": 12}
}
