package stats

import (
	"math"
	"time"

	"gocoherence/domain/core"
	"gocoherence/domain/entropy"
	"gocoherence/domain/epoch"
	"gocoherence/domain/stage"
)

// ============================================================================
// NETWORK VARIANCE
// ============================================================================

// NetworkVariance is the Stouffer-combined network statistic and its chi-square test.
// INVARIANTS:
// - Stouffer, Contribution and CumulativeDeviation all have length T
// - Stouffer[t] and Contribution[t] are missing (NaN) where fewer than 2 devices reported
// - CumulativeDeviation is never missing; it holds its previous value across missing buckets
type NetworkVariance struct {
	Stouffer            []float64 `json:"stouffer_z"`
	Contribution        []float64 `json:"netvar"`
	CumulativeDeviation []float64 `json:"cumdev"`
	ChiSquare           float64   `json:"chi2"`
	DegreesOfFreedom    int       `json:"df"`
	PValue              float64   `json:"p_value"`
}

// FinalDeviation returns the last cumulative deviation value, or 0 for an empty series.
func (n *NetworkVariance) FinalDeviation() float64 {
	if n == nil || len(n.CumulativeDeviation) == 0 {
		return 0
	}
	return n.CumulativeDeviation[len(n.CumulativeDeviation)-1]
}

// ============================================================================
// CORRELATION
// ============================================================================

// MinCorrelationOverlap is the smallest number of co-present buckets for which a
// correlation is reported.
const MinCorrelationOverlap = 3

// CorrelationMatrix is the N x N pairwise Pearson matrix of per-device scores.
// Undefined cells (too little overlap, zero variance) hold NaN.
type CorrelationMatrix struct {
	Serials []string    `json:"serials"`
	Values  [][]float64 `json:"values"`
	Overlap [][]int     `json:"overlap"` // co-present bucket counts
}

// At returns cell (i, j).
func (c *CorrelationMatrix) At(i, j int) float64 { return c.Values[i][j] }

// OffDiagonal returns the defined upper-triangle values (i < j).
func (c *CorrelationMatrix) OffDiagonal() []float64 {
	var out []float64
	for i := range c.Values {
		for j := i + 1; j < len(c.Values[i]); j++ {
			if !math.IsNaN(c.Values[i][j]) {
				out = append(out, c.Values[i][j])
			}
		}
	}
	return out
}

// ============================================================================
// COHERENCE
// ============================================================================

// Band describes the band-pass filter applied before the analytic-signal transform.
type Band struct {
	LowHz        float64 `json:"low_hz"`
	HighHz       float64 `json:"high_hz"`
	Order        int     `json:"order"`
	SampleRateHz float64 `json:"sample_rate_hz"`
}

// DefaultBand is 0.01-0.1 Hz, 4th order, at one sample per second.
func DefaultBand() Band {
	return Band{LowHz: 0.01, HighHz: 0.1, Order: 4, SampleRateHz: 1.0}
}

// DefaultWindowSeconds is the default coherence window length.
const DefaultWindowSeconds = 60

// CoherenceSeries holds per-window phase and amplitude coherence averaged over device pairs.
type CoherenceSeries struct {
	Band               Band      `json:"band"`
	WindowSize         int       `json:"window_size"`
	WindowStarts       []int     `json:"window_starts"` // bucket offsets
	PLV                []float64 `json:"plv"`
	AmplitudeCoherence []float64 `json:"amp_coherence"`
	ContributingPairs  []int     `json:"contributing_pairs"` // pairs with non-zero envelope variance
	PairCount          int       `json:"pair_count"`
}

// Windows returns the number of windows.
func (c *CoherenceSeries) Windows() int { return len(c.WindowStarts) }

// Centers returns the instant at the middle of each window, skipping windows whose
// centre falls beyond the axis.
func (c *CoherenceSeries) Centers(axis epoch.Axis) []time.Time {
	centers := make([]time.Time, 0, len(c.WindowStarts))
	for _, start := range c.WindowStarts {
		idx := start + c.WindowSize/2
		if idx >= axis.Length {
			continue
		}
		centers = append(centers, axis.At(idx))
	}
	return centers
}

// ============================================================================
// REPORT
// ============================================================================

// DeviceSummary describes one device's contribution to a run.
type DeviceSummary struct {
	Serial         string    `json:"serial"`
	Reads          int       `json:"reads"`
	First          time.Time `json:"first"`
	Last           time.Time `json:"last"`
	PresentSeconds int       `json:"present_seconds"`
}

// Report bundles every output of one analysis run. It is immutable once returned.
type Report struct {
	RunID       core.RunID                     `json:"run_id"`
	Label       string                         `json:"label"`
	CreatedAt   time.Time                      `json:"created_at"`
	Devices     []DeviceSummary                `json:"devices"`
	Scores      *epoch.ScoreMatrix             `json:"-"`
	Network     *NetworkVariance               `json:"network"`
	Correlation *CorrelationMatrix             `json:"correlation"`
	Coherence   *CoherenceSeries               `json:"coherence"`
	Profiles    []ScoreProfile                 `json:"profiles"`
	Walks       map[string][]entropy.WalkPoint `json:"-"`
	Summary     Summary                        `json:"summary"`
	Stages      []stage.StageResult            `json:"stages"`
	RuntimeMs   int64                          `json:"runtime_ms"`
}

// Serials returns the column order of the report.
func (r *Report) Serials() []string {
	if r.Scores == nil {
		return nil
	}
	return r.Scores.Serials
}

// Duration returns the number of one-second buckets in the report.
func (r *Report) Duration() int {
	if r.Scores == nil {
		return 0
	}
	return r.Scores.Rows()
}

// ============================================================================
// DEVICE DIAGNOSTICS
// ============================================================================

// ScoreProfile summarizes one device's per-second scores. An unbiased device's scores
// are close to standard normal: mean near 0, standard deviation near 1, kurtosis near 3.
type ScoreProfile struct {
	Serial     string  `json:"serial"`
	Present    int     `json:"present"`
	Mean       float64 `json:"mean"`
	StdDev     float64 `json:"std_dev"`
	Min        float64 `json:"min"`
	Max        float64 `json:"max"`
	Median     float64 `json:"median"`
	Q25        float64 `json:"q25"`
	Q75        float64 `json:"q75"`
	Skewness   float64 `json:"skewness"`
	Kurtosis   float64 `json:"kurtosis"`
	JarqueBera float64 `json:"jarque_bera"`
	NormalityP float64 `json:"normality_p"`
	Outliers   int     `json:"outliers"` // scores beyond 1.5 IQR from the quartiles
}

// ============================================================================
// SUMMARY
// ============================================================================

// Summary holds the headline numbers of a report, as compared across sessions.
// Undefined values are NaN.
type Summary struct {
	DurationSeconds        int     `json:"duration_seconds"`
	Devices                int     `json:"devices"`
	ChiSquare              float64 `json:"chi2"`
	DegreesOfFreedom       int     `json:"df"`
	PValue                 float64 `json:"p_value"`
	FinalDeviation         float64 `json:"final_cumdev"`
	MeanCorrelation        float64 `json:"mean_correlation"`
	MaxAbsCorrelation      float64 `json:"max_abs_correlation"`
	MeanPLV                float64 `json:"mean_plv"`
	MeanAmplitudeCoherence float64 `json:"mean_amp_coherence"`
	Windows                int     `json:"windows"`
}

// ============================================================================
// COMPARISON
// ============================================================================

// ComparisonRow is one metric shown for two sessions side by side.
type ComparisonRow struct {
	Metric string     `json:"metric"`
	Values [2]float64 `json:"values"`
	Format string     `json:"-"` // fmt verb for rendering, e.g. "%.4f"
}

// Comparison contrasts two analysis reports.
type Comparison struct {
	Labels  [2]string       `json:"labels"`
	Reports [2]*Report      `json:"-"`
	Rows    []ComparisonRow `json:"rows"`
}
