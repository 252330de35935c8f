package api

import (
	"math"
	"time"

	"gocoherence/domain/stage"
	"gocoherence/domain/stats"
)

// Response types mirror domain/stats with every float that can be missing turned into
// a pointer, since encoding/json rejects NaN.

func nullable(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func nullables(values []float64) []*float64 {
	out := make([]*float64, len(values))
	for i, v := range values {
		out[i] = nullable(v)
	}
	return out
}

// SummaryDTO is stats.Summary with missing values as null
type SummaryDTO struct {
	DurationSeconds        int      `json:"duration_seconds"`
	Devices                int      `json:"devices"`
	ChiSquare              *float64 `json:"chi2"`
	DegreesOfFreedom       int      `json:"df"`
	PValue                 *float64 `json:"p_value"`
	FinalDeviation         *float64 `json:"final_cumdev"`
	MeanCorrelation        *float64 `json:"mean_correlation"`
	MaxAbsCorrelation      *float64 `json:"max_abs_correlation"`
	MeanPLV                *float64 `json:"mean_plv"`
	MeanAmplitudeCoherence *float64 `json:"mean_amp_coherence"`
	Windows                int      `json:"windows"`
}

func toSummaryDTO(s stats.Summary) SummaryDTO {
	return SummaryDTO{
		DurationSeconds:        s.DurationSeconds,
		Devices:                s.Devices,
		ChiSquare:              nullable(s.ChiSquare),
		DegreesOfFreedom:       s.DegreesOfFreedom,
		PValue:                 nullable(s.PValue),
		FinalDeviation:         nullable(s.FinalDeviation),
		MeanCorrelation:        nullable(s.MeanCorrelation),
		MaxAbsCorrelation:      nullable(s.MaxAbsCorrelation),
		MeanPLV:                nullable(s.MeanPLV),
		MeanAmplitudeCoherence: nullable(s.MeanAmplitudeCoherence),
		Windows:                s.Windows,
	}
}

// ReportListItem is one entry of GET /api/reports
type ReportListItem struct {
	RunID     string     `json:"run_id"`
	Label     string     `json:"label"`
	CreatedAt time.Time  `json:"created_at"`
	Summary   SummaryDTO `json:"summary"`
}

// ProfileDTO is stats.ScoreProfile with missing values as null
type ProfileDTO struct {
	Serial     string   `json:"serial"`
	Present    int      `json:"present"`
	Mean       *float64 `json:"mean"`
	StdDev     *float64 `json:"std_dev"`
	Median     *float64 `json:"median"`
	Skewness   *float64 `json:"skewness"`
	Kurtosis   *float64 `json:"kurtosis"`
	NormalityP *float64 `json:"normality_p"`
	Outliers   int      `json:"outliers"`
}

// ReportDTO is the body of GET /api/reports/:id. Series are served by the sub-resources.
type ReportDTO struct {
	RunID     string                `json:"run_id"`
	Label     string                `json:"label"`
	CreatedAt time.Time             `json:"created_at"`
	Start     time.Time             `json:"start"`
	Serials   []string              `json:"serials"`
	Devices   []stats.DeviceSummary `json:"devices"`
	Summary   SummaryDTO            `json:"summary"`
	Profiles  []ProfileDTO          `json:"profiles"`
	Stages    []stage.StageResult   `json:"stages"`
	RuntimeMs int64                 `json:"runtime_ms"`
}

func toReportDTO(r *stats.Report) ReportDTO {
	dto := ReportDTO{
		RunID:     r.RunID.String(),
		Label:     r.Label,
		CreatedAt: r.CreatedAt,
		Serials:   r.Serials(),
		Devices:   r.Devices,
		Summary:   toSummaryDTO(r.Summary),
		Profiles:  make([]ProfileDTO, 0, len(r.Profiles)),
		Stages:    r.Stages,
		RuntimeMs: r.RuntimeMs,
	}
	if r.Scores != nil {
		dto.Start = r.Scores.Axis.Start
	}
	for _, p := range r.Profiles {
		dto.Profiles = append(dto.Profiles, ProfileDTO{
			Serial:     p.Serial,
			Present:    p.Present,
			Mean:       nullable(p.Mean),
			StdDev:     nullable(p.StdDev),
			Median:     nullable(p.Median),
			Skewness:   nullable(p.Skewness),
			Kurtosis:   nullable(p.Kurtosis),
			NormalityP: nullable(p.NormalityP),
			Outliers:   p.Outliers,
		})
	}
	return dto
}

// NetVarDTO is the network variance time series
type NetVarDTO struct {
	Times               []time.Time `json:"times"`
	Stouffer            []*float64  `json:"stouffer_z"`
	Contribution        []*float64  `json:"netvar"`
	CumulativeDeviation []*float64  `json:"cumdev"`
	ChiSquare           *float64    `json:"chi2"`
	DegreesOfFreedom    int         `json:"df"`
	PValue              *float64    `json:"p_value"`
}

func toNetVarDTO(r *stats.Report) NetVarDTO {
	nv := r.Network
	return NetVarDTO{
		Times:               r.Scores.Axis.Times(),
		Stouffer:            nullables(nv.Stouffer),
		Contribution:        nullables(nv.Contribution),
		CumulativeDeviation: nullables(nv.CumulativeDeviation),
		ChiSquare:           nullable(nv.ChiSquare),
		DegreesOfFreedom:    nv.DegreesOfFreedom,
		PValue:              nullable(nv.PValue),
	}
}

// CorrelationDTO is the pairwise matrix
type CorrelationDTO struct {
	Serials []string     `json:"serials"`
	Values  [][]*float64 `json:"values"`
	Overlap [][]int      `json:"overlap"`
}

func toCorrelationDTO(c *stats.CorrelationMatrix) CorrelationDTO {
	values := make([][]*float64, len(c.Values))
	for i, row := range c.Values {
		values[i] = nullables(row)
	}
	return CorrelationDTO{Serials: c.Serials, Values: values, Overlap: c.Overlap}
}

// CoherenceDTO is the windowed coherence series
type CoherenceDTO struct {
	Band               stats.Band  `json:"band"`
	WindowSize         int         `json:"window_size"`
	WindowStarts       []int       `json:"window_starts"`
	Centers            []time.Time `json:"centers"`
	PLV                []*float64  `json:"plv"`
	AmplitudeCoherence []*float64  `json:"amp_coherence"`
	ContributingPairs  []int       `json:"contributing_pairs"`
	PairCount          int         `json:"pair_count"`
}

func toCoherenceDTO(r *stats.Report) CoherenceDTO {
	c := r.Coherence
	return CoherenceDTO{
		Band:               c.Band,
		WindowSize:         c.WindowSize,
		WindowStarts:       c.WindowStarts,
		Centers:            c.Centers(r.Scores.Axis),
		PLV:                nullables(c.PLV),
		AmplitudeCoherence: nullables(c.AmplitudeCoherence),
		ContributingPairs:  c.ContributingPairs,
		PairCount:          c.PairCount,
	}
}

// ScoresDTO holds one score column per device
type ScoresDTO struct {
	Times   []time.Time  `json:"times"`
	Serials []string     `json:"serials"`
	Columns [][]*float64 `json:"columns"`
}

func toScoresDTO(r *stats.Report) ScoresDTO {
	m := r.Scores
	columns := make([][]*float64, m.Cols())
	for d := range columns {
		columns[d] = nullables(m.Column(d))
	}
	return ScoresDTO{Times: m.Axis.Times(), Serials: m.Serials, Columns: columns}
}

// ComparisonRowDTO is one metric for both sessions
type ComparisonRowDTO struct {
	Metric string      `json:"metric"`
	Values [2]*float64 `json:"values"`
}

// ComparisonDTO is the body of GET /api/compare
type ComparisonDTO struct {
	Labels   [2]string          `json:"labels"`
	RunIDs   [2]string          `json:"run_ids"`
	Rows     []ComparisonRowDTO `json:"rows"`
	Markdown string             `json:"markdown"`
}

func toComparisonDTO(c *stats.Comparison, markdown string) ComparisonDTO {
	dto := ComparisonDTO{Labels: c.Labels, Markdown: markdown}
	for i, r := range c.Reports {
		if r != nil {
			dto.RunIDs[i] = r.RunID.String()
		}
	}
	for _, row := range c.Rows {
		dto.Rows = append(dto.Rows, ComparisonRowDTO{
			Metric: row.Metric,
			Values: [2]*float64{nullable(row.Values[0]), nullable(row.Values[1])},
		})
	}
	return dto
}
