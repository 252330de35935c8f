package excel

import (
	"context"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/xuri/excelize/v2"

	"gocoherence/domain/stats"
	"gocoherence/internal"
)

// ReportWriter exports a report as an .xlsx workbook. Missing values become blank cells.
type ReportWriter struct {
	config ExcelConfig
	logger *internal.Logger
}

// NewReportWriter creates a writer with the given configuration
func NewReportWriter(config ExcelConfig, logger *internal.Logger) *ReportWriter {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	if config.TimeFormat == "" {
		config.TimeFormat = DefaultExcelConfig().TimeFormat
	}
	return &ReportWriter{config: config, logger: logger.With("excel")}
}

// Export writes the workbook to w.
func (rw *ReportWriter) Export(ctx context.Context, report *stats.Report, w io.Writer) error {
	if report == nil {
		return fmt.Errorf("no report to export")
	}
	startTime := time.Now()

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		return fmt.Errorf("failed to name summary sheet: %w", err)
	}

	steps := []struct {
		sheet   string
		enabled bool
		write   func(*excelize.File, *stats.Report) error
	}{
		{SheetSummary, true, rw.writeSummary},
		{SheetScores, rw.config.IncludeScores && report.Scores != nil, rw.writeScores},
		{SheetNetVar, report.Network != nil && report.Scores != nil, rw.writeNetVar},
		{SheetCorrelation, report.Correlation != nil, rw.writeCorrelation},
		{SheetCoherence, report.Coherence != nil, rw.writeCoherence},
		{SheetWalks, rw.config.IncludeWalks && len(report.Walks) > 0, rw.writeWalks},
	}
	for _, step := range steps {
		if !step.enabled {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if step.sheet != SheetSummary {
			if _, err := f.NewSheet(step.sheet); err != nil {
				return fmt.Errorf("failed to create sheet %s: %w", step.sheet, err)
			}
		}
		if err := step.write(f, report); err != nil {
			return fmt.Errorf("failed to write sheet %s: %w", step.sheet, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	rw.logger.Debug("exported report %s in %.2fms", report.RunID, float64(time.Since(startTime).Nanoseconds())/1e6)
	return nil
}

// value maps NaN to nil so the cell stays empty.
func value(v float64) interface{} {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return v
}

func setRow(f *excelize.File, sheet string, row int, values ...interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}

func (rw *ReportWriter) writeSummary(f *excelize.File, r *stats.Report) error {
	s := r.Summary
	rows := [][]interface{}{
		{"Run ID", r.RunID.String()},
		{"Label", r.Label},
		{"Created", r.CreatedAt.Format(rw.config.TimeFormat)},
		{"Devices", s.Devices},
		{"Duration (seconds)", s.DurationSeconds},
		{"NetVar chi2", value(s.ChiSquare)},
		{"NetVar df", s.DegreesOfFreedom},
		{"NetVar p-value", value(s.PValue)},
		{"NetVar final cumdev", value(s.FinalDeviation)},
		{"Mean cross-correlation", value(s.MeanCorrelation)},
		{"Max |cross-correlation|", value(s.MaxAbsCorrelation)},
		{"Coherence windows", s.Windows},
		{"Mean PLV", value(s.MeanPLV)},
		{"Mean Amp. Coherence", value(s.MeanAmplitudeCoherence)},
	}
	if c := r.Coherence; c != nil {
		rows = append(rows,
			[]interface{}{"Band (Hz)", fmt.Sprintf("%g-%g", c.Band.LowHz, c.Band.HighHz)},
			[]interface{}{"Filter order", c.Band.Order},
			[]interface{}{"Window (seconds)", c.WindowSize},
		)
	}
	row := 1
	for _, values := range rows {
		if err := setRow(f, SheetSummary, row, values...); err != nil {
			return err
		}
		row++
	}

	row++
	if err := setRow(f, SheetSummary, row, "Device", "Reads", "First", "Last", "Seconds present", "Mean Z", "SD Z", "Normality p"); err != nil {
		return err
	}
	profiles := make(map[string]stats.ScoreProfile, len(r.Profiles))
	for _, p := range r.Profiles {
		profiles[p.Serial] = p
	}
	for _, d := range r.Devices {
		row++
		p := profiles[d.Serial]
		var mean, sd, normal interface{}
		if p.Present > 0 && p.StdDev > 0 {
			mean, sd, normal = value(p.Mean), value(p.StdDev), value(p.NormalityP)
		}
		if err := setRow(f, SheetSummary, row, d.Serial, d.Reads,
			d.First.Format(rw.config.TimeFormat), d.Last.Format(rw.config.TimeFormat),
			d.PresentSeconds, mean, sd, normal); err != nil {
			return err
		}
	}
	return nil
}

func (rw *ReportWriter) writeScores(f *excelize.File, r *stats.Report) error {
	sw, err := f.NewStreamWriter(SheetScores)
	if err != nil {
		return err
	}
	m := r.Scores
	header := make([]interface{}, 0, m.Cols()+1)
	header = append(header, "Time")
	for _, serial := range m.Serials {
		header = append(header, serial)
	}
	if err := sw.SetRow("A1", header); err != nil {
		return err
	}
	for t := 0; t < m.Rows(); t++ {
		values := make([]interface{}, 0, m.Cols()+1)
		values = append(values, m.Axis.At(t).Format(rw.config.TimeFormat))
		for d := 0; d < m.Cols(); d++ {
			values = append(values, value(m.At(t, d)))
		}
		cell, err := excelize.CoordinatesToCellName(1, t+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, values); err != nil {
			return err
		}
	}
	return sw.Flush()
}

func (rw *ReportWriter) writeNetVar(f *excelize.File, r *stats.Report) error {
	sw, err := f.NewStreamWriter(SheetNetVar)
	if err != nil {
		return err
	}
	if err := sw.SetRow("A1", []interface{}{"Time", "Stouffer Z", "NetVar", "Cumulative deviation"}); err != nil {
		return err
	}
	nv := r.Network
	for t := range nv.Stouffer {
		cell, err := excelize.CoordinatesToCellName(1, t+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, []interface{}{
			r.Scores.Axis.At(t).Format(rw.config.TimeFormat),
			value(nv.Stouffer[t]),
			value(nv.Contribution[t]),
			value(nv.CumulativeDeviation[t]),
		}); err != nil {
			return err
		}
	}
	return sw.Flush()
}

func (rw *ReportWriter) writeCorrelation(f *excelize.File, r *stats.Report) error {
	c := r.Correlation
	header := make([]interface{}, 0, len(c.Serials)+1)
	header = append(header, "")
	for _, serial := range c.Serials {
		header = append(header, serial)
	}
	if err := setRow(f, SheetCorrelation, 1, header...); err != nil {
		return err
	}
	for i, serial := range c.Serials {
		values := make([]interface{}, 0, len(c.Serials)+1)
		values = append(values, serial)
		for j := range c.Serials {
			values = append(values, value(c.At(i, j)))
		}
		if err := setRow(f, SheetCorrelation, i+2, values...); err != nil {
			return err
		}
	}
	return nil
}

func (rw *ReportWriter) writeCoherence(f *excelize.File, r *stats.Report) error {
	c := r.Coherence
	if err := setRow(f, SheetCoherence, 1, "Window start (s)", "Window centre", "PLV", "Amp. coherence", "Contributing pairs"); err != nil {
		return err
	}
	var centers []time.Time
	if r.Scores != nil {
		centers = c.Centers(r.Scores.Axis)
	}
	for w, start := range c.WindowStarts {
		var center interface{}
		if w < len(centers) {
			center = centers[w].Format(rw.config.TimeFormat)
		}
		if err := setRow(f, SheetCoherence, w+2, start, center, value(c.PLV[w]), value(c.AmplitudeCoherence[w]), c.ContributingPairs[w]); err != nil {
			return err
		}
	}
	return nil
}

func (rw *ReportWriter) writeWalks(f *excelize.File, r *stats.Report) error {
	sw, err := f.NewStreamWriter(SheetWalks)
	if err != nil {
		return err
	}
	if err := sw.SetRow("A1", []interface{}{"Device", "Time", "Position"}); err != nil {
		return err
	}
	row := 2
	for _, serial := range r.Serials() {
		for _, p := range r.Walks[serial] {
			cell, err := excelize.CoordinatesToCellName(1, row)
			if err != nil {
				return err
			}
			if err := sw.SetRow(cell, []interface{}{serial, p.Timestamp.Format(rw.config.TimeFormat), p.Position}); err != nil {
				return err
			}
			row++
		}
	}
	return sw.Flush()
}
