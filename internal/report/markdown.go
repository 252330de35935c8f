// Package report renders analysis reports and session comparisons as markdown and HTML.
package report

import (
	"fmt"
	"math"
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"gocoherence/domain/stats"
)

const missingCell = "n/a"

// BuildComparison lines up the summaries of a and b.
func BuildComparison(labelA string, a *stats.Report, labelB string, b *stats.Report) *stats.Comparison {
	sa, sb := a.Summary, b.Summary
	row := func(metric, format string, va, vb float64) stats.ComparisonRow {
		return stats.ComparisonRow{Metric: metric, Format: format, Values: [2]float64{va, vb}}
	}
	return &stats.Comparison{
		Labels:  [2]string{labelA, labelB},
		Reports: [2]*stats.Report{a, b},
		Rows: []stats.ComparisonRow{
			row("Duration (seconds)", "%.0f", float64(sa.DurationSeconds), float64(sb.DurationSeconds)),
			row("Devices", "%.0f", float64(sa.Devices), float64(sb.Devices)),
			row("NetVar chi2", "%.1f", sa.ChiSquare, sb.ChiSquare),
			row("NetVar df", "%.0f", float64(sa.DegreesOfFreedom), float64(sb.DegreesOfFreedom)),
			row("NetVar p-value", "%.6f", sa.PValue, sb.PValue),
			row("Mean cross-correlation", "%.5f", sa.MeanCorrelation, sb.MeanCorrelation),
			row("Max |cross-correlation|", "%.5f", sa.MaxAbsCorrelation, sb.MaxAbsCorrelation),
			row("Mean PLV", "%.4f", sa.MeanPLV, sb.MeanPLV),
			row("Mean Amp. Coherence", "%.4f", sa.MeanAmplitudeCoherence, sb.MeanAmplitudeCoherence),
			row("NetVar final cumdev", "%.1f", sa.FinalDeviation, sb.FinalDeviation),
		},
	}
}

func cell(format string, v float64) string {
	if math.IsNaN(v) {
		return missingCell
	}
	return fmt.Sprintf(format, v)
}

// ComparisonMarkdown renders c as a markdown table.
func ComparisonMarkdown(c *stats.Comparison) string {
	var b strings.Builder
	b.WriteString("## Comparison summary\n\n")
	fmt.Fprintf(&b, "| Metric | %s | %s |\n", escape(c.Labels[0]), escape(c.Labels[1]))
	b.WriteString("|---|---:|---:|\n")
	for _, r := range c.Rows {
		fmt.Fprintf(&b, "| %s | %s | %s |\n", escape(r.Metric), cell(r.Format, r.Values[0]), cell(r.Format, r.Values[1]))
	}
	return b.String()
}

// ReportMarkdown renders the headline numbers and per-device table of one report.
func ReportMarkdown(r *stats.Report) string {
	s := r.Summary
	var b strings.Builder
	fmt.Fprintf(&b, "## %s\n\n", escape(labelOf(r)))
	fmt.Fprintf(&b, "Run `%s`, %d devices over %d seconds.\n\n", r.RunID, s.Devices, s.DurationSeconds)

	b.WriteString("| Statistic | Value |\n|---|---:|\n")
	fmt.Fprintf(&b, "| NetVar chi2 | %s |\n", cell("%.1f", s.ChiSquare))
	fmt.Fprintf(&b, "| NetVar df | %d |\n", s.DegreesOfFreedom)
	fmt.Fprintf(&b, "| NetVar p-value | %s |\n", cell("%.6f", s.PValue))
	fmt.Fprintf(&b, "| Final cumulative deviation | %s |\n", cell("%.1f", s.FinalDeviation))
	fmt.Fprintf(&b, "| Mean cross-correlation | %s |\n", cell("%.5f", s.MeanCorrelation))
	fmt.Fprintf(&b, "| Max \\|cross-correlation\\| | %s |\n", cell("%.5f", s.MaxAbsCorrelation))
	fmt.Fprintf(&b, "| Coherence windows | %d |\n", s.Windows)
	fmt.Fprintf(&b, "| Mean PLV | %s |\n", cell("%.4f", s.MeanPLV))
	fmt.Fprintf(&b, "| Mean amplitude coherence | %s |\n", cell("%.4f", s.MeanAmplitudeCoherence))

	if len(r.Devices) > 0 {
		b.WriteString("\n| Device | Reads | First | Last | Seconds present | Mean Z | SD Z |\n")
		b.WriteString("|---|---:|---|---|---:|---:|---:|\n")
		profiles := make(map[string]stats.ScoreProfile, len(r.Profiles))
		for _, p := range r.Profiles {
			profiles[p.Serial] = p
		}
		for _, d := range r.Devices {
			p, ok := profiles[d.Serial]
			mean, sd := math.NaN(), math.NaN()
			if ok && p.Present > 0 {
				mean, sd = p.Mean, p.StdDev
			}
			fmt.Fprintf(&b, "| %s | %d | %s | %s | %d | %s | %s |\n",
				escape(d.Serial), d.Reads, d.First.Format("15:04:05"), d.Last.Format("15:04:05"),
				d.PresentSeconds, cell("%.3f", mean), cell("%.3f", sd))
		}
	}
	return b.String()
}

func labelOf(r *stats.Report) string {
	if r.Label != "" {
		return r.Label
	}
	return r.RunID.String()
}

func escape(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}

// ToHTML converts markdown to an HTML fragment, tables included.
func ToHTML(md string) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	doc := p.Parse([]byte(md))
	renderer := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags | html.HrefTargetBlank})
	return markdown.Render(doc, renderer)
}
