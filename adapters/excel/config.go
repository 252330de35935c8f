package excel

// ExcelConfig controls workbook export
type ExcelConfig struct {
	IncludeScores bool   `json:"include_scores"` // the T x N sheet dominates file size
	IncludeWalks  bool   `json:"include_walks"`
	TimeFormat    string `json:"time_format"`
}

// DefaultExcelConfig returns sensible defaults for report export
func DefaultExcelConfig() ExcelConfig {
	return ExcelConfig{
		IncludeScores: true,
		IncludeWalks:  true,
		TimeFormat:    "2006-01-02 15:04:05",
	}
}

// Sheet names, in workbook order
const (
	SheetSummary     = "Summary"
	SheetScores      = "Scores"
	SheetNetVar      = "NetVar"
	SheetCorrelation = "Correlation"
	SheetCoherence   = "Coherence"
	SheetWalks       = "Walks"
)
