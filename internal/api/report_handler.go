package api

import (
	"bytes"
	"net/http"

	"github.com/gin-gonic/gin"

	"gocoherence/adapters/stats/stages"
	"gocoherence/app"
	"gocoherence/domain/core"
	"gocoherence/domain/stats"
	"gocoherence/internal"
	"gocoherence/internal/errors"
	"gocoherence/internal/report"
	"gocoherence/ports"
)

// ReportHandler serves analysis reports to an external renderer
type ReportHandler struct {
	service  *app.CoherenceService
	store    ports.ReportStorePort
	exporter ports.ReportExporterPort
	sources  SourceFactory
	options  stages.Options
	hub      *SSEHub
	logger   *internal.Logger
}

// AnalyzeBody is the body of POST /api/reports
type AnalyzeBody struct {
	Session       string   `json:"session" binding:"required"`
	Format        string   `json:"format"`
	Label         string   `json:"label"`
	LowHz         *float64 `json:"low_hz"`
	HighHz        *float64 `json:"high_hz"`
	Order         *int     `json:"order"`
	WindowSeconds *int     `json:"window_seconds"`
}

// options overlays the request's analysis overrides on the server defaults
func (b AnalyzeBody) options(defaults stages.Options) stages.Options {
	opts := defaults
	if b.LowHz != nil {
		opts.Band.LowHz = *b.LowHz
	}
	if b.HighHz != nil {
		opts.Band.HighHz = *b.HighHz
	}
	if b.Order != nil {
		opts.Band.Order = *b.Order
	}
	if b.WindowSeconds != nil {
		opts.WindowSize = *b.WindowSeconds
	}
	return opts
}

func respondError(c *gin.Context, err error) {
	c.JSON(errors.HTTPStatus(err), gin.H{"error": err.Error(), "code": errors.GetCode(err)})
}

// report looks up :id, writing a 404 when it is unknown
func (h *ReportHandler) report(c *gin.Context) (*stats.Report, bool) {
	r, ok := h.store.Get(c.Param("id"))
	if !ok {
		respondError(c, errors.NotFound("report "+c.Param("id")))
		return nil, false
	}
	return r, true
}

// Health reports liveness and the number of reports held
func (h *ReportHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "reports": len(h.store.List())})
}

// ListReports returns the stored reports, newest first
func (h *ReportHandler) ListReports(c *gin.Context) {
	reports := h.store.List()
	items := make([]ReportListItem, 0, len(reports))
	for _, r := range reports {
		items = append(items, ReportListItem{
			RunID:     r.RunID.String(),
			Label:     r.Label,
			CreatedAt: r.CreatedAt,
			Summary:   toSummaryDTO(r.Summary),
		})
	}
	c.JSON(http.StatusOK, items)
}

// CreateReport analyzes a recorded session from the data directory
func (h *ReportHandler) CreateReport(c *gin.Context) {
	var body AnalyzeBody
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, errors.ValidationError(err.Error()))
		return
	}
	source, err := h.sources(body.Session, body.Format)
	if err != nil {
		respondError(c, err)
		return
	}

	r, err := h.service.Analyze(c.Request.Context(), app.AnalyzeRequest{
		Source:  source,
		Label:   body.Label,
		Options: body.options(h.options),
	})
	if err != nil {
		h.logger.Warn("analysis of %s failed: %v", body.Session, err)
		if h.hub != nil {
			h.hub.Broadcast(RunEvent{
				EventType: EventAnalysisFailed,
				Label:     body.Session,
				Data:      map[string]interface{}{"error": err.Error()},
			})
		}
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toReportDTO(r))
}

// GetReport returns the report header, summary, profiles and stage log
func (h *ReportHandler) GetReport(c *gin.Context) {
	if r, ok := h.report(c); ok {
		c.JSON(http.StatusOK, toReportDTO(r))
	}
}

// GetNetVar returns the network variance series
func (h *ReportHandler) GetNetVar(c *gin.Context) {
	if r, ok := h.report(c); ok {
		c.JSON(http.StatusOK, toNetVarDTO(r))
	}
}

// GetCorrelation returns the cross-correlation matrix
func (h *ReportHandler) GetCorrelation(c *gin.Context) {
	if r, ok := h.report(c); ok {
		c.JSON(http.StatusOK, toCorrelationDTO(r.Correlation))
	}
}

// GetCoherence returns the windowed coherence series
func (h *ReportHandler) GetCoherence(c *gin.Context) {
	if r, ok := h.report(c); ok {
		c.JSON(http.StatusOK, toCoherenceDTO(r))
	}
}

// GetScores returns the per-device Z-score columns
func (h *ReportHandler) GetScores(c *gin.Context) {
	if r, ok := h.report(c); ok {
		c.JSON(http.StatusOK, toScoresDTO(r))
	}
}

// GetWalks returns the downsampled random walks keyed by serial
func (h *ReportHandler) GetWalks(c *gin.Context) {
	if r, ok := h.report(c); ok {
		c.JSON(http.StatusOK, r.Walks)
	}
}

// GetMarkdown renders the report as markdown, or HTML with ?format=html
func (h *ReportHandler) GetMarkdown(c *gin.Context) {
	r, ok := h.report(c)
	if !ok {
		return
	}
	md := report.ReportMarkdown(r)
	if c.Query("format") == "html" {
		c.Data(http.StatusOK, "text/html; charset=utf-8", report.ToHTML(md))
		return
	}
	c.Data(http.StatusOK, "text/markdown; charset=utf-8", []byte(md))
}

// GetWorkbook streams the report as an .xlsx download
func (h *ReportHandler) GetWorkbook(c *gin.Context) {
	r, ok := h.report(c)
	if !ok {
		return
	}
	if h.exporter == nil {
		respondError(c, errors.NotFound("workbook export"))
		return
	}
	var buf bytes.Buffer
	if err := h.exporter.Export(c.Request.Context(), r, &buf); err != nil {
		respondError(c, errors.Wrap(err, "workbook export failed"))
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+r.RunID.String()+`.xlsx"`)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}

// Compare lines up two stored reports: ?a=<id>&b=<id>
func (h *ReportHandler) Compare(c *gin.Context) {
	idA, errA := core.ParseRunID(c.Query("a"))
	idB, errB := core.ParseRunID(c.Query("b"))
	if errA != nil || errB != nil {
		respondError(c, errors.InvalidInput("compare requires ?a=<id>&b=<id>"))
		return
	}
	a, okA := h.store.Get(idA.String())
	b, okB := h.store.Get(idB.String())
	if !okA || !okB {
		respondError(c, errors.NotFound("comparison reports"))
		return
	}
	comparison := report.BuildComparison(a.Label, a, b.Label, b)
	c.JSON(http.StatusOK, toComparisonDTO(comparison, report.ComparisonMarkdown(comparison)))
}
