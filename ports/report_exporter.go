package ports

import (
	"context"
	"io"

	"gocoherence/domain/stats"
)

// ReportExporterPort renders a finished report to a writer
type ReportExporterPort interface {
	Export(ctx context.Context, report *stats.Report, w io.Writer) error
}

// ReportStorePort keeps finished reports available to readers such as the HTTP API.
// Reports are held in memory only.
type ReportStorePort interface {
	Put(report *stats.Report)
	Get(id string) (*stats.Report, bool)
	List() []*stats.Report
}
