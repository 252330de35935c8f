package app

import (
	"context"

	"golang.org/x/sync/errgroup"

	"gocoherence/domain/stats"
	"gocoherence/internal/report"
)

// CompareService analyzes two sessions and lines up their headline numbers
type CompareService struct {
	coherence *CoherenceService
}

// NewCompareService creates a comparison service on top of the analysis service
func NewCompareService(coherence *CoherenceService) *CompareService {
	return &CompareService{coherence: coherence}
}

// Compare analyzes both sessions concurrently. Either failure fails the comparison.
func (s *CompareService) Compare(ctx context.Context, a, b AnalyzeRequest) (*stats.Comparison, error) {
	var reports [2]*stats.Report
	g, gctx := errgroup.WithContext(ctx)
	for i, req := range []AnalyzeRequest{a, b} {
		i, req := i, req
		g.Go(func() error {
			r, err := s.coherence.Analyze(gctx, req)
			if err != nil {
				return err
			}
			reports[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return report.BuildComparison(reports[0].Label, reports[0], reports[1].Label, reports[1]), nil
}
