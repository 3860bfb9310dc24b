package app

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"culture_metrics/internal/domain"
)

// BenchmarkService derives industry views from cached company metrics.
// Nothing it produces is stored.
type BenchmarkService struct {
	metrics *MetricsService
}

func NewBenchmarkService(m *MetricsService) *BenchmarkService {
	return &BenchmarkService{metrics: m}
}

// IndustryAverage is the mean score of dim across non-expired companies,
// optionally limited to one sector.
func (s *BenchmarkService) IndustryAverage(ctx context.Context, dim domain.Dimension, sector *string) (domain.IndustryAverage, error) {
	if !dim.Valid() {
		return domain.IndustryAverage{}, fmt.Errorf("%w: %q", domain.ErrUnknownDimension, dim)
	}
	peers, err := s.metrics.Peers(ctx, sector)
	if err != nil {
		return domain.IndustryAverage{}, err
	}
	if len(peers) == 0 {
		return domain.IndustryAverage{}, fmt.Errorf("industry average: %w", domain.ErrNoData)
	}
	out := domain.IndustryAverage{Dimension: dim, Mean: meanScore(peers, dim), Companies: len(peers)}
	if sector != nil {
		out.Sector = *sector
	}
	return out, nil
}

// IndustryAverages covers every dimension from one peer snapshot.
func (s *BenchmarkService) IndustryAverages(ctx context.Context, sector *string) ([]domain.IndustryAverage, error) {
	peers, err := s.metrics.Peers(ctx, sector)
	if err != nil {
		return nil, err
	}
	if len(peers) == 0 {
		return nil, fmt.Errorf("industry average: %w", domain.ErrNoData)
	}
	out := make([]domain.IndustryAverage, 0, len(domain.Dimensions()))
	for _, dim := range domain.Dimensions() {
		avg := domain.IndustryAverage{Dimension: dim, Mean: meanScore(peers, dim), Companies: len(peers)}
		if sector != nil {
			avg.Sector = *sector
		}
		out = append(out, avg)
	}
	return out, nil
}

// Percentile is the share of companies scoring strictly below companyID on dim,
// out of all current companies including itself. Ties do not count.
func (s *BenchmarkService) Percentile(ctx context.Context, companyID string, dim domain.Dimension) (float64, error) {
	if !dim.Valid() {
		return 0, fmt.Errorf("%w: %q", domain.ErrUnknownDimension, dim)
	}
	target, err := s.target(ctx, companyID)
	if err != nil {
		return 0, err
	}
	peers, err := s.metrics.Peers(ctx, nil)
	if err != nil {
		return 0, err
	}
	return percentile(target, withoutCompany(peers, companyID), dim), nil
}

// Compare loads both companies concurrently and reports B relative to A.
func (s *BenchmarkService) Compare(ctx context.Context, a, b string) (domain.Comparison, error) {
	var ma, mb domain.CompanyMetrics
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		ma, err = s.target(gctx, a)
		return err
	})
	g.Go(func() (err error) {
		mb, err = s.target(gctx, b)
		return err
	})
	if err := g.Wait(); err != nil {
		return domain.Comparison{}, err
	}

	out := domain.Comparison{CompanyA: a, CompanyB: b, Dimensions: make(map[domain.Dimension]domain.DimensionComparison, len(domain.Dimensions()))}
	for _, dim := range domain.Dimensions() {
		da, db := ma.Dimensions[dim], mb.Dimensions[dim]
		out.Dimensions[dim] = domain.DimensionComparison{
			ScoreA:             da.Score,
			ScoreB:             db.Score,
			Delta:              db.Score - da.Score,
			ConfidenceA:        da.Confidence,
			ConfidenceB:        db.Confidence,
			RelativeConfidence: min(da.Confidence, db.Confidence),
		}
	}
	return out, nil
}

// Benchmark places one company against its peers (itself excluded from the mean)
// on every dimension.
func (s *BenchmarkService) Benchmark(ctx context.Context, companyID string) (domain.BenchmarkView, error) {
	target, err := s.target(ctx, companyID)
	if err != nil {
		return domain.BenchmarkView{}, err
	}
	all, err := s.metrics.Peers(ctx, nil)
	if err != nil {
		return domain.BenchmarkView{}, err
	}
	peers := withoutCompany(all, companyID)

	out := domain.BenchmarkView{CompanyID: companyID, Peers: len(peers), Dimensions: make(map[domain.Dimension]domain.BenchmarkEntry, len(domain.Dimensions()))}
	for _, dim := range domain.Dimensions() {
		out.Dimensions[dim] = domain.BenchmarkEntry{
			Company:         target.Dimensions[dim].Score,
			IndustryAverage: meanScore(peers, dim),
			Percentile:      percentile(target, peers, dim),
		}
	}
	return out, nil
}

// target returns current metrics for companyID, refreshing on stale.
func (s *BenchmarkService) target(ctx context.Context, companyID string) (domain.CompanyMetrics, error) {
	res, err := s.metrics.GetCompanyMetrics(ctx, companyID)
	if err != nil {
		return domain.CompanyMetrics{}, err
	}
	if res.NoData {
		return domain.CompanyMetrics{}, fmt.Errorf("%s: %w", companyID, domain.ErrNoData)
	}
	return res.Metrics, nil
}

func withoutCompany(ms []domain.CompanyMetrics, companyID string) []domain.CompanyMetrics {
	out := make([]domain.CompanyMetrics, 0, len(ms))
	for _, m := range ms {
		if m.CompanyID != companyID {
			out = append(out, m)
		}
	}
	return out
}

func meanScore(ms []domain.CompanyMetrics, dim domain.Dimension) float64 {
	if len(ms) == 0 {
		return 0
	}
	var sum float64
	for _, m := range ms {
		sum += m.Dimensions[dim].Score
	}
	return sum / float64(len(ms))
}

// percentile over peers plus the target itself; the top of N distinct scores
// reads 100*(N-1)/N.
func percentile(target domain.CompanyMetrics, peers []domain.CompanyMetrics, dim domain.Dimension) float64 {
	score := target.Dimensions[dim].Score
	below := 0
	for _, p := range peers {
		if p.Dimensions[dim].Score < score {
			below++
		}
	}
	return 100 * float64(below) / float64(len(peers)+1)
}
