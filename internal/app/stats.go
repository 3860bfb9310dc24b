package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"culture_metrics/internal/domain"
)

const statsConcurrency = 4

// Stats builds the dashboard overview from each company's cached profile,
// recomputing the ones that are not Fresh. A company whose metrics cannot be
// produced is left out of the per-company list but still counted.
func (s *MetricsService) Stats(ctx context.Context) (domain.Stats, error) {
	companies, err := s.ListCompanies(ctx, nil)
	if err != nil {
		return domain.Stats{}, err
	}

	rows := make([]*domain.CompanyStats, len(companies))
	out := domain.Stats{Companies: []domain.CompanyStats{}}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(statsConcurrency)
	for i, c := range companies {
		if c.ReviewCount == 0 {
			continue
		}
		out.TotalCompanies++
		out.TotalReviews += c.ReviewCount
		g.Go(func() error {
			res, err := s.GetCompanyMetrics(gctx, c.ID)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				log.Warn().Err(err).Str("company", c.ID).Msg("stats: metrics unavailable, skipping")
				return nil
			}
			if res.NoData {
				return nil
			}
			rows[i] = &domain.CompanyStats{
				ID:          c.ID,
				Name:        c.Name,
				Sector:      c.Sector,
				ReviewCount: c.ReviewCount,
				Ratings:     res.Metrics.Ratings,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return domain.Stats{}, fmt.Errorf("stats: %w", err)
	}

	var sum float64
	var weight int
	for _, r := range rows {
		if r == nil {
			continue
		}
		out.Companies = append(out.Companies, *r)
		if r.Ratings.Overall > 0 {
			sum += r.Ratings.Overall * float64(r.ReviewCount)
			weight += r.ReviewCount
		}
	}
	if weight > 0 {
		out.AverageRating = round(sum/float64(weight), 2)
	}
	return out, nil
}
