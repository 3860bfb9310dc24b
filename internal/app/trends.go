package app

import (
	"cmp"
	"context"
	"fmt"
	"math"
	"slices"
	"time"

	"culture_metrics/internal/domain"
	"culture_metrics/internal/scoring"
)

const minQuarterReviews = 5

// insight thresholds
const (
	bipolarStrong   = 0.5
	unipolarHigh    = 6.0
	unipolarLow     = 4.0
	insightsPerKind = 3
)

// CultureTrends aggregates each calendar quarter on its own, as of the
// quarter's last instant. Undated reviews and thin quarters are left out.
func (s *MetricsService) CultureTrends(ctx context.Context, companyID string) ([]domain.QuarterTrend, error) {
	reviews, err := s.reviews.FetchReviews(ctx, companyID, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch reviews: %v", domain.ErrUnavailable, err)
	}
	if len(reviews) == 0 {
		return nil, s.noReviews(ctx, companyID)
	}

	byQuarter := map[time.Time][]domain.Review{}
	for _, r := range reviews {
		if r.ReviewedAt == nil || r.ReviewedAt.IsZero() {
			continue
		}
		q := quarterStart(*r.ReviewedAt)
		byQuarter[q] = append(byQuarter[q], r)
	}
	starts := make([]time.Time, 0, len(byQuarter))
	for q := range byQuarter {
		starts = append(starts, q)
	}
	slices.SortFunc(starts, func(a, b time.Time) int { return a.Compare(b) })

	out := make([]domain.QuarterTrend, 0, len(starts))
	for _, q := range starts {
		rs := byQuarter[q]
		if len(rs) < minQuarterReviews {
			continue
		}
		end := q.AddDate(0, 3, 0).Add(-time.Nanosecond)
		res, err := scoring.Aggregate(rs, s.dict, end)
		if err != nil {
			return nil, err
		}
		scores := make(map[domain.Dimension]float64, len(res.Dimensions))
		for dim, r := range res.Dimensions {
			scores[dim] = r.Score
		}
		out = append(out, domain.QuarterTrend{
			Quarter:     quarterLabel(q),
			Start:       q,
			ReviewCount: len(rs),
			Scores:      scores,
		})
	}
	return out, nil
}

// RatingTrends follows one star rating per calendar quarter. Reviews without
// a date or without that rating are left out, as are thin quarters.
func (s *MetricsService) RatingTrends(ctx context.Context, companyID string, kind domain.RatingKind) ([]domain.RatingTrend, error) {
	reviews, err := s.reviews.FetchReviews(ctx, companyID, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch reviews: %v", domain.ErrUnavailable, err)
	}
	if len(reviews) == 0 {
		return nil, s.noReviews(ctx, companyID)
	}

	type quarter struct {
		avg    mean
		lo, hi float64
	}
	byQuarter := map[time.Time]*quarter{}
	for _, r := range reviews {
		v := kind.Of(r)
		if r.ReviewedAt == nil || r.ReviewedAt.IsZero() || v == nil || *v == 0 || math.IsNaN(*v) {
			continue
		}
		start := quarterStart(*r.ReviewedAt)
		q := byQuarter[start]
		if q == nil {
			q = &quarter{lo: *v, hi: *v}
			byQuarter[start] = q
		}
		q.avg.add(v)
		q.lo, q.hi = math.Min(q.lo, *v), math.Max(q.hi, *v)
	}

	out := make([]domain.RatingTrend, 0, len(byQuarter))
	for start, q := range byQuarter {
		if q.avg.n < minQuarterReviews {
			continue
		}
		out = append(out, domain.RatingTrend{
			Quarter:     quarterLabel(start),
			Start:       start,
			Average:     q.avg.value(),
			Min:         q.lo,
			Max:         q.hi,
			ReviewCount: q.avg.n,
		})
	}
	slices.SortFunc(out, func(a, b domain.RatingTrend) int { return a.Start.Compare(b.Start) })
	return out, nil
}

func quarterStart(t time.Time) time.Time {
	t = t.UTC()
	m := time.Month((int(t.Month())-1)/3*3 + 1)
	return time.Date(t.Year(), m, 1, 0, 0, 0, 0, time.UTC)
}

func quarterLabel(start time.Time) string {
	return fmt.Sprintf("Q%d %d", (int(start.Month())-1)/3+1, start.Year())
}

// Insights reads the company's current profile and names its strongest and
// weakest dimensions.
func (s *MetricsService) Insights(ctx context.Context, companyID string) (domain.Insights, error) {
	res, err := s.GetCompanyMetrics(ctx, companyID)
	if err != nil {
		return domain.Insights{}, err
	}
	if res.NoData {
		return domain.Insights{}, fmt.Errorf("%s: %w", companyID, domain.ErrNoData)
	}
	return buildInsights(res.Metrics), nil
}

type dimScore struct {
	dim   domain.Dimension
	score float64
}

func buildInsights(m domain.CompanyMetrics) domain.Insights {
	var bipolar, unipolar []dimScore
	for _, dim := range domain.Dimensions() {
		ds := dimScore{dim, m.Dimensions[dim].Score}
		if dim.Kind() == domain.Bipolar {
			bipolar = append(bipolar, ds)
		} else {
			unipolar = append(unipolar, ds)
		}
	}
	// bipolar ranks by strength of lean in either direction, unipolar by value
	slices.SortStableFunc(bipolar, func(a, b dimScore) int { return cmp.Compare(math.Abs(b.score), math.Abs(a.score)) })
	slices.SortStableFunc(unipolar, func(a, b dimScore) int { return cmp.Compare(b.score, a.score) })

	out := domain.Insights{
		CompanyID:    m.CompanyID,
		Summary:      fmt.Sprintf("Culture analysis for %s based on %d reviews.", m.CompanyID, m.ReviewCount),
		Strengths:    []string{},
		Improvements: []string{},
	}
	for _, d := range head(bipolar) {
		if d.score > bipolarStrong {
			out.Strengths = append(out.Strengths, d.label())
		}
	}
	for _, d := range head(unipolar) {
		if d.score > unipolarHigh {
			out.Strengths = append(out.Strengths, d.label())
		}
	}
	for _, d := range tail(bipolar) {
		if d.score < -bipolarStrong {
			out.Improvements = append(out.Improvements, d.label())
		}
	}
	for _, d := range tail(unipolar) {
		if d.score < unipolarLow {
			out.Improvements = append(out.Improvements, d.label())
		}
	}
	return out
}

func (d dimScore) label() string { return fmt.Sprintf("%s: %.2f", d.dim.Title(), d.score) }

func head(ds []dimScore) []dimScore { return ds[:min(insightsPerKind, len(ds))] }

func tail(ds []dimScore) []dimScore { return ds[len(ds)-min(insightsPerKind, len(ds)):] }
