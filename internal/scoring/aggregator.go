package scoring

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"time"

	"culture_metrics/internal/domain"
)

const (
	decayDays = 365.0
	// unipolar score = min(unipolarCap, unipolarScale * weighted hits)
	unipolarScale = 2.0
	unipolarCap   = 10.0

	highConfidenceReviews   = 50
	mediumConfidenceReviews = 20
)

type DimensionResult struct {
	Score      float64
	Confidence float64
	Evidence   float64
	Reviews    int
}

// Result is the aggregate of one company's review set.
type Result struct {
	Dimensions        map[domain.Dimension]DimensionResult
	OverallConfidence float64
	ReviewCount       int
	PeriodStart       *time.Time
	PeriodEnd         *time.Time
}

type weighted struct {
	review domain.Review
	text   string
	weight float64
}

// Aggregate scores every review once and combines the hits into per-dimension
// scores and relative confidences. The output does not depend on the order of
// reviews. A non-finite number anywhere is a defect and is returned as an error.
func Aggregate(reviews []domain.Review, d *Dictionary, asOf time.Time) (Result, error) {
	items := make([]weighted, 0, len(reviews))
	for _, r := range reviews {
		items = append(items, weighted{review: r, text: r.Text(), weight: RecencyWeight(r.ReviewedAt, asOf)})
	}
	// canonical order keeps float summation bit-identical across permutations
	slices.SortFunc(items, compareWeighted)

	type sums struct {
		a, b    float64
		reviews int
	}
	acc := make(map[domain.Dimension]*sums, len(d.entries))
	for dim := range d.entries {
		acc[dim] = &sums{}
	}

	res := Result{Dimensions: make(map[domain.Dimension]DimensionResult, len(d.entries)), ReviewCount: len(reviews)}
	for _, it := range items {
		if t := it.review.ReviewedAt; t != nil && !t.IsZero() {
			if res.PeriodStart == nil || t.Before(*res.PeriodStart) {
				v := *t
				res.PeriodStart = &v
			}
			if res.PeriodEnd == nil || t.After(*res.PeriodEnd) {
				v := *t
				res.PeriodEnd = &v
			}
		}
		for dim, h := range Score(it.text, d) {
			s := acc[dim]
			s.a += it.weight * float64(h.A)
			s.b += it.weight * float64(h.B)
			if h.Total() > 0 {
				s.reviews++
			}
		}
	}

	maxEvidence := 0.0
	for _, dim := range domain.Dimensions() {
		s := acc[dim]
		var r DimensionResult
		r.Reviews = s.reviews
		if dim.Kind() == domain.Bipolar {
			r.Evidence = s.a + s.b
			if r.Evidence > 0 {
				r.Score = (s.b - s.a) / r.Evidence
			}
		} else {
			r.Evidence = s.a
			r.Score = math.Min(unipolarCap, unipolarScale*s.a)
		}
		maxEvidence = math.Max(maxEvidence, r.Evidence)
		res.Dimensions[dim] = r
	}

	total := 0.0
	for _, dim := range domain.Dimensions() {
		r := res.Dimensions[dim]
		if maxEvidence > 0 {
			r.Confidence = 100 * r.Evidence / maxEvidence
		}
		if !finite(r.Score) || !finite(r.Confidence) || !finite(r.Evidence) {
			return Result{}, fmt.Errorf("scoring: non-finite result on %s: %+v", dim, r)
		}
		res.Dimensions[dim] = r
		total += r.Confidence
	}
	res.OverallConfidence = total / float64(len(res.Dimensions))
	return res, nil
}

// RecencyWeight is exp(-days/365) for the whole calendar days between the
// review date and asOf. Missing dates and future dates weigh 1.0.
func RecencyWeight(at *time.Time, asOf time.Time) float64 {
	if at == nil || at.IsZero() {
		return 1
	}
	days := daysBetween(*at, asOf)
	if days <= 0 {
		return 1
	}
	return math.Exp(-float64(days) / decayDays)
}

func daysBetween(from, to time.Time) int {
	f, t := from.UTC(), to.UTC()
	fd := time.Date(f.Year(), f.Month(), f.Day(), 0, 0, 0, 0, time.UTC)
	td := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return int(td.Sub(fd).Hours() / 24)
}

// Level bands a review count into High / Medium / Low.
func Level(reviews int) string {
	switch {
	case reviews >= highConfidenceReviews:
		return "High"
	case reviews >= mediumConfidenceReviews:
		return "Medium"
	default:
		return "Low"
	}
}

func compareWeighted(x, y weighted) int {
	if c := cmp.Compare(x.review.ID, y.review.ID); c != 0 {
		return c
	}
	if c := cmp.Compare(unixNano(x.review.ReviewedAt), unixNano(y.review.ReviewedAt)); c != 0 {
		return c
	}
	return cmp.Compare(x.text, y.text)
}

func unixNano(t *time.Time) int64 {
	if t == nil {
		return math.MinInt64
	}
	return t.UnixNano()
}

func finite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }
