package app

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"culture_metrics/internal/domain"
	"culture_metrics/internal/scoring"
)

/********** alias registry for the raw extraction payload **********/

var payloadAliases = map[string][]string{
	"recommend": {"recommend_to_friend_rating", "recommendToFriendRating", "ratings.recommend_to_friend", "recommend"},
	"ceo":       {"ceo_rating", "ceoRating", "ratings.ceo", "ceo_approval"},
}

// recommendThreshold: a recommend rating at or above this counts as "would recommend".
const recommendThreshold = 4.0

/********** tiny helpers **********/

// lookupAny: safe nested lookup with dot paths on maps.
func lookupAny(m map[string]any, path string) any {
	cur := any(m)
	for _, part := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		v, ok := obj[part]
		if !ok {
			return nil
		}
		cur = v
	}
	return cur
}

// getFloatFlexible: number from several paths (float64/int/string like "4,0").
// Zero is treated as "not given", matching how the extraction side fills blanks.
func getFloatFlexible(m map[string]any, paths ...string) *float64 {
	for _, k := range paths {
		switch v := lookupAny(m, k).(type) {
		case float64:
			if v != 0 {
				f := v
				return &f
			}
		case int:
			if v != 0 {
				f := float64(v)
				return &f
			}
		case string:
			s := strings.TrimSpace(strings.ReplaceAll(v, ",", "."))
			if s == "" {
				continue
			}
			if f, err := strconv.ParseFloat(s, 64); err == nil && f != 0 {
				return &f
			}
		}
	}
	return nil
}

func round(f float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(f*p) / p
}

type mean struct {
	sum float64
	n   int
}

func (m *mean) add(p *float64) {
	if p == nil || *p == 0 || math.IsNaN(*p) {
		return
	}
	m.sum += *p
	m.n++
}

func (m mean) value() float64 {
	if m.n == 0 {
		return 0
	}
	return round(m.sum/float64(m.n), 2)
}

/********** ratings summary **********/

// summarizeRatings averages the star ratings of a review set. Recommend and CEO
// ratings are only present in the raw payload.
func summarizeRatings(reviews []domain.Review) domain.RatingsSummary {
	var overall, wlb, culture, career, comp, mgmt, ceo mean
	var recommend, recommended int
	for _, r := range reviews {
		overall.add(r.Rating)
		wlb.add(r.WorkLifeBalance)
		culture.add(r.CultureValues)
		career.add(r.CareerOpportunities)
		comp.add(r.CompensationBenefits)
		mgmt.add(r.SeniorManagement)

		if len(r.RawJSON) == 0 {
			continue
		}
		var payload map[string]any
		if err := json.Unmarshal(r.RawJSON, &payload); err != nil {
			log.Debug().Err(err).Int64("review", r.ID).Str("context", "summarizeRatings").Msg("unreadable review payload")
			continue
		}
		if f := getFloatFlexible(payload, payloadAliases["recommend"]...); f != nil {
			recommend++
			if *f >= recommendThreshold {
				recommended++
			}
		}
		ceo.add(getFloatFlexible(payload, payloadAliases["ceo"]...))
	}

	out := domain.RatingsSummary{
		Overall:              overall.value(),
		WorkLifeBalance:      wlb.value(),
		CultureValues:        culture.value(),
		CareerOpportunities:  career.value(),
		CompensationBenefits: comp.value(),
		SeniorManagement:     mgmt.value(),
		CEOApproval:          ceo.value(),
	}
	if recommend > 0 {
		out.RecommendPercentage = round(100*float64(recommended)/float64(recommend), 1)
	}
	return out
}

/********** metrics record **********/

func toCompanyMetrics(companyID, version string, res scoring.Result, ratings domain.RatingsSummary, computedAt time.Time) domain.CompanyMetrics {
	dims := make(map[domain.Dimension]domain.DimensionScore, len(res.Dimensions))
	for dim, r := range res.Dimensions {
		dims[dim] = domain.DimensionScore{
			Score:      r.Score,
			Confidence: r.Confidence,
			Evidence:   r.Evidence,
			Reviews:    r.Reviews,
			Level:      scoring.Level(r.Reviews),
		}
	}
	return domain.CompanyMetrics{
		CompanyID:         companyID,
		DictionaryVersion: version,
		Dimensions:        dims,
		OverallConfidence: res.OverallConfidence,
		OverallLevel:      scoring.Level(res.ReviewCount),
		ReviewCount:       res.ReviewCount,
		Ratings:           ratings,
		PeriodStart:       res.PeriodStart,
		PeriodEnd:         res.PeriodEnd,
		ComputedAt:        computedAt.UTC(),
	}
}

// noDataMetrics is the explicit "insufficient data" shape: every dimension
// present with zero evidence and zero confidence.
func noDataMetrics(companyID, version string) domain.CompanyMetrics {
	dims := make(map[domain.Dimension]domain.DimensionScore, len(domain.Dimensions()))
	for _, dim := range domain.Dimensions() {
		dims[dim] = domain.DimensionScore{Level: scoring.Level(0)}
	}
	return domain.CompanyMetrics{
		CompanyID:         companyID,
		DictionaryVersion: version,
		Dimensions:        dims,
		OverallLevel:      scoring.Level(0),
	}
}
