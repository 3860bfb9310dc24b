package domain

import (
	"fmt"
	"time"
)

type Company struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Sector      *string `json:"sector,omitempty"`
	ReviewCount int     `json:"review_count"`
}

// DimensionScore is one dimension of a company's cached profile.
type DimensionScore struct {
	Score      float64 `json:"score"`
	Confidence float64 `json:"confidence"` // 0..100, relative to the best-evidenced dimension
	Evidence   float64 `json:"evidence"`   // recency-weighted keyword hits
	Reviews    int     `json:"reviews"`    // reviews contributing at least one hit
	Level      string  `json:"confidence_level"`
}

// RatingsSummary holds star-rating means; zero means no rating of that kind was given.
type RatingsSummary struct {
	Overall              float64 `json:"overall"`
	WorkLifeBalance      float64 `json:"work_life_balance"`
	CultureValues        float64 `json:"culture_values"`
	CareerOpportunities  float64 `json:"career_opportunities"`
	CompensationBenefits float64 `json:"compensation_benefits"`
	SeniorManagement     float64 `json:"senior_management"`
	RecommendPercentage  float64 `json:"recommend_percentage"`
	CEOApproval          float64 `json:"ceo_approval"`
}

// CompanyMetrics is the durable cached unit. It is always replaced whole.
type CompanyMetrics struct {
	CompanyID         string                       `json:"company_id"`
	DictionaryVersion string                       `json:"dictionary_version"`
	Dimensions        map[Dimension]DimensionScore `json:"dimensions"`
	OverallConfidence float64                      `json:"overall_confidence"`
	OverallLevel      string                       `json:"overall_confidence_level"`
	ReviewCount       int                          `json:"review_count"`
	Ratings           RatingsSummary               `json:"ratings"`
	PeriodStart       *time.Time                   `json:"period_start,omitempty"`
	PeriodEnd         *time.Time                   `json:"period_end,omitempty"`
	ComputedAt        time.Time                    `json:"computed_at"`
}

// CacheState is the per-company cache lifecycle state.
type CacheState int

const (
	Absent CacheState = iota
	Fresh
	Stale
)

func (s CacheState) String() string {
	switch s {
	case Fresh:
		return "fresh"
	case Stale:
		return "stale"
	default:
		return "absent"
	}
}

func (s CacheState) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *CacheState) UnmarshalText(b []byte) error {
	switch string(b) {
	case "fresh":
		*s = Fresh
	case "stale":
		*s = Stale
	case "absent":
		*s = Absent
	default:
		return fmt.Errorf("unknown cache state %q", b)
	}
	return nil
}

// MetricsResult is what the dashboard receives: complete metrics (possibly stale)
// or an explicit no-data signal.
type MetricsResult struct {
	Metrics    CompanyMetrics `json:"metrics"`
	State      CacheState     `json:"cache_state"`
	NoData     bool           `json:"no_data"`
	Recomputed bool           `json:"recomputed"`
	Warning    string         `json:"warning,omitempty"`
}

type DimensionComparison struct {
	ScoreA             float64 `json:"score_a"`
	ScoreB             float64 `json:"score_b"`
	Delta              float64 `json:"delta"` // B - A
	ConfidenceA        float64 `json:"confidence_a"`
	ConfidenceB        float64 `json:"confidence_b"`
	RelativeConfidence float64 `json:"relative_confidence"` // the weaker of the two
}

type Comparison struct {
	CompanyA   string                             `json:"company_a"`
	CompanyB   string                             `json:"company_b"`
	Dimensions map[Dimension]DimensionComparison `json:"dimensions"`
}

type IndustryAverage struct {
	Dimension Dimension `json:"dimension"`
	Sector    string    `json:"sector,omitempty"`
	Mean      float64   `json:"mean"`
	Companies int       `json:"companies"`
}

type BenchmarkEntry struct {
	Company         float64 `json:"company"`
	IndustryAverage float64 `json:"industry_average"`
	Percentile      float64 `json:"percentile"`
}

type BenchmarkView struct {
	CompanyID  string                       `json:"company_id"`
	Peers      int                          `json:"peers"`
	Dimensions map[Dimension]BenchmarkEntry `json:"dimensions"`
}

type QuarterTrend struct {
	Quarter     string                `json:"quarter"` // "Q3 2024"
	Start       time.Time             `json:"start"`
	ReviewCount int                   `json:"review_count"`
	Scores      map[Dimension]float64 `json:"scores"`
}

type Insights struct {
	CompanyID    string   `json:"company_id"`
	Summary      string   `json:"summary"`
	Strengths    []string `json:"strengths"`
	Improvements []string `json:"areas_for_improvement"`
}
