package domain

import (
	"fmt"
	"strings"
	"time"
)

// RatingKind selects one star-rating column of a review.
type RatingKind string

const (
	RatingOverall      RatingKind = "overall"
	RatingCulture      RatingKind = "culture"
	RatingWorkLife     RatingKind = "worklife"
	RatingCompensation RatingKind = "compensation"
	RatingCareer       RatingKind = "career"
	RatingManagement   RatingKind = "management"
)

// ParseRatingKind defaults to overall when s is empty.
func ParseRatingKind(s string) (RatingKind, error) {
	k := RatingKind(strings.ToLower(strings.TrimSpace(s)))
	switch k {
	case "":
		return RatingOverall, nil
	case RatingOverall, RatingCulture, RatingWorkLife, RatingCompensation, RatingCareer, RatingManagement:
		return k, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownRating, s)
}

// Of returns the review's rating of this kind, nil when not given.
func (k RatingKind) Of(r Review) *float64 {
	switch k {
	case RatingCulture:
		return r.CultureValues
	case RatingWorkLife:
		return r.WorkLifeBalance
	case RatingCompensation:
		return r.CompensationBenefits
	case RatingCareer:
		return r.CareerOpportunities
	case RatingManagement:
		return r.SeniorManagement
	default:
		return r.Rating
	}
}

// RatingTrend is one calendar quarter of a single star rating.
type RatingTrend struct {
	Quarter     string    `json:"quarter"`
	Start       time.Time `json:"start"`
	Average     float64   `json:"avg_rating"`
	Min         float64   `json:"min_rating"`
	Max         float64   `json:"max_rating"`
	ReviewCount int       `json:"review_count"`
}

type CompanyStats struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Sector      *string        `json:"sector,omitempty"`
	ReviewCount int            `json:"review_count"`
	Ratings     RatingsSummary `json:"ratings"`
}

// Stats is the dashboard overview. AverageRating weighs each company's mean
// overall rating by its review count.
type Stats struct {
	TotalCompanies int            `json:"total_companies"`
	TotalReviews   int            `json:"total_reviews"`
	AverageRating  float64        `json:"avg_rating"`
	Companies      []CompanyStats `json:"companies"`
}
