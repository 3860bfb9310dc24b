package domain

import (
	"strings"
	"time"
)

// Review is one employee-submitted record as persisted by the extraction side.
// Never mutated by scoring.
type Review struct {
	ID        int64
	CompanyID string
	SourceID  *string
	Summary   *string
	Pros      *string
	Cons      *string

	Rating               *float64
	WorkLifeBalance      *float64
	CultureValues        *float64
	CareerOpportunities  *float64
	CompensationBenefits *float64
	SeniorManagement     *float64

	JobTitle         *string
	Location         *string
	EmploymentStatus *string
	ReviewedAt       *time.Time
	RawJSON          []byte // full extraction payload (recommend / ceo ratings live here)
}

// Text concatenates summary, pros and cons into the body that gets scored.
func (r Review) Text() string {
	parts := make([]string, 0, 3)
	for _, p := range []*string{r.Summary, r.Pros, r.Cons} {
		if p == nil {
			continue
		}
		if t := strings.TrimSpace(*p); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}

// DateRange bounds FetchReviews; nil ends are open.
type DateRange struct {
	From *time.Time
	To   *time.Time
}
