package mysql

const upsertCompanySQL = `
INSERT INTO companies (id, name, gics_sector)
VALUES (?, ?, ?)
ON DUPLICATE KEY UPDATE
  name        = VALUES(name),
  gics_sector = COALESCE(VALUES(gics_sector), companies.gics_sector)
`

const insertReviewsPrefix = "INSERT INTO reviews\n" +
	"  (company_id, source_id, summary, pros, cons, rating, work_life_balance_rating, culture_values_rating,\n" +
	"   career_opportunities_rating, compensation_benefits_rating, senior_management_rating,\n" +
	"   job_title, location, employment_status, reviewed_at, raw)\nVALUES "

// COALESCE keeps the stored value when a re-extraction leaves a field NULL.
const insertReviewsOnDup = " ON DUPLICATE KEY UPDATE\n" +
	"  summary     = COALESCE(VALUES(summary), reviews.summary),\n" +
	"  pros        = COALESCE(VALUES(pros), reviews.pros),\n" +
	"  cons        = COALESCE(VALUES(cons), reviews.cons),\n" +
	"  rating      = COALESCE(VALUES(rating), reviews.rating),\n" +
	"  reviewed_at = COALESCE(VALUES(reviewed_at), reviews.reviewed_at),\n" +
	"  raw         = COALESCE(VALUES(raw), reviews.raw)\n"

// One statement, one row: the record is replaced whole or not at all.
const upsertMetricsSQL = `
INSERT INTO company_metrics
  (company_id, dictionary_version, review_count, overall_confidence, metrics, computed_at)
VALUES
  (?, ?, ?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
  dictionary_version = VALUES(dictionary_version),
  review_count       = VALUES(review_count),
  overall_confidence = VALUES(overall_confidence),
  metrics            = VALUES(metrics),
  computed_at        = VALUES(computed_at)
`

const getMetricsSQL = `SELECT metrics FROM company_metrics WHERE company_id = ?`

const deleteMetricsSQL = `DELETE FROM company_metrics WHERE company_id = ?`

// -----------------------------------------------------------------------------
// column lists for the squirrel-built reads
// -----------------------------------------------------------------------------

var reviewColumns = []string{
	"id", "company_id", "source_id", "summary", "pros", "cons",
	"rating", "work_life_balance_rating", "culture_values_rating",
	"career_opportunities_rating", "compensation_benefits_rating", "senior_management_rating",
	"job_title", "location", "employment_status", "reviewed_at", "raw",
}
