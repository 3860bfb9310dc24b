package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/rs/zerolog/log"

	"culture_metrics/internal/adapters/observability"
	"culture_metrics/internal/domain"
)

func valStr(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}
func valF64(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}
func valTime(p *time.Time) any {
	if p == nil || p.IsZero() {
		return nil
	}
	return p.UTC()
}
func valJSON(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}

func strPtr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}
func f64Ptr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

// Repo is both the review store and the durable metrics cache.
type Repo struct {
	db *sql.DB
	sq sq.StatementBuilderType
}

func New(db *sql.DB) *Repo { return &Repo{db: db, sq: sq.StatementBuilder} }

func observe(op string, start time.Time, err error) {
	observability.ObserveStore("mysql", op, err, time.Since(start))
}

/********** companies & reviews (written by extraction, read here) **********/

func (r *Repo) UpsertCompany(ctx context.Context, c domain.Company) (err error) {
	defer func(start time.Time) { observe("upsert_company", start, err) }(time.Now())
	_, err = r.db.ExecContext(ctx, upsertCompanySQL, c.ID, c.Name, valStr(c.Sector))
	return err
}

func (r *Repo) UpsertReviews(ctx context.Context, rs []domain.Review) (err error) {
	if len(rs) == 0 {
		return nil
	}
	defer func(start time.Time) { observe("upsert_reviews", start, err) }(time.Now())
	values := make([]string, 0, len(rs))
	args := make([]any, 0, len(rs)*16)
	for _, rv := range rs {
		if rv.SourceID == nil {
			return fmt.Errorf("review for %s has no source id", rv.CompanyID)
		}
		values = append(values, "(?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)")
		args = append(args,
			rv.CompanyID,
			*rv.SourceID,
			valStr(rv.Summary),
			valStr(rv.Pros),
			valStr(rv.Cons),
			valF64(rv.Rating),
			valF64(rv.WorkLifeBalance),
			valF64(rv.CultureValues),
			valF64(rv.CareerOpportunities),
			valF64(rv.CompensationBenefits),
			valF64(rv.SeniorManagement),
			valStr(rv.JobTitle),
			valStr(rv.Location),
			valStr(rv.EmploymentStatus),
			valTime(rv.ReviewedAt),
			valJSON(rv.RawJSON),
		)
	}
	_, err = r.db.ExecContext(ctx, insertReviewsPrefix+strings.Join(values, ",")+insertReviewsOnDup, args...)
	return err
}

// FetchReviews materializes every review of a company, optionally bounded by
// reviewed_at. Undated reviews are only returned for an unbounded fetch.
func (r *Repo) FetchReviews(ctx context.Context, companyID string, rng *domain.DateRange) (out []domain.Review, err error) {
	defer func(start time.Time) { observe("fetch_reviews", start, err) }(time.Now())

	q := r.sq.Select(reviewColumns...).From("reviews").Where(sq.Eq{"company_id": companyID})
	if rng != nil && rng.From != nil {
		q = q.Where(sq.GtOrEq{"reviewed_at": rng.From.UTC()})
	}
	if rng != nil && rng.To != nil {
		q = q.Where(sq.LtOrEq{"reviewed_at": rng.To.UTC()})
	}
	sqlStr, args, err := q.OrderBy("id").ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			rv                                      domain.Review
			source, summary, pros, cons             sql.NullString
			rating, wlb, culture, career, comp, mgt sql.NullFloat64
			title, location, status                 sql.NullString
			reviewedAt                              sql.NullTime
			raw                                     []byte
		)
		if err := rows.Scan(
			&rv.ID, &rv.CompanyID, &source, &summary, &pros, &cons,
			&rating, &wlb, &culture, &career, &comp, &mgt,
			&title, &location, &status, &reviewedAt, &raw,
		); err != nil {
			return nil, err
		}
		rv.SourceID, rv.Summary, rv.Pros, rv.Cons = strPtr(source), strPtr(summary), strPtr(pros), strPtr(cons)
		rv.Rating, rv.WorkLifeBalance, rv.CultureValues = f64Ptr(rating), f64Ptr(wlb), f64Ptr(culture)
		rv.CareerOpportunities, rv.CompensationBenefits, rv.SeniorManagement = f64Ptr(career), f64Ptr(comp), f64Ptr(mgt)
		rv.JobTitle, rv.Location, rv.EmploymentStatus = strPtr(title), strPtr(location), strPtr(status)
		if reviewedAt.Valid {
			t := reviewedAt.Time.UTC()
			rv.ReviewedAt = &t
		}
		rv.RawJSON = raw
		out = append(out, rv)
	}
	return out, rows.Err()
}

func (r *Repo) ListCompanies(ctx context.Context, sector *string) (out []domain.Company, err error) {
	defer func(start time.Time) { observe("list_companies", start, err) }(time.Now())

	q := r.companyQuery().OrderBy("c.name", "c.id")
	if sector != nil {
		q = q.Where(sq.Eq{"c.gics_sector": *sector})
	}
	sqlStr, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out = []domain.Company{}
	for rows.Next() {
		c, err := scanCompany(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// GetCompany returns ErrNotFound for an id the companies table does not hold.
func (r *Repo) GetCompany(ctx context.Context, companyID string) (c domain.Company, err error) {
	defer func(start time.Time) { observe("get_company", start, err) }(time.Now())

	sqlStr, args, err := r.companyQuery().Where(sq.Eq{"c.id": companyID}).ToSql()
	if err != nil {
		return domain.Company{}, err
	}
	c, err = scanCompany(r.db.QueryRowContext(ctx, sqlStr, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Company{}, domain.ErrNotFound
	}
	return c, err
}

func (r *Repo) companyQuery() sq.SelectBuilder {
	return r.sq.Select("c.id", "c.name", "c.gics_sector", "COUNT(r.id)").
		From("companies c").
		LeftJoin("reviews r ON r.company_id = c.id").
		GroupBy("c.id", "c.name", "c.gics_sector")
}

type rowScanner interface{ Scan(dest ...any) error }

func scanCompany(row rowScanner) (domain.Company, error) {
	var c domain.Company
	var sec sql.NullString
	if err := row.Scan(&c.ID, &c.Name, &sec, &c.ReviewCount); err != nil {
		return domain.Company{}, err
	}
	c.Sector = strPtr(sec)
	return c, nil
}

/********** durable metrics cache **********/

func (r *Repo) GetMetrics(ctx context.Context, companyID string) (m domain.CompanyMetrics, err error) {
	defer func(start time.Time) { observe("get_metrics", start, err) }(time.Now())

	var blob []byte
	if err = r.db.QueryRowContext(ctx, getMetricsSQL, companyID).Scan(&blob); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.CompanyMetrics{}, domain.ErrNotFound
		}
		return domain.CompanyMetrics{}, err
	}
	if err = json.Unmarshal(blob, &m); err != nil {
		return domain.CompanyMetrics{}, fmt.Errorf("decode metrics for %s: %w", companyID, err)
	}
	return m, nil
}

func (r *Repo) PutMetrics(ctx context.Context, m domain.CompanyMetrics) (err error) {
	defer func(start time.Time) { observe("put_metrics", start, err) }(time.Now())

	blob, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode metrics for %s: %w", m.CompanyID, err)
	}
	_, err = r.db.ExecContext(ctx, upsertMetricsSQL,
		m.CompanyID,
		m.DictionaryVersion,
		m.ReviewCount,
		m.OverallConfidence,
		string(blob),
		m.ComputedAt.UTC(),
	)
	return err
}

func (r *Repo) DeleteMetrics(ctx context.Context, companyID string) (err error) {
	defer func(start time.Time) { observe("delete_metrics", start, err) }(time.Now())
	_, err = r.db.ExecContext(ctx, deleteMetricsSQL, companyID)
	return err
}

// ListMetrics returns every stored record, optionally for one sector. Records
// that no longer decode are skipped; the next read of that company rewrites them.
func (r *Repo) ListMetrics(ctx context.Context, sector *string) (out []domain.CompanyMetrics, err error) {
	defer func(start time.Time) { observe("list_metrics", start, err) }(time.Now())

	q := r.sq.Select("m.company_id", "m.metrics").From("company_metrics m")
	if sector != nil {
		q = q.Join("companies c ON c.id = m.company_id").Where(sq.Eq{"c.gics_sector": *sector})
	}
	sqlStr, args, err := q.OrderBy("m.company_id").ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		var blob []byte
		if err := rows.Scan(&id, &blob); err != nil {
			return nil, err
		}
		var m domain.CompanyMetrics
		if err := json.Unmarshal(blob, &m); err != nil {
			log.Warn().Err(err).Str("company", id).Msg("skipping undecodable metrics record")
			continue
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
