package domain

import "context"

// ReviewStore is read-only from the metrics side.
type ReviewStore interface {
	FetchReviews(ctx context.Context, companyID string, r *DateRange) ([]Review, error)
	ListCompanies(ctx context.Context, sector *string) ([]Company, error)
	GetCompany(ctx context.Context, companyID string) (Company, error) // ErrNotFound when unknown
}

// MetricsStore is the durable per-company cache. PutMetrics must replace the
// whole record atomically; GetMetrics returns ErrNotFound when absent.
type MetricsStore interface {
	GetMetrics(ctx context.Context, companyID string) (CompanyMetrics, error)
	PutMetrics(ctx context.Context, m CompanyMetrics) error
	DeleteMetrics(ctx context.Context, companyID string) error
	ListMetrics(ctx context.Context, sector *string) ([]CompanyMetrics, error)
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}
