package app_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"culture_metrics/internal/domain"
	"culture_metrics/internal/scoring"
)

// ---- fakes ----

type fakeReviews struct {
	mu        sync.Mutex
	byCompany map[string][]domain.Review
	companies []domain.Company
	err       error
	fetches   int
	gate      chan struct{} // when set, FetchReviews blocks until it is closed
	entered   chan struct{} // receives once per blocked fetch
}

func (f *fakeReviews) FetchReviews(ctx context.Context, companyID string, r *domain.DateRange) ([]domain.Review, error) {
	if f.gate != nil {
		f.entered <- struct{}{}
		<-f.gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches++
	if f.err != nil {
		return nil, f.err
	}
	return append([]domain.Review(nil), f.byCompany[companyID]...), nil
}

func (f *fakeReviews) ListCompanies(ctx context.Context, sector *string) ([]domain.Company, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []domain.Company
	for _, c := range f.companies {
		if sector == nil || (c.Sector != nil && *c.Sector == *sector) {
			out = append(out, c)
		}
	}
	return out, nil
}

// GetCompany knows every listed company and every company holding reviews.
func (f *fakeReviews) GetCompany(ctx context.Context, companyID string) (domain.Company, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return domain.Company{}, f.err
	}
	for _, c := range f.companies {
		if c.ID == companyID {
			return c, nil
		}
	}
	if rs, ok := f.byCompany[companyID]; ok {
		return domain.Company{ID: companyID, Name: companyID, ReviewCount: len(rs)}, nil
	}
	return domain.Company{}, domain.ErrNotFound
}

func (f *fakeReviews) fetchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetches
}

type fakeStore struct {
	mu      sync.Mutex
	records map[string]domain.CompanyMetrics
	sectors map[string]string
	readErr error
	putErr  error
	puts    int
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: map[string]domain.CompanyMetrics{}, sectors: map[string]string{}}
}

func (f *fakeStore) GetMetrics(ctx context.Context, companyID string) (domain.CompanyMetrics, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.readErr != nil {
		return domain.CompanyMetrics{}, f.readErr
	}
	m, ok := f.records[companyID]
	if !ok {
		return domain.CompanyMetrics{}, domain.ErrNotFound
	}
	return m, nil
}

func (f *fakeStore) PutMetrics(ctx context.Context, m domain.CompanyMetrics) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.putErr != nil {
		return f.putErr
	}
	f.puts++
	f.records[m.CompanyID] = m
	return nil
}

func (f *fakeStore) DeleteMetrics(ctx context.Context, companyID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.records, companyID)
	return nil
}

func (f *fakeStore) ListMetrics(ctx context.Context, sector *string) ([]domain.CompanyMetrics, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.readErr != nil {
		return nil, f.readErr
	}
	var out []domain.CompanyMetrics
	for id, m := range f.records {
		if sector == nil || f.sectors[id] == *sector {
			out = append(out, m)
		}
	}
	return out, nil
}

type fakeCache struct {
	mu    sync.Mutex
	store map[string]domain.CompanyMetrics
}

func (c *fakeCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.store[key]
	if !ok {
		return false, nil
	}
	*dst.(*domain.CompanyMetrics) = v
	return true, nil
}

func (c *fakeCache) Set(ctx context.Context, key string, v any, ttlSec int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.store == nil {
		c.store = map[string]domain.CompanyMetrics{}
	}
	c.store[key] = v.(domain.CompanyMetrics)
	return nil
}

func (c *fakeCache) Del(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.store, key)
	return nil
}

func (c *fakeCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.store)
}

// ---- helpers ----

// ghostReviews knows company "ghost" but holds no reviews for it.
func ghostReviews() *fakeReviews {
	return &fakeReviews{companies: []domain.Company{{ID: "ghost", Name: "Ghost"}}}
}

var errStorage = errors.New("storage down")

var now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return now }

func ptr[T any](v T) *T { return &v }

func textReview(id int64, company, text string, at time.Time) domain.Review {
	return domain.Review{ID: id, CompanyID: company, Summary: ptr(text), ReviewedAt: ptr(at)}
}

// metricsWith builds a cached record where every dimension scores score.
func metricsWith(id string, score float64, computedAt time.Time) domain.CompanyMetrics {
	dims := map[domain.Dimension]domain.DimensionScore{}
	for _, d := range domain.Dimensions() {
		dims[d] = domain.DimensionScore{Score: score, Confidence: 50, Evidence: 1, Reviews: 1, Level: "Low"}
	}
	return domain.CompanyMetrics{
		CompanyID:         id,
		DictionaryVersion: scoring.Version,
		Dimensions:        dims,
		ReviewCount:       10,
		ComputedAt:        computedAt,
	}
}
