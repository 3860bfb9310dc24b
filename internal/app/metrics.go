package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"culture_metrics/internal/adapters/observability"
	"culture_metrics/internal/domain"
	"culture_metrics/internal/scoring"
)

const (
	DefaultFreshness        = 24 * time.Hour
	DefaultRecomputeTimeout = 2 * time.Minute
)

// MetricsService owns the per-company metrics cache: it decides freshness on
// read, recomputes from the full review set and replaces the stored record whole.
type MetricsService struct {
	reviews   domain.ReviewStore
	store     domain.MetricsStore
	cache     domain.Cache // optional hot cache in front of store
	dict      *scoring.Dictionary
	freshness time.Duration
	cacheTTL  time.Duration
	now       func() time.Time
	timeout   time.Duration // upper bound on one shared recomputation

	flight  singleflight.Group
	mu      sync.Mutex
	calls   map[string]*flightCall
	nextGen uint64
}

// flightCall is one shared recomputation. Its context outlives any single
// caller and is cancelled once the last waiting caller has given up.
type flightCall struct {
	key     string
	ctx     context.Context
	cancel  context.CancelFunc
	waiters int
}

type Option func(*MetricsService)

func WithRecomputeTimeout(d time.Duration) Option {
	return func(s *MetricsService) {
		if d > 0 {
			s.timeout = d
		}
	}
}

func WithClock(now func() time.Time) Option { return func(s *MetricsService) { s.now = now } }

func WithDictionary(d *scoring.Dictionary) Option { return func(s *MetricsService) { s.dict = d } }

func WithFreshness(d time.Duration) Option {
	return func(s *MetricsService) {
		if d > 0 {
			s.freshness = d
		}
	}
}

func NewMetricsService(r domain.ReviewStore, st domain.MetricsStore, c domain.Cache, ttl time.Duration, opts ...Option) *MetricsService {
	s := &MetricsService{
		reviews:   r,
		store:     st,
		cache:     c,
		dict:      scoring.Default(),
		freshness: DefaultFreshness,
		cacheTTL:  ttl,
		now:       time.Now,
		timeout:   DefaultRecomputeTimeout,
		calls:     map[string]*flightCall{},
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// IsStale reports whether a record computed at computedAt has outlived threshold at now.
func IsStale(now, computedAt time.Time, threshold time.Duration) bool {
	return now.Sub(computedAt) > threshold
}

// State classifies a cached record. A record computed under another dictionary
// version is Stale regardless of age.
func State(m *domain.CompanyMetrics, now time.Time, threshold time.Duration, version string) domain.CacheState {
	switch {
	case m == nil:
		return domain.Absent
	case m.DictionaryVersion != version || IsStale(now, m.ComputedAt, threshold):
		return domain.Stale
	default:
		return domain.Fresh
	}
}

func metricsKey(companyID, version string) string {
	return fmt.Sprintf("metrics:%s:%s", version, companyID)
}

// GetCompanyMetrics serves the cached record when Fresh and recomputes otherwise.
// A failed recomputation falls back to the previous record with a warning.
func (s *MetricsService) GetCompanyMetrics(ctx context.Context, companyID string) (domain.MetricsResult, error) {
	cached, readErr := s.load(ctx, companyID)
	if st := State(cached, s.now(), s.freshness, s.dict.Version()); st == domain.Fresh {
		return domain.MetricsResult{Metrics: *cached, State: st}, nil
	}
	return s.recompute(ctx, companyID, cached, readErr)
}

// RefreshMetrics recomputes regardless of freshness.
func (s *MetricsService) RefreshMetrics(ctx context.Context, companyID string) (domain.MetricsResult, error) {
	cached, readErr := s.load(ctx, companyID)
	return s.recompute(ctx, companyID, cached, readErr)
}

// InvalidateMetrics drops both cached copies; the company goes back to Absent.
func (s *MetricsService) InvalidateMetrics(ctx context.Context, companyID string) error {
	if s.cache != nil {
		if err := s.cache.Del(ctx, metricsKey(companyID, s.dict.Version())); err != nil {
			log.Warn().Err(err).Str("company", companyID).Msg("hot cache delete failed")
		}
	}
	if err := s.store.DeleteMetrics(ctx, companyID); err != nil {
		return fmt.Errorf("invalidate %s: %w", companyID, err)
	}
	return nil
}

func (s *MetricsService) ListCompanies(ctx context.Context, sector *string) ([]domain.Company, error) {
	out, err := s.reviews.ListCompanies(ctx, sector)
	if err != nil {
		return nil, fmt.Errorf("%w: list companies: %v", domain.ErrUnavailable, err)
	}
	return out, nil
}

// noReviews tells an unknown company (ErrNotFound) from a known one that has
// nothing to score yet (ErrNoData).
func (s *MetricsService) noReviews(ctx context.Context, companyID string) error {
	_, err := s.reviews.GetCompany(ctx, companyID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return fmt.Errorf("company %s: %w", companyID, domain.ErrNotFound)
	case err != nil:
		return fmt.Errorf("%w: lookup company %s: %v", domain.ErrUnavailable, companyID, err)
	default:
		return fmt.Errorf("%s: %w", companyID, domain.ErrNoData)
	}
}

// Peers returns the non-expired records computed under the current dictionary
// that rest on at least one review.
func (s *MetricsService) Peers(ctx context.Context, sector *string) ([]domain.CompanyMetrics, error) {
	all, err := s.store.ListMetrics(ctx, sector)
	if err != nil {
		return nil, fmt.Errorf("%w: list metrics: %v", domain.ErrUnavailable, err)
	}
	now, version := s.now(), s.dict.Version()
	out := make([]domain.CompanyMetrics, 0, len(all))
	for i := range all {
		if all[i].ReviewCount > 0 && State(&all[i], now, s.freshness, version) == domain.Fresh {
			out = append(out, all[i])
		}
	}
	return out, nil
}

// load reads the hot cache, then the durable store. A nil record with a nil
// error means Absent.
func (s *MetricsService) load(ctx context.Context, companyID string) (*domain.CompanyMetrics, error) {
	key := metricsKey(companyID, s.dict.Version())
	if s.cache != nil {
		var m domain.CompanyMetrics
		ok, err := s.cache.Get(ctx, key, &m)
		if err != nil {
			log.Warn().Err(err).Str("company", companyID).Msg("hot cache read failed")
		}
		if ok && err == nil {
			return &m, nil
		}
	}

	m, err := s.store.GetMetrics(ctx, companyID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		log.Warn().Err(err).Str("company", companyID).Msg("metrics read failed")
		return nil, err
	}
	if s.cache != nil && m.DictionaryVersion == s.dict.Version() {
		if err := s.cache.Set(ctx, key, m, int(s.cacheTTL.Seconds())); err != nil {
			log.Warn().Err(err).Str("company", companyID).Msg("hot cache write failed")
		}
	}
	return &m, nil
}

type outcome struct {
	metrics domain.CompanyMetrics
	noData  bool
	warning string
}

// join attaches the caller to the company's in-flight recomputation, starting
// a new one when none is running. The returned leave must be called exactly once.
func (s *MetricsService) join(ctx context.Context, companyID string) (*flightCall, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.calls[companyID]
	if c == nil {
		s.nextGen++
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
		c = &flightCall{key: fmt.Sprintf("%s#%d", companyID, s.nextGen), ctx: fctx, cancel: cancel}
		s.calls[companyID] = c
	}
	c.waiters++
	return c, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		c.waiters--
		if c.waiters == 0 {
			c.cancel()
			if s.calls[companyID] == c {
				delete(s.calls, companyID)
			}
		}
	}
}

func (s *MetricsService) recompute(ctx context.Context, companyID string, cached *domain.CompanyMetrics, readErr error) (domain.MetricsResult, error) {
	var (
		v   any
		err error
	)
	if err = ctx.Err(); err == nil {
		// concurrent callers for one company share a single computation; each
		// caller stops waiting on its own deadline only
		call, leave := s.join(ctx, companyID)
		ch := s.flight.DoChan(call.key, func() (any, error) {
			return s.compute(call.ctx, companyID)
		})
		select {
		case r := <-ch:
			v, err = r.Val, r.Err
		case <-ctx.Done():
			err = ctx.Err()
		}
		leave()
	}
	if errors.Is(err, domain.ErrNotFound) {
		return domain.MetricsResult{}, err
	}
	if err != nil {
		if cached != nil {
			log.Warn().Err(err).Str("company", companyID).Time("computed_at", cached.ComputedAt).
				Msg("refresh failed, serving cached metrics")
			return domain.MetricsResult{
				Metrics: *cached,
				State:   State(cached, s.now(), s.freshness, s.dict.Version()),
				Warning: "refresh failed; serving previously computed metrics",
			}, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return domain.MetricsResult{}, fmt.Errorf("%s: %w", companyID, ctxErr)
		}
		if readErr != nil {
			err = readErr
		}
		return domain.MetricsResult{}, fmt.Errorf("%w: %s: %v", domain.ErrUnavailable, companyID, err)
	}

	out := v.(outcome)
	if out.noData {
		return domain.MetricsResult{
			Metrics: noDataMetrics(companyID, s.dict.Version()),
			State:   domain.Absent,
			NoData:  true,
		}, nil
	}
	return domain.MetricsResult{
		Metrics:    out.metrics,
		State:      domain.Fresh,
		Recomputed: true,
		Warning:    out.warning,
	}, nil
}

// compute is a full recomputation over the company's current review set.
// ctx belongs to the shared call, not to a caller. Nothing is written once it
// is done; the stored record is replaced whole.
func (s *MetricsService) compute(ctx context.Context, companyID string) (outcome, error) {
	start := time.Now()
	reviews, err := s.reviews.FetchReviews(ctx, companyID, nil)
	if err != nil {
		observability.ObserveRecompute("error", 0, time.Since(start))
		return outcome{}, fmt.Errorf("fetch reviews: %w", err)
	}
	if len(reviews) == 0 {
		if err := s.noReviews(ctx, companyID); !errors.Is(err, domain.ErrNoData) {
			observability.ObserveRecompute("error", 0, time.Since(start))
			return outcome{}, err
		}
		observability.ObserveRecompute("nodata", 0, time.Since(start))
		return outcome{noData: true}, nil
	}

	now := s.now()
	res, err := scoring.Aggregate(reviews, s.dict, now)
	if err != nil {
		observability.ObserveRecompute("error", len(reviews), time.Since(start))
		log.Error().Err(err).Str("company", companyID).Int("reviews", len(reviews)).Msg("aggregation defect")
		return outcome{}, err
	}
	m := toCompanyMetrics(companyID, s.dict.Version(), res, summarizeRatings(reviews), now)

	if err := ctx.Err(); err != nil {
		observability.ObserveRecompute("error", len(reviews), time.Since(start))
		return outcome{}, err
	}

	out := outcome{metrics: m}
	if err := s.store.PutMetrics(ctx, m); err != nil {
		// freshly computed metrics are still complete; serve them and say so
		log.Warn().Err(err).Str("company", companyID).Msg("metrics write failed")
		out.warning = "metrics computed but not persisted"
	} else if s.cache != nil {
		if err := s.cache.Set(ctx, metricsKey(companyID, m.DictionaryVersion), m, int(s.cacheTTL.Seconds())); err != nil {
			log.Warn().Err(err).Str("company", companyID).Msg("hot cache write failed")
		}
	}

	observability.ObserveRecompute("ok", len(reviews), time.Since(start))
	log.Info().Str("company", companyID).Int("reviews", len(reviews)).
		Dur("duration", time.Since(start)).Msg("metrics recomputed")
	return out, nil
}
