package app

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// BatchRefresher recomputes every known company with bounded concurrency,
// paced so a full run does not swamp the review store.
type BatchRefresher struct {
	metrics *MetricsService
	workers int64
	limiter *rate.Limiter
}

func NewBatchRefresher(m *MetricsService, workers int, rps float64) *BatchRefresher {
	if workers <= 0 {
		workers = 1
	}
	lim := rate.NewLimiter(rate.Inf, 1)
	if rps > 0 {
		lim = rate.NewLimiter(rate.Limit(rps), 1)
	}
	return &BatchRefresher{metrics: m, workers: int64(workers), limiter: lim}
}

type BatchReport struct {
	RunID     string        `json:"run_id"`
	Companies int           `json:"companies"`
	Refreshed int           `json:"refreshed"`
	NoData    int           `json:"no_data"`
	Failed    []string      `json:"failed"`
	Duration  time.Duration `json:"duration"`
}

// RefreshAll refreshes each company in sector (all when nil). One company
// failing never stops the others; only listing failures and cancellation
// are returned as errors.
func (b *BatchRefresher) RefreshAll(ctx context.Context, sector *string) (BatchReport, error) {
	start := time.Now()
	rep := BatchReport{RunID: uuid.NewString(), Failed: []string{}}
	l := log.With().Str("run", rep.RunID).Logger()

	companies, err := b.metrics.ListCompanies(ctx, sector)
	if err != nil {
		return rep, fmt.Errorf("batch %s: %w", rep.RunID, err)
	}
	rep.Companies = len(companies)
	l.Info().Int("companies", len(companies)).Int64("workers", b.workers).Msg("batch refresh starting")

	sem := semaphore.NewWeighted(b.workers)
	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	var runErr error
	for _, c := range companies {
		if err := b.limiter.Wait(ctx); err != nil {
			runErr = err
			break
		}
		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, 1); err != nil {
			runErr = err
			break
		}
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			defer sem.Release(1)

			res, err := b.metrics.RefreshMetrics(ctx, id)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil || res.Warning != "" && !res.Recomputed:
				rep.Failed = append(rep.Failed, id)
				l.Warn().Err(err).Str("company", id).Str("warning", res.Warning).Msg("refresh failed")
			case res.NoData:
				rep.NoData++
			default:
				rep.Refreshed++
			}
		}(c.ID)
	}
	wg.Wait()
	slices.Sort(rep.Failed)

	rep.Duration = time.Since(start)
	l.Info().Int("refreshed", rep.Refreshed).Int("no_data", rep.NoData).Int("failed", len(rep.Failed)).
		Dur("duration", rep.Duration).Msg("batch refresh finished")
	return rep, runErr
}
