// Command recompute refreshes the cached culture metrics of every known
// company, optionally limited to one sector. It is safe to run alongside the API.
package main

import (
	"context"
	"database/sql"
	"flag"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	"culture_metrics/internal/adapters/observability"
	redisad "culture_metrics/internal/adapters/redis"
	"culture_metrics/internal/app"
	"culture_metrics/internal/shared"
	mysqlrepo "culture_metrics/internal/storage/mysql"
)

func main() {
	sector := flag.String("sector", "", "only companies in this GICS sector")
	flag.Parse()

	cfg := shared.Load()
	log.Logger = observability.NewLogger(cfg.AppEnv, "recompute")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info().
		Int("workers", cfg.Workers).
		Float64("rps", cfg.RecomputeRPS).
		Str("sector", *sector).
		Msg("recompute starting")

	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}

	repo := mysqlrepo.New(db)
	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	defer cache.Close()

	metrics := app.NewMetricsService(repo, repo, cache, cfg.CacheTTL, app.WithFreshness(cfg.Freshness))
	batch := app.NewBatchRefresher(metrics, cfg.Workers, cfg.RecomputeRPS)

	var filter *string
	if *sector != "" {
		filter = sector
	}
	rep, err := batch.RefreshAll(ctx, filter)
	if err != nil {
		log.Error().Err(err).Str("run", rep.RunID).Msg("recompute aborted")
		os.Exit(1)
	}
	if len(rep.Failed) > 0 {
		log.Warn().Str("run", rep.RunID).Strs("failed", rep.Failed).Msg("recompute finished with failures")
		os.Exit(2)
	}
	log.Info().Str("run", rep.RunID).Msg("recompute completed")
}
