package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Sternrassler/steam-review-harvester/pkg/appid"
	"github.com/Sternrassler/steam-review-harvester/pkg/config"
	"github.com/Sternrassler/steam-review-harvester/pkg/harvest"
	"github.com/Sternrassler/steam-review-harvester/pkg/logging"
	"github.com/Sternrassler/steam-review-harvester/pkg/metrics"
	"github.com/Sternrassler/steam-review-harvester/pkg/progress"
	"github.com/Sternrassler/steam-review-harvester/pkg/ratelimit"
	"github.com/Sternrassler/steam-review-harvester/pkg/steam"
	"github.com/Sternrassler/steam-review-harvester/pkg/store"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

func main() {
	os.Exit(execute())
}

// execute loads the configuration and runs the harvester, returning the
// process exit code. Deferred cleanup runs before main exits.
func execute() int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "review-harvester: %v\n", err)
		return 1
	}
	logging.Setup(cfg.Logging())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if _, err := run(ctx, cfg); err != nil {
		log.Error().Err(err).Msg("Harvester failed to start")
		return 1
	}
	return 0
}

// run harvests every app listed in the configured source. Per-app failures
// are reported in the summary; only setup errors are returned.
func run(ctx context.Context, cfg *config.Config) (harvest.Summary, error) {
	ids, err := appid.ReadFile(cfg.Source.Path)
	if err != nil {
		return harvest.Summary{}, err
	}
	log.Info().
		Str("source", cfg.Source.Path).
		Int("apps", len(ids)).
		Msg("Loaded app ids")

	var gate steam.Gate
	var reporter harvest.Reporter = harvest.NopReporter{}
	if cfg.RedisEnabled() {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()

		if err := redisClient.Ping(ctx).Err(); err != nil {
			return harvest.Summary{}, fmt.Errorf("connect to redis at %s: %w", cfg.Redis.Addr, err)
		}
		log.Info().Str("addr", cfg.Redis.Addr).Msg("Connected to Redis")

		gate = ratelimit.NewTracker(redisClient, logging.NewLogger("ratelimit"))
		reporter = progress.NewLedger(redisClient, cfg.Redis.ProgressTTL)
	}

	if cfg.Metrics.Addr != "" {
		srv := startMetricsServer(cfg.Metrics.Addr)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
	}

	client, err := steam.New(cfg.SteamClient(), gate)
	if err != nil {
		return harvest.Summary{}, fmt.Errorf("create steam client: %w", err)
	}

	ctrl := harvest.NewController(client, store.New(cfg.Store.Dir), harvest.Config{
		Retry:    cfg.Retry(),
		Reporter: reporter,
	})

	summary := harvest.NewDriver(ctrl, cfg.Harvest.Workers).Run(ctx, ids)

	for _, res := range summary.Results {
		if res.Err != nil {
			log.Error().
				Str("app_id", res.AppID).
				Err(res.Err).
				Msg("App harvest failed")
		}
	}

	return summary, nil
}

func startMetricsServer(addr string) *http.Server {
	srv := &http.Server{
		Addr:              addr,
		Handler:           metrics.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("Serving metrics")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("Metrics server failed")
		}
	}()

	return srv
}
