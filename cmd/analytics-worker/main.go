package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/multierr"

	"github.com/storetrail/storetrail-backend/internal/analytics/router"
	"github.com/storetrail/storetrail-backend/internal/analytics/worker"
	"github.com/storetrail/storetrail-backend/internal/analytics/writer"
	"github.com/storetrail/storetrail-backend/pkg/bigquery"
	"github.com/storetrail/storetrail-backend/pkg/config"
	"github.com/storetrail/storetrail-backend/pkg/logger"
	"github.com/storetrail/storetrail-backend/pkg/outbox/idempotency"
	"github.com/storetrail/storetrail-backend/pkg/pubsub"
	"github.com/storetrail/storetrail-backend/pkg/redis"
)

const serviceKind = "analytics-worker"

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logger.New(logger.Options{ServiceName: serviceKind}).Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg := logger.ForService(serviceKind, cfg.App)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": serviceKind,
		"table":       cfg.BigQuery.StoreVisitsTable,
	})

	if err := run(ctx, cfg, logg); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "analytics worker failed", err)
		os.Exit(1)
	}
}

// run wires Redis dedupe, the analytics subscription and the store_visits
// writer, then consumes until ctx is canceled.
func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) (err error) {
	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, redisClient.Close()) }()

	bus, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, bus.Close()) }()

	bq, err := bigquery.NewClient(ctx, cfg.GCP, cfg.BigQuery, logg)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, bq.Close()) }()

	sub := bus.AnalyticsSubscription()
	if sub == nil {
		return errors.New("analytics subscription not configured")
	}
	dedupe, err := idempotency.NewLedger(redisClient, cfg.Eventing.OutboxIdempotencyTTL)
	if err != nil {
		return err
	}
	visits, err := writer.New(bq, writer.Config{StoreVisitsTable: cfg.BigQuery.StoreVisitsTable})
	if err != nil {
		return err
	}
	routes, err := router.NewRouter(visits, logg, nil)
	if err != nil {
		return err
	}
	consumer, err := worker.NewConsumer(sub, routes, dedupe, logg)
	if err != nil {
		return err
	}

	logg.Info(ctx, "analytics worker ready")
	return consumer.Run(ctx)
}
