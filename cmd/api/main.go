package main

import (
	"cmp"
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/multierr"

	"github.com/storetrail/storetrail-backend/api/controllers"
	"github.com/storetrail/storetrail-backend/api/routes"
	"github.com/storetrail/storetrail-backend/internal/checkins"
	"github.com/storetrail/storetrail-backend/internal/stores"
	"github.com/storetrail/storetrail-backend/internal/users"
	"github.com/storetrail/storetrail-backend/pkg/auth/session"
	"github.com/storetrail/storetrail-backend/pkg/config"
	"github.com/storetrail/storetrail-backend/pkg/db"
	"github.com/storetrail/storetrail-backend/pkg/logger"
	"github.com/storetrail/storetrail-backend/pkg/metrics"
	"github.com/storetrail/storetrail-backend/pkg/migrate"
	"github.com/storetrail/storetrail-backend/pkg/outbox"
	"github.com/storetrail/storetrail-backend/pkg/redis"
	"github.com/storetrail/storetrail-backend/pkg/storage/gcs"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.ForService("api", cfg.App)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logg); err != nil {
		logg.Error(context.Background(), "api exited with error", err)
		os.Exit(1)
	}
}

const readHeaderTimeout = 10 * time.Second

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) (err error) {
	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, dbClient.Close()) }()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return err
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, redisClient.Close()) }()

	gcsClient, err := gcs.NewClient(ctx, cfg.GCS, cfg.GCP, logg)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, gcsClient.Close()) }()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	visits := metrics.NewVisits(registry)

	usersSvc, err := users.NewService(users.NewRepository(dbClient.DB()), cfg.Auth.OwnerOpenID)
	if err != nil {
		return err
	}

	storeSvc, err := stores.NewService(stores.NewRepository(dbClient.DB()), visits)
	if err != nil {
		return err
	}

	checkinSvc, err := checkins.NewService(checkins.ServiceParams{
		Catalog:       storeSvc,
		Repo:          checkins.NewRepository(dbClient.DB()),
		Tx:            dbClient,
		Outbox:        outbox.NewService(outbox.NewRepository(dbClient.DB()), logg),
		Photos:        gcsClient,
		Metrics:       visits,
		MaxPhotoBytes: cfg.CheckIn.MaxPhotoBytes,
	})
	if err != nil {
		return err
	}

	handler := routes.NewRouter(cfg, logg, routes.Deps{
		Health: []controllers.NamedPinger{
			{Name: "postgres", Pinger: dbClient},
			{Name: "redis", Pinger: redisClient},
			{Name: "gcs", Pinger: gcsClient},
		},
		Edge:           redisClient,
		Sessions:       sessionManager,
		Users:          usersSvc,
		Stores:         storeSvc,
		CheckIns:       checkinSvc,
		DLQ:            outbox.NewDLQRepository(dbClient.DB()),
		MetricsHandler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	})

	addr := ":" + cmp.Or(os.Getenv("PORT"), cfg.App.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
	}
	return serve(logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "addr": addr}), logg, server, cfg.App.ShutdownTimeout)
}

// serve runs server until it fails or ctx is canceled, then drains
// in-flight requests for at most grace.
func serve(ctx context.Context, logg *logger.Logger, server *http.Server, grace time.Duration) error {
	failed := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting api server")
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			failed <- err
		}
		close(failed)
	}()

	select {
	case err := <-failed:
		return err
	case <-ctx.Done():
	}

	logg.Info(ctx, "shutting down api server")
	drainCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), grace)
	defer cancel()
	return server.Shutdown(drainCtx)
}
