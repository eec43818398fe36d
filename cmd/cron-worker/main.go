package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mksagencies/storefront-backend/internal/cron"
	"github.com/mksagencies/storefront-backend/internal/products"
	"github.com/mksagencies/storefront-backend/pkg/config"
	"github.com/mksagencies/storefront-backend/pkg/db"
	"github.com/mksagencies/storefront-backend/pkg/logger"
	"github.com/mksagencies/storefront-backend/pkg/metrics"
	"github.com/mksagencies/storefront-backend/pkg/migrate"
	"github.com/mksagencies/storefront-backend/pkg/redis"
	"github.com/mksagencies/storefront-backend/pkg/storage/gcs"
)

const lockPrefix = "cron-worker:"

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.ApplyInDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	gcsClient, err := gcs.NewClient(ctx, cfg.GCS, cfg.GCP, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap gcs", err)
		os.Exit(1)
	}
	defer func() {
		if err := gcsClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing gcs", err)
		}
	}()

	orphanJob, err := cron.NewOrphanImageJob(cron.OrphanImageJobParams{
		Logger:        logg,
		Store:         gcsClient,
		References:    products.NewRepository(dbClient.DB()),
		Bucket:        gcsClient.DefaultBucket(),
		PublicBaseURL: cfg.GCS.PublicBase(),
		GracePeriod:   cfg.Maintenance.GracePeriod,
		MaxDeletions:  cfg.Maintenance.MaxDeletions,
	})
	if err != nil {
		logg.Error(ctx, "failed to create orphan image job", err)
		os.Exit(1)
	}

	lock, err := cron.NewRedisLock(redisClient, lockName(cfg.App.Env), 0)
	if err != nil {
		logg.Error(ctx, "failed to create cron lock", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(orphanJob),
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Schedule: cron.Schedule{
			Hour:   cfg.Maintenance.RunHourUTC,
			Minute: cfg.Maintenance.RunMinuteUTC,
		},
	})
	if err != nil {
		logg.Error(ctx, "failed to create cron service", err)
		os.Exit(1)
	}

	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"bucket":      gcsClient.DefaultBucket(),
	})

	metricsServer := &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           metricsMux(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "metrics server stopped", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func metricsMux() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	return mux
}

func lockName(env string) string {
	if env == "" {
		env = "local"
	}
	return lockPrefix + env
}
