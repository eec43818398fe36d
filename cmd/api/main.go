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

	"github.com/mksagencies/storefront-backend/api/routes"
	"github.com/mksagencies/storefront-backend/internal/auth"
	"github.com/mksagencies/storefront-backend/internal/cart"
	"github.com/mksagencies/storefront-backend/internal/cron"
	"github.com/mksagencies/storefront-backend/internal/notifications"
	"github.com/mksagencies/storefront-backend/internal/orders"
	"github.com/mksagencies/storefront-backend/internal/products"
	"github.com/mksagencies/storefront-backend/internal/ratelimit"
	"github.com/mksagencies/storefront-backend/internal/session"
	"github.com/mksagencies/storefront-backend/internal/users"
	"github.com/mksagencies/storefront-backend/internal/wishlist"
	"github.com/mksagencies/storefront-backend/pkg/config"
	"github.com/mksagencies/storefront-backend/pkg/db"
	"github.com/mksagencies/storefront-backend/pkg/google"
	"github.com/mksagencies/storefront-backend/pkg/logger"
	"github.com/mksagencies/storefront-backend/pkg/metrics"
	"github.com/mksagencies/storefront-backend/pkg/migrate"
	"github.com/mksagencies/storefront-backend/pkg/pubsub"
	"github.com/mksagencies/storefront-backend/pkg/redis"
	"github.com/mksagencies/storefront-backend/pkg/storage/gcs"
)

const shutdownTimeout = 15 * time.Second

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
	cfg.Service.Kind = "api"

	logg = logger.New(logger.Options{
		ServiceName: "api",
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

	dispatcher, closeDispatcher, err := newDispatcher(ctx, cfg, logg)
	if err != nil {
		logg.Error(ctx, "failed to create notification dispatcher", err)
		os.Exit(1)
	}
	defer closeDispatcher()

	queue := notifications.NewQueue(notifications.QueueParams{
		Dispatcher: dispatcher,
		Logger:     logg,
		Metrics:    metrics.NewNotificationMetrics(prometheus.DefaultRegisterer),
		Size:       cfg.Notifications.QueueSize,
		Workers:    cfg.Notifications.Workers,
		Timeout:    cfg.Notifications.Timeout,
	})
	defer queue.Close()

	limiter, err := ratelimit.New(ratelimit.Params{Store: redisClient, Logger: logg})
	if err != nil {
		logg.Error(ctx, "failed to create rate limiter", err)
		os.Exit(1)
	}

	authService, err := auth.NewService(auth.ServiceParams{
		Users:       users.NewRepository(dbClient.DB()),
		Limiter:     limiter,
		Dispatcher:  dispatcher,
		Google:      google.NewTokenInfoVerifier(cfg.Google, nil),
		JWT:         cfg.JWT,
		Admin:       cfg.Admin,
		FrontendURL: cfg.App.FrontendURL,
		Logger:      logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create auth service", err)
		os.Exit(1)
	}

	ordersService, err := orders.NewService(orders.ServiceParams{
		Repo:     orders.NewRepository(dbClient.DB()),
		Tx:       dbClient,
		Notifier: queue,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create orders service", err)
		os.Exit(1)
	}

	productsRepo := products.NewRepository(dbClient.DB())
	productsService, err := products.NewService(productsRepo, nil)
	if err != nil {
		logg.Error(ctx, "failed to create products service", err)
		os.Exit(1)
	}

	cartService, err := cart.NewService(cart.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(ctx, "failed to create cart service", err)
		os.Exit(1)
	}
	wishlistService, err := wishlist.NewService(wishlist.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(ctx, "failed to create wishlist service", err)
		os.Exit(1)
	}
	sessions, err := session.NewFactory(cartService, wishlistService)
	if err != nil {
		logg.Error(ctx, "failed to create session factory", err)
		os.Exit(1)
	}

	services := routes.Services{
		Auth:     authService,
		Orders:   ordersService,
		Products: productsService,
		Sessions: sessions,
	}

	if cfg.GCS.BucketName != "" {
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
		sweeper, err := cron.NewOrphanImageJob(cron.OrphanImageJobParams{
			Logger:        logg,
			Store:         gcsClient,
			References:    productsRepo,
			Bucket:        gcsClient.DefaultBucket(),
			PublicBaseURL: cfg.GCS.PublicBase(),
			GracePeriod:   cfg.Maintenance.GracePeriod,
			MaxDeletions:  cfg.Maintenance.MaxDeletions,
		})
		if err != nil {
			logg.Error(ctx, "failed to create image sweeper", err)
			os.Exit(1)
		}
		services.Sweeper = sweeper
	} else {
		logg.Warn(ctx, "MKS_GCS_BUCKET_NAME not set; image cleanup endpoint disabled")
	}

	addr := ":" + cfg.App.Port
	ctx = logg.WithFields(ctx, map[string]any{
		"env":       cfg.App.Env,
		"addr":      addr,
		"transport": cfg.Notifications.Transport,
	})

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(cfg, logg, routes.Infra{
			DB:          dbClient,
			Redis:       redisClient,
			Idempotency: redisClient,
			Gatherer:    prometheus.DefaultGatherer,
		}, services),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting api server")
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		logg.Info(ctx, "api server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(shutdownCtx, "api server shutdown failed", err)
		}
	}
}

// newDispatcher picks the notification transport. The returned func releases
// whatever the transport holds.
func newDispatcher(ctx context.Context, cfg *config.Config, logg *logger.Logger) (notifications.Dispatcher, func(), error) {
	if !cfg.Notifications.UsePubSub() {
		d, err := notifications.NewHTTPDispatcher(cfg.Notifications, nil)
		return d, func() {}, err
	}

	client, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		return nil, nil, err
	}
	publisher := client.NotificationPublisher()
	d, err := notifications.NewPubSubDispatcher(publisher)
	if err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	return d, func() {
		publisher.Stop()
		if err := client.Close(); err != nil {
			logg.Error(context.Background(), "error closing pubsub", err)
		}
	}, nil
}
