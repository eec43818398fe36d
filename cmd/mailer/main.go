package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/mksagencies/storefront-backend/internal/mailer"
	"github.com/mksagencies/storefront-backend/internal/notifications"
	"github.com/mksagencies/storefront-backend/pkg/config"
	"github.com/mksagencies/storefront-backend/pkg/idempotency"
	"github.com/mksagencies/storefront-backend/pkg/logger"
	"github.com/mksagencies/storefront-backend/pkg/pubsub"
	"github.com/mksagencies/storefront-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "mailer"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	cfg.Service.Kind = "mailer"

	logg = logger.New(logger.Options{
		ServiceName: "mailer",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sender, err := mailer.NewSMTPSender(cfg.Mail)
	if err != nil {
		logg.Error(ctx, "failed to configure smtp", err)
		os.Exit(1)
	}
	m, err := mailer.New(cfg.Mail, sender, logg)
	if err != nil {
		logg.Error(ctx, "failed to create mailer", err)
		os.Exit(1)
	}

	ctx = logg.WithFields(ctx, map[string]any{
		"env":       cfg.App.Env,
		"smtp_host": cfg.Mail.SMTPHost,
		"port":      cfg.Mail.Port,
	})

	server := &http.Server{
		Addr:              ":" + cfg.Mail.Port,
		Handler:           mailer.NewRouter(m, logg, nil),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logg.Info(gctx, "starting mailer")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if strings.TrimSpace(cfg.PubSub.NotificationSubscription) != "" {
		consumer, closeConsumer, err := newConsumer(ctx, cfg, m, logg)
		if err != nil {
			logg.Error(ctx, "failed to start notification consumer", err)
			os.Exit(1)
		}
		defer closeConsumer()
		g.Go(func() error {
			logg.Info(gctx, "consuming notification subscription")
			return consumer.Run(gctx)
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "mailer stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "mailer shutting down gracefully")
}

// newConsumer wires the Pub/Sub subscription to the mailer, deduplicating
// deliveries by event id in Redis.
func newConsumer(ctx context.Context, cfg *config.Config, m *mailer.Mailer, logg *logger.Logger) (*notifications.Consumer, func(), error) {
	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return nil, nil, err
	}
	guard, err := idempotency.NewGuard(redisClient, cfg.Eventing.IdempotencyTTL)
	if err != nil {
		_ = redisClient.Close()
		return nil, nil, err
	}
	psClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		_ = redisClient.Close()
		return nil, nil, err
	}
	consumer, err := notifications.NewConsumer(psClient.NotificationSubscription(), guard, m, logg)
	if err != nil {
		_ = psClient.Close()
		_ = redisClient.Close()
		return nil, nil, err
	}
	return consumer, func() {
		if err := psClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing pubsub", err)
		}
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}, nil
}
