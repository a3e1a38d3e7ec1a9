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
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/angelmondragon/brandinbox/api/routes"
	"github.com/angelmondragon/brandinbox/internal/auth"
	"github.com/angelmondragon/brandinbox/internal/automation"
	"github.com/angelmondragon/brandinbox/internal/ebay"
	"github.com/angelmondragon/brandinbox/internal/events"
	"github.com/angelmondragon/brandinbox/internal/listings"
	"github.com/angelmondragon/brandinbox/internal/uploads"
	"github.com/angelmondragon/brandinbox/internal/users"
	"github.com/angelmondragon/brandinbox/internal/webhooks"
	"github.com/angelmondragon/brandinbox/pkg/config"
	"github.com/angelmondragon/brandinbox/pkg/db"
	"github.com/angelmondragon/brandinbox/pkg/logger"
	"github.com/angelmondragon/brandinbox/pkg/metrics"
	"github.com/angelmondragon/brandinbox/pkg/migrate"
	"github.com/angelmondragon/brandinbox/pkg/pubsub"
	"github.com/angelmondragon/brandinbox/pkg/redis"
	"github.com/angelmondragon/brandinbox/pkg/storage"
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

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logg); err != nil {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "api server shut down gracefully")
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) (err error) {
	var closers []func() error
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			err = multierr.Append(err, closers[i]())
		}
	}()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	closers = append(closers, dbClient.Close)

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return err
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return err
	}
	closers = append(closers, redisClient.Close)

	store, err := storage.New(ctx, cfg, logg)
	if err != nil {
		return err
	}

	eventPublisher, closeEvents, err := listingEvents(ctx, cfg, logg)
	if err != nil {
		return err
	}
	closers = append(closers, closeEvents)

	httpMetrics := metrics.NewHTTPMetrics(prometheus.DefaultRegisterer)
	workflowMetrics := metrics.NewWorkflowMetrics(prometheus.DefaultRegisterer)

	userRepo := users.NewRepository(dbClient.DB())
	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       userRepo,
		Revoker:        redisClient,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
	})
	if err != nil {
		return err
	}

	automationClient := automation.NewClient(cfg.N8N, cfg.App.BackendURL, automation.WithLogger(logg))
	var (
		publishTrigger listings.PublishTrigger = automationClient
		ebayPublisher  *ebay.Publisher
	)
	if strings.EqualFold(cfg.Publish.Mode, config.PublishModeDirect) {
		ebayClient, err := ebay.NewClient(cfg.Ebay)
		if err != nil {
			return err
		}
		ebayPublisher, err = ebay.NewPublisher(ebayClient, cfg.Publish, logg)
		if err != nil {
			return err
		}
		publishTrigger = ebayPublisher
	}

	listingsService, err := listings.NewService(listings.ServiceParams{
		Repo:    listings.NewRepository(dbClient.DB()),
		Tx:      dbClient,
		Users:   userRepo,
		Media:   automationClient,
		Publish: publishTrigger,
		Events:  eventPublisher,
		Metrics: workflowMetrics,
		Logger:  logg,
	})
	if err != nil {
		return err
	}

	uploadService, err := uploads.NewService(store, cfg.Storage, cfg.Upload, logg)
	if err != nil {
		return err
	}

	webhookService, err := webhooks.NewService(listingsService, logg)
	if err != nil {
		return err
	}

	if ebayPublisher != nil {
		publishCtx, cancelPublish := context.WithCancel(ctx)
		ebayPublisher.Start(publishCtx, listingsService)
		defer func() {
			cancelPublish()
			ebayPublisher.Wait()
		}()
	}

	addr := ":" + cfg.App.Port
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}
	server := &http.Server{
		Addr:              addr,
		ReadHeaderTimeout: 10 * time.Second,
		Handler: routes.NewRouter(routes.Params{
			Config:   cfg,
			Logger:   logg,
			DB:       dbClient,
			Store:    redisClient,
			Gatherer: prometheus.DefaultGatherer,
			Metrics:  httpMetrics,
			Auth:     authService,
			Listings: listingsService,
			Uploads:  uploadService,
			Webhooks: webhookService,
		}),
	}

	logCtx := logg.WithFields(ctx, map[string]any{
		"env":          cfg.App.Env,
		"addr":         addr,
		"publish_mode": cfg.Publish.Mode,
	})
	logg.Info(logCtx, "starting api server")

	serveErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// listingEvents returns the Pub/Sub publisher when enabled, otherwise a no-op.
func listingEvents(ctx context.Context, cfg *config.Config, logg *logger.Logger) (events.Publisher, func() error, error) {
	if !cfg.PubSub.Enabled {
		return events.Nop{}, func() error { return nil }, nil
	}
	client, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		return nil, nil, err
	}
	topic := client.ListingEventsPublisher()
	closeFn := func() error {
		topic.Stop()
		return client.Close()
	}
	return events.NewPubSubPublisher(events.TopicSender{Publisher: topic}, logg), closeFn, nil
}
