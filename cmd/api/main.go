package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/orderflow/api/routes"
	"github.com/angelmondragon/orderflow/internal/checkout"
	"github.com/angelmondragon/orderflow/internal/dispatcher"
	"github.com/angelmondragon/orderflow/internal/orders"
	"github.com/angelmondragon/orderflow/internal/payments"
	"github.com/angelmondragon/orderflow/internal/production"
	"github.com/angelmondragon/orderflow/internal/subscribers"
	"github.com/angelmondragon/orderflow/pkg/config"
	"github.com/angelmondragon/orderflow/pkg/db"
	"github.com/angelmondragon/orderflow/pkg/logger"
	"github.com/angelmondragon/orderflow/pkg/metrics"
	"github.com/angelmondragon/orderflow/pkg/migrate"
	"github.com/angelmondragon/orderflow/pkg/outbox"
	"github.com/angelmondragon/orderflow/pkg/outbox/registry"
	"github.com/angelmondragon/orderflow/pkg/redis"
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
	cfg.Service.Kind = "api"

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Console:     cfg.App.ConsoleLogs(),
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

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		redisClient, err = redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			logg.Error(ctx, "failed to bootstrap redis", err)
			os.Exit(1)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing redis", err)
			}
		}()
	} else {
		logg.Warn(ctx, "redis not configured, rate limiting and idempotency replay disabled")
	}

	conn := dbClient.DB()
	ordersRepo := orders.NewRepository(conn)
	outboxRepo := outbox.NewRepository(conn)
	outboxSvc := outbox.NewService(outboxRepo, logg)
	deadLetters := outbox.NewDLQRepository(conn)

	ordersSvc, err := orders.NewService(ordersRepo)
	requireResource(ctx, logg, "orders service", err)

	gateway, err := payments.NewGateway(ctx, cfg, logg)
	requireResource(ctx, logg, "payment gateway", err)

	checkoutParams := checkout.ServiceParams{
		DB:       dbClient,
		Orders:   ordersRepo,
		Gateway:  gateway,
		Outbox:   outboxSvc,
		Config:   cfg.Checkout,
		Currency: cfg.Payment.Currency,
		Metrics:  metrics.NewCheckoutMetrics(prometheus.DefaultRegisterer),
		Logger:   logg,
	}
	if cfg.FeatureFlags.CheckoutLease && redisClient != nil {
		checkoutParams.Leases = redisClient
	}
	checkoutSvc, err := checkout.NewService(checkoutParams)
	requireResource(ctx, logg, "checkout service", err)

	statusSvc, err := production.NewStatusService(ordersRepo, logg, nil)
	requireResource(ctx, logg, "production status service", err)

	group, groupCtx := errgroup.WithContext(ctx)

	if cfg.FeatureFlags.EmbeddedDispatcher {
		bus, closeBus, err := subscribers.Build(ctx, subscribers.Params{
			Config: cfg,
			Logger: logg,
			DB:     dbClient,
			Redis:  redisClient,
			Outbox: outboxSvc,
		})
		requireResource(ctx, logg, "event subscribers", err)
		defer func() {
			if err := closeBus(); err != nil {
				logg.Error(context.Background(), "error closing relay clients", err)
			}
		}()

		svc, err := dispatcher.NewService(dispatcher.ServiceParams{
			Config:      cfg.Outbox,
			Logger:      logg,
			Store:       outboxRepo,
			DeadLetters: deadLetters,
			Registry:    registry.Default(),
			Publisher:   bus,
			Metrics:     metrics.NewOutboxMetrics(prometheus.DefaultRegisterer),
		})
		requireResource(ctx, logg, "outbox dispatcher", err)
		group.Go(func() error { return svc.Run(groupCtx) })
	}

	addr := ":" + cfg.App.Port
	handler := routes.NewRouter(routes.Deps{
		Config:      cfg,
		Logger:      logg,
		DB:          dbClient,
		Redis:       redisClient,
		Gatherer:    prometheus.DefaultGatherer,
		Orders:      ordersSvc,
		Checkout:    checkoutSvc,
		Production:  statusSvc,
		DeadLetters: deadLetters,
	})
	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
	}

	serverCtx := logg.WithFields(ctx, map[string]any{
		"env":                 cfg.App.Env,
		"addr":                addr,
		"embedded_dispatcher": cfg.FeatureFlags.EmbeddedDispatcher,
	})
	group.Go(func() error {
		logg.Info(serverCtx, "starting api server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(groupCtx), cfg.HTTP.ShutdownGracePeriod)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(serverCtx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(serverCtx, "api server shut down gracefully")
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, "failed to create "+resource, err)
	os.Exit(1)
}
