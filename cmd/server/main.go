package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/example/storefront/internal/address"
	"github.com/example/storefront/internal/config"
	"github.com/example/storefront/internal/database"
	"github.com/example/storefront/internal/events"
	"github.com/example/storefront/internal/handlers"
	"github.com/example/storefront/internal/logger"
	"github.com/example/storefront/internal/middleware"
	"github.com/example/storefront/internal/payment"
	"github.com/example/storefront/internal/repository"
	"github.com/example/storefront/internal/repository/memory"
	"github.com/example/storefront/internal/repository/postgres"
	"github.com/example/storefront/internal/routes"
	"github.com/example/storefront/internal/services"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	zlog, err := logger.New(cfg.AppEnv)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, zlog); err != nil {
		zlog.Fatal("server stopped", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, zlog *zap.Logger) error {
	store, err := openStore(cfg, zlog)
	if err != nil {
		return err
	}

	var cache address.Cache
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			zlog.Warn("redis unreachable, address cache will miss until it recovers", zap.Error(err))
		}
		cache = address.NewRedisCache(rdb)
	}

	addressClient := address.NewClient(cfg.AddressAPIURL, zlog,
		address.WithRetry(cfg.AddressRetryAttempts, cfg.AddressRetryDelay))
	resolver := address.NewResolver(addressClient, cache, cfg.AddressCacheTTL, zlog)

	publisher := events.New(cfg.KafkaBrokers, cfg.KafkaOrderTopic, zlog)
	defer func() {
		if err := publisher.Close(); err != nil {
			zlog.Warn("failed to close event publisher", zap.Error(err))
		}
	}()

	users := services.NewUserService(store.Users, cfg.BcryptCost, zlog)
	if err := users.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		return err
	}

	orders := services.NewOrderService(services.OrderServiceDeps{
		Orders:    store.Orders,
		Products:  store.Products,
		Addresses: resolver,
		Gateway:   payment.NewStripeClient(cfg.StripeAPIURL, cfg.StripeSecretKey, zlog),
		Events:    publisher,
		Notifier:  services.NewTelegramService("", cfg.TelegramBotToken, cfg.TelegramAdminChat, zlog),
		Momo: services.MomoSettings{
			Phone:       cfg.MomoPhone,
			AccountName: cfg.MomoAccountName,
			QRURL:       cfg.MomoQRURL,
		},
		Currency: cfg.Currency,
		Logger:   zlog,
	})

	metrics, err := middleware.NewHTTPMetrics(middleware.HTTPMetricsOptions{})
	if err != nil {
		return err
	}

	app := fiber.New(fiber.Config{
		AppName:      "Storefront Backend",
		ErrorHandler: handlers.ErrorHandler(zlog),
	})

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Logger(zlog))
	app.Use(metrics.Handler())

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	routes.Register(app, routes.Deps{
		Config:  cfg,
		Users:   users,
		Catalog: services.NewCatalogService(store.Categories, store.Products, zlog),
		Carts:   services.NewCartService(store.Carts, store.Products, zlog),
		Orders:  orders,
		Address: resolver,
	})

	errCh := make(chan error, 1)
	go func() {
		zlog.Info("starting server", zap.String("port", cfg.AppPort), zap.String("store", cfg.StoreDriver))
		errCh <- app.Listen(":" + cfg.AppPort)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	zlog.Info("shutting down")
	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return nil
}

func openStore(cfg *config.Config, zlog *zap.Logger) (repository.Store, error) {
	if cfg.StoreDriver == config.StoreDriverMemory {
		zlog.Warn("using in-memory store, data is lost on restart")
		return memory.New(), nil
	}

	db, err := database.Connect(cfg.DatabaseURL, !cfg.IsProduction(), zlog)
	if err != nil {
		return repository.Store{}, err
	}
	return postgres.New(db), nil
}
