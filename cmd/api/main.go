package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"go-pos-checkout/internal/config"
	"go-pos-checkout/internal/feed"
	"go-pos-checkout/internal/handler"
	"go-pos-checkout/internal/logging"
	"go-pos-checkout/internal/middleware"
	"go-pos-checkout/internal/receipt"
	"go-pos-checkout/internal/repository"
	"go-pos-checkout/internal/service"
	"go-pos-checkout/internal/ws"
	"go-pos-checkout/pkg/database"
	"go-pos-checkout/pkg/jwt"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	zlog, err := logging.New(cfg.Debug)
	if err != nil {
		return err
	}
	if cfg.LogFile != "" {
		file, err := logging.OpenLogFile(cfg.LogFile)
		if err != nil {
			return err
		}
		defer file.Close()
		zlog = logging.AttachFileLogger(zlog, file, cfg.Debug)
	}
	defer zlog.Sync()

	// 2. Setup Database
	db, err := database.Connect(cfg.DSN(), zlog, cfg.Debug)
	if err != nil {
		return err
	}
	if err := repository.AutoMigrate(db); err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()
	store := repository.NewStore(db)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Change feed: Redis when configured so several API instances share it
	var events feed.Feed
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return err
		}
		events = feed.NewRedisFeed(rdb, cfg.FeedChannel, zlog)
		zlog.Info("using redis feed", zap.String("addr", cfg.RedisAddr), zap.String("channel", cfg.FeedChannel))
	} else {
		events = feed.NewLocalFeed()
	}
	defer events.Close()

	// 4. Setup WebSocket Hub
	hub := ws.NewHub(zlog)
	go hub.Run(ctx)
	go func() {
		if err := hub.Forward(ctx, events); err != nil {
			zlog.Error("hub forward", zap.Error(err))
		}
	}()

	// 5. Dependency Injection (Wiring Layers)
	tokens, err := jwt.NewManager(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		return err
	}
	cashierSvc := service.NewCashierService(store, tokens)
	checkoutSvc := service.NewCheckoutService(store, events, service.CheckoutOptions{
		Location: cfg.Location,
		Retry: service.RetryPolicy{
			MaxAttempts:  cfg.Checkout.MaxAttempts,
			InitialDelay: cfg.Checkout.InitialDelay,
			MaxDelay:     cfg.Checkout.MaxDelay,
		},
		Logger: zlog,
	})
	querySvc := service.NewTransactionQueryService(store, events, cfg.Location, nil, zlog)
	inventorySvc := service.NewInventoryService(store, events, nil, zlog)
	reportSvc := service.NewReportService(store, cfg.Location, nil, cfg.LowStockThreshold)
	outbox := service.NewOutboxProcessor(store, service.NewDailyAggregateUpdater(store, nil), service.OutboxOptions{
		PollInterval:  cfg.Outbox.PollInterval,
		BatchSize:     cfg.Outbox.BatchSize,
		MaxDeliveries: cfg.Outbox.MaxDeliveries,
		StepAttempts:  cfg.Outbox.StepAttempts,
		Logger:        zlog,
	})
	go outbox.Run(ctx)

	handlers := handler.Handlers{
		Transactions: handler.NewTransactionHandler(checkoutSvc, querySvc, receipt.Options{
			StoreName: cfg.Receipt.StoreName,
			Tagline:   cfg.Receipt.Tagline,
			Currency:  cfg.Receipt.Currency,
			Width:     cfg.Receipt.Width,
			Location:  cfg.Location,
		}),
		Inventory: handler.NewInventoryHandler(inventorySvc, checkoutSvc),
		Dashboard: handler.NewDashboardHandler(reportSvc, cfg.Location, nil),
		Cashiers:  handler.NewCashierHandler(cashierSvc),
		WS:        handler.NewWSHandler(hub, querySvc, zlog),
		Health:    handler.NewHealthHandler(sqlDB.PingContext),
	}

	// 6. Setup Fiber
	app := fiber.New(fiber.Config{
		AppName:      "POS Checkout v1.0",
		ErrorHandler: handler.ErrorHandler(zlog),
	})
	app.Use(logger.New())
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.AllowedOrigin,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))

	// 7. Routes
	handler.Register(app, handlers, middleware.RequireAuth(cashierSvc))

	// 8. Graceful Shutdown
	listenErr := make(chan error, 1)
	go func() {
		zlog.Info("listening", zap.String("addr", cfg.Address()))
		listenErr <- app.Listen(cfg.Address())
	}()

	select {
	case err := <-listenErr:
		return err
	case <-ctx.Done():
	}

	zlog.Info("shutting down server")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	zlog.Info("server exited")
	return nil
}
