package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"reverse-logistics/internal/core/cache"
	"reverse-logistics/internal/core/clock"
	"reverse-logistics/internal/core/config"
	"reverse-logistics/internal/core/database"
	"reverse-logistics/internal/core/logger"
	"reverse-logistics/internal/core/metrics"
	"reverse-logistics/internal/core/proxy"
	"reverse-logistics/internal/core/ratelimit"
	"reverse-logistics/internal/core/server"
	"reverse-logistics/internal/core/tracing"
	"reverse-logistics/internal/features/collaborators"
	ndradapters "reverse-logistics/internal/features/ndr/adapters"
	ndrhandler "reverse-logistics/internal/features/ndr/handler"
	ndrservice "reverse-logistics/internal/features/ndr/service"
	orderadapters "reverse-logistics/internal/features/orders/adapters"
	orderhandler "reverse-logistics/internal/features/orders/handler"
	orderports "reverse-logistics/internal/features/orders/ports"
	orderservice "reverse-logistics/internal/features/orders/service"
	qcservice "reverse-logistics/internal/features/qc/service"
	retadapters "reverse-logistics/internal/features/returns/adapters"
	rethandler "reverse-logistics/internal/features/returns/handler"
	retservice "reverse-logistics/internal/features/returns/service"
	rtoadapters "reverse-logistics/internal/features/rto/adapters"
	rtohandler "reverse-logistics/internal/features/rto/handler"
	rtoservice "reverse-logistics/internal/features/rto/service"
	slaservice "reverse-logistics/internal/features/sla/service"
	trackingadapters "reverse-logistics/internal/features/tracking/adapters"
	trackinghandler "reverse-logistics/internal/features/tracking/handler"
	trackingports "reverse-logistics/internal/features/tracking/ports"
	trackingservice "reverse-logistics/internal/features/tracking/service"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"
)

// @title Reverse Logistics API
// @version 1.0
// @description NDR resolution, RTO handling, disposition and customer returns.
// @contact.name Operations
// @license.name MIT
// @host localhost:8080
// @BasePath /
func main() {
	cfg, err := config.Load(".")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if cfg.LogFile != "" {
		err = logger.InitWithFile(cfg.Environment, cfg.LogLevel, cfg.LogFile)
	} else {
		err = logger.Init(cfg.Environment, cfg.LogLevel)
	}
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer logger.Sync()

	l := logger.Get()
	l.Info("Application starting",
		zap.String("environment", cfg.Environment),
		zap.String("log_level", cfg.LogLevel),
	)

	metrics.Register()

	shutdownTracing, err := tracing.Init(cfg.Tracing, cfg.Environment)
	if err != nil {
		l.Fatal("Failed to init tracing", zap.Error(err))
	}

	db, err := database.Open(cfg.Database, cfg.LogLevel,
		&ndradapters.NDRRow{}, &rtoadapters.RTORow{}, &retadapters.ReturnOrderRow{})
	if err != nil {
		l.Fatal("Failed to open database", zap.Error(err))
	}

	redis, err := cache.NewRedisAdapter(cfg.Redis.URL)
	if err != nil {
		l.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redis.Close()

	node, err := snowflake.NewNode(int64(cfg.NodeID))
	if err != nil {
		l.Fatal("Failed to create id generator", zap.Error(err))
	}
	clk := clock.New()

	// Store orders
	wcAdapter := orderadapters.NewWooCommerceAdapter(cfg.WooCommerce)
	startupCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	if err := wcAdapter.HealthCheck(startupCtx); err != nil {
		l.Fatal("WooCommerce Health Check Failed", zap.Error(err))
	}
	cancel()
	l.Info("WooCommerce connection verified")

	var orderProvider orderports.OrderProvider = wcAdapter
	if ttl := cfg.WooCommerce.CacheTTL(); ttl > 0 {
		orderProvider = orderadapters.NewCachedOrderProvider(wcAdapter, redis, ttl)
	}
	orderSvc := orderservice.NewOrderService(orderProvider)

	// Collaborators
	timeout := cfg.Collaborators.Timeout()
	courier := collaborators.NewCourierClient(cfg.Collaborators.CourierURL, timeout)
	payments := collaborators.NewPaymentClient(cfg.Collaborators.PaymentURL, timeout)
	notifier := collaborators.NewNotificationClient(cfg.Collaborators.NotificationURL, timeout)
	inventory := collaborators.NewInventoryClient(cfg.Collaborators.InventoryURL, timeout)
	photos := qcservice.NewPhotoService(collaborators.NewStorageClient(cfg.Collaborators.StorageURL, timeout), timeout)

	// Workflows
	ndrSvc := ndrservice.NewService(
		ndradapters.NewGormRepository(db),
		ndradapters.NewRedisWorkflowStore(redis),
		notifier,
		courier,
		orderSvc,
		clk,
	)
	rtoSvc := rtoservice.NewService(
		rtoadapters.NewGormRepository(db),
		courier,
		inventory,
		ndrSvc,
		photos,
		orderSvc,
		ratelimit.New(redis, "rto", cfg.Workflow.RTORateLimit, time.Duration(cfg.Workflow.RTORateWindowSeconds)*time.Second),
		clk,
		rtoservice.Options{
			TransitDays:    cfg.Workflow.RTOTransitDays,
			NonRestockable: cfg.Workflow.NonRestockableCategories(),
			CallTimeout:    timeout,
		},
	)
	returnSvc := retservice.NewService(retservice.Deps{
		Repo:     retadapters.NewGormRepository(db),
		Orders:   retadapters.NewOrderLookup(orderSvc),
		Policy:   retadapters.NewFeePolicy(float64(cfg.Workflow.RestockingFeePercent)),
		Courier:  courier,
		Payment:  payments,
		Notifier: notifier,
		Photos:   photos,
		Search:   orderSvc,
		IDs:      node,
		Clock:    clk,
	}, retservice.Options{
		PickupSLA:   time.Duration(cfg.Workflow.PickupSLAHours) * time.Hour,
		CallTimeout: timeout,
	})

	// Tracking
	proxySettings := proxy.FromConfig(cfg.Proxy)
	providers := []trackingports.Provider{
		trackingadapters.NewCoordinadoraProvider(cfg.Couriers.CoordinadoraURL, proxySettings),
		trackingadapters.NewInterrapidisimoProvider(cfg.Couriers.InterrapidisimoURL, proxySettings),
		trackingadapters.NewServientregaProvider(cfg.Couriers.ServientregaURL, proxySettings),
	}
	trackingSvc := trackingservice.NewService(providers, ndrSvc, rtoSvc, orderSvc)

	srv := server.New(cfg)
	srv.AddHealthCheck("redis", redis.Ping)
	srv.AddHealthCheck("database", func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	})

	api := srv.App.Group("", server.ScopeMiddleware())
	ndrhandler.NewNDRHandler(ndrSvc).Register(api)
	rtohandler.NewRTOHandler(rtoSvc).Register(api)
	rethandler.NewReturnHandler(returnSvc).Register(api)
	orderhandler.NewOrderHandler(orderSvc).Register(api)
	trackinghandler.NewTrackingHandler(trackingSvc).Register(api)

	var monitor *slaservice.Monitor
	if cfg.Monitor.Enabled {
		monitor, err = slaservice.New(ndrSvc, rtoSvc, returnSvc, slaservice.Options{
			Interval:  time.Duration(cfg.Monitor.IntervalSeconds) * time.Second,
			BatchSize: cfg.Monitor.BatchSize,
			Workers:   cfg.Monitor.Workers,
		})
		if err != nil {
			l.Fatal("Failed to create SLA monitor", zap.Error(err))
		}
		if err := monitor.Start(); err != nil {
			l.Fatal("Failed to start SLA monitor", zap.Error(err))
		}
	}

	go func() {
		if err := srv.Run(); err != nil {
			l.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	l.Info("Shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if monitor != nil {
		if err := monitor.Stop(); err != nil {
			l.Error("SLA monitor stop failed", zap.Error(err))
		}
	}
	if err := srv.Shutdown(ctx); err != nil {
		l.Error("Server shutdown failed", zap.Error(err))
	}
	if err := shutdownTracing(ctx); err != nil {
		l.Error("Tracing shutdown failed", zap.Error(err))
	}
}
