package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/Varun-1606/quick-cart/internal/adapter/events"
	"github.com/Varun-1606/quick-cart/internal/adapter/handler"
	"github.com/Varun-1606/quick-cart/internal/adapter/payment"
	"github.com/Varun-1606/quick-cart/internal/adapter/security"
	"github.com/Varun-1606/quick-cart/internal/adapter/storage"
	"github.com/Varun-1606/quick-cart/internal/config"
	"github.com/Varun-1606/quick-cart/internal/core/service"
	"github.com/Varun-1606/quick-cart/internal/port"
)

func main() {
	configPath := flag.String("config", envOr("CONFIG_PATH", "configs/default.yaml"), "path to the YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("load config failed", "error", err.Error())
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)})).
		With("service", cfg.ServiceID)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited", "outcome", "failure", "error", err.Error())
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var closers []func()
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
		logger.Info("connections closed")
	}()

	// State store
	store, closeStore, err := openStateStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	closers = append(closers, closeStore)

	// Event pipeline
	var sink port.EventPublisher = events.NewLoggingPublisher(logger)
	if cfg.EventsDriver == config.EventsKafka {
		kafkaPublisher, err := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, nil)
		if err != nil {
			return fmt.Errorf("kafka publisher: %w", err)
		}
		closers = append(closers, func() { _ = kafkaPublisher.Close() })
		sink = kafkaPublisher
		logger.Info("publishing order events to kafka", "brokers", strings.Join(cfg.KafkaBrokers, ","), "topic", cfg.KafkaTopic)
	}
	dispatcher := events.NewDispatcher(sink, cfg.EventWorkers, cfg.EventQueueLen)
	logger.Info("started event workers", "workers", cfg.EventWorkers, "queue_len", cfg.EventQueueLen)

	// Security
	var tokens *security.JWTIssuer
	if cfg.JWTSecret == "" {
		logger.Warn("JWT_SECRET not set, sessions will not survive a restart")
		tokens, err = security.NewEphemeralJWTIssuer()
	} else {
		tokens, err = security.NewJWTIssuer(cfg.JWTSecret)
	}
	if err != nil {
		return fmt.Errorf("jwt issuer: %w", err)
	}
	hasher := security.NewBcryptHasher(cfg.BcryptCost)

	// Repositories and state
	products := storage.NewMemoryProductRepository()
	users := storage.NewMemoryUserRepository()
	orders := storage.NewMemoryOrderRepository()
	carts := storage.NewMemoryCartRepository()
	clock := port.SystemClock{}

	if cfg.SeedData {
		if err := service.Seed(ctx, products, users, orders, hasher, clock.Now()); err != nil {
			return fmt.Errorf("seed: %w", err)
		}
		logger.Info("seeded catalog, accounts and sample orders")
	}
	mirror := service.NewStateMirror(store, products, users, orders, carts)
	if err := mirror.Restore(ctx); err != nil {
		return fmt.Errorf("restore state: %w", err)
	}
	mirror.SaveAll(ctx)

	// Services
	catalogService := service.NewCatalogService(products, mirror)
	cartService := service.NewCartService(carts, products, mirror)
	orderService := service.NewOrderService(orders, carts, dispatcher, mirror, clock)
	identityService := service.NewIdentityService(users, hasher, tokens, store, mirror, clock, cfg.SessionTTL)
	gateway := payment.NewSimulatedGateway(cfg.PaymentDelay, cfg.PaymentBaseURL)
	checkoutService := service.NewCheckoutService(carts, orderService, gateway, store, cfg.IdempotencyTTL)
	dashboardService := service.NewDashboardService(orders, products, users)

	// Delivery sweeper
	var wg sync.WaitGroup
	sweepCtx, stopSweeper := context.WithCancel(ctx)
	defer stopSweeper()
	wg.Add(1)
	go func() {
		defer wg.Done()
		orderService.RunDeliverySweeper(sweepCtx, cfg.SweepInterval)
	}()

	// gRPC server
	grpcServer := grpc.NewServer(grpc.UnaryInterceptor(handler.LoggingInterceptor))
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	handler.RegisterOrderAdminService(grpcServer, handler.NewGRPCHandler(orderService, identityService))
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	grpcAddr := fmt.Sprintf(":%d", cfg.GRPCPort)
	lis, err := net.Listen("tcp", grpcAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", grpcAddr, err)
	}

	go func() {
		logger.Info("gRPC server listening", "addr", grpcAddr)
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error("gRPC server error", "error", err.Error())
		}
	}()

	// HTTP server
	httpHandler := handler.NewHTTPHandler(handler.Services{
		Catalog:   catalogService,
		Cart:      cartService,
		Orders:    orderService,
		Identity:  identityService,
		Checkout:  checkoutService,
		Dashboard: dashboardService,
		Ready:     storeReady(store),
	})
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           handler.NewRouter(httpHandler),
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-serveErr:
		logger.Error("HTTP server error", "error", err.Error())
	}

	logger.Info("shutting down")
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP shutdown incomplete", "error", err.Error())
	}
	logger.Info("HTTP server stopped")

	grpcServer.GracefulStop()
	logger.Info("gRPC server stopped")

	stopSweeper()
	wg.Wait()

	// Drain pending events before the sink closes
	dispatcher.Close()
	logger.Info("event workers stopped")
	return nil
}

// openStateStore connects the configured key-value backend and returns a
// closer for its connection pool.
func openStateStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (port.StateStore, func(), error) {
	switch cfg.StorageDriver {
	case config.StorageRedis:
		rdb, err := storage.ConnectRedis(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("connected to redis")
		return storage.NewRedisAdapter(rdb, ""), func() { _ = rdb.Close() }, nil

	case config.StorageMySQL:
		db, err := sql.Open("mysql", cfg.MySQLDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open mysql: %w", err)
		}
		db.SetMaxOpenConns(50)
		db.SetMaxIdleConns(25)
		db.SetConnMaxLifetime(5 * time.Minute)
		if err := db.PingContext(ctx); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("ping mysql: %w", err)
		}
		logger.Info("connected to mysql")
		adapter := storage.NewMySQLAdapter(db)
		if err := adapter.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return adapter, func() { _ = db.Close() }, nil

	case config.StoragePostgres:
		db, err := storage.ConnectPostgres(ctx, cfg.PostgresURL)
		if err != nil {
			return nil, nil, err
		}
		adapter := storage.NewPostgresAdapter(db)
		closeDB := func() {
			if sqlDB, err := db.DB(); err == nil {
				_ = sqlDB.Close()
			}
		}
		if err := adapter.EnsureSchema(ctx); err != nil {
			closeDB()
			return nil, nil, err
		}
		return adapter, closeDB, nil

	default:
		logger.Info("using in-process state store, state is lost on restart")
		return storage.NewMemoryStateStore(), func() {}, nil
	}
}

func storeReady(store port.StateStore) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		_, err := store.Get(ctx, "readyz")
		if err == nil || errors.Is(err, port.ErrStateNotFound) {
			return nil
		}
		return err
	}
}

func parseLevel(raw string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(raw)); err != nil {
		return slog.LevelInfo
	}
	return level
}

func envOr(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}
