package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ariefcatur/go-poster-orders/internal/auth"
	"github.com/ariefcatur/go-poster-orders/internal/config"
	"github.com/ariefcatur/go-poster-orders/internal/httpx"
	kafkax "github.com/ariefcatur/go-poster-orders/internal/kafka"
	"github.com/ariefcatur/go-poster-orders/internal/logging"
	"github.com/ariefcatur/go-poster-orders/internal/metrics"
	"github.com/ariefcatur/go-poster-orders/internal/notifications"
	"github.com/ariefcatur/go-poster-orders/internal/orders"
	"github.com/ariefcatur/go-poster-orders/internal/postgres"
	"github.com/ariefcatur/go-poster-orders/internal/redisx"
	"github.com/ariefcatur/go-poster-orders/internal/users"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger, err := logging.New(cfg.ServiceName, cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN, postgres.PoolConfig{MaxConns: cfg.PostgresMax})
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer db.Close()
	if cfg.AutoMigrate {
		if err := postgres.Migrate(ctx, db); err != nil {
			logger.Fatal("db migrate", zap.Error(err))
		}
	}

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producers, one per topic
	created := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderCreated, 1024, logger)
	created.Start(ctx)
	statusChanged := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderStatusChanged, 1024, logger)
	statusChanged.Start(ctx)

	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	serverMetrics := metrics.NewServerMetrics(reg, cfg.ServiceName)
	orderMetrics := metrics.NewOrderMetrics(reg, cfg.ServiceName)

	// Services & handlers
	svc := &orders.Service{
		Store: &orders.Repo{
			DB:          db,
			VerifyTotal: cfg.VerifyTotal,
			Tolerance:   cfg.TotalTolerance,
		},
		Created:       created,
		StatusChanged: statusChanged,
		Metrics:       orderMetrics,
		Log:           logger,
		Name:          cfg.ServiceName,
	}
	verifier := auth.NewVerifier(cfg.JWTSecret)
	authn := httpx.Authenticate(verifier)
	admin := httpx.RequireAdmin(&users.Repo{DB: db}, logger)

	router := httpx.NewRouter(logger, serverMetrics)
	router.Get("/healthz", httpx.Health(map[string]httpx.Check{
		"postgres": db.Ping,
		"redis":    func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
	}))
	router.Handle("/metrics", metrics.Handler(reg))

	idem := &redisx.Idempotency{
		RDB:         rdb,
		TTL:         cfg.IdempotencyTTL,
		InFlightTTL: cfg.IdempotencyInFlightTTL,
	}
	oh := &httpx.OrdersHandler{
		Service: svc,
		Idem:    idem,
		Log:     logger,
	}
	oh.Register(router, httpx.Guards{
		Authn:         authn,
		AuthnNotFound: httpx.AuthenticateOrNotFound(verifier),
		Admin:         admin,
		Checkout: httpx.CheckoutLimit(&redisx.Limiter{
			RDB:    rdb,
			Limit:  cfg.CheckoutRateLimit,
			Window: cfg.CheckoutRateWindow,
		}, logger),
	})
	nh := &httpx.NotificationsHandler{
		Store: &notifications.Repo{DB: db},
		Feed:  &redisx.Feed{RDB: rdb, Size: cfg.FeedSize},
		Log:   logger,
	}
	nh.Register(router, authn, admin)

	// HTTP server
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		logger.Info("http listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("listen", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info("shutting down")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	if err := srv.Shutdown(ctx2); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	cancel() // stop producer loops; they flush on exit
	created.WaitClosed()
	statusChanged.WaitClosed()
}
