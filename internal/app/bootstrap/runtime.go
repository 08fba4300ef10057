package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	cacheadapter "github.com/venturelink/deal-service/internal/adapters/cache"
	"github.com/venturelink/deal-service/internal/adapters/clients"
	eventadapter "github.com/venturelink/deal-service/internal/adapters/events"
	grpcadapter "github.com/venturelink/deal-service/internal/adapters/grpc"
	httpadapter "github.com/venturelink/deal-service/internal/adapters/http"
	"github.com/venturelink/deal-service/internal/adapters/postgres"
	"github.com/venturelink/deal-service/internal/adapters/security"
	"github.com/venturelink/deal-service/internal/application"
	"github.com/venturelink/deal-service/internal/ports"
)

type Runtime struct {
	cfg        Config
	logger     *slog.Logger
	httpServer *http.Server
	grpcServer *grpc.Server
	grpcLis    net.Listener
	outbox     *eventadapter.OutboxWorker
	cleanupFn  func(context.Context)
}

func NewRuntime(ctx context.Context, configPath string) (*Runtime, error) {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)
	logger.Info("bootstrapping deal service", "http_port", cfg.HTTPPort, "grpc_port", cfg.GRPCPort)

	pool, err := postgres.Connect(ctx, cfg.DatabaseURL, cfg.MaxDBConns)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	sqlDB, err := pool.DB()
	if err != nil {
		return nil, fmt.Errorf("gorm sql db: %w", err)
	}

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	redisClient, err := cacheadapter.Connect(ctx, cfg.RedisURL)
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("init redis client: %w", err)
	}
	if err := redisClient.Ping(ctx).Err(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}

	repos := postgres.NewRepositories(pool)

	var verifier ports.TokenVerifier
	if cfg.JWTSecret != "" {
		verifier, err = security.NewJWTVerifier(cfg.JWTSecret)
		if err != nil {
			_ = sqlDB.Close()
			_ = redisClient.Close()
			return nil, fmt.Errorf("init jwt verifier: %w", err)
		}
	} else {
		logger.Warn("running without token verification; bearer subjects are trusted as-is")
	}

	var payments ports.PaymentClient
	if cfg.PaymentRailURL != "" {
		payments = clients.NewHTTPPaymentClient(cfg.PaymentRailURL, cfg.PaymentRailToken, &http.Client{
			Timeout: cfg.PaymentHTTPTimeout,
		})
	} else {
		logger.Warn("payment rail URL not configured; escrow holds will fail")
		payments = clients.NewHTTPPaymentClient("http://localhost:0", "", &http.Client{Timeout: cfg.PaymentHTTPTimeout})
	}

	svc := application.NewService(application.Dependencies{
		Config: application.Config{
			ServiceName:         cfg.ServiceID,
			DefaultCurrency:     cfg.DefaultCurrency,
			IdempotencyTTL:      cfg.IdempotencyTTL,
			IntentTTL:           cfg.IntentTTL,
			SubmitRateThreshold: cfg.SubmitRateThreshold,
			SubmitRateWindow:    cfg.SubmitRateWindow,
			HistoryFeedLimit:    cfg.HistoryFeedLimit,
		},
		Proposals:   repos.Proposals,
		Milestones:  repos.Milestones,
		Contracts:   repos.Contracts,
		Payouts:     repos.Payouts,
		Disputes:    repos.Disputes,
		Invitations: repos.Invitations,
		NDASettings: repos.NDASettings,
		NDARecords:  repos.NDARecords,
		History:     repos.History,
		Idempotency: repos.Idempotency,
		Outbox:      repos.Outbox,
		Payments:    payments,
		Intents:     cacheadapter.NewRedisIntentStore(redisClient),
		Limiter:     cacheadapter.NewRedisRateLimiter(redisClient),
	})

	handler := httpadapter.NewHandler(svc, verifier)
	router := httpadapter.NewRouter(handler)
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	grpcServer := grpc.NewServer()
	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthSrv)
	healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	grpcadapter.Register(grpcServer, grpcadapter.NewDealInternalServer(svc))

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.GRPCPort))
	if err != nil {
		_ = sqlDB.Close()
		_ = redisClient.Close()
		return nil, fmt.Errorf("listen gRPC: %w", err)
	}

	var publisher ports.EventPublisher
	if len(cfg.KafkaBrokers) > 0 {
		kafkaPublisher, pubErr := eventadapter.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaDefaultTopic, nil, cfg.ServiceID)
		if pubErr != nil {
			_ = sqlDB.Close()
			_ = redisClient.Close()
			_ = lis.Close()
			return nil, fmt.Errorf("init kafka publisher: %w", pubErr)
		}
		publisher = kafkaPublisher
	} else {
		logger.Warn("kafka brokers not configured; outbox events are logged only")
		publisher = eventadapter.NewLoggingPublisher(logger)
	}

	outbox := eventadapter.NewOutboxWorker(
		logger,
		repos.Outbox,
		publisher,
		cfg.OutboxPollInterval,
		cfg.OutboxBatchSize,
		cfg.OutboxClaimTTL,
		cfg.OutboxMaxRetries,
	)

	return &Runtime{
		cfg:        cfg,
		logger:     logger,
		httpServer: httpServer,
		grpcServer: grpcServer,
		grpcLis:    lis,
		outbox:     outbox,
		cleanupFn: func(ctx context.Context) {
			if closer, ok := publisher.(interface{ Close() error }); ok {
				_ = closer.Close()
			}
			_ = redisClient.Close()
			_ = sqlDB.Close()
		},
	}, nil
}

// RunAPI serves HTTP and gRPC until a shutdown signal or server failure.
func (r *Runtime) RunAPI(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 2)
	go func() {
		r.logger.Info("http server started", "addr", r.httpServer.Addr)
		if err := r.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()
	go func() {
		r.logger.Info("grpc server started", "addr", r.grpcLis.Addr().String())
		if err := r.grpcServer.Serve(r.grpcLis); err != nil {
			errCh <- fmt.Errorf("grpc server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		r.logger.Info("shutdown signal received")
	case err := <-errCh:
		r.logger.Error("server failure", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = r.httpServer.Shutdown(shutdownCtx)
	r.grpcServer.GracefulStop()
	r.cleanupFn(shutdownCtx)
	return nil
}

// RunWorker drains the outbox until a shutdown signal.
func (r *Runtime) RunWorker(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	r.logger.Info("outbox worker started")
	err := r.outbox.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	r.cleanupFn(shutdownCtx)
	return nil
}
