package main

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

	grpcadapter "github.com/ecolix/golang_services/internal/billing_service/adapters/grpc"
	httpadapter "github.com/ecolix/golang_services/internal/billing_service/adapters/http"
	"github.com/ecolix/golang_services/internal/billing_service/adapters/paymentgateway"
	"github.com/ecolix/golang_services/internal/billing_service/adapters/redisstore"
	"github.com/ecolix/golang_services/internal/billing_service/adapters/s3store"
	"github.com/ecolix/golang_services/internal/billing_service/app"
	"github.com/ecolix/golang_services/internal/billing_service/repository"
	"github.com/ecolix/golang_services/internal/billing_service/repository/postgres"
	"github.com/ecolix/golang_services/internal/platform/cache"
	"github.com/ecolix/golang_services/internal/platform/config"
	"github.com/ecolix/golang_services/internal/platform/database"
	"github.com/ecolix/golang_services/internal/platform/logger"
	"github.com/ecolix/golang_services/internal/platform/messagebroker"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-redis/redis/v8"
	"golang.org/x/sync/errgroup"
	gRPC "google.golang.org/grpc"

	grpcprom "github.com/grpc-ecosystem/go-grpc-middleware/providers/prometheus"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	serviceName         = "billing-service"
	defaultMetricsPort  = 9093
	shutdownTimeout     = 15 * time.Second
	healthCheckInterval = 10 * time.Second
	paymentEventSubject = "billing.payments.>"
)

// httpLogger is a middleware that logs HTTP requests using slog.
func httpLogger(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			requestID := chiMiddleware.GetReqID(r.Context())
			remoteIP := chiMiddleware.GetRealIP(r.Context())

			next.ServeHTTP(ww, r)

			logger.LogAttrs(r.Context(), slog.LevelInfo, "HTTP request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status_code", ww.Status()),
				slog.Int64("duration_ms", time.Since(start).Milliseconds()),
				slog.String("request_id", requestID),
				slog.String("remote_ip", remoteIP),
			)
		}
		return http.HandlerFunc(fn)
	}
}

// redisPinger adapts *redis.Client to the health Pinger.
type redisPinger struct{ client *redis.Client }

func (p redisPinger) Ping(ctx context.Context) error { return p.client.Ping(ctx).Err() }

func main() {
	mainCtx, mainCancel := context.WithCancel(context.Background())
	defer mainCancel()

	cfg, err := config.Load(serviceName)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	appLogger := logger.New(cfg.LogLevel, cfg.LogFormat).With("service", serviceName)

	metricsPort := cfg.BillingServiceMetricsPort
	if metricsPort == 0 {
		metricsPort = defaultMetricsPort
		appLogger.Info("Billing service metrics port not configured, using default", "port", metricsPort)
	}
	appLogger.Info("Billing service starting...",
		"grpc_port", cfg.BillingServiceGRPCPort,
		"http_port", cfg.BillingServiceHTTPPort,
		"metrics_port", metricsPort,
		"log_level", cfg.LogLevel,
		"storage_backend", cfg.StorageBackend,
	)

	dbPool, err := database.NewDBPool(mainCtx, cfg.PostgresDSN, appLogger)
	if err != nil {
		appLogger.Error("Failed to connect to PostgreSQL", "error", err)
		os.Exit(1)
	}
	defer dbPool.Close()
	appLogger.Info("Successfully connected to PostgreSQL")

	natsClient, err := messagebroker.NewNatsClient(cfg.NATSUrl, serviceName, appLogger)
	if err != nil {
		appLogger.Error("Failed to connect to NATS", "error", err)
		os.Exit(1)
	}
	defer natsClient.Close()
	if err := natsClient.EnsureStream(mainCtx, cfg.EventsStream, paymentEventSubject); err != nil {
		appLogger.Error("Failed to ensure payment events stream", "stream", cfg.EventsStream, "error", err)
		os.Exit(1)
	}

	healthDeps := map[string]grpcadapter.Pinger{"postgres": dbPool, "nats": natsClient}

	providerTimeout := time.Duration(cfg.ProviderHTTPTimeoutSeconds) * time.Second

	var idempotency paymentgateway.IdempotencyStore
	var callbackTokens paymentgateway.CallbackTokenStore
	if cfg.RedisURL != "" {
		redisClient, err := cache.NewRedisClient(mainCtx, cfg.RedisURL)
		if err != nil {
			appLogger.Error("Failed to connect to Redis", "error", err)
			os.Exit(1)
		}
		defer redisClient.Close()
		idempotency = redisstore.NewIdempotencyStore(redisClient, idempotencyPendingTTL(providerTimeout), time.Duration(cfg.IdempotencyTTLHours)*time.Hour, appLogger)
		callbackTokens = redisstore.NewCallbackTokenStore(redisClient, redisstore.DefaultResultTTL)
		healthDeps["redis"] = redisPinger{client: redisClient}
		appLogger.Info("Idempotency store enabled")
	} else {
		appLogger.Info("REDIS_URL not set, payment idempotency keys are forwarded to providers only and Orange notif_tokens stay in process")
	}

	usageRepo := postgres.NewPgUsageRepository(dbPool, appLogger)
	subscriptionRepo := postgres.NewPgSubscriptionRepository(dbPool, appLogger)

	var storageMeter repository.StorageMeter = usageRepo
	if cfg.StorageBackend == "s3" {
		s3Client, err := s3store.NewClient(mainCtx, s3store.ClientConfig{
			Region:       cfg.S3.S3Region,
			Endpoint:     cfg.S3.S3Endpoint,
			AccessKey:    cfg.S3.S3AccessKey,
			SecretKey:    cfg.S3.S3SecretKey,
			UsePathStyle: cfg.S3.S3UsePathStyle,
		})
		if err != nil {
			appLogger.Error("Failed to create S3 client", "error", err)
			os.Exit(1)
		}
		storageMeter = s3store.NewStorageMeter(s3Client, cfg.S3.S3Bucket, cfg.S3.S3TenantPrefix, appLogger)
		appLogger.Info("Metering storage from S3", "bucket", cfg.S3.S3Bucket)
	}

	providerClient := paymentgateway.DefaultHTTPClient(providerTimeout)
	urls := paymentgateway.NewRedirectURLs(cfg.PublicBaseURL)
	dispatcher := paymentgateway.NewDispatcher(appLogger, idempotency, buildAdapters(cfg, urls, providerClient, callbackTokens, appLogger)...)

	meter := app.NewUsageMeter(usageRepo, storageMeter, appLogger)
	billingApp := app.NewBillingService(subscriptionRepo, meter, dispatcher, natsClient, appLogger)
	appLogger.Info("BillingService initialized", "providers", dispatcher.Providers())

	g, groupCtx := errgroup.WithContext(mainCtx)

	// --- Start gRPC health server ---
	grpcMetrics := grpcprom.NewServerMetrics(
		grpcprom.WithServerHandlingTimeHistogram(),
	)
	if err := prometheus.DefaultRegisterer.Register(grpcMetrics); err != nil {
		appLogger.Warn("Failed to register gRPC Prometheus metrics", "error", err)
	}
	healthServer := grpcadapter.NewHealthServer(grpcMetrics, healthDeps, appLogger)

	grpcListenAddress := fmt.Sprintf(":%d", cfg.BillingServiceGRPCPort)
	grpcListener, err := net.Listen("tcp", grpcListenAddress)
	if err != nil {
		appLogger.Error("Failed to listen for gRPC", "address", grpcListenAddress, "error", err)
		os.Exit(1)
	}

	g.Go(func() error {
		appLogger.Info("Billing service gRPC server starting", "address", grpcListenAddress)
		if err := healthServer.Server.Serve(grpcListener); err != nil && !errors.Is(err, gRPC.ErrServerStopped) {
			appLogger.Error("gRPC server failed to serve", "error", err)
			return err
		}
		appLogger.Info("gRPC server shut down gracefully.")
		return nil
	})

	g.Go(func() error {
		healthServer.Watch(groupCtx, healthCheckInterval)
		return nil
	})

	// --- Start HTTP API server ---
	authMiddleware := httpadapter.AuthMiddleware(cfg.JWTAccessSecret, appLogger)
	httpRouter := chi.NewRouter()
	httpRouter.Use(chiMiddleware.RequestID)
	httpRouter.Use(chiMiddleware.RealIP)
	httpRouter.Use(chiMiddleware.Recoverer)
	httpRouter.Use(httpLogger(appLogger))
	httpRouter.Use(httpadapter.PrometheusMetricsMiddleware)
	httpadapter.NewBillingHandler(billingApp, appLogger).RegisterRoutes(httpRouter, authMiddleware)
	httpadapter.NewWebhookHandler(billingApp, appLogger).RegisterRoutes(httpRouter)

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.BillingServiceHTTPPort),
		Handler: httpRouter,
		// Provider calls are bounded by the provider client timeout.
		ReadTimeout:  5 * time.Second,
		WriteTimeout: providerTimeout + 10*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	g.Go(func() error {
		appLogger.Info("HTTP server starting", "address", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Error("HTTP server ListenAndServe error", "error", err)
			return err
		}
		appLogger.Info("HTTP server shut down gracefully.")
		return nil
	})

	// --- Start Metrics HTTP Server ---
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", metricsPort),
		Handler:           metricsMux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g.Go(func() error {
		appLogger.Info("Metrics HTTP server starting", "address", metricsServer.Addr)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Error("Metrics HTTP server ListenAndServe error", "error", err)
			return err
		}
		appLogger.Info("Metrics HTTP server shut down gracefully.")
		return nil
	})

	// --- Graceful Shutdown Handling ---
	stopSignal := make(chan os.Signal, 1)
	signal.Notify(stopSignal, syscall.SIGINT, syscall.SIGTERM)

	g.Go(func() error {
		select {
		case sig := <-stopSignal:
			appLogger.Info("Received termination signal", "signal", sig.String())
			mainCancel()
			return nil
		case <-groupCtx.Done():
			return nil
		}
	})

	g.Go(func() error {
		<-groupCtx.Done()
		appLogger.Info("Initiating graceful shutdown of servers...")
		healthServer.Shutdown()

		shutdownCtx, cancelShutdownTimeout := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancelShutdownTimeout()

		var shutdownErrors error

		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			appLogger.Error("Metrics HTTP server graceful shutdown failed", "error", err)
			shutdownErrors = errors.Join(shutdownErrors, fmt.Errorf("metrics http shutdown: %w", err))
		}

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			appLogger.Error("HTTP server graceful shutdown failed", "error", err)
			shutdownErrors = errors.Join(shutdownErrors, fmt.Errorf("http shutdown: %w", err))
		}

		healthServer.Server.GracefulStop()
		appLogger.Info("gRPC server has finished GracefulStop.")

		return shutdownErrors
	})

	appLogger.Info("Billing service is ready and running.")
	if err := g.Wait(); err != nil {
		if !errors.Is(err, context.Canceled) && !errors.Is(err, http.ErrServerClosed) && !errors.Is(err, gRPC.ErrServerStopped) {
			appLogger.Error("Service group encountered an error during run/shutdown", "error", err)
		}
	}

	appLogger.Info("Billing service shut down successfully.")
}
