package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/md-rashed-zaman/nutriagenda/libs/db"
	"github.com/md-rashed-zaman/nutriagenda/libs/grpcx"
	"github.com/md-rashed-zaman/nutriagenda/libs/httpx"
	"github.com/md-rashed-zaman/nutriagenda/libs/kafkax"
	otelx "github.com/md-rashed-zaman/nutriagenda/libs/otel"
	"github.com/md-rashed-zaman/nutriagenda/libs/runtime"
	"github.com/md-rashed-zaman/nutriagenda/services/agenda-service/internal/availability"
	"github.com/md-rashed-zaman/nutriagenda/services/agenda-service/internal/booking"
	"github.com/md-rashed-zaman/nutriagenda/services/agenda-service/internal/calendar"
	"github.com/md-rashed-zaman/nutriagenda/services/agenda-service/internal/config"
	"github.com/md-rashed-zaman/nutriagenda/services/agenda-service/internal/email"
	"github.com/md-rashed-zaman/nutriagenda/services/agenda-service/internal/events"
	"github.com/md-rashed-zaman/nutriagenda/services/agenda-service/internal/handlers"
	"github.com/md-rashed-zaman/nutriagenda/services/agenda-service/internal/outbox"
	"github.com/md-rashed-zaman/nutriagenda/services/agenda-service/internal/storage"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

const (
	maxBodyBytes   = 1 << 20
	requestTimeout = 15 * time.Second
)

func serveCmd(load func() (config.Config, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, gRPC health endpoint and outbox relay",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}
}

func serve(parent context.Context, cfg config.Config) error {
	logger := runtime.NewLogger(cfg.ServiceName, cfg.LogLevel)
	ctx, stop := runtime.SignalContext(parent)
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.Config{
		ServiceName:  cfg.ServiceName,
		OTLPEndpoint: cfg.OTLPEndpoint,
		SampleRatio:  cfg.SampleRatio,
	})
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	pool, err := db.Open(ctx, cfg.DatabaseURL, cfg.DBMaxConns)
	if err != nil {
		logger.Error("db connection failed", "err", err)
		return err
	}
	defer pool.Close()

	checks := []runtime.ReadyCheck{
		{Name: "db", Check: db.ReadyCheck(pool)},
		{Name: "kafka", Check: kafkax.ReadyCheck(cfg.KafkaBrokers)},
	}

	var limiter httpx.Limiter = httpx.NewMemoryLimiter(cfg.RateLimitPerMinute, time.Minute)
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("parse REDIS_URL: %w", err)
		}
		rdb := redis.NewClient(opts)
		defer rdb.Close()
		limiter = httpx.NewRedisLimiter(rdb, cfg.RateLimitPerMinute, time.Minute, cfg.ServiceName+":rl")
		checks = append(checks, runtime.ReadyCheck{Name: "redis", Check: func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}})
	}

	store := storage.NewStore(pool)
	outboxRepo := outbox.NewRepository(pool)
	publisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
		Brokers:   cfg.KafkaBrokers,
		PollEvery: cfg.OutboxPollEvery,
		BatchSize: cfg.OutboxBatchSize,
	})
	go publisher.Run(ctx)

	var sender email.Sender = email.NewLogSender(logger)
	if cfg.SMTPHost != "" {
		sender = email.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPFrom)
	}
	notifier := events.NewNotifier(logger, cfg.NotifyTimeout)
	events.SubscribeAll(notifier,
		events.NewAuditListener(store),
		events.NewEmailListener(sender, logger),
		events.NewStreamListener(outboxRepo),
	)

	formatter := calendar.NewFormatter(cfg.Location, cfg.AppointmentLength())
	bookingSvc := booking.NewService(store, store, store, notifier, formatter, logger, cfg.Location)
	availabilityHandler := handlers.NewAvailabilityHandler(
		availability.NewGenerator(store),
		availability.NewScheduler(store, store, logger),
		logger,
	)

	mux := runtime.NewBaseMuxWithReady(checks...)
	handlers.Register(mux, availabilityHandler, handlers.NewBookingHandler(bookingSvc, logger), handlers.RequireActor(cfg.JWTSecret))
	if cfg.JWTSecret == "" {
		logger.Warn("AUTH_JWT_SECRET not set; trusting gateway identity headers")
	}

	httpHandler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithRecover(logger),
		httpx.WithCORS(httpx.CORSPolicy{AllowedOrigins: cfg.CORSOrigins}),
		httpx.WithBodyLimit(maxBodyBytes),
		httpx.RateLimit(limiter, logger, true),
		httpx.WithTimeout(requestTimeout),
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "agenda")
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	grpcSrv, health := grpcx.NewServer(logger)
	lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
	if err != nil {
		return fmt.Errorf("grpc listen: %w", err)
	}

	go func() {
		logger.Info("grpc server starting", "addr", lis.Addr().String())
		if err := grpcSrv.Serve(lis); err != nil {
			logger.Error("grpc server error", "err", err)
		}
	}()
	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdown(logger, srv, func() {
		health.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
		grpcSrv.GracefulStop()
	})
	return nil
}

func shutdown(logger *slog.Logger, srv *http.Server, stopGRPC func()) {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	stopGRPC()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("servers stopped")
}
