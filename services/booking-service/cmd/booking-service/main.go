package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/md-rashed-zaman/autobook/libs/auth"
	"github.com/md-rashed-zaman/autobook/libs/config"
	"github.com/md-rashed-zaman/autobook/libs/grpcx"
	"github.com/md-rashed-zaman/autobook/libs/httpx"
	otelx "github.com/md-rashed-zaman/autobook/libs/otel"
	"github.com/md-rashed-zaman/autobook/libs/runtime"
	"github.com/md-rashed-zaman/autobook/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/autobook/services/booking-service/internal/calendar"
	"github.com/md-rashed-zaman/autobook/services/booking-service/internal/handlers"
	"github.com/md-rashed-zaman/autobook/services/booking-service/internal/notify"
	"github.com/md-rashed-zaman/autobook/services/booking-service/internal/schedule"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		panic(err)
	}
	service := config.String("SERVICE_NAME", "booking-service")
	logger := runtime.NewLogger(service)
	if err := run(service, logger); err != nil {
		logger.Error("booking service failed", "err", err)
		os.Exit(1)
	}
}

func run(service string, logger *slog.Logger) error {
	port, err := config.Port("PORT", "8083")
	if err != nil {
		return err
	}
	grpcPort, err := config.Port("GRPC_PORT", "9093")
	if err != nil {
		return err
	}
	pol, err := policyFromEnv()
	if err != nil {
		return err
	}

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	store, err := openBackend(ctx, logger)
	if err != nil {
		return err
	}
	defer store.close()

	var rdb *redis.Client
	if addr := config.String("REDIS_ADDR", ""); addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: config.String("REDIS_PASSWORD", ""),
		})
		defer rdb.Close()
		store.checks = append(store.checks, runtime.ReadyCheck{
			Name:  "redis",
			Check: func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		})
	}

	notifyTimeout, err := config.Duration("NOTIFY_TIMEOUT", 10*time.Second, time.Second)
	if err != nil {
		return err
	}
	bookings := booking.NewService(pol, booking.Deps{
		Services:        store.services,
		Vehicles:        store.vehicles,
		Users:           store.users,
		Appointments:    store.appointments,
		Tx:              store.tx,
		Schedule:        store.schedule,
		Notifier:        newDispatcher(pol, rdb, logger),
		Logger:          logger,
		Now:             time.Now,
		ReminderOffsets: reminderOffsets(logger),
		NotifyTimeout:   notifyTimeout,
	})
	schedules := schedule.NewService(store.availability, store.users, logger, time.Now)

	apiMux := http.NewServeMux()
	handlers.New(bookings, schedules, logger).Register(apiMux)

	secret := config.String("JWT_SECRET", "")
	if secret == "" {
		logger.Warn("JWT_SECRET not set; trusting X-User-Id / X-Role headers from the gateway")
	}
	mux := runtime.NewBaseMuxWithReady(store.checks...)
	mux.Handle("/api/", auth.Middleware([]byte(secret))(apiMux))

	rateLimit, err := rateLimiter(rdb, logger)
	if err != nil {
		return err
	}
	requestTimeout, err := config.Duration("HTTP_REQUEST_TIMEOUT", 15*time.Second, time.Second)
	if err != nil {
		return err
	}
	httpHandler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithRecover(logger),
		httpx.WithAccessLog(logger),
		httpx.WithCORS(httpx.CORSPolicy{
			AllowedOrigins:   config.List("CORS_ALLOWED_ORIGINS", "*"),
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-Id"},
			AllowCredentials: config.Bool("CORS_ALLOW_CREDENTIALS", false),
			MaxAge:           10 * time.Minute,
		}),
		rateLimit,
		httpx.WithBodyLimit(1<<20),
		httpx.WithTimeout(requestTimeout),
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "booking")

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	grpcSrv, health := grpcx.NewServer(logger)
	grpcLis, err := net.Listen("tcp", ":"+grpcPort)
	if err != nil {
		return err
	}
	health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	health.SetServingStatus(service, healthpb.HealthCheckResponse_SERVING)

	go func() {
		logger.Info("grpc server starting", "addr", grpcLis.Addr().String())
		if err := grpcSrv.Serve(grpcLis); err != nil {
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
	health.Shutdown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	grpcSrv.GracefulStop()
	logger.Info("servers stopped")
	return nil
}

// newDispatcher enables each delivery channel only when it is configured.
func newDispatcher(pol calendar.Policy, rdb *redis.Client, logger *slog.Logger) *notify.Dispatcher {
	d := &notify.Dispatcher{
		Renderer: notify.Renderer{Location: pol.Location, CancellationWindow: pol.CancellationWindow},
		Logger:   logger,
	}
	if host := config.String("SMTP_HOST", ""); host != "" {
		d.Email = notify.NewSMTPSender(host, config.String("SMTP_PORT", "25"), config.String("SMTP_FROM", "noreply@autobook.local"))
	}
	if url := config.String("SMS_WEBHOOK_URL", ""); url != "" {
		d.SMS = notify.NewWebhookSender(url, config.String("SMS_WEBHOOK_TOKEN", ""))
	}
	if rdb != nil {
		d.Realtime = notify.NewRealtimePublisher(rdb, pol.Location)
	}
	return d
}

func rateLimiter(rdb *redis.Client, logger *slog.Logger) (httpx.Middleware, error) {
	limit, err := config.Int("RATE_LIMIT_PER_MINUTE", 120)
	if err != nil {
		return nil, err
	}
	if rdb == nil {
		return httpx.NewRateLimiter(limit, time.Minute).Middleware(), nil
	}
	rl := httpx.NewRedisRateLimiter(rdb, limit, time.Minute, config.String("RATE_LIMIT_PREFIX", "rl:booking"))
	return rl.Middleware(logger, config.Bool("RATE_LIMIT_FAIL_OPEN", true)), nil
}
