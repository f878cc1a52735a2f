package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"activityhub/libs/config"
	"activityhub/libs/db"
	"activityhub/libs/httpx"
	"activityhub/libs/kafkax"
	otelx "activityhub/libs/otel"
	"activityhub/libs/runtime"
	"activityhub/services/booking-service/internal/admission"
	"activityhub/services/booking-service/internal/consumer"
	"activityhub/services/booking-service/internal/handlers"
	"activityhub/services/booking-service/internal/inbox"
	"activityhub/services/booking-service/internal/outbox"
	"activityhub/services/booking-service/internal/policy"
	"activityhub/services/booking-service/internal/storage"
	"activityhub/services/booking-service/internal/tier"

	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// parseQuotaOverrides reads TIER_QUOTA_OVERRIDES, e.g.
// "once-a-week=1,twice-a-week=3,three-plus-a-week=unlimited".
func parseQuotaOverrides(raw string, logger *slog.Logger) map[tier.Tier]int {
	overrides := map[tier.Tier]int{}
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, value, ok := strings.Cut(part, "=")
		if !ok {
			logger.Warn("invalid quota override", "value", part)
			continue
		}
		t, known := tier.Normalize(strings.TrimSpace(name))
		if !known {
			logger.Warn("quota override for unknown tier", "tier", name)
			continue
		}
		value = strings.TrimSpace(value)
		if value == "unlimited" {
			overrides[t] = tier.Unlimited
			continue
		}
		limit, err := strconv.Atoi(value)
		if err != nil || limit < 0 {
			logger.Warn("invalid quota override", "value", part)
			continue
		}
		overrides[t] = limit
	}
	return overrides
}

func main() {
	service := config.String("SERVICE_NAME", "booking-service")
	port, err := config.Port("PORT", "8083")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service)

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

	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		panic(err)
	}
	pool, err := db.Open(ctx, dbURL)
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	outboxRepo := outbox.NewRepository(pool)
	repo := storage.NewBookingRepository(pool, outboxRepo)

	envOverrides := parseQuotaOverrides(config.String("TIER_QUOTA_OVERRIDES", ""), logger)
	policyProvider, err := policy.NewMembershipPolicyProvider(logger, envOverrides, config.String("MEMBERSHIP_GRPC_ADDR", ""))
	if err != nil {
		logger.Error("policy provider init failed", "err", err)
		policyProvider = policy.NewStaticProvider(envOverrides)
	}
	overrides, err := policyProvider.QuotaOverrides(ctx)
	if err != nil {
		logger.Warn("quota overrides fetch failed, using env overrides", "err", err)
		overrides = envOverrides
	}
	catalog := tier.NewCatalog(overrides)

	controller := admission.NewController(repo, catalog, logger)

	outboxPublisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
		Brokers:   config.String("KAFKA_BROKERS", ""),
		PollEvery: config.Duration("OUTBOX_POLL_INTERVAL", 2*time.Second),
		BatchSize: config.Int("OUTBOX_BATCH_SIZE", 50),
	})
	go outboxPublisher.Run(ctx)

	inboxRepo := inbox.NewRepository(pool)
	tierTopic := config.String("KAFKA_TIER_TOPIC", "membership.tier.updated.v1")
	if strings.TrimSpace(tierTopic) != "" && config.String("KAFKA_BROKERS", "") != "" {
		tierConsumer := consumer.New(logger, inboxRepo, consumer.Config{
			Brokers: config.String("KAFKA_BROKERS", ""),
			GroupID: config.String("KAFKA_GROUP_ID", "booking-service"),
			Topic:   tierTopic,
		}, func(ctx context.Context, msg kafka.Message) error {
			var payload struct {
				UserID string `json:"user_id"`
				Tier   string `json:"tier"`
			}
			if err := json.Unmarshal(msg.Value, &payload); err != nil {
				logger.Error("invalid tier event payload", "err", err, "topic", msg.Topic)
				return nil
			}
			if payload.UserID == "" || payload.Tier == "" {
				logger.Error("missing fields in tier event", "topic", msg.Topic)
				return nil
			}
			return repo.UpsertMemberTier(ctx, payload.UserID, payload.Tier)
		})
		go tierConsumer.Run(ctx)
	}

	bookingHandler := handlers.NewBookingHandler(controller, repo, logger)

	mux := runtime.NewBaseMuxWithReady(
		runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
		runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(config.String("KAFKA_BROKERS", ""))},
	)
	mux.HandleFunc("/api/v1/bookings", bookingHandler.Bookings)
	mux.HandleFunc("/api/v1/bookings/preview", bookingHandler.Preview)
	mux.HandleFunc("/api/v1/bookings/cancel", bookingHandler.Cancel)

	var limiter httpx.Middleware
	if addr := config.String("REDIS_ADDR", ""); addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: addr})
		limiter = httpx.NewRedisRateLimiter(rdb,
			config.Int("RATE_LIMIT", 60),
			config.Duration("RATE_LIMIT_WINDOW", time.Minute),
			"booking",
		).Middleware(logger, true)
	} else {
		limiter = httpx.NewRateLimiter(
			config.Int("RATE_LIMIT", 60),
			config.Duration("RATE_LIMIT_WINDOW", time.Minute),
		).Middleware()
	}

	httpHandler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithCORS(httpx.CORSPolicy{
			AllowedOrigins: strings.Split(config.String("CORS_ALLOWED_ORIGINS", ""), ","),
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Content-Type", "Authorization", handlers.UserIDHeader, handlers.UserTierHeader},
			MaxAge:         10 * time.Minute,
		}),
		httpx.WithBodyLimit(1<<20),
		limiter,
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "booking")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")
}
