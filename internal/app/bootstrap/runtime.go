// Package bootstrap wires shared dependencies so the API server and the
// dialog worker build the same stack from the same configuration.
package bootstrap

import (
	"context"
	"crypto/tls"
	"database/sql"
	"errors"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/sashabaranov/go-openai"

	"github.com/amanahealth/clinic-concierge/internal/actions"
	"github.com/amanahealth/clinic-concierge/internal/clinicdata"
	appconfig "github.com/amanahealth/clinic-concierge/internal/config"
	"github.com/amanahealth/clinic-concierge/internal/convstore"
	"github.com/amanahealth/clinic-concierge/internal/dialog"
	"github.com/amanahealth/clinic-concierge/internal/insurance"
	"github.com/amanahealth/clinic-concierge/internal/intent"
	"github.com/amanahealth/clinic-concierge/internal/observability/metrics"
	"github.com/amanahealth/clinic-concierge/internal/payments"
	"github.com/amanahealth/clinic-concierge/pkg/logging"
)

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(redisOptions)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available", "error", err)
		return nil
	}
	return client
}

// BuildDialogStore wires conversation persistence. With both Redis and
// Postgres available it returns the durable store; otherwise it falls back
// to the in-memory store, which is fine for local development but loses
// everything on restart.
func BuildDialogStore(sqlDB *sql.DB, redisClient *redis.Client, cfg *appconfig.Config, logger *logging.Logger) dialog.Store {
	if logger == nil {
		logger = logging.Default()
	}
	if sqlDB != nil && redisClient != nil {
		return convstore.New(
			convstore.NewStateStore(redisClient, cfg.StateTTL),
			convstore.NewTurnStore(sqlDB),
		)
	}
	logger.Warn("durable conversation store unavailable, using in-memory store",
		"have_postgres", sqlDB != nil,
		"have_redis", redisClient != nil,
	)
	return convstore.NewMemoryStore()
}

// BuildDialogManager assembles the full inbound pipeline: intent resolution,
// action execution against clinic data and partner APIs, and the dialog state
// machine on top of the given store. Missing settings come back as errors so
// the binaries can refuse to start instead of panicking mid-wire.
func BuildDialogManager(sqlDB *sql.DB, store dialog.Store, cfg *appconfig.Config, logger *logging.Logger) (*dialog.Manager, error) {
	if logger == nil {
		logger = logging.Default()
	}
	if sqlDB == nil {
		return nil, errors.New("bootstrap: DATABASE_URL is required for the dialog pipeline")
	}
	if strings.TrimSpace(cfg.OpenAIAPIKey) == "" {
		return nil, errors.New("bootstrap: OPENAI_API_KEY is required for the dialog pipeline")
	}
	if strings.TrimSpace(cfg.InsuranceBaseURL) == "" {
		return nil, errors.New("bootstrap: INSURANCE_BASE_URL is required for the dialog pipeline")
	}
	if strings.TrimSpace(cfg.StripeSecretKey) == "" {
		return nil, errors.New("bootstrap: STRIPE_SECRET_KEY is required for the dialog pipeline")
	}

	classifier := intent.NewOpenAIClassifier(
		openai.NewClient(cfg.OpenAIAPIKey),
		cfg.OpenAIModel,
		logger,
	)
	resolver := intent.NewResolver(classifier, logger)

	executor := actions.NewExecutor(
		clinicdata.NewDirectory(sqlDB),
		clinicdata.NewScheduleStore(sqlDB),
		clinicdata.NewAppointmentStore(sqlDB),
		insurance.NewClient(cfg.InsuranceBaseURL, cfg.InsuranceAPIKey, logger),
		payments.NewStripeService(cfg.StripeSecretKey, logger),
		logger,
	)

	return dialog.NewManager(store, resolver, executor, logger,
		dialog.WithConfidenceThreshold(cfg.IntentConfidenceThreshold),
		dialog.WithHistoryWindow(cfg.HistoryWindow),
		dialog.WithResolverTimeout(cfg.ResolverTimeout),
		dialog.WithActionTimeout(cfg.ActionTimeout),
		dialog.WithManagerMetrics(metrics.NewDialogMetrics(nil)),
	), nil
}
