package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/amanahealth/clinic-concierge/cmd/mainconfig"
	"github.com/amanahealth/clinic-concierge/internal/api/router"
	"github.com/amanahealth/clinic-concierge/internal/app/bootstrap"
	appconfig "github.com/amanahealth/clinic-concierge/internal/config"
	"github.com/amanahealth/clinic-concierge/internal/dialog"
	"github.com/amanahealth/clinic-concierge/internal/whatsapp"
	"github.com/amanahealth/clinic-concierge/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting clinic-concierge API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var sqlDB *sql.DB
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to open database", "error", err)
			os.Exit(1)
		}
		defer func() { _ = db.Close() }()
		if err := db.PingContext(ctx); err != nil {
			logger.Error("database not reachable", "error", err)
			os.Exit(1)
		}
		sqlDB = db
	} else {
		logger.Warn("DATABASE_URL not set, conversation history will not persist")
	}

	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	store := bootstrap.BuildDialogStore(sqlDB, redisClient, cfg, logger)

	// The webhook only enqueues; replies are produced by the dialog worker.
	// With USE_MEMORY_QUEUE the worker runs in-process instead.
	var publisher *dialog.Publisher
	var worker *dialog.Worker
	if cfg.UseMemoryQueue {
		queue := dialog.NewMemoryQueue(64)
		publisher = dialog.NewPublisher(queue, logger)

		manager, err := bootstrap.BuildDialogManager(sqlDB, store, cfg, logger)
		if err != nil {
			logger.Error("failed to build dialog pipeline", "error", err)
			os.Exit(1)
		}
		if cfg.WhatsAppAccessToken == "" || cfg.WhatsAppPhoneNumberID == "" {
			logger.Error("WHATSAPP_ACCESS_TOKEN and WHATSAPP_PHONE_NUMBER_ID are required with USE_MEMORY_QUEUE")
			os.Exit(1)
		}
		sender := whatsapp.NewClient(cfg.WhatsAppAccessToken, cfg.WhatsAppPhoneNumberID, logger)
		worker = dialog.NewWorker(manager, queue, sender, logger,
			dialog.WithWorkerCount(cfg.WorkerCount),
		)
		worker.Start(ctx)
		logger.Info("in-process dialog worker started", "workers", cfg.WorkerCount)
	} else {
		if cfg.DialogQueueURL == "" {
			logger.Error("DIALOG_QUEUE_URL is required unless USE_MEMORY_QUEUE is set")
			os.Exit(1)
		}
		awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
		if err != nil {
			logger.Error("failed to load AWS config", "error", err)
			os.Exit(1)
		}
		queue := dialog.NewSQSQueue(sqs.NewFromConfig(awsCfg), cfg.DialogQueueURL)
		publisher = dialog.NewPublisher(queue, logger)
	}

	onMessage := func(msg whatsapp.ParsedInboundMessage) {
		enqCtx, enqCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer enqCancel()
		if err := publisher.EnqueueInbound(enqCtx, dialog.InboundMessage{
			UserID:    msg.From,
			Text:      msg.Text,
			MessageID: msg.MessageID,
		}); err != nil {
			logger.Error("failed to enqueue inbound message", "error", err, "user_id", msg.From)
		}
	}

	webhook := whatsapp.NewWebhookHandler(cfg.WhatsAppVerifyToken, cfg.WhatsAppAppSecret, onMessage, logger)
	dialogHandler := dialog.NewHandler(store, logger)

	r := router.New(&router.Config{
		Logger:         logger,
		Webhook:        webhook,
		DialogHandler:  dialogHandler,
		MetricsHandler: promhttp.Handler(),
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	if worker != nil {
		cancel()
		worker.Wait()
	}

	logger.Info("server stopped")
}
