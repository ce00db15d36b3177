package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"github.com/amanahealth/clinic-concierge/cmd/mainconfig"
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
	logger.Info("starting dialog worker", "env", cfg.Env)

	if cfg.DatabaseURL == "" {
		logger.Error("DATABASE_URL is required")
		os.Exit(1)
	}
	if cfg.DialogQueueURL == "" {
		logger.Error("DIALOG_QUEUE_URL is required")
		os.Exit(1)
	}
	if cfg.WhatsAppAccessToken == "" || cfg.WhatsAppPhoneNumberID == "" {
		logger.Error("WHATSAPP_ACCESS_TOKEN and WHATSAPP_PHONE_NUMBER_ID are required")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sqlDB, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = sqlDB.Close() }()
	if err := sqlDB.PingContext(ctx); err != nil {
		logger.Error("database not reachable", "error", err)
		os.Exit(1)
	}

	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	store := bootstrap.BuildDialogStore(sqlDB, redisClient, cfg, logger)
	manager, err := bootstrap.BuildDialogManager(sqlDB, store, cfg, logger)
	if err != nil {
		logger.Error("failed to build dialog pipeline", "error", err)
		os.Exit(1)
	}

	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}
	queue := dialog.NewSQSQueue(sqs.NewFromConfig(awsCfg), cfg.DialogQueueURL)
	sender := whatsapp.NewClient(cfg.WhatsAppAccessToken, cfg.WhatsAppPhoneNumberID, logger)

	worker := dialog.NewWorker(manager, queue, sender, logger,
		dialog.WithWorkerCount(cfg.WorkerCount),
	)
	worker.Start(ctx)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down dialog worker...")
	cancel()

	doneCtx, doneCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer doneCancel()

	waitCh := make(chan struct{})
	go func() {
		worker.Wait()
		close(waitCh)
	}()

	select {
	case <-waitCh:
		logger.Info("dialog worker stopped")
	case <-doneCtx.Done():
		logger.Error("dialog worker shutdown timed out", "error", doneCtx.Err())
	}
}
