package dialog

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/amanahealth/clinic-concierge/internal/reply"
	"github.com/amanahealth/clinic-concierge/pkg/logging"
)

const (
	defaultWorkerCount   = 2
	defaultWaitSeconds   = 2
	defaultBatchSize     = 5
	maxWaitSeconds       = 20
	maxReceiveBatchSize  = 10
	deleteTimeoutSeconds = 5
	sendTimeoutSeconds   = 10
)

// ReplySender delivers an outbound reply to a user over the messaging
// channel.
type ReplySender interface {
	SendText(ctx context.Context, userID, text string) error
}

type workerConfig struct {
	workers          int
	receiveWaitSecs  int
	receiveBatchSize int
}

// WorkerOption customizes worker behavior.
type WorkerOption func(*workerConfig)

// WithWorkerCount sets the number of concurrent consumer goroutines.
func WithWorkerCount(count int) WorkerOption {
	return func(cfg *workerConfig) {
		if count > 0 {
			cfg.workers = count
		}
	}
}

// WithReceiveWaitSeconds sets the SQS long-poll wait duration.
func WithReceiveWaitSeconds(seconds int) WorkerOption {
	return func(cfg *workerConfig) {
		if seconds < 0 {
			return
		}
		if seconds > maxWaitSeconds {
			seconds = maxWaitSeconds
		}
		cfg.receiveWaitSecs = seconds
	}
}

// WithReceiveBatchSize sets how many messages to fetch per poll.
func WithReceiveBatchSize(size int) WorkerOption {
	return func(cfg *workerConfig) {
		if size <= 0 {
			return
		}
		if size > maxReceiveBatchSize {
			size = maxReceiveBatchSize
		}
		cfg.receiveBatchSize = size
	}
}

// Worker consumes inbound message jobs from the queue, runs them through the
// manager, and sends the reply back over the channel.
type Worker struct {
	manager *Manager
	queue   queueClient
	sender  ReplySender
	logger  *logging.Logger

	cfg workerConfig
	wg  sync.WaitGroup
}

// NewWorker constructs a queue consumer around the provided manager.
func NewWorker(manager *Manager, queue queueClient, sender ReplySender, logger *logging.Logger, opts ...WorkerOption) *Worker {
	if manager == nil {
		panic("dialog: manager cannot be nil")
	}
	if queue == nil {
		panic("dialog: queue cannot be nil")
	}
	if sender == nil {
		panic("dialog: reply sender cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}

	cfg := workerConfig{
		workers:          defaultWorkerCount,
		receiveWaitSecs:  defaultWaitSeconds,
		receiveBatchSize: defaultBatchSize,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Worker{
		manager: manager,
		queue:   queue,
		sender:  sender,
		logger:  logger,
		cfg:     cfg,
	}
}

// Start launches worker goroutines until ctx is cancelled.
func (w *Worker) Start(ctx context.Context) {
	for i := 0; i < w.cfg.workers; i++ {
		w.wg.Add(1)
		go w.run(ctx, i+1)
	}
}

// Wait blocks until all worker goroutines exit.
func (w *Worker) Wait() {
	w.wg.Wait()
}

func (w *Worker) run(ctx context.Context, workerID int) {
	defer w.wg.Done()
	w.logger.Debug("dialog worker started", "worker_id", workerID)

	backoff := time.Second

	for {
		select {
		case <-ctx.Done():
			w.logger.Debug("dialog worker stopping", "worker_id", workerID)
			return
		default:
		}

		messages, err := w.queue.Receive(ctx, w.cfg.receiveBatchSize, w.cfg.receiveWaitSecs)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			w.logger.Error("failed to receive inbound jobs", "error", err, "worker_id", workerID)
			time.Sleep(backoff)
			if backoff < 5*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		for _, msg := range messages {
			w.handleMessage(ctx, msg)
		}
	}
}

func (w *Worker) handleMessage(ctx context.Context, msg queueMessage) {
	var payload queuePayload
	if err := json.Unmarshal([]byte(msg.Body), &payload); err != nil {
		w.logger.Error("failed to decode inbound job", "error", err, "msg_id", msg.ID)
		w.deleteMessage(context.Background(), msg.ReceiptHandle)
		return
	}

	if payload.Kind != jobTypeInbound {
		w.logger.Error("unknown job type", "kind", payload.Kind, "job_id", payload.ID)
		w.deleteMessage(context.Background(), msg.ReceiptHandle)
		return
	}

	out, err := w.manager.HandleInbound(ctx, payload.Inbound.UserID, payload.Inbound.Text)
	if err != nil {
		w.logger.Error("inbound message rejected", "error", err,
			"job_id", payload.ID, "user_id", payload.Inbound.UserID)
		// The manager only errors on malformed input, which delivery retries
		// cannot fix. Fall back to a generic apology so the user is never
		// left without an answer.
		out = reply.Compose(reply.Outcome{Kind: reply.TransientFailure})
	}

	w.sendReply(ctx, payload.Inbound.UserID, out)
	w.deleteMessage(context.Background(), msg.ReceiptHandle)
}

func (w *Worker) sendReply(ctx context.Context, userID, text string) {
	if text == "" {
		return
	}
	sendCtx, cancel := context.WithTimeout(ctx, sendTimeoutSeconds*time.Second)
	defer cancel()

	if err := w.sender.SendText(sendCtx, userID, text); err != nil {
		w.logger.Error("failed to send reply", "error", err, "user_id", userID)
	}
}

func (w *Worker) deleteMessage(ctx context.Context, receiptHandle string) {
	if receiptHandle == "" {
		return
	}

	deleteCtx, cancel := context.WithTimeout(ctx, deleteTimeoutSeconds*time.Second)
	defer cancel()

	if err := w.queue.Delete(deleteCtx, receiptHandle); err != nil {
		w.logger.Error("failed to delete inbound job", "error", err)
	}
}
