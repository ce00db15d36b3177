package dialog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/amanahealth/clinic-concierge/pkg/logging"
)

// Publisher enqueues inbound patient messages for asynchronous handling.
// The webhook handler uses it so channel delivery retries never stack up
// behind slow intent resolution.
type Publisher struct {
	queue  queueClient
	logger *logging.Logger
}

// NewPublisher creates a queue-backed publisher.
func NewPublisher(queue queueClient, logger *logging.Logger) *Publisher {
	if queue == nil {
		panic("dialog: queue cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Publisher{
		queue:  queue,
		logger: logger,
	}
}

// EnqueueInbound publishes one inbound message job.
func (p *Publisher) EnqueueInbound(ctx context.Context, msg InboundMessage) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if strings.TrimSpace(msg.UserID) == "" {
		return fmt.Errorf("dialog: inbound message user id cannot be empty")
	}
	if strings.TrimSpace(msg.Text) == "" {
		return fmt.Errorf("dialog: inbound message text cannot be empty")
	}
	if msg.ReceivedAt.IsZero() {
		msg.ReceivedAt = time.Now().UTC()
	}

	payload, body, err := encodePayload(jobTypeInbound, msg)
	if err != nil {
		return err
	}

	if err := p.queue.Send(ctx, body); err != nil {
		return fmt.Errorf("dialog: failed to enqueue inbound message: %w", err)
	}

	p.logger.Debug("inbound message enqueued", "job_id", payload.ID, "user_id", msg.UserID)
	return nil
}
