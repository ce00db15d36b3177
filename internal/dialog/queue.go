package dialog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type queueClient interface {
	Send(ctx context.Context, body string) error
	Receive(ctx context.Context, maxMessages int, waitSeconds int) ([]queueMessage, error)
	Delete(ctx context.Context, receiptHandle string) error
}

type queueMessage struct {
	ID            string
	Body          string
	ReceiptHandle string
}

type jobType string

const jobTypeInbound jobType = "inbound_message"

// InboundMessage is one patient message as received from the messaging
// channel, queued for asynchronous handling.
type InboundMessage struct {
	UserID     string    `json:"user_id"`
	Text       string    `json:"text"`
	MessageID  string    `json:"message_id,omitempty"`
	ReceivedAt time.Time `json:"received_at"`
}

type queuePayload struct {
	ID      string         `json:"id"`
	Kind    jobType        `json:"kind"`
	Inbound InboundMessage `json:"inbound"`
}

func encodePayload(kind jobType, inbound InboundMessage) (queuePayload, string, error) {
	payload := queuePayload{
		ID:      uuid.NewString(),
		Kind:    kind,
		Inbound: inbound,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return queuePayload{}, "", fmt.Errorf("dialog: failed to encode payload: %w", err)
	}

	return payload, string(body), nil
}
