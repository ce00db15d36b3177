// Package convstore persists conversation state and turn history: dialog
// state lives in Redis with a TTL, turn history is append-only in PostgreSQL.
package convstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/amanahealth/clinic-concierge/internal/dialog"
)

const defaultStateTTL = 24 * time.Hour

// StateStore keeps per-user dialog state as JSON in Redis. Stale
// conversations simply expire back to a fresh idle state.
type StateStore struct {
	redis  *redis.Client
	ttl    time.Duration
	tracer trace.Tracer
}

// NewStateStore creates a Redis-backed state store.
func NewStateStore(client *redis.Client, ttl time.Duration) *StateStore {
	if client == nil {
		panic("convstore: redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = defaultStateTTL
	}
	return &StateStore{
		redis:  client,
		ttl:    ttl,
		tracer: otel.Tracer("concierge.internal.convstore"),
	}
}

// Load returns the user's dialog state, or a fresh idle state when none is
// stored.
func (s *StateStore) Load(ctx context.Context, userID string) (*dialog.State, error) {
	ctx, span := s.tracer.Start(ctx, "convstore.load_state")
	defer span.End()

	data, err := s.redis.Get(ctx, stateKey(userID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return dialog.NewState(userID), nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("convstore: failed to load state: %w", err)
	}

	var state dialog.State
	if err := json.Unmarshal(data, &state); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("convstore: failed to decode state: %w", err)
	}
	if !state.Phase.Valid() {
		// A corrupt or future-format record must not wedge the conversation.
		return dialog.NewState(userID), nil
	}
	return &state, nil
}

// Save persists the user's dialog state, refreshing the TTL.
func (s *StateStore) Save(ctx context.Context, userID string, state *dialog.State) error {
	ctx, span := s.tracer.Start(ctx, "convstore.save_state")
	defer span.End()

	data, err := json.Marshal(state)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("convstore: failed to marshal state: %w", err)
	}
	if err := s.redis.Set(ctx, stateKey(userID), data, s.ttl).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("convstore: failed to persist state: %w", err)
	}
	return nil
}

func stateKey(userID string) string {
	return fmt.Sprintf("dialog_state:%s", userID)
}
