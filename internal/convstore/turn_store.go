package convstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/amanahealth/clinic-concierge/internal/dialog"
	"github.com/amanahealth/clinic-concierge/internal/intent"
)

// TurnStore persists conversation turns to PostgreSQL. Rows are append-only;
// the serial sequence preserves per-user arrival order.
type TurnStore struct {
	db *sql.DB
}

// NewTurnStore creates a Postgres-backed turn store.
func NewTurnStore(db *sql.DB) *TurnStore {
	if db == nil {
		panic("convstore: db cannot be nil")
	}
	return &TurnStore{db: db}
}

// AppendTurn inserts one turn. The database assigns the sequence number.
func (s *TurnStore) AppendTurn(ctx context.Context, turn dialog.Turn) error {
	var intentJSON any
	if turn.Intent != nil {
		data, err := json.Marshal(turn.Intent)
		if err != nil {
			return fmt.Errorf("convstore: failed to marshal intent snapshot: %w", err)
		}
		intentJSON = data
	}
	if turn.Timestamp.IsZero() {
		turn.Timestamp = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO conversation_turns (user_id, direction, body, intent, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		turn.UserID, string(turn.Direction), turn.Text, intentJSON, turn.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("convstore: failed to append turn: %w", err)
	}
	return nil
}

// RecentTurns returns the user's most recent turns in chronological order:
// ascending timestamp, sequence as the tie-break. Ordering by timestamp first
// keeps backdated or imported rows in their stated place.
func (s *TurnStore) RecentTurns(ctx context.Context, userID string, limit int) ([]dialog.Turn, error) {
	if limit <= 0 {
		limit = 1
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, user_id, direction, body, intent, created_at
		FROM conversation_turns
		WHERE user_id = $1
		ORDER BY created_at DESC, seq DESC
		LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("convstore: failed to query turns: %w", err)
	}
	defer rows.Close()

	var turns []dialog.Turn
	for rows.Next() {
		var (
			turn       dialog.Turn
			direction  string
			intentData []byte
		)
		if err := rows.Scan(&turn.Seq, &turn.UserID, &direction, &turn.Text, &intentData, &turn.Timestamp); err != nil {
			return nil, fmt.Errorf("convstore: failed to scan turn: %w", err)
		}
		turn.Direction = dialog.Direction(direction)
		if len(intentData) > 0 {
			var snapshot intent.Intent
			if err := json.Unmarshal(intentData, &snapshot); err != nil {
				return nil, fmt.Errorf("convstore: failed to decode intent snapshot: %w", err)
			}
			turn.Intent = &snapshot
		}
		turns = append(turns, turn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("convstore: failed to iterate turns: %w", err)
	}

	// Rows come back newest-first; flip to chronological.
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns, nil
}
