package convstore

import (
	"context"
	"sync"

	"github.com/amanahealth/clinic-concierge/internal/dialog"
)

// Store combines the Redis state store and the Postgres turn store into the
// single persistence surface the dialog manager consumes.
type Store struct {
	states *StateStore
	turns  *TurnStore
}

var _ dialog.Store = (*Store)(nil)

// New wires the combined store.
func New(states *StateStore, turns *TurnStore) *Store {
	if states == nil {
		panic("convstore: state store cannot be nil")
	}
	if turns == nil {
		panic("convstore: turn store cannot be nil")
	}
	return &Store{states: states, turns: turns}
}

func (s *Store) Load(ctx context.Context, userID string) (*dialog.State, error) {
	return s.states.Load(ctx, userID)
}

func (s *Store) Save(ctx context.Context, userID string, state *dialog.State) error {
	return s.states.Save(ctx, userID, state)
}

func (s *Store) AppendTurn(ctx context.Context, turn dialog.Turn) error {
	return s.turns.AppendTurn(ctx, turn)
}

func (s *Store) RecentTurns(ctx context.Context, userID string, limit int) ([]dialog.Turn, error) {
	return s.turns.RecentTurns(ctx, userID, limit)
}

// MemoryStore is an in-process dialog.Store for local development and tests
// where Redis and Postgres are not available. Not for production use: state
// is lost on restart and never expires.
type MemoryStore struct {
	mu      sync.Mutex
	states  map[string]*dialog.State
	turns   map[string][]dialog.Turn
	nextSeq int64
}

var _ dialog.Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		states: make(map[string]*dialog.State),
		turns:  make(map[string][]dialog.Turn),
	}
}

func (s *MemoryStore) Load(_ context.Context, userID string) (*dialog.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.states[userID]
	if !ok {
		return dialog.NewState(userID), nil
	}
	dup := *state
	dup.Pending = state.Pending.Clone()
	return &dup, nil
}

func (s *MemoryStore) Save(_ context.Context, userID string, state *dialog.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	dup := *state
	dup.Pending = state.Pending.Clone()
	s.states[userID] = &dup
	return nil
}

func (s *MemoryStore) AppendTurn(_ context.Context, turn dialog.Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSeq++
	turn.Seq = s.nextSeq
	s.turns[turn.UserID] = append(s.turns[turn.UserID], turn)
	return nil
}

func (s *MemoryStore) RecentTurns(_ context.Context, userID string, limit int) ([]dialog.Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	turns := s.turns[userID]
	if len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}
	return append([]dialog.Turn(nil), turns...), nil
}
