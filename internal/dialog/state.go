// Package dialog owns the per-user conversation state machine: it receives
// inbound turns, resolves them to intents, decides between clarification,
// confirmation, and execution, and persists the conversation history.
package dialog

import (
	"context"
	"time"

	"github.com/amanahealth/clinic-concierge/internal/intent"
)

// Phase is the current step of a user's dialog state machine.
type Phase string

const (
	PhaseIdle                 Phase = "idle"
	PhaseAwaitingSlot         Phase = "awaiting_slot"
	PhaseAwaitingConfirmation Phase = "awaiting_confirmation"
	PhaseExecuting            Phase = "executing"
)

// Valid reports whether the phase is one of the enumerated values.
func (p Phase) Valid() bool {
	switch p {
	case PhaseIdle, PhaseAwaitingSlot, PhaseAwaitingConfirmation, PhaseExecuting:
		return true
	default:
		return false
	}
}

// State is the per-user conversation state. There is at most one per user
// identifier; the manager mutates it only under the per-user lock.
type State struct {
	UserID    string         `json:"user_id"`
	Phase     Phase          `json:"phase"`
	Pending   *intent.Intent `json:"pending,omitempty"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// NewState returns a fresh idle state for a first-contact user.
func NewState(userID string) *State {
	return &State{
		UserID:    userID,
		Phase:     PhaseIdle,
		UpdatedAt: time.Now().UTC(),
	}
}

// reset returns the state to idle with no pending intent.
func (s *State) reset() {
	s.Phase = PhaseIdle
	s.Pending = nil
}

// Direction distinguishes patient messages from assistant replies.
type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
)

// Turn is one immutable message in a conversation's history. Ordering is by
// timestamp with the store-assigned sequence number breaking ties.
type Turn struct {
	UserID    string         `json:"user_id"`
	Direction Direction      `json:"direction"`
	Text      string         `json:"text"`
	Seq       int64          `json:"seq"`
	Timestamp time.Time      `json:"timestamp"`
	Intent    *intent.Intent `json:"intent,omitempty"`
}

// Store persists conversation state and turn history. Load returns a fresh
// idle state for unknown users rather than failing; AppendTurn is append-only
// and must preserve per-user arrival order.
type Store interface {
	Load(ctx context.Context, userID string) (*State, error)
	Save(ctx context.Context, userID string, state *State) error
	AppendTurn(ctx context.Context, turn Turn) error
	RecentTurns(ctx context.Context, userID string, limit int) ([]Turn, error)
}

// requiredSlots lists the slots each actionable intent needs before the
// executor may run.
var requiredSlots = map[intent.Kind][]string{
	intent.KindSearchPhysicians:  {intent.SlotSpecialty},
	intent.KindCheckAvailability: {intent.SlotPhysicianID, intent.SlotDate},
	intent.KindBookAppointment:   {intent.SlotPhysicianID, intent.SlotDate, intent.SlotStartTime},
	intent.KindVerifyInsurance:   {intent.SlotEmiratesID},
	intent.KindCreatePayment:     {intent.SlotAppointmentID},
	intent.KindCancelAppointment: {intent.SlotAppointmentID},
}

// missingSlot returns the first required slot the pending intent lacks.
func missingSlot(in *intent.Intent) (string, bool) {
	if in == nil {
		return "", false
	}
	for _, slot := range requiredSlots[in.Kind] {
		if in.Slot(slot) == "" {
			return slot, true
		}
	}
	return "", false
}
