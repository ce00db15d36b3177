package dialog

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/amanahealth/clinic-concierge/internal/actions"
	"github.com/amanahealth/clinic-concierge/internal/intent"
	"github.com/amanahealth/clinic-concierge/internal/observability/metrics"
	"github.com/amanahealth/clinic-concierge/internal/reply"
	"github.com/amanahealth/clinic-concierge/pkg/logging"
)

const (
	defaultConfidenceThreshold = 0.6
	defaultHistoryWindow       = 6
	defaultResolverTimeout     = 10 * time.Second
	defaultActionTimeout       = 15 * time.Second
)

// resolver turns one user message plus conversation context into an intent.
type resolver interface {
	Resolve(ctx context.Context, text string, window []intent.ContextTurn, pending *intent.Intent) (intent.Intent, error)
}

// executor runs the action for a fully-slotted intent.
type executor interface {
	Execute(ctx context.Context, in intent.Intent) actions.Result
}

type managerConfig struct {
	confidenceThreshold float64
	historyWindow       int
	resolverTimeout     time.Duration
	actionTimeout       time.Duration
	metrics             *metrics.DialogMetrics
	now                 func() time.Time
}

// ManagerOption customizes manager behavior.
type ManagerOption func(*managerConfig)

// WithConfidenceThreshold sets the minimum classifier confidence for acting
// on an intent (or switching topics) without asking for clarification.
func WithConfidenceThreshold(threshold float64) ManagerOption {
	return func(cfg *managerConfig) {
		if threshold > 0 && threshold <= 1 {
			cfg.confidenceThreshold = threshold
		}
	}
}

// WithHistoryWindow sets how many recent turns are passed to the resolver.
func WithHistoryWindow(turns int) ManagerOption {
	return func(cfg *managerConfig) {
		if turns > 0 {
			cfg.historyWindow = turns
		}
	}
}

// WithResolverTimeout bounds each intent-resolution call.
func WithResolverTimeout(d time.Duration) ManagerOption {
	return func(cfg *managerConfig) {
		if d > 0 {
			cfg.resolverTimeout = d
		}
	}
}

// WithActionTimeout bounds each action execution.
func WithActionTimeout(d time.Duration) ManagerOption {
	return func(cfg *managerConfig) {
		if d > 0 {
			cfg.actionTimeout = d
		}
	}
}

// WithManagerMetrics wires dialog pipeline metrics.
func WithManagerMetrics(m *metrics.DialogMetrics) ManagerOption {
	return func(cfg *managerConfig) {
		cfg.metrics = m
	}
}

// WithManagerClock overrides the time source for tests.
func WithManagerClock(now func() time.Time) ManagerOption {
	return func(cfg *managerConfig) {
		if now != nil {
			cfg.now = now
		}
	}
}

// Manager is the conversation state machine. HandleInbound is the single
// entry point; calls for the same user are serialized by a per-user lock so
// concurrent webhook deliveries cannot interleave state mutations.
type Manager struct {
	store    Store
	resolver resolver
	executor executor
	logger   *logging.Logger
	tracer   trace.Tracer
	cfg      managerConfig

	locks sync.Map // userID -> *sync.Mutex
}

// NewManager wires the dialog manager.
func NewManager(store Store, res resolver, exec executor, logger *logging.Logger, opts ...ManagerOption) *Manager {
	if store == nil {
		panic("dialog: store cannot be nil")
	}
	if res == nil {
		panic("dialog: resolver cannot be nil")
	}
	if exec == nil {
		panic("dialog: executor cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}

	cfg := managerConfig{
		confidenceThreshold: defaultConfidenceThreshold,
		historyWindow:       defaultHistoryWindow,
		resolverTimeout:     defaultResolverTimeout,
		actionTimeout:       defaultActionTimeout,
		now:                 time.Now,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Manager{
		store:    store,
		resolver: res,
		executor: exec,
		logger:   logger,
		tracer:   otel.Tracer("concierge.internal.dialog"),
		cfg:      cfg,
	}
}

func (m *Manager) lockFor(userID string) *sync.Mutex {
	mu, _ := m.locks.LoadOrStore(userID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// HandleInbound processes one patient message and returns the reply text.
// It always returns a non-empty reply on success; infrastructure trouble
// degrades to an apologetic reply rather than an error wherever the
// conversation can still make sense to the patient.
func (m *Manager) HandleInbound(ctx context.Context, userID, text string) (string, error) {
	userID = strings.TrimSpace(userID)
	text = strings.TrimSpace(text)
	if userID == "" {
		return "", errors.New("dialog: user id cannot be empty")
	}
	if text == "" {
		return "", errors.New("dialog: message text cannot be empty")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	ctx, span := m.tracer.Start(ctx, "dialog.HandleInbound",
		trace.WithAttributes(attribute.String("user.id", userID)))
	defer span.End()

	mu := m.lockFor(userID)
	mu.Lock()
	defer mu.Unlock()

	state, err := m.store.Load(ctx, userID)
	if err != nil {
		m.logger.Error("failed to load conversation state", "error", err, "user_id", userID)
		m.cfg.metrics.ObserveInbound("state_error")
		out := reply.Compose(reply.Outcome{Kind: reply.TransientFailure})
		m.appendTurn(ctx, Turn{UserID: userID, Direction: DirectionInbound, Text: text, Timestamp: m.cfg.now().UTC()})
		m.appendTurn(ctx, Turn{UserID: userID, Direction: DirectionOutbound, Text: out, Timestamp: m.cfg.now().UTC()})
		return out, nil
	}

	window, err := m.store.RecentTurns(ctx, userID, m.cfg.historyWindow)
	if err != nil {
		m.logger.Warn("failed to load turn history, resolving without context", "error", err, "user_id", userID)
		window = nil
	}

	rctx, cancel := context.WithTimeout(ctx, m.cfg.resolverTimeout)
	started := m.cfg.now()
	resolved, rerr := m.resolver.Resolve(rctx, text, contextWindow(window), state.Pending)
	cancel()

	inbound := Turn{UserID: userID, Direction: DirectionInbound, Text: text, Timestamp: m.cfg.now().UTC()}
	if rerr == nil {
		inbound.Intent = resolved.Clone()
		m.cfg.metrics.ObserveResolverLatency("ok", m.cfg.now().Sub(started).Seconds())
	} else {
		m.cfg.metrics.ObserveResolverLatency("error", m.cfg.now().Sub(started).Seconds())
	}
	m.appendTurn(ctx, inbound)

	var out string
	if rerr != nil {
		m.logger.Error("intent resolution failed", "error", rerr, "user_id", userID)
		m.cfg.metrics.ObserveInbound("resolver_error")
		// Phase and pending intent stay exactly as they were; the user can
		// repeat the message once the resolver recovers.
		out = reply.Compose(reply.Outcome{Kind: reply.TransientFailure})
	} else {
		m.cfg.metrics.ObserveIntent(string(resolved.Kind))
		out = m.advance(ctx, state, resolved)
		m.cfg.metrics.ObserveInbound("ok")
	}

	m.appendTurn(ctx, Turn{UserID: userID, Direction: DirectionOutbound, Text: out, Timestamp: m.cfg.now().UTC()})
	return out, nil
}

// advance applies one resolved intent to the state machine and returns the
// reply. It persists any state mutation before returning.
func (m *Manager) advance(ctx context.Context, state *State, resolved intent.Intent) string {
	switch {
	case resolved.Kind == intent.KindSmalltalk:
		// Greetings never disturb an in-flight request.
		if state.Phase == PhaseAwaitingConfirmation && state.Pending != nil {
			return reply.Compose(reply.Outcome{Kind: reply.ConfirmationNeeded, Pending: state.Pending})
		}
		return reply.Compose(reply.Outcome{Kind: reply.Smalltalk})

	case resolved.Kind == intent.KindCancel:
		if state.Pending == nil {
			return m.clarify(state)
		}
		state.reset()
		m.save(ctx, state)
		return reply.Compose(reply.Outcome{Kind: reply.Aborted})

	case resolved.Kind == intent.KindConfirm:
		if state.Phase == PhaseAwaitingConfirmation && state.Pending != nil {
			return m.execute(ctx, state)
		}
		// A stray "yes" with nothing awaiting confirmation is ambiguous.
		return m.clarify(state)

	case resolved.Kind == intent.KindUnknown || !resolved.Kind.Actionable():
		return m.clarify(state)

	case resolved.Confidence < m.cfg.confidenceThreshold:
		// Low confidence never replaces an in-flight request, and is not
		// enough to start a new one.
		return m.clarify(state)

	default:
		if state.Pending != nil && state.Pending.Kind == resolved.Kind {
			// Same topic: newly-mentioned slots win over older values.
			state.Pending.MergeSlots(&resolved)
		} else {
			// New topic above the threshold replaces the pending request.
			state.Pending = resolved.Clone()
		}
		return m.progress(ctx, state)
	}
}

// progress moves a pending intent to its next gate: ask for a missing slot,
// ask for confirmation of an irreversible action, or execute.
func (m *Manager) progress(ctx context.Context, state *State) string {
	if slot, ok := missingSlot(state.Pending); ok {
		state.Phase = PhaseAwaitingSlot
		m.save(ctx, state)
		return reply.Compose(reply.Outcome{Kind: reply.ClarificationNeeded, Slot: slot, Pending: state.Pending})
	}
	if state.Pending.Kind.Irreversible() {
		state.Phase = PhaseAwaitingConfirmation
		m.save(ctx, state)
		return reply.Compose(reply.Outcome{Kind: reply.ConfirmationNeeded, Pending: state.Pending})
	}
	return m.execute(ctx, state)
}

// clarify re-asks the question the conversation is waiting on, or asks a
// generic one when nothing is pending. It never mutates state.
func (m *Manager) clarify(state *State) string {
	if state.Pending != nil {
		if state.Phase == PhaseAwaitingConfirmation {
			return reply.Compose(reply.Outcome{Kind: reply.ConfirmationNeeded, Pending: state.Pending})
		}
		if slot, ok := missingSlot(state.Pending); ok {
			return reply.Compose(reply.Outcome{Kind: reply.ClarificationNeeded, Slot: slot, Pending: state.Pending})
		}
	}
	return reply.Compose(reply.Outcome{Kind: reply.ClarificationNeeded})
}

// execute runs the pending intent through the action executor and folds the
// result back into the state machine.
func (m *Manager) execute(ctx context.Context, state *State) string {
	pending := state.Pending
	prevPhase := state.Phase

	// Patients never type their own number; the conversation key is the only
	// trustworthy source of identity, so stamp it over whatever the
	// classifier produced before the action layer sees the intent.
	pending.SetSlot(intent.SlotPhone, state.UserID)

	state.Phase = PhaseExecuting
	m.save(ctx, state)

	actx, cancel := context.WithTimeout(ctx, m.cfg.actionTimeout)
	res := m.executor.Execute(actx, *pending)
	cancel()

	status := "success"
	if res.Failure != nil {
		status = string(res.Failure.Kind)
	}
	m.cfg.metrics.ObserveAction(string(pending.Kind), status)

	if res.Failure != nil {
		switch res.Failure.Kind {
		case actions.FailureTransient:
			// Leave the request intact so the user can simply try again.
			state.Phase = prevPhase
			m.save(ctx, state)
			return reply.Compose(reply.Outcome{Kind: reply.TransientFailure})

		case actions.FailureConflict:
			// The slot was taken between availability and commit. Drop the
			// contested time and re-prompt; the rest of the request stands.
			delete(pending.Slots, intent.SlotStartTime)
			state.Phase = PhaseAwaitingSlot
			m.save(ctx, state)
			return reply.Compose(reply.Outcome{Kind: reply.ActionCompleted, Result: &res, Pending: pending})

		case actions.FailureValidation:
			// A slot value the collaborator rejected: clear it and re-ask.
			if res.Failure.Entity != "" {
				delete(pending.Slots, res.Failure.Entity)
			}
			state.Phase = PhaseAwaitingSlot
			m.save(ctx, state)
			return reply.Compose(reply.Outcome{Kind: reply.ActionCompleted, Result: &res, Pending: pending})

		default:
			// Not found and fatal both end the request.
			state.reset()
			m.save(ctx, state)
			return reply.Compose(reply.Outcome{Kind: reply.ActionCompleted, Result: &res})
		}
	}

	state.reset()
	m.save(ctx, state)
	return reply.Compose(reply.Outcome{Kind: reply.ActionCompleted, Result: &res})
}

func (m *Manager) save(ctx context.Context, state *State) {
	state.UpdatedAt = m.cfg.now().UTC()
	if err := m.store.Save(ctx, state.UserID, state); err != nil {
		m.logger.Error("failed to save conversation state", "error", err, "user_id", state.UserID)
	}
}

func (m *Manager) appendTurn(ctx context.Context, turn Turn) {
	if err := m.store.AppendTurn(ctx, turn); err != nil {
		m.logger.Error("failed to append conversation turn", "error", err,
			"user_id", turn.UserID, "direction", turn.Direction)
	}
}

func contextWindow(turns []Turn) []intent.ContextTurn {
	if len(turns) == 0 {
		return nil
	}
	window := make([]intent.ContextTurn, 0, len(turns))
	for _, t := range turns {
		role := "user"
		if t.Direction == DirectionOutbound {
			role = "assistant"
		}
		window = append(window, intent.ContextTurn{Role: role, Text: t.Text})
	}
	return window
}
