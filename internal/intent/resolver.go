package intent

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/amanahealth/clinic-concierge/pkg/logging"
)

// Classification is the raw output of the language-understanding collaborator.
type Classification struct {
	Intent     string         `json:"intent"`
	Confidence float64        `json:"confidence"`
	Entities   map[string]any `json:"entities"`
}

// Classifier is the language-understanding collaborator boundary.
type Classifier interface {
	Classify(ctx context.Context, text string, window []ContextTurn, pending *Intent) (Classification, error)
}

// Resolver turns raw text plus conversation context into a normalized Intent.
// It is pure request/response: no retries, no side effects beyond the remote
// classification call. Timeout and retry policy belong to the caller.
type Resolver struct {
	classifier Classifier
	logger     *logging.Logger
	now        func() time.Time
}

// NewResolver wraps the classifier collaborator.
func NewResolver(classifier Classifier, logger *logging.Logger) *Resolver {
	if classifier == nil {
		panic("intent: classifier cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Resolver{
		classifier: classifier,
		logger:     logger,
		now:        time.Now,
	}
}

// WithClock overrides the reference time used for relative dates (tests).
func (r *Resolver) WithClock(now func() time.Time) *Resolver {
	if now != nil {
		r.now = now
	}
	return r
}

// Resolve classifies text in the context of the recent history window and any
// pending intent, then normalizes extracted entities to domain values.
// Entities that fail normalization are dropped and treated as absent.
func (r *Resolver) Resolve(ctx context.Context, text string, window []ContextTurn, pending *Intent) (Intent, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Intent{Kind: KindUnknown}, fmt.Errorf("intent: empty message text")
	}

	if kind, ok := shortReplyKind(text); ok {
		return Intent{Kind: kind, Confidence: 0.95}, nil
	}

	raw, err := r.classifier.Classify(ctx, text, window, pending)
	if err != nil {
		return Intent{Kind: KindUnknown}, fmt.Errorf("intent: classification failed: %w", err)
	}

	resolved := Intent{
		Kind:       ParseKind(raw.Intent),
		Confidence: raw.Confidence,
	}

	now := r.now()
	for name, value := range raw.Entities {
		str := entityString(value)
		if str == "" {
			continue
		}
		normalized, ok := normalizeSlot(canonicalSlotName(name), str, now)
		if !ok {
			r.logger.Debug("dropping unnormalizable entity", "slot", name, "value", str)
			continue
		}
		resolved.SetSlot(canonicalSlotName(name), normalized)
	}

	// The classifier sometimes misses Emirates IDs typed as bare digit runs;
	// the pattern is unambiguous enough to extract directly.
	if resolved.Slot(SlotEmiratesID) == "" {
		if id, ok := ExtractEmiratesID(text); ok {
			resolved.SetSlot(SlotEmiratesID, id)
			if resolved.Kind == KindUnknown || resolved.Kind == KindSmalltalk {
				resolved.Kind = KindVerifyInsurance
				resolved.Confidence = 0.9
			}
		}
	}

	return resolved, nil
}

// shortReplyKind resolves bare confirmations and cancellations locally so a
// "yes" or "no" turn never needs a remote round trip.
func shortReplyKind(text string) (Kind, bool) {
	switch strings.ToLower(strings.Trim(text, " .!?")) {
	case "yes", "yeah", "yep", "confirm", "sure", "ok", "okay":
		return KindConfirm, true
	case "no", "nope", "cancel", "stop", "never mind", "nevermind":
		return KindCancel, true
	default:
		return KindUnknown, false
	}
}

// canonicalSlotName folds classifier aliases onto the slot vocabulary.
func canonicalSlotName(name string) string {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "time", "start_time", "appointment_time":
		return SlotStartTime
	case "date", "appointment_date", "day":
		return SlotDate
	case "doctor", "physician", "physician_id", "doctor_id":
		return SlotPhysicianID
	case "emirates_id", "eid", "id_number":
		return SlotEmiratesID
	case "speciality", "specialty":
		return SlotSpecialty
	case "phone", "phone_number":
		return SlotPhone
	case "price", "max_price", "budget":
		return SlotMaxPrice
	case "appointment", "appointment_id", "booking_id":
		return SlotAppointmentID
	default:
		return strings.ToLower(strings.TrimSpace(name))
	}
}

func entityString(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return fmt.Sprintf("%t", t)
	default:
		return ""
	}
}
