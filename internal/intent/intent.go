// Package intent defines the structured intent model produced by the
// language-understanding boundary and the resolver that normalizes raw
// classifications into domain values.
package intent

// Kind enumerates the actions the assistant can be asked to perform.
type Kind string

const (
	KindSearchPhysicians  Kind = "search_physicians"
	KindCheckAvailability Kind = "check_availability"
	KindBookAppointment   Kind = "book_appointment"
	KindVerifyInsurance   Kind = "verify_insurance"
	KindCreatePayment     Kind = "create_payment"
	KindCancelAppointment Kind = "cancel_appointment"
	KindSmalltalk         Kind = "smalltalk"
	KindConfirm           Kind = "confirm"
	KindCancel            Kind = "cancel"
	KindUnknown           Kind = "unknown"
)

// Slot names shared between the resolver, the dialog manager, and the executor.
const (
	SlotSpecialty     = "specialty"
	SlotDate          = "date"
	SlotStartTime     = "start_time"
	SlotPhysicianID   = "physician_id"
	SlotEmiratesID    = "emirates_id"
	SlotAppointmentID = "appointment_id"
	SlotLanguage      = "language"
	SlotMaxPrice      = "max_price"
	SlotPhone         = "phone"
)

// ParseKind maps a raw classifier label to a Kind, defaulting to unknown.
func ParseKind(s string) Kind {
	switch Kind(s) {
	case KindSearchPhysicians, KindCheckAvailability, KindBookAppointment,
		KindVerifyInsurance, KindCreatePayment, KindCancelAppointment,
		KindSmalltalk, KindConfirm, KindCancel:
		return Kind(s)
	default:
		return KindUnknown
	}
}

// Actionable reports whether the kind maps to a backend action.
func (k Kind) Actionable() bool {
	switch k {
	case KindSearchPhysicians, KindCheckAvailability, KindBookAppointment,
		KindVerifyInsurance, KindCreatePayment, KindCancelAppointment:
		return true
	default:
		return false
	}
}

// Irreversible reports whether executing the kind has external side effects
// that require an explicit user confirmation first.
func (k Kind) Irreversible() bool {
	switch k {
	case KindBookAppointment, KindCreatePayment, KindCancelAppointment:
		return true
	default:
		return false
	}
}

// Intent is the structured output of resolution: a kind, the slot values
// extracted so far, and the classifier's confidence in the kind.
type Intent struct {
	Kind       Kind              `json:"kind"`
	Slots      map[string]string `json:"slots,omitempty"`
	Confidence float64           `json:"confidence"`
}

// Slot returns the named slot value, or "" when absent.
func (in *Intent) Slot(name string) string {
	if in == nil || in.Slots == nil {
		return ""
	}
	return in.Slots[name]
}

// SetSlot stores a slot value, allocating the map on first use.
func (in *Intent) SetSlot(name, value string) {
	if in.Slots == nil {
		in.Slots = make(map[string]string)
	}
	in.Slots[name] = value
}

// Clone returns a deep copy so callers can mutate pending intents safely.
func (in *Intent) Clone() *Intent {
	if in == nil {
		return nil
	}
	out := &Intent{Kind: in.Kind, Confidence: in.Confidence}
	if in.Slots != nil {
		out.Slots = make(map[string]string, len(in.Slots))
		for k, v := range in.Slots {
			out.Slots[k] = v
		}
	}
	return out
}

// MergeSlots copies slots from other into in; new values win on conflict.
func (in *Intent) MergeSlots(other *Intent) {
	if other == nil {
		return
	}
	for k, v := range other.Slots {
		in.SetSlot(k, v)
	}
}

// ContextTurn is a prior conversation turn passed to the classifier as context.
type ContextTurn struct {
	Role string // "user" or "assistant"
	Text string
}
