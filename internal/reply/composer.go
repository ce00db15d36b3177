// Package reply renders dialog outcomes into patient-facing WhatsApp text.
// Composition is a pure function over the outcome variant: no I/O, no state,
// and a non-empty reply for every variant so the patient always hears back.
package reply

import (
	"fmt"
	"strings"

	"github.com/amanahealth/clinic-concierge/internal/actions"
	"github.com/amanahealth/clinic-concierge/internal/intent"
)

// OutcomeKind tags the variant being rendered.
type OutcomeKind string

const (
	ClarificationNeeded OutcomeKind = "clarification"
	ConfirmationNeeded  OutcomeKind = "confirmation"
	ActionCompleted     OutcomeKind = "action"
	Aborted             OutcomeKind = "aborted"
	TransientFailure    OutcomeKind = "transient"
	Smalltalk           OutcomeKind = "smalltalk"
)

// Outcome is the tagged input to Compose.
type Outcome struct {
	Kind    OutcomeKind
	Slot    string           // for ClarificationNeeded
	Pending *intent.Intent   // for ClarificationNeeded / ConfirmationNeeded
	Result  *actions.Result  // for ActionCompleted
}

const (
	apologyReply = "I'm sorry, I'm having trouble reaching our systems right now. " +
		"Please send your message again in a moment."
	abortReply = "No problem, I've cancelled that request. Is there anything else I can help you with?"
	greeting   = "Hello! Welcome to our clinic assistant. I can help you find a physician, " +
		"check availability, book an appointment, verify your insurance, or take a payment. " +
		"How can I help you today?"
)

// Compose renders the outcome as message text. It never returns "".
func Compose(o Outcome) string {
	switch o.Kind {
	case ClarificationNeeded:
		return clarification(o.Pending, o.Slot)
	case ConfirmationNeeded:
		return confirmation(o.Pending)
	case ActionCompleted:
		if o.Result == nil {
			return apologyReply
		}
		return renderResult(*o.Result)
	case Aborted:
		return abortReply
	case TransientFailure:
		return apologyReply
	case Smalltalk:
		return greeting
	default:
		return greeting
	}
}

func clarification(pending *intent.Intent, slot string) string {
	switch slot {
	case intent.SlotSpecialty:
		return "What type of specialist would you like to see? For example cardiology, dermatology, or pediatrics."
	case intent.SlotDate:
		return "What date would you like? You can say a date like 2025-05-15, or simply \"tomorrow\"."
	case intent.SlotStartTime:
		return "What time would you prefer? For example 9am or 14:30."
	case intent.SlotPhysicianID:
		return "Which physician would you like? Reply with the doctor's number from the list, or ask me to search for one."
	case intent.SlotEmiratesID:
		return "To check your insurance coverage I'll need your Emirates ID. Please send it in the format 784-XXXX-XXXXXXX-X."
	case intent.SlotAppointmentID:
		return "Which appointment is this for? Please reply with the appointment reference I sent you when it was booked."
	}
	if pending != nil && pending.Kind != intent.KindUnknown {
		return fmt.Sprintf("I need a bit more information to %s. Could you tell me the %s?",
			describeKind(pending.Kind), strings.ReplaceAll(slot, "_", " "))
	}
	return "I'm not sure I understood that. I can help you find a physician, check availability, book an appointment, verify insurance, or take a payment."
}

func confirmation(pending *intent.Intent) string {
	if pending == nil {
		return "Shall I go ahead? Please reply yes or no."
	}
	switch pending.Kind {
	case intent.KindBookAppointment:
		return fmt.Sprintf("I'm ready to book your appointment on %s at %s. Shall I confirm it? Please reply yes or no.",
			pending.Slot(intent.SlotDate), pending.Slot(intent.SlotStartTime))
	case intent.KindCreatePayment:
		return "I'm ready to set up the payment for your appointment. Shall I proceed? Please reply yes or no."
	case intent.KindCancelAppointment:
		return fmt.Sprintf("Are you sure you want to cancel appointment %s? Please reply yes or no.",
			pending.Slot(intent.SlotAppointmentID))
	default:
		return fmt.Sprintf("Shall I go ahead and %s? Please reply yes or no.", describeKind(pending.Kind))
	}
}

func renderResult(res actions.Result) string {
	if res.Failure != nil {
		return renderFailure(res)
	}

	switch res.Intent {
	case intent.KindSearchPhysicians:
		return renderPhysicians(res.Physicians)
	case intent.KindCheckAvailability:
		return renderSlots(res.Slots)
	case intent.KindBookAppointment:
		return renderBooking(res.Booking)
	case intent.KindVerifyInsurance:
		return renderInsurance(res.Insurance)
	case intent.KindCreatePayment:
		return renderPayment(res.Payment)
	case intent.KindCancelAppointment:
		return renderCancellation(res.Cancelled)
	default:
		return "Done! Is there anything else I can help you with?"
	}
}

func renderFailure(res actions.Result) string {
	switch res.Failure.Kind {
	case actions.FailureNotFound:
		return fmt.Sprintf("I'm sorry, I couldn't find that %s. Could you double-check and try again?",
			strings.ReplaceAll(res.Failure.Entity, "_", " "))
	case actions.FailureConflict:
		return "I'm sorry, that time slot was just taken by another patient. Would you like to pick a different time? I can show you what's still available."
	case actions.FailureValidation:
		return clarification(nil, res.Failure.Entity)
	default:
		return apologyReply
	}
}

func renderPhysicians(physicians []actions.PhysicianSummary) string {
	if len(physicians) == 0 {
		return "I'm sorry, I couldn't find any physicians matching your criteria. Would you like to try another specialty?"
	}

	var b strings.Builder
	b.WriteString("Here are the physicians that match your criteria:\n\n")
	for i, p := range physicians {
		fmt.Fprintf(&b, "%d. Dr. %s - %s\n", i+1, p.Name, p.Specialty)
		if p.ExperienceYears > 0 {
			fmt.Fprintf(&b, "   Experience: %d years\n", p.ExperienceYears)
		}
		fmt.Fprintf(&b, "   Fee: %.0f AED\n", p.PriceAED)
	}
	b.WriteString("\nWould you like to check availability or book with one of them?")
	return b.String()
}

func renderSlots(slots []actions.TimeSlot) string {
	if len(slots) == 0 {
		return "I'm sorry, there are no free slots on that date. Would you like to try another date?"
	}

	var b strings.Builder
	b.WriteString("Here are the available times:\n\n")
	for _, s := range slots {
		fmt.Fprintf(&b, "%s - %s\n", s.Start, s.End)
	}
	b.WriteString("\nWould you like to book one of these? Just reply with the time you prefer.")
	return b.String()
}

func renderBooking(booking *actions.BookingConfirmation) string {
	if booking == nil {
		return "Your appointment is booked. You'll receive the details shortly."
	}
	return fmt.Sprintf("Your appointment with Dr. %s is confirmed for %s at %s. "+
		"The consultation fee is %.0f AED. Your appointment reference is %s. "+
		"Would you like to check your insurance coverage or pay now?",
		booking.PhysicianName, booking.Date, booking.Start, booking.PriceAED, booking.AppointmentID)
}

func renderInsurance(status *actions.InsuranceStatus) string {
	if status == nil {
		return apologyReply
	}
	switch status.Status {
	case "active":
		return fmt.Sprintf("Good news! Your insurance is active with %s.\nPlan: %s\nMember ID: %s\nExpiry date: %s\n\nWould you like to book an appointment now?",
			status.Provider, orNA(status.PlanName), orNA(status.MemberID), orNA(status.ExpiryDate))
	case "expired":
		return fmt.Sprintf("Your insurance with %s expired on %s. Please contact your insurance provider to renew your coverage. Would you like to book a self-pay appointment instead?",
			status.Provider, orNA(status.ExpiryDate))
	case "inactive":
		return fmt.Sprintf("Your insurance with %s is currently inactive (%s). Please contact your insurance provider to resolve this. Would you like to book a self-pay appointment instead?",
			status.Provider, orNA(status.Reason))
	case "not_found":
		return "I couldn't find any insurance records for the Emirates ID you provided. If you believe this is an error, please contact our clinic directly. Would you like to book a self-pay appointment?"
	default:
		return apologyReply
	}
}

func renderPayment(payment *actions.PaymentHandle) string {
	if payment == nil {
		return apologyReply
	}
	return fmt.Sprintf("I've set up your payment of %.0f AED. Your payment reference is %s. "+
		"You'll receive a secure payment link shortly to complete it.",
		payment.AmountAED, payment.PaymentIntentID)
}

func renderCancellation(appt *actions.Appointment) string {
	if appt == nil {
		return "Your appointment has been cancelled. Is there anything else I can help you with?"
	}
	return fmt.Sprintf("Your appointment with Dr. %s on %s at %s has been cancelled. "+
		"Would you like to book a new appointment instead?",
		appt.PhysicianName, appt.Date, appt.Start)
}

func describeKind(k intent.Kind) string {
	switch k {
	case intent.KindSearchPhysicians:
		return "search for a physician"
	case intent.KindCheckAvailability:
		return "check availability"
	case intent.KindBookAppointment:
		return "book your appointment"
	case intent.KindVerifyInsurance:
		return "verify your insurance"
	case intent.KindCreatePayment:
		return "set up your payment"
	case intent.KindCancelAppointment:
		return "cancel your appointment"
	default:
		return "help you"
	}
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}
