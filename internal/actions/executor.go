// Package actions maps resolved intents onto domain collaborators and folds
// their errors into a fixed failure taxonomy.
package actions

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/amanahealth/clinic-concierge/internal/intent"
	"github.com/amanahealth/clinic-concierge/pkg/logging"
)

const maxSearchResults = 5

// Result is the structured outcome of executing one intent.
type Result struct {
	Intent  intent.Kind
	OK      bool
	Failure *Failure

	Physicians []PhysicianSummary
	Slots      []TimeSlot
	Booking    *BookingConfirmation
	Insurance  *InsuranceStatus
	Payment    *PaymentHandle
	Cancelled  *Appointment
}

func failed(kind intent.Kind, f *Failure) Result {
	return Result{Intent: kind, Failure: f}
}

// Executor orchestrates domain collaborators, one case per intent kind.
// It has no state of its own; idempotence of booking relies on the schedule
// collaborator re-validating the slot at commit time.
type Executor struct {
	directory    PhysicianDirectory
	schedule     Schedule
	appointments Appointments
	insurance    InsuranceVerifier
	payments     PaymentProvider
	logger       *logging.Logger
	tracer       trace.Tracer
}

// NewExecutor wires the domain collaborators.
func NewExecutor(directory PhysicianDirectory, schedule Schedule, appointments Appointments, insurance InsuranceVerifier, payments PaymentProvider, logger *logging.Logger) *Executor {
	if logger == nil {
		logger = logging.Default()
	}
	return &Executor{
		directory:    directory,
		schedule:     schedule,
		appointments: appointments,
		insurance:    insurance,
		payments:     payments,
		logger:       logger,
		tracer:       otel.Tracer("concierge.internal.actions"),
	}
}

// Execute runs the action for the given intent. Expected domain conditions
// (not found, conflict) come back as typed failures inside the Result, never
// as panics or opaque errors.
func (e *Executor) Execute(ctx context.Context, in intent.Intent) Result {
	ctx, span := e.tracer.Start(ctx, "actions.execute")
	defer span.End()
	span.SetAttributes(attribute.String("concierge.intent", string(in.Kind)))

	var result Result
	switch in.Kind {
	case intent.KindSearchPhysicians:
		result = e.searchPhysicians(ctx, in)
	case intent.KindCheckAvailability:
		result = e.checkAvailability(ctx, in)
	case intent.KindBookAppointment:
		result = e.bookAppointment(ctx, in)
	case intent.KindVerifyInsurance:
		result = e.verifyInsurance(ctx, in)
	case intent.KindCreatePayment:
		result = e.createPayment(ctx, in)
	case intent.KindCancelAppointment:
		result = e.cancelAppointment(ctx, in)
	default:
		result = failed(in.Kind, &Failure{
			Kind: FailureFatal,
			Err:  fmt.Errorf("actions: intent %q is not executable", in.Kind),
		})
	}

	if result.Failure != nil {
		span.SetAttributes(attribute.String("concierge.failure", string(result.Failure.Kind)))
		e.logger.Warn("action failed",
			"intent", in.Kind,
			"failure", result.Failure.Kind,
			"entity", result.Failure.Entity,
		)
	}
	return result
}

func (e *Executor) searchPhysicians(ctx context.Context, in intent.Intent) Result {
	filters := SearchFilters{
		Specialty: in.Slot(intent.SlotSpecialty),
		Language:  in.Slot(intent.SlotLanguage),
		Date:      in.Slot(intent.SlotDate),
	}
	if filters.Specialty == "" {
		return failed(in.Kind, validationFailure(intent.SlotSpecialty))
	}
	if raw := in.Slot(intent.SlotMaxPrice); raw != "" {
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			filters.MaxPriceAED = v
		}
	}

	physicians, err := e.directory.FindPhysicians(ctx, filters)
	if err != nil {
		return failed(in.Kind, mapError("physicians", err))
	}

	rankPhysicians(physicians, filters.Specialty)
	if len(physicians) > maxSearchResults {
		physicians = physicians[:maxSearchResults]
	}

	// An empty list is a successful search, not an error.
	return Result{Intent: in.Kind, OK: true, Physicians: physicians}
}

func (e *Executor) checkAvailability(ctx context.Context, in intent.Intent) Result {
	physicianID := in.Slot(intent.SlotPhysicianID)
	date := in.Slot(intent.SlotDate)
	if physicianID == "" {
		return failed(in.Kind, validationFailure(intent.SlotPhysicianID))
	}
	if date == "" {
		return failed(in.Kind, validationFailure(intent.SlotDate))
	}

	slots, err := e.schedule.GetAvailability(ctx, physicianID, date)
	if err != nil {
		return failed(in.Kind, mapError("physician", err))
	}
	return Result{Intent: in.Kind, OK: true, Slots: slots}
}

func (e *Executor) bookAppointment(ctx context.Context, in intent.Intent) Result {
	req := BookingRequest{
		UserID:      in.Slot(intent.SlotPhone),
		PhysicianID: in.Slot(intent.SlotPhysicianID),
		Date:        in.Slot(intent.SlotDate),
		Start:       in.Slot(intent.SlotStartTime),
	}
	for slot, value := range map[string]string{
		intent.SlotPhone:       req.UserID,
		intent.SlotPhysicianID: req.PhysicianID,
		intent.SlotDate:        req.Date,
		intent.SlotStartTime:   req.Start,
	} {
		if value == "" {
			return failed(in.Kind, validationFailure(slot))
		}
	}

	// CreateBooking re-checks the slot under the same transaction that books
	// it, closing the race between confirmation and execution.
	confirmation, err := e.schedule.CreateBooking(ctx, req)
	if err != nil {
		return failed(in.Kind, mapError("slot", err))
	}
	return Result{Intent: in.Kind, OK: true, Booking: confirmation}
}

func (e *Executor) verifyInsurance(ctx context.Context, in intent.Intent) Result {
	emiratesID := in.Slot(intent.SlotEmiratesID)
	if emiratesID == "" {
		return failed(in.Kind, validationFailure(intent.SlotEmiratesID))
	}

	status, err := e.insurance.Verify(ctx, in.Slot(intent.SlotPhone), emiratesID)
	if err != nil {
		return failed(in.Kind, mapError("insurance", err))
	}
	return Result{Intent: in.Kind, OK: true, Insurance: status}
}

func (e *Executor) createPayment(ctx context.Context, in intent.Intent) Result {
	appointmentID := in.Slot(intent.SlotAppointmentID)
	if appointmentID == "" {
		return failed(in.Kind, validationFailure(intent.SlotAppointmentID))
	}

	appt, err := e.appointments.GetAppointment(ctx, appointmentID)
	if err != nil {
		return failed(in.Kind, mapError("appointment", err))
	}
	if !strings.EqualFold(appt.PaymentStatus, "unpaid") {
		return failed(in.Kind, &Failure{
			Kind:   FailureValidation,
			Entity: "appointment",
			Err:    fmt.Errorf("actions: appointment %s is already %s", appointmentID, appt.PaymentStatus),
		})
	}

	handle, err := e.payments.CreatePaymentIntent(ctx, appointmentID, appt.AmountAED)
	if err != nil {
		return failed(in.Kind, mapError("payment", err))
	}
	return Result{Intent: in.Kind, OK: true, Payment: handle}
}

func (e *Executor) cancelAppointment(ctx context.Context, in intent.Intent) Result {
	appointmentID := in.Slot(intent.SlotAppointmentID)
	if appointmentID == "" {
		return failed(in.Kind, validationFailure(intent.SlotAppointmentID))
	}
	// Cancellation is scoped to the requesting patient; without their id the
	// ownership check in the store would match nothing it should.
	userID := in.Slot(intent.SlotPhone)
	if userID == "" {
		return failed(in.Kind, validationFailure(intent.SlotPhone))
	}

	appt, err := e.appointments.GetAppointment(ctx, appointmentID)
	if err != nil {
		return failed(in.Kind, mapError("appointment", err))
	}
	if err := e.appointments.CancelAppointment(ctx, appointmentID, userID); err != nil {
		return failed(in.Kind, mapError("appointment", err))
	}
	return Result{Intent: in.Kind, OK: true, Cancelled: appt}
}

// rankPhysicians orders exact specialty matches first, then ascending price.
func rankPhysicians(physicians []PhysicianSummary, specialty string) {
	specialty = strings.ToLower(strings.TrimSpace(specialty))
	sort.SliceStable(physicians, func(i, j int) bool {
		iExact := strings.ToLower(physicians[i].Specialty) == specialty
		jExact := strings.ToLower(physicians[j].Specialty) == specialty
		if iExact != jExact {
			return iExact
		}
		return physicians[i].PriceAED < physicians[j].PriceAED
	})
}
