package actions

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amanahealth/clinic-concierge/internal/intent"
)

type stubDirectory struct {
	physicians []PhysicianSummary
	err        error
	filters    SearchFilters
}

func (s *stubDirectory) FindPhysicians(_ context.Context, filters SearchFilters) ([]PhysicianSummary, error) {
	s.filters = filters
	return s.physicians, s.err
}

type stubSchedule struct {
	slots        []TimeSlot
	availErr     error
	confirmation *BookingConfirmation
	bookErr      error
	bookCalls    int
	lastBooking  BookingRequest
}

func (s *stubSchedule) GetAvailability(_ context.Context, physicianID, date string) ([]TimeSlot, error) {
	return s.slots, s.availErr
}

func (s *stubSchedule) CreateBooking(_ context.Context, req BookingRequest) (*BookingConfirmation, error) {
	s.bookCalls++
	s.lastBooking = req
	return s.confirmation, s.bookErr
}

type stubAppointments struct {
	appointment *Appointment
	getErr      error
	cancelErr   error
	cancelled   []string
	cancelledBy string
}

func (s *stubAppointments) GetAppointment(_ context.Context, id string) (*Appointment, error) {
	return s.appointment, s.getErr
}

func (s *stubAppointments) CancelAppointment(_ context.Context, id, userID string) error {
	s.cancelled = append(s.cancelled, id)
	s.cancelledBy = userID
	return s.cancelErr
}

type stubInsurance struct {
	status *InsuranceStatus
	err    error
	lastID string
}

func (s *stubInsurance) Verify(_ context.Context, userID, emiratesID string) (*InsuranceStatus, error) {
	s.lastID = emiratesID
	return s.status, s.err
}

type stubPayments struct {
	handle *PaymentHandle
	err    error
}

func (s *stubPayments) CreatePaymentIntent(_ context.Context, appointmentID string, amountAED float64) (*PaymentHandle, error) {
	return s.handle, s.err
}

type executorFixture struct {
	directory    *stubDirectory
	schedule     *stubSchedule
	appointments *stubAppointments
	insurance    *stubInsurance
	payments     *stubPayments
	executor     *Executor
}

func newFixture() *executorFixture {
	f := &executorFixture{
		directory:    &stubDirectory{},
		schedule:     &stubSchedule{},
		appointments: &stubAppointments{},
		insurance:    &stubInsurance{},
		payments:     &stubPayments{},
	}
	f.executor = NewExecutor(f.directory, f.schedule, f.appointments, f.insurance, f.payments, nil)
	return f
}

func searchIntent(slots map[string]string) intent.Intent {
	return intent.Intent{Kind: intent.KindSearchPhysicians, Slots: slots, Confidence: 0.9}
}

func TestSearchPhysiciansRanking(t *testing.T) {
	f := newFixture()
	f.directory.physicians = []PhysicianSummary{
		{ID: "p1", Name: "Haddad", Specialty: "General Medicine", PriceAED: 100},
		{ID: "p2", Name: "Khan", Specialty: "Cardiology", PriceAED: 400},
		{ID: "p3", Name: "Mansour", Specialty: "Cardiology", PriceAED: 250},
	}

	result := f.executor.Execute(context.Background(), searchIntent(map[string]string{
		intent.SlotSpecialty: "cardiology",
	}))

	require.True(t, result.OK)
	require.Len(t, result.Physicians, 3)
	assert.Equal(t, "p3", result.Physicians[0].ID) // exact match, cheaper first
	assert.Equal(t, "p2", result.Physicians[1].ID)
	assert.Equal(t, "p1", result.Physicians[2].ID)
}

func TestSearchPhysiciansEmptyListIsSuccess(t *testing.T) {
	f := newFixture()

	result := f.executor.Execute(context.Background(), searchIntent(map[string]string{
		intent.SlotSpecialty: "neurology",
	}))

	require.True(t, result.OK)
	assert.Empty(t, result.Physicians)
	assert.Nil(t, result.Failure)
}

func TestSearchPhysiciansBoundedResults(t *testing.T) {
	f := newFixture()
	for i := 0; i < 9; i++ {
		f.directory.physicians = append(f.directory.physicians, PhysicianSummary{
			ID:        fmt.Sprintf("p%d", i),
			Specialty: "Dermatology",
			PriceAED:  float64(100 + i),
		})
	}

	result := f.executor.Execute(context.Background(), searchIntent(map[string]string{
		intent.SlotSpecialty: "dermatology",
		intent.SlotMaxPrice:  "300",
	}))

	require.True(t, result.OK)
	assert.Len(t, result.Physicians, 5)
	assert.Equal(t, 300.0, f.directory.filters.MaxPriceAED)
}

func TestCheckAvailabilityNotFound(t *testing.T) {
	f := newFixture()
	f.schedule.availErr = fmt.Errorf("clinicdata: physician missing: %w", ErrNotFound)

	result := f.executor.Execute(context.Background(), intent.Intent{
		Kind: intent.KindCheckAvailability,
		Slots: map[string]string{
			intent.SlotPhysicianID: "nope",
			intent.SlotDate:        "2025-03-11",
		},
	})

	require.NotNil(t, result.Failure)
	assert.Equal(t, FailureNotFound, result.Failure.Kind)
}

func TestBookAppointmentConflict(t *testing.T) {
	f := newFixture()
	f.schedule.bookErr = fmt.Errorf("clinicdata: slot taken: %w", ErrConflict)

	result := f.executor.Execute(context.Background(), intent.Intent{
		Kind: intent.KindBookAppointment,
		Slots: map[string]string{
			intent.SlotPhysicianID: "p1",
			intent.SlotDate:        "2025-03-11",
			intent.SlotStartTime:   "09:00",
			intent.SlotPhone:       "+971501234567",
		},
	})

	require.NotNil(t, result.Failure)
	assert.Equal(t, FailureConflict, result.Failure.Kind)
	assert.Equal(t, 1, f.schedule.bookCalls)
}

func TestBookAppointmentSuccess(t *testing.T) {
	f := newFixture()
	f.schedule.confirmation = &BookingConfirmation{
		AppointmentID: "appt-1",
		PhysicianName: "Mansour",
		Date:          "2025-03-11",
		Start:         "09:00",
		End:           "09:30",
		PriceAED:      250,
	}

	result := f.executor.Execute(context.Background(), intent.Intent{
		Kind: intent.KindBookAppointment,
		Slots: map[string]string{
			intent.SlotPhysicianID: "p1",
			intent.SlotDate:        "2025-03-11",
			intent.SlotStartTime:   "09:00",
			intent.SlotPhone:       "+971501234567",
		},
	})

	require.True(t, result.OK)
	assert.Equal(t, "appt-1", result.Booking.AppointmentID)
	assert.Equal(t, "+971501234567", f.schedule.lastBooking.UserID)
}

func TestBookAppointmentMissingSlot(t *testing.T) {
	f := newFixture()

	result := f.executor.Execute(context.Background(), intent.Intent{
		Kind:  intent.KindBookAppointment,
		Slots: map[string]string{intent.SlotPhysicianID: "p1"},
	})

	require.NotNil(t, result.Failure)
	assert.Equal(t, FailureValidation, result.Failure.Kind)
	assert.Zero(t, f.schedule.bookCalls)
}

func TestVerifyInsurance(t *testing.T) {
	f := newFixture()
	f.insurance.status = &InsuranceStatus{Status: "active", Provider: "Daman Health Insurance"}

	result := f.executor.Execute(context.Background(), intent.Intent{
		Kind:  intent.KindVerifyInsurance,
		Slots: map[string]string{intent.SlotEmiratesID: "784-1234-5678901-2"},
	})

	require.True(t, result.OK)
	assert.Equal(t, "active", result.Insurance.Status)
	assert.Equal(t, "784-1234-5678901-2", f.insurance.lastID)
}

func TestCreatePaymentRequiresUnpaidAppointment(t *testing.T) {
	f := newFixture()
	f.appointments.appointment = &Appointment{ID: "appt-1", PaymentStatus: "paid", AmountAED: 250}

	result := f.executor.Execute(context.Background(), intent.Intent{
		Kind:  intent.KindCreatePayment,
		Slots: map[string]string{intent.SlotAppointmentID: "appt-1"},
	})

	require.NotNil(t, result.Failure)
	assert.Equal(t, FailureValidation, result.Failure.Kind)
}

func TestCreatePaymentSuccess(t *testing.T) {
	f := newFixture()
	f.appointments.appointment = &Appointment{ID: "appt-1", PaymentStatus: "unpaid", AmountAED: 250}
	f.payments.handle = &PaymentHandle{PaymentIntentID: "pi_123", ClientSecret: "pi_123_secret", AmountAED: 250}

	result := f.executor.Execute(context.Background(), intent.Intent{
		Kind:  intent.KindCreatePayment,
		Slots: map[string]string{intent.SlotAppointmentID: "appt-1"},
	})

	require.True(t, result.OK)
	assert.Equal(t, "pi_123_secret", result.Payment.ClientSecret)
}

func TestCancelAppointment(t *testing.T) {
	f := newFixture()
	f.appointments.appointment = &Appointment{ID: "appt-1", Status: "confirmed"}

	result := f.executor.Execute(context.Background(), intent.Intent{
		Kind: intent.KindCancelAppointment,
		Slots: map[string]string{
			intent.SlotAppointmentID: "appt-1",
			intent.SlotPhone:         "+971501234567",
		},
	})

	require.True(t, result.OK)
	assert.Equal(t, []string{"appt-1"}, f.appointments.cancelled)
	assert.Equal(t, "+971501234567", f.appointments.cancelledBy)
}

func TestCancelAppointmentRequiresUser(t *testing.T) {
	f := newFixture()
	f.appointments.appointment = &Appointment{ID: "appt-1", Status: "confirmed"}

	result := f.executor.Execute(context.Background(), intent.Intent{
		Kind:  intent.KindCancelAppointment,
		Slots: map[string]string{intent.SlotAppointmentID: "appt-1"},
	})

	require.NotNil(t, result.Failure)
	assert.Equal(t, FailureValidation, result.Failure.Kind)
	assert.Equal(t, intent.SlotPhone, result.Failure.Entity)
	assert.Empty(t, f.appointments.cancelled)
}

func TestBookAppointmentRequiresUser(t *testing.T) {
	f := newFixture()

	result := f.executor.Execute(context.Background(), intent.Intent{
		Kind: intent.KindBookAppointment,
		Slots: map[string]string{
			intent.SlotPhysicianID: "p1",
			intent.SlotDate:        "2025-03-11",
			intent.SlotStartTime:   "09:00",
		},
	})

	require.NotNil(t, result.Failure)
	assert.Equal(t, FailureValidation, result.Failure.Kind)
	assert.Equal(t, intent.SlotPhone, result.Failure.Entity)
	assert.Zero(t, f.schedule.bookCalls)
}

func TestTransientErrorMapping(t *testing.T) {
	f := newFixture()
	f.insurance.err = context.DeadlineExceeded

	result := f.executor.Execute(context.Background(), intent.Intent{
		Kind:  intent.KindVerifyInsurance,
		Slots: map[string]string{intent.SlotEmiratesID: "784-1234-5678901-2"},
	})

	require.NotNil(t, result.Failure)
	assert.Equal(t, FailureTransient, result.Failure.Kind)
}

func TestUnknownIntentIsFatal(t *testing.T) {
	f := newFixture()

	result := f.executor.Execute(context.Background(), intent.Intent{Kind: intent.KindSmalltalk})

	require.NotNil(t, result.Failure)
	assert.Equal(t, FailureFatal, result.Failure.Kind)
}

func TestMapErrorUnrecognizedIsTransient(t *testing.T) {
	failure := mapError("thing", errors.New("weird collaborator error"))
	assert.Equal(t, FailureTransient, failure.Kind)
}
