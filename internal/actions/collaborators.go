package actions

import "context"

// SearchFilters narrows a physician search. Zero values mean "no filter".
type SearchFilters struct {
	Specialty   string
	Language    string
	MaxPriceAED float64
	Date        string // ISO date; restrict to physicians with open slots that day
}

// PhysicianSummary is the directory's view of a physician.
type PhysicianSummary struct {
	ID              string
	Name            string
	Specialty       string
	ExperienceYears int
	PriceAED        float64
	Languages       []string
}

// TimeSlot is one free interval in a physician's schedule, both ends in
// 24-hour HH:MM form.
type TimeSlot struct {
	Start string
	End   string
}

// BookingRequest carries everything needed to create an appointment.
type BookingRequest struct {
	UserID      string
	PhysicianID string
	Date        string
	Start       string
}

// BookingConfirmation is returned when an appointment is created.
type BookingConfirmation struct {
	AppointmentID string
	PhysicianName string
	Date          string
	Start         string
	End           string
	PriceAED      float64
}

// Appointment is the executor's view of a stored appointment.
type Appointment struct {
	ID            string
	UserID        string
	PhysicianID   string
	PhysicianName string
	Date          string
	Start         string
	End           string
	Status        string // "confirmed", "cancelled", "completed"
	PaymentStatus string // "unpaid", "paid", "refunded"
	AmountAED     float64
}

// InsuranceStatus mirrors the verification collaborator's outcome.
type InsuranceStatus struct {
	Status     string // "active", "expired", "inactive", "not_found"
	Provider   string
	PlanName   string
	MemberID   string
	ExpiryDate string
	Reason     string
}

// PaymentHandle is the client-facing handle to a created payment intent.
type PaymentHandle struct {
	PaymentIntentID string
	ClientSecret    string
	AmountAED       float64
}

// PhysicianDirectory searches the physician catalog.
type PhysicianDirectory interface {
	FindPhysicians(ctx context.Context, filters SearchFilters) ([]PhysicianSummary, error)
}

// Schedule reads availability and commits bookings. CreateBooking must
// re-validate the slot at commit time and wrap ErrConflict when it was taken
// between confirmation and execution.
type Schedule interface {
	GetAvailability(ctx context.Context, physicianID, date string) ([]TimeSlot, error)
	CreateBooking(ctx context.Context, req BookingRequest) (*BookingConfirmation, error)
}

// Appointments reads and cancels existing appointments.
type Appointments interface {
	GetAppointment(ctx context.Context, appointmentID string) (*Appointment, error)
	CancelAppointment(ctx context.Context, appointmentID, userID string) error
}

// InsuranceVerifier forwards an Emirates ID to the external verification
// service. Caching on the patient profile is the collaborator's concern.
type InsuranceVerifier interface {
	Verify(ctx context.Context, userID, emiratesID string) (*InsuranceStatus, error)
}

// PaymentProvider creates payment intents with the payment processor.
type PaymentProvider interface {
	CreatePaymentIntent(ctx context.Context, appointmentID string, amountAED float64) (*PaymentHandle, error)
}
