package clinicdata

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/amanahealth/clinic-concierge/internal/actions"
)

// AppointmentStore reads and cancels appointments.
type AppointmentStore struct {
	db *sql.DB
}

var _ actions.Appointments = (*AppointmentStore)(nil)

// NewAppointmentStore creates a Postgres-backed appointment store.
func NewAppointmentStore(db *sql.DB) *AppointmentStore {
	if db == nil {
		panic("clinicdata: db cannot be nil")
	}
	return &AppointmentStore{db: db}
}

// GetAppointment loads one appointment with its physician's name.
func (s *AppointmentStore) GetAppointment(ctx context.Context, appointmentID string) (*actions.Appointment, error) {
	var appt actions.Appointment
	err := s.db.QueryRowContext(ctx, `
		SELECT a.id, a.user_id, a.physician_id, p.name,
		       to_char(a.slot_date, 'YYYY-MM-DD'),
		       to_char(a.start_time, 'HH24:MI'), to_char(a.end_time, 'HH24:MI'),
		       a.status, a.payment_status, a.amount_aed
		FROM appointments a
		JOIN physicians p ON p.id = a.physician_id
		WHERE a.id = $1`,
		appointmentID,
	).Scan(&appt.ID, &appt.UserID, &appt.PhysicianID, &appt.PhysicianName,
		&appt.Date, &appt.Start, &appt.End,
		&appt.Status, &appt.PaymentStatus, &appt.AmountAED)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("clinicdata: appointment %s: %w", appointmentID, actions.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("clinicdata: failed to load appointment: %w", err)
	}
	return &appt, nil
}

// CancelAppointment marks the user's appointment cancelled and frees its
// schedule slot. Cancelling an already-cancelled appointment is a conflict.
func (s *AppointmentStore) CancelAppointment(ctx context.Context, appointmentID, userID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("clinicdata: failed to begin cancel transaction: %w", err)
	}
	defer tx.Rollback()

	var status string
	err = tx.QueryRowContext(ctx,
		`SELECT status FROM appointments WHERE id = $1 AND user_id = $2 FOR UPDATE`,
		appointmentID, userID,
	).Scan(&status)
	if err == sql.ErrNoRows {
		return fmt.Errorf("clinicdata: appointment %s: %w", appointmentID, actions.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("clinicdata: failed to lock appointment: %w", err)
	}
	if status == "cancelled" {
		return fmt.Errorf("clinicdata: appointment %s already cancelled: %w", appointmentID, actions.ErrConflict)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE appointments SET status = 'cancelled' WHERE id = $1`, appointmentID,
	); err != nil {
		return fmt.Errorf("clinicdata: failed to cancel appointment: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE schedule_slots SET appointment_id = NULL WHERE appointment_id = $1`, appointmentID,
	); err != nil {
		return fmt.Errorf("clinicdata: failed to release slot: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("clinicdata: failed to commit cancellation: %w", err)
	}
	return nil
}
