package clinicdata

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/amanahealth/clinic-concierge/internal/actions"
)

// ScheduleStore reads physician availability and commits bookings.
type ScheduleStore struct {
	db *sql.DB
}

var _ actions.Schedule = (*ScheduleStore)(nil)

// NewScheduleStore creates a Postgres-backed schedule.
func NewScheduleStore(db *sql.DB) *ScheduleStore {
	if db == nil {
		panic("clinicdata: db cannot be nil")
	}
	return &ScheduleStore{db: db}
}

// GetAvailability returns the physician's open slots on the given date.
func (s *ScheduleStore) GetAvailability(ctx context.Context, physicianID, date string) ([]actions.TimeSlot, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM physicians WHERE id = $1)`, physicianID,
	).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("clinicdata: failed to look up physician: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("clinicdata: physician %s: %w", physicianID, actions.ErrNotFound)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT to_char(start_time, 'HH24:MI'), to_char(end_time, 'HH24:MI')
		FROM schedule_slots
		WHERE physician_id = $1 AND slot_date = $2 AND appointment_id IS NULL
		ORDER BY start_time`,
		physicianID, date,
	)
	if err != nil {
		return nil, fmt.Errorf("clinicdata: failed to query availability: %w", err)
	}
	defer rows.Close()

	var slots []actions.TimeSlot
	for rows.Next() {
		var slot actions.TimeSlot
		if err := rows.Scan(&slot.Start, &slot.End); err != nil {
			return nil, fmt.Errorf("clinicdata: failed to scan slot: %w", err)
		}
		slots = append(slots, slot)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("clinicdata: failed to iterate slots: %w", err)
	}
	return slots, nil
}

// CreateBooking books the requested slot. The slot row is locked and
// re-checked inside the transaction, so a slot taken between the user's
// confirmation and this commit surfaces as ErrConflict rather than a double
// booking.
func (s *ScheduleStore) CreateBooking(ctx context.Context, req actions.BookingRequest) (*actions.BookingConfirmation, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("clinicdata: failed to begin booking transaction: %w", err)
	}
	defer tx.Rollback()

	var (
		slotID        string
		appointmentID sql.NullString
		endTime       string
	)
	err = tx.QueryRowContext(ctx, `
		SELECT id, appointment_id, to_char(end_time, 'HH24:MI')
		FROM schedule_slots
		WHERE physician_id = $1 AND slot_date = $2 AND to_char(start_time, 'HH24:MI') = $3
		FOR UPDATE`,
		req.PhysicianID, req.Date, req.Start,
	).Scan(&slotID, &appointmentID, &endTime)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("clinicdata: slot %s %s for physician %s: %w",
			req.Date, req.Start, req.PhysicianID, actions.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("clinicdata: failed to lock slot: %w", err)
	}
	if appointmentID.Valid {
		return nil, fmt.Errorf("clinicdata: slot %s %s already booked: %w",
			req.Date, req.Start, actions.ErrConflict)
	}

	var (
		physicianName string
		priceAED      float64
	)
	err = tx.QueryRowContext(ctx,
		`SELECT name, price_aed FROM physicians WHERE id = $1`, req.PhysicianID,
	).Scan(&physicianName, &priceAED)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("clinicdata: physician %s: %w", req.PhysicianID, actions.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("clinicdata: failed to load physician: %w", err)
	}

	newID := uuid.NewString()
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO appointments (id, user_id, physician_id, slot_date, start_time, end_time, status, payment_status, amount_aed)
		VALUES ($1, $2, $3, $4, $5, $6, 'confirmed', 'unpaid', $7)`,
		newID, req.UserID, req.PhysicianID, req.Date, req.Start, endTime, priceAED,
	); err != nil {
		return nil, fmt.Errorf("clinicdata: failed to insert appointment: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE schedule_slots SET appointment_id = $1 WHERE id = $2`, newID, slotID,
	); err != nil {
		return nil, fmt.Errorf("clinicdata: failed to claim slot: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("clinicdata: failed to commit booking: %w", err)
	}

	return &actions.BookingConfirmation{
		AppointmentID: newID,
		PhysicianName: physicianName,
		Date:          req.Date,
		Start:         req.Start,
		End:           endTime,
		PriceAED:      priceAED,
	}, nil
}
