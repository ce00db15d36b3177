// Package clinicdata is the PostgreSQL persistence layer for the clinic's
// operational data: the physician catalog, schedule slots, and appointments.
package clinicdata

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/amanahealth/clinic-concierge/internal/actions"
)

// Directory searches the physician catalog.
type Directory struct {
	db *sql.DB
}

var _ actions.PhysicianDirectory = (*Directory)(nil)

// NewDirectory creates a Postgres-backed physician directory.
func NewDirectory(db *sql.DB) *Directory {
	if db == nil {
		panic("clinicdata: db cannot be nil")
	}
	return &Directory{db: db}
}

// FindPhysicians returns physicians matching the filters. Zero-value filters
// are ignored.
func (d *Directory) FindPhysicians(ctx context.Context, filters actions.SearchFilters) ([]actions.PhysicianSummary, error) {
	var (
		conds []string
		args  []any
	)

	add := func(cond string, value any) {
		args = append(args, value)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if filters.Specialty != "" {
		add("specialty ILIKE $%d", "%"+filters.Specialty+"%")
	}
	if filters.Language != "" {
		add("$%d = ANY(languages)", filters.Language)
	}
	if filters.MaxPriceAED > 0 {
		add("price_aed <= $%d", filters.MaxPriceAED)
	}
	if filters.Date != "" {
		add(`EXISTS (
			SELECT 1 FROM schedule_slots ss
			WHERE ss.physician_id = physicians.id
			  AND ss.slot_date = $%d
			  AND ss.appointment_id IS NULL
		)`, filters.Date)
	}

	query := `
		SELECT id, name, specialty, experience_years, price_aed, languages
		FROM physicians`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY name"

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("clinicdata: failed to query physicians: %w", err)
	}
	defer rows.Close()

	var physicians []actions.PhysicianSummary
	for rows.Next() {
		var (
			p         actions.PhysicianSummary
			languages pq.StringArray
		)
		if err := rows.Scan(&p.ID, &p.Name, &p.Specialty, &p.ExperienceYears, &p.PriceAED, &languages); err != nil {
			return nil, fmt.Errorf("clinicdata: failed to scan physician: %w", err)
		}
		p.Languages = []string(languages)
		physicians = append(physicians, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("clinicdata: failed to iterate physicians: %w", err)
	}
	return physicians, nil
}
