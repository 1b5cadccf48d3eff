// Package source reads minimal unit projections from the relational system of
// record. It never writes.
package source

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/kailas-cloud/staysearch/internal/domain"
	"github.com/kailas-cloud/staysearch/internal/domain/unit"
)

// DBTX is the query surface shared by *pgxpool.Pool and pgxmock pools.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

// Reader implements the indexing source collaborator on PostgreSQL.
type Reader struct {
	pool DBTX
	now  func() time.Time
}

// NewReader creates a PostgreSQL-backed source reader.
func NewReader(pool DBTX) *Reader {
	return &Reader{pool: pool, now: time.Now}
}

// Ping checks database connectivity.
func (r *Reader) Ping(ctx context.Context) error {
	if err := r.pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping source: %w", err)
	}
	return nil
}

// Unit loads a unit with its property, amenities, dynamic fields, current and
// future pricing rules and property images. Availability is read separately.
// Soft-deleted rows are returned with their flags set so callers can decide.
func (r *Reader) Unit(ctx context.Context, unitID string) (*unit.Source, error) {
	query := `
		SELECT u.id, u.property_id, u.unit_type_id, p.property_type_id,
			u.is_active, u.deleted_at IS NOT NULL, p.is_approved, p.deleted_at IS NOT NULL,
			p.city, p.latitude, p.longitude,
			u.base_price, u.currency,
			u.max_occupants, u.allows_adults, u.allows_children, u.multi_day,
			p.average_rating, p.review_count
		FROM units u
		JOIN properties p ON p.id = u.property_id
		WHERE u.id = $1`

	var s unit.Source
	err := r.pool.QueryRow(ctx, query, unitID).Scan(
		&s.UnitID, &s.PropertyID, &s.UnitTypeID, &s.PropertyTypeID,
		&s.UnitActive, &s.UnitDeleted, &s.PropertyApproved, &s.PropertyDeleted,
		&s.City, &s.Latitude, &s.Longitude,
		&s.BasePrice, &s.Currency,
		&s.MaxOccupants, &s.AllowsAdults, &s.AllowsChildren, &s.MultiDay,
		&s.AverageRating, &s.ReviewCount,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get unit %s: %w", unitID, err)
	}

	if s.Amenities, err = r.amenities(ctx, unitID); err != nil {
		return nil, err
	}
	if s.Fields, err = r.fields(ctx, unitID); err != nil {
		return nil, err
	}
	if s.PriceRules, err = r.priceRules(ctx, unitID); err != nil {
		return nil, err
	}
	if s.Images, err = r.images(ctx, s.PropertyID); err != nil {
		return nil, err
	}
	return &s, nil
}

// UnitAvailability returns the booked and blocked periods overlapping [from, to).
func (r *Reader) UnitAvailability(ctx context.Context, unitID string, from, to time.Time) ([]unit.Period, error) {
	query := `
		SELECT start_date, end_date, status
		FROM unit_availability
		WHERE unit_id = $1 AND start_date < $3 AND end_date > $2
		ORDER BY updated_at ASC, start_date ASC`

	rows, err := r.pool.Query(ctx, query, unitID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list availability of unit %s: %w", unitID, err)
	}
	defer rows.Close()

	var periods []unit.Period
	for rows.Next() {
		var (
			p      unit.Period
			status string
		)
		if err := rows.Scan(&p.Start, &p.End, &status); err != nil {
			return nil, fmt.Errorf("scan availability row: %w", err)
		}
		p.Status = parseStatus(status)
		periods = append(periods, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate availability rows: %w", err)
	}
	return periods, nil
}

// UnitIDsByProperty lists every unit of a property, deleted ones included.
func (r *Reader) UnitIDsByProperty(ctx context.Context, propertyID string) ([]string, error) {
	query := `SELECT id FROM units WHERE property_id = $1 ORDER BY id`
	return r.ids(ctx, "list units of property "+propertyID, query, propertyID)
}

// EligibleUnitIDs pages eligible units in id order, starting after afterID.
func (r *Reader) EligibleUnitIDs(ctx context.Context, afterID string, limit int) ([]string, error) {
	query := `
		SELECT u.id
		FROM units u
		JOIN properties p ON p.id = u.property_id
		WHERE u.is_active AND u.deleted_at IS NULL
			AND p.is_approved AND p.deleted_at IS NULL
			AND u.id > $1
		ORDER BY u.id
		LIMIT $2`
	return r.ids(ctx, "list eligible units", query, afterID, limit)
}

func (r *Reader) amenities(ctx context.Context, unitID string) ([]string, error) {
	query := `SELECT amenity_id FROM unit_amenities WHERE unit_id = $1 ORDER BY amenity_id`
	return r.ids(ctx, "list amenities of unit "+unitID, query, unitID)
}

func (r *Reader) fields(ctx context.Context, unitID string) ([]unit.SourceField, error) {
	query := `
		SELECT f.name, f.kind, v.value
		FROM unit_field_values v
		JOIN unit_type_fields f ON f.id = v.field_id
		WHERE v.unit_id = $1 AND f.deleted_at IS NULL
		ORDER BY f.name`

	rows, err := r.pool.Query(ctx, query, unitID)
	if err != nil {
		return nil, fmt.Errorf("list fields of unit %s: %w", unitID, err)
	}
	defer rows.Close()

	var fields []unit.SourceField
	for rows.Next() {
		var (
			f    unit.SourceField
			kind string
		)
		if err := rows.Scan(&f.Name, &kind, &f.Raw); err != nil {
			return nil, fmt.Errorf("scan field row: %w", err)
		}
		f.Kind = unit.FieldKind(kind)
		fields = append(fields, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate field rows: %w", err)
	}
	return fields, nil
}

func (r *Reader) priceRules(ctx context.Context, unitID string) ([]unit.PriceRule, error) {
	query := `
		SELECT start_date, end_date, amount, tier
		FROM unit_pricing_rules
		WHERE unit_id = $1 AND end_date > $2
		ORDER BY start_date`

	rows, err := r.pool.Query(ctx, query, unitID, unit.Day(r.now()))
	if err != nil {
		return nil, fmt.Errorf("list pricing rules of unit %s: %w", unitID, err)
	}
	defer rows.Close()

	var rules []unit.PriceRule
	for rows.Next() {
		var pr unit.PriceRule
		if err := rows.Scan(&pr.Start, &pr.End, &pr.Amount, &pr.Tier); err != nil {
			return nil, fmt.Errorf("scan pricing rule row: %w", err)
		}
		rules = append(rules, pr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pricing rule rows: %w", err)
	}
	return rules, nil
}

func (r *Reader) images(ctx context.Context, propertyID string) ([]string, error) {
	query := `SELECT url FROM property_images WHERE property_id = $1 ORDER BY position, id`
	return r.ids(ctx, "list images of property "+propertyID, query, propertyID)
}

func (r *Reader) ids(ctx context.Context, op, query string, args ...any) ([]string, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: iterate: %w", op, err)
	}
	return out, nil
}

func parseStatus(s string) unit.Status {
	switch s {
	case "booked":
		return unit.StatusBooked
	case "blocked":
		return unit.StatusBlocked
	default:
		return unit.StatusAvailable
	}
}
