package camp

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bloodnet/bloodnet/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) queryable {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const campCols = `id, organizer_id, name, city, address, latitude, longitude,
	starts_at, ends_at, status, created_at, updated_at`

func scanCamp(row pgx.Row) (*Camp, error) {
	var c Camp
	err := row.Scan(&c.ID, &c.OrganizerID, &c.Name, &c.City, &c.Address,
		&c.Latitude, &c.Longitude, &c.StartsAt, &c.EndsAt, &c.Status,
		&c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &c, err
}

func (r *repoPG) Create(ctx context.Context, c *Camp) error {
	c.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO donation_camp (id, organizer_id, name, city, address,
			latitude, longitude, starts_at, ends_at, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		c.ID, c.OrganizerID, c.Name, c.City, c.Address,
		c.Latitude, c.Longitude, c.StartsAt, c.EndsAt, c.Status)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Camp, error) {
	return scanCamp(r.conn(ctx).QueryRow(ctx, `SELECT `+campCols+` FROM donation_camp WHERE id = $1`, id))
}

func (r *repoPG) List(ctx context.Context, filter Filter, limit, offset int) ([]*Camp, int, error) {
	where := "WHERE 1=1"
	args := []interface{}{}
	n := 0
	add := func(cond string, val interface{}) {
		n++
		where += fmt.Sprintf(" AND %s = $%d", cond, n)
		args = append(args, val)
	}
	if filter.OrganizerID != uuid.Nil {
		add("organizer_id", filter.OrganizerID)
	}
	if filter.City != "" {
		n++
		where += fmt.Sprintf(" AND LOWER(city) = LOWER($%d)", n)
		args = append(args, filter.City)
	}
	if filter.Status != "" {
		add("status", filter.Status)
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM donation_camp `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT %s FROM donation_camp %s ORDER BY starts_at LIMIT $%d OFFSET $%d`,
		campCols, where, n+1, n+2)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Camp
	for rows.Next() {
		c, err := scanCamp(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, c)
	}
	return items, total, rows.Err()
}

func (r *repoPG) UpdateStatus(ctx context.Context, id uuid.UUID, expected, next Status) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE donation_camp SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2`,
		id, expected, next)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *repoPG) AddSlot(ctx context.Context, s *Slot) error {
	s.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO camp_slot (id, camp_id, starts_at, ends_at, capacity, booked)
		VALUES ($1,$2,$3,$4,$5,0)`,
		s.ID, s.CampID, s.StartsAt, s.EndsAt, s.Capacity)
	return err
}

func (r *repoPG) GetSlot(ctx context.Context, slotID uuid.UUID) (*Slot, error) {
	var s Slot
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT id, camp_id, starts_at, ends_at, capacity, booked
		FROM camp_slot WHERE id = $1`, slotID,
	).Scan(&s.ID, &s.CampID, &s.StartsAt, &s.EndsAt, &s.Capacity, &s.Booked)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrSlotNotFound
	}
	return &s, err
}

func (r *repoPG) ListSlots(ctx context.Context, campID uuid.UUID) ([]*Slot, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, camp_id, starts_at, ends_at, capacity, booked
		FROM camp_slot WHERE camp_id = $1 ORDER BY starts_at`, campID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Slot
	for rows.Next() {
		var s Slot
		if err := rows.Scan(&s.ID, &s.CampID, &s.StartsAt, &s.EndsAt, &s.Capacity, &s.Booked); err != nil {
			return nil, err
		}
		items = append(items, &s)
	}
	return items, rows.Err()
}

// Register increments booked under a capacity guard, then inserts the
// registration row. A unique index on (slot_id, donor_id) rejects double
// booking.
func (r *repoPG) Register(ctx context.Context, reg *Registration) error {
	reg.ID = uuid.New()
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE camp_slot SET booked = booked + 1
		WHERE id = $1 AND booked < capacity`, reg.SlotID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		if _, err := r.GetSlot(ctx, reg.SlotID); err != nil {
			return err
		}
		return ErrSlotFull
	}

	_, err = r.conn(ctx).Exec(ctx, `
		INSERT INTO camp_registration (id, slot_id, donor_id)
		VALUES ($1, $2, $3)`,
		reg.ID, reg.SlotID, reg.DonorID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			// Undo the seat we took before reporting the duplicate.
			_, _ = r.conn(ctx).Exec(ctx, `UPDATE camp_slot SET booked = booked - 1 WHERE id = $1`, reg.SlotID)
			return ErrAlreadyRegistered
		}
		return err
	}
	return nil
}

func (r *repoPG) ListRegistrations(ctx context.Context, slotID uuid.UUID) ([]*Registration, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, slot_id, donor_id, created_at
		FROM camp_registration WHERE slot_id = $1 ORDER BY created_at`, slotID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Registration
	for rows.Next() {
		var reg Registration
		if err := rows.Scan(&reg.ID, &reg.SlotID, &reg.DonorID, &reg.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, &reg)
	}
	return items, rows.Err()
}
