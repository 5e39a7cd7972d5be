package donor

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bloodnet/bloodnet/internal/platform/db"
	"github.com/bloodnet/bloodnet/pkg/blood"
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

const donorCols = `id, name, email, phone, blood_group, city, latitude, longitude,
	available, last_donation_at, created_at, updated_at`

func scanDonor(row pgx.Row) (*Donor, error) {
	var d Donor
	err := row.Scan(&d.ID, &d.Name, &d.Email, &d.Phone, &d.BloodGroup, &d.City,
		&d.Latitude, &d.Longitude, &d.Available, &d.LastDonationAt,
		&d.CreatedAt, &d.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &d, err
}

func (r *repoPG) Create(ctx context.Context, d *Donor) error {
	d.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO donor (id, name, email, phone, blood_group, city,
			latitude, longitude, available, last_donation_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		d.ID, d.Name, d.Email, d.Phone, d.BloodGroup, d.City,
		d.Latitude, d.Longitude, d.Available, d.LastDonationAt)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Donor, error) {
	return scanDonor(r.conn(ctx).QueryRow(ctx, `SELECT `+donorCols+` FROM donor WHERE id = $1`, id))
}

func (r *repoPG) Update(ctx context.Context, d *Donor) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE donor SET name=$2, email=$3, phone=$4, city=$5, latitude=$6,
			longitude=$7, available=$8, last_donation_at=$9, updated_at=NOW()
		WHERE id = $1`,
		d.ID, d.Name, d.Email, d.Phone, d.City, d.Latitude,
		d.Longitude, d.Available, d.LastDonationAt)
	return err
}

func (r *repoPG) List(ctx context.Context, filter Filter, limit, offset int) ([]*Donor, int, error) {
	where := "WHERE 1=1"
	args := []interface{}{}
	n := 0
	if filter.BloodGroup != "" {
		n++
		where += fmt.Sprintf(" AND blood_group = $%d", n)
		args = append(args, filter.BloodGroup)
	}
	if filter.City != "" {
		n++
		where += fmt.Sprintf(" AND LOWER(city) = LOWER($%d)", n)
		args = append(args, filter.City)
	}
	if filter.Available != nil {
		n++
		where += fmt.Sprintf(" AND available = $%d", n)
		args = append(args, *filter.Available)
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM donor `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT %s FROM donor %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		donorCols, where, n+1, n+2)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	items, err := collectDonors(rows)
	return items, total, err
}

const contactableQuery = `
	SELECT ` + donorCols + ` FROM donor
	WHERE blood_group = $1 AND available = TRUE
		AND (last_donation_at IS NULL OR last_donation_at <= NOW() - INTERVAL '90 days')`

func (r *repoPG) ListContactable(ctx context.Context, group blood.Group) ([]*Donor, error) {
	rows, err := r.conn(ctx).Query(ctx, contactableQuery, group)
	if err != nil {
		return nil, err
	}
	return collectDonors(rows)
}

func (r *repoPG) ListContactableByCity(ctx context.Context, group blood.Group, city string) ([]*Donor, error) {
	rows, err := r.conn(ctx).Query(ctx, contactableQuery+` AND LOWER(city) = LOWER($2)`, group, city)
	if err != nil {
		return nil, err
	}
	return collectDonors(rows)
}

func collectDonors(rows pgx.Rows) ([]*Donor, error) {
	defer rows.Close()
	var items []*Donor
	for rows.Next() {
		d, err := scanDonor(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, d)
	}
	return items, rows.Err()
}
