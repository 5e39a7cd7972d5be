package organization

import (
	"context"
	"errors"
	"fmt"
	"time"

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

const orgCols = `id, name, type, email, phone, address, city, latitude, longitude,
	license_number, status, approved_at, created_at, updated_at`

func scanOrg(row pgx.Row) (*Organization, error) {
	var o Organization
	err := row.Scan(&o.ID, &o.Name, &o.Type, &o.Email, &o.Phone, &o.Address, &o.City,
		&o.Latitude, &o.Longitude, &o.LicenseNumber, &o.Status, &o.ApprovedAt,
		&o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &o, err
}

func (r *repoPG) Create(ctx context.Context, o *Organization) error {
	o.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO organization (id, name, type, email, phone, address, city,
			latitude, longitude, license_number, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		o.ID, o.Name, o.Type, o.Email, o.Phone, o.Address, o.City,
		o.Latitude, o.Longitude, o.LicenseNumber, o.Status)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Organization, error) {
	return scanOrg(r.conn(ctx).QueryRow(ctx, `SELECT `+orgCols+` FROM organization WHERE id = $1`, id))
}

func (r *repoPG) Update(ctx context.Context, o *Organization) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE organization SET name=$2, email=$3, phone=$4, address=$5, city=$6,
			latitude=$7, longitude=$8, license_number=$9, updated_at=NOW()
		WHERE id = $1`,
		o.ID, o.Name, o.Email, o.Phone, o.Address, o.City,
		o.Latitude, o.Longitude, o.LicenseNumber)
	return err
}

func (r *repoPG) UpdateStatus(ctx context.Context, id uuid.UUID, expected, next Status) (bool, error) {
	var approvedAt *time.Time
	if next == StatusApproved {
		now := time.Now()
		approvedAt = &now
	}
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE organization SET status=$3, approved_at=COALESCE($4, approved_at), updated_at=NOW()
		WHERE id = $1 AND status = $2`,
		id, expected, next, approvedAt)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *repoPG) List(ctx context.Context, filter Filter, limit, offset int) ([]*Organization, int, error) {
	where := "WHERE 1=1"
	args := []interface{}{}
	n := 0
	add := func(cond string, val interface{}) {
		n++
		where += fmt.Sprintf(" AND %s = $%d", cond, n)
		args = append(args, val)
	}
	if filter.Type != "" {
		add("type", filter.Type)
	}
	if filter.Status != "" {
		add("status", filter.Status)
	}
	if filter.City != "" {
		add("city", filter.City)
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM organization `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT %s FROM organization %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		orgCols, where, n+1, n+2)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Organization
	for rows.Next() {
		o, err := scanOrg(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, o)
	}
	return items, total, rows.Err()
}
