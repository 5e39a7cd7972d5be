package stock

import (
	"context"
	"errors"

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

const snapCols = `id, organization_id, blood_group, units, last_updated`

func scanSnapshot(row pgx.Row) (*Snapshot, error) {
	var s Snapshot
	err := row.Scan(&s.ID, &s.OrganizationID, &s.BloodGroup, &s.Units, &s.LastUpdated)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &s, err
}

func (r *repoPG) Upsert(ctx context.Context, s *Snapshot) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO stock_snapshot (id, organization_id, blood_group, units, last_updated)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (organization_id, blood_group)
		DO UPDATE SET units = EXCLUDED.units, last_updated = NOW()
		RETURNING `+snapCols,
		s.ID, s.OrganizationID, s.BloodGroup, s.Units,
	).Scan(&s.ID, &s.OrganizationID, &s.BloodGroup, &s.Units, &s.LastUpdated)
}

func (r *repoPG) Get(ctx context.Context, orgID uuid.UUID, group blood.Group) (*Snapshot, error) {
	return scanSnapshot(r.conn(ctx).QueryRow(ctx, `
		SELECT `+snapCols+` FROM stock_snapshot
		WHERE organization_id = $1 AND blood_group = $2`, orgID, group))
}

func (r *repoPG) ListByOrg(ctx context.Context, orgID uuid.UUID) ([]*Snapshot, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+snapCols+` FROM stock_snapshot
		WHERE organization_id = $1 ORDER BY blood_group`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Snapshot
	for rows.Next() {
		s, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, rows.Err()
}

const candidateQuery = `
	SELECT s.organization_id, o.name, o.city, o.phone, o.latitude, o.longitude,
		s.blood_group, s.units
	FROM stock_snapshot s
	JOIN organization o ON o.id = s.organization_id
	WHERE o.type = 'bloodbank' AND o.status = 'approved'
		AND s.blood_group = $1 AND s.units > 0`

func (r *repoPG) ListBankCandidates(ctx context.Context, group blood.Group) ([]*BankCandidate, error) {
	rows, err := r.conn(ctx).Query(ctx, candidateQuery, group)
	if err != nil {
		return nil, err
	}
	return collectCandidates(rows)
}

func (r *repoPG) ListBankCandidatesByCity(ctx context.Context, group blood.Group, city string) ([]*BankCandidate, error) {
	rows, err := r.conn(ctx).Query(ctx, candidateQuery+` AND LOWER(o.city) = LOWER($2)`, group, city)
	if err != nil {
		return nil, err
	}
	return collectCandidates(rows)
}

func (r *repoPG) GroupTotal(ctx context.Context, group blood.Group) (int, bool, error) {
	var total, count int
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT COALESCE(SUM(s.units), 0), COUNT(*)
		FROM stock_snapshot s
		JOIN organization o ON o.id = s.organization_id
		WHERE o.type = 'bloodbank' AND o.status = 'approved' AND s.blood_group = $1`,
		group,
	).Scan(&total, &count)
	if err != nil {
		return 0, false, err
	}
	return total, count > 0, nil
}

func collectCandidates(rows pgx.Rows) ([]*BankCandidate, error) {
	defer rows.Close()
	var items []*BankCandidate
	for rows.Next() {
		var c BankCandidate
		if err := rows.Scan(&c.OrganizationID, &c.Name, &c.City, &c.Phone,
			&c.Latitude, &c.Longitude, &c.BloodGroup, &c.Units); err != nil {
			return nil, err
		}
		items = append(items, &c)
	}
	return items, rows.Err()
}
