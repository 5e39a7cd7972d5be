package resource

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

const rrCols = `id, organization_id, kind, quantity, reason, status,
	reviewed_by, reviewed_at, created_at, updated_at`

func scanResourceRequest(row pgx.Row) (*ResourceRequest, error) {
	var rr ResourceRequest
	err := row.Scan(&rr.ID, &rr.OrganizationID, &rr.Kind, &rr.Quantity, &rr.Reason,
		&rr.Status, &rr.ReviewedBy, &rr.ReviewedAt, &rr.CreatedAt, &rr.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &rr, err
}

func (r *repoPG) Create(ctx context.Context, rr *ResourceRequest) error {
	rr.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO resource_request (id, organization_id, kind, quantity, reason, status)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		rr.ID, rr.OrganizationID, rr.Kind, rr.Quantity, rr.Reason, rr.Status)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*ResourceRequest, error) {
	return scanResourceRequest(r.conn(ctx).QueryRow(ctx,
		`SELECT `+rrCols+` FROM resource_request WHERE id = $1`, id))
}

func (r *repoPG) List(ctx context.Context, filter Filter, limit, offset int) ([]*ResourceRequest, int, error) {
	where := "WHERE 1=1"
	args := []interface{}{}
	n := 0
	add := func(col string, val interface{}) {
		n++
		where += fmt.Sprintf(" AND %s = $%d", col, n)
		args = append(args, val)
	}
	if filter.OrganizationID != uuid.Nil {
		add("organization_id", filter.OrganizationID)
	}
	if filter.Kind != "" {
		add("kind", filter.Kind)
	}
	if filter.Status != "" {
		add("status", filter.Status)
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM resource_request `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT %s FROM resource_request %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		rrCols, where, n+1, n+2)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*ResourceRequest
	for rows.Next() {
		rr, err := scanResourceRequest(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, rr)
	}
	return items, total, rows.Err()
}

func (r *repoPG) UpdateStatus(ctx context.Context, id uuid.UUID, expected, next Status, reviewedBy string) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE resource_request
		SET status = $3, reviewed_by = $4, reviewed_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status = $2`,
		id, expected, next, reviewedBy)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
