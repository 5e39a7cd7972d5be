package request

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
	"github.com/bloodnet/bloodnet/internal/platform/priority"
	"github.com/bloodnet/bloodnet/internal/platform/proximity"
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

const reqCols = `id, hospital_id, blood_group, urgency, units, patient_ref, notes,
	status, accepted_by, priority_score, priority_category,
	search_source, search_index, search_exhausted,
	requested_at, created_at, updated_at`

func scanRequest(row pgx.Row) (*BloodRequest, error) {
	var br BloodRequest
	err := row.Scan(&br.ID, &br.HospitalID, &br.BloodGroup, &br.Urgency, &br.Units,
		&br.PatientRef, &br.Notes, &br.Status, &br.AcceptedBy,
		&br.PriorityScore, &br.PriorityCategory,
		&br.SearchSource, &br.SearchIndex, &br.SearchExhausted,
		&br.RequestedAt, &br.CreatedAt, &br.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &br, err
}

func (r *repoPG) Create(ctx context.Context, br *BloodRequest) error {
	br.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO blood_request (id, hospital_id, blood_group, urgency, units,
			patient_ref, notes, status, priority_score, priority_category)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		RETURNING requested_at, created_at, updated_at`,
		br.ID, br.HospitalID, br.BloodGroup, br.Urgency, br.Units,
		br.PatientRef, br.Notes, br.Status, br.PriorityScore, br.PriorityCategory,
	).Scan(&br.RequestedAt, &br.CreatedAt, &br.UpdatedAt)
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*BloodRequest, error) {
	return scanRequest(r.conn(ctx).QueryRow(ctx, `SELECT `+reqCols+` FROM blood_request WHERE id = $1`, id))
}

func (r *repoPG) List(ctx context.Context, filter Filter, limit, offset int) ([]*BloodRequest, int, error) {
	where := "WHERE 1=1"
	args := []interface{}{}
	n := 0
	add := func(col string, val interface{}) {
		n++
		where += fmt.Sprintf(" AND %s = $%d", col, n)
		args = append(args, val)
	}
	if filter.HospitalID != uuid.Nil {
		add("hospital_id", filter.HospitalID)
	}
	if filter.Status != "" {
		add("status", filter.Status)
	}
	if filter.BloodGroup != "" {
		add("blood_group", filter.BloodGroup)
	}
	if filter.Urgency != "" {
		add("urgency", filter.Urgency)
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM blood_request `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT %s FROM blood_request %s ORDER BY requested_at DESC LIMIT $%d OFFSET $%d`,
		reqCols, where, n+1, n+2)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	items, err := collectRequests(rows)
	return items, total, err
}

func (r *repoPG) ListPending(ctx context.Context) ([]*BloodRequest, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+reqCols+` FROM blood_request
		WHERE status = $1 ORDER BY requested_at`, StatusPending)
	if err != nil {
		return nil, err
	}
	return collectRequests(rows)
}

func (r *repoPG) UpdateStatus(ctx context.Context, id uuid.UUID, expected, next Status, acceptedBy *uuid.UUID) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE blood_request
		SET status = $3, accepted_by = COALESCE($4, accepted_by), updated_at = NOW()
		WHERE id = $1 AND status = $2`,
		id, expected, next, acceptedBy)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *repoPG) UpdatePriority(ctx context.Context, id uuid.UUID, score int, category priority.Category, calculatedAt time.Time) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE blood_request
		SET priority_score = $2, priority_category = $3, updated_at = $4
		WHERE id = $1`,
		id, score, category, calculatedAt)
	return err
}

func (r *repoPG) UpdateSearchCursor(ctx context.Context, id uuid.UUID, stage proximity.Stage, exhausted bool) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE blood_request
		SET search_source = $2, search_index = $3, search_exhausted = $4, updated_at = NOW()
		WHERE id = $1`,
		id, stage.Source, stage.Index, exhausted)
	return err
}

func collectRequests(rows pgx.Rows) ([]*BloodRequest, error) {
	defer rows.Close()
	var items []*BloodRequest
	for rows.Next() {
		br, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, br)
	}
	return items, rows.Err()
}
