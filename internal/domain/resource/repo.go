package resource

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("resource request not found")

type Repository interface {
	Create(ctx context.Context, rr *ResourceRequest) error
	GetByID(ctx context.Context, id uuid.UUID) (*ResourceRequest, error)
	List(ctx context.Context, filter Filter, limit, offset int) ([]*ResourceRequest, int, error)
	// UpdateStatus transitions status from expected to next atomically,
	// stamping the reviewer, and reports whether the row matched.
	UpdateStatus(ctx context.Context, id uuid.UUID, expected, next Status, reviewedBy string) (bool, error)
}

type Filter struct {
	OrganizationID uuid.UUID
	Kind           Kind
	Status         Status
}
