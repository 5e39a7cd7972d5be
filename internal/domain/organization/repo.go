package organization

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrNotFound is returned when no organization matches the given ID.
var ErrNotFound = errors.New("organization not found")

type Repository interface {
	Create(ctx context.Context, o *Organization) error
	GetByID(ctx context.Context, id uuid.UUID) (*Organization, error)
	Update(ctx context.Context, o *Organization) error
	// UpdateStatus transitions status from expected to next atomically and
	// reports whether the row was in the expected state.
	UpdateStatus(ctx context.Context, id uuid.UUID, expected, next Status) (bool, error)
	List(ctx context.Context, filter Filter, limit, offset int) ([]*Organization, int, error)
}

// Filter narrows organization listings.
type Filter struct {
	Type   Type
	Status Status
	City   string
}
