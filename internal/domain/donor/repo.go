package donor

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/bloodnet/bloodnet/pkg/blood"
)

var ErrNotFound = errors.New("donor not found")

type Repository interface {
	Create(ctx context.Context, d *Donor) error
	GetByID(ctx context.Context, id uuid.UUID) (*Donor, error)
	Update(ctx context.Context, d *Donor) error
	List(ctx context.Context, filter Filter, limit, offset int) ([]*Donor, int, error)
	// ListContactable returns available donors of exactly the given group
	// who have completed the rest period. Used by donor fallback search.
	ListContactable(ctx context.Context, group blood.Group) ([]*Donor, error)
	// ListContactableByCity is the degraded-mode variant scoped to a city.
	ListContactableByCity(ctx context.Context, group blood.Group, city string) ([]*Donor, error)
}

type Filter struct {
	BloodGroup blood.Group
	City       string
	Available  *bool
}
