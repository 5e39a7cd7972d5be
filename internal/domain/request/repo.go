package request

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/bloodnet/bloodnet/internal/platform/priority"
	"github.com/bloodnet/bloodnet/internal/platform/proximity"
	"github.com/bloodnet/bloodnet/pkg/blood"
)

var ErrNotFound = errors.New("blood request not found")

type Repository interface {
	Create(ctx context.Context, r *BloodRequest) error
	GetByID(ctx context.Context, id uuid.UUID) (*BloodRequest, error)
	List(ctx context.Context, filter Filter, limit, offset int) ([]*BloodRequest, int, error)
	// ListPending returns every pending request; the service orders them.
	ListPending(ctx context.Context) ([]*BloodRequest, error)
	// UpdateStatus transitions status from expected to next atomically,
	// recording the accepting organization when one is given. It reports
	// whether the row was in the expected state.
	UpdateStatus(ctx context.Context, id uuid.UUID, expected, next Status, acceptedBy *uuid.UUID) (bool, error)
	// UpdatePriority persists the latest score snapshot for display.
	UpdatePriority(ctx context.Context, id uuid.UUID, score int, category priority.Category, calculatedAt time.Time) error
	// UpdateSearchCursor advances the persisted escalation stage.
	UpdateSearchCursor(ctx context.Context, id uuid.UUID, stage proximity.Stage, exhausted bool) error
}

type Filter struct {
	HospitalID uuid.UUID
	Status     Status
	BloodGroup blood.Group
	Urgency    blood.Urgency
}
