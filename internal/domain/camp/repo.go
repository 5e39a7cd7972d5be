package camp

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrNotFound     = errors.New("camp not found")
	ErrSlotNotFound = errors.New("slot not found")
	// ErrSlotFull is returned when a booking races past the last free seat.
	ErrSlotFull = errors.New("slot is fully booked")
	// ErrAlreadyRegistered is returned when a donor books the same slot twice.
	ErrAlreadyRegistered = errors.New("donor already registered for this slot")
)

type Repository interface {
	Create(ctx context.Context, c *Camp) error
	GetByID(ctx context.Context, id uuid.UUID) (*Camp, error)
	List(ctx context.Context, filter Filter, limit, offset int) ([]*Camp, int, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, expected, next Status) (bool, error)

	AddSlot(ctx context.Context, s *Slot) error
	GetSlot(ctx context.Context, slotID uuid.UUID) (*Slot, error)
	ListSlots(ctx context.Context, campID uuid.UUID) ([]*Slot, error)
	// Register books a seat atomically: the increment only succeeds while
	// booked < capacity.
	Register(ctx context.Context, r *Registration) error
	ListRegistrations(ctx context.Context, slotID uuid.UUID) ([]*Registration, error)
}

type Filter struct {
	OrganizerID uuid.UUID
	City        string
	Status      Status
}
