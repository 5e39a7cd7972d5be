package camp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ErrConflict is returned when a camp status transition races or is not
// allowed from the current state.
var ErrConflict = errors.New("camp status conflict")

// ErrCampClosed is returned when registering for a camp that is no longer
// taking bookings.
var ErrCampClosed = errors.New("camp is not open for registration")

type Service struct {
	repo Repository
	log  zerolog.Logger
	now  func() time.Time
}

func NewService(repo Repository, log zerolog.Logger) *Service {
	return &Service{
		repo: repo,
		log:  log.With().Str("component", "camp").Logger(),
		now:  time.Now,
	}
}

func (s *Service) Create(ctx context.Context, c *Camp) (*Camp, error) {
	if c.OrganizerID == uuid.Nil {
		return nil, fmt.Errorf("organizer is required")
	}
	if strings.TrimSpace(c.Name) == "" {
		return nil, fmt.Errorf("name is required")
	}
	if strings.TrimSpace(c.City) == "" {
		return nil, fmt.Errorf("city is required")
	}
	if c.StartsAt.IsZero() || c.EndsAt.IsZero() || !c.EndsAt.After(c.StartsAt) {
		return nil, fmt.Errorf("camp window must have a start before its end")
	}
	if c.EndsAt.Before(s.now()) {
		return nil, fmt.Errorf("camp window is already over")
	}
	c.Status = StatusScheduled

	if err := s.repo.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("create camp: %w", err)
	}
	s.log.Info().Str("camp_id", c.ID.String()).Str("city", c.City).Msg("camp created")
	return s.repo.GetByID(ctx, c.ID)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Camp, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, filter Filter, limit, offset int) ([]*Camp, int, error) {
	return s.repo.List(ctx, filter, limit, offset)
}

// Start, Finish and Cancel walk the schedule lifecycle with CAS guards.
func (s *Service) Start(ctx context.Context, id uuid.UUID) (*Camp, error) {
	return s.transition(ctx, id, StatusScheduled, StatusOngoing)
}

func (s *Service) Finish(ctx context.Context, id uuid.UUID) (*Camp, error) {
	return s.transition(ctx, id, StatusOngoing, StatusCompleted)
}

func (s *Service) Cancel(ctx context.Context, id uuid.UUID) (*Camp, error) {
	c, err := s.transition(ctx, id, StatusScheduled, StatusCancelled)
	if errors.Is(err, ErrConflict) {
		return s.transition(ctx, id, StatusOngoing, StatusCancelled)
	}
	return c, err
}

func (s *Service) transition(ctx context.Context, id uuid.UUID, expected, next Status) (*Camp, error) {
	ok, err := s.repo.UpdateStatus(ctx, id, expected, next)
	if err != nil {
		return nil, fmt.Errorf("update camp status: %w", err)
	}
	if !ok {
		if _, err := s.repo.GetByID(ctx, id); err != nil {
			return nil, err
		}
		return nil, ErrConflict
	}
	s.log.Info().Str("camp_id", id.String()).Str("status", string(next)).Msg("camp status updated")
	return s.repo.GetByID(ctx, id)
}

func (s *Service) AddSlot(ctx context.Context, slot *Slot) (*Slot, error) {
	camp, err := s.repo.GetByID(ctx, slot.CampID)
	if err != nil {
		return nil, err
	}
	if camp.Status != StatusScheduled {
		return nil, ErrCampClosed
	}
	if slot.Capacity <= 0 {
		return nil, fmt.Errorf("capacity must be positive")
	}
	if slot.StartsAt.IsZero() || slot.EndsAt.IsZero() || !slot.EndsAt.After(slot.StartsAt) {
		return nil, fmt.Errorf("slot window must have a start before its end")
	}
	if slot.StartsAt.Before(camp.StartsAt) || slot.EndsAt.After(camp.EndsAt) {
		return nil, fmt.Errorf("slot must fall within the camp window")
	}
	if err := s.repo.AddSlot(ctx, slot); err != nil {
		return nil, fmt.Errorf("add slot: %w", err)
	}
	return slot, nil
}

func (s *Service) ListSlots(ctx context.Context, campID uuid.UUID) ([]*Slot, error) {
	if _, err := s.repo.GetByID(ctx, campID); err != nil {
		return nil, err
	}
	return s.repo.ListSlots(ctx, campID)
}

// Register books a donor into a slot. Capacity is enforced atomically at the
// storage layer; a full slot surfaces ErrSlotFull even under concurrent
// bookings.
func (s *Service) Register(ctx context.Context, slotID, donorID uuid.UUID) (*Registration, error) {
	if donorID == uuid.Nil {
		return nil, fmt.Errorf("donor is required")
	}
	slot, err := s.repo.GetSlot(ctx, slotID)
	if err != nil {
		return nil, err
	}
	camp, err := s.repo.GetByID(ctx, slot.CampID)
	if err != nil {
		return nil, err
	}
	if camp.Status != StatusScheduled && camp.Status != StatusOngoing {
		return nil, ErrCampClosed
	}

	reg := &Registration{SlotID: slotID, DonorID: donorID}
	if err := s.repo.Register(ctx, reg); err != nil {
		return nil, err
	}
	s.log.Info().
		Str("slot_id", slotID.String()).
		Str("donor_id", donorID.String()).
		Msg("donor registered for camp slot")
	return reg, nil
}

func (s *Service) ListRegistrations(ctx context.Context, slotID uuid.UUID) ([]*Registration, error) {
	if _, err := s.repo.GetSlot(ctx, slotID); err != nil {
		return nil, err
	}
	return s.repo.ListRegistrations(ctx, slotID)
}
