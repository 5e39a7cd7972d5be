package organization

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ErrConflict is returned when a status transition races with another update.
var ErrConflict = errors.New("organization status changed concurrently")

type Service struct {
	repo Repository
	log  zerolog.Logger
}

func NewService(repo Repository, log zerolog.Logger) *Service {
	return &Service{repo: repo, log: log.With().Str("component", "organization").Logger()}
}

// Register creates a new organization in the pending state. Approval is a
// separate admin action.
func (s *Service) Register(ctx context.Context, o *Organization) (*Organization, error) {
	if strings.TrimSpace(o.Name) == "" {
		return nil, fmt.Errorf("name is required")
	}
	if !o.Type.Valid() {
		return nil, fmt.Errorf("invalid organization type %q", o.Type)
	}
	if strings.TrimSpace(o.Email) == "" {
		return nil, fmt.Errorf("email is required")
	}
	if strings.TrimSpace(o.City) == "" {
		return nil, fmt.Errorf("city is required")
	}
	if (o.Latitude == nil) != (o.Longitude == nil) {
		return nil, fmt.Errorf("latitude and longitude must be provided together")
	}
	o.Status = StatusPending
	o.ApprovedAt = nil

	if err := s.repo.Create(ctx, o); err != nil {
		return nil, fmt.Errorf("create organization: %w", err)
	}
	s.log.Info().Str("org_id", o.ID.String()).Str("type", string(o.Type)).Msg("organization registered")
	return s.repo.GetByID(ctx, o.ID)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Organization, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, filter Filter, limit, offset int) ([]*Organization, int, error) {
	return s.repo.List(ctx, filter, limit, offset)
}

// Approve moves a pending organization to approved. Only pending
// organizations can be approved; anything else is a conflict.
func (s *Service) Approve(ctx context.Context, id uuid.UUID) (*Organization, error) {
	return s.transition(ctx, id, StatusPending, StatusApproved)
}

// Reject moves a pending organization to rejected.
func (s *Service) Reject(ctx context.Context, id uuid.UUID) (*Organization, error) {
	return s.transition(ctx, id, StatusPending, StatusRejected)
}

func (s *Service) transition(ctx context.Context, id uuid.UUID, expected, next Status) (*Organization, error) {
	ok, err := s.repo.UpdateStatus(ctx, id, expected, next)
	if err != nil {
		return nil, fmt.Errorf("update organization status: %w", err)
	}
	if !ok {
		if _, err := s.repo.GetByID(ctx, id); err != nil {
			return nil, err
		}
		return nil, ErrConflict
	}
	s.log.Info().Str("org_id", id.String()).Str("status", string(next)).Msg("organization status updated")
	return s.repo.GetByID(ctx, id)
}

// UpdateProfile applies contact and location changes without touching the
// approval status.
func (s *Service) UpdateProfile(ctx context.Context, id uuid.UUID, update *Organization) (*Organization, error) {
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(update.Name) != "" {
		existing.Name = update.Name
	}
	if strings.TrimSpace(update.Email) != "" {
		existing.Email = update.Email
	}
	if strings.TrimSpace(update.City) != "" {
		existing.City = update.City
	}
	if update.Phone != nil {
		existing.Phone = update.Phone
	}
	if update.Address != nil {
		existing.Address = update.Address
	}
	if update.LicenseNumber != nil {
		existing.LicenseNumber = update.LicenseNumber
	}
	if update.Latitude != nil && update.Longitude != nil {
		existing.Latitude = update.Latitude
		existing.Longitude = update.Longitude
	}
	if err := s.repo.Update(ctx, existing); err != nil {
		return nil, fmt.Errorf("update organization: %w", err)
	}
	return s.repo.GetByID(ctx, id)
}
