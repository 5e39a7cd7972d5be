package donor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ErrNotEligible is returned when a donation is recorded before the rest
// period has elapsed.
var ErrNotEligible = errors.New("donor has not completed the rest period")

type Service struct {
	repo Repository
	log  zerolog.Logger
	now  func() time.Time
}

func NewService(repo Repository, log zerolog.Logger) *Service {
	return &Service{
		repo: repo,
		log:  log.With().Str("component", "donor").Logger(),
		now:  time.Now,
	}
}

func (s *Service) Register(ctx context.Context, d *Donor) (*Donor, error) {
	if strings.TrimSpace(d.Name) == "" {
		return nil, fmt.Errorf("name is required")
	}
	if strings.TrimSpace(d.Email) == "" {
		return nil, fmt.Errorf("email is required")
	}
	if !d.BloodGroup.Valid() {
		return nil, fmt.Errorf("invalid blood group %q", d.BloodGroup)
	}
	if strings.TrimSpace(d.City) == "" {
		return nil, fmt.Errorf("city is required")
	}
	if (d.Latitude == nil) != (d.Longitude == nil) {
		return nil, fmt.Errorf("latitude and longitude must be provided together")
	}
	d.Available = true

	if err := s.repo.Create(ctx, d); err != nil {
		return nil, fmt.Errorf("create donor: %w", err)
	}
	s.log.Info().Str("donor_id", d.ID.String()).Str("blood_group", string(d.BloodGroup)).Msg("donor registered")
	return s.repo.GetByID(ctx, d.ID)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Donor, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, filter Filter, limit, offset int) ([]*Donor, int, error) {
	return s.repo.List(ctx, filter, limit, offset)
}

// SetAvailability flips the donor's opt-in flag.
func (s *Service) SetAvailability(ctx context.Context, id uuid.UUID, available bool) (*Donor, error) {
	d, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	d.Available = available
	if err := s.repo.Update(ctx, d); err != nil {
		return nil, fmt.Errorf("update donor: %w", err)
	}
	return s.repo.GetByID(ctx, id)
}

// RecordDonation stamps a completed donation. The donor becomes ineligible
// for the rest period but stays registered and available.
func (s *Service) RecordDonation(ctx context.Context, id uuid.UUID, donatedAt time.Time) (*Donor, error) {
	d, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if donatedAt.IsZero() {
		donatedAt = s.now()
	}
	if d.LastDonationAt != nil && donatedAt.Sub(*d.LastDonationAt) < MinDonationGap {
		return nil, ErrNotEligible
	}
	d.LastDonationAt = &donatedAt
	if err := s.repo.Update(ctx, d); err != nil {
		return nil, fmt.Errorf("update donor: %w", err)
	}
	s.log.Info().Str("donor_id", id.String()).Time("donated_at", donatedAt).Msg("donation recorded")
	return s.repo.GetByID(ctx, id)
}

func (s *Service) UpdateProfile(ctx context.Context, id uuid.UUID, update *Donor) (*Donor, error) {
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
	if update.Latitude != nil && update.Longitude != nil {
		existing.Latitude = update.Latitude
		existing.Longitude = update.Longitude
	}
	if err := s.repo.Update(ctx, existing); err != nil {
		return nil, fmt.Errorf("update donor: %w", err)
	}
	return s.repo.GetByID(ctx, id)
}
