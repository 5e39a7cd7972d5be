package stock

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/bloodnet/bloodnet/internal/domain/organization"
	"github.com/bloodnet/bloodnet/pkg/blood"
)

// ErrNotBloodBank is returned when stock is reported for an organization
// that is not an approved blood bank.
var ErrNotBloodBank = errors.New("organization is not an approved blood bank")

// OrgReader is the slice of the organization repository this service needs.
type OrgReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*organization.Organization, error)
}

type Service struct {
	repo Repository
	orgs OrgReader
	log  zerolog.Logger
}

func NewService(repo Repository, orgs OrgReader, log zerolog.Logger) *Service {
	return &Service{repo: repo, orgs: orgs, log: log.With().Str("component", "stock").Logger()}
}

// Report records the current unit count for a blood group at a bank. The
// count is absolute, not a delta.
func (s *Service) Report(ctx context.Context, orgID uuid.UUID, group blood.Group, units int) (*Snapshot, error) {
	if !group.Valid() {
		return nil, fmt.Errorf("invalid blood group %q", group)
	}
	if units < 0 {
		return nil, fmt.Errorf("units must not be negative")
	}
	org, err := s.orgs.GetByID(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if org.Type != organization.TypeBloodBank || org.Status != organization.StatusApproved {
		return nil, ErrNotBloodBank
	}

	snap := &Snapshot{OrganizationID: orgID, BloodGroup: group, Units: units}
	if err := s.repo.Upsert(ctx, snap); err != nil {
		return nil, fmt.Errorf("upsert stock: %w", err)
	}
	s.log.Info().
		Str("org_id", orgID.String()).
		Str("blood_group", string(group)).
		Int("units", units).
		Msg("stock reported")
	return snap, nil
}

func (s *Service) Get(ctx context.Context, orgID uuid.UUID, group blood.Group) (*Snapshot, error) {
	if !group.Valid() {
		return nil, fmt.Errorf("invalid blood group %q", group)
	}
	return s.repo.Get(ctx, orgID, group)
}

func (s *Service) ListByOrg(ctx context.Context, orgID uuid.UUID) ([]*Snapshot, error) {
	return s.repo.ListByOrg(ctx, orgID)
}
