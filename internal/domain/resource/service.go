package resource

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ErrConflict is returned when a review transition races or is not allowed
// from the request's current state.
var ErrConflict = errors.New("resource request status conflict")

type Service struct {
	repo Repository
	log  zerolog.Logger
}

func NewService(repo Repository, log zerolog.Logger) *Service {
	return &Service{repo: repo, log: log.With().Str("component", "resource").Logger()}
}

func (s *Service) Create(ctx context.Context, rr *ResourceRequest) (*ResourceRequest, error) {
	if rr.OrganizationID == uuid.Nil {
		return nil, fmt.Errorf("organization is required")
	}
	if !rr.Kind.Valid() {
		return nil, fmt.Errorf("invalid resource kind %q", rr.Kind)
	}
	if rr.Quantity <= 0 {
		return nil, fmt.Errorf("quantity must be positive")
	}
	rr.Status = StatusPending
	rr.ReviewedBy = nil
	rr.ReviewedAt = nil

	if err := s.repo.Create(ctx, rr); err != nil {
		return nil, fmt.Errorf("create resource request: %w", err)
	}
	s.log.Info().
		Str("resource_request_id", rr.ID.String()).
		Str("kind", string(rr.Kind)).
		Int("quantity", rr.Quantity).
		Msg("resource request created")
	return s.repo.GetByID(ctx, rr.ID)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*ResourceRequest, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, filter Filter, limit, offset int) ([]*ResourceRequest, int, error) {
	return s.repo.List(ctx, filter, limit, offset)
}

func (s *Service) Approve(ctx context.Context, id uuid.UUID, reviewer string) (*ResourceRequest, error) {
	return s.transition(ctx, id, StatusPending, StatusApproved, reviewer)
}

func (s *Service) Reject(ctx context.Context, id uuid.UUID, reviewer string) (*ResourceRequest, error) {
	return s.transition(ctx, id, StatusPending, StatusRejected, reviewer)
}

func (s *Service) Fulfill(ctx context.Context, id uuid.UUID, reviewer string) (*ResourceRequest, error) {
	return s.transition(ctx, id, StatusApproved, StatusFulfilled, reviewer)
}

func (s *Service) transition(ctx context.Context, id uuid.UUID, expected, next Status, reviewer string) (*ResourceRequest, error) {
	if !CanTransition(expected, next) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrConflict, expected, next)
	}
	ok, err := s.repo.UpdateStatus(ctx, id, expected, next, reviewer)
	if err != nil {
		return nil, fmt.Errorf("update resource request status: %w", err)
	}
	if !ok {
		if _, err := s.repo.GetByID(ctx, id); err != nil {
			return nil, err
		}
		return nil, ErrConflict
	}
	s.log.Info().
		Str("resource_request_id", id.String()).
		Str("status", string(next)).
		Str("reviewer", reviewer).
		Msg("resource request reviewed")
	return s.repo.GetByID(ctx, id)
}
