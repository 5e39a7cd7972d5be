package stock

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/bloodnet/bloodnet/pkg/blood"
)

var ErrNotFound = errors.New("stock snapshot not found")

type Repository interface {
	// Upsert records the latest unit count for (org, group), replacing any
	// previous snapshot and stamping last_updated.
	Upsert(ctx context.Context, s *Snapshot) error
	Get(ctx context.Context, orgID uuid.UUID, group blood.Group) (*Snapshot, error)
	ListByOrg(ctx context.Context, orgID uuid.UUID) ([]*Snapshot, error)
	// ListBankCandidates returns stock rows of approved blood banks holding
	// the given group, joined with the bank's identity and coordinates.
	ListBankCandidates(ctx context.Context, group blood.Group) ([]*BankCandidate, error)
	// ListBankCandidatesByCity is the degraded-mode variant scoped to a city.
	ListBankCandidatesByCity(ctx context.Context, group blood.Group, city string) ([]*BankCandidate, error)
	// GroupTotal sums units across approved banks for the group. ok is
	// false when no approved bank has ever reported that group.
	GroupTotal(ctx context.Context, group blood.Group) (units int, ok bool, err error)
}
