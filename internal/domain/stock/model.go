package stock

import (
	"time"

	"github.com/google/uuid"

	"github.com/bloodnet/bloodnet/pkg/blood"
)

// Snapshot is the current unit count a blood bank holds for one blood group.
// One row per (organization, group); updates overwrite in place.
type Snapshot struct {
	ID             uuid.UUID   `db:"id" json:"id"`
	OrganizationID uuid.UUID   `db:"organization_id" json:"organization_id"`
	BloodGroup     blood.Group `db:"blood_group" json:"blood_group"`
	Units          int         `db:"units" json:"units"`
	LastUpdated    time.Time   `db:"last_updated" json:"last_updated"`
}

// BankCandidate is a stock row joined with its owning blood bank, used by
// proximity search to find banks that can serve a request.
type BankCandidate struct {
	OrganizationID uuid.UUID   `db:"organization_id" json:"organization_id"`
	Name           string      `db:"name" json:"name"`
	City           string      `db:"city" json:"city"`
	Phone          *string     `db:"phone" json:"phone,omitempty"`
	Latitude       *float64    `db:"latitude" json:"latitude,omitempty"`
	Longitude      *float64    `db:"longitude" json:"longitude,omitempty"`
	BloodGroup     blood.Group `db:"blood_group" json:"blood_group"`
	Units          int         `db:"units" json:"units"`
}
