package resource

import (
	"time"

	"github.com/google/uuid"
)

// Kind is the category of equipment or support being requested.
type Kind string

const (
	KindRefrigeration Kind = "refrigeration"
	KindTransport     Kind = "transport"
	KindTestingKits   Kind = "testing_kits"
	KindStaff         Kind = "staff"
)

func (k Kind) Valid() bool {
	switch k {
	case KindRefrigeration, KindTransport, KindTestingKits, KindStaff:
		return true
	}
	return false
}

// Status is the admin review lifecycle of a resource request.
type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusFulfilled Status = "fulfilled"
)

// CanTransition encodes the review flow: pending goes to approved or
// rejected; approved goes to fulfilled.
func CanTransition(from, to Status) bool {
	switch from {
	case StatusPending:
		return to == StatusApproved || to == StatusRejected
	case StatusApproved:
		return to == StatusFulfilled
	}
	return false
}

// ResourceRequest is an organization's ask for operational support.
type ResourceRequest struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	OrganizationID uuid.UUID  `db:"organization_id" json:"organization_id"`
	Kind           Kind       `db:"kind" json:"kind"`
	Quantity       int        `db:"quantity" json:"quantity"`
	Reason         *string    `db:"reason" json:"reason,omitempty"`
	Status         Status     `db:"status" json:"status"`
	ReviewedBy     *string    `db:"reviewed_by" json:"reviewed_by,omitempty"`
	ReviewedAt     *time.Time `db:"reviewed_at" json:"reviewed_at,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}
