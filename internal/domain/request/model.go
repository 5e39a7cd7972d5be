package request

import (
	"time"

	"github.com/google/uuid"

	"github.com/bloodnet/bloodnet/internal/platform/priority"
	"github.com/bloodnet/bloodnet/internal/platform/proximity"
	"github.com/bloodnet/bloodnet/pkg/blood"
)

// Status is the lifecycle state of a blood request.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusAccepted  Status = "ACCEPTED"
	StatusRejected  Status = "REJECTED"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusAccepted, StatusRejected, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further transitions exist from s.
func (s Status) Terminal() bool {
	switch s {
	case StatusRejected, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// CanTransition encodes the lifecycle: a pending request is accepted,
// rejected or cancelled; an accepted request is completed or cancelled.
func CanTransition(from, to Status) bool {
	switch from {
	case StatusPending:
		return to == StatusAccepted || to == StatusRejected || to == StatusCancelled
	case StatusAccepted:
		return to == StatusCompleted || to == StatusCancelled
	}
	return false
}

// BloodRequest is a hospital's demand for blood units. The persisted priority
// fields are a display snapshot from the last computation; ordering decisions
// always recompute from current inputs.
type BloodRequest struct {
	ID         uuid.UUID     `db:"id" json:"id"`
	HospitalID uuid.UUID     `db:"hospital_id" json:"hospital_id"`
	BloodGroup blood.Group   `db:"blood_group" json:"blood_group"`
	Urgency    blood.Urgency `db:"urgency" json:"urgency"`
	Units      int           `db:"units" json:"units"`
	PatientRef *string       `db:"patient_ref" json:"patient_ref,omitempty"`
	Notes      *string       `db:"notes" json:"notes,omitempty"`
	Status     Status        `db:"status" json:"status"`
	AcceptedBy *uuid.UUID    `db:"accepted_by" json:"accepted_by,omitempty"`

	PriorityScore    int               `db:"priority_score" json:"priority_score"`
	PriorityCategory priority.Category `db:"priority_category" json:"priority_category"`

	// Search escalation cursor. Nil SearchSource means no search has run yet.
	SearchSource    *proximity.Source `db:"search_source" json:"search_source,omitempty"`
	SearchIndex     int               `db:"search_index" json:"search_index"`
	SearchExhausted bool              `db:"search_exhausted" json:"search_exhausted"`

	RequestedAt time.Time `db:"requested_at" json:"requested_at"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// SearchStage returns the escalation stage the next search call will run.
func (r *BloodRequest) SearchStage() proximity.Stage {
	if r.SearchSource == nil {
		return proximity.FirstStage()
	}
	return proximity.Stage{Source: *r.SearchSource, Index: r.SearchIndex}
}

// PriorityInput projects the request into the scoring engine's input.
func (r *BloodRequest) PriorityInput() priority.Input {
	return priority.Input{
		BloodGroup:  r.BloodGroup,
		Urgency:     r.Urgency,
		Units:       r.Units,
		RequestedAt: r.RequestedAt,
	}
}

// QueueEntry is one row of the prioritized pending queue: the request plus
// the freshly computed score decomposition.
type QueueEntry struct {
	Request  *BloodRequest   `json:"request"`
	Priority priority.Result `json:"priority"`
	Position int             `json:"position"`
}
