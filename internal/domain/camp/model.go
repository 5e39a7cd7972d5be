package camp

import (
	"time"

	"github.com/google/uuid"
)

// Status tracks a camp through its schedule.
type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusOngoing   Status = "ongoing"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

func (s Status) Valid() bool {
	switch s {
	case StatusScheduled, StatusOngoing, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Camp is a donation drive organized by an NGO or blood bank.
type Camp struct {
	ID          uuid.UUID `db:"id" json:"id"`
	OrganizerID uuid.UUID `db:"organizer_id" json:"organizer_id"`
	Name        string    `db:"name" json:"name"`
	City        string    `db:"city" json:"city"`
	Address     *string   `db:"address" json:"address,omitempty"`
	Latitude    *float64  `db:"latitude" json:"latitude,omitempty"`
	Longitude   *float64  `db:"longitude" json:"longitude,omitempty"`
	StartsAt    time.Time `db:"starts_at" json:"starts_at"`
	EndsAt      time.Time `db:"ends_at" json:"ends_at"`
	Status      Status    `db:"status" json:"status"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// Slot is a bookable time window within a camp. Booked never exceeds
// Capacity; the repository enforces that atomically.
type Slot struct {
	ID       uuid.UUID `db:"id" json:"id"`
	CampID   uuid.UUID `db:"camp_id" json:"camp_id"`
	StartsAt time.Time `db:"starts_at" json:"starts_at"`
	EndsAt   time.Time `db:"ends_at" json:"ends_at"`
	Capacity int       `db:"capacity" json:"capacity"`
	Booked   int       `db:"booked" json:"booked"`
}

// Registration links a donor to a slot.
type Registration struct {
	ID        uuid.UUID `db:"id" json:"id"`
	SlotID    uuid.UUID `db:"slot_id" json:"slot_id"`
	DonorID   uuid.UUID `db:"donor_id" json:"donor_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
