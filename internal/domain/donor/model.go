package donor

import (
	"time"

	"github.com/google/uuid"

	"github.com/bloodnet/bloodnet/internal/platform/geo"
	"github.com/bloodnet/bloodnet/pkg/blood"
)

// MinDonationGap is the required rest period between whole-blood donations.
const MinDonationGap = 90 * 24 * time.Hour

// Donor is a registered voluntary donor. Donors opt in and out of being
// contactable via the Available flag; eligibility is derived from the last
// donation date independently of that flag.
type Donor struct {
	ID             uuid.UUID   `db:"id" json:"id"`
	Name           string      `db:"name" json:"name"`
	Email          string      `db:"email" json:"email"`
	Phone          *string     `db:"phone" json:"phone,omitempty"`
	BloodGroup     blood.Group `db:"blood_group" json:"blood_group"`
	City           string      `db:"city" json:"city"`
	Latitude       *float64    `db:"latitude" json:"latitude,omitempty"`
	Longitude      *float64    `db:"longitude" json:"longitude,omitempty"`
	Available      bool        `db:"available" json:"available"`
	LastDonationAt *time.Time  `db:"last_donation_at" json:"last_donation_at,omitempty"`
	CreatedAt      time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time   `db:"updated_at" json:"updated_at"`
}

func (d *Donor) Location() *geo.Point {
	if d.Latitude == nil || d.Longitude == nil {
		return nil
	}
	p := geo.Point{Lat: *d.Latitude, Lng: *d.Longitude}
	if !p.Valid() {
		return nil
	}
	return &p
}

// Eligible reports whether the donor has completed the rest period.
func (d *Donor) Eligible(now time.Time) bool {
	if d.LastDonationAt == nil {
		return true
	}
	return now.Sub(*d.LastDonationAt) >= MinDonationGap
}

// NextEligibleAt returns when the donor may donate again, or nil if they
// already can.
func (d *Donor) NextEligibleAt(now time.Time) *time.Time {
	if d.Eligible(now) {
		return nil
	}
	t := d.LastDonationAt.Add(MinDonationGap)
	return &t
}
