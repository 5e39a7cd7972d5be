package organization

import (
	"time"

	"github.com/google/uuid"

	"github.com/bloodnet/bloodnet/internal/platform/geo"
)

// Type discriminates the three kinds of participating organizations.
type Type string

const (
	TypeHospital  Type = "hospital"
	TypeBloodBank Type = "bloodbank"
	TypeNGO       Type = "ngo"
)

func (t Type) Valid() bool {
	switch t {
	case TypeHospital, TypeBloodBank, TypeNGO:
		return true
	}
	return false
}

// Status tracks the super-admin approval workflow.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Organization maps to the organization table.
type Organization struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	Name          string     `db:"name" json:"name"`
	Type          Type       `db:"type" json:"type"`
	Email         string     `db:"email" json:"email"`
	Phone         *string    `db:"phone" json:"phone,omitempty"`
	Address       *string    `db:"address" json:"address,omitempty"`
	City          string     `db:"city" json:"city"`
	Latitude      *float64   `db:"latitude" json:"latitude,omitempty"`
	Longitude     *float64   `db:"longitude" json:"longitude,omitempty"`
	LicenseNumber *string    `db:"license_number" json:"license_number,omitempty"`
	Status        Status     `db:"status" json:"status"`
	ApprovedAt    *time.Time `db:"approved_at" json:"approved_at,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}

// Location returns the organization's coordinates, or nil when none are
// recorded or they are unusable.
func (o *Organization) Location() *geo.Point {
	if o.Latitude == nil || o.Longitude == nil {
		return nil
	}
	p := geo.Point{Lat: *o.Latitude, Lng: *o.Longitude}
	if !p.Valid() {
		return nil
	}
	return &p
}
