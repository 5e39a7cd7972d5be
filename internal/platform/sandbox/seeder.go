// Package sandbox populates a development tenant with plausible data so the
// queue, search and camp flows can be exercised without manual setup.
package sandbox

import (
	"context"
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/rs/zerolog"

	"github.com/bloodnet/bloodnet/internal/domain/camp"
	"github.com/bloodnet/bloodnet/internal/domain/donor"
	"github.com/bloodnet/bloodnet/internal/domain/organization"
	"github.com/bloodnet/bloodnet/internal/domain/request"
	"github.com/bloodnet/bloodnet/internal/domain/stock"
	"github.com/bloodnet/bloodnet/pkg/blood"
)

// seedCity anchors generated organizations and donors to real coordinates so
// the staged-radius search returns sensible distances.
type seedCity struct {
	name     string
	lat, lng float64
}

var seedCities = []seedCity{
	{"Mumbai", 19.0760, 72.8777},
	{"Delhi", 28.6139, 77.2090},
	{"Bengaluru", 12.9716, 77.5946},
	{"Chennai", 13.0827, 80.2707},
	{"Pune", 18.5204, 73.8567},
}

type Seeder struct {
	orgs     *organization.Service
	stocks   *stock.Service
	donors   *donor.Service
	requests *request.Service
	camps    *camp.Service
	faker    *gofakeit.Faker
	log      zerolog.Logger
}

func NewSeeder(orgs *organization.Service, stocks *stock.Service, donors *donor.Service,
	requests *request.Service, camps *camp.Service, seed uint64, log zerolog.Logger) *Seeder {
	return &Seeder{
		orgs:     orgs,
		stocks:   stocks,
		donors:   donors,
		requests: requests,
		camps:    camps,
		faker:    gofakeit.New(seed),
		log:      log.With().Str("component", "seeder").Logger(),
	}
}

// Seed creates hospitals, approved blood banks with stock, donors, pending
// requests and one scheduled camp per city. It goes through the services so
// every invariant the API enforces also holds for seeded data.
func (s *Seeder) Seed(ctx context.Context) error {
	hospitals := make([]*organization.Organization, 0, len(seedCities))
	banks := make([]*organization.Organization, 0, len(seedCities)*2)

	for _, city := range seedCities {
		h, err := s.seedOrg(ctx, organization.TypeHospital, city)
		if err != nil {
			return fmt.Errorf("seed hospital in %s: %w", city.name, err)
		}
		hospitals = append(hospitals, h)

		for i := 0; i < 2; i++ {
			b, err := s.seedOrg(ctx, organization.TypeBloodBank, city)
			if err != nil {
				return fmt.Errorf("seed blood bank in %s: %w", city.name, err)
			}
			banks = append(banks, b)
		}

		if _, err := s.seedOrg(ctx, organization.TypeNGO, city); err != nil {
			return fmt.Errorf("seed ngo in %s: %w", city.name, err)
		}
	}

	for _, b := range banks {
		for _, group := range blood.Groups {
			units := s.faker.Number(0, 14)
			if _, err := s.stocks.Report(ctx, b.ID, group, units); err != nil {
				return fmt.Errorf("seed stock for %s: %w", b.Name, err)
			}
		}
	}

	for i := 0; i < 60; i++ {
		city := seedCities[s.faker.Number(0, len(seedCities)-1)]
		if _, err := s.seedDonor(ctx, city); err != nil {
			return fmt.Errorf("seed donor: %w", err)
		}
	}

	urgencies := []blood.Urgency{blood.UrgencyCritical, blood.UrgencyHigh, blood.UrgencyMedium, blood.UrgencyLow}
	for i := 0; i < 15; i++ {
		h := hospitals[s.faker.Number(0, len(hospitals)-1)]
		_, err := s.requests.Create(ctx, &request.BloodRequest{
			HospitalID: h.ID,
			BloodGroup: blood.Groups[s.faker.Number(0, len(blood.Groups)-1)],
			Urgency:    urgencies[s.faker.Number(0, len(urgencies)-1)],
			Units:      s.faker.Number(1, 4),
		})
		if err != nil {
			return fmt.Errorf("seed blood request: %w", err)
		}
	}

	for i, city := range seedCities {
		if err := s.seedCamp(ctx, banks[i*2], city); err != nil {
			return fmt.Errorf("seed camp in %s: %w", city.name, err)
		}
	}

	s.log.Info().
		Int("hospitals", len(hospitals)).
		Int("blood_banks", len(banks)).
		Msg("sandbox data seeded")
	return nil
}

func (s *Seeder) seedOrg(ctx context.Context, typ organization.Type, city seedCity) (*organization.Organization, error) {
	lat := city.lat + s.faker.Float64Range(-0.15, 0.15)
	lng := city.lng + s.faker.Float64Range(-0.15, 0.15)
	phone := s.faker.Phone()
	address := s.faker.Street()
	license := s.faker.LetterN(2) + fmt.Sprintf("-%d", s.faker.Number(10000, 99999))

	name := s.faker.Company()
	switch typ {
	case organization.TypeHospital:
		name += " Hospital"
	case organization.TypeBloodBank:
		name += " Blood Bank"
	case organization.TypeNGO:
		name += " Foundation"
	}

	o, err := s.orgs.Register(ctx, &organization.Organization{
		Name:          name,
		Type:          typ,
		Email:         s.faker.Email(),
		Phone:         &phone,
		Address:       &address,
		City:          city.name,
		Latitude:      &lat,
		Longitude:     &lng,
		LicenseNumber: &license,
	})
	if err != nil {
		return nil, err
	}
	return s.orgs.Approve(ctx, o.ID)
}

func (s *Seeder) seedDonor(ctx context.Context, city seedCity) (*donor.Donor, error) {
	lat := city.lat + s.faker.Float64Range(-0.2, 0.2)
	lng := city.lng + s.faker.Float64Range(-0.2, 0.2)
	phone := s.faker.Phone()

	d := &donor.Donor{
		Name:       s.faker.Name(),
		Email:      s.faker.Email(),
		Phone:      &phone,
		BloodGroup: blood.Groups[s.faker.Number(0, len(blood.Groups)-1)],
		City:       city.name,
		Latitude:   &lat,
		Longitude:  &lng,
	}
	created, err := s.donors.Register(ctx, d)
	if err != nil {
		return nil, err
	}
	// A third of donors have donated recently and are resting.
	if s.faker.Number(0, 2) == 0 {
		donatedAt := time.Now().Add(-time.Duration(s.faker.Number(1, 80)) * 24 * time.Hour)
		if created, err = s.donors.RecordDonation(ctx, created.ID, donatedAt); err != nil {
			return nil, err
		}
	}
	return created, nil
}

func (s *Seeder) seedCamp(ctx context.Context, organizer *organization.Organization, city seedCity) error {
	start := time.Now().Add(time.Duration(s.faker.Number(3, 14)) * 24 * time.Hour)
	c, err := s.camps.Create(ctx, &camp.Camp{
		OrganizerID: organizer.ID,
		Name:        city.name + " Donation Drive",
		City:        city.name,
		StartsAt:    start,
		EndsAt:      start.Add(8 * time.Hour),
	})
	if err != nil {
		return err
	}
	for i := 0; i < 4; i++ {
		slotStart := start.Add(time.Duration(i*2) * time.Hour)
		if _, err := s.camps.AddSlot(ctx, &camp.Slot{
			CampID:   c.ID,
			StartsAt: slotStart,
			EndsAt:   slotStart.Add(2 * time.Hour),
			Capacity: s.faker.Number(10, 25),
		}); err != nil {
			return err
		}
	}
	return nil
}
