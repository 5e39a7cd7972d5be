package main

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/bloodnet/bloodnet/internal/domain/donor"
	"github.com/bloodnet/bloodnet/internal/domain/stock"
	"github.com/bloodnet/bloodnet/pkg/blood"
)

func TestBankCandidates_Mapping(t *testing.T) {
	phone := "+91-9812345678"
	lat, lng := 19.076, 72.8777
	id := uuid.New()

	out := bankCandidates([]*stock.BankCandidate{
		{OrganizationID: id, Name: "Metro Blood Bank", City: "Mumbai", Phone: &phone,
			Latitude: &lat, Longitude: &lng, BloodGroup: blood.OPos, Units: 7},
		{OrganizationID: uuid.New(), Name: "No Coords Bank", City: "Mumbai", Units: 3},
	})

	if len(out) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(out))
	}
	if out[0].ID != id || out[0].Contact != phone || out[0].Units != 7 {
		t.Errorf("candidate fields not mapped: %+v", out[0])
	}
	if out[0].Coordinates == nil || out[0].Coordinates.Lat != lat {
		t.Error("expected coordinates mapped")
	}
	if out[1].Coordinates != nil {
		t.Error("missing coordinates must map to nil, not zero point")
	}
}

func TestDonorCandidates_Mapping(t *testing.T) {
	zero := 0.0
	d := &donor.Donor{
		ID:         uuid.New(),
		Name:       "Ravi Kumar",
		City:       "Pune",
		BloodGroup: blood.ABNeg,
		Latitude:   &zero,
		Longitude:  &zero,
	}
	out := donorCandidates([]*donor.Donor{d})
	if len(out) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(out))
	}
	if out[0].Group != blood.ABNeg {
		t.Errorf("expected group mapped, got %s", out[0].Group)
	}
	if out[0].Coordinates != nil {
		t.Error("zero/zero coords must be treated as missing")
	}
}

type stubStockRepo struct {
	total int
	found bool
}

func (s *stubStockRepo) Upsert(context.Context, *stock.Snapshot) error { return nil }
func (s *stubStockRepo) Get(context.Context, uuid.UUID, blood.Group) (*stock.Snapshot, error) {
	return nil, stock.ErrNotFound
}
func (s *stubStockRepo) ListByOrg(context.Context, uuid.UUID) ([]*stock.Snapshot, error) {
	return nil, nil
}
func (s *stubStockRepo) ListBankCandidates(context.Context, blood.Group) ([]*stock.BankCandidate, error) {
	return nil, nil
}
func (s *stubStockRepo) ListBankCandidatesByCity(context.Context, blood.Group, string) ([]*stock.BankCandidate, error) {
	return nil, nil
}
func (s *stubStockRepo) GroupTotal(context.Context, blood.Group) (int, bool, error) {
	return s.total, s.found, nil
}

func TestGroupStockReader(t *testing.T) {
	reader := &groupStockReader{stocks: &stubStockRepo{total: 12, found: true}}
	st, err := reader.GroupStock(context.Background(), blood.APos)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if st == nil || st.Units != 12 {
		t.Fatalf("expected 12 units, got %+v", st)
	}

	reader = &groupStockReader{stocks: &stubStockRepo{}}
	st, err = reader.GroupStock(context.Background(), blood.APos)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if st != nil {
		t.Error("no snapshots must yield nil stock, not zero units")
	}
}
