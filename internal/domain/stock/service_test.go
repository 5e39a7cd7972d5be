package stock

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/bloodnet/bloodnet/internal/domain/organization"
	"github.com/bloodnet/bloodnet/pkg/blood"
)

type snapKey struct {
	org   uuid.UUID
	group blood.Group
}

type mockRepo struct {
	store map[snapKey]*Snapshot
}

func newMockRepo() *mockRepo { return &mockRepo{store: make(map[snapKey]*Snapshot)} }

func (m *mockRepo) Upsert(_ context.Context, s *Snapshot) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	key := snapKey{s.OrganizationID, s.BloodGroup}
	if existing, ok := m.store[key]; ok {
		s.ID = existing.ID
	}
	cp := *s
	m.store[key] = &cp
	return nil
}
func (m *mockRepo) Get(_ context.Context, orgID uuid.UUID, group blood.Group) (*Snapshot, error) {
	s, ok := m.store[snapKey{orgID, group}]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *s
	return &cp, nil
}
func (m *mockRepo) ListByOrg(_ context.Context, orgID uuid.UUID) ([]*Snapshot, error) {
	var r []*Snapshot
	for key, s := range m.store {
		if key.org == orgID {
			r = append(r, s)
		}
	}
	return r, nil
}
func (m *mockRepo) ListBankCandidates(_ context.Context, group blood.Group) ([]*BankCandidate, error) {
	return nil, nil
}
func (m *mockRepo) ListBankCandidatesByCity(_ context.Context, group blood.Group, city string) ([]*BankCandidate, error) {
	return nil, nil
}
func (m *mockRepo) GroupTotal(_ context.Context, group blood.Group) (int, bool, error) {
	total, found := 0, false
	for key, s := range m.store {
		if key.group == group {
			total += s.Units
			found = true
		}
	}
	return total, found, nil
}

type mockOrgReader struct {
	orgs map[uuid.UUID]*organization.Organization
}

func (m *mockOrgReader) GetByID(_ context.Context, id uuid.UUID) (*organization.Organization, error) {
	o, ok := m.orgs[id]
	if !ok {
		return nil, organization.ErrNotFound
	}
	return o, nil
}

func newTestService() (*Service, uuid.UUID, *mockOrgReader) {
	bankID := uuid.New()
	orgs := &mockOrgReader{orgs: map[uuid.UUID]*organization.Organization{
		bankID: {ID: bankID, Type: organization.TypeBloodBank, Status: organization.StatusApproved},
	}}
	return NewService(newMockRepo(), orgs, zerolog.Nop()), bankID, orgs
}

func TestReport_UpsertsSnapshot(t *testing.T) {
	svc, bankID, _ := newTestService()

	snap, err := svc.Report(context.Background(), bankID, blood.OPos, 12)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.Units != 12 {
		t.Errorf("expected 12 units, got %d", snap.Units)
	}

	again, err := svc.Report(context.Background(), bankID, blood.OPos, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if again.ID != snap.ID {
		t.Error("re-reporting the same group must update the existing row")
	}
	if again.Units != 3 {
		t.Errorf("expected absolute count 3, got %d", again.Units)
	}
}

func TestReport_RejectsNegativeUnits(t *testing.T) {
	svc, bankID, _ := newTestService()
	if _, err := svc.Report(context.Background(), bankID, blood.APos, -1); err == nil {
		t.Fatal("expected error for negative units")
	}
}

func TestReport_RejectsInvalidGroup(t *testing.T) {
	svc, bankID, _ := newTestService()
	if _, err := svc.Report(context.Background(), bankID, blood.Group("C+"), 5); err == nil {
		t.Fatal("expected error for invalid group")
	}
}

func TestReport_RejectsNonBank(t *testing.T) {
	svc, _, orgs := newTestService()
	hospitalID := uuid.New()
	orgs.orgs[hospitalID] = &organization.Organization{
		ID: hospitalID, Type: organization.TypeHospital, Status: organization.StatusApproved,
	}
	if _, err := svc.Report(context.Background(), hospitalID, blood.OPos, 5); !errors.Is(err, ErrNotBloodBank) {
		t.Fatalf("expected ErrNotBloodBank, got %v", err)
	}
}

func TestReport_RejectsPendingBank(t *testing.T) {
	svc, _, orgs := newTestService()
	pendingID := uuid.New()
	orgs.orgs[pendingID] = &organization.Organization{
		ID: pendingID, Type: organization.TypeBloodBank, Status: organization.StatusPending,
	}
	if _, err := svc.Report(context.Background(), pendingID, blood.OPos, 5); !errors.Is(err, ErrNotBloodBank) {
		t.Fatalf("expected ErrNotBloodBank, got %v", err)
	}
}

func TestGet_NotFound(t *testing.T) {
	svc, bankID, _ := newTestService()
	if _, err := svc.Get(context.Background(), bankID, blood.ABNeg); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
