package organization

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type mockRepo struct {
	store map[uuid.UUID]*Organization
}

func newMockRepo() *mockRepo { return &mockRepo{store: make(map[uuid.UUID]*Organization)} }

func (m *mockRepo) Create(_ context.Context, o *Organization) error {
	o.ID = uuid.New()
	cp := *o
	m.store[o.ID] = &cp
	return nil
}
func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Organization, error) {
	o, ok := m.store[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *o
	return &cp, nil
}
func (m *mockRepo) Update(_ context.Context, o *Organization) error {
	if _, ok := m.store[o.ID]; !ok {
		return ErrNotFound
	}
	cp := *o
	m.store[o.ID] = &cp
	return nil
}
func (m *mockRepo) UpdateStatus(_ context.Context, id uuid.UUID, expected, next Status) (bool, error) {
	o, ok := m.store[id]
	if !ok || o.Status != expected {
		return false, nil
	}
	o.Status = next
	return true, nil
}
func (m *mockRepo) List(_ context.Context, filter Filter, limit, offset int) ([]*Organization, int, error) {
	var r []*Organization
	for _, o := range m.store {
		if filter.Type != "" && o.Type != filter.Type {
			continue
		}
		if filter.Status != "" && o.Status != filter.Status {
			continue
		}
		if filter.City != "" && o.City != filter.City {
			continue
		}
		r = append(r, o)
	}
	return r, len(r), nil
}

func newTestService() (*Service, *mockRepo) {
	repo := newMockRepo()
	return NewService(repo, zerolog.Nop()), repo
}

func validOrg() *Organization {
	return &Organization{
		Name:  "City Hospital",
		Type:  TypeHospital,
		Email: "admin@cityhospital.example",
		City:  "Mumbai",
	}
}

func TestRegister_DefaultsToPending(t *testing.T) {
	svc, _ := newTestService()
	in := validOrg()
	in.Status = StatusApproved
	o, err := svc.Register(context.Background(), in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if o.Status != StatusPending {
		t.Errorf("expected pending, got %s", o.Status)
	}
}

func TestRegister_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Organization)
	}{
		{"missing name", func(o *Organization) { o.Name = "" }},
		{"invalid type", func(o *Organization) { o.Type = "clinic" }},
		{"missing email", func(o *Organization) { o.Email = "" }},
		{"missing city", func(o *Organization) { o.City = "" }},
		{"lat without lng", func(o *Organization) { lat := 19.0; o.Latitude = &lat }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestService()
			in := validOrg()
			tt.mutate(in)
			if _, err := svc.Register(context.Background(), in); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestApprove_PendingOnly(t *testing.T) {
	svc, _ := newTestService()
	o, _ := svc.Register(context.Background(), validOrg())

	approved, err := svc.Approve(context.Background(), o.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if approved.Status != StatusApproved {
		t.Errorf("expected approved, got %s", approved.Status)
	}

	if _, err := svc.Approve(context.Background(), o.ID); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected conflict on double approve, got %v", err)
	}
}

func TestReject_Pending(t *testing.T) {
	svc, _ := newTestService()
	o, _ := svc.Register(context.Background(), validOrg())
	rejected, err := svc.Reject(context.Background(), o.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rejected.Status != StatusRejected {
		t.Errorf("expected rejected, got %s", rejected.Status)
	}
}

func TestApprove_NotFound(t *testing.T) {
	svc, _ := newTestService()
	if _, err := svc.Approve(context.Background(), uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestUpdateProfile_PartialUpdate(t *testing.T) {
	svc, _ := newTestService()
	o, _ := svc.Register(context.Background(), validOrg())

	phone := "+91-9000000000"
	updated, err := svc.UpdateProfile(context.Background(), o.ID, &Organization{Phone: &phone, City: "Pune"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.City != "Pune" {
		t.Errorf("expected city updated, got %s", updated.City)
	}
	if updated.Phone == nil || *updated.Phone != phone {
		t.Error("expected phone updated")
	}
	if updated.Name != "City Hospital" {
		t.Errorf("name must be preserved, got %s", updated.Name)
	}
	if updated.Status != StatusPending {
		t.Errorf("profile update must not touch status, got %s", updated.Status)
	}
}
