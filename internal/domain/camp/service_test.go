package camp

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type regKey struct {
	slot  uuid.UUID
	donor uuid.UUID
}

type mockRepo struct {
	camps map[uuid.UUID]*Camp
	slots map[uuid.UUID]*Slot
	regs  map[regKey]*Registration
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		camps: make(map[uuid.UUID]*Camp),
		slots: make(map[uuid.UUID]*Slot),
		regs:  make(map[regKey]*Registration),
	}
}

func (m *mockRepo) Create(_ context.Context, c *Camp) error {
	c.ID = uuid.New()
	cp := *c
	m.camps[c.ID] = &cp
	return nil
}
func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Camp, error) {
	c, ok := m.camps[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *c
	return &cp, nil
}
func (m *mockRepo) List(_ context.Context, filter Filter, limit, offset int) ([]*Camp, int, error) {
	var r []*Camp
	for _, c := range m.camps {
		r = append(r, c)
	}
	return r, len(r), nil
}
func (m *mockRepo) UpdateStatus(_ context.Context, id uuid.UUID, expected, next Status) (bool, error) {
	c, ok := m.camps[id]
	if !ok || c.Status != expected {
		return false, nil
	}
	c.Status = next
	return true, nil
}
func (m *mockRepo) AddSlot(_ context.Context, s *Slot) error {
	s.ID = uuid.New()
	cp := *s
	m.slots[s.ID] = &cp
	return nil
}
func (m *mockRepo) GetSlot(_ context.Context, slotID uuid.UUID) (*Slot, error) {
	s, ok := m.slots[slotID]
	if !ok {
		return nil, ErrSlotNotFound
	}
	cp := *s
	return &cp, nil
}
func (m *mockRepo) ListSlots(_ context.Context, campID uuid.UUID) ([]*Slot, error) {
	var r []*Slot
	for _, s := range m.slots {
		if s.CampID == campID {
			r = append(r, s)
		}
	}
	return r, nil
}
func (m *mockRepo) Register(_ context.Context, reg *Registration) error {
	s, ok := m.slots[reg.SlotID]
	if !ok {
		return ErrSlotNotFound
	}
	key := regKey{reg.SlotID, reg.DonorID}
	if _, dup := m.regs[key]; dup {
		return ErrAlreadyRegistered
	}
	if s.Booked >= s.Capacity {
		return ErrSlotFull
	}
	s.Booked++
	reg.ID = uuid.New()
	reg.CreatedAt = time.Now()
	cp := *reg
	m.regs[key] = &cp
	return nil
}
func (m *mockRepo) ListRegistrations(_ context.Context, slotID uuid.UUID) ([]*Registration, error) {
	var r []*Registration
	for _, reg := range m.regs {
		if reg.SlotID == slotID {
			r = append(r, reg)
		}
	}
	return r, nil
}

func newTestService() (*Service, *mockRepo) {
	repo := newMockRepo()
	return NewService(repo, zerolog.Nop()), repo
}

func validCamp() *Camp {
	start := time.Now().Add(24 * time.Hour)
	return &Camp{
		OrganizerID: uuid.New(),
		Name:        "Community Drive",
		City:        "Chennai",
		StartsAt:    start,
		EndsAt:      start.Add(8 * time.Hour),
	}
}

func TestCreateCamp_DefaultsScheduled(t *testing.T) {
	svc, _ := newTestService()
	c, err := svc.Create(context.Background(), validCamp())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Status != StatusScheduled {
		t.Errorf("expected scheduled, got %s", c.Status)
	}
}

func TestCreateCamp_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Camp)
	}{
		{"missing organizer", func(c *Camp) { c.OrganizerID = uuid.Nil }},
		{"missing name", func(c *Camp) { c.Name = "" }},
		{"missing city", func(c *Camp) { c.City = "" }},
		{"end before start", func(c *Camp) { c.EndsAt = c.StartsAt.Add(-time.Hour) }},
		{"already over", func(c *Camp) {
			c.StartsAt = time.Now().Add(-48 * time.Hour)
			c.EndsAt = time.Now().Add(-40 * time.Hour)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestService()
			in := validCamp()
			tt.mutate(in)
			if _, err := svc.Create(context.Background(), in); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestCampLifecycle(t *testing.T) {
	svc, _ := newTestService()
	c, _ := svc.Create(context.Background(), validCamp())

	started, err := svc.Start(context.Background(), c.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if started.Status != StatusOngoing {
		t.Errorf("expected ongoing, got %s", started.Status)
	}

	finished, err := svc.Finish(context.Background(), c.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if finished.Status != StatusCompleted {
		t.Errorf("expected completed, got %s", finished.Status)
	}

	if _, err := svc.Cancel(context.Background(), c.ID); !errors.Is(err, ErrConflict) {
		t.Fatalf("cancelling a completed camp must conflict, got %v", err)
	}
}

func TestAddSlot_WithinWindow(t *testing.T) {
	svc, _ := newTestService()
	c, _ := svc.Create(context.Background(), validCamp())

	slot := &Slot{
		CampID:   c.ID,
		StartsAt: c.StartsAt.Add(time.Hour),
		EndsAt:   c.StartsAt.Add(2 * time.Hour),
		Capacity: 10,
	}
	if _, err := svc.AddSlot(context.Background(), slot); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	outside := &Slot{
		CampID:   c.ID,
		StartsAt: c.EndsAt,
		EndsAt:   c.EndsAt.Add(time.Hour),
		Capacity: 10,
	}
	if _, err := svc.AddSlot(context.Background(), outside); err == nil {
		t.Fatal("slot outside the camp window must be rejected")
	}

	zeroCap := &Slot{
		CampID:   c.ID,
		StartsAt: c.StartsAt.Add(time.Hour),
		EndsAt:   c.StartsAt.Add(2 * time.Hour),
	}
	if _, err := svc.AddSlot(context.Background(), zeroCap); err == nil {
		t.Fatal("zero capacity must be rejected")
	}
}

func TestRegister_CapacityEnforced(t *testing.T) {
	svc, _ := newTestService()
	c, _ := svc.Create(context.Background(), validCamp())
	slot, _ := svc.AddSlot(context.Background(), &Slot{
		CampID:   c.ID,
		StartsAt: c.StartsAt.Add(time.Hour),
		EndsAt:   c.StartsAt.Add(2 * time.Hour),
		Capacity: 2,
	})

	if _, err := svc.Register(context.Background(), slot.ID, uuid.New()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.Register(context.Background(), slot.ID, uuid.New()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.Register(context.Background(), slot.ID, uuid.New()); !errors.Is(err, ErrSlotFull) {
		t.Fatalf("expected ErrSlotFull, got %v", err)
	}
}

func TestRegister_DuplicateDonor(t *testing.T) {
	svc, _ := newTestService()
	c, _ := svc.Create(context.Background(), validCamp())
	slot, _ := svc.AddSlot(context.Background(), &Slot{
		CampID:   c.ID,
		StartsAt: c.StartsAt.Add(time.Hour),
		EndsAt:   c.StartsAt.Add(2 * time.Hour),
		Capacity: 5,
	})

	donorID := uuid.New()
	if _, err := svc.Register(context.Background(), slot.ID, donorID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.Register(context.Background(), slot.ID, donorID); !errors.Is(err, ErrAlreadyRegistered) {
		t.Fatalf("expected ErrAlreadyRegistered, got %v", err)
	}
}

func TestRegister_ClosedCamp(t *testing.T) {
	svc, _ := newTestService()
	c, _ := svc.Create(context.Background(), validCamp())
	slot, _ := svc.AddSlot(context.Background(), &Slot{
		CampID:   c.ID,
		StartsAt: c.StartsAt.Add(time.Hour),
		EndsAt:   c.StartsAt.Add(2 * time.Hour),
		Capacity: 5,
	})
	svc.Cancel(context.Background(), c.ID)

	if _, err := svc.Register(context.Background(), slot.ID, uuid.New()); !errors.Is(err, ErrCampClosed) {
		t.Fatalf("expected ErrCampClosed, got %v", err)
	}
}
