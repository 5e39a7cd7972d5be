package request

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/bloodnet/bloodnet/internal/platform/geo"
	"github.com/bloodnet/bloodnet/internal/platform/priority"
	"github.com/bloodnet/bloodnet/internal/platform/proximity"
	"github.com/bloodnet/bloodnet/internal/platform/redisutil"
	"github.com/bloodnet/bloodnet/pkg/blood"
)

type mockRepo struct {
	store map[uuid.UUID]*BloodRequest
}

func newMockRepo() *mockRepo { return &mockRepo{store: make(map[uuid.UUID]*BloodRequest)} }

func (m *mockRepo) Create(_ context.Context, br *BloodRequest) error {
	br.ID = uuid.New()
	now := time.Now()
	br.RequestedAt = now
	br.CreatedAt = now
	br.UpdatedAt = now
	cp := *br
	m.store[br.ID] = &cp
	return nil
}
func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*BloodRequest, error) {
	br, ok := m.store[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *br
	return &cp, nil
}
func (m *mockRepo) List(_ context.Context, filter Filter, limit, offset int) ([]*BloodRequest, int, error) {
	var r []*BloodRequest
	for _, br := range m.store {
		if filter.Status != "" && br.Status != filter.Status {
			continue
		}
		r = append(r, br)
	}
	return r, len(r), nil
}
func (m *mockRepo) ListPending(_ context.Context) ([]*BloodRequest, error) {
	var r []*BloodRequest
	for _, br := range m.store {
		if br.Status == StatusPending {
			cp := *br
			r = append(r, &cp)
		}
	}
	return r, nil
}
func (m *mockRepo) UpdateStatus(_ context.Context, id uuid.UUID, expected, next Status, acceptedBy *uuid.UUID) (bool, error) {
	br, ok := m.store[id]
	if !ok || br.Status != expected {
		return false, nil
	}
	br.Status = next
	if acceptedBy != nil {
		br.AcceptedBy = acceptedBy
	}
	return true, nil
}
func (m *mockRepo) UpdatePriority(_ context.Context, id uuid.UUID, score int, category priority.Category, calculatedAt time.Time) error {
	br, ok := m.store[id]
	if !ok {
		return ErrNotFound
	}
	br.PriorityScore = score
	br.PriorityCategory = category
	return nil
}
func (m *mockRepo) UpdateSearchCursor(_ context.Context, id uuid.UUID, stage proximity.Stage, exhausted bool) error {
	br, ok := m.store[id]
	if !ok {
		return ErrNotFound
	}
	src := stage.Source
	br.SearchSource = &src
	br.SearchIndex = stage.Index
	br.SearchExhausted = exhausted
	return nil
}

type mockStockReader struct {
	stocks map[blood.Group]*priority.Stock
}

func (m *mockStockReader) GroupStock(_ context.Context, group blood.Group) (*priority.Stock, error) {
	return m.stocks[group], nil
}

type mockOriginResolver struct {
	origin *geo.Point
	city   string
}

func (m *mockOriginResolver) ResolveOrigin(_ context.Context, _ uuid.UUID) (*geo.Point, string, error) {
	return m.origin, m.city, nil
}

type mockDirectory struct {
	banks      []proximity.BankCandidate
	donors     []proximity.DonorCandidate
	radiiSeen  []float64
	citiesSeen []string
}

func (m *mockDirectory) ListBloodBanksNear(_ context.Context, origin geo.Point, radiusKm float64, group blood.Group) ([]proximity.BankCandidate, error) {
	m.radiiSeen = append(m.radiiSeen, radiusKm)
	var out []proximity.BankCandidate
	for _, b := range m.banks {
		if b.Coordinates != nil && geo.DistanceKm(origin, *b.Coordinates) <= radiusKm {
			out = append(out, b)
		}
	}
	return out, nil
}
func (m *mockDirectory) ListDonorsNear(_ context.Context, origin geo.Point, radiusKm float64, group blood.Group) ([]proximity.DonorCandidate, error) {
	m.radiiSeen = append(m.radiiSeen, radiusKm)
	var out []proximity.DonorCandidate
	for _, d := range m.donors {
		if d.Coordinates != nil && geo.DistanceKm(origin, *d.Coordinates) <= radiusKm {
			out = append(out, d)
		}
	}
	return out, nil
}
func (m *mockDirectory) ListBloodBanksByCity(_ context.Context, city string, group blood.Group) ([]proximity.BankCandidate, error) {
	m.citiesSeen = append(m.citiesSeen, city)
	return m.banks, nil
}
func (m *mockDirectory) ListDonorsByCity(_ context.Context, city string, group blood.Group) ([]proximity.DonorCandidate, error) {
	m.citiesSeen = append(m.citiesSeen, city)
	return m.donors, nil
}

type env struct {
	svc    *Service
	repo   *mockRepo
	stocks *mockStockReader
	dir    *mockDirectory
}

func newTestEnv() *env {
	repo := newMockRepo()
	stocks := &mockStockReader{stocks: make(map[blood.Group]*priority.Stock)}
	origin := geo.Point{Lat: 19.076, Lng: 72.8777}
	origins := &mockOriginResolver{origin: &origin, city: "Mumbai"}
	dir := &mockDirectory{}
	svc := NewService(repo, stocks, origins, proximity.NewSearcher(dir), redisutil.NoopLocker{}, zerolog.Nop())
	return &env{svc: svc, repo: repo, stocks: stocks, dir: dir}
}

func pendingRequest() *BloodRequest {
	return &BloodRequest{
		HospitalID: uuid.New(),
		BloodGroup: blood.ONeg,
		Urgency:    blood.UrgencyHigh,
		Units:      2,
	}
}

func TestCreate_ScoresAndStoresPending(t *testing.T) {
	e := newTestEnv()
	br, err := e.svc.Create(context.Background(), pendingRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if br.Status != StatusPending {
		t.Errorf("expected PENDING, got %s", br.Status)
	}
	if br.PriorityScore <= 0 {
		t.Errorf("expected positive priority score, got %d", br.PriorityScore)
	}
	if br.PriorityCategory != priority.CategoryHigh {
		t.Errorf("fresh HIGH request should band HIGH, got %s", br.PriorityCategory)
	}
}

func TestCreate_RejectsInvalid(t *testing.T) {
	e := newTestEnv()
	in := pendingRequest()
	in.Units = 0
	if _, err := e.svc.Create(context.Background(), in); !errors.Is(err, priority.ErrInvalidInput) {
		t.Fatalf("expected invalid input error, got %v", err)
	}

	in = pendingRequest()
	in.Urgency = "EXTREME"
	if _, err := e.svc.Create(context.Background(), in); !errors.Is(err, priority.ErrInvalidInput) {
		t.Fatalf("expected invalid input error, got %v", err)
	}

	in = pendingRequest()
	in.HospitalID = uuid.Nil
	if _, err := e.svc.Create(context.Background(), in); err == nil {
		t.Fatal("expected error for missing hospital")
	}
}

func TestLifecycle_AcceptComplete(t *testing.T) {
	e := newTestEnv()
	br, _ := e.svc.Create(context.Background(), pendingRequest())
	bankID := uuid.New()

	accepted, err := e.svc.Accept(context.Background(), br.ID, bankID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if accepted.Status != StatusAccepted {
		t.Errorf("expected ACCEPTED, got %s", accepted.Status)
	}
	if accepted.AcceptedBy == nil || *accepted.AcceptedBy != bankID {
		t.Error("expected accepting bank recorded")
	}

	done, err := e.svc.Complete(context.Background(), br.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if done.Status != StatusCompleted {
		t.Errorf("expected COMPLETED, got %s", done.Status)
	}
}

func TestLifecycle_DoubleAcceptConflicts(t *testing.T) {
	e := newTestEnv()
	br, _ := e.svc.Create(context.Background(), pendingRequest())

	if _, err := e.svc.Accept(context.Background(), br.ID, uuid.New()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := e.svc.Accept(context.Background(), br.ID, uuid.New()); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected conflict on second accept, got %v", err)
	}
}

func TestLifecycle_RejectThenAcceptConflicts(t *testing.T) {
	e := newTestEnv()
	br, _ := e.svc.Create(context.Background(), pendingRequest())

	if _, err := e.svc.Reject(context.Background(), br.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := e.svc.Accept(context.Background(), br.ID, uuid.New()); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected conflict accepting rejected request, got %v", err)
	}
}

func TestLifecycle_CancelFromBothActiveStates(t *testing.T) {
	e := newTestEnv()

	br, _ := e.svc.Create(context.Background(), pendingRequest())
	cancelled, err := e.svc.Cancel(context.Background(), br.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cancelled.Status != StatusCancelled {
		t.Errorf("expected CANCELLED, got %s", cancelled.Status)
	}

	br2, _ := e.svc.Create(context.Background(), pendingRequest())
	e.svc.Accept(context.Background(), br2.ID, uuid.New())
	cancelled2, err := e.svc.Cancel(context.Background(), br2.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cancelled2.Status != StatusCancelled {
		t.Errorf("expected CANCELLED, got %s", cancelled2.Status)
	}

	if _, err := e.svc.Cancel(context.Background(), br2.ID); !errors.Is(err, ErrConflict) {
		t.Fatalf("cancelling a terminal request must conflict, got %v", err)
	}
}

func TestCanTransition(t *testing.T) {
	allowed := []struct{ from, to Status }{
		{StatusPending, StatusAccepted},
		{StatusPending, StatusRejected},
		{StatusPending, StatusCancelled},
		{StatusAccepted, StatusCompleted},
		{StatusAccepted, StatusCancelled},
	}
	for _, tr := range allowed {
		if !CanTransition(tr.from, tr.to) {
			t.Errorf("%s -> %s should be allowed", tr.from, tr.to)
		}
	}
	denied := []struct{ from, to Status }{
		{StatusPending, StatusCompleted},
		{StatusAccepted, StatusRejected},
		{StatusRejected, StatusAccepted},
		{StatusCompleted, StatusCancelled},
		{StatusCancelled, StatusPending},
	}
	for _, tr := range denied {
		if CanTransition(tr.from, tr.to) {
			t.Errorf("%s -> %s must be denied", tr.from, tr.to)
		}
	}
}

func TestQueue_OrdersByRecomputedScore(t *testing.T) {
	e := newTestEnv()

	low := pendingRequest()
	low.Urgency = blood.UrgencyLow
	lowCreated, _ := e.svc.Create(context.Background(), low)

	critical := pendingRequest()
	critical.Urgency = blood.UrgencyCritical
	critCreated, _ := e.svc.Create(context.Background(), critical)

	medium := pendingRequest()
	medium.Urgency = blood.UrgencyMedium
	medCreated, _ := e.svc.Create(context.Background(), medium)

	entries, err := e.svc.Queue(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if entries[0].Request.ID != critCreated.ID {
		t.Error("critical request must lead the queue")
	}
	if entries[1].Request.ID != medCreated.ID || entries[2].Request.ID != lowCreated.ID {
		t.Error("expected medium then low")
	}
	for i, e := range entries {
		if e.Position != i+1 {
			t.Errorf("entry %d has position %d", i, e.Position)
		}
		sum := e.Priority.Breakdown.Urgency.Weighted + e.Priority.Breakdown.Rarity.Weighted +
			e.Priority.Breakdown.Time.Weighted + e.Priority.Breakdown.Availability.Weighted
		if int(sum+0.5) != e.Priority.Score {
			t.Errorf("breakdown does not sum to score for entry %d", i)
		}
	}
}

func TestQueue_ExcludesNonPending(t *testing.T) {
	e := newTestEnv()
	br, _ := e.svc.Create(context.Background(), pendingRequest())
	e.svc.Accept(context.Background(), br.ID, uuid.New())

	entries, err := e.svc.Queue(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("accepted requests must not appear in the queue, got %d", len(entries))
	}
}

func TestSearch_EscalatesThroughStages(t *testing.T) {
	e := newTestEnv()
	br, _ := e.svc.Create(context.Background(), pendingRequest())

	// A bank just outside 5km but inside 10km, holding enough units.
	bankLoc := geo.Point{Lat: 19.076, Lng: 72.95}
	e.dir.banks = []proximity.BankCandidate{
		{ID: uuid.New(), Name: "Central Bank", Coordinates: &bankLoc, Units: 5},
	}

	first, err := e.svc.Search(context.Background(), br.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.RadiusKm != 5 || len(first.Matches) != 0 {
		t.Fatalf("first stage should be an empty 5km pass, got r=%v matches=%d", first.RadiusKm, len(first.Matches))
	}

	second, err := e.svc.Search(context.Background(), br.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second.RadiusKm != 10 {
		t.Fatalf("second call must widen to 10km, got %v", second.RadiusKm)
	}
	if len(second.Matches) != 1 {
		t.Fatalf("expected the bank at 10km, got %d matches", len(second.Matches))
	}

	// A hit pins the cursor: the next call re-runs the same stage.
	third, err := e.svc.Search(context.Background(), br.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if third.RadiusKm != 10 {
		t.Errorf("cursor must stay on the matching stage, got %v", third.RadiusKm)
	}
}

func TestSearch_ExhaustsAfterDonorFallback(t *testing.T) {
	e := newTestEnv()
	br, _ := e.svc.Create(context.Background(), pendingRequest())

	// Nothing anywhere: four bank stages, one donor stage, then exhausted.
	var last proximity.Result
	for i := 0; i < 5; i++ {
		res, err := e.svc.Search(context.Background(), br.ID)
		if err != nil {
			t.Fatalf("stage %d: unexpected error: %v", i, err)
		}
		last = res
	}
	if last.Source != proximity.SourceDonor {
		t.Fatalf("fifth stage must be the donor fallback, got %s", last.Source)
	}
	if last.State != proximity.StateExhausted {
		t.Fatalf("expected exhausted after donor stage, got %s", last.State)
	}

	again, err := e.svc.Search(context.Background(), br.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if again.State != proximity.StateExhausted {
		t.Errorf("exhausted is terminal, got %s", again.State)
	}
	wantRadii := []float64{5, 10, 20, 30, 50}
	if len(e.dir.radiiSeen) != len(wantRadii) {
		t.Fatalf("terminal calls must not query the directory: %v", e.dir.radiiSeen)
	}
	for i, r := range wantRadii {
		if e.dir.radiiSeen[i] != r {
			t.Errorf("stage %d searched %vkm, want %vkm", i, e.dir.radiiSeen[i], r)
		}
	}
}

func TestSearch_RejectsNonPending(t *testing.T) {
	e := newTestEnv()
	br, _ := e.svc.Create(context.Background(), pendingRequest())
	e.svc.Accept(context.Background(), br.ID, uuid.New())

	if _, err := e.svc.Search(context.Background(), br.ID); !errors.Is(err, ErrNotSearchable) {
		t.Fatalf("expected ErrNotSearchable, got %v", err)
	}
}

func TestGet_RecomputesPriorityOnRead(t *testing.T) {
	e := newTestEnv()
	br, _ := e.svc.Create(context.Background(), pendingRequest())

	// Drain stock for the group so availability maxes out on re-read.
	e.stocks.stocks[blood.ONeg] = &priority.Stock{Units: 0}

	_, res, err := e.svc.Get(context.Background(), br.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Score <= br.PriorityScore {
		t.Errorf("zero stock should raise the score: %d -> %d", br.PriorityScore, res.Score)
	}
	if res.Breakdown.Availability.Raw != 10 {
		t.Errorf("expected maxed availability raw, got %v", res.Breakdown.Availability.Raw)
	}
}
