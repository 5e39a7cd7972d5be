// Package proximity implements the staged-radius geographic search for blood
// banks and the donor fallback.
//
// A search session walks a fixed ascending radius sequence over blood-bank
// stock. When the maximum radius yields no qualifying bank, the source
// switches to individual donors at a wider radius; when that also comes up
// empty the session is exhausted. Each Search call performs exactly one
// stage and returns, so the caller drives escalation and can surface every
// transition to the end user.
package proximity

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/bloodnet/bloodnet/internal/platform/geo"
	"github.com/bloodnet/bloodnet/pkg/blood"
)

// ErrInvalidInput marks searches the component refuses to run: unknown blood
// group or non-positive minimum units.
var ErrInvalidInput = errors.New("invalid search input")

// BankRadiiKm is the fixed ascending radius sequence for blood-bank stages.
var BankRadiiKm = []float64{5, 10, 20, 30}

// DonorRadiusKm is the radius used once the search falls back to donors.
const DonorRadiusKm = 50.0

// Source identifies what a stage searched over.
type Source string

const (
	SourceBloodBank Source = "bloodbank"
	SourceDonor     Source = "donor"
)

// State describes where a session stands after a stage.
type State string

const (
	// StateStaging means blood-bank stages remain.
	StateStaging State = "staging"
	// StateDonorFallback means bank stages are exhausted and the donor stage
	// is current or next.
	StateDonorFallback State = "donor_fallback"
	// StateExhausted means no fulfillment path exists nearby. It is a normal
	// terminal outcome, not an error.
	StateExhausted State = "exhausted"
)

// Stage addresses one step of the escalation: the source searched and, for
// blood-bank stages, the index into BankRadiiKm.
type Stage struct {
	Source Source `json:"source"`
	Index  int    `json:"index"`
}

// FirstStage is where every geo session starts.
func FirstStage() Stage {
	return Stage{Source: SourceBloodBank, Index: 0}
}

// RadiusKm returns the stage's search radius.
func (s Stage) RadiusKm() float64 {
	if s.Source == SourceDonor {
		return DonorRadiusKm
	}
	if s.Index >= 0 && s.Index < len(BankRadiiKm) {
		return BankRadiiKm[s.Index]
	}
	return BankRadiiKm[len(BankRadiiKm)-1]
}

// NextStage returns the stage after s. Escalation is one-directional: bank
// radii widen, then the source switches to donors, then nothing. ok is false
// once the sequence is exhausted.
func NextStage(s Stage) (next Stage, ok bool) {
	if s.Source == SourceDonor {
		return Stage{}, false
	}
	if s.Index+1 < len(BankRadiiKm) {
		return Stage{Source: SourceBloodBank, Index: s.Index + 1}, true
	}
	return Stage{Source: SourceDonor}, true
}

// BankCandidate is a blood bank as the directory reports it: identity,
// location and units on hand for the searched group.
type BankCandidate struct {
	ID          uuid.UUID
	Name        string
	City        string
	Contact     string
	Coordinates *geo.Point
	Units       int
}

// DonorCandidate is a registered donor as the directory reports it.
type DonorCandidate struct {
	ID          uuid.UUID
	Name        string
	City        string
	Contact     string
	Coordinates *geo.Point
	Group       blood.Group
}

// Directory is the geospatial lookup the search consumes. Implementations
// may over-fetch (e.g. bounding-box prefilters or full scans); the search
// re-checks distance, coordinates and stock itself, so the ordering and
// gating guarantees never depend on the backing query.
type Directory interface {
	ListBloodBanksNear(ctx context.Context, origin geo.Point, radiusKm float64, group blood.Group) ([]BankCandidate, error)
	ListDonorsNear(ctx context.Context, origin geo.Point, radiusKm float64, group blood.Group) ([]DonorCandidate, error)
	// City-scoped listings back the degraded non-geo mode used when the
	// requesting hospital has no usable coordinates.
	ListBloodBanksByCity(ctx context.Context, city string, group blood.Group) ([]BankCandidate, error)
	ListDonorsByCity(ctx context.Context, city string, group blood.Group) ([]DonorCandidate, error)
}

// Match is one search hit, bank or donor. DistanceKm is nil in the degraded
// non-geo mode.
type Match struct {
	ID         uuid.UUID   `json:"id"`
	Name       string      `json:"name"`
	City       string      `json:"city,omitempty"`
	Contact    string      `json:"contact,omitempty"`
	BloodGroup blood.Group `json:"blood_group,omitempty"`
	Units      int         `json:"units,omitempty"`
	DistanceKm *float64    `json:"distance_km,omitempty"`
}

// Request is the immutable input of a search session. A nil or invalid
// Origin selects the degraded city-scoped mode.
type Request struct {
	Origin   *geo.Point
	City     string
	Group    blood.Group
	MinUnits int
}

// Result is the outcome of one stage.
type Result struct {
	Source   Source  `json:"source"`
	State    State   `json:"state"`
	Stage    Stage   `json:"stage"`
	RadiusKm float64 `json:"radius_km"`
	Geo      bool    `json:"geo"`
	Matches  []Match `json:"matches"`
	// Next is the stage the caller may escalate to; nil once exhausted.
	Next *Stage `json:"next,omitempty"`
}

// Searcher runs individual search stages against a Directory.
type Searcher struct {
	dir Directory
}

func NewSearcher(dir Directory) *Searcher {
	return &Searcher{dir: dir}
}

// Search performs one stage and returns its matches sorted nearest-first.
// It never auto-loops through stages.
func (s *Searcher) Search(ctx context.Context, req Request, stage Stage) (Result, error) {
	if err := validate(req); err != nil {
		return Result{}, err
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	if req.Origin == nil || !req.Origin.Valid() {
		return s.searchByCity(ctx, req, stage)
	}

	switch stage.Source {
	case SourceDonor:
		return s.searchDonors(ctx, req, stage)
	default:
		return s.searchBanks(ctx, req, stage)
	}
}

func validate(req Request) error {
	if !req.Group.Valid() {
		return fmt.Errorf("%w: blood group %q", ErrInvalidInput, req.Group)
	}
	if req.MinUnits <= 0 {
		return fmt.Errorf("%w: min units must be positive, got %d", ErrInvalidInput, req.MinUnits)
	}
	return nil
}

func (s *Searcher) searchBanks(ctx context.Context, req Request, stage Stage) (Result, error) {
	radius := stage.RadiusKm()
	candidates, err := s.dir.ListBloodBanksNear(ctx, *req.Origin, radius, req.Group)
	if err != nil {
		return Result{}, fmt.Errorf("list blood banks near origin: %w", err)
	}

	matches := make([]Match, 0, len(candidates))
	for _, c := range candidates {
		if c.Coordinates == nil || !c.Coordinates.Valid() {
			continue
		}
		if c.Units < req.MinUnits {
			continue
		}
		d := geo.DistanceKm(*req.Origin, *c.Coordinates)
		if d > radius {
			continue
		}
		dist := d
		matches = append(matches, Match{
			ID:         c.ID,
			Name:       c.Name,
			City:       c.City,
			Contact:    c.Contact,
			Units:      c.Units,
			DistanceKm: &dist,
		})
	}
	sortByDistance(matches)

	return s.finish(Result{
		Source:   SourceBloodBank,
		Stage:    stage,
		RadiusKm: radius,
		Geo:      true,
		Matches:  matches,
	}), nil
}

func (s *Searcher) searchDonors(ctx context.Context, req Request, stage Stage) (Result, error) {
	candidates, err := s.dir.ListDonorsNear(ctx, *req.Origin, DonorRadiusKm, req.Group)
	if err != nil {
		return Result{}, fmt.Errorf("list donors near origin: %w", err)
	}

	matches := make([]Match, 0, len(candidates))
	for _, c := range candidates {
		if c.Coordinates == nil || !c.Coordinates.Valid() {
			continue
		}
		if c.Group != req.Group {
			continue
		}
		d := geo.DistanceKm(*req.Origin, *c.Coordinates)
		if d > DonorRadiusKm {
			continue
		}
		dist := d
		matches = append(matches, Match{
			ID:         c.ID,
			Name:       c.Name,
			City:       c.City,
			Contact:    c.Contact,
			BloodGroup: c.Group,
			DistanceKm: &dist,
		})
	}
	sortByDistance(matches)

	return s.finish(Result{
		Source:   SourceDonor,
		Stage:    stage,
		RadiusKm: DonorRadiusKm,
		Geo:      true,
		Matches:  matches,
	}), nil
}

// searchByCity is the degraded mode for origins with no usable coordinates:
// candidates are filtered by city only and carry no distance. The stage
// sequence collapses to one bank stage and one donor stage.
func (s *Searcher) searchByCity(ctx context.Context, req Request, stage Stage) (Result, error) {
	if stage.Source == SourceDonor {
		candidates, err := s.dir.ListDonorsByCity(ctx, req.City, req.Group)
		if err != nil {
			return Result{}, fmt.Errorf("list donors by city: %w", err)
		}
		matches := make([]Match, 0, len(candidates))
		for _, c := range candidates {
			if c.Group != req.Group {
				continue
			}
			matches = append(matches, Match{
				ID:         c.ID,
				Name:       c.Name,
				City:       c.City,
				Contact:    c.Contact,
				BloodGroup: c.Group,
			})
		}
		return Result{
			Source:  SourceDonor,
			State:   stateFor(matches, nil),
			Stage:   stage,
			Matches: matches,
		}, nil
	}

	candidates, err := s.dir.ListBloodBanksByCity(ctx, req.City, req.Group)
	if err != nil {
		return Result{}, fmt.Errorf("list blood banks by city: %w", err)
	}
	matches := make([]Match, 0, len(candidates))
	for _, c := range candidates {
		if c.Units < req.MinUnits {
			continue
		}
		matches = append(matches, Match{
			ID:      c.ID,
			Name:    c.Name,
			City:    c.City,
			Contact: c.Contact,
			Units:   c.Units,
		})
	}
	next := Stage{Source: SourceDonor}
	return Result{
		Source:  SourceBloodBank,
		State:   stateFor(matches, &next),
		Stage:   stage,
		Matches: matches,
		Next:    &next,
	}, nil
}

// finish fills in the Next pointer and derived state for a geo stage.
func (s *Searcher) finish(res Result) Result {
	if next, ok := NextStage(res.Stage); ok {
		res.Next = &next
	}
	res.State = stateFor(res.Matches, res.Next)
	return res
}

func stateFor(matches []Match, next *Stage) State {
	if len(matches) == 0 && next == nil {
		return StateExhausted
	}
	if next != nil && next.Source == SourceDonor {
		return StateDonorFallback
	}
	if next == nil {
		// Donor stage with matches in hand.
		return StateDonorFallback
	}
	return StateStaging
}

func sortByDistance(matches []Match) {
	sort.SliceStable(matches, func(i, j int) bool {
		return *matches[i].DistanceKm < *matches[j].DistanceKm
	})
}
