// Package priority computes the composite priority score for pending blood
// requests and defines the ordering of the request queue.
//
// The score is a weighted sum of four sub-scores (urgency, blood-group
// rarity, request age, stock availability) clamped to [0,255]. The weights
// are chosen so that urgency strictly dominates: the gap between adjacent
// urgency levels (60 weighted points) exceeds the combined maximum of all
// other terms (55), so a higher-urgency request always outscores a
// lower-urgency one.
package priority

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/bloodnet/bloodnet/pkg/blood"
)

// ErrInvalidInput marks requests the engine refuses to score: missing blood
// group, non-positive units or an unknown urgency value.
var ErrInvalidInput = errors.New("invalid priority input")

// Weights for the four sub-scores. Fixed configuration, not runtime-tunable.
const (
	urgencyWeight      = 20.0
	rarityWeight       = 2.5
	timeWeight         = 1.5
	availabilityWeight = 1.5
)

// timeRawCapMinutes saturates the age sub-score at 10 hours so very old
// requests stop accumulating weight.
const timeRawCapMinutes = 600

// neutralAvailabilityRaw is used when no stock snapshot exists for the
// request's blood group. It sits at the midpoint of the 0..10 raw scale so an
// unknown stock level neither inflates nor suppresses the score.
const neutralAvailabilityRaw = 5.0

// Category score bands. Each band's floor is the minimum total reachable at
// the corresponding urgency level given the weights above.
const (
	criticalThreshold = 196
	highThreshold     = 136
	mediumThreshold   = 76
)

// MaxScore is the upper bound of the priority scale.
const MaxScore = 255

// Category is the display band derived from a score. It is always recomputed
// from the score, never stored independently.
type Category string

const (
	CategoryCritical Category = "CRITICAL"
	CategoryHigh     Category = "HIGH"
	CategoryMedium   Category = "MEDIUM"
	CategoryLow      Category = "LOW"
)

var urgencyRaw = map[blood.Urgency]float64{
	blood.UrgencyCritical: 10,
	blood.UrgencyHigh:     7,
	blood.UrgencyMedium:   4,
	blood.UrgencyLow:      1,
}

// rarityRaw ranks groups by inverse population prevalence. AB- is the rarest
// (~1% of donors); O+ and A+ are the most common.
var rarityRaw = map[blood.Group]float64{
	blood.ABNeg: 10,
	blood.BNeg:  9,
	blood.ONeg:  8,
	blood.ANeg:  7,
	blood.ABPos: 6,
	blood.BPos:  4,
	blood.APos:  2,
	blood.OPos:  1,
}

// Input is the slice of a blood request the engine reads.
type Input struct {
	BloodGroup  blood.Group
	Urgency     blood.Urgency
	Units       int
	RequestedAt time.Time
}

// Stock is the unit count on hand for the request's blood group at
// computation time. A nil *Stock means no snapshot is available.
type Stock struct {
	Units       int
	LastUpdated time.Time
}

// Component is one sub-score of the breakdown: the raw value on the 0..10
// scale, the fixed weight, and their product.
type Component struct {
	Raw      float64 `json:"raw"`
	Weight   float64 `json:"weight"`
	Weighted float64 `json:"weighted"`
}

// Breakdown is the full weighted decomposition of a score. The API returns
// it alongside the total so the queue view can show how a score was formed.
type Breakdown struct {
	Urgency      Component `json:"urgency"`
	Rarity       Component `json:"rarity"`
	Time         Component `json:"time"`
	Availability Component `json:"availability"`
}

// Result is the outcome of a priority computation.
type Result struct {
	Score        int       `json:"score"`
	Category     Category  `json:"category"`
	Breakdown    Breakdown `json:"breakdown"`
	CalculatedAt time.Time `json:"calculated_at"`
}

// Compute scores a pending request. It is a pure function of its inputs and
// now; callers re-invoke it at read time rather than trusting a stored score
// for ordering decisions. A missing stock snapshot falls back to a neutral
// availability sub-score instead of failing.
func Compute(in Input, stock *Stock, now time.Time) (Result, error) {
	if !in.BloodGroup.Valid() {
		return Result{}, fmt.Errorf("%w: blood group %q", ErrInvalidInput, in.BloodGroup)
	}
	if !in.Urgency.Valid() {
		return Result{}, fmt.Errorf("%w: urgency %q", ErrInvalidInput, in.Urgency)
	}
	if in.Units <= 0 {
		return Result{}, fmt.Errorf("%w: units must be positive, got %d", ErrInvalidInput, in.Units)
	}

	urgency := component(urgencyRaw[in.Urgency], urgencyWeight)
	rarity := component(rarityRaw[in.BloodGroup], rarityWeight)
	tc := component(timeRaw(in.RequestedAt, now), timeWeight)
	avail := component(availabilityRaw(stock), availabilityWeight)

	total := urgency.Weighted + rarity.Weighted + tc.Weighted + avail.Weighted
	score := int(math.Round(total))
	if score < 0 {
		score = 0
	}
	if score > MaxScore {
		score = MaxScore
	}

	return Result{
		Score:    score,
		Category: Categorize(score),
		Breakdown: Breakdown{
			Urgency:      urgency,
			Rarity:       rarity,
			Time:         tc,
			Availability: avail,
		},
		CalculatedAt: now,
	}, nil
}

// Categorize maps a score to its display band.
func Categorize(score int) Category {
	switch {
	case score >= criticalThreshold:
		return CategoryCritical
	case score >= highThreshold:
		return CategoryHigh
	case score >= mediumThreshold:
		return CategoryMedium
	default:
		return CategoryLow
	}
}

func component(raw, weight float64) Component {
	return Component{Raw: raw, Weight: weight, Weighted: raw * weight}
}

// timeRaw grows linearly with request age, one point per hour, saturating at
// 10 after timeRawCapMinutes.
func timeRaw(requestedAt, now time.Time) float64 {
	minutes := now.Sub(requestedAt).Minutes()
	if minutes < 0 {
		minutes = 0
	}
	if minutes > timeRawCapMinutes {
		minutes = timeRawCapMinutes
	}
	return minutes / 60
}

// availabilityRaw is inversely related to units on hand: empty shelves score
// 10, ten or more units score 0.
func availabilityRaw(stock *Stock) float64 {
	if stock == nil {
		return neutralAvailabilityRaw
	}
	raw := 10 - float64(stock.Units)
	if raw < 0 {
		raw = 0
	}
	if raw > 10 {
		raw = 10
	}
	return raw
}
