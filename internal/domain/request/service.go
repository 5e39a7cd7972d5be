package request

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/bloodnet/bloodnet/internal/platform/geo"
	"github.com/bloodnet/bloodnet/internal/platform/priority"
	"github.com/bloodnet/bloodnet/internal/platform/proximity"
	"github.com/bloodnet/bloodnet/internal/platform/redisutil"
	"github.com/bloodnet/bloodnet/pkg/blood"
)

// ErrConflict is returned when a status transition is not allowed from the
// request's current state or raced with another update.
var ErrConflict = errors.New("blood request status conflict")

// ErrNotSearchable is returned when escalation search is attempted on a
// request that is no longer pending.
var ErrNotSearchable = errors.New("search applies to pending requests only")

// StockReader supplies the availability sub-score input: units on hand for a
// blood group across approved banks. A nil result means no snapshot exists.
type StockReader interface {
	GroupStock(ctx context.Context, group blood.Group) (*priority.Stock, error)
}

// OriginResolver maps the requesting hospital to search coordinates. A nil
// point with a city selects the degraded city-scoped search mode.
type OriginResolver interface {
	ResolveOrigin(ctx context.Context, orgID uuid.UUID) (*geo.Point, string, error)
}

type Service struct {
	repo     Repository
	stocks   StockReader
	origins  OriginResolver
	searcher *proximity.Searcher
	locker   redisutil.Locker
	log      zerolog.Logger
	now      func() time.Time
}

func NewService(repo Repository, stocks StockReader, origins OriginResolver,
	searcher *proximity.Searcher, locker redisutil.Locker, log zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		stocks:   stocks,
		origins:  origins,
		searcher: searcher,
		locker:   locker,
		log:      log.With().Str("component", "request").Logger(),
		now:      time.Now,
	}
}

// Create validates and stores a new pending request with its initial
// priority snapshot.
func (s *Service) Create(ctx context.Context, br *BloodRequest) (*BloodRequest, error) {
	if br.HospitalID == uuid.Nil {
		return nil, fmt.Errorf("hospital id is required")
	}
	br.Status = StatusPending
	br.AcceptedBy = nil

	now := s.now()
	stock, err := s.stocks.GroupStock(ctx, br.BloodGroup)
	if err != nil {
		s.log.Warn().Err(err).Str("blood_group", string(br.BloodGroup)).Msg("stock lookup failed, scoring with neutral availability")
		stock = nil
	}
	in := br.PriorityInput()
	in.RequestedAt = now
	res, err := priority.Compute(in, stock, now)
	if err != nil {
		return nil, err
	}
	br.PriorityScore = res.Score
	br.PriorityCategory = res.Category

	if err := s.repo.Create(ctx, br); err != nil {
		return nil, fmt.Errorf("create blood request: %w", err)
	}
	s.log.Info().
		Str("request_id", br.ID.String()).
		Str("blood_group", string(br.BloodGroup)).
		Str("urgency", string(br.Urgency)).
		Int("priority_score", br.PriorityScore).
		Msg("blood request created")
	return s.repo.GetByID(ctx, br.ID)
}

// Get returns the request with a freshly computed priority. Stored scores are
// display snapshots; reads recompute so aging is always reflected.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*BloodRequest, priority.Result, error) {
	br, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, priority.Result{}, err
	}
	res := s.rescore(ctx, br)
	return br, res, nil
}

func (s *Service) List(ctx context.Context, filter Filter, limit, offset int) ([]*BloodRequest, int, error) {
	return s.repo.List(ctx, filter, limit, offset)
}

// Queue returns all pending requests ordered by descending priority, oldest
// first within equal scores. Every entry carries its score breakdown.
func (s *Service) Queue(ctx context.Context) ([]*QueueEntry, error) {
	pending, err := s.repo.ListPending(ctx)
	if err != nil {
		return nil, fmt.Errorf("list pending requests: %w", err)
	}

	now := s.now()
	stockByGroup := make(map[blood.Group]*priority.Stock)
	entries := make([]*QueueEntry, 0, len(pending))
	for _, br := range pending {
		stock, ok := stockByGroup[br.BloodGroup]
		if !ok {
			stock, err = s.stocks.GroupStock(ctx, br.BloodGroup)
			if err != nil {
				stock = nil
			}
			stockByGroup[br.BloodGroup] = stock
		}
		res, err := priority.Compute(br.PriorityInput(), stock, now)
		if err != nil {
			s.log.Warn().Err(err).Str("request_id", br.ID.String()).Msg("skipping unscorable request")
			continue
		}
		br.PriorityScore = res.Score
		br.PriorityCategory = res.Category
		entries = append(entries, &QueueEntry{Request: br, Priority: res})
	}

	priority.Order(entries, func(e *QueueEntry) (int, time.Time) {
		return e.Priority.Score, e.Request.RequestedAt
	})
	for i, e := range entries {
		e.Position = i + 1
		if err := s.repo.UpdatePriority(ctx, e.Request.ID, e.Priority.Score, e.Priority.Category, now); err != nil {
			s.log.Warn().Err(err).Str("request_id", e.Request.ID.String()).Msg("priority snapshot not persisted")
		}
	}
	return entries, nil
}

// Accept transitions a pending request to accepted on behalf of a blood
// bank. The distributed lock serializes racing acceptors; the SQL CAS is the
// actual invariant.
func (s *Service) Accept(ctx context.Context, id, bankOrgID uuid.UUID) (*BloodRequest, error) {
	if bankOrgID == uuid.Nil {
		return nil, fmt.Errorf("accepting organization is required")
	}
	var out *BloodRequest
	err := s.locker.WithRequestLock(ctx, id, func(ctx context.Context) error {
		br, err := s.transition(ctx, id, StatusPending, StatusAccepted, &bankOrgID)
		out = br
		return err
	})
	return out, err
}

func (s *Service) Reject(ctx context.Context, id uuid.UUID) (*BloodRequest, error) {
	return s.transition(ctx, id, StatusPending, StatusRejected, nil)
}

func (s *Service) Complete(ctx context.Context, id uuid.UUID) (*BloodRequest, error) {
	return s.transition(ctx, id, StatusAccepted, StatusCompleted, nil)
}

// Cancel works from either active state; it tries pending first, then
// accepted.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) (*BloodRequest, error) {
	br, err := s.transition(ctx, id, StatusPending, StatusCancelled, nil)
	if errors.Is(err, ErrConflict) {
		return s.transition(ctx, id, StatusAccepted, StatusCancelled, nil)
	}
	return br, err
}

func (s *Service) transition(ctx context.Context, id uuid.UUID, expected, next Status, acceptedBy *uuid.UUID) (*BloodRequest, error) {
	if !CanTransition(expected, next) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrConflict, expected, next)
	}
	ok, err := s.repo.UpdateStatus(ctx, id, expected, next, acceptedBy)
	if err != nil {
		return nil, fmt.Errorf("update request status: %w", err)
	}
	if !ok {
		br, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: request is %s, expected %s", ErrConflict, br.Status, expected)
	}
	s.log.Info().Str("request_id", id.String()).Str("status", string(next)).Msg("request status updated")
	return s.repo.GetByID(ctx, id)
}

// Search runs exactly one escalation stage for the request and persists the
// cursor. Empty stages advance the cursor so the caller's next invocation
// widens the search; a stage with matches stays put. Once the donor fallback
// also comes up empty the request is marked exhausted and further calls
// return the terminal result without querying.
func (s *Service) Search(ctx context.Context, id uuid.UUID) (proximity.Result, error) {
	br, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return proximity.Result{}, err
	}
	if br.Status != StatusPending {
		return proximity.Result{}, fmt.Errorf("%w: request is %s", ErrNotSearchable, br.Status)
	}

	stage := br.SearchStage()
	if br.SearchExhausted {
		return proximity.Result{
			Source: stage.Source,
			State:  proximity.StateExhausted,
			Stage:  stage,
		}, nil
	}

	origin, city, err := s.origins.ResolveOrigin(ctx, br.HospitalID)
	if err != nil {
		return proximity.Result{}, fmt.Errorf("resolve search origin: %w", err)
	}

	res, err := s.searcher.Search(ctx, proximity.Request{
		Origin:   origin,
		City:     city,
		Group:    br.BloodGroup,
		MinUnits: br.Units,
	}, stage)
	if err != nil {
		return proximity.Result{}, err
	}

	nextStage, exhausted := stage, false
	if len(res.Matches) == 0 {
		if res.Next != nil {
			nextStage = *res.Next
		} else {
			exhausted = true
		}
	}
	if err := s.repo.UpdateSearchCursor(ctx, id, nextStage, exhausted); err != nil {
		s.log.Warn().Err(err).Str("request_id", id.String()).Msg("search cursor not persisted")
	}
	s.log.Info().
		Str("request_id", id.String()).
		Str("source", string(res.Source)).
		Float64("radius_km", res.RadiusKm).
		Int("matches", len(res.Matches)).
		Str("state", string(res.State)).
		Msg("search stage executed")
	return res, nil
}

func (s *Service) rescore(ctx context.Context, br *BloodRequest) priority.Result {
	if br.Status != StatusPending {
		return priority.Result{
			Score:        br.PriorityScore,
			Category:     br.PriorityCategory,
			CalculatedAt: br.UpdatedAt,
		}
	}
	now := s.now()
	stock, err := s.stocks.GroupStock(ctx, br.BloodGroup)
	if err != nil {
		stock = nil
	}
	res, err := priority.Compute(br.PriorityInput(), stock, now)
	if err != nil {
		return priority.Result{Score: br.PriorityScore, Category: br.PriorityCategory, CalculatedAt: br.UpdatedAt}
	}
	br.PriorityScore = res.Score
	br.PriorityCategory = res.Category
	if err := s.repo.UpdatePriority(ctx, br.ID, res.Score, res.Category, now); err != nil {
		s.log.Warn().Err(err).Str("request_id", br.ID.String()).Msg("priority snapshot not persisted")
	}
	return res
}
