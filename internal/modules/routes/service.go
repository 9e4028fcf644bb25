// README: Route selection service: fetch, validate, annotate once, recommend, cache.
package routes

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"saferoute/internal/modules/navigation"
	"saferoute/internal/modules/safety"
	"saferoute/internal/types"
)

// Store keeps selections for the lifetime of a route-selection session.
type Store interface {
	Save(ctx context.Context, sel *Selection) error
	Get(ctx context.Context, id types.ID) (*Selection, error)
}

type Service struct {
	provider   Provider
	store      Store
	conditions safety.ConditionSource
	logger     *zap.Logger
	now        func() time.Time
}

func NewService(provider Provider, store Store, conditions safety.ConditionSource, logger *zap.Logger) *Service {
	if conditions == nil {
		conditions = safety.NewRandomSource(nil)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		provider:   provider,
		store:      store,
		conditions: conditions,
		logger:     logger,
		now:        time.Now,
	}
}

// Search fetches walking candidates, drops structurally broken ones, scores the
// rest and stores the selection. Provider failures are returned as-is wrapped in
// ErrProvider; nothing is retried.
func (s *Service) Search(ctx context.Context, origin, destination types.Point) (*Selection, error) {
	if !origin.Valid() || !destination.Valid() {
		return nil, fmt.Errorf("%w: invalid origin or destination", ErrBadRequest)
	}

	raw, err := s.provider.WalkingRoutes(ctx, origin, destination)
	if err != nil {
		if errors.Is(err, ErrProvider) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrProvider, err)
	}
	if len(raw) == 0 {
		return nil, ErrEmptyRouteSet
	}

	sel := &Selection{
		ID:          types.ID(uuid.NewString()),
		Origin:      origin,
		Destination: destination,
		CreatedAt:   s.now().UTC(),
	}

	var firstErr error
	for i, r := range raw {
		c, err := buildCandidate(r)
		if err != nil {
			s.logger.Warn("skipping malformed route",
				zap.Int("provider_index", i),
				zap.String("summary", r.Summary),
				zap.Error(err),
			)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		c.Index = len(sel.Candidates)
		c.Conditions = s.conditions.Conditions()
		c.Rating = safety.ScoreRoute(c.Conditions)
		sel.Candidates = append(sel.Candidates, c)
	}
	if len(sel.Candidates) == 0 {
		return nil, firstErr
	}

	ratings := make([]float64, len(sel.Candidates))
	for i, c := range sel.Candidates {
		ratings[i] = c.Rating
	}
	sel.Recommended, _ = safety.SelectBestRoute(ratings)

	if err := s.store.Save(ctx, sel); err != nil {
		return nil, fmt.Errorf("saving selection: %w", err)
	}

	s.logger.Info("route selection created",
		zap.String("selection_id", string(sel.ID)),
		zap.Int("candidates", len(sel.Candidates)),
		zap.Int("recommended", sel.Recommended),
	)
	return sel, nil
}

// Get returns a stored selection unchanged; conditions are never regenerated.
func (s *Service) Get(ctx context.Context, id types.ID) (*Selection, error) {
	if id == "" {
		return nil, ErrSelectionNotFound
	}
	return s.store.Get(ctx, id)
}

// Plan returns the navigation input for one candidate of a stored selection.
func (s *Service) Plan(ctx context.Context, id types.ID, index int) (navigation.Plan, error) {
	sel, err := s.Get(ctx, id)
	if err != nil {
		return navigation.Plan{}, err
	}
	return sel.Plan(index)
}

func buildCandidate(r ProviderRoute) (Candidate, error) {
	if len(r.Legs) == 0 {
		return Candidate{}, fmt.Errorf("%w: route has no legs", ErrMalformedRoute)
	}
	leg := r.Legs[0]

	c := Candidate{
		Summary:         r.Summary,
		Distance:        leg.DistanceText,
		DistanceMeters:  leg.DistanceMeters,
		Duration:        leg.DurationText,
		DurationSeconds: int64(leg.Duration / time.Second),
		Steps:           make([]navigation.Step, 0, len(leg.Steps)),
		Polyline:        make([]types.Point, 0, len(leg.Steps)),
	}
	for i, st := range leg.Steps {
		if st.End == nil || !st.End.Valid() {
			return Candidate{}, fmt.Errorf("%w: step %d has no valid end location", ErrMalformedRoute, i)
		}
		c.Steps = append(c.Steps, navigation.Step{
			End:         *st.End,
			Instruction: st.HTMLInstructions,
		})
		c.Polyline = append(c.Polyline, *st.End)
	}
	return c, nil
}
