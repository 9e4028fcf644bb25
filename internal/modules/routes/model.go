// README: Route selection data model, directions provider contract and errors.
package routes

import (
	"context"
	"errors"
	"fmt"
	"time"

	"saferoute/internal/modules/navigation"
	"saferoute/internal/modules/safety"
	"saferoute/internal/types"
)

var (
	// ErrProvider covers network failures and non-OK provider responses.
	ErrProvider = errors.New("directions provider error")
	// ErrEmptyRouteSet is the provider answering with no candidates.
	ErrEmptyRouteSet = fmt.Errorf("%w: no routes found", ErrProvider)
	// ErrMalformedRoute means no candidate had the leg/step structure needed to score and track it.
	ErrMalformedRoute    = errors.New("malformed route data")
	ErrSelectionNotFound = errors.New("route selection not found")
	ErrBadRequest        = errors.New("bad request")
)

// ProviderStep is a raw step as returned by the directions provider.
// End is nil when the provider omitted the coordinate.
type ProviderStep struct {
	End              *types.Point
	HTMLInstructions string
}

type ProviderLeg struct {
	DistanceText   string
	DistanceMeters int
	DurationText   string
	Duration       time.Duration
	Steps          []ProviderStep
}

// ProviderRoute is one raw candidate. Only the first leg is used.
type ProviderRoute struct {
	Summary string
	Legs    []ProviderLeg
}

// Provider fetches walking route candidates. It must not retry internally.
type Provider interface {
	WalkingRoutes(ctx context.Context, origin, destination types.Point) ([]ProviderRoute, error)
}

// Candidate is a validated route annotated with its conditions and rating.
// Conditions are drawn once when the selection is created and stored with it.
type Candidate struct {
	Index           int                    `json:"index"`
	Summary         string                 `json:"summary"`
	Distance        string                 `json:"distance"`
	DistanceMeters  int                    `json:"distance_meters"`
	Duration        string                 `json:"duration"`
	DurationSeconds int64                  `json:"duration_seconds"`
	Steps           []navigation.Step      `json:"steps"`
	Polyline        []types.Point          `json:"polyline"`
	Conditions      safety.RouteConditions `json:"conditions"`
	Rating          float64                `json:"rating"`
}

// Selection is one route-selection session: every candidate fetched for an
// origin/destination pair and the recommended one.
type Selection struct {
	ID          types.ID    `json:"id"`
	Origin      types.Point `json:"origin"`
	Destination types.Point `json:"destination"`
	Candidates  []Candidate `json:"candidates"`
	Recommended int         `json:"recommended"`
	CreatedAt   time.Time   `json:"created_at"`
}

// Plan turns the candidate at index into the input for a navigation session.
func (s *Selection) Plan(index int) (navigation.Plan, error) {
	if index < 0 || index >= len(s.Candidates) {
		return navigation.Plan{}, fmt.Errorf("%w: route index %d out of range", ErrBadRequest, index)
	}
	c := s.Candidates[index]
	steps := make([]navigation.Step, len(c.Steps))
	copy(steps, c.Steps)
	return navigation.Plan{
		Steps:         steps,
		Start:         s.Origin,
		Destination:   s.Destination,
		TotalDistance: c.Distance,
		EstimatedTime: c.Duration,
	}, nil
}
