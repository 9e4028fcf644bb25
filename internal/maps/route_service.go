package maps

import (
	"context"
	"fmt"
	"strings"
	"time"

	"googlemaps.github.io/maps"

	"saferoute/internal/modules/routes"
	"saferoute/internal/types"
)

// RouteService fetches walking directions from the Google Directions API.
// It implements routes.Provider.
type RouteService struct {
	client  *maps.Client
	timeout time.Duration
}

// NewRouteService wraps client. Every request is bounded by timeout when it is positive.
func NewRouteService(client *maps.Client, timeout time.Duration) *RouteService {
	return &RouteService{client: client, timeout: timeout}
}

// WalkingRoutes requests walking directions with alternatives. Any API failure
// is returned wrapped in routes.ErrProvider; no candidates maps to routes.ErrEmptyRouteSet.
func (s *RouteService) WalkingRoutes(ctx context.Context, origin, destination types.Point) ([]routes.ProviderRoute, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	r := &maps.DirectionsRequest{
		Origin:       origin.String(),
		Destination:  destination.String(),
		Mode:         maps.TravelModeWalking,
		Alternatives: true,
		Units:        maps.UnitsImperial,
		Language:     "en",
	}

	result, _, err := s.client.Directions(ctx, r)
	if err != nil {
		if strings.Contains(err.Error(), "ZERO_RESULTS") {
			return nil, routes.ErrEmptyRouteSet
		}
		return nil, fmt.Errorf("%w: maps api error: %w", routes.ErrProvider, err)
	}
	if len(result) == 0 {
		return nil, routes.ErrEmptyRouteSet
	}

	out := make([]routes.ProviderRoute, 0, len(result))
	for _, rt := range result {
		out = append(out, toProviderRoute(rt))
	}
	return out, nil
}

func toProviderRoute(rt maps.Route) routes.ProviderRoute {
	pr := routes.ProviderRoute{Summary: rt.Summary}
	for _, leg := range rt.Legs {
		if leg == nil {
			continue
		}
		pl := routes.ProviderLeg{
			DistanceText:   leg.Distance.HumanReadable,
			DistanceMeters: leg.Distance.Meters,
			DurationText:   humanDuration(leg.Duration),
			Duration:       leg.Duration,
			Steps:          make([]routes.ProviderStep, 0, len(leg.Steps)),
		}
		for _, st := range leg.Steps {
			pl.Steps = append(pl.Steps, toProviderStep(st))
		}
		pr.Legs = append(pr.Legs, pl)
	}
	return pr
}

// toProviderStep leaves End nil when the API omitted the end location; the
// route service rejects such candidates.
func toProviderStep(st *maps.Step) routes.ProviderStep {
	if st == nil {
		return routes.ProviderStep{}
	}
	ps := routes.ProviderStep{HTMLInstructions: st.HTMLInstructions}
	if st.EndLocation.Lat != 0 || st.EndLocation.Lng != 0 {
		ps.End = &types.Point{Lat: st.EndLocation.Lat, Lng: st.EndLocation.Lng}
	}
	return ps
}

// humanDuration renders d the way the Directions API text field does ("1 min", "7 mins", "1 hour 5 mins").
func humanDuration(d time.Duration) string {
	minutes := int((d + 30*time.Second) / time.Minute)
	if d > 0 && minutes == 0 {
		minutes = 1
	}
	hours, minutes := minutes/60, minutes%60

	plural := func(n int, unit string) string {
		if n == 1 {
			return fmt.Sprintf("1 %s", unit)
		}
		return fmt.Sprintf("%d %ss", n, unit)
	}
	switch {
	case hours == 0:
		return plural(minutes, "min")
	case minutes == 0:
		return plural(hours, "hour")
	default:
		return plural(hours, "hour") + " " + plural(minutes, "min")
	}
}
