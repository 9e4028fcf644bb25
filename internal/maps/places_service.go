package maps

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"googlemaps.github.io/maps"

	"saferoute/internal/types"
)

var ErrEmptyQuery = errors.New("empty search query")

const (
	maxPlaces        = 5
	nearbyBiasMeters = 5000
)

// Place is a destination candidate for the search bar.
type Place struct {
	Name     string      `json:"name"`
	Address  string      `json:"address"`
	PlaceID  string      `json:"place_id"`
	Rating   float32     `json:"rating"`
	Location types.Point `json:"location"`
}

// PlacesService handles interactions with Google Places API.
type PlacesService struct {
	client *maps.Client
}

func NewPlacesService(client *maps.Client) *PlacesService {
	return &PlacesService{client: client}
}

// SearchDestinations runs a text search for query. When near is set, results
// are biased toward it. At most five places are returned.
func (s *PlacesService) SearchDestinations(ctx context.Context, query string, near *types.Point) ([]Place, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	r := &maps.TextSearchRequest{
		Query:    query,
		Language: "en",
	}
	if near != nil && near.Valid() {
		r.Location = &maps.LatLng{Lat: near.Lat, Lng: near.Lng}
		r.Radius = nearbyBiasMeters
	}

	resp, err := s.client.TextSearch(ctx, r)
	if err != nil {
		if strings.Contains(err.Error(), "ZERO_RESULTS") {
			return []Place{}, nil
		}
		return nil, fmt.Errorf("places api error: %w", err)
	}

	results := make([]Place, 0, maxPlaces)
	seen := make(map[string]bool)
	for _, result := range resp.Results {
		if result.PlaceID != "" && seen[result.PlaceID] {
			continue
		}
		seen[result.PlaceID] = true

		results = append(results, Place{
			Name:     result.Name,
			Address:  result.FormattedAddress,
			PlaceID:  result.PlaceID,
			Rating:   result.Rating,
			Location: types.Point{Lat: result.Geometry.Location.Lat, Lng: result.Geometry.Location.Lng},
		})
		if len(results) >= maxPlaces {
			break
		}
	}
	return results, nil
}
