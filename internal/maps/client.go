// README: Shared Google Maps client construction.
package maps

import (
	"fmt"

	"googlemaps.github.io/maps"
)

// NewClient builds the Google Maps client shared by the route and places services.
// Extra options (base URL, HTTP client) are mainly for tests.
func NewClient(apiKey string, opts ...maps.ClientOption) (*maps.Client, error) {
	client, err := maps.NewClient(append([]maps.ClientOption{maps.WithAPIKey(apiKey)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return client, nil
}
