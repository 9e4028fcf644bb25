// README: Destination search handler.
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"saferoute/internal/maps"
	"saferoute/internal/types"
)

// PlaceSearcher is implemented by maps.PlacesService.
type PlaceSearcher interface {
	SearchDestinations(ctx context.Context, query string, near *types.Point) ([]maps.Place, error)
}

type PlacesHandler struct {
	places PlaceSearcher
}

func NewPlacesHandler(places PlaceSearcher) *PlacesHandler {
	return &PlacesHandler{places: places}
}

// Search handles GET /api/places/search?q=...&near=lat,lng
func (h *PlacesHandler) Search(c *gin.Context) {
	var near *types.Point
	if raw := c.Query("near"); raw != "" {
		p, ok := parsePoint(raw)
		if !ok {
			writeError(c, http.StatusBadRequest, "near must be lat,lng")
			return
		}
		near = &p
	}
	places, err := h.places.SearchDestinations(c.Request.Context(), c.Query("q"), near)
	if err != nil {
		writePlacesError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"places": places})
}
