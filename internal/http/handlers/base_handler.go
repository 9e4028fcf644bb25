// README: Base handler utilities (JSON helpers, error mapping).
package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"saferoute/internal/maps"
	"saferoute/internal/modules/navigation"
	"saferoute/internal/modules/reports"
	"saferoute/internal/modules/routes"
	"saferoute/internal/types"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(c *gin.Context, status int, v any) {
	c.JSON(status, v)
}

func writeError(c *gin.Context, status int, msg string) {
	writeJSON(c, status, errorResponse{Error: msg})
}

func writeRouteError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, routes.ErrBadRequest):
		writeError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, routes.ErrSelectionNotFound):
		writeError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, routes.ErrEmptyRouteSet):
		writeError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, routes.ErrMalformedRoute), errors.Is(err, routes.ErrProvider):
		_ = c.Error(err)
		writeError(c, http.StatusBadGateway, err.Error())
	default:
		_ = c.Error(err)
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}

func writeNavigationError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, navigation.ErrBadRequest):
		writeError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, navigation.ErrSessionNotFound):
		writeError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, navigation.ErrInputUnavailable),
		errors.Is(err, navigation.ErrAlreadyStarted),
		errors.Is(err, navigation.ErrSessionClosed):
		writeError(c, http.StatusConflict, err.Error())
	default:
		_ = c.Error(err)
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}

func writeReportError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, reports.ErrInvalidKind), errors.Is(err, reports.ErrInvalidPosition):
		writeError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, reports.ErrQuotaExceeded):
		writeError(c, http.StatusTooManyRequests, err.Error())
	default:
		_ = c.Error(err)
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}

func writePlacesError(c *gin.Context, err error) {
	if errors.Is(err, maps.ErrEmptyQuery) {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}
	_ = c.Error(err)
	writeError(c, http.StatusBadGateway, "places search failed")
}

// parsePoint reads "lat,lng".
func parsePoint(s string) (types.Point, bool) {
	latStr, lngStr, ok := strings.Cut(s, ",")
	if !ok {
		return types.Point{}, false
	}
	lat, err1 := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
	lng, err2 := strconv.ParseFloat(strings.TrimSpace(lngStr), 64)
	p := types.Point{Lat: lat, Lng: lng}
	if err1 != nil || err2 != nil || !p.Valid() {
		return types.Point{}, false
	}
	return p, true
}
