// README: Navigation session handlers: start, position/heading pushes, voice toggle, end.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"saferoute/internal/http/middleware"
	"saferoute/internal/modules/navigation"
	"saferoute/internal/modules/routes"
	"saferoute/internal/types"
)

type NavigationHandler struct {
	routes   *routes.Service
	sessions *navigation.Manager
}

func NewNavigationHandler(routesSvc *routes.Service, sessions *navigation.Manager) *NavigationHandler {
	return &NavigationHandler{routes: routesSvc, sessions: sessions}
}

type startNavigationReq struct {
	SelectionID string `json:"selection_id"`
	// RouteIndex defaults to the recommended candidate.
	RouteIndex *int `json:"route_index"`
	// Start overrides the selection origin with the walker's current fix.
	Start          *types.Point `json:"start"`
	DeviceToken    string       `json:"device_token"`
	Voice          *bool        `json:"voice"`
	LocationDenied bool         `json:"location_denied"`
	CompassMissing bool         `json:"compass_missing"`
}

func (h *NavigationHandler) Start(c *gin.Context) {
	var req startNavigationReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	if req.SelectionID == "" {
		writeError(c, http.StatusBadRequest, "missing selection_id")
		return
	}

	ctx := c.Request.Context()
	sel, err := h.routes.Get(ctx, types.ID(req.SelectionID))
	if err != nil {
		writeRouteError(c, err)
		return
	}
	index := sel.Recommended
	if req.RouteIndex != nil {
		index = *req.RouteIndex
	}
	plan, err := sel.Plan(index)
	if err != nil {
		writeRouteError(c, err)
		return
	}
	if req.Start != nil {
		if !req.Start.Valid() {
			writeError(c, http.StatusBadRequest, "invalid start")
			return
		}
		plan.Start = *req.Start
	}

	started, err := h.sessions.Start(ctx, navigation.StartParams{
		Plan:           plan,
		DeviceToken:    req.DeviceToken,
		Owner:          middleware.CallerUID(c),
		VoiceOff:       req.Voice != nil && !*req.Voice,
		LocationDenied: req.LocationDenied,
		CompassMissing: req.CompassMissing,
	})
	if err != nil {
		writeNavigationError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, started)
}

func (h *NavigationHandler) Get(c *gin.Context) {
	st, err := h.sessions.Get(types.ID(c.Param("id")), middleware.CallerUID(c))
	if err != nil {
		writeNavigationError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, st)
}

func (h *NavigationHandler) Position(c *gin.Context) {
	var p types.Point
	if err := c.ShouldBindJSON(&p); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	delivered, err := h.sessions.PushPosition(types.ID(c.Param("id")), middleware.CallerUID(c), p)
	if err != nil {
		writeNavigationError(c, err)
		return
	}
	writeJSON(c, http.StatusAccepted, gin.H{"delivered": delivered})
}

func (h *NavigationHandler) Heading(c *gin.Context) {
	var s navigation.HeadingSample
	if err := c.ShouldBindJSON(&s); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	delivered, err := h.sessions.PushHeading(types.ID(c.Param("id")), middleware.CallerUID(c), s)
	if err != nil {
		writeNavigationError(c, err)
		return
	}
	writeJSON(c, http.StatusAccepted, gin.H{"delivered": delivered})
}

type voiceReq struct {
	Enabled *bool `json:"enabled"`
}

func (h *NavigationHandler) Voice(c *gin.Context) {
	var req voiceReq
	if err := c.ShouldBindJSON(&req); err != nil || req.Enabled == nil {
		writeError(c, http.StatusBadRequest, "enabled is required")
		return
	}
	if err := h.sessions.SetVoice(types.ID(c.Param("id")), middleware.CallerUID(c), *req.Enabled); err != nil {
		writeNavigationError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"voice": *req.Enabled})
}

func (h *NavigationHandler) End(c *gin.Context) {
	st, err := h.sessions.End(types.ID(c.Param("id")), middleware.CallerUID(c))
	if err != nil {
		writeNavigationError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, st)
}
