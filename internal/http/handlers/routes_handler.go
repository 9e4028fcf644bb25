// README: Route search and selection handlers.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"saferoute/internal/modules/routes"
	"saferoute/internal/types"
)

type RoutesHandler struct {
	routes *routes.Service
}

func NewRoutesHandler(svc *routes.Service) *RoutesHandler {
	return &RoutesHandler{routes: svc}
}

type searchRoutesReq struct {
	Origin      *types.Point `json:"origin"`
	Destination *types.Point `json:"destination"`
}

func (h *RoutesHandler) Search(c *gin.Context) {
	var req searchRoutesReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Origin == nil || req.Destination == nil {
		writeError(c, http.StatusBadRequest, "origin and destination are required")
		return
	}
	sel, err := h.routes.Search(c.Request.Context(), *req.Origin, *req.Destination)
	if err != nil {
		writeRouteError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, sel)
}

func (h *RoutesHandler) Get(c *gin.Context) {
	sel, err := h.routes.Get(c.Request.Context(), types.ID(c.Param("id")))
	if err != nil {
		writeRouteError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, sel)
}
