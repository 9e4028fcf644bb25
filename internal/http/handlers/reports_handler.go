// README: Activity report handlers.
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"saferoute/internal/http/middleware"
	"saferoute/internal/modules/reports"
	"saferoute/internal/types"
)

type ReportsHandler struct {
	reports *reports.Service
}

// NewReportsHandler accepts a nil service; every call then answers 503.
func NewReportsHandler(svc *reports.Service) *ReportsHandler {
	return &ReportsHandler{reports: svc}
}

type submitReportReq struct {
	Kind      reports.Kind `json:"kind"`
	Position  *types.Point `json:"position"`
	SessionID string       `json:"session_id"`
	Note      string       `json:"note"`
}

func (h *ReportsHandler) Submit(c *gin.Context) {
	if h.reports == nil {
		writeError(c, http.StatusServiceUnavailable, "reports disabled")
		return
	}
	var req submitReportReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Position == nil {
		writeError(c, http.StatusBadRequest, "missing position")
		return
	}
	r, err := h.reports.Submit(c.Request.Context(), reports.Report{
		Kind:      req.Kind,
		Position:  *req.Position,
		SessionID: types.ID(req.SessionID),
		Reporter:  middleware.CallerUID(c),
		Note:      req.Note,
	})
	if err != nil {
		writeReportError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, r)
}

func (h *ReportsHandler) Recent(c *gin.Context) {
	if h.reports == nil {
		writeError(c, http.StatusServiceUnavailable, "reports disabled")
		return
	}
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(c, http.StatusBadRequest, "limit must be an integer")
			return
		}
		limit = n
	}
	list, err := h.reports.Recent(c.Request.Context(), limit)
	if err != nil {
		writeReportError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"reports": list})
}
