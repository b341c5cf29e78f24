package handler

import (
	"errors"
	"net/http"
	"time"

	"mood-insight/internal/logger"
	"mood-insight/internal/model"
	"mood-insight/internal/service"

	"github.com/gin-gonic/gin"
)

type InsightHandler struct {
	insights *service.InsightService
}

func NewInsightHandler(insights *service.InsightService) *InsightHandler {
	return &InsightHandler{insights: insights}
}

// Ensure serves GET /api/insights/:type?date=YYYY-MM-DD&force=1. "Not ready"
// and "nothing to summarize" are ordinary 200 responses, not errors.
func (h *InsightHandler) Ensure(c *gin.Context) {
	typ := c.Param("type")
	switch typ {
	case model.SnapshotDaily, model.SnapshotWeekly, model.SnapshotMonthly:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown insight type"})
		return
	}

	ref, err := parseDay(c.Query("date"), time.Now())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date"})
		return
	}
	force := c.Query("force") == "1" || c.Query("force") == "true"
	uid := c.GetInt("user_id")

	snap, err := h.insights.Ensure(c.Request.Context(), uid, typ, ref, force)
	switch {
	case errors.Is(err, service.ErrNotEligible):
		c.JSON(http.StatusOK, model.InsightResponse{Status: "not_ready"})
	case errors.Is(err, service.ErrNoCaptures):
		c.JSON(http.StatusOK, model.InsightResponse{Status: "empty"})
	case err != nil:
		logger.Error("ensure insight failed", "uid", uid, "type", typ, "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "insight generation failed"})
	default:
		c.JSON(http.StatusOK, model.InsightResponse{Status: "ready", Snapshot: snap})
	}
}
